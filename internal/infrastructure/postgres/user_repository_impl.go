package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clearsolutions/users-api/internal/domain/entity"
	"github.com/clearsolutions/users-api/internal/domain/repository"
)

// uniqueViolation is the Postgres error code raised by the users_email_key constraint.
const uniqueViolation = "23505"

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Save(ctx context.Context, u *entity.User) (*entity.User, error) {
	if u.ID == "" {
		return r.insert(ctx, u)
	}
	return r.update(ctx, u)
}

func (r *UserRepository) insert(ctx context.Context, u *entity.User) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, first_name, last_name, birth_date, address, phone_number)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, u.Email, u.FirstName, u.LastName, u.BirthDate, u.Address, u.PhoneNumber)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, translateError(err)
	}
	return u, nil
}

func (r *UserRepository) update(ctx context.Context, u *entity.User) (*entity.User, error) {
	u.UpdatedAt = time.Now().UTC()

	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET email = $1, first_name = $2, last_name = $3, birth_date = $4,
		    address = $5, phone_number = $6, updated_at = $7
		WHERE id = $8
	`, u.Email, u.FirstName, u.LastName, u.BirthDate, u.Address, u.PhoneNumber, u.UpdatedAt, u.ID)
	if err != nil {
		return nil, translateError(err)
	}
	if res.RowsAffected() == 0 {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	u := &entity.User{}

	row := r.pool.QueryRow(ctx, `
		SELECT id, email, first_name, last_name, birth_date, address, phone_number, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id)

	if err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.BirthDate,
		&u.Address, &u.PhoneNumber, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	u := &entity.User{}

	row := r.pool.QueryRow(ctx, `
		SELECT id, email, first_name, last_name, birth_date, address, phone_number, created_at, updated_at
		FROM users
		WHERE email = $1
	`, email)

	if err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.BirthDate,
		&u.Address, &u.PhoneNumber, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return u, nil
}

func (r *UserRepository) DeleteByID(ctx context.Context, id string) error {
	// RowsAffected is intentionally ignored: deleting an absent id is a no-op.
	_, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

func (r *UserRepository) GetAllByBirthDateRange(ctx context.Context, from, to time.Time, pageIndex, pageSize int) ([]*entity.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, email, first_name, last_name, birth_date, address, phone_number, created_at, updated_at
		FROM users
		WHERE birth_date >= $1 AND birth_date <= $2
		ORDER BY id
		LIMIT $3 OFFSET $4
	`, from, to, pageSize, pageIndex*pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*entity.User, 0)
	for rows.Next() {
		u := &entity.User{}
		if err := rows.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.BirthDate,
			&u.Address, &u.PhoneNumber, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return repository.ErrDuplicateEmail
	}
	return err
}

var _ repository.UserRepository = (*UserRepository)(nil)
