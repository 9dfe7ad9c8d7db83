package repository

import (
	"context"
	"errors"
	"time"

	"github.com/clearsolutions/users-api/internal/domain/entity"
)

var (
	// ErrNotFound is returned by lookups when no user matches.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when a write violates the email uniqueness constraint.
	ErrDuplicateEmail = errors.New("duplicate email")
)

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	// Save inserts u when its ID is empty (assigning a new id) and updates it otherwise.
	Save(ctx context.Context, u *entity.User) (*entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// DeleteByID removes the user with the given id; deleting an absent id is a no-op.
	DeleteByID(ctx context.Context, id string) error
	// GetAllByBirthDateRange returns users whose birth date falls within [from, to]
	// inclusive, ordered by primary key, paginated with a 0-based page index.
	GetAllByBirthDateRange(ctx context.Context, from, to time.Time, pageIndex, pageSize int) ([]*entity.User, error)
}
