package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/clearsolutions/users-api/internal/domain/entity"
	repo "github.com/clearsolutions/users-api/internal/domain/repository"
	"github.com/clearsolutions/users-api/pkg/validation"
)

// MaxPageSize caps the page size of the birth date range query.
const MaxPageSize = 500

// Service orchestrates user create/update/delete/list. It owns all business
// rule validation and the partial-update merge; navigational links are a
// transport concern and never appear here.
type Service struct {
	Repo      repo.UserRepository
	Validator *validation.Validator
	Logger    *logrus.Logger
}

func NewService(r repo.UserRepository, v *validation.Validator, logger *logrus.Logger) *Service {
	return &Service{Repo: r, Validator: v, Logger: logger}
}

// CreateUserInput is the create view: everything but address and phone is required.
type CreateUserInput struct {
	Email       string    `json:"email" validate:"required,email"`
	FirstName   string    `json:"firstName" validate:"required,min=1,max=100"`
	LastName    string    `json:"lastName" validate:"required,min=1,max=100"`
	BirthDate   time.Time `json:"birthDate" validate:"required,past,adult"`
	Address     *string   `json:"address" validate:"omitempty,max=200"`
	PhoneNumber *string   `json:"phoneNumber" validate:"omitempty,phonedigits"`
}

// UpdateUserInput is the update view: a nil field means "leave unchanged",
// a non-nil field means "apply this value" and must be individually valid.
type UpdateUserInput struct {
	Email       *string    `json:"email" validate:"omitempty,email"`
	FirstName   *string    `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName    *string    `json:"lastName" validate:"omitempty,min=1,max=100"`
	BirthDate   *time.Time `json:"birthDate" validate:"omitempty,past,adult"`
	Address     *string    `json:"address" validate:"omitempty,max=200"`
	PhoneNumber *string    `json:"phoneNumber" validate:"omitempty,phonedigits"`
}

// UserView is the outward read model of a stored user.
type UserView struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	BirthDate   string  `json:"birthDate"`
	Address     *string `json:"address,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
}

func toView(u *entity.User) UserView {
	return UserView{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		BirthDate:   u.BirthDate.Format(time.DateOnly),
		Address:     u.Address,
		PhoneNumber: u.PhoneNumber,
	}
}

// CreateUser validates the whole create view, persists a new user and returns
// the store-assigned id. The email uniqueness constraint in the store backs up
// the explicit pre-check against concurrent writers.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (string, error) {
	if violations := s.Validator.Struct(in); violations != nil {
		return "", &ValidationError{Violations: violations}
	}

	if _, err := s.Repo.GetByEmail(ctx, in.Email); err == nil {
		return "", &EmailConflictError{Email: in.Email}
	} else if !errors.Is(err, repo.ErrNotFound) {
		return "", err
	}

	u := &entity.User{
		Email:       in.Email,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		BirthDate:   validation.DateOf(in.BirthDate),
		Address:     in.Address,
		PhoneNumber: in.PhoneNumber,
	}
	saved, err := s.Repo.Save(ctx, u)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return "", &EmailConflictError{Email: in.Email}
		}
		return "", err
	}

	if s.Logger != nil {
		s.Logger.WithField("user_id", saved.ID).Debug("user created")
	}
	return saved.ID, nil
}

// UpdateUser applies the non-nil fields of in onto the stored user. The email
// conflict check runs before any field write, so a rejected call leaves the
// record fully unchanged.
func (s *Service) UpdateUser(ctx context.Context, id string, in UpdateUserInput) error {
	if violations := s.Validator.Struct(in); violations != nil {
		return &ValidationError{Violations: violations}
	}

	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return &NotFoundError{ID: id}
		}
		return err
	}

	if in.Email != nil && *in.Email != u.Email {
		existing, err := s.Repo.GetByEmail(ctx, *in.Email)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		if existing != nil && existing.ID != u.ID {
			return &EmailConflictError{Email: *in.Email}
		}
	}

	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.BirthDate != nil {
		u.BirthDate = validation.DateOf(*in.BirthDate)
	}
	if in.Address != nil {
		u.Address = in.Address
	}
	if in.PhoneNumber != nil {
		u.PhoneNumber = in.PhoneNumber
	}

	if _, err := s.Repo.Save(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) && in.Email != nil {
			return &EmailConflictError{Email: *in.Email}
		}
		return err
	}

	if s.Logger != nil {
		s.Logger.WithField("user_id", id).Debug("user updated")
	}
	return nil
}

// DeleteUser removes the user with the given id. Deleting an id that does not
// exist is a success, so the call is idempotent.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if err := s.Repo.DeleteByID(ctx, id); err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.WithField("user_id", id).Debug("user deleted")
	}
	return nil
}

// FindAllByBirthDateRange returns the views of all users whose birth date
// falls within [from, to] inclusive, paginated with a 0-based page index.
// Page bounds are validated before the store is touched.
func (s *Service) FindAllByBirthDateRange(ctx context.Context, from, to time.Time, pageIndex, pageSize int) ([]UserView, error) {
	var violations []string
	if pageIndex < 0 {
		violations = append(violations, "pageIndex must not be negative")
	}
	if pageSize <= 0 {
		violations = append(violations, "pageSize must be positive")
	}
	if pageSize > MaxPageSize {
		violations = append(violations, "pageSize must be at most 500")
	}
	if violations != nil {
		return nil, &ValidationError{Violations: violations}
	}

	from, to = validation.DateOf(from), validation.DateOf(to)
	if from.After(to) {
		return nil, ErrDateRange
	}

	users, err := s.Repo.GetAllByBirthDateRange(ctx, from, to, pageIndex, pageSize)
	if err != nil {
		return nil, err
	}

	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, toView(u))
	}
	return views, nil
}
