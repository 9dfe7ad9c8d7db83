package application

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDateRange is returned by the range query when from is after to.
var ErrDateRange = errors.New("From date is after to date")

// NotFoundError reports an update against an id that does not exist.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("User with id '%s' not found", e.ID)
}

// EmailConflictError reports a write that would give two users the same email.
type EmailConflictError struct {
	Email string
}

func (e *EmailConflictError) Error() string {
	return fmt.Sprintf("User with email %s already exist", e.Email)
}

// ValidationError aggregates every field constraint violated by a request,
// so a caller sees all of them at once rather than the first.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Violations, "; ")
}
