package entity

import (
	"time"
)

// User is the aggregate root for the user domain.
// BirthDate is a calendar date; only its year/month/day are meaningful.
// Address and PhoneNumber are optional and map to nullable columns.
type User struct {
	ID          string
	Email       string
	FirstName   string
	LastName    string
	BirthDate   time.Time
	Address     *string
	PhoneNumber *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
