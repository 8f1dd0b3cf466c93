package models

import (
	"strings"
	"time"

	id "taskflow/pkg/domain"
	dErrors "taskflow/pkg/domain-errors"
	"taskflow/pkg/email"
)

const (
	maxNameLength     = 100
	minPasswordLength = 6
)

// User is a registered account.
//
// Invariants:
//   - ID and Email never change after registration
//   - Email is stored normalized (trimmed, lower-case) and is unique
//   - PasswordHash never leaves the user service
type User struct {
	ID           id.UserID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// Registration is the validated input of a sign-up.
type Registration struct {
	Name     string
	Email    string
	Password string
}

// Normalize trims the name and lower-cases the email.
func (r *Registration) Normalize() {
	r.Email = email.Normalize(r.Email)
	r.Name = strings.TrimSpace(r.Name)
}

func (r Registration) Validate() error {
	if err := ValidateName(r.Name); err != nil {
		return err
	}
	if r.Email == "" {
		return dErrors.Validation("email", "email is required")
	}
	if !email.IsValid(r.Email) {
		return dErrors.Validation("email", "email is invalid")
	}
	if len(r.Password) < minPasswordLength {
		return dErrors.Validation("password", "password must be at least 6 characters")
	}
	return nil
}

// ValidateName checks a display name after trimming.
func ValidateName(name string) error {
	if name == "" {
		return dErrors.Validation("name", "name is required")
	}
	if len(name) > maxNameLength {
		return dErrors.Validation("name", "name must be at most 100 characters")
	}
	return nil
}
