package user

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when no user matches the id or email.
	ErrNotFound = errors.New("user not found")
	// ErrExists is returned when registering an email that is already taken.
	ErrExists = errors.New("user already exists")
	// ErrInvalidCredentials is returned by Login for an unknown email or a
	// wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned when a bearer token cannot be verified.
	ErrInvalidToken = errors.New("invalid token")
)

// ValidationError describes an invalid registration field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// User is a registered customer. PasswordHash is a bcrypt hash and never
// leaves the service boundary.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Repository defines persistence for users.
type Repository interface {
	List(ctx context.Context) ([]User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// Create returns ErrExists when the email is already registered.
	Create(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
}

// NormalizeEmail lowercases and trims email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

const minPasswordLen = 6

func validateRegistration(name, email, password string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return &ValidationError{Field: "name", Reason: "required"}
	case email == "":
		return &ValidationError{Field: "email", Reason: "required"}
	case len(password) < minPasswordLen:
		return &ValidationError{Field: "password", Reason: "must be at least 6 characters"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return &ValidationError{Field: "email", Reason: "invalid address"}
	}
	return nil
}
