package users

import (
	"errors"
	"time"

	"salescore/internal/domainerrors"
)

var (
	ErrNotFound = errors.New("resource not found")

	// ErrContactMismatch is a *domainerrors.Error (not a plain sentinel) so
	// that handlers passing it straight to writeError get the spec-mandated
	// 409 instead of falling through Translate's default 500.
	ErrContactMismatch = domainerrors.New(domainerrors.Conflict, "contact data does not match")

	QueryTimeoutDuration = 5 * time.Second
)

// sentinelPasswordHash marks a guest user created through
// GetOrCreateUserByContact that never set a real password.
const sentinelPasswordHash = "!"

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Phone        *string   `json:"phone,omitempty"`
	DNI          *string   `json:"dni,omitempty"`
	PasswordHash string    `json:"-"`
	HasAccount   bool      `json:"has_account"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
