// Package identity owns Tock's user records and credential verification.
package identity

import (
	"context"
	"strings"
	"time"
)

// User is Tock's canonical security principal.
type User struct {
	ID        string
	Username  string
	CreatedAt time.Time
}

// UserAuth carries a user together with their password hash for login checks.
// The hash must never leave the auth boundary.
type UserAuth struct {
	User         User
	PasswordHash string
}

// CreateUserInput describes a user registration request.
type CreateUserInput struct {
	Username string
	Password string
	Now      time.Time
}

// Store is the identity persistence boundary.
type Store interface {
	// CreateUser registers a new user. Returns ConflictError when the
	// (normalized) username is already taken.
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)

	// GetUserByID loads a user by id. Returns ErrNotFound if missing.
	GetUserByID(ctx context.Context, id string) (User, error)

	// GetUserAuthByUsername loads a user plus password hash for login.
	// Returns ErrNotFound if missing.
	GetUserAuthByUsername(ctx context.Context, username string) (UserAuth, error)
}

// NormalizeUsername lowercases and trims a username for uniqueness checks.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateUsername checks registration input bounds.
func ValidateUsername(s string) error {
	n := len([]rune(strings.TrimSpace(s)))
	if n < 2 || n > 50 {
		return OpError{Op: "identity.ValidateUsername", Kind: ErrInvalidInput, Msg: "username must be 2-50 chars"}
	}
	return nil
}
