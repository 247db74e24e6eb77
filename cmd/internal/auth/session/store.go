package session

import (
	"context"
	"time"
)

// Row mirrors the tock.sessions row used by the session subsystem.
// Only the token digest is stored; the plain token never reaches the store.
type Row struct {
	TokenHash string
	UserID    string
	CreatedAt time.Time
}

// Store abstracts persistence for session state.
type Store interface {
	// Create inserts a new session row.
	Create(ctx context.Context, now time.Time, userID, tokenHash string) error

	// GetByTokenHash loads a session row by token digest.
	// Returns ErrSessionNotFound if missing.
	GetByTokenHash(ctx context.Context, tokenHash string) (Row, error)

	// DeleteByTokenHash removes a session row (idempotent).
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
}
