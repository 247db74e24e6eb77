// Package session implements Tock's opaque-token sessions: issuance at login,
// deletion at logout, and token resolution for both the HTTP surface and the
// realtime gateway handshake.
package session

import (
	"context"
	"strings"
	"time"

	"tock/cmd/identity"
	"tock/cmd/security/token"
)

// Service implements the high-level session operations for Tock.
//
// Resolve is the session validator used by every authenticated surface: it maps
// an opaque bearer token to the owning user, or reports ErrSessionNotFound.
// Store unavailability propagates as-is so callers can fail closed.
type Service struct {
	cfg   Config
	store Store
	users identity.Store
}

// NewService constructs a Service with the provided configuration and stores.
func NewService(cfg Config, store Store, users identity.Store) *Service {
	return &Service{cfg: cfg, store: store, users: users}
}

// Issue creates a new session for userID and returns the plain opaque token.
// Only the token digest is persisted. One user may hold many sessions at once.
func (s *Service) Issue(ctx context.Context, now time.Time, userID string) (string, error) {
	plain, hash, err := token.NewOpaque(s.cfg.TokenBytes)
	if err != nil {
		return "", err
	}
	if err := s.store.Create(ctx, now, userID, hash); err != nil {
		return "", err
	}
	return plain, nil
}

// Resolve maps an opaque token to the owning user.
//
// Failure contract:
//   - unknown token -> ErrSessionNotFound
//   - orphaned session (user row missing) -> ErrSessionNotFound, never a
//     partial identity
//   - store errors propagate unchanged (transient; callers fail closed)
func (s *Service) Resolve(ctx context.Context, plain string) (identity.User, error) {
	plain = strings.TrimSpace(plain)
	// Basic sanity bounds to avoid pathological inputs.
	if plain == "" || len(plain) > 4096 {
		return identity.User{}, ErrSessionNotFound
	}

	row, err := s.store.GetByTokenHash(ctx, token.HashSessionTokenHex(plain))
	if err != nil {
		return identity.User{}, err
	}

	u, err := s.users.GetUserByID(ctx, row.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			return identity.User{}, ErrSessionNotFound
		}
		return identity.User{}, err
	}

	return u, nil
}

// Delete removes the session backing the given token (logout). Idempotent.
func (s *Service) Delete(ctx context.Context, plain string) error {
	plain = strings.TrimSpace(plain)
	if plain == "" {
		return nil
	}
	return s.store.DeleteByTokenHash(ctx, token.HashSessionTokenHex(plain))
}
