package session

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore is a dev/test fallback used when no database is configured.
type InMemoryStore struct {
	mu   sync.Mutex
	rows map[string]Row // token_hash -> row
}

// NewInMemoryStore constructs an in-memory session Store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{rows: make(map[string]Row)}
}

// Create inserts a new session row.
func (s *InMemoryStore) Create(ctx context.Context, now time.Time, userID, tokenHash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows[tokenHash] = Row{TokenHash: tokenHash, UserID: userID, CreatedAt: now}
	return nil
}

// GetByTokenHash loads a session row by token digest.
func (s *InMemoryStore) GetByTokenHash(ctx context.Context, tokenHash string) (Row, error) {
	if err := ctx.Err(); err != nil {
		return Row{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[tokenHash]
	if !ok {
		return Row{}, ErrSessionNotFound
	}
	return row, nil
}

// DeleteByTokenHash removes a session row (idempotent).
func (s *InMemoryStore) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rows, tokenHash)
	return nil
}
