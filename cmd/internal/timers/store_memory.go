package timers

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryStore is a dev/test fallback used when no database is configured.
// It mirrors the Postgres store's semantics, including the conditional
// close-once transition.
type InMemoryStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]Timer
}

// NewInMemoryStore constructs an in-memory timer Store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{rows: make(map[int64]Timer)}
}

// Insert creates an active timer and returns its id.
func (s *InMemoryStore) Insert(ctx context.Context, userID, description string, start time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.rows[id] = Timer{
		ID:          id,
		UserID:      userID,
		Description: description,
		Start:       start,
	}
	return id, nil
}

// CloseTimer sets End for an active timer owned by userID.
// Returns the number of rows that transitioned (0 or 1).
func (s *InMemoryStore) CloseTimer(ctx context.Context, userID string, id int64, end time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.rows[id]
	if !ok || t.UserID != userID || t.End != nil {
		return 0, nil
	}
	t.End = &end
	s.rows[id] = t
	return 1, nil
}

// ListActive returns the user's active timers ordered by start time.
func (s *InMemoryStore) ListActive(ctx context.Context, userID string) ([]Timer, error) {
	return s.list(ctx, userID, false)
}

// ListClosed returns the user's closed timers ordered by start time.
func (s *InMemoryStore) ListClosed(ctx context.Context, userID string) ([]Timer, error) {
	return s.list(ctx, userID, true)
}

func (s *InMemoryStore) list(ctx context.Context, userID string, closed bool) ([]Timer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	out := make([]Timer, 0, len(s.rows))
	for _, t := range s.rows {
		if t.UserID != userID || (t.End != nil) != closed {
			continue
		}
		out = append(out, t)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}
