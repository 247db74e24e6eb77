package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"tock/cmd/identity/ids"
)

// InMemoryStore is a dev/test fallback used when no database is configured.
type InMemoryStore struct {
	mu     sync.Mutex
	byID   map[string]UserAuth
	byNorm map[string]string // username_norm -> id
}

// NewInMemoryStore constructs an in-memory identity Store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[string]UserAuth),
		byNorm: make(map[string]string),
	}
}

// CreateUser registers a new user with a hashed password.
func (s *InMemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ValidateUsername(in.Username); err != nil {
		return User{}, err
	}
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: err.Error()}
	}

	id, err := ids.NewULID(now)
	if err != nil {
		return User{}, err
	}

	username := strings.TrimSpace(in.Username)
	norm := NormalizeUsername(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byNorm[norm]; taken {
		return User{}, ConflictError{Op: op, Field: "username"}
	}

	u := User{ID: id, Username: username, CreatedAt: now}
	s.byID[id] = UserAuth{User: u, PasswordHash: hash}
	s.byNorm[norm] = id
	return u, nil
}

// GetUserByID loads a user by id.
func (s *InMemoryStore) GetUserByID(ctx context.Context, id string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ua, ok := s.byID[id]
	if !ok {
		return User{}, OpError{Op: "identity.GetUserByID", Kind: ErrNotFound}
	}
	return ua.User, nil
}

// GetUserAuthByUsername loads a user plus password hash for login.
func (s *InMemoryStore) GetUserAuthByUsername(ctx context.Context, username string) (UserAuth, error) {
	if err := ctx.Err(); err != nil {
		return UserAuth{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byNorm[NormalizeUsername(username)]
	if !ok {
		return UserAuth{}, OpError{Op: "identity.GetUserAuthByUsername", Kind: ErrNotFound}
	}
	return s.byID[id], nil
}

// DeleteUser removes a user record. It exists to exercise orphaned-session
// handling in tests and admin tooling.
func (s *InMemoryStore) DeleteUser(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ua, ok := s.byID[id]
	if !ok {
		return
	}
	delete(s.byID, id)
	delete(s.byNorm, NormalizeUsername(ua.User.Username))
}
