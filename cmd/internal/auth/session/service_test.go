package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tock/cmd/identity"
)

func newTestService(t *testing.T) (*Service, *identity.InMemoryStore) {
	t.Helper()
	users := identity.NewInMemoryStore()
	svc := NewService(DefaultConfig(), NewInMemoryStore(), users)
	return svc, users
}

func createTestUser(t *testing.T, users *identity.InMemoryStore, username string) identity.User {
	t.Helper()
	u, err := users.CreateUser(context.Background(), identity.CreateUserInput{
		Username: username,
		Password: "correct horse battery",
		Now:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func TestService_IssueResolveRoundTrip(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()
	u := createTestUser(t, users, "ada")

	token, err := svc.Issue(ctx, time.Now().UTC(), u.ID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" || strings.ContainsAny(token, "+/=") {
		t.Fatalf("token must be non-empty URL-safe base64: %q", token)
	}

	got, err := svc.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != u.ID || got.Username != u.Username {
		t.Fatalf("resolved wrong user: %+v", got)
	}
}

func TestService_ResolveUnknownToken(t *testing.T) {
	svc, _ := newTestService(t)

	for _, token := range []string{"", "   ", "does-not-exist", strings.Repeat("x", 5000)} {
		if _, err := svc.Resolve(context.Background(), token); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("token len=%d: expected ErrSessionNotFound, got %v", len(token), err)
		}
	}
}

func TestService_MultipleSessionsPerUser(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()
	u := createTestUser(t, users, "ada")

	t1, err := svc.Issue(ctx, time.Now().UTC(), u.ID)
	if err != nil {
		t.Fatalf("Issue 1: %v", err)
	}
	t2, err := svc.Issue(ctx, time.Now().UTC(), u.ID)
	if err != nil {
		t.Fatalf("Issue 2: %v", err)
	}
	if t1 == t2 {
		t.Fatalf("tokens must be unique")
	}

	for _, tok := range []string{t1, t2} {
		if _, err := svc.Resolve(ctx, tok); err != nil {
			t.Fatalf("Resolve: %v", err)
		}
	}

	// Deleting one session leaves the other intact.
	if err := svc.Delete(ctx, t1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Resolve(ctx, t1); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("deleted token must not resolve, got %v", err)
	}
	if _, err := svc.Resolve(ctx, t2); err != nil {
		t.Fatalf("sibling session lost: %v", err)
	}
}

func TestService_DeleteIdempotent(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()
	u := createTestUser(t, users, "ada")

	token, err := svc.Issue(ctx, time.Now().UTC(), u.ID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := svc.Delete(ctx, token); err != nil {
		t.Fatalf("first Delete: %v", err)
	}
	if err := svc.Delete(ctx, token); err != nil {
		t.Fatalf("second Delete must be a no-op: %v", err)
	}
	if err := svc.Delete(ctx, ""); err != nil {
		t.Fatalf("empty Delete must be a no-op: %v", err)
	}
}

func TestService_OrphanedSessionResolvesNotFound(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()
	u := createTestUser(t, users, "ada")

	token, err := svc.Issue(ctx, time.Now().UTC(), u.ID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	users.DeleteUser(ctx, u.ID)

	if _, err := svc.Resolve(ctx, token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("orphaned session must resolve as not found, got %v", err)
	}
}
