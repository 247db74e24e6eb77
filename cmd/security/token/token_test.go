package token

import (
	"errors"
	"strings"
	"testing"
)

func TestNewOpaque(t *testing.T) {
	plain, hash, err := NewOpaque(32)
	if err != nil {
		t.Fatalf("NewOpaque: %v", err)
	}
	if plain == "" || hash == "" {
		t.Fatalf("empty token or hash")
	}
	if strings.ContainsAny(plain, "+/=") {
		t.Fatalf("token must be URL-safe base64: %q", plain)
	}
	if got := HashSessionTokenHex(plain); got != hash {
		t.Fatalf("hash mismatch: %q vs %q", got, hash)
	}

	plain2, _, err := NewOpaque(32)
	if err != nil {
		t.Fatalf("NewOpaque: %v", err)
	}
	if plain == plain2 {
		t.Fatalf("tokens must be unique")
	}
}

func TestHashSessionTokenHex_SHAFallback(t *testing.T) {
	t.Setenv(HMACEnvKey, "")
	if HMACEnabled() {
		t.Fatalf("HMAC must be disabled without a key")
	}
	if got := HashSessionTokenHex("abc"); got != HashSHA256Hex("abc") {
		t.Fatalf("expected SHA-256 fallback")
	}
}

func TestHashSessionTokenHex_HMACMode(t *testing.T) {
	key := strings.Repeat("k", 32)
	t.Setenv(HMACEnvKey, key)

	if !HMACEnabled() {
		t.Fatalf("HMAC must be enabled with a key")
	}
	want := HashHMACSHA256Hex("abc", []byte(key))
	if got := HashSessionTokenHex("abc"); got != want {
		t.Fatalf("expected HMAC digest")
	}
	if HashSessionTokenHex("abc") == HashSHA256Hex("abc") {
		t.Fatalf("HMAC digest must differ from plain SHA-256")
	}
}

func TestHMACKeyFromEnv(t *testing.T) {
	t.Setenv(HMACEnvKey, "")
	if _, err := HMACKeyFromEnv(32); !errors.Is(err, ErrHMACKeyMissing) {
		t.Fatalf("expected ErrHMACKeyMissing, got %v", err)
	}

	t.Setenv(HMACEnvKey, "too-short")
	if _, err := HMACKeyFromEnv(32); !errors.Is(err, ErrHMACKeyTooShort) {
		t.Fatalf("expected ErrHMACKeyTooShort, got %v", err)
	}

	t.Setenv(HMACEnvKey, strings.Repeat("k", 32))
	key, err := HMACKeyFromEnv(32)
	if err != nil || len(key) != 32 {
		t.Fatalf("unexpected: key=%d err=%v", len(key), err)
	}
}
