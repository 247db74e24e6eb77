package authapi

import (
	"os"
	"strconv"
	"strings"

	"tock/cmd/internal/auth/session"
)

// Config carries HTTP-surface auth settings.
type Config struct {
	// MaxBodyBytes caps request bodies on auth endpoints.
	MaxBodyBytes int64

	// CookieName is the session cookie written on login.
	CookieName string

	// CookieSecure marks the session cookie Secure. Disable only for
	// plain-HTTP dev setups.
	CookieSecure bool

	// CookieDomain scopes the session cookie; empty means host-only.
	CookieDomain string
}

// DefaultConfig returns production-safe defaults.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes: 16 << 10,
		CookieName:   session.DefaultCookieName,
		CookieSecure: true,
	}
}

// LoadConfigFromEnv builds Config from environment variables, falling back to
// defaults for anything unset or invalid.
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("TOCK_AUTH_MAX_BODY_BYTES")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxBodyBytes = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("TOCK_AUTH_COOKIE_NAME")); v != "" {
		cfg.CookieName = v
	}
	if v := strings.TrimSpace(os.Getenv("TOCK_AUTH_COOKIE_SECURE")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.CookieSecure = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("TOCK_AUTH_COOKIE_DOMAIN")); v != "" {
		cfg.CookieDomain = v
	}

	return cfg
}
