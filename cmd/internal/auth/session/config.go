package session

import (
	"os"
	"strconv"
)

// Config defines runtime configuration for the session subsystem.
type Config struct {
	// TokenBytes defines the number of random bytes used to generate opaque
	// session tokens.
	TokenBytes int
}

// DefaultConfig returns a secure default configuration.
func DefaultConfig() Config {
	return Config{TokenBytes: 32}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Optional:
//   - TOCK_SESSION_TOKEN_BYTES
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("TOCK_SESSION_TOKEN_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 16 || n > 256 {
			return Config{}, ErrConfig
		}
		cfg.TokenBytes = n
	}

	return cfg, nil
}
