package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// If true, the schema migration runs at startup before serving.
	DBMigrate bool

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// Security policy:
	// If true, TOCK_TOKEN_HMAC_KEY MUST be set (>= 32 bytes) and session-token hashing must be HMAC-based.
	RequireTokenHMAC bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("TOCK_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("TOCK_LOG_LEVEL", "info"),
		LogFormat: EnvString("TOCK_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("TOCK_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("TOCK_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("TOCK_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("TOCK_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("TOCK_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("TOCK_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("TOCK_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("TOCK_DB_MIN_CONNS", 0),

		DBMigrate: EnvBool("TOCK_DB_MIGRATE", false),

		ReadinessRequireDB: EnvBool("TOCK_READINESS_REQUIRE_DB", false),

		RequireTokenHMAC: EnvBool("TOCK_REQUIRE_TOKEN_HMAC", false),
	}
}
