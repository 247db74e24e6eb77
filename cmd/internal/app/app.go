// Package app wires the Tock server runtime: config, logging, HTTP routes,
// the sync engine and the realtime gateway.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tock/cmd/identity"
	authapi "tock/cmd/internal/auth/api"
	"tock/cmd/internal/auth/session"
	"tock/cmd/internal/realtime"
	"tock/cmd/internal/timers"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App is the Tock server runtime. It owns the HTTP server wiring and the
// lifecycle of the shared DB pool.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool

	ws        *realtime.WSGateway
	auth      *authapi.Handler
	timersAPI *timers.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	stores, err := newStores(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		if stores.pool != nil {
			stores.pool.Close()
		}
		return nil, err
	}
	sessions := session.NewService(sessCfg, stores.sessions, stores.users)

	registry := realtime.NewRegistry(log)
	engine := timers.NewService(log, stores.timers, registry)

	authHandler, err := authapi.NewHandler(log, authapi.LoadConfigFromEnv(), stores.users, sessions)
	if err != nil {
		if stores.pool != nil {
			stores.pool.Close()
		}
		return nil, err
	}

	return &App{
		cfg:       cfg,
		log:       log,
		dbPool:    stores.pool,
		dbEnabled: stores.pool != nil,
		ws:        realtime.NewWSGateway(log, registry, engine, sessions),
		auth:      authHandler,
		timersAPI: timers.NewHandler(log, engine, sessions),
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.ws, a.auth, a.timersAPI)

	handler := WithSecurityHeaders(mux)
	handler = WithRequestLogging(handler, a.log)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if a.dbPool != nil {
		a.dbPool.Close()
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// appStores bundles the persistence adapters behind one lifecycle.
type appStores struct {
	pool     *pgxpool.Pool
	users    identity.Store
	sessions session.Store
	timers   timers.Store
}

// newStores decides between Postgres-backed persistence and the in-memory dev
// stores. The app owns the pool lifecycle.
func newStores(ctx context.Context, cfg Config, log Logger) (appStores, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return appStores{
			users:    identity.NewInMemoryStore(),
			sessions: session.NewInMemoryStore(),
			timers:   timers.NewInMemoryStore(),
		}, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return appStores{}, err
	}

	if cfg.DBMigrate {
		if err := Migrate(ctx, pool, "tock"); err != nil {
			pool.Close()
			return appStores{}, err
		}
		log.Info("db.migrate.done")
	}

	users, err := identity.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return appStores{}, err
	}
	timerStore, err := timers.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return appStores{}, err
	}
	sessionStore, err := session.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return appStores{}, err
	}

	log.Info("db.enabled.postgres_store")
	return appStores{
		pool:     pool,
		users:    users,
		sessions: sessionStore,
		timers:   timerStore,
	}, nil
}
