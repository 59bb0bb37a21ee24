// Package app wires the admin server runtime: config, logging, stores, HTTP
// routes and the session watch.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"leadadmin/cmd/identity"
	"leadadmin/cmd/internal/auth/api"
	"leadadmin/cmd/internal/auth/credentials"
	"leadadmin/cmd/internal/auth/guard"
	"leadadmin/cmd/internal/auth/ratelimit"
	"leadadmin/cmd/internal/auth/session"
	"leadadmin/cmd/internal/db"
	"leadadmin/cmd/internal/metrics"
	"leadadmin/cmd/internal/realtime"
	"leadadmin/cmd/internal/records"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// App is the admin server runtime. It owns the DB pool, the Redis client
// and the HTTP handler chain.
type App struct {
	cfg Config
	log Logger

	dbPool *pgxpool.Pool
	sqlDB  *sql.DB
	rdb    *redis.Client

	sessions *session.Manager
	store    identity.Store
	hub      *realtime.Hub
	metrics  *metrics.Metrics

	handler http.Handler
}

// Option configures New.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now for sessions, logins and watches.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger, opts ...Option) (_ *App, err error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if log == nil {
		log = NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat, cfg.LogColor)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	macKey, err := limiterKey(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log, metrics: metrics.New()}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.sessions, err = session.NewManager(cfg.Session, session.WithClock(o.now))
	if err != nil {
		return nil, err
	}
	hasher, err := identity.NewPasswordHasher(cfg.Password)
	if err != nil {
		return nil, err
	}

	var repo records.Repository
	if cfg.DatabaseURL != "" {
		if repo, err = a.openDB(ctx); err != nil {
			return nil, err
		}
	} else {
		log.Info("db.disabled.inmemory_store")
		mem := identity.NewMemoryStore()
		if err := seedDevAdmin(ctx, cfg, mem, hasher, o.now()); err != nil {
			return nil, err
		}
		a.store = mem
	}

	var limiter ratelimit.Limiter = ratelimit.Noop{}
	if cfg.RedisURL != "" {
		if a.rdb, err = NewRedisClient(ctx, cfg.RedisURL); err != nil {
			return nil, err
		}
		limiter = ratelimit.NewRedisLimiter(a.rdb, cfg.Limiter, macKey)
		log.Info("auth.limiter.redis", "max_attempts", cfg.Limiter.MaxAttempts, "window", cfg.Limiter.Window)
	}

	verifier, err := credentials.NewVerifier(log, a.store, hasher, a.sessions.Signer(), credentials.WithClock(o.now))
	if err != nil {
		return nil, err
	}

	a.hub = realtime.NewHub(log)
	watch := realtime.NewSessionWatch(log, a.hub, cfg.Watch,
		realtime.WithGauge(a.metrics),
		realtime.WithClock(o.now),
	)

	auth, err := authapi.NewHandler(log, cfg.Auth, verifier, a.sessions,
		authapi.WithLimiter(limiter),
		authapi.WithAudit(a.store),
		authapi.WithSessionEnder(a.hub),
		authapi.WithRecorder(a.metrics),
	)
	if err != nil {
		return nil, err
	}

	rt := routes{
		log:     log,
		cfg:     cfg,
		dbPool:  a.dbPool,
		auth:    auth,
		records: records.NewHandler(log, repo),
		watch:   watch,
		guard:   guard.New(log, a.sessions, a.metrics, cfg.Guard),
		metrics: a.metrics,
	}
	a.handler = rt.handler()
	return a, nil
}

// openDB connects, optionally migrates, and builds the Postgres-backed
// identity store and records repository over one pool.
func (a *App) openDB(ctx context.Context) (records.Repository, error) {
	pool, err := NewDBPool(ctx, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("app: db: %w", err)
	}
	a.dbPool = pool
	a.sqlDB = OpenSQL(pool)

	if a.cfg.DBMigrate {
		if err := db.Migrate(ctx, a.sqlDB); err != nil {
			return nil, err
		}
		a.log.Info("db.migrated")
	}

	st, err := identity.NewPostgresStore(pool)
	if err != nil {
		return nil, err
	}
	a.store = st
	a.log.Info("db.enabled.postgres_store")
	return records.NewPostgresRepository(a.sqlDB, records.DefaultSchema), nil
}

func seedDevAdmin(ctx context.Context, cfg Config, st identity.Store, hasher *identity.PasswordHasher, now time.Time) error {
	if cfg.DevAdminUsername == "" {
		return nil
	}
	if !cfg.Development() {
		return errors.New("app: dev admin is only allowed with ADMIN_ENV=development")
	}
	_, _, err := SeedAdmin(ctx, st, hasher, SeedInput{
		Username: cfg.DevAdminUsername,
		Password: cfg.DevAdminPassword,
		Now:      now,
	})
	return err
}

// Handler is the full middleware chain; tests drive it through httptest.
func (a *App) Handler() http.Handler { return a.handler }

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start",
		"addr", a.cfg.HTTPAddr,
		"db_enabled", a.dbPool != nil,
		"limiter_enabled", a.rdb != nil,
		"cookie", a.sessions.CookieName(),
	)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("server.fail", "err", err)
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		a.log.Info("server.stop", "reason", "context_done")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Error("server.shutdown.fail", "err", err)
			return err
		}
		return nil
	})

	err := eg.Wait()
	a.close()
	if err == nil {
		a.log.Info("server.stopped")
	}
	return err
}

// close releases the Redis client, the sql.DB view and the pool.
func (a *App) close() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.Error("redis.close.fail", "err", err)
		}
		a.rdb = nil
	}
	if a.sqlDB != nil {
		_ = a.sqlDB.Close()
		a.sqlDB = nil
	}
	if a.dbPool != nil {
		a.dbPool.Close()
		a.dbPool = nil
	}
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
