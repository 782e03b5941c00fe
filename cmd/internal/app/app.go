// Package app wires the blog server runtime: config, logging, stores, the
// session issuer and HTTP routes.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/munni1406/Blog-Template/cmd/identity"
	authapi "github.com/munni1406/Blog-Template/cmd/internal/auth/api"
	"github.com/munni1406/Blog-Template/cmd/internal/auth/session"
	"github.com/munni1406/Blog-Template/cmd/internal/posts"
	"github.com/munni1406/Blog-Template/cmd/security/password"
)

// App is the blog server runtime: it owns the HTTP server and every
// long-lived resource (pgx pool, Redis client, metrics registry).
type App struct {
	cfg Config
	log Logger

	dbPool *pgxpool.Pool
	redis  *redis.Client

	metrics *Metrics
	creds   *identity.Service
	issuer  session.Issuer
	sweeper session.Sweeper

	auth  *authapi.Handler
	posts *posts.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (_ *App, err error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	a := &App{cfg: cfg, log: log, metrics: NewMetrics()}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	if cfg.DatabaseURL != "" {
		a.dbPool, err = NewDBPool(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("db: %w", err)
		}
		log.Info("db.enabled.postgres_store", "schema", cfg.DBSchema)
	} else {
		log.Info("db.disabled.inmemory_store")
	}

	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}

	users, postStore, err := a.newStores()
	if err != nil {
		return nil, err
	}
	a.creds = identity.NewService(users, pwCfg)

	scfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	if err := ResolveSecrets(cfg, &scfg, log); err != nil {
		return nil, err
	}

	sessions, err := a.newSessionStore(ctx, scfg)
	if err != nil {
		return nil, err
	}
	a.issuer, err = session.NewIssuer(scfg, sessions)
	if err != nil {
		return nil, err
	}
	if scfg.Strategy == session.StrategySession {
		a.sweeper, _ = sessions.(session.Sweeper)
	}
	log.Info("auth.strategy", "strategy", scfg.Strategy, "store", storeName(scfg, sessions))

	authCfg := authapi.LoadConfigFromEnv()
	authCfg.CookieSecure = authCfg.CookieSecure || cfg.Production
	authCfg.AdminUsername = cfg.AdminUsername
	a.auth, err = authapi.NewHandler(log, authCfg, a.creds, a.issuer,
		authapi.WithMetrics(authapi.NewMetrics(a.metrics.Registerer())))
	if err != nil {
		return nil, err
	}
	a.posts = posts.NewHandler(log, postStore, authCfg.MaxBodyBytes)

	if err := a.seedAdmin(ctx); err != nil {
		return nil, err
	}

	return a, nil
}

// Handler returns the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	registerHTTP(mux, a)

	// Metrics sits directly on the mux so it sees the matched pattern.
	return WithRequestLogging(WithSecurityHeaders(a.metrics.Middleware(mux)), a.log)
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbPool != nil, "static_dir", a.cfg.StaticDir)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go a.sweepSessions(sweepCtx)

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.log.Info("server.stopped")
	return nil
}

func (a *App) newStores() (identity.Store, posts.Store, error) {
	if a.dbPool == nil {
		return identity.NewMemoryStore(), posts.NewMemoryStore(), nil
	}

	users, err := identity.NewPostgresStore(a.dbPool, identity.WithSchema(a.cfg.DBSchema))
	if err != nil {
		return nil, nil, err
	}
	postStore, err := posts.NewPostgresStore(a.dbPool, a.cfg.DBSchema)
	if err != nil {
		return nil, nil, err
	}
	return users, postStore, nil
}

// newSessionStore picks the server-session backend. An unset kind follows the
// database: Postgres when configured, memory otherwise.
func (a *App) newSessionStore(ctx context.Context, scfg session.Config) (session.Store, error) {
	if scfg.Strategy != session.StrategySession {
		return nil, nil
	}

	kind := scfg.Store
	if kind == "" {
		kind = session.StoreMemory
		if a.dbPool != nil {
			kind = session.StorePostgres
		}
	}

	switch kind {
	case session.StoreMemory:
		return session.NewMemoryStore(), nil
	case session.StorePostgres:
		if a.dbPool == nil {
			return nil, fmt.Errorf("%w: BLOG_SESSION_STORE=postgres requires BLOG_DATABASE_URL", session.ErrConfig)
		}
		return session.NewPostgresStore(a.dbPool, a.cfg.DBSchema)
	case session.StoreRedis:
		client, err := session.OpenRedis(ctx, scfg)
		if err != nil {
			return nil, err
		}
		a.redis = client
		return session.NewRedisStore(client, scfg.RedisPrefix), nil
	default:
		return nil, session.ErrConfig
	}
}

// seedAdmin creates or resets the configured admin account. Nothing is seeded
// unless both username and password are set.
func (a *App) seedAdmin(ctx context.Context) error {
	if a.cfg.AdminUsername == "" || a.cfg.AdminPassword == "" {
		return nil
	}
	u, created, err := a.creds.Upsert(ctx, a.cfg.AdminUsername, a.cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	a.log.Info("auth.admin.seeded", "user_id", u.ID, "username", u.Username, "created", created)
	return nil
}

// sweepSessions periodically deletes expired server sessions until ctx ends.
func (a *App) sweepSessions(ctx context.Context) {
	if a.sweeper == nil || a.cfg.SessionSweepInterval <= 0 {
		return
	}

	t := time.NewTicker(a.cfg.SessionSweepInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := a.sweeper.DeleteExpired(ctx, now.UTC())
			if err != nil {
				a.log.Warn("auth.session.sweep.fail", "err", err)
				continue
			}
			if n > 0 {
				a.log.Info("auth.session.swept", "deleted", n)
			}
		}
	}
}

func (a *App) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("redis.close.fail", "err", err)
		}
		a.redis = nil
	}
	if a.dbPool != nil {
		a.dbPool.Close()
		a.dbPool = nil
	}
}

func storeName(scfg session.Config, st session.Store) string {
	switch st.(type) {
	case nil:
		return "none"
	case *session.MemoryStore:
		return string(session.StoreMemory)
	case *session.PostgresStore:
		return string(session.StorePostgres)
	case *session.RedisStore:
		return string(session.StoreRedis)
	default:
		return string(scfg.Store)
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
