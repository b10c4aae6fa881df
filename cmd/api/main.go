package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadpipe_backend/internal/activities"
	"leadpipe_backend/internal/adapters"
	"leadpipe_backend/internal/audit"
	"leadpipe_backend/internal/auth"
	"leadpipe_backend/internal/customfields"
	"leadpipe_backend/internal/events"
	apphttp "leadpipe_backend/internal/http"
	"leadpipe_backend/internal/http/router"
	"leadpipe_backend/internal/leads"
	"leadpipe_backend/internal/reporting"
	"leadpipe_backend/internal/scheduler"
	"leadpipe_backend/internal/stages"
	"leadpipe_backend/platform/config"
	"leadpipe_backend/platform/db"
	"leadpipe_backend/platform/logger"
	"leadpipe_backend/platform/redisx"
	"leadpipe_backend/platform/validator"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	if dsn := cfg.GetSentryDSN(); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, Environment: cfg.GetEnv()}); err != nil {
			log.Warn("sentry disabled", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if err := db.RunMigrations(ctx, pool); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var rdb *redis.Client
	if err := withRetry(ctx, log, "redis connection", 5, 2*time.Second, func() error {
		c, err := redisx.NewClient(ctx, cfg)
		if err != nil {
			return err
		}
		rdb = c
		return nil
	}); err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	defer func() { _ = rdb.Close() }()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	stagesModule := stages.NewModule(pool, val, log)
	reportingModule := reporting.NewModule(rdb, stagesModule.Service(), log)
	leadsModule := leads.NewModule(pool, stagesModule.Service(), reportingModule.Store(), val, cfg, log)

	// Stage deletion asks the leads primary table whether the stage is in use.
	stagesModule.Service().SetLeadUsageChecker(adapters.NewStageUsage(leadsModule.Repository()))

	activitiesModule := activities.NewModule(pool, leadsModule.ManagementService(), val, log)
	customFieldsModule := customfields.NewModule(pool, leadsModule.ManagementService(), val, log)
	authModule := auth.NewModule(pool, cfg, eventBus, val, log)

	auditModule := audit.NewModule(pool, eventBus, val, log)
	auditModule.RegisterHandlers(eventBus)
	if cfg.IsSchedulerEnabled() {
		client, err := scheduler.NewClient(cfg)
		if err != nil {
			log.Warn("scheduler client unavailable; audit entries are written inline", "error", err)
		} else {
			defer func() { _ = client.Close() }()
			auditModule.SetQueue(client)
		}
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: map[string]apphttp.HealthChecker{
			"postgres": db.NewPoolAdapter(pool),
			"redis":    redisx.NewHealthCheck(rdb),
		},
		AuditMiddleware: auditModule.Middleware(),
		Modules: []apphttp.Module{
			authModule,
			stagesModule,
			leadsModule,
			activitiesModule,
			customFieldsModule,
			reportingModule,
			auditModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
