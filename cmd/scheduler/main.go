package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	auditrepo "leadpipe_backend/internal/audit/repository"
	auditservice "leadpipe_backend/internal/audit/service"
	"leadpipe_backend/internal/leads"
	"leadpipe_backend/internal/reporting"
	"leadpipe_backend/internal/scheduler"
	"leadpipe_backend/internal/stages"
	"leadpipe_backend/platform/config"
	"leadpipe_backend/platform/db"
	"leadpipe_backend/platform/logger"
	"leadpipe_backend/platform/redisx"
	"leadpipe_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	// Worker-side wiring: no HTTP routes are mounted.
	val := validator.New()
	stagesModule := stages.NewModule(pool, val, log)
	reportingModule := reporting.NewModule(rdb, stagesModule.Service(), log)
	leadsModule := leads.NewModule(pool, stagesModule.Service(), reportingModule.Store(), val, cfg, log)
	auditSvc := auditservice.New(auditrepo.New(pool), log)

	worker, err := scheduler.NewWorker(cfg, auditSvc, leadsModule.ManagementService(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
