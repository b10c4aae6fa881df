package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadpipe_backend/internal/leads"
	"leadpipe_backend/internal/reporting"
	"leadpipe_backend/internal/scheduler"
	"leadpipe_backend/internal/stages"
	"leadpipe_backend/platform/config"
	"leadpipe_backend/platform/db"
	"leadpipe_backend/platform/logger"
	"leadpipe_backend/platform/redisx"
	"leadpipe_backend/platform/validator"

	"github.com/google/uuid"
	flag "github.com/spf13/pflag"
)

type options struct {
	orgs      []uuid.UUID
	batchSize int
	delay     time.Duration
	enqueue   bool
	dryRun    bool
}

// leadPager pages the ids of an organization's leads.
type leadPager interface {
	ListIDs(ctx context.Context, organizationID uuid.UUID, limit int, state string) ([]uuid.UUID, string, error)
}

// repairFunc re-inserts (or queues re-insertion of) one lead's derived rows.
type repairFunc func(ctx context.Context, organizationID, leadID uuid.UUID) error

type stats struct {
	processed int
	failed    int
}

func parseOptions(args []string) (options, error) {
	flagSet := flag.NewFlagSet("lead-reindex-backfill", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	orgs := flagSet.StringSlice("org", nil, "Organization id to backfill (repeatable)")
	batchSize := flagSet.Int("batch-size", 100, "Leads fetched per page")
	delay := flagSet.Duration("delay", 0, "Pause between pages")
	enqueue := flagSet.Bool("enqueue", false, "Queue leads.reindex tasks instead of repairing inline")
	dryRun := flagSet.Bool("dry-run", false, "List leads without writing")

	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}
	if len(*orgs) == 0 {
		return options{}, errors.New("at least one --org is required")
	}
	if *batchSize < 1 {
		return options{}, errors.New("--batch-size must be positive")
	}

	opts := options{batchSize: *batchSize, delay: *delay, enqueue: *enqueue, dryRun: *dryRun}
	for _, raw := range *orgs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return options{}, fmt.Errorf("invalid --org %q: %w", raw, err)
		}
		opts.orgs = append(opts.orgs, id)
	}
	return opts, nil
}

// backfill walks every lead of the organization. Per-lead failures are
// counted and logged; only listing failures stop the walk.
func backfill(ctx context.Context, pager leadPager, repair repairFunc, org uuid.UUID, opts options, log *logger.Logger) (stats, error) {
	var s stats
	state := ""
	for {
		ids, next, err := pager.ListIDs(ctx, org, opts.batchSize, state)
		if err != nil {
			return s, fmt.Errorf("list leads: %w", err)
		}

		for _, id := range ids {
			s.processed++
			if opts.dryRun {
				log.Info("would reindex lead", "organization_id", org.String(), "lead_id", id.String())
				continue
			}
			if err := repair(ctx, org, id); err != nil {
				s.failed++
				log.Warn("lead reindex failed", "organization_id", org.String(), "lead_id", id.String(), "error", err)
			}
		}

		if next == "" {
			return s, nil
		}
		state = next

		if opts.delay > 0 {
			select {
			case <-ctx.Done():
				return s, ctx.Err()
			case <-time.After(opts.delay):
			}
		}
	}
}

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "lead-reindex-backfill:", err)
		os.Exit(2)
	}
	if code := run(opts); code != 0 {
		os.Exit(code)
	}
}

func run(opts options) int {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting lead reindex backfill", "organizations", len(opts.orgs), "enqueue", opts.enqueue, "dry_run", opts.dryRun)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	rdb, err := redisx.NewClient(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	defer func() { _ = rdb.Close() }()

	val := validator.New()
	stagesModule := stages.NewModule(pool, val, log)
	reportingModule := reporting.NewModule(rdb, stagesModule.Service(), log)
	leadsModule := leads.NewModule(pool, stagesModule.Service(), reportingModule.Store(), val, cfg, log)
	mgmt := leadsModule.ManagementService()

	repair := repairFunc(mgmt.Repair)
	if opts.enqueue {
		client, err := scheduler.NewClient(cfg)
		if err != nil {
			log.Error("failed to initialize scheduler client", "error", err)
			panic("failed to initialize scheduler client: " + err.Error())
		}
		defer func() { _ = client.Close() }()
		repair = client.EnqueueLeadReindex
	}

	exitCode := 0
	for _, org := range opts.orgs {
		s, err := backfill(ctx, mgmt, repair, org, opts, log)
		log.Info("organization backfilled", "organization_id", org.String(), "processed", s.processed, "failed", s.failed)
		if err != nil {
			log.Error("backfill stopped", "organization_id", org.String(), "error", err)
			exitCode = 1
			break
		}
		if s.failed > 0 {
			exitCode = 1
		}
	}
	return exitCode
}
