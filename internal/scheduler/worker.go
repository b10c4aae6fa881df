package scheduler

import (
	"context"
	"fmt"

	"leadpipe_backend/internal/events"
	"leadpipe_backend/platform/config"
	"leadpipe_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, action events.ActionPerformed) error
}

// LeadRepairer rewrites the derived rows of one lead.
type LeadRepairer interface {
	Repair(ctx context.Context, organizationID, leadID uuid.UUID) error
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	audit  AuditRecorder
	leads  LeadRepairer
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, audit AuditRecorder, leads LeadRepairer, log *logger.Logger) (*Worker, error) {
	opt, err := redisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	return newWorker(server, audit, leads, log), nil
}

func newWorker(server *asynq.Server, audit AuditRecorder, leads LeadRepairer, log *logger.Logger) *Worker {
	w := &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
		audit:  audit,
		leads:  leads,
		log:    log,
	}
	w.mux.HandleFunc(TaskAuditRecord, w.handleAuditRecord)
	w.mux.HandleFunc(TaskLeadReindex, w.handleLeadReindex)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleAuditRecord(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseAuditRecordPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	action, err := payload.action()
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	return w.audit.Record(ctx, action)
}

func (w *Worker) handleLeadReindex(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadReindexPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	orgID, err := uuid.Parse(payload.OrganizationID)
	if err != nil {
		return fmt.Errorf("%w: organization id: %v", asynq.SkipRetry, err)
	}
	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return fmt.Errorf("%w: lead id: %v", asynq.SkipRetry, err)
	}

	if err := w.leads.Repair(ctx, orgID, leadID); err != nil {
		w.log.Warn("lead reindex failed", "lead_id", leadID.String(), "error", err)
		return err
	}
	return nil
}
