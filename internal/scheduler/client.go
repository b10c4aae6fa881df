package scheduler

import (
	"context"
	"time"

	"leadpipe_backend/internal/events"
	"leadpipe_backend/platform/config"
	"leadpipe_backend/platform/redisx"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	auditMaxRetry   = 5
	reindexMaxRetry = 10
	reindexTimeout  = 30 * time.Second
)

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	opt, err := redisClientOpt(cfg)
	if err != nil {
		return nil, err
	}
	return newClient(asynq.NewClient(opt), cfg.GetAsynqQueueName()), nil
}

func newClient(client *asynq.Client, queue string) *Client {
	if queue == "" {
		queue = "default"
	}
	return &Client{client: client, queue: queue}
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueAuditRecord queues an audit entry for the worker to persist.
func (c *Client) EnqueueAuditRecord(ctx context.Context, action events.ActionPerformed) error {
	task, err := NewAuditRecordTask(auditPayloadFrom(action))
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(auditMaxRetry))
	return err
}

// EnqueueLeadReindex queues a repair of one lead's index and reporting rows.
func (c *Client) EnqueueLeadReindex(ctx context.Context, organizationID, leadID uuid.UUID) error {
	task, err := NewLeadReindexTask(LeadReindexPayload{
		OrganizationID: organizationID.String(),
		LeadID:         leadID.String(),
	})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(reindexMaxRetry),
		asynq.Timeout(reindexTimeout),
	)
	return err
}

func redisClientOpt(cfg config.RedisConfig) (asynq.RedisClientOpt, error) {
	opt, err := redisx.ParseOptions(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
