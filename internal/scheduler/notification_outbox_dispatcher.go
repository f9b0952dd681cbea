package scheduler

import (
	"context"
	"fmt"
	"time"

	"travel_leads_backend/internal/notification/outbox"
	"travel_leads_backend/platform/config"
	"travel_leads_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// OutboxClaimer hands pending outbox records to the dispatcher.
type OutboxClaimer interface {
	ClaimPending(ctx context.Context, limit int) ([]outbox.Record, error)
	MarkPending(ctx context.Context, id uuid.UUID, lastError *string) error
}

type NotificationOutboxDispatcher struct {
	client   Enqueuer
	closer   func() error
	queue    string
	repo     OutboxClaimer
	log      *logger.Logger
	interval time.Duration
	batch    int
}

func NewNotificationOutboxDispatcher(cfg config.SchedulerConfig, repo OutboxClaimer, log *logger.Logger) (*NotificationOutboxDispatcher, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	client := asynq.NewClient(opt)
	d := newNotificationOutboxDispatcher(client, queueName(cfg), repo, log)
	d.closer = client.Close
	return d, nil
}

func newNotificationOutboxDispatcher(client Enqueuer, queue string, repo OutboxClaimer, log *logger.Logger) *NotificationOutboxDispatcher {
	return &NotificationOutboxDispatcher{
		client:   client,
		queue:    queue,
		repo:     repo,
		log:      log,
		interval: 2 * time.Second,
		batch:    50,
	}
}

func (d *NotificationOutboxDispatcher) Close() error {
	if d == nil || d.closer == nil {
		return nil
	}
	return d.closer()
}

func (d *NotificationOutboxDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil || d.repo == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		d.dispatchOnce(ctx)
	}
}

// dispatchOnce claims one batch and enqueues a task per record. Records that
// cannot be enqueued go back to pending. It returns the number enqueued.
func (d *NotificationOutboxDispatcher) dispatchOnce(ctx context.Context) int {
	records, err := d.repo.ClaimPending(ctx, d.batch)
	if err != nil {
		d.log.Warn("outbox claim failed", "error", err)
		return 0
	}

	enqueued := 0
	for _, rec := range records {
		task, err := NewNotificationOutboxDueTask(NotificationOutboxDuePayload{
			OutboxID: rec.ID.String(),
			LeadID:   rec.LeadID.String(),
		})
		if err != nil {
			msg := err.Error()
			_ = d.repo.MarkPending(ctx, rec.ID, &msg)
			continue
		}

		_, err = d.client.EnqueueContext(ctx, task, asynq.ProcessAt(rec.RunAt), asynq.Queue(d.queue))
		if err != nil {
			msg := err.Error()
			_ = d.repo.MarkPending(ctx, rec.ID, &msg)
			d.log.Warn("outbox enqueue failed", "outboxId", rec.ID.String(), "error", err)
			continue
		}
		enqueued++
	}
	return enqueued
}
