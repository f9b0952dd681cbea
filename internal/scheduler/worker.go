package scheduler

import (
	"context"
	"fmt"
	"time"

	"travel_leads_backend/internal/events"
	"travel_leads_backend/internal/leads/repository"
	"travel_leads_backend/platform/config"
	"travel_leads_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// OverdueSweeper runs one overdue sweep.
type OverdueSweeper interface {
	Sweep(ctx context.Context, now time.Time) (repository.OverdueResult, error)
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	bus     events.Bus
	sweeper OverdueSweeper
	log     *logger.Logger
	now     func() time.Time
}

func NewWorker(cfg config.SchedulerConfig, bus events.Bus, sweeper OverdueSweeper, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(bus, sweeper, log)
	w.server = server
	return w, nil
}

func newWorker(bus events.Bus, sweeper OverdueSweeper, log *logger.Logger) *Worker {
	w := &Worker{
		mux:     asynq.NewServeMux(),
		bus:     bus,
		sweeper: sweeper,
		log:     log,
		now:     time.Now,
	}
	w.mux.HandleFunc(TaskNotificationOutboxDue, w.handleNotificationOutboxDue)
	w.mux.HandleFunc(TaskOverdueSweep, w.handleOverdueSweep)
	return w
}

func (w *Worker) handleNotificationOutboxDue(ctx context.Context, task *asynq.Task) error {
	if w.bus == nil {
		return nil
	}

	payload, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return fmt.Errorf("outbox id: %v: %w", err, asynq.SkipRetry)
	}

	// The lead id is informational; records written before it was carried
	// still deliver.
	leadID, _ := uuid.Parse(payload.LeadID)

	return w.bus.PublishSync(ctx, events.NotificationOutboxDue{
		BaseEvent: events.NewBaseEvent(),
		OutboxID:  outboxID,
		LeadID:    leadID,
	})
}

func (w *Worker) handleOverdueSweep(ctx context.Context, task *asynq.Task) error {
	if w.sweeper == nil {
		return nil
	}

	payload, err := ParseOverdueSweepPayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	result, err := w.sweeper.Sweep(ctx, w.now())
	if err != nil {
		w.log.Error("overdue sweep failed", "requestedAt", payload.RequestedAt, "error", err)
		return err
	}
	w.log.Debug("overdue sweep task done", "flagged", result.Flagged, "cleared", result.Cleared)
	return nil
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
