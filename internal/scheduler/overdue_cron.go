package scheduler

import (
	"context"
	"fmt"
	"time"

	"travel_leads_backend/platform/config"
	"travel_leads_backend/platform/logger"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

const overdueSweepLockKey = "leads:overdue-sweep:lock"

// SweepEnqueuer queues an overdue sweep.
type SweepEnqueuer interface {
	EnqueueOverdueSweep(ctx context.Context, requestedAt time.Time) error
}

// OverdueCron triggers the overdue sweep on a cron schedule. A Redis lock
// held for the configured TTL makes sure that only one of several scheduler
// replicas enqueues per tick.
type OverdueCron struct {
	cron     *cron.Cron
	redis    *redis.Client
	enqueuer SweepEnqueuer
	lockTTL  time.Duration
	log      *logger.Logger
	now      func() time.Time
}

func NewOverdueCron(cfg config.SweeperConfig, rdb *redis.Client, enqueuer SweepEnqueuer, log *logger.Logger) (*OverdueCron, error) {
	ttl := cfg.GetOverdueSweepLockTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("overdue sweep lock ttl must be positive")
	}

	oc := &OverdueCron{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		redis:    rdb,
		enqueuer: enqueuer,
		lockTTL:  ttl,
		log:      log,
		now:      time.Now,
	}

	if _, err := oc.cron.AddFunc(cfg.GetOverdueSweepSchedule(), oc.tick); err != nil {
		return nil, fmt.Errorf("overdue sweep schedule %q: %w", cfg.GetOverdueSweepSchedule(), err)
	}
	return oc, nil
}

// Run starts the schedule and blocks until ctx is done and the running tick, if any, has finished.
func (oc *OverdueCron) Run(ctx context.Context) {
	oc.cron.Start()
	oc.log.Info("overdue sweep cron started")
	<-ctx.Done()
	<-oc.cron.Stop().Done()
}

func (oc *OverdueCron) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := oc.Trigger(ctx); err != nil {
		oc.log.Error("overdue sweep trigger failed", "error", err)
	}
}

// Trigger enqueues a sweep unless another replica holds the lock. It reports
// whether this call enqueued.
func (oc *OverdueCron) Trigger(ctx context.Context) (bool, error) {
	now := oc.now().UTC()
	acquired, err := oc.redis.SetNX(ctx, overdueSweepLockKey, now.Format(time.RFC3339), oc.lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !acquired {
		oc.log.Debug("overdue sweep lock held elsewhere; skipping tick")
		return false, nil
	}

	if err := oc.enqueuer.EnqueueOverdueSweep(ctx, now); err != nil {
		// Free the slot so the next tick can retry.
		_ = oc.redis.Del(ctx, overdueSweepLockKey).Err()
		return false, err
	}
	oc.log.Info("overdue sweep enqueued", "requestedAt", now)
	return true, nil
}
