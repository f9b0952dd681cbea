package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"travel_leads_backend/internal/email"
	"travel_leads_backend/internal/events"
	"travel_leads_backend/internal/leads/overdue"
	leadrepo "travel_leads_backend/internal/leads/repository"
	"travel_leads_backend/internal/notification"
	"travel_leads_backend/internal/notification/outbox"
	"travel_leads_backend/internal/scheduler"
	"travel_leads_backend/internal/whatsapp"
	"travel_leads_backend/platform/config"
	"travel_leads_backend/platform/db"
	"travel_leads_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	if cfg.UsesMemoryStore() {
		panic("scheduler requires STORE_DRIVER=postgres")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg, log)
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

	eventBus := events.NewInMemoryBus(log)
	outboxRepo := outbox.New(pool)

	notificationModule := notification.New(email.NewSender(cfg, log), cfg, log)
	if whatsappClient := whatsapp.NewClient(cfg, log); whatsappClient.Enabled() {
		notificationModule.SetWhatsAppSender(whatsappClient)
	}
	notificationModule.SetNotificationOutbox(outboxRepo)
	notificationModule.RegisterHandlers(eventBus)

	sweeper := overdue.New(leadrepo.New(pool), eventBus, log)

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	rdb, err := scheduler.NewRedisClient(cfg)
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		panic("failed to initialize redis client: " + err.Error())
	}
	defer func() { _ = rdb.Close() }()

	overdueCron, err := scheduler.NewOverdueCron(cfg, rdb, client, log)
	if err != nil {
		log.Error("failed to initialize overdue cron", "error", err)
		panic("failed to initialize overdue cron: " + err.Error())
	}

	dispatcher, err := scheduler.NewNotificationOutboxDispatcher(cfg, outboxRepo, log)
	if err != nil {
		log.Error("failed to initialize outbox dispatcher", "error", err)
		panic("failed to initialize outbox dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()

	worker, err := scheduler.NewWorker(cfg, eventBus, sweeper, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dispatcher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		overdueCron.Run(gctx)
		return nil
	})
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})
	_ = g.Wait()

	eventBus.Wait()
	log.Info("scheduler stopped")
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
