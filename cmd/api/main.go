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

	"travel_leads_backend/internal/email"
	"travel_leads_backend/internal/events"
	apphttp "travel_leads_backend/internal/http"
	"travel_leads_backend/internal/http/router"
	"travel_leads_backend/internal/leads"
	"travel_leads_backend/internal/leads/repository"
	"travel_leads_backend/internal/notification"
	"travel_leads_backend/internal/notification/outbox"
	"travel_leads_backend/internal/whatsapp"
	"travel_leads_backend/migrations"
	"travel_leads_backend/platform/config"
	"travel_leads_backend/platform/db"
	"travel_leads_backend/platform/logger"
	"travel_leads_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr, "store", cfg.StoreDriver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var (
		store  repository.Store
		pool   *pgxpool.Pool
		health apphttp.HealthChecker
	)
	if cfg.UsesMemoryStore() {
		log.Warn("running on the in-memory store; data is lost on restart")
		store = repository.NewMemoryStore()
	} else {
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
		log.Info("database connection established")

		if cfg.GetMigrationsEnabled() {
			if err := db.RunMigrations(ctx, pool, migrations.FS); err != nil {
				log.Error("failed to run database migrations", "error", err)
				panic("failed to run database migrations: " + err.Error())
			}
			log.Info("database migrations complete")
		}

		store = repository.New(pool)
		health = db.PoolAdapter{Pool: pool}
	}

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(email.NewSender(cfg, log), cfg, log)
	if whatsappClient := whatsapp.NewClient(cfg, log); whatsappClient.Enabled() {
		notificationModule.SetWhatsAppSender(whatsappClient)
	}
	if pool != nil {
		// The scheduler drains the outbox; this process only writes to it.
		notificationModule.SetNotificationOutbox(outbox.New(pool))
	}
	notificationModule.RegisterHandlers(eventBus)

	leadsModule := leads.NewModule(store, eventBus, val, cfg, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   health,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
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
			log.Error("graceful shutdown failed", "error", err)
		}
		// Let in-flight notification handlers finish.
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
