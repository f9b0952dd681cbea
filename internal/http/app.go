// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"context"

	"travel_leads_backend/internal/events"
	"travel_leads_backend/platform/config"
	"travel_leads_backend/platform/logger"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App holds the fully initialized application dependencies.
// It is populated by cmd/api and passed to the router.
type App struct {
	Config RouterConfig
	Logger *logger.Logger
	// Health is nil when the process runs on the in-memory store.
	Health   HealthChecker
	EventBus events.Bus
	Modules  []Module
}
