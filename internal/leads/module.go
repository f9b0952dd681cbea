// Package leads provides the lead lifecycle bounded context module.
// This file wires the vertical slices and mounts their routes.
package leads

import (
	"travel_leads_backend/internal/events"
	apphttp "travel_leads_backend/internal/http"
	"travel_leads_backend/internal/leads/assignment"
	"travel_leads_backend/internal/leads/followups"
	"travel_leads_backend/internal/leads/handler"
	"travel_leads_backend/internal/leads/management"
	"travel_leads_backend/internal/leads/origination"
	"travel_leads_backend/internal/leads/overdue"
	"travel_leads_backend/internal/leads/quotations"
	"travel_leads_backend/internal/leads/remarks"
	"travel_leads_backend/internal/leads/repository"
	"travel_leads_backend/internal/leads/stages"
	"travel_leads_backend/internal/leads/timeline"
	"travel_leads_backend/platform/config"
	"travel_leads_backend/platform/logger"
	"travel_leads_backend/platform/validator"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler  *handler.Handler
	services handler.Services
}

// NewModule creates the leads module on top of a store. The store is either
// the Postgres repository or the in-memory store.
func NewModule(store repository.Store, eventBus events.Bus, val *validator.Validator, cfg config.LeadsConfig, log *logger.Logger) *Module {
	writer := timeline.NewWriter(timeline.WithDefaultCurrency(cfg.GetDefaultCurrency()))

	services := handler.Services{
		Management:  management.New(store),
		Origination: origination.New(store, eventBus, writer, origination.WithPhoneRegion(cfg.GetPhoneDefaultRegion())),
		Stages:      stages.New(store, eventBus, writer),
		Quotations:  quotations.New(store, eventBus, writer, cfg.GetDefaultCurrency()),
		FollowUps:   followups.New(store, eventBus, writer),
		Assignment:  assignment.New(store, eventBus, writer),
		Remarks:     remarks.New(store, writer),
		Overdue:     overdue.New(store, eventBus, log),
	}

	return &Module{
		handler:  handler.New(services, val),
		services: services,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Sweeper returns the overdue sweeper for the scheduler.
func (m *Module) Sweeper() *overdue.Sweeper {
	return m.services.Overdue
}

// Services exposes the slices for composition and tests.
func (m *Module) Services() handler.Services {
	return m.services
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/leads"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
