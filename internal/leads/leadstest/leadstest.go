// Package leadstest holds fixtures shared by the lead service tests.
package leadstest

import (
	"context"
	"sync"
	"testing"
	"time"

	"travel_leads_backend/internal/events"
	"travel_leads_backend/internal/leads/domain"
	"travel_leads_backend/internal/leads/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// RecordingBus captures published events and runs subscribers inline.
type RecordingBus struct {
	mu       sync.Mutex
	events   []events.Event
	handlers map[string][]events.Handler
}

func NewRecordingBus() *RecordingBus {
	return &RecordingBus{handlers: make(map[string][]events.Handler)}
}

func (b *RecordingBus) Publish(ctx context.Context, event events.Event) {
	_ = b.PublishSync(ctx, event)
}

func (b *RecordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.mu.Lock()
	b.events = append(b.events, event)
	handlers := append([]events.Handler(nil), b.handlers[event.EventName()]...)
	b.mu.Unlock()

	var firstErr error
	for _, h := range handlers {
		if err := h.Handle(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (b *RecordingBus) Subscribe(eventName string, handler events.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Events returns the published events in order.
func (b *RecordingBus) Events() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]events.Event(nil), b.events...)
}

// Named returns the published events with the given name.
func (b *RecordingBus) Named(name string) []events.Event {
	var out []events.Event
	for _, e := range b.Events() {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

// Agent returns a non-admin sales user.
func Agent(name string) domain.Actor {
	return domain.Actor{ID: uuid.New(), Name: name, Email: name + "@travel.example", Role: "sales"}
}

// Admin returns an admin user.
func Admin() domain.Actor {
	return domain.Actor{ID: uuid.New(), Name: "Admin", Email: "admin@travel.example", Role: domain.RoleAdmin}
}

// SeedLead stores an open lead in stage new and returns it.
func SeedLead(t *testing.T, store *repository.MemoryStore, mutate func(*repository.Lead)) repository.Lead {
	t.Helper()
	now := time.Now().UTC()
	lead := repository.Lead{
		ID:              uuid.New(),
		LeadCode:        "LD-20240101-BALI-0001-ACME",
		Stage:           domain.StageNew,
		Status:          domain.StatusOpen,
		Source:          repository.SourceManual,
		AgentID:         "agent-1",
		AgentName:       "Acme Travels",
		DestinationCode: "BALI",
		DestinationName: "Bali",
		SpocName:        "Ravi",
		SpocEmail:       "ravi@acme.example",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if mutate != nil {
		mutate(&lead)
	}
	require.NoError(t, store.WithinTx(context.Background(), func(tx repository.Tx) error {
		return tx.InsertLead(context.Background(), lead)
	}))
	return lead
}
