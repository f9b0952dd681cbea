// Package timeline is the lead audit log writer. It only appends: events are
// never read back, updated or deleted here, and ordering across a lead's
// history is the caller's responsibility (each caller writes inside the
// same transaction as the state change it records).
package timeline

import (
	"context"
	"strings"
	"time"

	"travel_leads_backend/internal/leads/domain"
	"travel_leads_backend/internal/leads/repository"
	"travel_leads_backend/platform/apperr"

	"github.com/google/uuid"
)

// Appender is the transactional write needed by the writer.
type Appender interface {
	InsertTimelineEvent(ctx context.Context, e repository.TimelineEvent) (repository.TimelineEvent, error)
}

// Entry is one event to append.
type Entry struct {
	LeadID      uuid.UUID
	Title       string
	Description string
	Payload     Payload
}

// Writer stamps and normalizes timeline events.
type Writer struct {
	now             func() time.Time
	defaultCurrency string
}

// Option configures a Writer.
type Option func(*Writer)

// WithClock overrides the server clock used for createdAt.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

// WithDefaultCurrency overrides the currency applied to metadata without one.
func WithDefaultCurrency(currency string) Option {
	return func(w *Writer) {
		if c := strings.ToUpper(strings.TrimSpace(currency)); c != "" {
			w.defaultCurrency = c
		}
	}
}

func NewWriter(opts ...Option) *Writer {
	w := &Writer{now: time.Now, defaultCurrency: DefaultCurrency}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Now exposes the writer clock so callers stamp state changes with the same time source.
func (w *Writer) Now() time.Time {
	return w.now().UTC()
}

// Record validates a typed payload and appends it.
func (w *Writer) Record(ctx context.Context, tx Appender, entry Entry, actor domain.Actor) (repository.TimelineEvent, error) {
	if entry.Payload == nil {
		return repository.TimelineEvent{}, apperr.Validation("timeline payload is required")
	}
	if err := entry.Payload.Validate(); err != nil {
		return repository.TimelineEvent{}, err
	}
	return w.RecordRaw(ctx, tx, entry.LeadID, entry.Payload.EventType(), entry.Title, entry.Description, entry.Payload.Fields(), actor)
}

// RecordRaw appends an event from an untyped metadata map. The map is
// normalized onto the fixed key set first.
func (w *Writer) RecordRaw(ctx context.Context, tx Appender, leadID uuid.UUID, eventType, title, description string, raw map[string]any, actor domain.Actor) (repository.TimelineEvent, error) {
	if leadID == uuid.Nil {
		return repository.TimelineEvent{}, apperr.Validation("lead id is required")
	}
	if _, ok := knownEventTypes[eventType]; !ok {
		return repository.TimelineEvent{}, apperr.Validation("unknown timeline event type: " + eventType)
	}

	event := repository.TimelineEvent{
		ID:          uuid.New(),
		LeadID:      leadID,
		EventType:   eventType,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Metadata:    NormalizeMetadata(raw, w.defaultCurrency),
		CreatedAt:   w.Now(),
	}
	stampActor(&event, actor)

	return tx.InsertTimelineEvent(ctx, event)
}

func stampActor(event *repository.TimelineEvent, actor domain.Actor) {
	if actor.IsSystem() {
		event.CreatedByName = domain.SystemActorName
		return
	}
	id := actor.ID
	event.CreatedByID = &id
	event.CreatedByEmail = strings.TrimSpace(actor.Email)
	event.CreatedByName = actor.DisplayName()
}

// ActorRef converts an actor into the snapshot stored on lead documents.
func ActorRef(actor domain.Actor) repository.ActorRef {
	if actor.IsSystem() {
		return repository.ActorRef{Name: domain.SystemActorName}
	}
	id := actor.ID
	return repository.ActorRef{ID: &id, Email: strings.TrimSpace(actor.Email), Name: actor.DisplayName()}
}
