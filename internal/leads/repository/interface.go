package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// Tx is the write surface available inside a store transaction. Every
// mutating lead operation goes through exactly one Tx so the lead document,
// its child record and its timeline event commit or roll back together.
type Tx interface {
	// GetLead loads the lead and holds its row lock until the tx ends.
	GetLead(ctx context.Context, id uuid.UUID) (Lead, error)
	InsertLead(ctx context.Context, lead Lead) error
	// UpdateLead overwrites the mutable lead fields except LastRevision.
	UpdateLead(ctx context.Context, lead Lead) error
	// NextRevisionNumber atomically increments and returns the lead's
	// quotation revision counter.
	NextRevisionNumber(ctx context.Context, leadID uuid.UUID, at time.Time) (int, error)
	InsertQuotation(ctx context.Context, q Quotation) error
	InsertFollowUp(ctx context.Context, f FollowUp) error
	// InsertTimelineEvent appends an event and returns it with its sequence number.
	InsertTimelineEvent(ctx context.Context, e TimelineEvent) (TimelineEvent, error)
	// GetEngagement loads and locks an engagement.
	GetEngagement(ctx context.Context, id uuid.UUID) (Engagement, error)
	// LinkEngagement stores leadID on an unlinked engagement.
	LinkEngagement(ctx context.Context, engagementID, leadID uuid.UUID) error
}

// TxRunner runs fn in a transaction, committing only when fn returns nil.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetLead(ctx context.Context, id uuid.UUID) (Lead, error)
	ListLeads(ctx context.Context, params ListParams) ([]Lead, int, error)
}

// HistoryReader reads the append-only children of a lead.
type HistoryReader interface {
	ListTimeline(ctx context.Context, leadID uuid.UUID) ([]TimelineEvent, error)
	ListQuotations(ctx context.Context, leadID uuid.UUID) ([]Quotation, error)
	ListFollowUps(ctx context.Context, leadID uuid.UUID) ([]FollowUp, error)
}

// EngagementReader reads inbound engagement snapshots.
type EngagementReader interface {
	GetEngagement(ctx context.Context, id uuid.UUID) (Engagement, error)
}

// OverdueFlagger maintains the derived isOverdue flag.
type OverdueFlagger interface {
	FlagOverdue(ctx context.Context, now time.Time) (OverdueResult, error)
}

// Store is the full lead store implemented by Postgres and the in-memory store.
type Store interface {
	TxRunner
	LeadReader
	HistoryReader
	EngagementReader
	OverdueFlagger
}
