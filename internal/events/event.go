// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"travel_leads_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewBaseEventAt = events.NewBaseEventAt
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Leads Domain Events
// =============================================================================
//
// Every lead event is published after the transaction that produced it has
// committed. Subscribers must not assume they run before the HTTP response.

// Contact is a notification recipient snapshot.
type Contact struct {
	UserID *uuid.UUID `json:"userId,omitempty"`
	Name   string     `json:"name"`
	Email  string     `json:"email"`
	Mobile string     `json:"mobile"`
}

// LeadCreated is published when a lead is originated manually or from an engagement.
type LeadCreated struct {
	BaseEvent
	LeadID          uuid.UUID  `json:"leadId"`
	LeadCode        string     `json:"leadCode"`
	Source          string     `json:"source"`
	DestinationName string     `json:"destinationName"`
	AgentName       string     `json:"agentName"`
	Spoc            Contact    `json:"spoc"`
	AssignedToID    *uuid.UUID `json:"assignedToId,omitempty"`
	CreatedByName   string     `json:"createdByName"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadAssigned is published when ownership changes. Recipients holds the new
// owner and, when different, the previous owner.
type LeadAssigned struct {
	BaseEvent
	LeadID         uuid.UUID  `json:"leadId"`
	LeadCode       string     `json:"leadCode"`
	PreviousID     *uuid.UUID `json:"previousId,omitempty"`
	PreviousName   string     `json:"previousName"`
	NewOwnerID     uuid.UUID  `json:"newOwnerId"`
	NewOwnerName   string     `json:"newOwnerName"`
	AssignedByName string     `json:"assignedByName"`
	Spoc           Contact    `json:"spoc"`
	Recipients     []Contact  `json:"recipients"`
}

func (e LeadAssigned) EventName() string { return "leads.lead.assigned" }

// LeadStageChanged is published for manual transitions and reopens.
type LeadStageChanged struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	FromStage string    `json:"fromStage"`
	ToStage   string    `json:"toStage"`
	Remark    string    `json:"remark"`
	Reopened  bool      `json:"reopened"`
}

func (e LeadStageChanged) EventName() string { return "leads.lead.stage_changed" }

// QuotationRevised is published after a quotation revision is stored. It
// drives outbound delivery over the requested channels.
type QuotationRevised struct {
	BaseEvent
	LeadID           uuid.UUID `json:"leadId"`
	LeadCode         string    `json:"leadCode"`
	QuotationID      uuid.UUID `json:"quotationId"`
	RevisionNumber   int       `json:"revisionNumber"`
	TotalPrice       float64   `json:"totalPrice"`
	Currency         string    `json:"currency"`
	ItineraryContent string    `json:"itineraryContent"`
	Note             string    `json:"note"`
	SendVia          []string  `json:"sendVia"`
	DestinationName  string    `json:"destinationName"`
	Spoc             Contact   `json:"spoc"`
	SentByName       string    `json:"sentByName"`
}

func (e QuotationRevised) EventName() string { return "leads.quotation.revised" }

// FollowUpLogged is published after a follow-up is recorded.
type FollowUpLogged struct {
	BaseEvent
	LeadID         uuid.UUID  `json:"leadId"`
	Channel        string     `json:"channel"`
	Outcome        string     `json:"outcome"`
	Stage          string     `json:"stage"`
	NextFollowUpAt *time.Time `json:"nextFollowUpAt,omitempty"`
}

func (e FollowUpLogged) EventName() string { return "leads.follow_up.logged" }

// LeadsFlaggedOverdue is published by the sweeper when it changed flags.
type LeadsFlaggedOverdue struct {
	BaseEvent
	Flagged int `json:"flagged"`
	Cleared int `json:"cleared"`
}

func (e LeadsFlaggedOverdue) EventName() string { return "leads.overdue.swept" }

// =============================================================================
// Notification Events
// =============================================================================

// NotificationOutboxDue is published by the scheduler when a notification outbox
// record should be processed.
type NotificationOutboxDue struct {
	BaseEvent
	OutboxID uuid.UUID `json:"outboxId"`
	LeadID   uuid.UUID `json:"leadId"`
}

func (e NotificationOutboxDue) EventName() string { return "notification.outbox.due" }
