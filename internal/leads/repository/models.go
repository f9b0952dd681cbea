package repository

import (
	"errors"
	"time"

	"travel_leads_backend/internal/leads/domain"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("lead not found")
	ErrEngagementNotFound = errors.New("engagement not found")
	ErrEngagementLinked   = errors.New("engagement already linked to a lead")
)

// Lead sources.
const (
	SourceManual     = "manual"
	SourceEngagement = "engagement"
)

// ActorRef is the snapshot of a user stored alongside a change.
type ActorRef struct {
	ID    *uuid.UUID `json:"id"`
	Email string     `json:"email"`
	Name  string     `json:"name"`
}

// StageHistoryEntry is one element of the lead's denormalized stage log.
type StageHistoryEntry struct {
	Stage     domain.Stage `json:"stage"`
	Remark    string       `json:"remark"`
	Tag       string       `json:"tag,omitempty"`
	ChangedAt time.Time    `json:"changedAt"`
	ChangedBy ActorRef     `json:"changedBy"`
}

// Lead is the aggregate root. LastRevision is owned by NextRevisionNumber
// and is never written by UpdateLead.
type Lead struct {
	ID              uuid.UUID
	LeadCode        string
	Stage           domain.Stage
	Status          domain.Status
	Source          string
	AgentID         string
	AgentName       string
	DestinationCode string
	DestinationName string
	SpocName        string
	SpocEmail       string
	SpocMobile      string
	AssignedToID    *uuid.UUID
	AssignedToName  string
	AssignedToEmail string
	AssignedByID    *uuid.UUID
	AssignedAt      *time.Time
	NextActionType  *string
	NextActionDueAt *time.Time
	IsOverdue       bool
	StageHistory    []StageHistoryEntry
	LastRevision    int
	EngagementID    *uuid.UUID
	CreatedByID     *uuid.UUID
	CreatedByName   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SetNextAction sets both next-action fields together and resets the
// overdue flag, which only the sweeper raises.
func (l *Lead) SetNextAction(actionType string, dueAt time.Time) {
	due := dueAt.UTC()
	l.NextActionType = &actionType
	l.NextActionDueAt = &due
	l.IsOverdue = false
}

// ClearNextAction nulls both next-action fields.
func (l *Lead) ClearNextAction() {
	l.NextActionType = nil
	l.NextActionDueAt = nil
	l.IsOverdue = false
}

// ApplyStage sets the stage and its derived status.
func (l *Lead) ApplyStage(stage domain.Stage) {
	l.Stage = stage
	l.Status = domain.StatusForStage(stage)
}

type TimelineEvent struct {
	ID             uuid.UUID
	LeadID         uuid.UUID
	Seq            int64
	EventType      string
	Title          string
	Description    string
	Metadata       map[string]any
	CreatedByID    *uuid.UUID
	CreatedByEmail string
	CreatedByName  string
	CreatedAt      time.Time
}

type Quotation struct {
	ID               uuid.UUID
	LeadID           uuid.UUID
	RevisionNumber   int
	ItineraryContent string
	TotalPrice       float64
	Currency         string
	Note             string
	SendVia          []string
	CreatedByID      *uuid.UUID
	CreatedByName    string
	CreatedAt        time.Time
}

type FollowUp struct {
	ID             uuid.UUID
	LeadID         uuid.UUID
	Channel        domain.Channel
	Outcome        string
	Summary        string
	NextFollowUpAt *time.Time
	CreatedByID    *uuid.UUID
	CreatedByName  string
	CreatedAt      time.Time
}

// Engagement is the inbound enquiry snapshot a lead can originate from.
type Engagement struct {
	ID              uuid.UUID
	AgentID         string
	AgentName       string
	DestinationCode string
	DestinationName string
	SpocName        string
	SpocEmail       string
	SpocMobile      string
	LeadID          *uuid.UUID
	CreatedAt       time.Time
}

// ListParams filters the lead list. Nil filters are ignored.
type ListParams struct {
	Stage        *domain.Stage
	Status       *domain.Status
	AssignedToID *uuid.UUID
	Overdue      *bool
	Search       string
	Offset       int
	Limit        int
}

// OverdueResult counts what a sweep changed.
type OverdueResult struct {
	Flagged int
	Cleared int
}
