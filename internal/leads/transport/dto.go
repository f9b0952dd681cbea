package transport

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type AgentRequest struct {
	ID   string `json:"id" validate:"omitempty,max=64"`
	Name string `json:"name" validate:"omitempty,max=200"`
}

type SpocRequest struct {
	Name   string `json:"name" validate:"omitempty,max=200"`
	Email  string `json:"email" validate:"omitempty,email,max=254"`
	Mobile string `json:"mobile" validate:"omitempty,min=5,max=20"`
}

type DestinationRequest struct {
	Code string `json:"code" validate:"required,min=1,max=20"`
	Name string `json:"name" validate:"required,min=1,max=200"`
}

// AssigneeRequest names the initial or new owner of a lead.
type AssigneeRequest struct {
	ID    uuid.UUID `json:"id" validate:"required"`
	Name  string    `json:"name" validate:"required,min=1,max=200"`
	Email string    `json:"email" validate:"omitempty,email,max=254"`
}

type CreateLeadRequest struct {
	Agent       AgentRequest       `json:"agent"`
	Spoc        SpocRequest        `json:"spoc"`
	Destination DestinationRequest `json:"destination" validate:"required"`
	Assignee    *AssigneeRequest   `json:"assignee,omitempty" validate:"omitempty"`
}

type CreateFromEngagementRequest struct {
	Assignee *AssigneeRequest `json:"assignee,omitempty" validate:"omitempty"`
}

type TransitionRequest struct {
	Stage  string `json:"stage" validate:"required,oneof=new follow_up quoted closed_won closed_lost"`
	Remark string `json:"remark" validate:"max=2000"`
}

type ReopenRequest struct {
	Reason string `json:"reason" validate:"max=2000"`
}

type AddRemarkRequest struct {
	Remark string `json:"remark" validate:"required,min=1,max=2000"`
}

type CreateQuotationRequest struct {
	ItineraryContent string   `json:"itineraryContent" validate:"required,min=1"`
	TotalPrice       float64  `json:"totalPrice" validate:"required,gt=0"`
	Currency         string   `json:"currency" validate:"omitempty,len=3,alpha"`
	Note             string   `json:"note" validate:"max=2000"`
	SendVia          []string `json:"sendVia" validate:"omitempty,max=2,dive,oneof=email whatsapp"`
}

type LogFollowUpRequest struct {
	Channel        string     `json:"channel" validate:"required,oneof=call whatsapp meeting email"`
	Outcome        string     `json:"outcome" validate:"max=50"`
	Summary        string     `json:"summary" validate:"max=2000"`
	NextFollowUpAt *time.Time `json:"nextFollowUpAt,omitempty"`
}

type AssignLeadRequest struct {
	Assignee AssigneeRequest `json:"assignee" validate:"required"`
}

type ListLeadsRequest struct {
	Stage      string `form:"stage" validate:"omitempty,oneof=new follow_up quoted closed_won closed_lost"`
	Status     string `form:"status" validate:"omitempty,oneof=open closed"`
	AssignedTo string `form:"assignedTo" validate:"omitempty,uuid"`
	Overdue    *bool  `form:"overdue"`
	Search     string `form:"search" validate:"max=100"`
	Page       int    `form:"page" validate:"omitempty,min=1,max=100000"`
	PageSize   int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// Response DTOs

type ActorResponse struct {
	ID    *uuid.UUID `json:"id"`
	Email string     `json:"email,omitempty"`
	Name  string     `json:"name"`
}

type StageHistoryResponse struct {
	Stage     string        `json:"stage"`
	Remark    string        `json:"remark"`
	Tag       string        `json:"tag,omitempty"`
	ChangedAt time.Time     `json:"changedAt"`
	ChangedBy ActorResponse `json:"changedBy"`
}

type ContactResponse struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Mobile string `json:"mobile"`
}

type LeadResponse struct {
	ID              uuid.UUID              `json:"id"`
	LeadCode        string                 `json:"leadCode"`
	Stage           string                 `json:"stage"`
	Status          string                 `json:"status"`
	Source          string                 `json:"source"`
	AgentID         string                 `json:"agentId"`
	AgentName       string                 `json:"agentName"`
	DestinationCode string                 `json:"destinationCode"`
	DestinationName string                 `json:"destinationName"`
	Spoc            ContactResponse        `json:"spoc"`
	AssignedToID    *uuid.UUID             `json:"assignedToId"`
	AssignedToName  string                 `json:"assignedToName"`
	AssignedByID    *uuid.UUID             `json:"assignedById"`
	AssignedAt      *time.Time             `json:"assignedAt"`
	NextActionType  *string                `json:"nextActionType"`
	NextActionDueAt *time.Time             `json:"nextActionDueAt"`
	IsOverdue       bool                   `json:"isOverdue"`
	StageHistory    []StageHistoryResponse `json:"stageHistory"`
	LastRevision    int                    `json:"lastRevision"`
	EngagementID    *uuid.UUID             `json:"engagementId,omitempty"`
	CreatedByName   string                 `json:"createdByName"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

type TimelineEventResponse struct {
	ID          uuid.UUID      `json:"id"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata"`
	CreatedBy   ActorResponse  `json:"createdBy"`
	CreatedAt   time.Time      `json:"createdAt"`
}

type QuotationResponse struct {
	ID               uuid.UUID `json:"id"`
	LeadID           uuid.UUID `json:"leadId"`
	RevisionNumber   int       `json:"revisionNumber"`
	ItineraryContent string    `json:"itineraryContent"`
	TotalPrice       float64   `json:"totalPrice"`
	Currency         string    `json:"currency"`
	Note             string    `json:"note"`
	SendVia          []string  `json:"sendVia"`
	CreatedByName    string    `json:"createdByName"`
	CreatedAt        time.Time `json:"createdAt"`
}

type FollowUpResponse struct {
	ID             uuid.UUID  `json:"id"`
	LeadID         uuid.UUID  `json:"leadId"`
	Channel        string     `json:"channel"`
	Outcome        string     `json:"outcome"`
	Summary        string     `json:"summary"`
	NextFollowUpAt *time.Time `json:"nextFollowUpAt"`
	CreatedByName  string     `json:"createdByName"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// LogFollowUpResponse returns the follow-up and the lead it changed.
type LogFollowUpResponse struct {
	FollowUp FollowUpResponse `json:"followUp"`
	Lead     LeadResponse     `json:"lead"`
}

type OverdueSweepResponse struct {
	Flagged int `json:"flagged"`
	Cleared int `json:"cleared"`
}
