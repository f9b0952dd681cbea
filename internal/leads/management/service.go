// Package management is the read side of the leads context: lead lookups,
// filtered listing and the per-lead history views.
package management

import (
	"context"
	"strings"

	"travel_leads_backend/internal/leads/domain"
	"travel_leads_backend/internal/leads/repository"
	"travel_leads_backend/internal/leads/transport"
	"travel_leads_backend/platform/apperr"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxPage         = 100000
)

// Repository defines the data access interface needed by the read side.
type Repository interface {
	repository.LeadReader
	repository.HistoryReader
}

// Service handles lead queries.
type Service struct {
	repo Repository
}

// New creates a new lead management service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetByID retrieves a lead by ID.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetLead(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, repository.AsAppErr(err)
	}
	return ToLeadResponse(lead), nil
}

// List retrieves a paginated list of leads, newest first.
func (s *Service) List(ctx context.Context, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Page > maxPage {
		return transport.LeadListResponse{}, apperr.Validation("page must not exceed 100000")
	}
	if req.PageSize < 1 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	params := repository.ListParams{
		Search:  strings.TrimSpace(req.Search),
		Overdue: req.Overdue,
		Offset:  (req.Page - 1) * req.PageSize,
		Limit:   req.PageSize,
	}
	if req.Stage != "" {
		stage, ok := domain.ParseStage(req.Stage)
		if !ok {
			return transport.LeadListResponse{}, apperr.Validation("unknown stage: " + req.Stage)
		}
		params.Stage = &stage
	}
	if req.Status != "" {
		status := domain.Status(strings.ToLower(req.Status))
		if status != domain.StatusOpen && status != domain.StatusClosed {
			return transport.LeadListResponse{}, apperr.Validation("unknown status: " + req.Status)
		}
		params.Status = &status
	}
	if req.AssignedTo != "" {
		id, err := uuid.Parse(req.AssignedTo)
		if err != nil {
			return transport.LeadListResponse{}, apperr.Validation("assignedTo must be a uuid")
		}
		params.AssignedToID = &id
	}

	leads, total, err := s.repo.ListLeads(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	items := make([]transport.LeadResponse, len(leads))
	for i, lead := range leads {
		items[i] = ToLeadResponse(lead)
	}

	totalPages := (total + req.PageSize - 1) / req.PageSize

	return transport.LeadListResponse{
		Items:      items,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: totalPages,
	}, nil
}

// Timeline returns the lead's events ordered by createdAt, oldest first.
func (s *Service) Timeline(ctx context.Context, leadID uuid.UUID) ([]transport.TimelineEventResponse, error) {
	if err := s.ensureLead(ctx, leadID); err != nil {
		return nil, err
	}
	events, err := s.repo.ListTimeline(ctx, leadID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.TimelineEventResponse, len(events))
	for i, e := range events {
		out[i] = ToTimelineEventResponse(e)
	}
	return out, nil
}

// Quotations returns every revision of the lead.
func (s *Service) Quotations(ctx context.Context, leadID uuid.UUID) ([]transport.QuotationResponse, error) {
	if err := s.ensureLead(ctx, leadID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListQuotations(ctx, leadID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.QuotationResponse, len(items))
	for i, q := range items {
		out[i] = ToQuotationResponse(q)
	}
	return out, nil
}

// FollowUps returns every follow-up of the lead.
func (s *Service) FollowUps(ctx context.Context, leadID uuid.UUID) ([]transport.FollowUpResponse, error) {
	if err := s.ensureLead(ctx, leadID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListFollowUps(ctx, leadID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.FollowUpResponse, len(items))
	for i, f := range items {
		out[i] = ToFollowUpResponse(f)
	}
	return out, nil
}

func (s *Service) ensureLead(ctx context.Context, leadID uuid.UUID) error {
	_, err := s.repo.GetLead(ctx, leadID)
	return repository.AsAppErr(err)
}
