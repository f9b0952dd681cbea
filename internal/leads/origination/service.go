// Package origination creates leads, either by hand or from an inbound
// engagement, and writes their first timeline event.
package origination

import (
	"context"
	"fmt"
	"strings"
	"time"

	"travel_leads_backend/internal/events"
	"travel_leads_backend/internal/leads/domain"
	"travel_leads_backend/internal/leads/repository"
	"travel_leads_backend/internal/leads/timeline"
	"travel_leads_backend/platform/apperr"
	"travel_leads_backend/platform/phone"
	"travel_leads_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Repository defines the data access interface needed to originate leads.
type Repository interface {
	repository.TxRunner
}

type Agent struct {
	ID   string
	Name string
}

// Spoc is the agent-side single point of contact.
type Spoc struct {
	Name   string
	Email  string
	Mobile string
}

type Destination struct {
	Code string
	Name string
}

// Assignee is the optional initial owner.
type Assignee struct {
	ID    uuid.UUID
	Name  string
	Email string
}

// ManualInput is the manual lead form.
type ManualInput struct {
	Agent       Agent
	Spoc        Spoc
	Destination Destination
}

type Service struct {
	repo        Repository
	eventBus    events.Bus
	writer      *timeline.Writer
	phoneRegion string
	suffix      func() int
}

// Option configures the originator.
type Option func(*Service)

// WithPhoneRegion sets the region local SPOC numbers are parsed in.
func WithPhoneRegion(region string) Option {
	return func(s *Service) {
		if r := strings.TrimSpace(region); r != "" {
			s.phoneRegion = strings.ToUpper(r)
		}
	}
}

// WithCodeSuffix fixes the lead code suffix source.
func WithCodeSuffix(suffix func() int) Option {
	return func(s *Service) { s.suffix = suffix }
}

func New(repo Repository, eventBus events.Bus, writer *timeline.Writer, opts ...Option) *Service {
	s := &Service{repo: repo, eventBus: eventBus, writer: writer, phoneRegion: phone.DefaultRegion}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateManual creates a lead from the manual form. A destination code and
// name are required.
func (s *Service) CreateManual(ctx context.Context, in ManualInput, assignee *Assignee, creator domain.Actor) (repository.Lead, error) {
	lead, err := s.prepare(in, repository.SourceManual, assignee, creator)
	if err != nil {
		return repository.Lead{}, err
	}

	err = s.repo.WithinTx(ctx, func(tx repository.Tx) error {
		return s.insert(ctx, tx, &lead, creator)
	})
	if err != nil {
		return repository.Lead{}, err
	}
	s.publishCreated(ctx, lead, creator)
	return lead, nil
}

// CreateFromEngagement creates a lead from a stored engagement and links the
// engagement back to it in the same transaction. The engagement must carry
// agent and destination details and must not be linked yet.
func (s *Service) CreateFromEngagement(ctx context.Context, engagementID uuid.UUID, assignee *Assignee, creator domain.Actor) (repository.Lead, error) {
	var lead repository.Lead
	err := s.repo.WithinTx(ctx, func(tx repository.Tx) error {
		engagement, err := tx.GetEngagement(ctx, engagementID)
		if err != nil {
			return repository.AsAppErr(err)
		}
		if engagement.LeadID != nil {
			return apperr.Conflict("engagement is already linked to a lead")
		}
		if err := ValidateEngagement(engagement); err != nil {
			return err
		}

		lead, err = s.prepare(ManualInput{
			Agent:       Agent{ID: engagement.AgentID, Name: engagement.AgentName},
			Spoc:        Spoc{Name: engagement.SpocName, Email: engagement.SpocEmail, Mobile: engagement.SpocMobile},
			Destination: Destination{Code: engagement.DestinationCode, Name: engagement.DestinationName},
		}, repository.SourceEngagement, assignee, creator)
		if err != nil {
			return err
		}
		id := engagement.ID
		lead.EngagementID = &id

		if err := s.insert(ctx, tx, &lead, creator); err != nil {
			return err
		}
		return repository.AsAppErr(tx.LinkEngagement(ctx, engagement.ID, lead.ID))
	})
	if err != nil {
		return repository.Lead{}, err
	}
	s.publishCreated(ctx, lead, creator)
	return lead, nil
}

// ValidateEngagement checks that a snapshot can become a lead.
func ValidateEngagement(e repository.Engagement) error {
	if strings.TrimSpace(e.AgentID) == "" || strings.TrimSpace(e.AgentName) == "" {
		return apperr.Validation("engagement has no agent")
	}
	if strings.TrimSpace(e.DestinationCode) == "" || strings.TrimSpace(e.DestinationName) == "" {
		return apperr.Validation("engagement has no destination")
	}
	return nil
}

func (s *Service) prepare(in ManualInput, source string, assignee *Assignee, creator domain.Actor) (repository.Lead, error) {
	destCode := strings.ToUpper(sanitize.Line(in.Destination.Code))
	destName := sanitize.Line(in.Destination.Name)
	if destCode == "" || destName == "" {
		return repository.Lead{}, apperr.Validation("destination code and name are required")
	}
	// The agent is optional on the manual form; its code token falls back to NA.
	agentName := sanitize.Line(in.Agent.Name)
	if assignee != nil && assignee.ID == uuid.Nil {
		return repository.Lead{}, apperr.Validation("assignee id is required")
	}

	now := s.writer.Now()
	code := domain.GenerateLeadCode(domain.LeadCodeInput{
		DestinationCode: destCode,
		AgentName:       agentName,
		Now:             now,
		Suffix:          s.suffix,
	})
	lead := repository.Lead{
		ID:              uuid.New(),
		LeadCode:        code,
		Source:          source,
		AgentID:         strings.TrimSpace(in.Agent.ID),
		AgentName:       agentName,
		DestinationCode: destCode,
		DestinationName: destName,
		SpocName:        sanitize.Line(in.Spoc.Name),
		SpocEmail:       strings.ToLower(strings.TrimSpace(in.Spoc.Email)),
		SpocMobile:      phone.NormalizeE164In(in.Spoc.Mobile, s.phoneRegion),
		StageHistory:    []repository.StageHistoryEntry{},
		CreatedByName:   creator.DisplayName(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	lead.ApplyStage(domain.StageNew)
	if !creator.IsSystem() {
		id := creator.ID
		lead.CreatedByID = &id
	}
	if assignee != nil {
		applyAssignee(&lead, *assignee, creator, now)
	}
	return lead, nil
}

func applyAssignee(lead *repository.Lead, a Assignee, creator domain.Actor, at time.Time) {
	id := a.ID
	lead.AssignedToID = &id
	lead.AssignedToName = sanitize.Line(a.Name)
	lead.AssignedToEmail = strings.ToLower(strings.TrimSpace(a.Email))
	lead.AssignedAt = &at
	if !creator.IsSystem() {
		by := creator.ID
		lead.AssignedByID = &by
	}
}

func (s *Service) insert(ctx context.Context, tx repository.Tx, lead *repository.Lead, creator domain.Actor) error {
	if err := tx.InsertLead(ctx, *lead); err != nil {
		return err
	}
	_, err := s.writer.Record(ctx, tx, timeline.Entry{
		LeadID:      lead.ID,
		Title:       timeline.EventTitleLeadCreated,
		Description: createdDescription(*lead),
		Payload: timeline.CreatedPayload{
			LeadCode:        lead.LeadCode,
			Source:          lead.Source,
			Stage:           string(lead.Stage),
			RecipientName:   lead.SpocName,
			RecipientEmail:  lead.SpocEmail,
			RecipientMobile: lead.SpocMobile,
		},
	}, creator)
	return err
}

func createdDescription(lead repository.Lead) string {
	if lead.AgentName == "" {
		return fmt.Sprintf("Lead %s created for %s", lead.LeadCode, lead.DestinationName)
	}
	return fmt.Sprintf("Lead %s created for %s (%s)", lead.LeadCode, lead.DestinationName, lead.AgentName)
}

func (s *Service) publishCreated(ctx context.Context, lead repository.Lead, creator domain.Actor) {
	s.eventBus.Publish(ctx, events.LeadCreated{
		BaseEvent:       events.NewBaseEvent(),
		LeadID:          lead.ID,
		LeadCode:        lead.LeadCode,
		Source:          lead.Source,
		DestinationName: lead.DestinationName,
		AgentName:       lead.AgentName,
		Spoc:            events.Contact{Name: lead.SpocName, Email: lead.SpocEmail, Mobile: lead.SpocMobile},
		AssignedToID:    lead.AssignedToID,
		CreatedByName:   creator.DisplayName(),
	})
}
