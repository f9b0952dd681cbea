// Package followups records interactions with the agent and derives stage
// and next-action changes from their outcome.
package followups

import (
	"context"
	"strings"
	"time"

	"travel_leads_backend/internal/events"
	"travel_leads_backend/internal/leads/domain"
	"travel_leads_backend/internal/leads/repository"
	"travel_leads_backend/internal/leads/stages"
	"travel_leads_backend/internal/leads/timeline"
	"travel_leads_backend/platform/apperr"
	"travel_leads_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Repository defines the data access interface needed by the follow-up log.
type Repository interface {
	repository.TxRunner
	repository.LeadReader
	ListFollowUps(ctx context.Context, leadID uuid.UUID) ([]repository.FollowUp, error)
}

// LogFollowUpInput is one logged interaction.
type LogFollowUpInput struct {
	Channel        string
	Outcome        string
	Summary        string
	NextFollowUpAt *time.Time
}

// Result is the stored follow-up together with the lead after derivation.
type Result struct {
	FollowUp repository.FollowUp
	Lead     repository.Lead
}

type Service struct {
	repo     Repository
	eventBus events.Bus
	writer   *timeline.Writer
}

func New(repo Repository, eventBus events.Bus, writer *timeline.Writer) *Service {
	return &Service{repo: repo, eventBus: eventBus, writer: writer}
}

// LogFollowUp stores the interaction, schedules the next action when one is
// given, then applies the outcome effect. A clearing outcome wins over a
// supplied nextFollowUpAt. Derived stage changes do not touch stageHistory.
func (s *Service) LogFollowUp(ctx context.Context, leadID uuid.UUID, in LogFollowUpInput, actor domain.Actor) (Result, error) {
	channel, ok := domain.ParseChannel(in.Channel)
	if !ok {
		return Result{}, apperr.Validation("channel must be one of call, whatsapp, meeting, email")
	}
	outcome := strings.ToLower(sanitize.Line(in.Outcome))
	summary := sanitize.Text(in.Summary)
	var next *time.Time
	if in.NextFollowUpAt != nil {
		if in.NextFollowUpAt.IsZero() {
			return Result{}, apperr.Validation("nextFollowUpAt is not a valid time")
		}
		t := in.NextFollowUpAt.UTC()
		next = &t
	}
	effect := domain.EffectForOutcome(outcome)

	var result Result
	err := s.repo.WithinTx(ctx, func(tx repository.Tx) error {
		lead, err := tx.GetLead(ctx, leadID)
		if err != nil {
			return repository.AsAppErr(err)
		}
		if err := domain.EnsureOpen(lead.Stage, "log a follow-up"); err != nil {
			return err
		}

		now := s.writer.Now()
		followUp := repository.FollowUp{
			ID:             uuid.New(),
			LeadID:         leadID,
			Channel:        channel,
			Outcome:        outcome,
			Summary:        summary,
			NextFollowUpAt: next,
			CreatedByName:  actor.DisplayName(),
			CreatedAt:      now,
		}
		if !actor.IsSystem() {
			id := actor.ID
			followUp.CreatedByID = &id
		}
		if err := tx.InsertFollowUp(ctx, followUp); err != nil {
			return err
		}

		if next != nil {
			lead.SetNextAction(domain.NextActionFollowUp, *next)
		}
		if effect.ChangesStage {
			stages.ApplyState(&lead, effect.Stage, now)
		}
		if effect.ClearNextAction {
			lead.ClearNextAction()
		}
		lead.UpdatedAt = now
		if err := tx.UpdateLead(ctx, lead); err != nil {
			return err
		}

		payload := timeline.FollowUpPayload{
			Channel:        string(channel),
			Outcome:        outcome,
			Notes:          summary,
			NextFollowUpAt: next,
		}
		if effect.ChangesStage {
			payload.Stage = string(effect.Stage)
		}
		if _, err := s.writer.Record(ctx, tx, timeline.Entry{
			LeadID:      leadID,
			Title:       domain.FollowUpTitle(channel),
			Description: summary,
			Payload:     payload,
		}, actor); err != nil {
			return err
		}

		result = Result{FollowUp: followUp, Lead: lead}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	s.eventBus.Publish(ctx, events.FollowUpLogged{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         leadID,
		Channel:        string(channel),
		Outcome:        outcome,
		Stage:          string(result.Lead.Stage),
		NextFollowUpAt: result.Lead.NextActionDueAt,
	})
	return result, nil
}

// List returns a lead's follow-ups oldest first.
func (s *Service) List(ctx context.Context, leadID uuid.UUID) ([]repository.FollowUp, error) {
	if _, err := s.repo.GetLead(ctx, leadID); err != nil {
		return nil, repository.AsAppErr(err)
	}
	return s.repo.ListFollowUps(ctx, leadID)
}
