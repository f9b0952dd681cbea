// Package stages is the lead stage machine: manual transitions, the
// admin-only reopen and the state-update path shared with follow-ups.
package stages

import (
	"context"
	"strings"
	"time"

	"travel_leads_backend/internal/events"
	"travel_leads_backend/internal/leads/domain"
	"travel_leads_backend/internal/leads/repository"
	"travel_leads_backend/internal/leads/timeline"
	"travel_leads_backend/platform/apperr"
	"travel_leads_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Repository defines the data access interface needed by the stage machine.
type Repository interface {
	repository.TxRunner
}

// Service applies stage transitions.
type Service struct {
	repo     Repository
	eventBus events.Bus
	writer   *timeline.Writer
}

// New creates a new stage machine service.
func New(repo Repository, eventBus events.Bus, writer *timeline.Writer) *Service {
	return &Service{repo: repo, eventBus: eventBus, writer: writer}
}

// ApplyState sets stage, derived status and updatedAt without touching
// stageHistory. Follow-up outcome derivation goes through here.
func ApplyState(lead *repository.Lead, stage domain.Stage, at time.Time) {
	lead.ApplyStage(stage)
	lead.UpdatedAt = at
}

// Transition moves a lead to newStage. Closing requires a remark.
func (s *Service) Transition(ctx context.Context, leadID uuid.UUID, newStage domain.Stage, remark string, actor domain.Actor) (repository.Lead, error) {
	remark = sanitize.Text(remark)
	parsed, ok := domain.ParseStage(string(newStage))
	if !ok {
		return repository.Lead{}, apperr.Validation("unknown stage: " + string(newStage))
	}
	newStage = parsed
	if newStage.IsClosed() && strings.TrimSpace(remark) == "" {
		return repository.Lead{}, apperr.Validation("remark required")
	}

	var updated repository.Lead
	var from domain.Stage
	err := s.repo.WithinTx(ctx, func(tx repository.Tx) error {
		lead, err := tx.GetLead(ctx, leadID)
		if err != nil {
			return repository.AsAppErr(err)
		}
		if err := domain.ValidateTransition(lead.Stage, newStage, remark); err != nil {
			return err
		}

		from = lead.Stage
		now := s.writer.Now()
		ApplyState(&lead, newStage, now)
		lead.StageHistory = append(lead.StageHistory, repository.StageHistoryEntry{
			Stage:     newStage,
			Remark:    remark,
			ChangedAt: now,
			ChangedBy: timeline.ActorRef(actor),
		})
		if err := tx.UpdateLead(ctx, lead); err != nil {
			return err
		}

		if _, err := s.writer.Record(ctx, tx, timeline.Entry{
			LeadID:      lead.ID,
			Title:       domain.TransitionTitle(newStage),
			Description: remark,
			Payload: timeline.StageChangePayload{
				Stage:  string(newStage),
				Remark: remark,
				From:   string(from),
				To:     string(newStage),
			},
		}, actor); err != nil {
			return err
		}
		updated = lead
		return nil
	})
	if err != nil {
		return repository.Lead{}, err
	}

	s.eventBus.Publish(ctx, events.LeadStageChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    updated.ID,
		FromStage: string(from),
		ToStage:   string(newStage),
		Remark:    remark,
	})
	return updated, nil
}

// Reopen returns a closed lead to follow_up. Admin only; a reason is required.
func (s *Service) Reopen(ctx context.Context, leadID uuid.UUID, reason string, actor domain.Actor) (repository.Lead, error) {
	reason = sanitize.Text(reason)
	if err := domain.CheckReopenRequest(actor.IsAdmin(), reason); err != nil {
		return repository.Lead{}, err
	}

	var updated repository.Lead
	err := s.repo.WithinTx(ctx, func(tx repository.Tx) error {
		lead, err := tx.GetLead(ctx, leadID)
		if err != nil {
			return repository.AsAppErr(err)
		}
		if err := domain.ValidateReopen(lead.Stage, actor.IsAdmin(), reason); err != nil {
			return err
		}

		now := s.writer.Now()
		ApplyState(&lead, domain.StageFollowUp, now)
		lead.StageHistory = append(lead.StageHistory, repository.StageHistoryEntry{
			Stage:     domain.StageFollowUp,
			Remark:    reason,
			Tag:       domain.ReopenedTag,
			ChangedAt: now,
			ChangedBy: timeline.ActorRef(actor),
		})
		if err := tx.UpdateLead(ctx, lead); err != nil {
			return err
		}

		if _, err := s.writer.Record(ctx, tx, timeline.Entry{
			LeadID:      lead.ID,
			Title:       timeline.EventTitleLeadReopened,
			Description: reason,
			Payload: timeline.StageChangePayload{
				Stage:  string(domain.StageFollowUp),
				Remark: reason,
				From:   "closed",
				To:     string(domain.StageFollowUp),
			},
		}, actor); err != nil {
			return err
		}
		updated = lead
		return nil
	})
	if err != nil {
		return repository.Lead{}, err
	}

	s.eventBus.Publish(ctx, events.LeadStageChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    updated.ID,
		FromStage: "closed",
		ToStage:   string(domain.StageFollowUp),
		Remark:    reason,
		Reopened:  true,
	})
	return updated, nil
}
