// Package assignment transfers lead ownership between users.
package assignment

import (
	"context"
	"strings"

	"travel_leads_backend/internal/events"
	"travel_leads_backend/internal/leads/domain"
	"travel_leads_backend/internal/leads/repository"
	"travel_leads_backend/internal/leads/timeline"
	"travel_leads_backend/platform/apperr"
	"travel_leads_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Repository defines the data access interface needed for assignment.
type Repository interface {
	repository.TxRunner
}

// Owner is the user receiving the lead.
type Owner struct {
	ID    uuid.UUID
	Name  string
	Email string
}

type Service struct {
	repo     Repository
	eventBus events.Bus
	writer   *timeline.Writer
}

func New(repo Repository, eventBus events.Bus, writer *timeline.Writer) *Service {
	return &Service{repo: repo, eventBus: eventBus, writer: writer}
}

// Describe renders the timeline description of an ownership change.
func Describe(previousName, newName string) string {
	if strings.TrimSpace(previousName) == "" {
		return "Assigned to " + newName
	}
	return "Reassigned from " + previousName + " to " + newName
}

// NotificationTargets lists who hears about an assignment: the new owner,
// and the previous owner when there was one and it is someone else.
func NotificationTargets(previous *events.Contact, next events.Contact) []events.Contact {
	targets := []events.Contact{next}
	if previous == nil || previous.UserID == nil {
		return targets
	}
	if next.UserID != nil && *previous.UserID == *next.UserID {
		return targets
	}
	return append(targets, *previous)
}

// Assign makes owner the lead's owner. Closed leads can still be reassigned.
func (s *Service) Assign(ctx context.Context, leadID uuid.UUID, owner Owner, actor domain.Actor) (repository.Lead, error) {
	if owner.ID == uuid.Nil {
		return repository.Lead{}, apperr.Validation("assignee id is required")
	}
	owner.Name = sanitize.Line(owner.Name)
	owner.Email = strings.ToLower(strings.TrimSpace(owner.Email))
	if owner.Name == "" {
		owner.Name = owner.Email
	}
	if owner.Name == "" {
		return repository.Lead{}, apperr.Validation("assignee name is required")
	}

	var updated repository.Lead
	var previous *events.Contact
	err := s.repo.WithinTx(ctx, func(tx repository.Tx) error {
		lead, err := tx.GetLead(ctx, leadID)
		if err != nil {
			return repository.AsAppErr(err)
		}
		if lead.AssignedToID != nil {
			prevID := *lead.AssignedToID
			previous = &events.Contact{UserID: &prevID, Name: lead.AssignedToName, Email: lead.AssignedToEmail}
		}
		previousName := lead.AssignedToName
		previousID := lead.AssignedToID

		now := s.writer.Now()
		ownerID := owner.ID
		lead.AssignedToID = &ownerID
		lead.AssignedToName = owner.Name
		lead.AssignedToEmail = owner.Email
		lead.AssignedAt = &now
		lead.AssignedByID = nil
		if !actor.IsSystem() {
			by := actor.ID
			lead.AssignedByID = &by
		}
		lead.UpdatedAt = now
		if err := tx.UpdateLead(ctx, lead); err != nil {
			return err
		}

		title := timeline.EventTitleLeadAssigned
		if previousID != nil {
			title = timeline.EventTitleLeadReassigned
		}
		if _, err := s.writer.Record(ctx, tx, timeline.Entry{
			LeadID:      leadID,
			Title:       title,
			Description: Describe(previousName, owner.Name),
			Payload: timeline.AssignmentPayload{
				FromID:   previousID,
				FromName: previousName,
				ToID:     owner.ID,
				ToName:   owner.Name,
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

	ownerID := owner.ID
	next := events.Contact{UserID: &ownerID, Name: owner.Name, Email: owner.Email}
	evt := events.LeadAssigned{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         updated.ID,
		LeadCode:       updated.LeadCode,
		NewOwnerID:     owner.ID,
		NewOwnerName:   owner.Name,
		AssignedByName: actor.DisplayName(),
		Spoc:           events.Contact{Name: updated.SpocName, Email: updated.SpocEmail, Mobile: updated.SpocMobile},
		Recipients:     NotificationTargets(previous, next),
	}
	if previous != nil {
		evt.PreviousID = previous.UserID
		evt.PreviousName = previous.Name
	}
	s.eventBus.Publish(ctx, evt)
	return updated, nil
}
