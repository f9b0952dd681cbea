// Package remarks appends free-text remarks to a lead's timeline.
package remarks

import (
	"context"
	"unicode/utf8"

	"travel_leads_backend/internal/leads/domain"
	"travel_leads_backend/internal/leads/repository"
	"travel_leads_backend/internal/leads/timeline"
	"travel_leads_backend/platform/apperr"
	"travel_leads_backend/platform/sanitize"

	"github.com/google/uuid"
)

// MaxRemarkLength bounds a single remark.
const MaxRemarkLength = 2000

// Repository defines the data access interface needed by the remarks service.
type Repository interface {
	repository.TxRunner
}

// Service handles lead remarks.
type Service struct {
	repo   Repository
	writer *timeline.Writer
}

// New creates a new remarks service.
func New(repo Repository, writer *timeline.Writer) *Service {
	return &Service{repo: repo, writer: writer}
}

// AddRemark records text against the lead. Remarks are allowed on closed
// leads and do not touch the lead document.
func (s *Service) AddRemark(ctx context.Context, leadID uuid.UUID, text string, actor domain.Actor) (repository.TimelineEvent, error) {
	text = sanitize.Text(text)
	if text == "" || utf8.RuneCountInString(text) > MaxRemarkLength {
		return repository.TimelineEvent{}, apperr.Validation("remark must be between 1 and 2000 characters")
	}

	var event repository.TimelineEvent
	err := s.repo.WithinTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetLead(ctx, leadID); err != nil {
			return repository.AsAppErr(err)
		}
		recorded, err := s.writer.Record(ctx, tx, timeline.Entry{
			LeadID:      leadID,
			Title:       timeline.EventTitleRemarkAdded,
			Description: text,
			Payload:     timeline.RemarkPayload{Remark: text},
		}, actor)
		if err != nil {
			return err
		}
		event = recorded
		return nil
	})
	return event, err
}
