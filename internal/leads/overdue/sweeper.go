// Package overdue maintains the derived isOverdue flag on open leads.
package overdue

import (
	"context"
	"time"

	"travel_leads_backend/internal/events"
	"travel_leads_backend/internal/leads/repository"
	"travel_leads_backend/platform/logger"
)

// Repository defines the data access interface needed by the sweeper.
type Repository interface {
	repository.OverdueFlagger
}

// Sweeper flags open leads whose next action is past due and clears the
// flag on leads that no longer qualify. It writes no timeline events.
type Sweeper struct {
	repo     Repository
	eventBus events.Bus
	log      *logger.Logger
}

func New(repo Repository, eventBus events.Bus, log *logger.Logger) *Sweeper {
	return &Sweeper{repo: repo, eventBus: eventBus, log: log}
}

// Sweep runs one pass. Running it twice with the same now changes nothing
// the second time.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (repository.OverdueResult, error) {
	result, err := s.repo.FlagOverdue(ctx, now.UTC())
	if err != nil {
		return repository.OverdueResult{}, err
	}
	if result.Flagged == 0 && result.Cleared == 0 {
		return result, nil
	}

	s.log.Info("overdue sweep", "flagged", result.Flagged, "cleared", result.Cleared)
	s.eventBus.Publish(ctx, events.LeadsFlaggedOverdue{
		BaseEvent: events.NewBaseEventAt(now),
		Flagged:   result.Flagged,
		Cleared:   result.Cleared,
	})
	return result, nil
}
