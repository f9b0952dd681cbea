// Package quotations is the per-lead quotation ledger. Revisions are
// immutable and numbered 1..N by a transactional counter on the lead.
package quotations

import (
	"context"
	"fmt"
	"math"
	"strings"

	"travel_leads_backend/internal/events"
	"travel_leads_backend/internal/leads/domain"
	"travel_leads_backend/internal/leads/repository"
	"travel_leads_backend/internal/leads/timeline"
	"travel_leads_backend/platform/apperr"
	"travel_leads_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Delivery channels a revision can be sent over.
const (
	SendViaEmail    = "email"
	SendViaWhatsApp = "whatsapp"
)

// Repository defines the data access interface needed by the ledger.
type Repository interface {
	repository.TxRunner
	repository.LeadReader
	ListQuotations(ctx context.Context, leadID uuid.UUID) ([]repository.Quotation, error)
}

// CreateRevisionInput is a new quotation snapshot.
type CreateRevisionInput struct {
	ItineraryContent string
	TotalPrice       float64
	Currency         string
	Note             string
	SendVia          []string
}

type Service struct {
	repo            Repository
	eventBus        events.Bus
	writer          *timeline.Writer
	defaultCurrency string
}

// New creates the quotation ledger service. An empty defaultCurrency means INR.
func New(repo Repository, eventBus events.Bus, writer *timeline.Writer, defaultCurrency string) *Service {
	if strings.TrimSpace(defaultCurrency) == "" {
		defaultCurrency = timeline.DefaultCurrency
	}
	return &Service{repo: repo, eventBus: eventBus, writer: writer, defaultCurrency: strings.ToUpper(defaultCurrency)}
}

// RevisionTitle is "Quotation Sent" for the first revision and
// "Quotation Revised (vN)" afterwards.
func RevisionTitle(revision int) string {
	if revision <= 1 {
		return timeline.EventTitleQuotationSent
	}
	return fmt.Sprintf("Quotation Revised (v%d)", revision)
}

// CreateRevision stores the next revision and its timeline event in one
// transaction. Delivery happens after commit and never affects the result.
func (s *Service) CreateRevision(ctx context.Context, leadID uuid.UUID, in CreateRevisionInput, actor domain.Actor) (repository.Quotation, error) {
	in.ItineraryContent = sanitize.RichText(in.ItineraryContent)
	in.Note = sanitize.Text(in.Note)
	if in.ItineraryContent == "" {
		return repository.Quotation{}, apperr.Validation("itinerary content is required")
	}
	if math.IsNaN(in.TotalPrice) || math.IsInf(in.TotalPrice, 0) || in.TotalPrice <= 0 {
		return repository.Quotation{}, apperr.Validation("total price must be a positive number")
	}
	sendVia, err := normalizeSendVia(in.SendVia)
	if err != nil {
		return repository.Quotation{}, err
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}

	var quotation repository.Quotation
	var lead repository.Lead
	err = s.repo.WithinTx(ctx, func(tx repository.Tx) error {
		current, err := tx.GetLead(ctx, leadID)
		if err != nil {
			return repository.AsAppErr(err)
		}
		if err := domain.EnsureOpen(current.Stage, "add a quotation"); err != nil {
			return err
		}

		now := s.writer.Now()
		revision, err := tx.NextRevisionNumber(ctx, leadID, now)
		if err != nil {
			return repository.AsAppErr(err)
		}

		quotation = repository.Quotation{
			ID:               uuid.New(),
			LeadID:           leadID,
			RevisionNumber:   revision,
			ItineraryContent: in.ItineraryContent,
			TotalPrice:       in.TotalPrice,
			Currency:         currency,
			Note:             in.Note,
			SendVia:          sendVia,
			CreatedAt:        now,
		}
		if !actor.IsSystem() {
			id := actor.ID
			quotation.CreatedByID = &id
		}
		quotation.CreatedByName = actor.DisplayName()
		if err := tx.InsertQuotation(ctx, quotation); err != nil {
			return err
		}

		if _, err := s.writer.Record(ctx, tx, timeline.Entry{
			LeadID:      leadID,
			Title:       RevisionTitle(revision),
			Description: fmt.Sprintf("Revision %d: %s %.2f", revision, currency, in.TotalPrice),
			Payload: timeline.QuotationPayload{
				QuotationID:      quotation.ID,
				Revision:         revision,
				Amount:           in.TotalPrice,
				Currency:         currency,
				SendVia:          sendVia,
				ItineraryContent: in.ItineraryContent,
				Notes:            in.Note,
				RecipientName:    current.SpocName,
				RecipientEmail:   current.SpocEmail,
				RecipientMobile:  current.SpocMobile,
			},
		}, actor); err != nil {
			return err
		}
		lead = current
		return nil
	})
	if err != nil {
		return repository.Quotation{}, err
	}

	if len(sendVia) > 0 {
		s.eventBus.Publish(ctx, events.QuotationRevised{
			BaseEvent:        events.NewBaseEvent(),
			LeadID:           leadID,
			LeadCode:         lead.LeadCode,
			QuotationID:      quotation.ID,
			RevisionNumber:   quotation.RevisionNumber,
			TotalPrice:       quotation.TotalPrice,
			Currency:         quotation.Currency,
			ItineraryContent: quotation.ItineraryContent,
			Note:             quotation.Note,
			SendVia:          sendVia,
			DestinationName:  lead.DestinationName,
			Spoc:             events.Contact{Name: lead.SpocName, Email: lead.SpocEmail, Mobile: lead.SpocMobile},
			SentByName:       actor.DisplayName(),
		})
	}
	return quotation, nil
}

// List returns a lead's revisions in revision order.
func (s *Service) List(ctx context.Context, leadID uuid.UUID) ([]repository.Quotation, error) {
	if _, err := s.repo.GetLead(ctx, leadID); err != nil {
		return nil, repository.AsAppErr(err)
	}
	return s.repo.ListQuotations(ctx, leadID)
}

func normalizeSendVia(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, item := range raw {
		channel := strings.ToLower(strings.TrimSpace(item))
		if channel == "" {
			continue
		}
		if channel != SendViaEmail && channel != SendViaWhatsApp {
			return nil, apperr.Validation("sendVia only accepts email and whatsapp")
		}
		if _, dup := seen[channel]; dup {
			continue
		}
		seen[channel] = struct{}{}
		out = append(out, channel)
	}
	return out, nil
}
