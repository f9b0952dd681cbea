package leads_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"travel_leads_backend/internal/leads"
	"travel_leads_backend/internal/leads/domain"
	"travel_leads_backend/internal/leads/followups"
	"travel_leads_backend/internal/leads/leadstest"
	"travel_leads_backend/internal/leads/origination"
	"travel_leads_backend/internal/leads/quotations"
	"travel_leads_backend/internal/leads/repository"
	"travel_leads_backend/internal/leads/timeline"
	"travel_leads_backend/internal/notification"
	"travel_leads_backend/platform/config"
	"travel_leads_backend/platform/logger"
	"travel_leads_backend/platform/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSender struct {
	mu       sync.Mutex
	attempts []string
	err      error
}

func (s *countingSender) SendEmail(_ context.Context, to, _, subject, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, to+" "+subject)
	return s.err
}

func newModule(t *testing.T) (*leads.Module, *countingSender) {
	t.Helper()
	log := logger.NewWithWriter("test", io.Discard)
	bus := leadstest.NewRecordingBus()
	mail := &countingSender{}

	notification.New(mail, &config.Config{}, log).RegisterHandlers(bus)
	cfg := &config.Config{DefaultCurrency: "INR", PhoneDefaultRegion: "IN"}
	return leads.NewModule(repository.NewMemoryStore(), bus, validator.New(), cfg, log), mail
}

func baliInput() origination.ManualInput {
	return origination.ManualInput{
		Agent:       origination.Agent{ID: "agent-1", Name: "Acme Travels"},
		Spoc:        origination.Spoc{Name: "Ravi", Email: "ravi@acme.example"},
		Destination: origination.Destination{Code: "BALI", Name: "Bali"},
	}
}

func eventTypes(t *testing.T, m *leads.Module, lead repository.Lead) []string {
	t.Helper()
	events, err := m.Services().Management.Timeline(context.Background(), lead.ID)
	require.NoError(t, err)
	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}

func TestLeadLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	m, mail := newModule(t)
	svc := m.Services()
	actor := leadstest.Agent("asha")

	lead, err := svc.Origination.CreateManual(ctx, baliInput(), nil, actor)
	require.NoError(t, err)
	assert.Equal(t, domain.StageNew, lead.Stage)
	assert.Equal(t, domain.StatusOpen, lead.Status)
	assert.Contains(t, lead.LeadCode, "-BALI-")
	assert.Equal(t, []string{timeline.EventTypeCreated}, eventTypes(t, m, lead))
	assert.Len(t, mail.attempts, 1)

	result, err := svc.FollowUps.LogFollowUp(ctx, lead.ID, followups.LogFollowUpInput{
		Channel: "call",
		Outcome: domain.OutcomeQuoteRequested,
		Summary: "Wants 5 nights",
	}, actor)
	require.NoError(t, err)
	assert.Equal(t, domain.StageQuoted, result.Lead.Stage)
	assert.Len(t, eventTypes(t, m, lead), 2)

	quotation, err := svc.Quotations.CreateRevision(ctx, lead.ID, quotations.CreateRevisionInput{
		ItineraryContent: "Day 1: Ubud",
		TotalPrice:       50000,
	}, actor)
	require.NoError(t, err)
	assert.Equal(t, 1, quotation.RevisionNumber)
	assert.Equal(t, "INR", quotation.Currency)
	assert.Len(t, eventTypes(t, m, lead), 3)

	closed, err := svc.Stages.Transition(ctx, lead.ID, domain.StageClosedWon, "Client paid", actor)
	require.NoError(t, err)
	assert.Equal(t, domain.StageClosedWon, closed.Stage)
	assert.Equal(t, domain.StatusClosed, closed.Status)
	require.Len(t, closed.StageHistory, 1)
	assert.Equal(t, "Client paid", closed.StageHistory[0].Remark)

	assert.Equal(t, []string{
		timeline.EventTypeCreated,
		timeline.EventTypeFollowUp,
		timeline.EventTypeQuotation,
		timeline.EventTypeStageChanged,
	}, eventTypes(t, m, lead))

	got, err := svc.Management.GetByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "closed_won", got.Stage)
	assert.Equal(t, "closed", got.Status)
}

func TestNotificationFailureDoesNotFailOrigination(t *testing.T) {
	ctx := context.Background()
	m, mail := newModule(t)
	mail.err = errors.New("smtp down")

	lead, err := m.Services().Origination.CreateManual(ctx, baliInput(), nil, leadstest.Agent("asha"))
	require.NoError(t, err)
	assert.Len(t, mail.attempts, 1)
	assert.Equal(t, []string{timeline.EventTypeCreated}, eventTypes(t, m, lead))
}

func TestModuleExposesSweeper(t *testing.T) {
	m, _ := newModule(t)
	result, err := m.Sweeper().Sweep(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, result.Flagged)
	assert.Equal(t, "leads", m.Name())
}
