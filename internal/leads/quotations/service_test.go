package quotations

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"travel_leads_backend/internal/events"
	"travel_leads_backend/internal/leads/domain"
	"travel_leads_backend/internal/leads/leadstest"
	"travel_leads_backend/internal/leads/repository"
	"travel_leads_backend/internal/leads/timeline"
	"travel_leads_backend/platform/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() (*Service, *repository.MemoryStore, *leadstest.RecordingBus) {
	store := repository.NewMemoryStore()
	bus := leadstest.NewRecordingBus()
	return New(store, bus, timeline.NewWriter(), ""), store, bus
}

func validInput() CreateRevisionInput {
	return CreateRevisionInput{ItineraryContent: "Day 1: Ubud\nDay 2: Uluwatu", TotalPrice: 50000}
}

func TestRevisionNumbersAreSequential(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService()
	lead := leadstest.SeedLead(t, store, nil)

	for want := 1; want <= 4; want++ {
		q, err := svc.CreateRevision(ctx, lead.ID, validInput(), leadstest.Agent("asha"))
		require.NoError(t, err)
		assert.Equal(t, want, q.RevisionNumber)
	}

	events, _ := store.ListTimeline(ctx, lead.ID)
	require.Len(t, events, 4)
	assert.Equal(t, "Quotation Sent", events[0].Title)
	assert.Equal(t, "Quotation Revised (v2)", events[1].Title)
	assert.Equal(t, "Quotation Revised (v4)", events[3].Title)
}

func TestConcurrentRevisionsNeverShareANumber(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService()
	lead := leadstest.SeedLead(t, store, nil)

	const n = 20
	var wg sync.WaitGroup
	numbers := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q, err := svc.CreateRevision(ctx, lead.ID, validInput(), leadstest.Agent("asha"))
			if err == nil {
				numbers <- q.RevisionNumber
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make(map[int]bool)
	for num := range numbers {
		assert.False(t, seen[num], "duplicate revision %d", num)
		seen[num] = true
	}
	assert.Len(t, seen, n)
}

func TestCreateRevisionMetadata(t *testing.T) {
	ctx := context.Background()
	svc, store, bus := newService()
	lead := leadstest.SeedLead(t, store, nil)

	in := validInput()
	in.Note = "Includes flights"
	in.SendVia = []string{"Email", "whatsapp", "email"}
	q, err := svc.CreateRevision(ctx, lead.ID, in, leadstest.Agent("asha"))
	require.NoError(t, err)
	assert.Equal(t, "INR", q.Currency)
	assert.Equal(t, []string{"email", "whatsapp"}, q.SendVia)

	evts, _ := store.ListTimeline(ctx, lead.ID)
	require.Len(t, evts, 1)
	meta := evts[0].Metadata
	assert.Equal(t, 50000.0, meta[timeline.KeyAmount])
	assert.Equal(t, 1, meta[timeline.KeyRevision])
	assert.Equal(t, "Includes flights", meta[timeline.KeyNotes])
	assert.Equal(t, q.ID.String(), meta[timeline.KeyQuotationID])
	assert.Equal(t, "ravi@acme.example", meta[timeline.KeyRecipientEmail])

	published := bus.Named(events.QuotationRevised{}.EventName())
	require.Len(t, published, 1)
	assert.Equal(t, 1, published[0].(events.QuotationRevised).RevisionNumber)
}

func TestCreateRevisionKeepsRichItinerary(t *testing.T) {
	ctx := context.Background()
	svc, store, bus := newService()
	lead := leadstest.SeedLead(t, store, nil)

	itinerary := "<h2>Day 1</h2><ul><li><b>Ubud</b> &amp; rice terraces</li></ul>"
	in := validInput()
	in.ItineraryContent = itinerary + "<script>alert(1)</script>"
	in.SendVia = []string{"email"}
	q, err := svc.CreateRevision(ctx, lead.ID, in, leadstest.Agent("asha"))
	require.NoError(t, err)
	assert.Equal(t, itinerary, q.ItineraryContent)

	stored, _ := store.ListQuotations(ctx, lead.ID)
	require.Len(t, stored, 1)
	assert.Equal(t, itinerary, stored[0].ItineraryContent)

	evts, _ := store.ListTimeline(ctx, lead.ID)
	require.Len(t, evts, 1)
	assert.Equal(t, itinerary, evts[0].Metadata[timeline.KeyItineraryContent])

	published := bus.Named(events.QuotationRevised{}.EventName())
	require.Len(t, published, 1)
	assert.Equal(t, itinerary, published[0].(events.QuotationRevised).ItineraryContent)
}

func TestCreateRevisionAcceptsImageOnlyItinerary(t *testing.T) {
	svc, store, _ := newService()
	lead := leadstest.SeedLead(t, store, nil)

	in := validInput()
	in.ItineraryContent = `<img src="https://cdn.example.com/bali-day1.jpg">`
	q, err := svc.CreateRevision(context.Background(), lead.ID, in, leadstest.Agent("asha"))
	require.NoError(t, err)
	assert.Contains(t, q.ItineraryContent, "bali-day1.jpg")
}

func TestCreateRevisionWithoutSendViaPublishesNothing(t *testing.T) {
	svc, store, bus := newService()
	lead := leadstest.SeedLead(t, store, nil)

	_, err := svc.CreateRevision(context.Background(), lead.ID, validInput(), leadstest.Agent("asha"))
	require.NoError(t, err)
	assert.Empty(t, bus.Events())
}

func TestCreateRevisionValidation(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService()
	lead := leadstest.SeedLead(t, store, nil)

	cases := map[string]CreateRevisionInput{
		"empty itinerary": {ItineraryContent: "  ", TotalPrice: 10},
		"zero price":      {ItineraryContent: "x", TotalPrice: 0},
		"negative price":  {ItineraryContent: "x", TotalPrice: -5},
		"nan price":       {ItineraryContent: "x", TotalPrice: math.NaN()},
		"bad channel":     {ItineraryContent: "x", TotalPrice: 10, SendVia: []string{"sms"}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateRevision(ctx, lead.ID, in, leadstest.Agent("asha"))
			assert.True(t, apperr.Is(err, apperr.KindValidation))
		})
	}

	stored, _ := store.GetLead(ctx, lead.ID)
	assert.Zero(t, stored.LastRevision)
}

func TestCreateRevisionOnClosedLeadConflicts(t *testing.T) {
	svc, store, _ := newService()
	lead := leadstest.SeedLead(t, store, func(l *repository.Lead) { l.ApplyStage(domain.StageClosedWon) })

	_, err := svc.CreateRevision(context.Background(), lead.ID, validInput(), leadstest.Agent("asha"))
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestFailedRevisionDoesNotConsumeNumber(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService()
	lead := leadstest.SeedLead(t, store, nil)
	store.InjectFault(repository.OpInsertTimelineEvent, errors.New("write failed"))

	_, err := svc.CreateRevision(ctx, lead.ID, validInput(), leadstest.Agent("asha"))
	require.Error(t, err)

	q, err := svc.CreateRevision(ctx, lead.ID, validInput(), leadstest.Agent("asha"))
	require.NoError(t, err)
	assert.Equal(t, 1, q.RevisionNumber)

	list, err := svc.List(ctx, lead.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
