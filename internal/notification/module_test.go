package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"travel_leads_backend/internal/events"
	notificationoutbox "travel_leads_backend/internal/notification/outbox"
	"travel_leads_backend/platform/apperr"
	"travel_leads_backend/platform/config"
	"travel_leads_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentEmail struct {
	To, ToName, Subject, Body string
}

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (f *fakeEmailSender) SendEmail(_ context.Context, to, toName, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{To: to, ToName: toName, Subject: subject, Body: body})
	return nil
}

type sentWhatsApp struct {
	Phone, Message string
}

type fakeWhatsApp struct {
	mu   sync.Mutex
	sent []sentWhatsApp
	err  error
}

func (f *fakeWhatsApp) SendMessage(_ context.Context, phoneNumber, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentWhatsApp{Phone: phoneNumber, Message: msg})
	return nil
}

type retryCall struct {
	ID    uuid.UUID
	RunAt time.Time
}

type fakeOutbox struct {
	records map[uuid.UUID]notificationoutbox.Record
	order   []uuid.UUID
	retries []retryCall
	errors  map[uuid.UUID]string
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{records: map[uuid.UUID]notificationoutbox.Record{}, errors: map[uuid.UUID]string{}}
}

func (f *fakeOutbox) Insert(_ context.Context, p notificationoutbox.InsertParams) (uuid.UUID, error) {
	if err := p.Validate(); err != nil {
		return uuid.Nil, err
	}
	payload, err := json.Marshal(p.Payload)
	if err != nil {
		return uuid.Nil, err
	}
	id := uuid.New()
	f.records[id] = notificationoutbox.Record{
		ID: id, LeadID: p.LeadID, Kind: p.Kind, Template: p.Template,
		Payload: payload, RunAt: p.RunAt, Status: notificationoutbox.StatusPending,
	}
	f.order = append(f.order, id)
	return id, nil
}

func (f *fakeOutbox) GetByID(_ context.Context, id uuid.UUID) (notificationoutbox.Record, error) {
	rec, ok := f.records[id]
	if !ok {
		return notificationoutbox.Record{}, notificationoutbox.ErrNotFound
	}
	return rec, nil
}

func (f *fakeOutbox) setStatus(id uuid.UUID, status notificationoutbox.Status) {
	rec := f.records[id]
	rec.Status = status
	f.records[id] = rec
}

func (f *fakeOutbox) MarkProcessing(_ context.Context, id uuid.UUID) error {
	rec := f.records[id]
	rec.Status = notificationoutbox.StatusProcessing
	rec.Attempts++
	f.records[id] = rec
	return nil
}

func (f *fakeOutbox) MarkSucceeded(_ context.Context, id uuid.UUID) error {
	f.setStatus(id, notificationoutbox.StatusSucceeded)
	return nil
}

func (f *fakeOutbox) MarkFailed(_ context.Context, id uuid.UUID, lastError string) error {
	f.setStatus(id, notificationoutbox.StatusFailed)
	f.errors[id] = lastError
	return nil
}

func (f *fakeOutbox) ScheduleRetry(_ context.Context, id uuid.UUID, runAt time.Time, lastError string) error {
	f.setStatus(id, notificationoutbox.StatusPending)
	f.errors[id] = lastError
	f.retries = append(f.retries, retryCall{ID: id, RunAt: runAt})
	return nil
}

var fixedNow = time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)

func newTestModule(t *testing.T) (*Module, *fakeEmailSender, *fakeWhatsApp) {
	t.Helper()
	mail := &fakeEmailSender{}
	wa := &fakeWhatsApp{}
	m := New(mail, &config.Config{AppBaseURL: "https://crm.example"}, logger.NewWithWriter("test", io.Discard))
	m.SetWhatsAppSender(wa)
	m.now = func() time.Time { return fixedNow }
	return m, mail, wa
}

func leadCreatedEvent() events.LeadCreated {
	return events.LeadCreated{
		BaseEvent:       events.NewBaseEvent(),
		LeadID:          uuid.New(),
		LeadCode:        "LD-20240309-BALI-0042-ACME_TRAVELS",
		DestinationName: "Bali",
		AgentName:       "Acme Travels",
		Spoc:            events.Contact{Name: "Ravi", Email: "ravi@acme.example", Mobile: "+919876543210"},
	}
}

func quotationEvent(sendVia ...string) events.QuotationRevised {
	return events.QuotationRevised{
		BaseEvent:        events.NewBaseEvent(),
		LeadID:           uuid.New(),
		LeadCode:         "LD-20240309-BALI-0042-ACME_TRAVELS",
		QuotationID:      uuid.New(),
		RevisionNumber:   2,
		TotalPrice:       50000,
		Currency:         "INR",
		ItineraryContent: "Day 1: Ubud\nDay 2: Seminyak",
		Note:             "Flights excluded",
		SendVia:          sendVia,
		DestinationName:  "Bali",
		Spoc:             events.Contact{Name: "Ravi", Email: "ravi@acme.example", Mobile: "98765 43210"},
		SentByName:       "Asha",
	}
}

func TestLeadCreatedSendsEmailAndWhatsApp(t *testing.T) {
	m, mail, wa := newTestModule(t)

	require.NoError(t, m.Handle(context.Background(), leadCreatedEvent()))

	require.Len(t, mail.sent, 1)
	assert.Equal(t, "ravi@acme.example", mail.sent[0].To)
	assert.Equal(t, "Your Bali enquiry LD-20240309-BALI-0042-ACME_TRAVELS", mail.sent[0].Subject)
	require.Len(t, wa.sent, 1)
	assert.Equal(t, "+919876543210", wa.sent[0].Phone)
	assert.Contains(t, wa.sent[0].Message, "Hello Ravi")
}

func TestLeadCreatedWithoutContactsSendsNothing(t *testing.T) {
	m, mail, wa := newTestModule(t)
	evt := leadCreatedEvent()
	evt.Spoc = events.Contact{Name: "Ravi"}

	require.NoError(t, m.Handle(context.Background(), evt))
	assert.Empty(t, mail.sent)
	assert.Empty(t, wa.sent)
}

func TestDeliveryFailureIsDependencyErrorAndDoesNotBlockOtherChannels(t *testing.T) {
	m, mail, wa := newTestModule(t)
	mail.err = errors.New("smtp down")

	err := m.Handle(context.Background(), leadCreatedEvent())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindDependency))
	assert.Len(t, wa.sent, 1)
}

func TestWhatsAppWithoutSenderFails(t *testing.T) {
	mail := &fakeEmailSender{}
	m := New(mail, &config.Config{}, logger.NewWithWriter("test", io.Discard))

	err := m.Handle(context.Background(), quotationEvent("whatsapp"))
	require.ErrorIs(t, err, errWhatsAppNotConfigured)
}

func TestLeadAssignedNotifiesEachRecipient(t *testing.T) {
	m, mail, _ := newTestModule(t)
	prevID, nextID := uuid.New(), uuid.New()
	evt := events.LeadAssigned{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         uuid.New(),
		LeadCode:       "LD-1",
		PreviousID:     &prevID,
		PreviousName:   "Meera",
		NewOwnerID:     nextID,
		NewOwnerName:   "Kabir",
		AssignedByName: "Admin",
		Spoc:           events.Contact{Name: "Ravi", Mobile: "+919876543210"},
		Recipients: []events.Contact{
			{UserID: &nextID, Name: "Kabir", Email: "kabir@desk.example"},
			{UserID: &prevID, Name: "Meera", Email: "meera@desk.example"},
			{Name: "No Mail"},
		},
	}

	require.NoError(t, m.Handle(context.Background(), evt))

	require.Len(t, mail.sent, 2)
	byTo := map[string]sentEmail{}
	for _, s := range mail.sent {
		byTo[s.To] = s
	}
	assert.Equal(t, "Lead LD-1 assigned to you", byTo["kabir@desk.example"].Subject)
	assert.Equal(t, "Lead LD-1 reassigned to Kabir", byTo["meera@desk.example"].Subject)
	assert.Contains(t, byTo["kabir@desk.example"].Body, "https://wa.me/919876543210?text=")
	assert.Contains(t, byTo["kabir@desk.example"].Body, "https://crm.example/leads/"+evt.LeadID.String())
}

func TestQuotationRevisedUsesRequestedChannels(t *testing.T) {
	m, mail, wa := newTestModule(t)

	require.NoError(t, m.Handle(context.Background(), quotationEvent("email", "whatsapp")))

	require.Len(t, mail.sent, 1)
	assert.Contains(t, mail.sent[0].Subject, "v2")
	assert.Contains(t, mail.sent[0].Body, "INR 50,000.00")
	require.Len(t, wa.sent, 1)
	assert.Equal(t, "+919876543210", wa.sent[0].Phone)
	assert.Contains(t, wa.sent[0].Message, "Total: INR 50,000.00")
	assert.Contains(t, wa.sent[0].Message, "Day 2: Seminyak")

	mail.sent, wa.sent = nil, nil
	require.NoError(t, m.Handle(context.Background(), quotationEvent("whatsapp")))
	assert.Empty(t, mail.sent)
	assert.Len(t, wa.sent, 1)
}

func TestQuotationWhatsAppFlattensItineraryMarkup(t *testing.T) {
	m, mail, wa := newTestModule(t)
	evt := quotationEvent("email", "whatsapp")
	evt.ItineraryContent = "<h2>Day 1</h2><ul><li><b>Ubud</b> &amp; rice terraces</li></ul>"

	require.NoError(t, m.Handle(context.Background(), evt))

	require.Len(t, mail.sent, 1)
	assert.Contains(t, mail.sent[0].Body, "<li><b>Ubud</b> &amp; rice terraces</li>")
	require.Len(t, wa.sent, 1)
	assert.Contains(t, wa.sent[0].Message, "Day 1\n- Ubud & rice terraces")
	assert.NotContains(t, wa.sent[0].Message, "<li>")
}

func TestOutboxModeQueuesThenDeliversOnDue(t *testing.T) {
	m, mail, wa := newTestModule(t)
	store := newFakeOutbox()
	m.SetNotificationOutbox(store)
	ctx := context.Background()

	evt := quotationEvent("email", "whatsapp")
	require.NoError(t, m.Handle(ctx, evt))
	assert.Empty(t, mail.sent)
	assert.Empty(t, wa.sent)
	require.Len(t, store.order, 2)

	for _, id := range store.order {
		rec := store.records[id]
		assert.Equal(t, evt.LeadID, rec.LeadID)
		assert.Equal(t, fixedNow, rec.RunAt)
		require.NoError(t, m.Handle(ctx, events.NotificationOutboxDue{BaseEvent: events.NewBaseEvent(), OutboxID: id, LeadID: rec.LeadID}))
		assert.Equal(t, notificationoutbox.StatusSucceeded, store.records[id].Status)
	}
	assert.Len(t, mail.sent, 1)
	assert.Len(t, wa.sent, 1)

	// A due event for a finished record is a no-op.
	require.NoError(t, m.Handle(ctx, events.NotificationOutboxDue{BaseEvent: events.NewBaseEvent(), OutboxID: store.order[0]}))
	assert.Len(t, mail.sent, 1)
}

func TestOutboxDeliveryFailureSchedulesRetryThenFails(t *testing.T) {
	m, mail, _ := newTestModule(t)
	store := newFakeOutbox()
	m.SetNotificationOutbox(store)
	ctx := context.Background()

	require.NoError(t, m.Handle(ctx, quotationEvent("email")))
	id := store.order[0]
	mail.err = errors.New("smtp down")

	due := events.NotificationOutboxDue{BaseEvent: events.NewBaseEvent(), OutboxID: id}
	require.NoError(t, m.Handle(ctx, due))
	require.Len(t, store.retries, 1)
	assert.Equal(t, fixedNow.Add(time.Minute), store.retries[0].RunAt)
	assert.Equal(t, notificationoutbox.StatusPending, store.records[id].Status)
	assert.Equal(t, "smtp down", store.errors[id])

	for store.records[id].Status == notificationoutbox.StatusPending {
		require.NoError(t, m.Handle(ctx, due))
	}
	assert.Equal(t, notificationoutbox.StatusFailed, store.records[id].Status)
	assert.Equal(t, maxOutboxRetryAttempts, store.records[id].Attempts)
	assert.Len(t, store.retries, maxOutboxRetryAttempts-1)
}

func TestOutboxRejectsMismatchedAndCorruptPayloads(t *testing.T) {
	m, _, _ := newTestModule(t)
	store := newFakeOutbox()
	m.SetNotificationOutbox(store)
	ctx := context.Background()

	corrupt := uuid.New()
	store.records[corrupt] = notificationoutbox.Record{ID: corrupt, Kind: kindEmail, Template: templateEmailSend, Payload: json.RawMessage(`{`), Status: notificationoutbox.StatusEnqueued}
	require.NoError(t, m.Handle(ctx, events.NotificationOutboxDue{OutboxID: corrupt}))
	assert.Equal(t, notificationoutbox.StatusFailed, store.records[corrupt].Status)
	assert.Contains(t, store.errors[corrupt], invalidOutboxPayloadPrefix)

	mismatched := uuid.New()
	payload, _ := json.Marshal(message{Kind: kindWhatsApp, To: "+919876543210", Body: "hi"})
	store.records[mismatched] = notificationoutbox.Record{ID: mismatched, Kind: kindEmail, Template: templateEmailSend, Payload: payload, Status: notificationoutbox.StatusEnqueued}
	require.NoError(t, m.Handle(ctx, events.NotificationOutboxDue{OutboxID: mismatched}))
	assert.Equal(t, "unsupported outbox record", store.errors[mismatched])

	require.NoError(t, m.Handle(ctx, events.NotificationOutboxDue{OutboxID: uuid.New()}))
}

func TestComputeOutboxRetryDelay(t *testing.T) {
	cases := map[int]time.Duration{
		0: time.Minute,
		1: time.Minute,
		2: 2 * time.Minute,
		4: 8 * time.Minute,
		7: 60 * time.Minute,
	}
	for attempt, want := range cases {
		assert.Equal(t, want, computeOutboxRetryDelay(attempt), "attempt %d", attempt)
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "INR 50,000.00", formatAmount("INR", 50000))
	assert.Equal(t, "USD 999.50", formatAmount("USD", 999.5))
	assert.Equal(t, "1,234,567.89", formatAmount("", 1234567.891))
}
