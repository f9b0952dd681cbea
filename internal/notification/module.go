// Package notification turns lead domain events into outbound email and
// WhatsApp messages. Domain services never call a provider directly: they
// publish after commit and this module delivers, either immediately or
// through the notification outbox drained by the scheduler.
package notification

import (
	"context"
	"errors"
	"time"

	"travel_leads_backend/internal/email"
	"travel_leads_backend/internal/events"
	notificationoutbox "travel_leads_backend/internal/notification/outbox"
	"travel_leads_backend/platform/apperr"
	"travel_leads_backend/platform/config"
	"travel_leads_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// WhatsAppSender sends WhatsApp messages.
type WhatsAppSender interface {
	SendMessage(ctx context.Context, phoneNumber string, message string) error
}

// OutboxStore persists messages for asynchronous delivery.
type OutboxStore interface {
	Insert(ctx context.Context, p notificationoutbox.InsertParams) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (notificationoutbox.Record, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	ScheduleRetry(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error
}

const (
	kindEmail    = "email"
	kindWhatsApp = "whatsapp"

	templateEmailSend    = "email_send"
	templateWhatsAppSend = "whatsapp_send"

	invalidOutboxPayloadPrefix = "invalid payload: "
	maxOutboxRetryAttempts     = 5
	outboxRetryBaseDelay       = time.Minute
	outboxRetryMaxDelay        = 60 * time.Minute
)

var errWhatsAppNotConfigured = errors.New("whatsapp sender not configured")

// Module handles all notification-related event subscriptions.
type Module struct {
	sender             email.Sender
	whatsapp           WhatsAppSender
	notificationOutbox OutboxStore
	cfg                config.NotificationConfig
	log                *logger.Logger
	now                func() time.Time
}

// New creates a notification module that delivers directly until an outbox
// is attached with SetNotificationOutbox.
func New(sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	return &Module{
		sender: sender,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// SetWhatsAppSender enables WhatsApp delivery.
func (m *Module) SetWhatsAppSender(sender WhatsAppSender) {
	m.whatsapp = sender
}

// SetNotificationOutbox switches the module to outbox mode.
func (m *Module) SetNotificationOutbox(store OutboxStore) {
	m.notificationOutbox = store
}

// RegisterHandlers subscribes the module to the events it reacts to.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), m)
	bus.Subscribe(events.LeadAssigned{}.EventName(), m)
	bus.Subscribe(events.QuotationRevised{}.EventName(), m)
	bus.Subscribe(events.NotificationOutboxDue{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadCreated:
		return m.handleLeadCreated(ctx, e)
	case events.LeadAssigned:
		return m.handleLeadAssigned(ctx, e)
	case events.QuotationRevised:
		return m.handleQuotationRevised(ctx, e)
	case events.NotificationOutboxDue:
		return m.handleNotificationOutboxDue(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

// dispatch queues msgs in the outbox, or delivers them concurrently when no
// outbox is configured. Every failure is logged; the returned error only
// reaches the event bus.
func (m *Module) dispatch(ctx context.Context, msgs []message) error {
	if len(msgs) == 0 {
		return nil
	}

	if m.notificationOutbox != nil {
		var errs []error
		for _, msg := range msgs {
			if _, err := m.notificationOutbox.Insert(ctx, msg.outboxParams(m.now().UTC())); err != nil {
				m.log.NotificationFailed(msg.Kind, msg.LeadID.String(), err)
				errs = append(errs, err)
			}
		}
		if err := errors.Join(errs...); err != nil {
			return apperr.Dependency("queue notification", err)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	failures := make([]error, len(msgs))
	for i, msg := range msgs {
		g.Go(func() error {
			if err := m.deliver(gctx, msg); err != nil {
				m.log.NotificationFailed(msg.Kind, msg.LeadID.String(), err)
				failures[i] = err
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := errors.Join(failures...); err != nil {
		return apperr.Dependency("deliver notification", err)
	}
	return nil
}

func (m *Module) deliver(ctx context.Context, msg message) error {
	switch msg.Kind {
	case kindEmail:
		return m.sender.SendEmail(ctx, msg.To, msg.ToName, msg.Subject, msg.Body)
	case kindWhatsApp:
		if m.whatsapp == nil {
			return errWhatsAppNotConfigured
		}
		return m.whatsapp.SendMessage(ctx, msg.To, msg.Body)
	default:
		return errors.New("unsupported notification kind " + msg.Kind)
	}
}
