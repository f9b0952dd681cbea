package notification

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"travel_leads_backend/internal/events"
	notificationoutbox "travel_leads_backend/internal/notification/outbox"

	"github.com/google/uuid"
)

func (m *Module) handleNotificationOutboxDue(ctx context.Context, e events.NotificationOutboxDue) error {
	if m.notificationOutbox == nil {
		m.log.Debug("notification outbox repository not configured; skipping outbox due event", "outboxId", e.OutboxID)
		return nil
	}
	m.log.Info("processing outbox due event", "outboxId", e.OutboxID, "leadId", e.LeadID)
	rec, process, err := m.prepareOutboxRecord(ctx, e.OutboxID)
	if err != nil || !process {
		if err != nil {
			m.log.Error("failed to prepare outbox record", "outboxId", e.OutboxID, "error", err)
		}
		return err
	}

	var msg message
	if err := json.Unmarshal(rec.Payload, &msg); err != nil {
		_ = m.notificationOutbox.MarkFailed(ctx, rec.ID, invalidOutboxPayloadPrefix+err.Error())
		return nil
	}
	if msg.Kind != rec.Kind || msg.template() != rec.Template {
		m.markOutboxUnsupported(ctx, rec)
		return nil
	}
	if strings.TrimSpace(msg.To) == "" {
		m.log.Debug("outbox payload has no recipient; marking succeeded", "outboxId", rec.ID.String())
		_ = m.notificationOutbox.MarkSucceeded(ctx, rec.ID)
		return nil
	}
	if msg.Kind == kindWhatsApp && m.whatsapp == nil {
		_ = m.notificationOutbox.MarkFailed(ctx, rec.ID, errWhatsAppNotConfigured.Error())
		m.log.NotificationFailed(msg.Kind, rec.LeadID.String(), errWhatsAppNotConfigured)
		return nil
	}

	if err := m.deliver(ctx, msg); err != nil {
		m.log.NotificationFailed(msg.Kind, rec.LeadID.String(), err)
		m.handleOutboxDeliveryError(ctx, rec, err)
		return nil
	}
	if err := m.notificationOutbox.MarkSucceeded(ctx, rec.ID); err != nil {
		return err
	}
	m.log.Info("outbox record processed successfully", "outboxId", rec.ID.String(), "kind", rec.Kind, "template", rec.Template)
	return nil
}

func (m *Module) prepareOutboxRecord(ctx context.Context, outboxID uuid.UUID) (notificationoutbox.Record, bool, error) {
	rec, err := m.notificationOutbox.GetByID(ctx, outboxID)
	if errors.Is(err, notificationoutbox.ErrNotFound) {
		m.log.Warn("outbox record not found; skipping", "outboxId", outboxID)
		return notificationoutbox.Record{}, false, nil
	}
	if err != nil {
		return notificationoutbox.Record{}, false, err
	}
	if rec.Status == notificationoutbox.StatusSucceeded || rec.Status == notificationoutbox.StatusFailed {
		m.log.Debug("outbox record already finished; skipping", "outboxId", rec.ID.String(), "status", rec.Status)
		return rec, false, nil
	}
	if err := m.notificationOutbox.MarkProcessing(ctx, rec.ID); err != nil {
		return notificationoutbox.Record{}, false, err
	}
	m.log.Debug("outbox record marked processing", "outboxId", rec.ID.String(), "kind", rec.Kind, "template", rec.Template)
	return rec, true, nil
}

func (m *Module) markOutboxUnsupported(ctx context.Context, rec notificationoutbox.Record) {
	_ = m.notificationOutbox.MarkFailed(ctx, rec.ID, "unsupported outbox record")
	m.log.Warn("unsupported outbox record", "outboxId", rec.ID.String(), "kind", rec.Kind, "template", rec.Template)
}

// handleOutboxDeliveryError reschedules with exponential backoff until the
// attempt budget is spent. rec.Attempts is the count before this attempt.
func (m *Module) handleOutboxDeliveryError(ctx context.Context, rec notificationoutbox.Record, deliveryErr error) {
	attempt := rec.Attempts + 1
	if attempt >= maxOutboxRetryAttempts {
		_ = m.notificationOutbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		m.log.Warn("notification outbox exhausted retries",
			"outboxId", rec.ID.String(),
			"kind", rec.Kind,
			"attempt", attempt,
			"maxAttempts", maxOutboxRetryAttempts,
			"error", deliveryErr,
		)
		return
	}

	retryAt := m.now().UTC().Add(computeOutboxRetryDelay(attempt))
	if err := m.notificationOutbox.ScheduleRetry(ctx, rec.ID, retryAt, deliveryErr.Error()); err != nil {
		_ = m.notificationOutbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		m.log.Error("notification outbox retry scheduling failed; marked failed",
			"outboxId", rec.ID.String(),
			"attempt", attempt,
			"error", err,
		)
		return
	}

	m.log.Warn("notification outbox scheduled retry",
		"outboxId", rec.ID.String(),
		"kind", rec.Kind,
		"attempt", attempt,
		"retryAt", retryAt,
		"error", deliveryErr,
	)
}

func computeOutboxRetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := outboxRetryBaseDelay << (attempt - 1)
	if delay > outboxRetryMaxDelay {
		return outboxRetryMaxDelay
	}
	return delay
}
