// Package email delivers transactional HTML email.
package email

import (
	"context"
	"strings"

	"travel_leads_backend/platform/config"
	"travel_leads_backend/platform/logger"
)

// Sender sends one HTML email.
type Sender interface {
	SendEmail(ctx context.Context, toEmail, toName, subject, htmlBody string) error
}

// NoopSender logs instead of sending. Used when SMTP is not configured.
type NoopSender struct {
	log *logger.Logger
}

func NewNoopSender(log *logger.Logger) *NoopSender {
	return &NoopSender{log: log}
}

func (s *NoopSender) SendEmail(_ context.Context, toEmail, _, subject, _ string) error {
	s.log.Info("email disabled; skipping send", "to", toEmail, "subject", subject)
	return nil
}

// NewSender returns an SMTP sender when email is enabled and a NoopSender otherwise.
func NewSender(cfg config.EmailConfig, log *logger.Logger) Sender {
	if !cfg.GetEmailEnabled() || strings.TrimSpace(cfg.GetSMTPHost()) == "" {
		return NewNoopSender(log)
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}
