package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"travel_leads_backend/internal/email"
	"travel_leads_backend/internal/events"
	notificationoutbox "travel_leads_backend/internal/notification/outbox"
	"travel_leads_backend/internal/whatsapp"
	"travel_leads_backend/platform/phone"
	"travel_leads_backend/platform/sanitize"

	"github.com/google/uuid"
)

// message is one outbound delivery. It doubles as the outbox payload.
type message struct {
	Kind    string    `json:"kind"`
	LeadID  uuid.UUID `json:"leadId"`
	To      string    `json:"to"`
	ToName  string    `json:"toName,omitempty"`
	Subject string    `json:"subject,omitempty"`
	Body    string    `json:"body"`
}

func (msg message) template() string {
	if msg.Kind == kindWhatsApp {
		return templateWhatsAppSend
	}
	return templateEmailSend
}

func (msg message) outboxParams(now time.Time) notificationoutbox.InsertParams {
	return notificationoutbox.InsertParams{
		LeadID:   msg.LeadID,
		Kind:     msg.Kind,
		Template: msg.template(),
		Payload:  msg,
		RunAt:    now,
	}
}

func (m *Module) handleLeadCreated(ctx context.Context, e events.LeadCreated) error {
	var msgs []message

	if addr := strings.TrimSpace(e.Spoc.Email); addr != "" {
		body, err := email.RenderLeadWelcome(email.LeadWelcomeData{
			SpocName:        e.Spoc.Name,
			AgentName:       e.AgentName,
			DestinationName: e.DestinationName,
			LeadCode:        e.LeadCode,
		})
		if err != nil {
			m.log.NotificationFailed(kindEmail, e.LeadID.String(), err)
		} else {
			msgs = append(msgs, message{
				Kind:    kindEmail,
				LeadID:  e.LeadID,
				To:      addr,
				ToName:  e.Spoc.Name,
				Subject: fmt.Sprintf("Your %s enquiry %s", e.DestinationName, e.LeadCode),
				Body:    body,
			})
		}
	}

	if mobile := phone.NormalizeE164(e.Spoc.Mobile); mobile != "" {
		msgs = append(msgs, message{
			Kind:   kindWhatsApp,
			LeadID: e.LeadID,
			To:     mobile,
			ToName: e.Spoc.Name,
			Body:   leadWelcomeWhatsApp(e),
		})
	}

	return m.dispatch(ctx, msgs)
}

func leadWelcomeWhatsApp(e events.LeadCreated) string {
	greeting := "Hello"
	if name := strings.TrimSpace(e.Spoc.Name); name != "" {
		greeting += " " + name
	}
	return fmt.Sprintf("%s, thank you for your %s enquiry via %s. Your reference is %s. We will be in touch shortly.",
		greeting, e.DestinationName, e.AgentName, e.LeadCode)
}

func (m *Module) handleLeadAssigned(ctx context.Context, e events.LeadAssigned) error {
	chatLink := whatsapp.MessagingLink(e.Spoc.Mobile, fmt.Sprintf("Hello %s, regarding your enquiry %s", strings.TrimSpace(e.Spoc.Name), e.LeadCode))

	msgs := make([]message, 0, len(e.Recipients))
	for _, recipient := range e.Recipients {
		addr := strings.TrimSpace(recipient.Email)
		if addr == "" {
			continue
		}
		isNewOwner := recipient.UserID != nil && *recipient.UserID == e.NewOwnerID
		body, err := email.RenderLeadAssigned(email.LeadAssignedData{
			RecipientName:  recipient.Name,
			LeadCode:       e.LeadCode,
			AssignedByName: e.AssignedByName,
			NewOwnerName:   e.NewOwnerName,
			Previous:       !isNewOwner,
			LeadURL:        m.leadURL(e.LeadID),
			SpocName:       e.Spoc.Name,
			SpocChatLink:   chatLink,
		})
		if err != nil {
			m.log.NotificationFailed(kindEmail, e.LeadID.String(), err)
			continue
		}
		subject := "Lead " + e.LeadCode + " assigned to you"
		if !isNewOwner {
			subject = "Lead " + e.LeadCode + " reassigned to " + e.NewOwnerName
		}
		msgs = append(msgs, message{
			Kind:    kindEmail,
			LeadID:  e.LeadID,
			To:      addr,
			ToName:  recipient.Name,
			Subject: subject,
			Body:    body,
		})
	}
	return m.dispatch(ctx, msgs)
}

func (m *Module) handleQuotationRevised(ctx context.Context, e events.QuotationRevised) error {
	total := formatAmount(e.Currency, e.TotalPrice)

	var msgs []message
	for _, channel := range e.SendVia {
		switch channel {
		case kindEmail:
			addr := strings.TrimSpace(e.Spoc.Email)
			if addr == "" {
				m.log.Warn("quotation email skipped; SPOC has no email", "leadId", e.LeadID)
				continue
			}
			body, err := email.RenderQuotation(email.QuotationData{
				SpocName:         e.Spoc.Name,
				DestinationName:  e.DestinationName,
				LeadCode:         e.LeadCode,
				RevisionNumber:   e.RevisionNumber,
				TotalFormatted:   total,
				ItineraryContent: e.ItineraryContent,
				Note:             e.Note,
				SentByName:       e.SentByName,
			})
			if err != nil {
				m.log.NotificationFailed(kindEmail, e.LeadID.String(), err)
				continue
			}
			msgs = append(msgs, message{
				Kind:    kindEmail,
				LeadID:  e.LeadID,
				To:      addr,
				ToName:  e.Spoc.Name,
				Subject: fmt.Sprintf("Quotation for %s (%s, v%d)", e.DestinationName, e.LeadCode, e.RevisionNumber),
				Body:    body,
			})
		case kindWhatsApp:
			mobile := phone.NormalizeE164(e.Spoc.Mobile)
			if mobile == "" {
				m.log.Warn("quotation whatsapp skipped; SPOC has no mobile", "leadId", e.LeadID)
				continue
			}
			msgs = append(msgs, message{
				Kind:   kindWhatsApp,
				LeadID: e.LeadID,
				To:     mobile,
				ToName: e.Spoc.Name,
				Body:   quotationWhatsApp(e, total),
			})
		}
	}
	return m.dispatch(ctx, msgs)
}

func quotationWhatsApp(e events.QuotationRevised, total string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Quotation %s (revision %d) for %s\n", e.LeadCode, e.RevisionNumber, e.DestinationName)
	fmt.Fprintf(&b, "Total: %s\n\n", total)
	b.WriteString(sanitize.HTMLToText(e.ItineraryContent))
	if note := strings.TrimSpace(e.Note); note != "" {
		b.WriteString("\n\n")
		b.WriteString(note)
	}
	return b.String()
}

func (m *Module) leadURL(leadID uuid.UUID) string {
	if m.cfg == nil {
		return ""
	}
	base := strings.TrimRight(m.cfg.GetAppBaseURL(), "/")
	if base == "" {
		return ""
	}
	return base + "/leads/" + leadID.String()
}

// formatAmount renders 50000 as "INR 50,000.00".
func formatAmount(currency string, amount float64) string {
	raw := fmt.Sprintf("%.2f", amount)
	intPart, frac, _ := strings.Cut(raw, ".")
	negative := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + "." + frac
	if negative {
		out = "-" + out
	}
	if currency = strings.TrimSpace(currency); currency != "" {
		out = currency + " " + out
	}
	return out
}
