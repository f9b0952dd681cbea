package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"travel_leads_backend/platform/sanitize"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type baseEmailData struct {
	Title   string
	Heading string
	// CTALabel and CTAURL render a button when both are set.
	CTALabel string
	CTAURL   string
}

// LeadWelcomeData fills the SPOC welcome mail sent when a lead is created.
type LeadWelcomeData struct {
	SpocName        string
	AgentName       string
	DestinationName string
	LeadCode        string
}

// LeadAssignedData fills the owner notification sent on (re)assignment.
type LeadAssignedData struct {
	RecipientName  string
	LeadCode       string
	AssignedByName string
	NewOwnerName   string
	Previous       bool
	LeadURL        string
	SpocName       string
	// SpocChatLink is a wa.me link that opens a chat with the SPOC.
	SpocChatLink string
}

// QuotationData fills the itinerary mail of a quotation revision.
type QuotationData struct {
	SpocName         string
	DestinationName  string
	LeadCode         string
	RevisionNumber   int
	TotalFormatted   string
	ItineraryContent string
	Note             string
	SentByName       string
}

type leadWelcomeEmailData struct {
	baseEmailData
	LeadWelcomeData
}

type leadAssignedEmailData struct {
	baseEmailData
	LeadAssignedData
}

type quotationEmailData struct {
	baseEmailData
	QuotationData
	ItineraryHTML template.HTML
}

// RenderLeadWelcome renders the lead_welcome template.
func RenderLeadWelcome(d LeadWelcomeData) (string, error) {
	return renderEmailTemplate("lead_welcome.html", leadWelcomeEmailData{
		baseEmailData: baseEmailData{
			Title:   "Your enquiry " + d.LeadCode,
			Heading: "Thank you for your enquiry",
		},
		LeadWelcomeData: d,
	})
}

// RenderLeadAssigned renders the lead_assigned template.
func RenderLeadAssigned(d LeadAssignedData) (string, error) {
	heading := "A lead was assigned to you"
	if d.Previous {
		heading = "A lead was reassigned"
	}
	return renderEmailTemplate("lead_assigned.html", leadAssignedEmailData{
		baseEmailData: baseEmailData{
			Title:    "Lead " + d.LeadCode,
			Heading:  heading,
			CTALabel: ctaLabel(d.LeadURL, "Open lead"),
			CTAURL:   d.LeadURL,
		},
		LeadAssignedData: d,
	})
}

// RenderQuotation renders the quotation template.
func RenderQuotation(d QuotationData) (string, error) {
	return renderEmailTemplate("quotation.html", quotationEmailData{
		baseEmailData: baseEmailData{
			Title:   fmt.Sprintf("Quotation %s v%d", d.LeadCode, d.RevisionNumber),
			Heading: "Your travel quotation for " + d.DestinationName,
		},
		QuotationData: d,
		// Itineraries are rich text; only allow-listed markup reaches the mail.
		ItineraryHTML: template.HTML(sanitize.RichText(d.ItineraryContent)),
	})
}

func ctaLabel(url, label string) string {
	if url == "" {
		return ""
	}
	return label
}

func renderEmailTemplate(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
