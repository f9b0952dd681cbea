package timeline

// EventType constants identify the nature of a timeline event.
const (
	EventTypeCreated      = "created"
	EventTypeStageChanged = "stage_changed"
	EventTypeFollowUp     = "follow_up"
	EventTypeQuotation    = "quotation"
	EventTypeAssigned     = "assigned"
	EventTypeRemark       = "remark"
)

var knownEventTypes = map[string]struct{}{
	EventTypeCreated:      {},
	EventTypeStageChanged: {},
	EventTypeFollowUp:     {},
	EventTypeQuotation:    {},
	EventTypeAssigned:     {},
	EventTypeRemark:       {},
}

// EventTitle constants are the fixed labels shown in the timeline UI.
// Titles with a variable part are built by their owning package.
const (
	EventTitleLeadCreated    = "Lead Created"
	EventTitleLeadReopened   = "Lead Reopened"
	EventTitleQuotationSent  = "Quotation Sent"
	EventTitleLeadAssigned   = "Lead Assigned"
	EventTitleLeadReassigned = "Lead Reassigned"
	EventTitleRemarkAdded    = "Remark Added"
)

// DefaultCurrency applies when a quotation carries no currency.
const DefaultCurrency = "INR"

// Metadata keys. Every normalized metadata map carries all of them.
const (
	KeyAmount           = "amount"
	KeyCurrency         = "currency"
	KeyRevision         = "revision"
	KeySendVia          = "sendVia"
	KeyItineraryContent = "itineraryContent"
	KeyNotes            = "notes"
	KeyQuotationID      = "quotationId"
	KeyRecipientEmail   = "recipientEmail"
	KeyRecipientMobile  = "recipientMobile"
	KeyRecipientName    = "recipientName"
	KeyStage            = "stage"
	KeyRemark           = "remark"
	KeyFrom             = "from"
	KeyTo               = "to"
	KeyChannel          = "channel"
	KeyOutcome          = "outcome"
	KeyNextFollowUpAt   = "nextFollowUpAt"
	KeyFromID           = "fromId"
	KeyFromName         = "fromName"
	KeyToID             = "toId"
	KeyToName           = "toName"
	KeyLeadCode         = "leadCode"
	KeySource           = "source"
)

// Legacy aliases some callers still send.
const (
	aliasTotalPrice     = "totalPrice"
	aliasRevisionNumber = "revisionNumber"
	aliasNote           = "note"
)

// textKeys default to "" and nullableKeys default to nil.
var (
	textKeys = []string{
		KeyItineraryContent, KeyNotes, KeyRecipientEmail, KeyRecipientMobile, KeyRecipientName,
		KeyStage, KeyRemark, KeyFrom, KeyTo, KeyChannel, KeyOutcome, KeyFromName, KeyToName,
		KeyLeadCode, KeySource,
	}
	nullableKeys = []string{KeyAmount, KeyRevision, KeyQuotationID, KeyNextFollowUpAt, KeyFromID, KeyToID}
)
