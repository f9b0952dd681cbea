package timeline

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"travel_leads_backend/platform/apperr"

	"github.com/google/uuid"
)

// Payload is the typed metadata of one event type. Each variant validates
// its own required fields before it is flattened into the shared key set.
type Payload interface {
	EventType() string
	Validate() error
	Fields() map[string]any
}

// toMap serialises any struct to map[string]any via JSON round-trip so the
// keys exactly match the JSON tags.
func toMap(v any) map[string]any {
	b, _ := json.Marshal(v)
	var out map[string]any
	_ = json.Unmarshal(b, &out)
	return out
}

// CreatedPayload is the metadata of the first event of every lead.
type CreatedPayload struct {
	LeadCode        string `json:"leadCode"`
	Source          string `json:"source"`
	Stage           string `json:"stage"`
	RecipientName   string `json:"recipientName,omitempty"`
	RecipientEmail  string `json:"recipientEmail,omitempty"`
	RecipientMobile string `json:"recipientMobile,omitempty"`
}

func (CreatedPayload) EventType() string        { return EventTypeCreated }
func (p CreatedPayload) Fields() map[string]any { return toMap(p) }

func (p CreatedPayload) Validate() error {
	if strings.TrimSpace(p.LeadCode) == "" {
		return apperr.Validation("created event requires a lead code")
	}
	return nil
}

// StageChangePayload is the metadata of manual transitions and reopens.
type StageChangePayload struct {
	Stage  string `json:"stage"`
	Remark string `json:"remark"`
	From   string `json:"from"`
	To     string `json:"to"`
}

func (StageChangePayload) EventType() string        { return EventTypeStageChanged }
func (p StageChangePayload) Fields() map[string]any { return toMap(p) }

func (p StageChangePayload) Validate() error {
	if strings.TrimSpace(p.Stage) == "" {
		return apperr.Validation("stage change event requires a stage")
	}
	return nil
}

// QuotationPayload is the metadata of a quotation revision.
type QuotationPayload struct {
	QuotationID      uuid.UUID `json:"quotationId"`
	Revision         int       `json:"revision"`
	Amount           float64   `json:"amount"`
	Currency         string    `json:"currency"`
	SendVia          []string  `json:"sendVia"`
	ItineraryContent string    `json:"itineraryContent"`
	Notes            string    `json:"notes"`
	RecipientName    string    `json:"recipientName,omitempty"`
	RecipientEmail   string    `json:"recipientEmail,omitempty"`
	RecipientMobile  string    `json:"recipientMobile,omitempty"`
}

func (QuotationPayload) EventType() string        { return EventTypeQuotation }
func (p QuotationPayload) Fields() map[string]any { return toMap(p) }

func (p QuotationPayload) Validate() error {
	if p.Revision < 1 {
		return apperr.Validation("quotation event requires a revision")
	}
	if p.Amount <= 0 {
		return apperr.Validation("quotation event requires a positive amount")
	}
	if strings.TrimSpace(p.ItineraryContent) == "" {
		return apperr.Validation("quotation event requires itinerary content")
	}
	return nil
}

// FollowUpPayload is the metadata of a logged follow-up.
type FollowUpPayload struct {
	Channel        string     `json:"channel"`
	Outcome        string     `json:"outcome"`
	Notes          string     `json:"notes"`
	NextFollowUpAt *time.Time `json:"nextFollowUpAt"`
	Stage          string     `json:"stage,omitempty"`
}

func (FollowUpPayload) EventType() string        { return EventTypeFollowUp }
func (p FollowUpPayload) Fields() map[string]any { return toMap(p) }

func (p FollowUpPayload) Validate() error {
	if strings.TrimSpace(p.Channel) == "" {
		return apperr.Validation("follow-up event requires a channel")
	}
	return nil
}

// AssignmentPayload is the metadata of an ownership transfer.
type AssignmentPayload struct {
	FromID   *uuid.UUID `json:"fromId"`
	FromName string     `json:"fromName"`
	ToID     uuid.UUID  `json:"toId"`
	ToName   string     `json:"toName"`
}

func (AssignmentPayload) EventType() string        { return EventTypeAssigned }
func (p AssignmentPayload) Fields() map[string]any { return toMap(p) }

func (p AssignmentPayload) Validate() error {
	if p.ToID == uuid.Nil {
		return apperr.Validation("assignment event requires a new owner")
	}
	return nil
}

// RemarkPayload is the metadata of a free-text remark.
type RemarkPayload struct {
	Remark string `json:"remark"`
}

func (RemarkPayload) EventType() string        { return EventTypeRemark }
func (p RemarkPayload) Fields() map[string]any { return toMap(p) }

func (p RemarkPayload) Validate() error {
	if strings.TrimSpace(p.Remark) == "" {
		return apperr.Validation("remark is required")
	}
	return nil
}

// NormalizeMetadata maps a caller-supplied metadata map onto the fixed key
// set. Keys outside the set are dropped. Text keys default to "", sendVia to
// an empty list, currency to defaultCurrency and the rest to nil.
func NormalizeMetadata(raw map[string]any, defaultCurrency string) map[string]any {
	if defaultCurrency == "" {
		defaultCurrency = DefaultCurrency
	}

	out := make(map[string]any, len(textKeys)+len(nullableKeys)+2)
	for _, key := range textKeys {
		out[key] = textValue(raw[key])
	}
	for _, key := range nullableKeys {
		out[key] = nil
	}

	if amount := numberValue(firstPresent(raw, KeyAmount, aliasTotalPrice)); amount != nil {
		out[KeyAmount] = *amount
	}
	if rev := numberValue(firstPresent(raw, KeyRevision, aliasRevisionNumber)); rev != nil {
		out[KeyRevision] = int(*rev)
	}
	if notes := textValue(firstPresent(raw, KeyNotes, aliasNote)); notes != "" {
		out[KeyNotes] = notes
	}

	currency := strings.ToUpper(textValue(raw[KeyCurrency]))
	if currency == "" {
		currency = defaultCurrency
	}
	out[KeyCurrency] = currency
	out[KeySendVia] = listValue(raw[KeySendVia])

	for _, key := range []string{KeyQuotationID, KeyFromID, KeyToID, KeyNextFollowUpAt} {
		if s := textValue(raw[key]); s != "" {
			out[key] = s
		}
	}
	return out
}

func firstPresent(raw map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := raw[key]; ok && v != nil {
			if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
				continue
			}
			return v
		}
	}
	return nil
}

func textValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.UTC().Format(time.RFC3339)
	case uuid.UUID:
		if t == uuid.Nil {
			return ""
		}
		return t.String()
	case *uuid.UUID:
		if t == nil || *t == uuid.Nil {
			return ""
		}
		return t.String()
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func numberValue(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}

func listValue(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case []string:
		for _, s := range t {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range t {
			if s := strings.ToLower(textValue(item)); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, part := range strings.Split(t, ",") {
			if s := strings.ToLower(strings.TrimSpace(part)); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
