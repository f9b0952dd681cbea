package timeline

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allKeys() []string {
	keys := append([]string{}, textKeys...)
	keys = append(keys, nullableKeys...)
	return append(keys, KeyCurrency, KeySendVia)
}

func TestNormalizeMetadataEmptyInputHasEveryKey(t *testing.T) {
	out := NormalizeMetadata(nil, "")

	for _, key := range allKeys() {
		_, ok := out[key]
		assert.True(t, ok, "missing key %s", key)
	}
	assert.Len(t, out, len(allKeys()))
	assert.Equal(t, "INR", out[KeyCurrency])
	assert.Equal(t, []string{}, out[KeySendVia])
	assert.Nil(t, out[KeyAmount])
	assert.Nil(t, out[KeyRevision])
	assert.Equal(t, "", out[KeyNotes])
}

func TestNormalizeMetadataLegacyAliases(t *testing.T) {
	out := NormalizeMetadata(map[string]any{
		"totalPrice":     "50000",
		"revisionNumber": 3,
		"note":           "window seats",
		"sendVia":        []any{"Email", " whatsapp "},
		"currency":       "usd",
		"unexpected":     true,
	}, "INR")

	assert.Equal(t, 50000.0, out[KeyAmount])
	assert.Equal(t, 3, out[KeyRevision])
	assert.Equal(t, "window seats", out[KeyNotes])
	assert.Equal(t, []string{"email", "whatsapp"}, out[KeySendVia])
	assert.Equal(t, "USD", out[KeyCurrency])
	assert.NotContains(t, out, "unexpected")
}

func TestNormalizeMetadataCanonicalKeysWinOverAliases(t *testing.T) {
	out := NormalizeMetadata(map[string]any{"amount": 10.0, "totalPrice": 20.0, "notes": "a", "note": "b"}, "")
	assert.Equal(t, 10.0, out[KeyAmount])
	assert.Equal(t, "a", out[KeyNotes])
}

func TestQuotationPayloadFlattensToKeySet(t *testing.T) {
	qid := uuid.New()
	p := QuotationPayload{QuotationID: qid, Revision: 2, Amount: 1200.5, ItineraryContent: "Day 1", SendVia: []string{"email"}}
	require.NoError(t, p.Validate())

	out := NormalizeMetadata(p.Fields(), "INR")
	assert.Equal(t, qid.String(), out[KeyQuotationID])
	assert.Equal(t, 2, out[KeyRevision])
	assert.Equal(t, 1200.5, out[KeyAmount])
	assert.Equal(t, "INR", out[KeyCurrency])
}

func TestFollowUpPayloadKeepsTimestamp(t *testing.T) {
	due := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	out := NormalizeMetadata(FollowUpPayload{Channel: "call", Outcome: "connected", NextFollowUpAt: &due}.Fields(), "")
	assert.Equal(t, "2024-05-01T09:30:00Z", out[KeyNextFollowUpAt])
	assert.Equal(t, "call", out[KeyChannel])

	out = NormalizeMetadata(FollowUpPayload{Channel: "call"}.Fields(), "")
	assert.Nil(t, out[KeyNextFollowUpAt])
}

func TestPayloadValidation(t *testing.T) {
	assert.Error(t, QuotationPayload{Revision: 1, Amount: 0, ItineraryContent: "x"}.Validate())
	assert.Error(t, QuotationPayload{Revision: 1, Amount: 10}.Validate())
	assert.Error(t, StageChangePayload{}.Validate())
	assert.Error(t, AssignmentPayload{}.Validate())
	assert.Error(t, RemarkPayload{Remark: "  "}.Validate())
	assert.Error(t, FollowUpPayload{}.Validate())
	assert.Error(t, CreatedPayload{}.Validate())
}
