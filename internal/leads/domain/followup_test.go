package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectForOutcome(t *testing.T) {
	tests := []struct {
		outcome string
		want    OutcomeEffect
	}{
		{"quote_requested", OutcomeEffect{Stage: StageQuoted, ChangesStage: true}},
		{"interested", OutcomeEffect{Stage: StageFollowUp, ChangesStage: true}},
		{"lost", OutcomeEffect{Stage: StageClosedLost, ChangesStage: true, ClearNextAction: true}},
		{"NOT_INTERESTED", OutcomeEffect{Stage: StageClosedLost, ChangesStage: true, ClearNextAction: true}},
		{"connected", OutcomeEffect{}},
		{"", OutcomeEffect{}},
	}
	for _, tt := range tests {
		t.Run(tt.outcome, func(t *testing.T) {
			assert.Equal(t, tt.want, EffectForOutcome(tt.outcome))
		})
	}
}

func TestFollowUpTitle(t *testing.T) {
	assert.Equal(t, "Follow-up via WHATSAPP", FollowUpTitle(ChannelWhatsApp))
}

func TestParseChannel(t *testing.T) {
	c, ok := ParseChannel("Meeting")
	assert.True(t, ok)
	assert.Equal(t, ChannelMeeting, c)

	_, ok = ParseChannel("fax")
	assert.False(t, ok)
}
