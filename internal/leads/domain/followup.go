package domain

import "strings"

// Channel is how a follow-up interaction happened.
type Channel string

const (
	ChannelCall     Channel = "call"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelMeeting  Channel = "meeting"
	ChannelEmail    Channel = "email"
)

// ParseChannel accepts a channel name case-insensitively.
func ParseChannel(raw string) (Channel, bool) {
	c := Channel(strings.ToLower(strings.TrimSpace(raw)))
	switch c {
	case ChannelCall, ChannelWhatsApp, ChannelMeeting, ChannelEmail:
		return c, true
	}
	return "", false
}

// Outcome codes with a fixed stage effect. Any other code is accepted and
// leaves the stage alone.
const (
	OutcomeQuoteRequested = "quote_requested"
	OutcomeInterested     = "interested"
	OutcomeNotInterested  = "not_interested"
	OutcomeLost           = "lost"
	OutcomeConnected      = "connected"
)

// NextActionFollowUp is the next-action type set by a scheduled follow-up.
const NextActionFollowUp = "follow_up"

// OutcomeEffect is what a follow-up outcome does to the lead.
type OutcomeEffect struct {
	Stage           Stage
	ChangesStage    bool
	ClearNextAction bool
}

// EffectForOutcome maps an outcome code to its stage effect.
func EffectForOutcome(outcome string) OutcomeEffect {
	switch strings.ToLower(strings.TrimSpace(outcome)) {
	case OutcomeQuoteRequested:
		return OutcomeEffect{Stage: StageQuoted, ChangesStage: true}
	case OutcomeInterested:
		return OutcomeEffect{Stage: StageFollowUp, ChangesStage: true}
	case OutcomeLost, OutcomeNotInterested:
		return OutcomeEffect{Stage: StageClosedLost, ChangesStage: true, ClearNextAction: true}
	}
	return OutcomeEffect{}
}

// FollowUpTitle renders "Follow-up via CALL" and friends.
func FollowUpTitle(channel Channel) string {
	return "Follow-up via " + strings.ToUpper(string(channel))
}
