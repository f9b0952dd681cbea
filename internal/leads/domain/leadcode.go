package domain

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"
)

const (
	leadCodePrefix      = "LD"
	destinationTokenMax = 6
	agentTokenMax       = 16
	emptyToken          = "NA"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	disallowed    = regexp.MustCompile(`[^A-Z0-9_]`)
	underscoreRun = regexp.MustCompile(`_+`)
)

// LeadCodeInput carries the tokens a lead code is built from.
type LeadCodeInput struct {
	DestinationCode string
	AgentName       string
	Now             time.Time
	// Suffix overrides the random 4-digit suffix when non-nil.
	Suffix func() int
}

// GenerateLeadCode builds LD-YYYYMMDD-DEST-NNNN-AGENT. The result only
// contains characters from [A-Z0-9_-].
func GenerateLeadCode(in LeadCodeInput) string {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	suffix := in.Suffix
	if suffix == nil {
		suffix = func() int { return rand.IntN(10000) }
	}
	return fmt.Sprintf("%s-%s-%s-%04d-%s",
		leadCodePrefix,
		now.UTC().Format("20060102"),
		SanitizeCodeToken(in.DestinationCode, destinationTokenMax),
		suffix()%10000,
		SanitizeCodeToken(in.AgentName, agentTokenMax),
	)
}

// SanitizeCodeToken upper-cases raw, turns whitespace into underscores,
// drops everything outside [A-Z0-9_] and truncates to max characters.
func SanitizeCodeToken(raw string, max int) string {
	token := strings.ToUpper(strings.TrimSpace(raw))
	token = whitespaceRun.ReplaceAllString(token, "_")
	token = disallowed.ReplaceAllString(token, "")
	token = underscoreRun.ReplaceAllString(token, "_")
	token = strings.Trim(token, "_")
	if max > 0 && len(token) > max {
		token = strings.TrimRight(token[:max], "_")
	}
	if token == "" {
		return emptyToken
	}
	return token
}
