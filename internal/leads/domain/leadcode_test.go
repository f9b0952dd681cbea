package domain

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var leadCodeAlphabet = regexp.MustCompile(`^[A-Z0-9_-]+$`)

func TestGenerateLeadCodeShape(t *testing.T) {
	code := GenerateLeadCode(LeadCodeInput{
		DestinationCode: "PAR",
		AgentName:       "Acme Travels!!",
		Now:             time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC),
		Suffix:          func() int { return 42 },
	})

	assert.Equal(t, "LD-20240309-PAR-0042-ACME_TRAVELS", code)
	assert.Regexp(t, leadCodeAlphabet, code)
}

func TestGenerateLeadCodeRandomSuffix(t *testing.T) {
	code := GenerateLeadCode(LeadCodeInput{DestinationCode: "bali", AgentName: "Wanderlust Co."})

	assert.Regexp(t, `^LD-\d{8}-BALI-\d{4}-WANDERLUST_CO$`, code)
	assert.Regexp(t, leadCodeAlphabet, code)
}

func TestSanitizeCodeToken(t *testing.T) {
	assert.Equal(t, "ACME_TRAVELS", SanitizeCodeToken("  Acme   Travels!! ", 16))
	assert.Equal(t, "NA", SanitizeCodeToken("!!!", 16))
	assert.Equal(t, "NA", SanitizeCodeToken("", 6))
	assert.Equal(t, "MALDIV", SanitizeCodeToken("Maldives", 6))
	assert.Equal(t, "A_B", SanitizeCodeToken("a - b", 16))
	assert.Equal(t, "SUPER_LONG_AGENC", SanitizeCodeToken("Super Long Agency Name", 16))
}
