package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeE164(t *testing.T) {
	assert.Equal(t, "+919876543210", NormalizeE164("098765 43210"))
	assert.Equal(t, "+919876543210", NormalizeE164("+91 98765 43210"))
	assert.Equal(t, "+31612345678", NormalizeE164In("06 12345678", "nl"))
	assert.Equal(t, "not a number", NormalizeE164("  not a number "))
	assert.Equal(t, "", NormalizeE164("   "))
}

func TestDigits(t *testing.T) {
	assert.Equal(t, "919876543210", Digits("+91 98765-43210"))
}
