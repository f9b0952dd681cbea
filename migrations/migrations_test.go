package migrations

import (
	"io/fs"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsAreEmbedded(t *testing.T) {
	names, err := fs.Glob(FS, "*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"00001_leads.sql", "00002_notification_outbox.sql"}, names)
}

// Lead codes carry a four digit random suffix, so two leads may share one.
func TestLeadCodeIsIndexedButNotUnique(t *testing.T) {
	raw, err := fs.ReadFile(FS, "00001_leads.sql")
	require.NoError(t, err)
	sql := string(raw)

	column := regexp.MustCompile(`(?m)^\s*lead_code\s+[^\n]*$`).FindString(sql)
	require.NotEmpty(t, column)
	assert.NotContains(t, column, "UNIQUE")
	assert.NotRegexp(t, `(?i)UNIQUE[^;]*\(\s*lead_code\s*\)`, sql)
	assert.Contains(t, sql, "idx_leads_lead_code ON leads (lead_code)")
}
