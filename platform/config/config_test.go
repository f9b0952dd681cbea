package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/leads")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "false")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "INR", cfg.GetDefaultCurrency())
	assert.Equal(t, "IN", cfg.GetPhoneDefaultRegion())
	assert.Equal(t, "*/15 * * * *", cfg.GetOverdueSweepSchedule())
	assert.Equal(t, 10*time.Minute, cfg.GetOverdueSweepLockTTL())
	assert.Equal(t, 587, cfg.GetSMTPPort())
	assert.False(t, cfg.GetEmailEnabled(), "email stays off without SMTP_HOST")
	assert.EqualValues(t, 25, cfg.GetDatabaseMaxConns())
	assert.EqualValues(t, 5, cfg.GetDatabaseMinConns())
}

func TestLoadRejectsInvertedPoolBounds(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DB_MAX_CONNS", "4")
	t.Setenv("DB_MIN_CONNS", "8")

	_, err := Load()
	require.ErrorContains(t, err, "DB_MIN_CONNS")
}

func TestLoadMemoryDriverDoesNotNeedDatabase(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.UsesMemoryStore())
}

func TestLoadRejectsMissingDatabaseForPostgres(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORE_DRIVER", "mongo")

	_, err := Load()
	require.ErrorContains(t, err, "unsupported STORE_DRIVER")
}

func TestLoadRequiresSenderAddressWhenSMTPConfigured(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("EMAIL_FROM_ADDRESS", "")

	_, err := Load()
	require.ErrorContains(t, err, "EMAIL_FROM_ADDRESS")
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitCSV(" a, ,b ,"))
}
