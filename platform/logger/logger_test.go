package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductionLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	log.NotificationFailed("email", "lead-1", errors.New("smtp down"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "notification_failed", entry["msg"])
	assert.Equal(t, "email", entry["channel"])
	assert.Equal(t, "lead-1", entry["lead_id"])
}

func TestWithContextAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)
	ctx := context.WithValue(context.Background(), RequestIDKey, "req-7")

	log.WithContext(ctx).Info("hello")

	assert.Contains(t, buf.String(), `"request_id":"req-7"`)
}
