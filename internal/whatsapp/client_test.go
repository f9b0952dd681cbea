package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"travel_leads_backend/platform/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessagingLink(t *testing.T) {
	assert.Equal(t, "https://wa.me/919876543210?text=Hello+Ravi", MessagingLink("98765 43210", "Hello Ravi"))
	assert.Equal(t, "https://wa.me/919876543210", MessagingLink("+91 98765 43210", " "))
	assert.Equal(t, "", MessagingLink("", "Hello"))
}

func TestNilClientIsDisabled(t *testing.T) {
	client := NewClient(&config.Config{}, nil)
	assert.False(t, client.Enabled())
	assert.ErrorIs(t, client.SendMessage(context.Background(), "+919876543210", "hi"), ErrNotConfigured)
}

func TestSendMessagePostsToGateway(t *testing.T) {
	var got gowaRequest
	var auth, device string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/send/message", r.URL.Path)
		auth = r.Header.Get("Authorization")
		device = r.Header.Get("X-Device-Id")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(&config.Config{WhatsAppURL: srv.URL + "/", WhatsAppKey: "user:pass", WhatsAppDeviceID: "dev-1"}, nil)
	require.NoError(t, client.SendMessage(context.Background(), "098765 43210", "Your quote"))

	assert.Equal(t, "919876543210", got.Phone)
	assert.Equal(t, "Your quote", got.Message)
	assert.Equal(t, "Basic dXNlcjpwYXNz", auth)
	assert.Equal(t, "dev-1", device)
}

func TestSendMessageSurfacesGatewayErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "device offline", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(&config.Config{WhatsAppURL: srv.URL}, nil)
	err := client.SendMessage(context.Background(), "+919876543210", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "device offline")
}
