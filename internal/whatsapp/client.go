// Package whatsapp sends messages through a GOWA-compatible gateway and
// builds click-to-chat links.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"travel_leads_backend/platform/config"
	"travel_leads_backend/platform/logger"
	"travel_leads_backend/platform/phone"
)

// ErrNotConfigured is returned by a nil Client.
var ErrNotConfigured = errors.New("whatsapp gateway not configured")

type Client struct {
	baseURL  string
	apiKey   string
	deviceID string
	http     *http.Client
	log      *logger.Logger
}

type gowaRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// NewClient returns nil when no gateway URL is configured.
func NewClient(cfg config.WhatsAppConfig, log *logger.Logger) *Client {
	if cfg.GetWhatsAppURL() == "" {
		return nil
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.GetWhatsAppURL(), "/"),
		apiKey:   cfg.GetWhatsAppKey(),
		deviceID: cfg.GetWhatsAppDeviceID(),
		http:     &http.Client{Timeout: 10 * time.Second},
		log:      log,
	}
}

// Enabled reports whether the client can deliver messages.
func (c *Client) Enabled() bool {
	return c != nil
}

func (c *Client) SendMessage(ctx context.Context, phoneNumber string, message string) error {
	if c == nil {
		return ErrNotConfigured
	}

	normalized := phone.Digits(phone.NormalizeE164(phoneNumber))
	if normalized == "" {
		return fmt.Errorf("whatsapp: no phone number")
	}

	body, err := json.Marshal(gowaRequest{Phone: normalized, Message: message})
	if err != nil {
		return fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send/message", bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", formatAuthHeader(c.apiKey))
	}
	if c.deviceID != "" {
		req.Header.Set("X-Device-Id", c.deviceID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("whatsapp service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if c.log != nil {
		c.log.Info("whatsapp sent via gowa", "phone", normalized)
	}
	return nil
}

// MessagingLink builds a wa.me click-to-chat link with a prefilled text.
// It returns "" when mobile has no digits.
func MessagingLink(mobile, text string) string {
	digits := phone.Digits(phone.NormalizeE164(mobile))
	if digits == "" {
		return ""
	}
	link := "https://wa.me/" + digits
	if strings.TrimSpace(text) != "" {
		link += "?text=" + url.QueryEscape(text)
	}
	return link
}

func formatAuthHeader(apiKey string) string {
	if strings.HasPrefix(strings.ToLower(apiKey), "basic ") {
		return apiKey
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(apiKey))
	return "Basic " + encoded
}
