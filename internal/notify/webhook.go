package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nutify/nutify/internal/storage"
)

// webhookPayload is the JSON envelope POSTed to the configured URL: the
// event, the UPS, the timestamp, and the enriched identity, status and
// telemetry fields below. Firmware, location, battery voltage and source
// IP are not included.
type webhookPayload struct {
	Event           string `json:"event"`
	UPS             string `json:"ups"`
	Timestamp       string `json:"timestamp"`
	ServerName      string `json:"server_name"`
	Model           string `json:"model"`
	Serial          string `json:"serial"`
	Manufacturer    string `json:"manufacturer"`
	Status          string `json:"status"`
	BatteryCharge   string `json:"battery_charge"`
	InputVoltage    string `json:"input_voltage"`
	OutputVoltage   string `json:"output_voltage"`
	RuntimeMinutes  string `json:"runtime_minutes"`
	BatteryDuration string `json:"battery_duration,omitempty"`
	CommDuration    string `json:"comm_duration,omitempty"`
	Message         string `json:"message,omitempty"`
}

// WebhookSender delivers an HMAC-signed JSON POST of the enriched event.
type WebhookSender struct {
	cfg    storage.WebhookConfig
	client *http.Client
}

// NewWebhookSender returns a Sender bound to one resolved webhook config.
func NewWebhookSender(cfg storage.WebhookConfig) *WebhookSender {
	return &WebhookSender{cfg: cfg, client: &http.Client{Timeout: 10 * time.Second}}
}

// Send POSTs the JSON envelope, signing the body with HMAC-SHA256 when a
// secret is configured.
func (s *WebhookSender) Send(ctx context.Context, event EnrichedEvent) (bool, string, error) {
	if s.cfg.URL == "" {
		return false, "none configured", nil
	}
	if event.ServerName == "" {
		event.ServerName = defaultServerName
	}

	payload := webhookPayload{
		Event:           event.EventType,
		UPS:             event.UPSName,
		Timestamp:       event.At.Format(time.RFC3339),
		ServerName:      event.ServerName,
		Model:           event.Model,
		Serial:          event.Serial,
		Manufacturer:    event.Manufacturer,
		Status:          event.Status,
		BatteryCharge:   event.BatteryCharge,
		InputVoltage:    event.InputVoltage,
		OutputVoltage:   event.OutputVoltage,
		RuntimeMinutes:  event.RuntimeMinutes,
		BatteryDuration: event.BatteryDuration,
		CommDuration:    event.CommDuration,
		Message:         event.Message,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return false, "", fmt.Errorf("%w: marshal payload: %s", ErrSendFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(data))
	if err != nil {
		return false, "", fmt.Errorf("%w: build request: %s", ErrSendFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Nutify-Webhook/1.0")

	if s.cfg.Secret != "" {
		sig := hmac.New(sha256.New, []byte(s.cfg.Secret))
		sig.Write(data)
		req.Header.Set("X-Nutify-Signature", "sha256="+hex.EncodeToString(sig.Sum(nil)))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false, "", fmt.Errorf("%w: request failed: %s", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, "", fmt.Errorf("%w: webhook returned status %d", ErrSendFailed, resp.StatusCode)
	}
	return true, "sent", nil
}

// IsCommunicationEvent reports whether eventType is one of the three
// communication events that webhooks always attempt, regardless of
// per-event enablement, so external monitors get a chance to react.
func IsCommunicationEvent(eventType string) bool {
	switch eventType {
	case "COMMBAD", "COMMOK", "NOCOMM":
		return true
	default:
		return false
	}
}
