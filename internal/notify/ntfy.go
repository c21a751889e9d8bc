package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nutify/nutify/internal/storage"
)

// NtfySender posts event notifications to an ntfy.sh-compatible topic,
// carrying the metadata ntfy reads from headers (Title/Priority/Tags).
type NtfySender struct {
	cfg    storage.NtfyConfig
	client *http.Client
}

// NewNtfySender returns a Sender bound to one resolved ntfy config.
func NewNtfySender(cfg storage.NtfyConfig) *NtfySender {
	return &NtfySender{cfg: cfg, client: &http.Client{Timeout: 10 * time.Second}}
}

// Send renders the event's plain-text body and POSTs it to
// {server}/{topic} with ntfy's header-based metadata.
func (s *NtfySender) Send(ctx context.Context, event EnrichedEvent) (bool, string, error) {
	if !s.cfg.Enabled {
		return false, "ntfy config disabled", nil
	}

	tmpl := templateFor(event.EventType, event.IsTest)
	if event.ServerName == "" {
		event.ServerName = defaultServerName
	}

	title, err := renderSubject(tmpl.subject, event)
	if err != nil {
		return false, "", err
	}
	body, err := renderText(tmpl.textBody, event)
	if err != nil {
		return false, "", err
	}

	url := strings.TrimRight(s.cfg.Server, "/") + "/" + s.cfg.Topic
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte(body)))
	if err != nil {
		return false, "", fmt.Errorf("%w: build request: %s", ErrSendFailed, err)
	}

	// Titles must stay ASCII-only: non-Latin-1 bytes in a raw HTTP header
	// trip ntfy's header encoding.
	req.Header.Set("Title", asciiOnly(title))
	req.Header.Set("Priority", fmt.Sprintf("%d", priorityByEvent(event.EventType)))
	req.Header.Set("Tags", "ups,"+strings.ToLower(event.EventType))
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+string(s.cfg.Token))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false, "", fmt.Errorf("%w: request failed: %s", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, "", fmt.Errorf("%w: ntfy returned status %d", ErrSendFailed, resp.StatusCode)
	}
	return true, "sent", nil
}

// asciiOnly strips any byte outside the printable ASCII range.
func asciiOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 0x20 && r <= 0x7e {
			b.WriteRune(r)
		}
	}
	return b.String()
}
