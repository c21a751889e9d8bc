// Package notify renders and dispatches UPS event notifications across
// the email, ntfy, and webhook channels. The content model (EnrichedEvent)
// is shared across all three channels; only the rendering differs.
package notify

import (
	"context"
	"time"
)

// EnrichedEvent is the stable content model passed to every channel's
// template.
type EnrichedEvent struct {
	EventType    string
	UPSName      string
	ServerName   string // every channel falls back to "UPS Monitor" when empty
	Model        string
	Serial       string
	Firmware     string
	Manufacturer string
	Location     string

	Status         string
	BatteryCharge  string // formatted "N%"
	InputVoltage   string // "N V"
	OutputVoltage  string
	BatteryVoltage string
	RuntimeMinutes string // formatted estimate, see enrich.go fallback chain

	BatteryDuration string // only set for ONLINE following ONBATT
	CommDuration    string // only set for COMMOK following COMMBAD

	Message  string
	SourceIP string
	At       time.Time // event time in the configured timezone

	IsTest bool
}

// Sender is the contract every notification channel implements.
type Sender interface {
	// Send delivers one notification. ok reports whether delivery is
	// considered successful; message carries a human-readable outcome
	// (e.g. "sent", "skipped: none configured", or an error description)
	// even when err is nil.
	Send(ctx context.Context, event EnrichedEvent) (ok bool, message string, err error)
}

// priorityByEvent is ntfy's 1-5 urgency scale; battery-critical events
// ride at the top of it.
func priorityByEvent(eventType string) int {
	switch eventType {
	case "LOWBATT", "SHUTDOWN", "FSD":
		return 5
	case "ONBATT", "COMMBAD", "NOCOMM", "REPLBATT":
		return 4
	case "ONLINE", "COMMOK":
		return 3
	default:
		return 2
	}
}

// defaultServerName is used by the email, ntfy and webhook senders when no
// server name is configured.
const defaultServerName = "UPS Monitor"
