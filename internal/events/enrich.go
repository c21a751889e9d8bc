package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nutify/nutify/internal/notify"
	"github.com/nutify/nutify/internal/storage"
)

// pairedLookbackWindow bounds the "most recent closed ONBATT/COMMBAD within
// the last hour" fallback used when no open pair exists.
const pairedLookbackWindow = time.Hour

// enricher gathers the telemetry snapshot and duration metrics an incoming
// event needs before it can be rendered and sent. Kept as
// a pure-ish function over its repository dependencies so it is testable
// with fakes, mirroring internal/poller's split between I/O and math.
type enricher struct {
	static  storage.StaticRepository
	dynamic storage.DynamicRepository
	events  storage.EventRepository
	setup   storage.InitialSetupRepository
}

func newEnricher(
	static storage.StaticRepository,
	dynamic storage.DynamicRepository,
	events storage.EventRepository,
	setup storage.InitialSetupRepository,
) *enricher {
	return &enricher{static: static, dynamic: dynamic, events: events, setup: setup}
}

// Enrich builds the EnrichedEvent passed to every notification template.
func (e *enricher) Enrich(ctx context.Context, upsName, eventType, message, sourceIP string, at time.Time) (notify.EnrichedEvent, error) {
	enriched := notify.EnrichedEvent{
		EventType: eventType,
		UPSName:   upsName,
		Message:   message,
		SourceIP:  sourceIP,
		At:        at,
	}

	if setup, err := e.setup.Get(ctx); err == nil {
		enriched.ServerName = setup.ServerName
	}
	// A missing server_name is not a failure for any channel; leaving it
	// blank here lets every notify.Sender implementation fall back to
	// "UPS Monitor".

	if row, err := e.static.Get(ctx, upsName); err == nil {
		enriched.Model = row.Model
		enriched.Serial = row.Serial
		enriched.Firmware = row.Firmware
		enriched.Manufacturer = row.Manufacturer
	}

	if sample, err := e.dynamic.Latest(ctx, upsName); err == nil {
		enriched.Status = sample.UPSStatus
		enriched.BatteryCharge = formatPercent(sample.BatteryCharge)
		enriched.InputVoltage = formatVolts(sample.InputVoltage)
		enriched.OutputVoltage = formatVolts(sample.OutputVoltage)
		enriched.BatteryVoltage = formatVolts(sample.BatteryVoltage)
		enriched.RuntimeMinutes = runtimeEstimate(sample)
	}

	switch eventType {
	case EventOnline:
		if d, ok, err := e.pairedDuration(ctx, upsName, EventOnBatt, at); err == nil && ok {
			enriched.BatteryDuration = formatDuration(d)
		}
	case EventCommOK:
		if d, ok, err := e.pairedDuration(ctx, upsName, EventCommBad, at); err == nil && ok {
			enriched.CommDuration = formatDuration(d)
		}
	}

	return enriched, nil
}

// pairedDuration implements the "last open, else last closed within the
// lookback window" fallback chain for duration metrics.
func (e *enricher) pairedDuration(ctx context.Context, upsName, pairEventType string, at time.Time) (time.Duration, bool, error) {
	if open, err := e.events.LastOpen(ctx, upsName, pairEventType); err == nil {
		return at.Sub(open.TimestampUTCBegin), true, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return 0, false, fmt.Errorf("events: lookup last open %s: %w", pairEventType, err)
	}

	closed, err := e.events.LastClosedWithin(ctx, upsName, pairEventType, pairedLookbackWindow, at)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("events: lookup last closed %s: %w", pairEventType, err)
	}
	return at.Sub(closed.TimestampUTCBegin), true, nil
}

func formatPercent(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.0f%%", *v)
}

func formatVolts(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.1f V", *v)
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int(d.Round(time.Second).Minutes())
	seconds := int(d.Round(time.Second).Seconds()) % 60
	return fmt.Sprintf("%d min %d s", minutes, seconds)
}

// runtimeEstimate resolves a runtime figure: battery_runtime (s) →
// battery_runtime_low → a 1%≈1min estimate derived from battery_charge.
func runtimeEstimate(sample *storage.UPSDynamicData) string {
	if sample.BatteryRuntime != nil {
		return fmt.Sprintf("%.0f min", *sample.BatteryRuntime/60)
	}
	if v, ok := sample.Extra["battery_runtime_low"]; ok {
		if f, ok := toFloat(v); ok {
			return fmt.Sprintf("%.0f min", f/60)
		}
	}
	if sample.BatteryCharge != nil {
		return fmt.Sprintf("%.0f min", *sample.BatteryCharge)
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
