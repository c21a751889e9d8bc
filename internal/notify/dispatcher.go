package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nutify/nutify/internal/secret"
	"github.com/nutify/nutify/internal/storage"
)

// Dispatcher fans an enriched event out across the email, ntfy, and webhook
// channels, reading each channel's per-event enable matrix from storage
// before constructing its sender: resolve config, build sender, send,
// record outcome, once per channel.
type Dispatcher struct {
	settings storage.NotificationSettingRepository
	mail     storage.MailConfigRepository
	ntfy     storage.NtfyConfigRepository
	webhook  storage.WebhookConfigRepository
	log      *zap.Logger
}

// NewDispatcher builds a Dispatcher over the four config repositories it
// needs to resolve per-event, per-channel enablement.
func NewDispatcher(
	settings storage.NotificationSettingRepository,
	mail storage.MailConfigRepository,
	ntfy storage.NtfyConfigRepository,
	webhook storage.WebhookConfigRepository,
	log *zap.Logger,
) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{settings: settings, mail: mail, ntfy: ntfy, webhook: webhook, log: log.Named("notify")}
}

// outcome is one channel's delivery result, kept for callers that want to
// surface per-channel success/failure.
type outcome struct {
	Channel string
	OK      bool
	Message string
	Err     error
}

// Dispatch sends event across every channel enabled for event.EventType.
// No single channel's failure prevents the others from being attempted,
// and every enabled ntfy/webhook config gets its own delivery, not just
// the first.
func (d *Dispatcher) Dispatch(ctx context.Context, event EnrichedEvent) []outcome {
	var results []outcome

	if r := d.dispatchEmail(ctx, event); r != nil {
		results = append(results, *r)
	}
	results = append(results, d.dispatchNtfy(ctx, event)...)
	results = append(results, d.dispatchWebhook(ctx, event)...)
	return results
}

func (d *Dispatcher) dispatchEmail(ctx context.Context, event EnrichedEvent) *outcome {
	setting, err := d.settings.GetByEventType(ctx, event.EventType)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil // no row for this event type: treated as disabled, not an error
		}
		d.log.Error("load notification setting", zap.String("event_type", event.EventType), zap.Error(err))
		return &outcome{Channel: "email", Err: err}
	}
	if !setting.EmailEnabled || setting.MailConfigID == nil {
		return nil
	}

	cfg, err := d.mail.Get(ctx, *setting.MailConfigID)
	if err != nil {
		if errors.Is(err, secret.ErrKeyMismatch) {
			// The stored password no longer decrypts under the current
			// process secret. Hard send-time failure until re-entered.
			d.log.Error("mail config password cannot be decrypted",
				zap.Uint("id", *setting.MailConfigID))
			return &outcome{Channel: "email", Err: ErrPasswordUndecryptable}
		}
		d.log.Error("load mail config", zap.Uint("id", *setting.MailConfigID), zap.Error(err))
		return &outcome{Channel: "email", Err: err}
	}

	ok, msg, err := NewEmailSender(*cfg).Send(ctx, event)
	return d.record("email", ok, msg, err, event)
}

func (d *Dispatcher) dispatchNtfy(ctx context.Context, event EnrichedEvent) []outcome {
	configs, err := d.ntfy.List(ctx)
	if err != nil {
		d.log.Error("list ntfy configs", zap.Error(err))
		return []outcome{{Channel: "ntfy", Err: err}}
	}

	var results []outcome
	for _, cfg := range configs {
		if !cfg.Enabled || !eventMapEnabled(cfg.EventMap, event.EventType) {
			continue
		}
		ok, msg, err := NewNtfySender(cfg).Send(ctx, event)
		results = append(results, *d.record("ntfy", ok, msg, err, event))
	}
	return results
}

func (d *Dispatcher) dispatchWebhook(ctx context.Context, event EnrichedEvent) []outcome {
	configs, err := d.webhook.List(ctx)
	if err != nil {
		d.log.Error("list webhook configs", zap.Error(err))
		return []outcome{{Channel: "webhook", Err: err}}
	}

	always := IsCommunicationEvent(event.EventType)
	var results []outcome
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		if !always && !eventMapEnabled(cfg.EventMap, event.EventType) {
			continue
		}
		ok, msg, err := NewWebhookSender(cfg).Send(ctx, event)
		results = append(results, *d.record("webhook", ok, msg, err, event))
	}

	if always && len(results) == 0 {
		d.log.Info("no webhook configured for communication event",
			zap.String("event_type", event.EventType), zap.String("ups", event.UPSName))
	}
	return results
}

func (d *Dispatcher) record(channel string, ok bool, msg string, err error, event EnrichedEvent) *outcome {
	if err != nil {
		d.log.Warn("notification delivery failed",
			zap.String("channel", channel),
			zap.String("event_type", event.EventType),
			zap.String("ups", event.UPSName),
			zap.Error(err))
	} else {
		d.log.Info("notification delivered",
			zap.String("channel", channel),
			zap.String("event_type", event.EventType),
			zap.String("ups", event.UPSName),
			zap.String("result", msg))
	}
	return &outcome{Channel: channel, OK: ok, Message: msg, Err: err}
}

// eventMapEnabled reads a per-event bool out of a JSONMap matrix. A type
// outside the closed taxonomy is never enabled; a known type with no
// explicit entry defaults to enabled.
func eventMapEnabled(m storage.JSONMap, eventType string) bool {
	if _, known := eventHeadlines[eventType]; !known {
		return false
	}
	v, ok := m[eventType]
	if !ok {
		return true
	}
	b, ok := v.(bool)
	if !ok {
		return true
	}
	return b
}

// DispatchTest sends a single test notification through the named channel,
// bypassing the per-event enablement check.
func (d *Dispatcher) DispatchTest(ctx context.Context, channel string, configID uint, event EnrichedEvent) (bool, string, error) {
	event.IsTest = true
	switch channel {
	case "email":
		cfg, err := d.mail.Get(ctx, configID)
		if err != nil {
			return false, "", fmt.Errorf("notify: test email: %w", err)
		}
		return NewEmailSender(*cfg).Send(ctx, event)
	case "ntfy":
		cfg, err := d.ntfy.Get(ctx, configID)
		if err != nil {
			return false, "", fmt.Errorf("notify: test ntfy: %w", err)
		}
		return NewNtfySender(*cfg).Send(ctx, event)
	case "webhook":
		cfg, err := d.webhook.Get(ctx, configID)
		if err != nil {
			return false, "", fmt.Errorf("notify: test webhook: %w", err)
		}
		return NewWebhookSender(*cfg).Send(ctx, event)
	default:
		return false, "", fmt.Errorf("notify: unknown test channel %q", channel)
	}
}
