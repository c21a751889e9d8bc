// Package poller implements the cooperative polling loop that fetches
// live UPS telemetry via the NUT client, derives computed fields, appends a
// time-series row, and publishes the sample on the live bus.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nutify/nutify/internal/nutclient"
	"github.com/nutify/nutify/internal/storage"
)

// SamplePublisher is the narrow seam the poller uses to push data onto the
// live bus, so this package never imports internal/bus directly; *bus.Hub
// satisfies it structurally.
type SamplePublisher interface {
	PublishSample(snapshot map[string]any)
	PublishStats(stats any)
}

// Stats is the poller's own health counters, published on the bus so the
// storage-unhealthy signal can be derived downstream without the storage
// package knowing about the bus.
type Stats struct {
	TicksSucceeded      int64 `json:"ticks_succeeded"`
	TicksFailed         int64 `json:"ticks_failed"`
	ConsecutiveFailures int   `json:"consecutive_failures"`
	StorageUnhealthy    bool  `json:"storage_unhealthy"`
}

// unhealthyThreshold is the number of consecutive write failures that flips
// StorageUnhealthy on the published Stats. A sustained run of write
// failures never stops polling; it is only surfaced on the bus.
const unhealthyThreshold = 5

// Config configures a Poller instance.
type Config struct {
	UPSName             string
	UPSHost             string
	DefaultNominalPower float64
	Timezone            *time.Location
}

// Poller is the sole writer of the dynamic table.
type Poller struct {
	cfg    Config
	client *nutclient.Client
	static storage.StaticRepository
	dyn    storage.DynamicRepository
	varCfg storage.VariableConfigRepository
	bus    SamplePublisher
	log    *zap.Logger

	mu            sync.Mutex
	stats         Stats
	staticReady   bool
}

// New creates a Poller. defaultNominalPower falls back to
// DefaultNominalPower when cfg.DefaultNominalPower is zero.
func New(
	cfg Config,
	client *nutclient.Client,
	static storage.StaticRepository,
	dyn storage.DynamicRepository,
	varCfg storage.VariableConfigRepository,
	bus SamplePublisher,
	log *zap.Logger,
) *Poller {
	if cfg.DefaultNominalPower == 0 {
		cfg.DefaultNominalPower = DefaultNominalPower
	}
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	return &Poller{
		cfg:    cfg,
		client: client,
		static: static,
		dyn:    dyn,
		varCfg: varCfg,
		bus:    bus,
		log:    log.Named("poller"),
	}
}

// Run ticks until ctx is cancelled. The interval is re-read from the
// variable config on every tick so a runtime change takes effect starting
// with the next tick.
func (p *Poller) Run(ctx context.Context) {
	for {
		interval := p.currentInterval(ctx)
		timer := time.NewTimer(interval)

		select {
		case <-ctx.Done():
			timer.Stop()
			p.log.Info("poller stopped")
			return
		case <-timer.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) currentInterval(ctx context.Context) time.Duration {
	const fallback = 1 * time.Second
	if p.varCfg == nil {
		return fallback
	}
	cfg, err := p.varCfg.Get(ctx)
	if err != nil || cfg.PollingInterval <= 0 {
		return fallback
	}
	return time.Duration(cfg.PollingInterval) * time.Second
}

// target returns the "ups@host" string NUT's CLIs expect.
func (p *Poller) target() string {
	return nutclient.Target(p.cfg.UPSName, p.cfg.UPSHost)
}

// tick runs one poll cycle: query, merge, derive, append, publish. A failed
// query, static-row upsert or append is logged and the tick is skipped;
// one missing tick is tolerated. A failed static-row read only leaves
// derivation without the static nominal power.
func (p *Poller) tick(ctx context.Context) {
	raw, err := p.client.Query(ctx, p.target())
	if err != nil {
		p.recordFailure()
		p.log.Warn("poll query failed", zap.Error(err))
		return
	}

	now := time.Now().UTC().Truncate(time.Second)

	if !p.staticReady {
		staticRow := buildStaticRow(p.cfg.UPSName, raw)
		if err := p.static.Upsert(ctx, staticRow); err != nil {
			p.log.Error("failed to upsert static row", zap.Error(err))
			return
		} else {
			p.staticReady = true
		}
	}

	staticRow, err := p.static.Get(ctx, p.cfg.UPSName)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		p.log.Warn("failed to load static row for derivation", zap.Error(err))
	}

	row := buildDynamicRow(p.cfg.UPSName, now, raw)
	deriveRealpower(row, staticRow, p.cfg.DefaultNominalPower)

	if err := p.dyn.AppendDynamic(ctx, row); err != nil {
		if errors.Is(err, storage.ErrDuplicateTimestamp) {
			p.log.Warn("duplicate or out-of-order timestamp, skipping tick",
				zap.Time("timestamp_utc", now))
		} else {
			p.recordFailure()
			p.log.Error("failed to append dynamic row", zap.Error(err))
		}
		return
	}

	p.recordSuccess()
	p.publish(row, staticRow)
}

func (p *Poller) recordSuccess() {
	p.mu.Lock()
	p.stats.TicksSucceeded++
	p.stats.ConsecutiveFailures = 0
	p.stats.StorageUnhealthy = false
	p.mu.Unlock()
}

func (p *Poller) recordFailure() {
	p.mu.Lock()
	p.stats.TicksFailed++
	p.stats.ConsecutiveFailures++
	p.stats.StorageUnhealthy = p.stats.ConsecutiveFailures >= unhealthyThreshold
	stats := p.stats
	p.mu.Unlock()

	if p.bus != nil {
		p.bus.PublishStats(stats)
	}
}

// Snapshot returns a copy of the current stats.
func (p *Poller) Snapshot() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// publish merges the static and dynamic rows into one snapshot for the bus,
// converting timestamps to the configured timezone.
func (p *Poller) publish(row *storage.UPSDynamicData, staticRow *storage.UPSStaticData) {
	if p.bus == nil {
		return
	}

	snapshot := map[string]any{
		"ups_name":           p.cfg.UPSName,
		"timestamp_utc":       row.TimestampUTC.In(p.cfg.Timezone).Format(time.RFC3339),
		"ups_status":          row.UPSStatus,
		"battery_charge":      row.BatteryCharge,
		"battery_voltage":     row.BatteryVoltage,
		"battery_runtime":     row.BatteryRuntime,
		"input_voltage":       row.InputVoltage,
		"output_voltage":      row.OutputVoltage,
		"ups_load":            row.UPSLoad,
		"ups_realpower":       row.UPSRealpower,
		"ups_realpower_nominal": row.UPSRealpowerNom,
		"ups_temperature":     row.UPSTemperature,
	}
	for k, v := range row.Extra {
		if _, exists := snapshot[k]; !exists {
			snapshot[k] = v
		}
	}
	if staticRow != nil {
		snapshot["model"] = staticRow.Model
		snapshot["serial"] = staticRow.Serial
		snapshot["manufacturer"] = staticRow.Manufacturer
	}

	p.bus.PublishSample(snapshot)

	stats := p.Snapshot()
	p.bus.PublishStats(stats)
}
