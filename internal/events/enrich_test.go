package events

import (
	"context"
	"testing"
	"time"

	"github.com/nutify/nutify/internal/storage"
)

type fakeStatic struct {
	rows map[string]storage.UPSStaticData
}

func (f *fakeStatic) Upsert(ctx context.Context, row *storage.UPSStaticData) error { return nil }
func (f *fakeStatic) Get(ctx context.Context, upsName string) (*storage.UPSStaticData, error) {
	row, ok := f.rows[upsName]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &row, nil
}

type fakeDynamic struct {
	latest map[string]storage.UPSDynamicData
}

func (f *fakeDynamic) AppendDynamic(ctx context.Context, row *storage.UPSDynamicData) error { return nil }
func (f *fakeDynamic) Range(ctx context.Context, upsName string, from, to time.Time) ([]storage.UPSDynamicData, error) {
	return nil, nil
}
func (f *fakeDynamic) Latest(ctx context.Context, upsName string) (*storage.UPSDynamicData, error) {
	row, ok := f.latest[upsName]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &row, nil
}
func (f *fakeDynamic) SetHourlyAggregate(ctx context.Context, upsName string, bucketStart time.Time, wattHours float64) error {
	return nil
}
func (f *fakeDynamic) SetDailyAggregate(ctx context.Context, upsName string, bucketStart time.Time, wattHours float64) error {
	return nil
}

type fakeEvents struct {
	open   map[string]storage.UPSEvent
	closed map[string]storage.UPSEvent
	created []storage.UPSEvent
}

func (f *fakeEvents) Create(ctx context.Context, event *storage.UPSEvent) error {
	f.created = append(f.created, *event)
	return nil
}
func (f *fakeEvents) CloseOpenPaired(ctx context.Context, upsName string, pairTypes []string, at time.Time) ([]storage.UPSEvent, error) {
	return nil, nil
}
func (f *fakeEvents) LastOpen(ctx context.Context, upsName, eventType string) (*storage.UPSEvent, error) {
	row, ok := f.open[eventType]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &row, nil
}
func (f *fakeEvents) LastClosedWithin(ctx context.Context, upsName, eventType string, window time.Duration, now time.Time) (*storage.UPSEvent, error) {
	row, ok := f.closed[eventType]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &row, nil
}
func (f *fakeEvents) List(ctx context.Context, upsName string, opts storage.ListOptions) ([]storage.UPSEvent, int64, error) {
	return nil, 0, nil
}
func (f *fakeEvents) Acknowledge(ctx context.Context, id uint) error { return nil }

type fakeSetup struct {
	row storage.InitialSetup
}

func (f *fakeSetup) Get(ctx context.Context) (*storage.InitialSetup, error) { return &f.row, nil }
func (f *fakeSetup) Update(ctx context.Context, row *storage.InitialSetup) error {
	f.row = *row
	return nil
}

func floatPtr(v float64) *float64 { return &v }

func TestEnrichPopulatesTelemetryAndServerName(t *testing.T) {
	e := newEnricher(
		&fakeStatic{rows: map[string]storage.UPSStaticData{"office": {Model: "Back-UPS 900", Manufacturer: "APC"}}},
		&fakeDynamic{latest: map[string]storage.UPSDynamicData{"office": {UPSStatus: "OB", BatteryCharge: floatPtr(80), InputVoltage: floatPtr(0)}}},
		&fakeEvents{},
		&fakeSetup{row: storage.InitialSetup{ServerName: "Main Office"}},
	)

	got, err := e.Enrich(context.Background(), "office", EventOnBatt, "", "", time.Now())
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if got.ServerName != "Main Office" {
		t.Errorf("ServerName = %q", got.ServerName)
	}
	if got.Model != "Back-UPS 900" {
		t.Errorf("Model = %q", got.Model)
	}
	if got.BatteryCharge != "80%" {
		t.Errorf("BatteryCharge = %q", got.BatteryCharge)
	}
}

func TestEnrichComputesBatteryDurationFromOpenONBATT(t *testing.T) {
	begin := time.Now().Add(-2 * time.Minute)
	e := newEnricher(
		&fakeStatic{rows: map[string]storage.UPSStaticData{}},
		&fakeDynamic{latest: map[string]storage.UPSDynamicData{}},
		&fakeEvents{open: map[string]storage.UPSEvent{EventOnBatt: {TimestampUTCBegin: begin}}},
		&fakeSetup{},
	)

	got, err := e.Enrich(context.Background(), "office", EventOnline, "", "", begin.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if got.BatteryDuration == "" {
		t.Error("expected a non-empty battery duration")
	}
}

func TestEnrichFallsBackToClosedWithinWindowWhenNoOpenPair(t *testing.T) {
	begin := time.Now().Add(-5 * time.Minute)
	e := newEnricher(
		&fakeStatic{rows: map[string]storage.UPSStaticData{}},
		&fakeDynamic{latest: map[string]storage.UPSDynamicData{}},
		&fakeEvents{closed: map[string]storage.UPSEvent{EventCommBad: {TimestampUTCBegin: begin}}},
		&fakeSetup{},
	)

	got, err := e.Enrich(context.Background(), "office", EventCommOK, "", "", begin.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if got.CommDuration == "" {
		t.Error("expected a non-empty comm duration")
	}
}

func TestRuntimeEstimateFallbackChain(t *testing.T) {
	cases := []struct {
		name   string
		sample storage.UPSDynamicData
		want   string
	}{
		{"battery_runtime", storage.UPSDynamicData{BatteryRuntime: floatPtr(600)}, "10 min"},
		{"battery_runtime_low", storage.UPSDynamicData{Extra: storage.JSONMap{"battery_runtime_low": float64(300)}}, "5 min"},
		{"battery_charge_estimate", storage.UPSDynamicData{BatteryCharge: floatPtr(42)}, "42 min"},
		{"no data", storage.UPSDynamicData{}, ""},
	}
	for _, c := range cases {
		if c.sample.Extra == nil {
			c.sample.Extra = storage.JSONMap{}
		}
		got := runtimeEstimate(&c.sample)
		if got != c.want {
			t.Errorf("%s: runtimeEstimate = %q, want %q", c.name, got, c.want)
		}
	}
}
