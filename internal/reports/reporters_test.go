package reports

import (
	"context"
	"testing"
	"time"

	"github.com/nutify/nutify/internal/storage"
)

type fakeDynamicRange struct {
	rows []storage.UPSDynamicData
}

func (f *fakeDynamicRange) AppendDynamic(ctx context.Context, row *storage.UPSDynamicData) error {
	return nil
}
func (f *fakeDynamicRange) Range(ctx context.Context, upsName string, from, to time.Time) ([]storage.UPSDynamicData, error) {
	return f.rows, nil
}
func (f *fakeDynamicRange) Latest(ctx context.Context, upsName string) (*storage.UPSDynamicData, error) {
	return nil, storage.ErrNotFound
}
func (f *fakeDynamicRange) SetHourlyAggregate(ctx context.Context, upsName string, bucketStart time.Time, wattHours float64) error {
	return nil
}
func (f *fakeDynamicRange) SetDailyAggregate(ctx context.Context, upsName string, bucketStart time.Time, wattHours float64) error {
	return nil
}

func floatPtr(v float64) *float64 { return &v }

func TestEnergyReporterSkipsNullAggregates(t *testing.T) {
	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	dyn := &fakeDynamicRange{rows: []storage.UPSDynamicData{
		{TimestampUTC: base, UPSRealpowerHrs: floatPtr(1.5)},
		{TimestampUTC: base.Add(time.Hour), UPSRealpowerHrs: nil},
		{TimestampUTC: base.Add(2 * time.Hour), UPSRealpowerHrs: floatPtr(2.5)},
	}}

	stats, err := EnergyReporter(context.Background(), dyn, "ups1", base, base.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stats.Series) != 2 {
		t.Fatalf("expected 2 points after skipping the null aggregate, got %d", len(stats.Series))
	}
	if stats.Min != 1.5 || stats.Max != 2.5 {
		t.Errorf("min/max = %v/%v, want 1.5/2.5", stats.Min, stats.Max)
	}
	if stats.Current != 2.5 {
		t.Errorf("current = %v, want 2.5 (last point)", stats.Current)
	}
}

func TestBatteryReporterExtractsCharge(t *testing.T) {
	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	dyn := &fakeDynamicRange{rows: []storage.UPSDynamicData{
		{TimestampUTC: base, BatteryCharge: floatPtr(90)},
		{TimestampUTC: base.Add(time.Hour), BatteryCharge: floatPtr(80)},
	}}

	stats, err := BatteryReporter(context.Background(), dyn, "ups1", base, base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Max != 90 || stats.Min != 80 || stats.Avg != 85 {
		t.Errorf("stats = %+v, want min 80 max 90 avg 85", stats)
	}
}

func TestPowerReporterSkipsMissingValues(t *testing.T) {
	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	dyn := &fakeDynamicRange{rows: []storage.UPSDynamicData{
		{TimestampUTC: base, UPSRealpower: nil},
	}}

	stats, err := PowerReporter(context.Background(), dyn, "ups1", base, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stats.Series) != 0 {
		t.Errorf("expected no points, got %d", len(stats.Series))
	}
}

func TestVoltageReporterBuildsSeries(t *testing.T) {
	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	dyn := &fakeDynamicRange{rows: []storage.UPSDynamicData{
		{TimestampUTC: base, InputVoltage: floatPtr(230)},
	}}

	stats, err := VoltageReporter(context.Background(), dyn, "ups1", base, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Current != 230 {
		t.Errorf("current = %v, want 230", stats.Current)
	}
}

type fakeEventList struct {
	rows []storage.UPSEvent
}

func (f *fakeEventList) Create(ctx context.Context, event *storage.UPSEvent) error { return nil }
func (f *fakeEventList) CloseOpenPaired(ctx context.Context, upsName string, pairTypes []string, at time.Time) ([]storage.UPSEvent, error) {
	return nil, nil
}
func (f *fakeEventList) LastOpen(ctx context.Context, upsName, eventType string) (*storage.UPSEvent, error) {
	return nil, storage.ErrNotFound
}
func (f *fakeEventList) LastClosedWithin(ctx context.Context, upsName, eventType string, window time.Duration, now time.Time) (*storage.UPSEvent, error) {
	return nil, storage.ErrNotFound
}
func (f *fakeEventList) List(ctx context.Context, upsName string, opts storage.ListOptions) ([]storage.UPSEvent, int64, error) {
	return f.rows, int64(len(f.rows)), nil
}
func (f *fakeEventList) Acknowledge(ctx context.Context, id uint) error { return nil }

func TestEventsReporterCountsWithinWindow(t *testing.T) {
	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	events := &fakeEventList{rows: []storage.UPSEvent{
		{TimestampUTCBegin: base.Add(-time.Hour)}, // before window
		{TimestampUTCBegin: base},
		{TimestampUTCBegin: base.Add(time.Hour)},
		{TimestampUTCBegin: base.Add(3 * time.Hour)}, // after window (to is exclusive)
	}}

	stats, err := EventsReporter(context.Background(), events, "ups1", base, base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Current != 2 {
		t.Errorf("count = %v, want 2", stats.Current)
	}
	if stats.Min != 2 || stats.Max != 2 || stats.Avg != 2 {
		t.Errorf("expected min/max/avg all equal to the count, got %+v", stats)
	}
}
