package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/nutify/nutify/internal/storage"
)

// EnergyReporter sums the hourly watt-hour aggregate over the window.
// Null aggregate buckets (a raw minute sample that hasn't been through the
// hourly aggregation pass yet) are skipped rather than treated as zero.
func EnergyReporter(ctx context.Context, dynamic storage.DynamicRepository, upsName string, from, to time.Time) (Stats, error) {
	rows, err := dynamic.Range(ctx, upsName, from, to)
	if err != nil {
		return Stats{}, fmt.Errorf("reports: energy: range query: %w", err)
	}
	var series []Point
	for _, row := range rows {
		if row.UPSRealpowerHrs == nil {
			continue
		}
		series = append(series, Point{At: row.TimestampUTC, Value: *row.UPSRealpowerHrs})
	}
	return statsFromSeries(series), nil
}

// BatteryReporter tracks battery_charge across the window.
func BatteryReporter(ctx context.Context, dynamic storage.DynamicRepository, upsName string, from, to time.Time) (Stats, error) {
	return seriesFromDynamic(ctx, dynamic, upsName, from, to, func(row storage.UPSDynamicData) (float64, bool) {
		if row.BatteryCharge == nil {
			return 0, false
		}
		return *row.BatteryCharge, true
	})
}

// PowerReporter tracks the instantaneous ups_realpower reading across the
// window.
func PowerReporter(ctx context.Context, dynamic storage.DynamicRepository, upsName string, from, to time.Time) (Stats, error) {
	return seriesFromDynamic(ctx, dynamic, upsName, from, to, func(row storage.UPSDynamicData) (float64, bool) {
		if row.UPSRealpower == nil {
			return 0, false
		}
		return *row.UPSRealpower, true
	})
}

// VoltageReporter tracks input_voltage across the window.
func VoltageReporter(ctx context.Context, dynamic storage.DynamicRepository, upsName string, from, to time.Time) (Stats, error) {
	return seriesFromDynamic(ctx, dynamic, upsName, from, to, func(row storage.UPSDynamicData) (float64, bool) {
		if row.InputVoltage == nil {
			return 0, false
		}
		return *row.InputVoltage, true
	})
}

func seriesFromDynamic(
	ctx context.Context,
	dynamic storage.DynamicRepository,
	upsName string,
	from, to time.Time,
	extract func(storage.UPSDynamicData) (float64, bool),
) (Stats, error) {
	rows, err := dynamic.Range(ctx, upsName, from, to)
	if err != nil {
		return Stats{}, fmt.Errorf("reports: range query: %w", err)
	}
	var series []Point
	for _, row := range rows {
		if v, ok := extract(row); ok {
			series = append(series, Point{At: row.TimestampUTC, Value: v})
		}
	}
	return statsFromSeries(series), nil
}

// EventsReporter counts events in the window, one Point per event (Value=1,
// At=begin timestamp). Current/Min/Max/Avg all equal the total count; the
// metric is inherently a tally, not a continuous signal, so the usual
// min/max/avg-over-a-signal shape degenerates to a single number repeated
// across the Stats fields.
func EventsReporter(ctx context.Context, events storage.EventRepository, upsName string, from, to time.Time) (Stats, error) {
	rows, _, err := events.List(ctx, upsName, storage.ListOptions{Limit: 10000})
	if err != nil {
		return Stats{}, fmt.Errorf("reports: events: list: %w", err)
	}
	var series []Point
	for _, row := range rows {
		if row.TimestampUTCBegin.Before(from) || !row.TimestampUTCBegin.Before(to) {
			continue
		}
		series = append(series, Point{At: row.TimestampUTCBegin, Value: 1})
	}
	count := float64(len(series))
	return Stats{Min: count, Max: count, Avg: count, Current: count, Series: series}, nil
}
