package poller

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nutify/nutify/internal/storage"
)

// maxIntegrationGap bounds trapezoidal integration: a gap between
// consecutive samples wider than this contributes zero energy for its span
// rather than being bridged.
const maxIntegrationGap = 2 * time.Hour

// AggregationWorker runs the hourly and daily energy aggregation passes
// over ups_realpower samples. It is independent from the live Poller so it
// can run on its own schedule (e.g. hourly at :05) without competing for
// the dynamic table's insert path.
type AggregationWorker struct {
	upsName string
	dyn     storage.DynamicRepository
	log     *zap.Logger
}

// NewAggregationWorker creates an AggregationWorker for a single UPS.
func NewAggregationWorker(upsName string, dyn storage.DynamicRepository, log *zap.Logger) *AggregationWorker {
	return &AggregationWorker{upsName: upsName, dyn: dyn, log: log.Named("aggregation")}
}

// RunHourly integrates ups_realpower over [bucketStart, bucketStart+1h) and
// writes the result, in Wh, as ups_realpower_hrs on the row nearest
// bucketStart.
func (w *AggregationWorker) RunHourly(ctx context.Context, bucketStart time.Time) error {
	rows, err := w.dyn.Range(ctx, w.upsName, bucketStart, bucketStart.Add(time.Hour))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		w.log.Debug("no samples in bucket, skipping", zap.Time("bucket_start", bucketStart))
		return nil
	}
	return w.dyn.SetHourlyAggregate(ctx, w.upsName, bucketStart, integrateRealpower(rows))
}

// Run drives RunHourly and RunDaily on the wall clock: once per completed
// hour, and once per completed day right after its last hourly bucket.
func (w *AggregationWorker) Run(ctx context.Context) {
	for {
		now := time.Now().In(w.locOrUTC())
		nextHour := now.Truncate(time.Hour).Add(time.Hour)
		timer := time.NewTimer(nextHour.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			w.log.Info("aggregation worker stopped")
			return
		case <-timer.C:
			bucketStart := nextHour.Add(-time.Hour)
			if err := w.RunHourly(ctx, bucketStart); err != nil {
				w.log.Warn("hourly aggregation failed", zap.Time("bucket_start", bucketStart), zap.Error(err))
			}
			if bucketStart.Hour() == 23 {
				dayStart := time.Date(bucketStart.Year(), bucketStart.Month(), bucketStart.Day(), 0, 0, 0, 0, bucketStart.Location())
				if err := w.RunDaily(ctx, dayStart); err != nil {
					w.log.Warn("daily aggregation failed", zap.Time("bucket_start", dayStart), zap.Error(err))
				}
			}
		}
	}
}

func (w *AggregationWorker) locOrUTC() *time.Location {
	return time.UTC
}

// RunDaily sums the day's hourly ups_realpower_hrs buckets into a single
// ups_realpower_days total.
func (w *AggregationWorker) RunDaily(ctx context.Context, bucketStart time.Time) error {
	rows, err := w.dyn.Range(ctx, w.upsName, bucketStart, bucketStart.Add(24*time.Hour))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		w.log.Debug("no hourly buckets for day, skipping", zap.Time("bucket_start", bucketStart))
		return nil
	}

	var total float64
	for _, row := range rows {
		if row.UPSRealpowerHrs != nil {
			total += *row.UPSRealpowerHrs
		}
	}
	return w.dyn.SetDailyAggregate(ctx, w.upsName, bucketStart, total)
}

// integrateRealpower computes watt-hours (Wh) from a time-ordered series of
// samples using trapezoidal integration between consecutive points. A gap
// wider than maxIntegrationGap contributes zero energy for its span
// rather than being bridged.
func integrateRealpower(rows []storage.UPSDynamicData) float64 {
	var total float64
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		if prev.UPSRealpower == nil || cur.UPSRealpower == nil {
			continue
		}

		gap := cur.TimestampUTC.Sub(prev.TimestampUTC)
		if gap <= 0 || gap > maxIntegrationGap {
			continue
		}

		hours := gap.Hours()
		avgWatts := (*prev.UPSRealpower + *cur.UPSRealpower) / 2
		total += avgWatts * hours
	}
	return total
}
