// Package reports implements the cron-driven report scheduler and its
// five read-only reporters over the time-series store. Reporters are pure
// functions of a window and the rows storage returns for it.
package reports

import "time"

// Point is one sample in a reporter's charting series.
type Point struct {
	At    time.Time
	Value float64
}

// Stats is the output shape every reporter returns: summary statistics
// plus an ordered series for charting.
type Stats struct {
	Min     float64
	Max     float64
	Avg     float64
	Current float64
	Series  []Point
}

func statsFromSeries(series []Point) Stats {
	if len(series) == 0 {
		return Stats{}
	}
	min, max, sum := series[0].Value, series[0].Value, 0.0
	for _, p := range series {
		if p.Value < min {
			min = p.Value
		}
		if p.Value > max {
			max = p.Value
		}
		sum += p.Value
	}
	return Stats{
		Min:     min,
		Max:     max,
		Avg:     sum / float64(len(series)),
		Current: series[len(series)-1].Value,
		Series:  series,
	}
}
