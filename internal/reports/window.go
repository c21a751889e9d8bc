package reports

import (
	"fmt"
	"time"

	"github.com/nutify/nutify/internal/storage"
)

// Window computes the [from, to) report window for schedule.Period in loc,
// returning UTC instants ready for the storage range queries. now is the
// wall-clock time the report is being generated at.
func Window(schedule storage.ReportSchedule, loc *time.Location, now time.Time) (from, to time.Time, err error) {
	local := now.In(loc)

	switch schedule.Period {
	case "daily":
		today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		from = today.AddDate(0, 0, -1)
		to = today
	case "weekly":
		// Previous Monday 00:00 through Sunday 23:59:59.999, in loc.
		weekday := int(local.Weekday())
		if weekday == 0 {
			weekday = 7 // ISO: Sunday is day 7, not 0
		}
		thisMonday := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -(weekday - 1))
		from = thisMonday.AddDate(0, 0, -7)
		to = thisMonday
	case "monthly":
		firstOfThisMonth := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
		from = firstOfThisMonth.AddDate(0, -1, 0)
		to = firstOfThisMonth
	case "range":
		if schedule.RangeFrom == nil || schedule.RangeTo == nil {
			return time.Time{}, time.Time{}, fmt.Errorf("reports: schedule %d: period=range requires RangeFrom/RangeTo", schedule.ID)
		}
		from = schedule.RangeFrom.In(loc)
		to = schedule.RangeTo.In(loc)
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("reports: schedule %d: unknown period %q", schedule.ID, schedule.Period)
	}

	return from.UTC(), to.UTC(), nil
}
