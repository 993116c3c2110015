package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/daytime"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/models"
)

const daysPerWeek = 7

var specParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextRun returns the first moment after `after` at which inst takes effect:
// the next scheduled start for RUN, the stop time for STOP, and whichever
// comes first for STOP AND RUN. Starts on excluded dates are skipped and
// STOP AND RUN never starts after its stop time. All times are UTC.
func NextRun(inst *models.ServerInstruction, after time.Time) (time.Time, bool) {
	after = after.UTC()

	var next time.Time
	found := false
	if inst.Operation.Runs() {
		next, found = nextStart(inst, after)
	}
	if inst.Operation.Stops() && inst.StopAt != nil {
		stopAt := inst.StopAt.UTC()
		if found && !next.Before(stopAt) {
			found = false
		}
		if !found && stopAt.After(after) {
			return stopAt, true
		}
	}
	return next, found
}

func nextStart(inst *models.ServerInstruction, after time.Time) (time.Time, bool) {
	dow := weekdayField(inst.Weekdays)
	if dow == "" || len(inst.Times) == 0 {
		return time.Time{}, false
	}
	schedules := make([]cron.Schedule, 0, len(inst.Times))
	for _, ds := range inst.Times {
		h, m, s := daytime.Clock(ds)
		schedule, err := specParser.Parse(fmt.Sprintf("%d %d %d * * %s", s, m, h, dow))
		if err != nil {
			return time.Time{}, false
		}
		schedules = append(schedules, schedule)
	}

	excluded := make(map[time.Time]bool, len(inst.ExcludeDates))
	for _, d := range inst.ExcludeDates {
		excluded[calendarDay(d)] = true
	}

	from := after
	for range len(excluded) + 1 {
		var candidate time.Time
		for _, schedule := range schedules {
			t := schedule.Next(from)
			if !t.IsZero() && (candidate.IsZero() || t.Before(candidate)) {
				candidate = t
			}
		}
		if candidate.IsZero() {
			return time.Time{}, false
		}
		if !excluded[calendarDay(candidate)] {
			return candidate, true
		}
		from = daytime.DayBoundary(candidate)
	}
	return time.Time{}, false
}

// weekdayField renders Monday-based weekdays as a cron day-of-week list.
func weekdayField(weekdays []int) string {
	field := ""
	for _, d := range weekdays {
		if d < models.MinWeekday || d > models.MaxWeekday {
			continue
		}
		if field != "" {
			field += ","
		}
		field += fmt.Sprint((d + 1) % daysPerWeek)
	}
	return field
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
