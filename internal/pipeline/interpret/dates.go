package interpret

import (
	"fmt"
	"strings"
	"time"
)

// dateOnly truncates t to its UTC calendar day.
func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, m time.Month) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// UnitsAgo returns the day n units before now. Month steps clamp to the
// last day of the target month; a Feb 29 year step lands on Feb 28.
func UnitsAgo(now time.Time, n int, unit string) (time.Time, error) {
	today := dateOnly(now)
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(unit)), "s") {
	case "day":
		return today.AddDate(0, 0, -n), nil
	case "week":
		return today.AddDate(0, 0, -7*n), nil
	case "month":
		y, m := today.Year(), int(today.Month())-n
		for m <= 0 {
			m += 12
			y--
		}
		for m > 12 {
			m -= 12
			y++
		}
		d := today.Day()
		if last := daysIn(y, time.Month(m)); d > last {
			d = last
		}
		return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC), nil
	case "year":
		y := today.Year() - n
		d := today.Day()
		if today.Month() == time.February && d == 29 && daysIn(y, time.February) == 28 {
			d = 28
		}
		return time.Date(y, today.Month(), d, 0, 0, 0, 0, time.UTC), nil
	default:
		return time.Time{}, fmt.Errorf("interpret: unit %q must be day, week, month or year", unit)
	}
}

var months = func() map[string]time.Month {
	out := map[string]time.Month{}
	for m := time.January; m <= time.December; m++ {
		name := strings.ToLower(m.String())
		out[name] = m
		out[name[:3]] = m
	}
	out["sept"] = time.September
	return out
}()

// MonthRange returns the first and last day of the most recent occurrence
// of the named month on or before now.
func MonthRange(now time.Time, name string) (time.Time, time.Time, error) {
	m, ok := months[strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), "."))]
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("interpret: invalid month name %q", name)
	}
	today := dateOnly(now)
	y := today.Year()
	if today.Month() < m {
		y--
	}
	start := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(y, m, daysIn(y, m), 0, 0, 0, 0, time.UTC)
	return start, end, nil
}
