package selection

import "time"

type period int

const (
	periodDay period = iota
	periodWeek
	periodMonth
	periodQuarter
	periodYear
)

// startOf truncates t to the first instant of its calendar period in t's location.
func startOf(p period, t time.Time, weekStart time.Weekday) time.Time {
	y, m, d := t.Date()
	loc := t.Location()
	switch p {
	case periodWeek:
		day := time.Date(y, m, d, 0, 0, 0, 0, loc)
		offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
		return day.AddDate(0, 0, -offset)
	case periodMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case periodQuarter:
		return time.Date(y, ((m-1)/3)*3+1, 1, 0, 0, 0, 0, loc)
	case periodYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
}

// shift moves a period start by n periods.
func shift(p period, start time.Time, n int) time.Time {
	switch p {
	case periodWeek:
		return start.AddDate(0, 0, 7*n)
	case periodMonth:
		return start.AddDate(0, n, 0)
	case periodQuarter:
		return start.AddDate(0, 3*n, 0)
	case periodYear:
		return start.AddDate(n, 0, 0)
	default:
		return start.AddDate(0, 0, n)
	}
}

// between reports start <= t <= end.
func between(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

// windowPredicate builds the time-range test evaluated against now. When
// byDay is set the custom bounds are widened to whole days, matching
// documents whose date is a calendar day.
func windowPredicate(r TimeRange, custom *CustomRange, now time.Time, weekStart time.Weekday, byDay bool) func(time.Time) bool {
	same := func(p period) func(time.Time) bool {
		start := startOf(p, now, weekStart)
		next := shift(p, start, 1)
		return func(t time.Time) bool { return !t.Before(start) && t.Before(next) }
	}
	last := func(p period) func(time.Time) bool {
		current := startOf(p, now, weekStart)
		start := shift(p, current, -1)
		end := current.Add(-time.Nanosecond)
		return func(t time.Time) bool { return between(t, start, end) }
	}

	switch r {
	case RangeTodayAfter:
		tomorrow := shift(periodDay, startOf(periodDay, now, weekStart), 1)
		return func(t time.Time) bool { return t.Before(tomorrow) }
	case RangeWeek:
		return same(periodWeek)
	case RangeMonth:
		return same(periodMonth)
	case RangeQuarter:
		return same(periodQuarter)
	case RangeYear:
		return same(periodYear)
	case RangeLastWeek:
		return last(periodWeek)
	case RangeLastMonth:
		return last(periodMonth)
	case RangeLastQuarter:
		return last(periodQuarter)
	case RangeLastYear:
		return last(periodYear)
	case RangeCustom:
		if custom == nil {
			return func(time.Time) bool { return false }
		}
		start, end := custom.Start, custom.End
		if byDay {
			start = startOf(periodDay, start.In(now.Location()), weekStart)
			end = shift(periodDay, startOf(periodDay, end.In(now.Location()), weekStart), 1).Add(-time.Nanosecond)
		}
		return func(t time.Time) bool { return between(t, start, end) }
	default:
		return func(time.Time) bool { return true }
	}
}
