package financing

import "time"

// NormalizeDate truncates t to midnight UTC of its UTC calendar day.
// Due-date comparisons never depend on the time of day.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of days in the given month
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonthsClamped moves d forward by n calendar months keeping its
// day-of-month, clamped to the last day of the target month.
// time.AddDate would overflow (Jan 31 + 1 month = Mar 3); this never does.
func AddMonthsClamped(d time.Time, n int) time.Time {
	y, m, day := d.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, d.Location())
	ty, tm, _ := first.Date()
	if last := DaysIn(ty, tm); day > last {
		day = last
	}
	return time.Date(ty, tm, day, d.Hour(), d.Minute(), d.Second(), d.Nanosecond(), d.Location())
}

// NextMonthDate returns the same day-of-month one month later, or the last
// day of the next month when that day does not exist there.
func NextMonthDate(d time.Time) time.Time {
	return AddMonthsClamped(d, 1)
}

// DueDates returns n due dates starting at first, one month apart.
// Each date is derived from the anchor rather than the previous date so a
// month-end anchor stays on month-end (Jan 31, Feb 28, Mar 31, ...).
func DueDates(first time.Time, n int) []time.Time {
	anchor := NormalizeDate(first)
	dates := make([]time.Time, n)
	for i := range n {
		dates[i] = AddMonthsClamped(anchor, i)
	}
	return dates
}
