// Package calendar provides the business-day arithmetic the pricing stack
// and the backtest timer rely on. Holiday calendars are an external concern;
// the package ships a weekday-only implementation and everything else is
// written against the Calendar interface.
package calendar

import (
	"time"
)

type Calendar interface {
	IsBusinessDay(d time.Time) bool
}

// Weekday treats Monday..Friday as business days.
type Weekday struct{}

func (Weekday) IsBusinessDay(d time.Time) bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// Date truncates t to midnight in its own location.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DateRange returns the business days in [start, end], ascending.
func DateRange(start, end time.Time, cal Calendar) []time.Time {
	var dates []time.Time
	for d := Date(start); !d.After(Date(end)); d = d.AddDate(0, 0, 1) {
		if cal.IsBusinessDay(d) {
			dates = append(dates, d)
		}
	}
	return dates
}

// RollPreceding returns d if it is a business day, otherwise the nearest
// earlier business day.
func RollPreceding(d time.Time, cal Calendar) time.Time {
	d = Date(d)
	for !cal.IsBusinessDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// RollFollowing returns d if it is a business day, otherwise the nearest
// later business day.
func RollFollowing(d time.Time, cal Calendar) time.Time {
	d = Date(d)
	for !cal.IsBusinessDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// BusinessDayOffset moves d forward (n > 0) or backward (n < 0) by n
// business days. A non-business-day start is first rolled in the direction
// of travel.
func BusinessDayOffset(d time.Time, n int, cal Calendar) time.Time {
	d = Date(d)
	step := 1
	if n < 0 {
		step = -1
		n = -n
	}
	for !cal.IsBusinessDay(d) {
		d = d.AddDate(0, 0, step)
	}
	for i := 0; i < n; i++ {
		d = d.AddDate(0, 0, step)
		for !cal.IsBusinessDay(d) {
			d = d.AddDate(0, 0, step)
		}
	}
	return d
}
