// Package calendar provides a calendar date value evaluated in a fixed
// reference zone.
package calendar

import (
	"fmt"
	"time"
)

const layout = "2006-01-02"

// Date is a day on the calendar with no time-of-day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// Of returns the date t falls on when viewed in loc.
func Of(t time.Time, loc *time.Location) Date {
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

// Parse reads a YYYY-MM-DD string.
func Parse(s string) (Date, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return Of(t, time.UTC), nil
}

// Start is midnight at the beginning of d in loc.
func (d Date) Start(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Bounds returns [start, end) of d in loc. End is the start of the next
// day, so days with a DST shift are 23 or 25 hours long.
func (d Date) Bounds(loc *time.Location) (time.Time, time.Time) {
	return d.Start(loc), d.AddDays(1).Start(loc)
}

// Contains reports whether t falls on d in loc.
func (d Date) Contains(t time.Time, loc *time.Location) bool {
	return Of(t, loc) == d
}

// At returns the instant on d at the given clock time ("15:04") in loc.
func (d Date) At(clock string, loc *time.Location) (time.Time, error) {
	hm, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time of day %q (want HH:MM): %w", clock, err)
	}
	return time.Date(d.Year, d.Month, d.Day, hm.Hour(), hm.Minute(), 0, 0, loc), nil
}

func (d Date) AddDays(n int) Date {
	return Of(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC), time.UTC)
}

func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}
