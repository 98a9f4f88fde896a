// Package calendar provides business-day arithmetic for delivery estimates:
// calendar dates, the daily order cutoff, and the holiday table.
package calendar

import (
	"encoding/json"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day with no time or zone component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate normalises the given components (e.g. day 32 rolls into the next month).
func NewDate(year int, month time.Month, day int) Date {
	return dateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// ParseDate parses an ISO "YYYY-MM-DD" date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("calendar: parse date %q: %w", s, err)
	}
	return dateOf(t), nil
}

// DateIn returns the calendar date of t as observed in loc.
func DateIn(t time.Time, loc *time.Location) Date {
	return dateOf(t.In(loc))
}

func dateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the date n days later (n may be negative).
func (d Date) AddDays(n int) Date {
	return dateOf(d.midnight().AddDate(0, 0, n))
}

// Weekday reports the day of the week.
func (d Date) Weekday() time.Weekday {
	return d.midnight().Weekday()
}

// IsWeekend reports whether d is a Saturday or Sunday.
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Date) Before(o Date) bool { return d.midnight().Before(o.midnight()) }
func (d Date) After(o Date) bool  { return d.midnight().After(o.midnight()) }
func (d Date) Equal(o Date) bool  { return d == o }

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d == Date{} }

// Time returns midnight of d in loc.
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) String() string {
	return d.midnight().Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("calendar: date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
