package calendar

import (
	"fmt"
	"time"
)

// DefaultTimezone is the storefront's home timezone. Queensland does not
// observe daylight saving, so it is always UTC+10.
const DefaultTimezone = "Australia/Brisbane"

// Calendar answers business-day questions in one fixed timezone, regardless of
// the visitor's own zone.
type Calendar struct {
	loc      *time.Location
	holidays Holidays
}

// New creates a calendar for loc with the given holiday table.
func New(loc *time.Location, holidays Holidays) *Calendar {
	if loc == nil {
		loc = brisbaneFallback()
	}
	return &Calendar{loc: loc, holidays: holidays}
}

// LoadLocation resolves a timezone name. Brisbane falls back to a fixed UTC+10
// zone when the host has no tz database.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc, nil
	}
	if name == DefaultTimezone {
		return brisbaneFallback(), nil
	}
	return nil, fmt.Errorf("calendar: load timezone %q: %w", name, err)
}

func brisbaneFallback() *time.Location {
	return time.FixedZone("AEST", 10*60*60)
}

// Location returns the home timezone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Holidays returns the holiday table.
func (c *Calendar) Holidays() Holidays {
	return c.holidays
}

// DateOf returns the home-timezone calendar date of t.
func (c *Calendar) DateOf(t time.Time) Date {
	return DateIn(t, c.loc)
}

// Local converts t into the home timezone.
func (c *Calendar) Local(t time.Time) time.Time {
	return t.In(c.loc)
}

// Tomorrow returns the calendar day after t's home-timezone date.
func (c *Calendar) Tomorrow(t time.Time) Date {
	return c.DateOf(t).AddDays(1)
}

// IsBusinessDay reports whether d is a weekday and, when observeHolidays is
// set, not a listed holiday.
func (c *Calendar) IsBusinessDay(d Date, observeHolidays bool) bool {
	if d.IsWeekend() {
		return false
	}
	if observeHolidays && c.holidays.Contains(d) {
		return false
	}
	return true
}

// NextBusinessDayAfter returns the first business day strictly after from's
// home-timezone date. Orders before the cutoff still dispatch next day, so the
// cutoff does not move the first candidate; it only drives the countdown.
func (c *Calendar) NextBusinessDayAfter(from time.Time, _ Cutoff, observeHolidays bool) Date {
	candidate := c.DateOf(from).AddDays(1)
	for !c.IsBusinessDay(candidate, observeHolidays) {
		candidate = candidate.AddDays(1)
	}
	return candidate
}

// AddBusinessDays walks forward from d one calendar day at a time until n
// business days have been counted. Non-business days are skipped and do not
// count.
func (c *Calendar) AddBusinessDays(d Date, n int, observeHolidays bool) Date {
	for n > 0 {
		d = d.AddDays(1)
		if c.IsBusinessDay(d, observeHolidays) {
			n--
		}
	}
	return d
}
