package calendar

import (
	"fmt"
	"strings"
	"time"
)

// DefaultCutoff is the order cutoff used when none is configured.
var DefaultCutoff = Cutoff{Hour: 12, Minute: 0}

// Cutoff is a clock time of day interpreted in the calendar's home timezone.
type Cutoff struct {
	Hour   int
	Minute int
}

// ParseCutoff parses a 24-hour "HH:MM" value. An empty value yields DefaultCutoff.
func ParseCutoff(v string) (Cutoff, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return DefaultCutoff, nil
	}
	t, err := time.Parse("15:04", v)
	if err != nil {
		return Cutoff{}, fmt.Errorf("calendar: parse cutoff %q: %w", v, err)
	}
	return Cutoff{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// Minutes returns the cutoff as minutes past midnight.
func (c Cutoff) Minutes() int {
	return c.Hour*60 + c.Minute
}

// MinutesUntil returns the minutes left before the cutoff on the clock reading
// of now. The comparison is time-of-day only; ok is false once now has reached
// the cutoff.
func (c Cutoff) MinutesUntil(now time.Time) (int, bool) {
	current := now.Hour()*60 + now.Minute()
	if current >= c.Minutes() {
		return 0, false
	}
	return c.Minutes() - current, true
}

// On returns the cutoff instant on date d in loc.
func (c Cutoff) On(d Date, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, c.Hour, c.Minute, 0, 0, loc)
}

func (c Cutoff) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}
