// Package countdown drives the announcement-bar countdown to the daily order
// cutoff in the storefront's home timezone.
package countdown

import (
	"fmt"
	"strings"
	"time"

	"github.com/xinzuo/storefront-services/internal/delivery/calendar"
)

// Countdown counts down to a daily clock time.
type Countdown struct {
	target calendar.Cutoff
	loc    *time.Location
}

// New returns a countdown to target in loc. A nil loc uses UTC+10.
func New(target calendar.Cutoff, loc *time.Location) *Countdown {
	if loc == nil {
		loc = time.FixedZone("AEST", 10*60*60)
	}
	return &Countdown{target: target, loc: loc}
}

// Next returns the next target instant: today's if now is before it,
// otherwise tomorrow's.
func (c *Countdown) Next(now time.Time) time.Time {
	local := now.In(c.loc)
	next := c.target.On(calendar.DateIn(local, c.loc), c.loc)
	if !local.Before(next) {
		next = c.target.On(calendar.DateIn(local, c.loc).AddDays(1), c.loc)
	}
	return next
}

// Remaining returns the time left until Next(now).
func (c *Countdown) Remaining(now time.Time) time.Duration {
	return c.Next(now).Sub(now)
}

// Snapshot is one countdown reading.
type Snapshot struct {
	Target           time.Time `json:"target"`
	RemainingSeconds int64     `json:"remainingSeconds"`
	Display          string    `json:"display"`
}

// Snapshot reads the countdown at now.
func (c *Countdown) Snapshot(now time.Time) Snapshot {
	remaining := c.Remaining(now)
	return Snapshot{
		Target:           c.Next(now),
		RemainingSeconds: int64(remaining / time.Second),
		Display:          Format(remaining),
	}
}

// Format renders d as "2 hrs, 5 mins, 3 secs", leaving out hours when there
// are none. Fractional seconds are dropped.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	hours, minutes, seconds := total/3600, (total%3600)/60, total%60

	parts := make([]string, 0, 3)
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d hrs", hours))
	}
	parts = append(parts, fmt.Sprintf("%d mins", minutes), fmt.Sprintf("%d secs", seconds))
	return strings.Join(parts, ", ")
}
