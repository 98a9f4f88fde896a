// Package estimate computes delivery windows from a postcode and the current
// time.
package estimate

import (
	"time"

	"github.com/xinzuo/storefront-services/internal/delivery/calendar"
	"github.com/xinzuo/storefront-services/internal/delivery/zone"
)

// Kind tags which variant an Estimate carries.
type Kind string

const (
	KindExpress  Kind = "express"
	KindStandard Kind = "standard"
)

// Express is next-business-day delivery to a metro zone.
type Express struct {
	Zone         string        `json:"zone"`
	DeliveryDate calendar.Date `json:"deliveryDate"`
	IsTomorrow   bool          `json:"isTomorrow"`
}

// Standard is a ranged delivery window.
type Standard struct {
	IsRegionalFastLane bool          `json:"isRegionalFastLane"`
	EarliestDate       calendar.Date `json:"earliestDate"`
	LatestDate         calendar.Date `json:"latestDate"`
}

// Estimate is either an Express or a Standard result. Exactly one of the two
// pointers is set, matching Kind.
type Estimate struct {
	Kind               Kind      `json:"kind"`
	Postcode           int       `json:"postcode"`
	MinutesUntilCutoff *int      `json:"minutesUntilCutoff"`
	Express            *Express  `json:"express,omitempty"`
	Standard           *Standard `json:"standard,omitempty"`
}

// IsExpress reports whether e is an express estimate.
func (e Estimate) IsExpress() bool {
	return e.Kind == KindExpress && e.Express != nil
}

// Engine composes the zone tables and the business-day calendar.
type Engine struct {
	calendar *calendar.Calendar
}

// NewEngine returns an engine using cal for all date arithmetic.
func NewEngine(cal *calendar.Calendar) *Engine {
	return &Engine{calendar: cal}
}

// Calendar returns the engine's calendar.
func (e *Engine) Calendar() *calendar.Calendar {
	return e.calendar
}

// Estimate classifies postcode and computes its delivery window relative to
// now. postcode must already be validated with zone.ValidPostcode.
func (e *Engine) Estimate(postcode int, now time.Time, cutoff calendar.Cutoff, observeHolidays bool) Estimate {
	local := e.calendar.Local(now)
	out := Estimate{Postcode: postcode}
	if mins, ok := cutoff.MinutesUntil(local); ok {
		out.MinutesUntilCutoff = &mins
	}

	first := e.calendar.NextBusinessDayAfter(local, cutoff, observeHolidays)

	if res := zone.Classify(postcode); res.Express {
		out.Kind = KindExpress
		out.Express = &Express{
			Zone:         res.Zone,
			DeliveryDate: first,
			IsTomorrow:   first.Equal(e.calendar.Tomorrow(local)),
		}
		return out
	}

	fastLane := zone.IsRegionalFastLane(postcode)
	extra := 2
	if fastLane {
		extra = 1
	}
	out.Kind = KindStandard
	out.Standard = &Standard{
		IsRegionalFastLane: fastLane,
		EarliestDate:       first,
		LatestDate:         e.calendar.AddBusinessDays(first, extra, observeHolidays),
	}
	return out
}
