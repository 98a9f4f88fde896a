// Package zone classifies Australian postcodes into express delivery zones.
package zone

import "fmt"

// Range is an inclusive postcode range.
type Range struct {
	Min int
	Max int
}

// Contains reports whether postcode lies within r.
func (r Range) Contains(postcode int) bool {
	return postcode >= r.Min && postcode <= r.Max
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d]", r.Min, r.Max)
}

// Zone is a named express delivery area.
type Zone struct {
	Name   string
	Ranges []Range
}

// Contains reports whether any of the zone's ranges hold postcode.
func (z Zone) Contains(postcode int) bool {
	for _, r := range z.Ranges {
		if r.Contains(postcode) {
			return true
		}
	}
	return false
}

// Lowest and highest numeric postcodes accepted as input.
const (
	MinPostcode = 200
	MaxPostcode = 9999
)

// Express metro zones in match order.
var expressZones = []Zone{
	{Name: "Canberra", Ranges: []Range{{200, 200}, {2600, 2620}, {2900, 2914}}},
	{Name: "Sydney", Ranges: []Range{{1000, 1920}, {2000, 2234}, {2555, 2574}, {2740, 2786}}},
	{Name: "Melbourne", Ranges: []Range{{3000, 3207}, {3340, 3341}, {3750, 3750}, {3755, 3757}, {8001, 8785}}},
	{Name: "Brisbane", Ranges: []Range{{4000, 4209}, {9016, 9464}}},
	{Name: "Gold Coast", Ranges: []Range{{2484, 2490}, {4210, 4275}, {9726, 9726}}},
	{Name: "Adelaide", Ranges: []Range{{5000, 5174}, {5800, 5950}}},
	{Name: "Perth CBD", Ranges: []Range{{6000, 6005}, {6800, 6892}}},
	{Name: "Tasmania", Ranges: []Range{
		{7000, 7019}, {7050, 7053}, {7055, 7055}, {7248, 7250},
		{7258, 7258}, {7275, 7300}, {7315, 7315}, {7320, 7320},
	}},
}

// Queensland postcodes get the shorter standard delivery window.
var queenslandRanges = []Range{{4000, 4999}, {9000, 9999}}

// Result is the outcome of classifying a postcode.
type Result struct {
	Express bool
	Zone    string
}

// Classify returns the first express zone containing postcode, or a
// non-express result. Callers validate the range beforehand.
func Classify(postcode int) Result {
	for _, z := range expressZones {
		if z.Contains(postcode) {
			return Result{Express: true, Zone: z.Name}
		}
	}
	return Result{}
}

// IsRegionalFastLane reports whether a standard delivery to postcode uses the
// Queensland window.
func IsRegionalFastLane(postcode int) bool {
	for _, r := range queenslandRanges {
		if r.Contains(postcode) {
			return true
		}
	}
	return false
}

// ValidPostcode reports whether n is within the accepted numeric postcode range.
func ValidPostcode(n int) bool {
	return n >= MinPostcode && n <= MaxPostcode
}

// ExpressZones returns a copy of the express zone table in match order.
func ExpressZones() []Zone {
	out := make([]Zone, len(expressZones))
	for i, z := range expressZones {
		out[i] = Zone{Name: z.Name, Ranges: append([]Range(nil), z.Ranges...)}
	}
	return out
}

// Overlap describes two express ranges that share postcodes.
type Overlap struct {
	A, B   string
	RangeA Range
	RangeB Range
}

func (o Overlap) String() string {
	return fmt.Sprintf("%s %s overlaps %s %s", o.A, o.RangeA, o.B, o.RangeB)
}

// Overlaps lists every pair of express ranges that intersect, including
// ranges within the same zone.
func Overlaps() []Overlap {
	type entry struct {
		zone string
		r    Range
	}
	var all []entry
	for _, z := range expressZones {
		for _, r := range z.Ranges {
			all = append(all, entry{zone: z.Name, r: r})
		}
	}

	var out []Overlap
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			a, b := all[i], all[j]
			if a.r.Min <= b.r.Max && b.r.Min <= a.r.Max {
				out = append(out, Overlap{A: a.zone, B: b.zone, RangeA: a.r, RangeB: b.r})
			}
		}
	}
	return out
}
