package zone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyRangeBoundaries(t *testing.T) {
	for _, z := range ExpressZones() {
		for _, r := range z.Ranges {
			assert.Equal(t, Result{Express: true, Zone: z.Name}, Classify(r.Min), "min of %s %s", z.Name, r)
			assert.Equal(t, Result{Express: true, Zone: z.Name}, Classify(r.Max), "max of %s %s", z.Name, r)

			// Neighbours fall outside the range. They are standard unless
			// another range starts right there, as Gold Coast does after
			// Brisbane.
			for _, p := range []int{r.Min - 1, r.Max + 1} {
				assert.False(t, r.Contains(p))
				got := Classify(p)
				if got.Express && got.Zone != z.Name {
					assert.True(t, zoneContains(got.Zone, p), "neighbour %d of %s %s", p, z.Name, r)
				}
			}
		}
	}
}

func zoneContains(name string, p int) bool {
	for _, z := range ExpressZones() {
		if z.Name != name {
			continue
		}
		for _, r := range z.Ranges {
			if r.Contains(p) {
				return true
			}
		}
	}
	return false
}

func TestClassifyAdjacentZones(t *testing.T) {
	assert.Equal(t, Result{Express: true, Zone: "Brisbane"}, Classify(4209))
	assert.Equal(t, Result{Express: true, Zone: "Gold Coast"}, Classify(4210))
	assert.Equal(t, Result{Express: true, Zone: "Gold Coast"}, Classify(4275))
	assert.Equal(t, Result{}, Classify(4276))
}

func TestClassifyNeighboursFallToStandard(t *testing.T) {
	tests := []int{199, 201, 2599, 2621, 999, 1921, 2999, 3208, 3999, 5175, 5999, 6006, 6999, 7020}
	for _, p := range tests {
		assert.False(t, Classify(p).Express, "postcode %d", p)
	}
}

func TestClassifyScenarios(t *testing.T) {
	assert.Equal(t, Result{Express: true, Zone: "Brisbane"}, Classify(4000))
	assert.Equal(t, Result{Express: true, Zone: "Melbourne"}, Classify(3141))
	assert.Equal(t, Result{Express: true, Zone: "Gold Coast"}, Classify(4217))
	assert.Equal(t, Result{Express: true, Zone: "Canberra"}, Classify(200))
	assert.Equal(t, Result{}, Classify(3300))
	assert.Equal(t, Result{}, Classify(9999))
}

func TestIsRegionalFastLane(t *testing.T) {
	assert.True(t, IsRegionalFastLane(4000))
	assert.True(t, IsRegionalFastLane(4999))
	assert.True(t, IsRegionalFastLane(9000))
	assert.True(t, IsRegionalFastLane(9999))
	assert.False(t, IsRegionalFastLane(3999))
	assert.False(t, IsRegionalFastLane(5000))
	assert.False(t, IsRegionalFastLane(3300))
	assert.False(t, IsRegionalFastLane(8999))
}

func TestValidPostcode(t *testing.T) {
	assert.False(t, ValidPostcode(199))
	assert.True(t, ValidPostcode(200))
	assert.True(t, ValidPostcode(9999))
	assert.False(t, ValidPostcode(10000))
}

func TestExpressZonesHaveNoOverlaps(t *testing.T) {
	require.Empty(t, Overlaps())
}

func TestExpressZonesReturnsCopy(t *testing.T) {
	zones := ExpressZones()
	require.NotEmpty(t, zones)
	zones[0].Ranges[0] = Range{Min: 1, Max: 1}
	zones[0].Name = "changed"

	assert.Equal(t, "Canberra", ExpressZones()[0].Name)
	assert.Equal(t, Range{Min: 200, Max: 200}, ExpressZones()[0].Ranges[0])
}

func TestExpressRangesAreWellFormed(t *testing.T) {
	for _, z := range ExpressZones() {
		for _, r := range z.Ranges {
			assert.LessOrEqual(t, r.Min, r.Max, "%s %s", z.Name, r)
			assert.True(t, ValidPostcode(r.Min), "%s %s", z.Name, r)
			assert.True(t, ValidPostcode(r.Max), "%s %s", z.Name, r)
		}
	}
}
