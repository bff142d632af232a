package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance_ShortRange(t *testing.T) {
	// Two stops on the same corridor in downtown DC, roughly 480m apart.
	d := Distance(38.8977, -77.0365, 38.9020, -77.0369)
	assert.InDelta(t, 478, d, 10)
}

func TestDistance_ZeroForSamePoint(t *testing.T) {
	d := Distance(38.9, -77.0, 38.9, -77.0)
	assert.Equal(t, 0.0, d)
}

func TestDistance_LongRange(t *testing.T) {
	// Washington DC to New York City, ~328km. Exercises the exact-formula path.
	d := Distance(38.9072, -77.0369, 40.7128, -74.0060)
	assert.InDelta(t, 328000, d, 5000)
}

func TestCalculateBounds_ContainsRadius(t *testing.T) {
	lat, lon := 38.9, -77.0
	b := CalculateBounds(lat, lon, 200)

	assert.Less(t, b.MinLat, lat)
	assert.Greater(t, b.MaxLat, lat)
	assert.Less(t, b.MinLon, lon)
	assert.Greater(t, b.MaxLon, lon)

	// Box corners must be at least the radius away from the center.
	corner := Distance(lat, lon, b.MaxLat, b.MaxLon)
	assert.GreaterOrEqual(t, corner, 200.0)
}
