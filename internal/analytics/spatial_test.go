package analytics

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transitperf.dev/metricsdb"
)

func gridStops(n int) map[string]metricsdb.Stop {
	stops := make(map[string]metricsdb.Stop, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			id := fmt.Sprintf("S%d_%d", i, j)
			stops[id] = metricsdb.Stop{
				ID:  id,
				Lat: testStopLat + float64(i)*0.002,
				Lon: testStopLon + float64(j)*0.002,
			}
		}
	}
	return stops
}

func TestSpatialStopIndex_MatchesLinearScan(t *testing.T) {
	stops := gridStops(8)
	spatial := NewSpatialStopIndex(stops)
	linear := linearStopIndex{stops: stops}

	require.Equal(t, len(stops), spatial.Len())

	queries := []struct{ lat, lon, max float64 }{
		{testStopLat, testStopLon, 50},
		{testStopLat + 0.0031, testStopLon + 0.0012, 200},
		{testStopLat + 0.0071, testStopLon + 0.0069, 500},
		{testStopLat - 0.5, testStopLon, 200}, // far from every stop
	}
	for _, q := range queries {
		wantStop, wantDist, wantOK := linear.Nearest(q.lat, q.lon, q.max)
		gotStop, gotDist, gotOK := spatial.Nearest(q.lat, q.lon, q.max)

		assert.Equal(t, wantOK, gotOK)
		if wantOK {
			assert.Equal(t, wantStop.ID, gotStop.ID)
			assert.InDelta(t, wantDist, gotDist, 1e-9)
		}
	}
}

func TestSpatialStopIndex_RespectsRadius(t *testing.T) {
	stops := map[string]metricsdb.Stop{
		"S1": {ID: "S1", Lat: testStopLat, Lon: testStopLon},
	}
	idx := NewSpatialStopIndex(stops)

	// ~222m north of the only stop.
	_, _, ok := idx.Nearest(testStopLat+0.002, testStopLon, 50)
	assert.False(t, ok)

	stop, dist, ok := idx.Nearest(testStopLat+0.002, testStopLon, 300)
	require.True(t, ok)
	assert.Equal(t, "S1", stop.ID)
	assert.InDelta(t, 222.4, dist, 1.0)
}

func TestSpatialStopIndex_Empty(t *testing.T) {
	idx := NewSpatialStopIndex(nil)
	assert.Zero(t, idx.Len())

	_, _, ok := idx.Nearest(testStopLat, testStopLon, 500)
	assert.False(t, ok)
}
