package match

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transitperf.dev/internal/gtfstime"
	"transitperf.dev/internal/schedule"
	"transitperf.dev/metricsdb"
)

const (
	stopLat = 38.9050
	stopLon = -77.0350
)

func testSchedule(t *testing.T) *schedule.RouteSchedule {
	t.Helper()

	arrival, err := gtfstime.Parse("8:10:00")
	require.NoError(t, err)

	trip := &schedule.Trip{
		ID:          "T1",
		ServiceID:   "WKDY",
		DirectionID: 0,
		StopTimes: []schedule.StopEvent{
			{TripID: "T1", StopID: "S2", StopSequence: 2, Arrival: arrival, Departure: arrival},
		},
	}

	return &schedule.RouteSchedule{
		RouteID: "C4",
		Trips:   map[string]*schedule.Trip{"T1": trip},
		Stops: map[string]metricsdb.Stop{
			"S2": {ID: "S2", Lat: stopLat, Lon: stopLon},
		},
	}
}

func positionAt(lat, lon float64, tripID string) metricsdb.VehiclePosition {
	pos := metricsdb.VehiclePosition{
		VehicleID: "5501",
		RouteID:   "C4",
		Lat:       lat,
		Lon:       lon,
	}
	if tripID != "" {
		pos.TripID = sql.NullString{String: tripID, Valid: true}
	}
	return pos
}

func obsAt(hour, minute int) time.Time {
	return time.Date(2025, 6, 10, hour, minute, 0, 0, time.UTC)
}

func TestMatch_FastPathAcceptsKnownTripID(t *testing.T) {
	rs := testSchedule(t)
	m := New()

	// Even a position far from any stop matches when the trip id resolves.
	result, ok := m.Match(rs, positionAt(39.5, -76.0, "T1"), obsAt(8, 12))
	require.True(t, ok)
	assert.True(t, result.Exact)
	assert.Equal(t, 1.0, result.Confidence)
	assert.Equal(t, "T1", result.Trip.ID)
}

func TestMatch_FallbackMatchesNearbyOnTimeVehicle(t *testing.T) {
	rs := testSchedule(t)
	m := New()

	result, ok := m.Match(rs, positionAt(stopLat, stopLon, "rt-unknown"), obsAt(8, 11))
	require.True(t, ok)
	assert.False(t, result.Exact)
	assert.Equal(t, "T1", result.Trip.ID)
	assert.Greater(t, result.Confidence, 0.9)
}

func TestMatch_ConfidenceClampedToOne(t *testing.T) {
	rs := testSchedule(t)
	m := New()

	// Perfect match plus the realism bonus would exceed 1 without clamping.
	result, ok := m.Match(rs, positionAt(stopLat, stopLon, ""), obsAt(8, 10))
	require.True(t, ok)
	assert.Equal(t, 1.0, result.Confidence)
	assert.False(t, result.Exact)
}

func TestMatch_LatePreferredOverEqualEarliness(t *testing.T) {
	rs := testSchedule(t)
	m := New()

	late, okLate := m.Match(rs, positionAt(stopLat, stopLon, ""), obsAt(8, 14))
	require.True(t, okLate)
	early, okEarly := m.Match(rs, positionAt(stopLat, stopLon, ""), obsAt(8, 6))
	require.True(t, okEarly)

	// Same 4-minute deviation, but the late observation earns the realism
	// bonus while the early one is penalized.
	assert.Greater(t, late.Confidence, early.Confidence)
	assert.InDelta(t, 0.2, late.Confidence-early.Confidence, 1e-9)
}

func TestMatch_RejectsTooEarly(t *testing.T) {
	rs := testSchedule(t)
	m := New()

	// 6 minutes early is outside the -5 minute window.
	_, ok := m.Match(rs, positionAt(stopLat, stopLon, ""), obsAt(8, 4))
	assert.False(t, ok)
}

func TestMatch_RejectsTooLate(t *testing.T) {
	rs := testSchedule(t)
	m := New()

	_, ok := m.Match(rs, positionAt(stopLat, stopLon, ""), obsAt(8, 30))
	assert.False(t, ok)
}

func TestMatch_RejectsFarAway(t *testing.T) {
	rs := testSchedule(t)
	m := New()

	// ~1.1km north of the stop, beyond the 500m ceiling.
	_, ok := m.Match(rs, positionAt(stopLat+0.01, stopLon, ""), obsAt(8, 10))
	assert.False(t, ok)
}

func TestMatch_NextDayServiceAnchorsCorrectly(t *testing.T) {
	arrival, err := gtfstime.Parse("25:30:00")
	require.NoError(t, err)

	rs := &schedule.RouteSchedule{
		RouteID: "OWL",
		Trips: map[string]*schedule.Trip{
			"T9": {
				ID: "T9", ServiceID: "WKDY", DirectionID: 0,
				StopTimes: []schedule.StopEvent{
					{TripID: "T9", StopID: "S2", StopSequence: 1, Arrival: arrival, Departure: arrival},
				},
			},
		},
		Stops: map[string]metricsdb.Stop{
			"S2": {ID: "S2", Lat: stopLat, Lon: stopLon},
		},
	}

	m := New()

	// Observed 01:32 with the observation date carrying the service date:
	// the 25:30 arrival anchors to 01:30 the NEXT day, so an observation
	// whose date is already the next day must use that day's midnight.
	obs := time.Date(2025, 6, 10, 1, 32, 0, 0, time.UTC)
	_, ok := m.Match(rs, positionAt(stopLat, stopLon, ""), obs)
	// Anchored to 2025-06-11 01:30, the observation is ~24h early: no match.
	assert.False(t, ok)
}
