package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transitperf.dev/internal/gtfstime"
	"transitperf.dev/internal/schedule"
	"transitperf.dev/metricsdb"
)

func TestHeadway_ValidGapsAndFlaggedGaps(t *testing.T) {
	rs := scheduleWithArrivals(t, map[string]string{
		"T1": "8:00:00",
		"T2": "8:12:00",
		"T3": "8:45:00",
	})
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	positions := []metricsdb.VehiclePosition{
		obs("V1", "T1", day.Add(8*time.Hour)),
		obs("V2", "T2", day.Add(8*time.Hour+12*time.Minute)),
		obs("V3", "T3", day.Add(8*time.Hour+45*time.Minute)),
	}

	calc := NewHeadwayCalculator()
	calc.MaxHeadwayMinutes = 30

	result, err := calc.Calculate(rs, nil, positions, "S1")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Passages)
	assert.Equal(t, []float64{12}, result.HeadwaysMinutes)
	assert.Equal(t, []float64{33}, result.FlaggedGaps)
	require.NotNil(t, result.MeanMinutes)
	assert.Equal(t, 12.0, *result.MeanMinutes)

	require.Len(t, result.Pairs, 2)
	assert.Equal(t, "V1", result.Pairs[0].PrevVehicleID)
	assert.Equal(t, "V2", result.Pairs[0].VehicleID)
	assert.False(t, result.Pairs[0].Flagged)
	assert.True(t, result.Pairs[1].Flagged)
}

func TestHeadway_CrossDateGapSkipped(t *testing.T) {
	rs := scheduleWithArrivals(t, map[string]string{
		"T1": "23:30:00",
		"T2": "24:30:00",
	})
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	// 23:30 and 00:30 the next day: one hour apart on the clock, but split
	// across calendar dates, so no headway is computed.
	positions := []metricsdb.VehiclePosition{
		obs("V1", "T1", day.Add(23*time.Hour+30*time.Minute)),
		obs("V2", "T2", day.Add(24*time.Hour+30*time.Minute)),
	}

	calc := NewHeadwayCalculator()
	calc.FilterServiceHours = false

	result, err := calc.Calculate(rs, nil, positions, "S1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Passages)
	assert.Empty(t, result.HeadwaysMinutes)
	assert.Nil(t, result.MeanMinutes)
}

func TestHeadway_FewerThanTwoPassages(t *testing.T) {
	rs := scheduleWithArrivals(t, map[string]string{"T1": "8:00:00"})
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	calc := NewHeadwayCalculator()

	result, err := calc.Calculate(rs, nil, nil, "S1")
	require.NoError(t, err)
	assert.Zero(t, result.Passages)
	assert.Nil(t, result.MeanMinutes)

	result, err = calc.Calculate(rs, nil, []metricsdb.VehiclePosition{
		obs("V1", "T1", day.Add(8*time.Hour)),
	}, "S1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Passages)
	assert.Nil(t, result.MeanMinutes)
}

func TestHeadway_ServiceHoursFilter(t *testing.T) {
	// Service hours derive from arrivals: only hour 8 here.
	rs := scheduleWithArrivals(t, map[string]string{"T1": "8:00:00"})
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	positions := []metricsdb.VehiclePosition{
		obs("V1", "T1", day.Add(8*time.Hour)),
		obs("V2", "", day.Add(3*time.Hour)), // deadheading at 03:00
	}

	calc := NewHeadwayCalculator()
	result, err := calc.Calculate(rs, nil, positions, "S1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.OutOfHours)
	assert.Equal(t, 1, result.Passages)
}

func TestHeadway_DirectionFilter(t *testing.T) {
	inbound, err := gtfstime.Parse("8:00:00")
	require.NoError(t, err)
	outbound, err := gtfstime.Parse("8:05:00")
	require.NoError(t, err)

	trips := []*schedule.Trip{
		{ID: "T1", ServiceID: "WKDY", DirectionID: 0, StopTimes: []schedule.StopEvent{
			{TripID: "T1", StopID: "S1", StopSequence: 1, Arrival: inbound, Departure: inbound},
		}},
		{ID: "T2", ServiceID: "WKDY", DirectionID: 1, StopTimes: []schedule.StopEvent{
			{TripID: "T2", StopID: "S1", StopSequence: 1, Arrival: outbound, Departure: outbound},
		}},
	}
	rs := schedule.NewRouteSchedule("C4", trips, []metricsdb.Stop{
		{ID: "S1", Lat: testStopLat, Lon: testStopLon},
	})
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	positions := []metricsdb.VehiclePosition{
		obs("V1", "T1", day.Add(8*time.Hour)),
		obs("V2", "T2", day.Add(8*time.Hour+5*time.Minute)),
	}

	calc := NewHeadwayCalculator()
	calc.Direction = 1

	result, err := calc.Calculate(rs, nil, positions, "S1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Passages)
	assert.Equal(t, int64(1), result.DirectionID)
}

func TestHeadway_AutoReferenceStop(t *testing.T) {
	rs := scheduleWithArrivals(t, map[string]string{
		"T1": "8:00:00",
		"T2": "8:12:00",
	})
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	positions := []metricsdb.VehiclePosition{
		obs("V1", "T1", day.Add(8*time.Hour)),
		obs("V2", "T2", day.Add(8*time.Hour+12*time.Minute)),
	}

	result, err := NewHeadwayCalculator().Calculate(rs, nil, positions, "")
	require.NoError(t, err)
	assert.Equal(t, "S1", result.StopID)
	assert.Equal(t, []float64{12}, result.HeadwaysMinutes)
}

func TestHeadway_NoReferenceStop(t *testing.T) {
	rs := schedule.NewRouteSchedule("C4", nil, []metricsdb.Stop{
		{ID: "S1", Lat: testStopLat, Lon: testStopLon},
	})

	_, err := NewHeadwayCalculator().Calculate(rs, nil, nil, "")
	assert.ErrorIs(t, err, schedule.ErrNoReferenceStop)
}

func TestHeadway_UnknownExplicitStop(t *testing.T) {
	rs := scheduleWithArrivals(t, map[string]string{"T1": "8:00:00"})

	_, err := NewHeadwayCalculator().Calculate(rs, nil, nil, "NOPE")
	assert.ErrorIs(t, err, metricsdb.ErrStopNotFound)
}
