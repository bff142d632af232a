package analytics

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transitperf.dev/internal/schedule"
	"transitperf.dev/metricsdb"
)

func devObs(vehicleID string, deviation *float64) metricsdb.VehiclePosition {
	pos := obs(vehicleID, "", time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC))
	if deviation != nil {
		pos.DeviationMinutes = sql.NullFloat64{Float64: *deviation, Valid: true}
	}
	return pos
}

func TestDeviationEstimator_ClassifiesByVendorField(t *testing.T) {
	rs := scheduleWithArrivals(t, map[string]string{"T1": "8:00:00"})

	positions := []metricsdb.VehiclePosition{
		devObs("V1", ptr(-2)),  // 2 min early
		devObs("V2", ptr(0)),   // on time
		devObs("V3", ptr(6)),   // 6 min late
		devObs("V4", nil),      // no deviation reported
	}

	result, err := NewDeviationEstimator().Estimate(rs, nil, positions)
	require.NoError(t, err)

	assert.Equal(t, DataSourceDeviation, result.DataSource)
	assert.Equal(t, 3, result.Arrivals)
	assert.Equal(t, 1, result.EarlyCount)
	assert.Equal(t, 1, result.OnTimeCount)
	assert.Equal(t, 1, result.LateCount)
	assert.Equal(t, 1, result.UnmatchedObservations)
}

func TestDeviationEstimator_Boundaries(t *testing.T) {
	rs := scheduleWithArrivals(t, map[string]string{"T1": "8:00:00"})

	positions := []metricsdb.VehiclePosition{
		devObs("V1", ptr(-1)), // exactly the early threshold
		devObs("V2", ptr(5)),  // exactly the late threshold
	}

	result, err := NewDeviationEstimator().Estimate(rs, nil, positions)
	require.NoError(t, err)
	assert.Equal(t, 2, result.OnTimeCount)
}

func TestDeviationEstimator_AppliesExceptions(t *testing.T) {
	rs := scheduleWithArrivals(t, map[string]string{"T1": "8:00:00"})
	exceptions := schedule.NewExceptionIndex([]metricsdb.CalendarDate{
		{ServiceID: "WKDY", Date: "20250610", ExceptionType: 2},
	})

	pos := obs("V1", "T1", time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC))
	pos.DeviationMinutes = sql.NullFloat64{Float64: 0, Valid: true}

	result, err := NewDeviationEstimator().Estimate(rs, exceptions, []metricsdb.VehiclePosition{pos})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ExcludedObservations)
	assert.Zero(t, result.Arrivals)
}
