package analytics

import (
	"time"

	"transitperf.dev/internal/schedule"
	"transitperf.dev/metricsdb"
)

// Vendor deviation thresholds are in minutes, matching the field's unit.
const (
	DefaultDeviationEarlyMinutes = -1.0
	DefaultDeviationLateMinutes  = 5.0
)

// DeviationEstimator classifies observations by the deviation_minutes field
// the vendor feed reports, with no schedule reconciliation of its own. It is
// a supplementary cross-check for the schedule-based estimator: the two
// methods disagree by minutes on real data and their results must never be
// merged.
type DeviationEstimator struct {
	EarlyThresholdMinutes float64
	LateThresholdMinutes  float64

	Location *time.Location
}

// NewDeviationEstimator returns an estimator with default thresholds.
func NewDeviationEstimator() *DeviationEstimator {
	return &DeviationEstimator{
		EarlyThresholdMinutes: DefaultDeviationEarlyMinutes,
		LateThresholdMinutes:  DefaultDeviationLateMinutes,
	}
}

// Estimate classifies every observation carrying a deviation value.
// Observations without one count as unmatched. The exception index still
// applies when the observation's trip id resolves on the route.
func (e *DeviationEstimator) Estimate(rs *schedule.RouteSchedule, exceptions *schedule.ExceptionIndex, positions []metricsdb.VehiclePosition) (OTPResult, error) {
	loc := time.UTC
	if e.Location != nil {
		loc = e.Location
	}

	result := OTPResult{
		RouteID:               rs.RouteID,
		DataSource:            DataSourceDeviation,
		EarlyThresholdSeconds: e.EarlyThresholdMinutes * 60,
		LateThresholdSeconds:  e.LateThresholdMinutes * 60,
		TotalObservations:     len(positions),
	}

	var diffs []float64
	for _, pos := range positions {
		if exceptions != nil && pos.TripID.Valid {
			if trip, ok := rs.Trips[pos.TripID.String]; ok {
				obsTime := time.Unix(pos.Timestamp, 0).In(loc)
				if exceptions.Excluded(obsTime.Format("20060102"), trip.ServiceID) {
					result.ExcludedObservations++
					continue
				}
			}
		}

		if !pos.DeviationMinutes.Valid {
			result.UnmatchedObservations++
			continue
		}
		deviation := pos.DeviationMinutes.Float64

		diffs = append(diffs, deviation*60)
		switch {
		case deviation < e.EarlyThresholdMinutes:
			result.EarlyCount++
		case deviation > e.LateThresholdMinutes:
			result.LateCount++
		default:
			result.OnTimeCount++
		}
	}

	result.Arrivals = len(diffs)
	result.OnTimePct = pct(result.OnTimeCount, result.Arrivals)
	result.EarlyPct = pct(result.EarlyCount, result.Arrivals)
	result.LatePct = pct(result.LateCount, result.Arrivals)
	if len(diffs) > 0 {
		result.AvgLatenessSeconds = ptr(round(mean(diffs), 1))
	}
	return result, nil
}
