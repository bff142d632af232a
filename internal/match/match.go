// Package match approximates which scheduled trip a realtime vehicle
// observation belongs to. Realtime trip ids are untrusted upstream input:
// when one resolves against the route's schedule it is accepted outright,
// otherwise the matcher scores candidate trips by schedule time and stop
// proximity.
package match

import (
	"time"

	"transitperf.dev/internal/schedule"
	"transitperf.dev/internal/utils"
	"transitperf.dev/metricsdb"
)

// Defaults mirror what works in practice for 30-60s position feeds.
const (
	DefaultMaxTimeDiffMinutes = 15.0
	DefaultMaxDistanceMeters  = 500.0
	DefaultMinConfidence      = 0.3

	// A vehicle more than this many minutes ahead of schedule is treated as
	// a mismatch rather than an extraordinarily early bus.
	maxEarlyMinutes = 5.0
)

// Result is a trip match with its confidence in [0, 1].
type Result struct {
	Trip       *schedule.Trip
	Confidence float64

	// Exact is true when the realtime trip id resolved directly against the
	// route's schedule and no scoring was needed.
	Exact bool
}

// Matcher scores vehicle observations against a route schedule.
// The zero value is not usable; construct with New.
type Matcher struct {
	MaxTimeDiffMinutes float64
	MaxDistanceMeters  float64
	MinConfidence      float64
}

// New returns a Matcher with default thresholds.
func New() Matcher {
	return Matcher{
		MaxTimeDiffMinutes: DefaultMaxTimeDiffMinutes,
		MaxDistanceMeters:  DefaultMaxDistanceMeters,
		MinConfidence:      DefaultMinConfidence,
	}
}

// Match finds the scheduled trip best matching the observation. obsTime is
// the observation timestamp in the agency's timezone; its date anchors
// schedule times. Returns false when no candidate clears MinConfidence.
func (m Matcher) Match(rs *schedule.RouteSchedule, pos metricsdb.VehiclePosition, obsTime time.Time) (Result, bool) {
	// Fast path: the realtime trip id resolves on this route.
	if pos.TripID.Valid {
		if trip, ok := rs.Trips[pos.TripID.String]; ok {
			return Result{Trip: trip, Confidence: 1.0, Exact: true}, true
		}
	}

	directionHint := schedule.DirectionAny
	if pos.TripID.Valid {
		directionHint = rs.TripDirection(pos.TripID.String)
	}

	var best Result
	for _, trip := range rs.Trips {
		if directionHint != schedule.DirectionAny && trip.DirectionID != directionHint {
			continue
		}

		confidence, ok := m.scoreTrip(rs, trip, pos, obsTime)
		if ok && confidence > best.Confidence {
			best = Result{Trip: trip, Confidence: confidence}
		}
	}

	if best.Trip == nil || best.Confidence <= m.MinConfidence {
		return Result{}, false
	}
	return best, true
}

// scoreTrip finds the trip's stop event best matching the observation and
// converts it to a confidence. Returns false when no stop event falls inside
// the time window and distance ceiling.
func (m Matcher) scoreTrip(rs *schedule.RouteSchedule, trip *schedule.Trip, pos metricsdb.VehiclePosition, obsTime time.Time) (float64, bool) {
	bestScore := 0.0
	bestDiffMinutes := 0.0
	bestDistance := 0.0
	found := false

	for _, st := range trip.StopTimes {
		scheduled := st.Arrival.Anchor(obsTime)

		// Positive diff means the vehicle is late.
		diffMinutes := obsTime.Sub(scheduled).Minutes()
		if diffMinutes < -maxEarlyMinutes || diffMinutes > m.MaxTimeDiffMinutes {
			continue
		}

		stop, ok := rs.Stops[st.StopID]
		if !ok {
			continue
		}
		distance := utils.Distance(pos.Lat, pos.Lon, stop.Lat, stop.Lon)
		if distance > m.MaxDistanceMeters {
			continue
		}

		score := (m.timeScore(diffMinutes) + distance/m.MaxDistanceMeters) / 2
		if !found || score < bestScore {
			bestScore = score
			bestDiffMinutes = diffMinutes
			bestDistance = distance
			found = true
		}
	}

	if !found {
		return 0, false
	}

	absDiff := bestDiffMinutes
	if absDiff < 0 {
		absDiff = -absDiff
	}
	timeConfidence := 1.0 - absDiff/m.MaxTimeDiffMinutes
	distanceConfidence := 1.0 - bestDistance/m.MaxDistanceMeters

	// Buses run late far more often than early: reward plausible lateness,
	// penalize suspicious earliness.
	realismBonus := 0.0
	switch {
	case bestDiffMinutes >= -2.0 && bestDiffMinutes <= 10.0:
		realismBonus = 0.1
	case bestDiffMinutes < -2.0:
		realismBonus = -0.1
	}

	confidence := (timeConfidence+distanceConfidence)/2 + realismBonus
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return confidence, true
}

// timeScore penalizes schedule deviation asymmetrically: on-time is nearly
// free, lateness costs a little, earliness costs a lot.
func (m Matcher) timeScore(diffMinutes float64) float64 {
	absDiff := diffMinutes
	if absDiff < 0 {
		absDiff = -absDiff
	}
	switch {
	case diffMinutes >= -2.0 && diffMinutes <= 2.0:
		return absDiff / 20.0
	case diffMinutes < 0:
		return 0.3 + (absDiff/m.MaxTimeDiffMinutes)*0.7
	default:
		return diffMinutes / m.MaxTimeDiffMinutes * 0.5
	}
}
