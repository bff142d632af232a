package analytics

import (
	"time"

	"transitperf.dev/internal/match"
	"transitperf.dev/internal/schedule"
	"transitperf.dev/metricsdb"
)

// Data sources for OTP results. Vendor deviation numbers can disagree with
// schedule-derived ones by several minutes, so results always say which
// method produced them and the two are never merged.
const (
	DataSourceSchedule  = "gtfs_schedule"
	DataSourceDeviation = "vendor_deviation"
)

// Default classification thresholds: more than 1 minute early is "early",
// more than 5 minutes late is "late".
const (
	DefaultEarlyThresholdSeconds = -60.0
	DefaultLateThresholdSeconds  = 300.0

	// Nearest-stop ceilings: tight when the trip id was trusted directly,
	// looser when the trip came from probabilistic matching.
	DefaultExactPathMaxMeters   = 50.0
	DefaultMatchedPathMaxMeters = 200.0
)

// OTPResult is an on-time performance summary for one route.
type OTPResult struct {
	RouteID    string
	DataSource string

	EarlyThresholdSeconds float64
	LateThresholdSeconds  float64

	TotalObservations     int
	DuplicatesRemoved     int
	ExcludedObservations  int // positions on exception-service trips
	UnmatchedObservations int
	Arrivals              int // deduplicated stop passages classified

	EarlyCount  int
	OnTimeCount int
	LateCount   int

	OnTimePct          *float64
	EarlyPct           *float64
	LatePct            *float64
	AvgLatenessSeconds *float64

	// Samples holds the deduplicated passages the counts were classified
	// from. Empty for estimators that don't reconstruct passages.
	Samples []Passage
}

// OTPEstimator computes on-time performance for a route from observed
// positions. Implementations are interchangeable; results identify their
// data source.
type OTPEstimator interface {
	Estimate(rs *schedule.RouteSchedule, exceptions *schedule.ExceptionIndex, positions []metricsdb.VehiclePosition) (OTPResult, error)
}

// ScheduleEstimator is the primary OTP implementation: it reconciles each
// observation against the GTFS schedule via trip matching and nearest-stop
// assignment, then classifies deviation per deduplicated stop passage.
type ScheduleEstimator struct {
	EarlyThresholdSeconds float64
	LateThresholdSeconds  float64
	ExactPathMaxMeters    float64
	MatchedPathMaxMeters  float64

	Matcher  match.Matcher
	Location *time.Location

	// Stops overrides nearest-stop lookup; nil means a linear scan of the
	// route's stops. The batch pipeline installs an r-tree index here.
	Stops StopIndex
}

// NewScheduleEstimator returns an estimator with default thresholds.
func NewScheduleEstimator() *ScheduleEstimator {
	return &ScheduleEstimator{
		EarlyThresholdSeconds: DefaultEarlyThresholdSeconds,
		LateThresholdSeconds:  DefaultLateThresholdSeconds,
		ExactPathMaxMeters:    DefaultExactPathMaxMeters,
		MatchedPathMaxMeters:  DefaultMatchedPathMaxMeters,
		Matcher:               match.New(),
	}
}

func (e *ScheduleEstimator) loc() *time.Location {
	if e.Location != nil {
		return e.Location
	}
	return time.UTC
}

func (e *ScheduleEstimator) stopIndex(rs *schedule.RouteSchedule) StopIndex {
	if e.Stops != nil {
		return e.Stops
	}
	return linearStopIndex{stops: rs.Stops}
}

// Estimate computes line-level OTP for the route.
func (e *ScheduleEstimator) Estimate(rs *schedule.RouteSchedule, exceptions *schedule.ExceptionIndex, positions []metricsdb.VehiclePosition) (OTPResult, error) {
	passages, counts := e.collectPassages(rs, exceptions, positions)
	deduped := Deduplicate(passages)

	result := e.newResult(rs.RouteID, counts)
	e.classify(&result, deduped)
	return result, nil
}

type observationCounts struct {
	total             int
	duplicatesRemoved int
	excluded          int
	unmatched         int
}

type rawPositionKey struct {
	vehicleID string
	timestamp int64
	lat, lon  float64
}

// collectPassages reconciles raw positions into stop passages with schedule
// deviations. Individual failures (unmatchable trips, no nearby stop, no
// scheduled time) skip the observation; nothing here aborts the run.
func (e *ScheduleEstimator) collectPassages(rs *schedule.RouteSchedule, exceptions *schedule.ExceptionIndex, positions []metricsdb.VehiclePosition) ([]Passage, observationCounts) {
	counts := observationCounts{total: len(positions)}
	stops := e.stopIndex(rs)
	loc := e.loc()

	// Exact-duplicate records appear when multiple collectors overlap.
	seen := make(map[rawPositionKey]struct{}, len(positions))

	var passages []Passage
	for _, pos := range positions {
		key := rawPositionKey{pos.VehicleID, pos.Timestamp, pos.Lat, pos.Lon}
		if _, dup := seen[key]; dup {
			counts.duplicatesRemoved++
			continue
		}
		seen[key] = struct{}{}

		obsTime := time.Unix(pos.Timestamp, 0).In(loc)

		// Trip-level exception filtering: drop positions whose known trip
		// runs on removed service for this date. Positions without a
		// resolvable trip can't be attributed to a service, so they stay.
		if exceptions != nil && pos.TripID.Valid {
			if trip, ok := rs.Trips[pos.TripID.String]; ok {
				if exceptions.Excluded(obsTime.Format("20060102"), trip.ServiceID) {
					counts.excluded++
					continue
				}
			}
		}

		var trip *schedule.Trip
		maxMeters := e.MatchedPathMaxMeters
		if pos.TripID.Valid {
			if known, ok := rs.Trips[pos.TripID.String]; ok {
				trip = known
				maxMeters = e.ExactPathMaxMeters
			}
		}
		if trip == nil {
			result, ok := e.Matcher.Match(rs, pos, obsTime)
			if !ok {
				counts.unmatched++
				continue
			}
			trip = result.Trip
		}

		stop, distance, ok := stops.Nearest(pos.Lat, pos.Lon, maxMeters)
		if !ok {
			continue
		}

		arrival, ok := rs.ScheduledArrival(trip.ID, stop.ID)
		if !ok {
			continue
		}
		scheduled := arrival.Anchor(obsTime)
		diffSeconds := obsTime.Sub(scheduled).Seconds()

		passages = append(passages, Passage{
			VehicleID:      pos.VehicleID,
			TripID:         trip.ID,
			StopID:         stop.ID,
			Timestamp:      obsTime,
			DiffSeconds:    diffSeconds,
			Direction:      trip.DirectionID,
			DistanceMeters: distance,
		})
	}

	return passages, counts
}

func (e *ScheduleEstimator) newResult(routeID string, counts observationCounts) OTPResult {
	return OTPResult{
		RouteID:               routeID,
		DataSource:            DataSourceSchedule,
		EarlyThresholdSeconds: e.EarlyThresholdSeconds,
		LateThresholdSeconds:  e.LateThresholdSeconds,
		TotalObservations:     counts.total,
		DuplicatesRemoved:     counts.duplicatesRemoved,
		ExcludedObservations:  counts.excluded,
		UnmatchedObservations: counts.unmatched,
	}
}

func (e *ScheduleEstimator) classify(result *OTPResult, passages []Passage) {
	var diffs []float64
	for _, p := range passages {
		diffs = append(diffs, p.DiffSeconds)
		switch {
		case p.DiffSeconds < e.EarlyThresholdSeconds:
			result.EarlyCount++
		case p.DiffSeconds > e.LateThresholdSeconds:
			result.LateCount++
		default:
			result.OnTimeCount++
		}
	}

	result.Samples = passages
	result.Arrivals = len(passages)
	result.OnTimePct = pct(result.OnTimeCount, result.Arrivals)
	result.EarlyPct = pct(result.EarlyCount, result.Arrivals)
	result.LatePct = pct(result.LateCount, result.Arrivals)
	if len(diffs) > 0 {
		result.AvgLatenessSeconds = ptr(round(mean(diffs), 1))
	}
}

// EstimateAtStop computes OTP for passages at a single stop: observations
// within ExactPathMaxMeters of the stop, classified against that stop's
// scheduled times. Returns metricsdb.ErrStopNotFound when the stop is not on
// the route.
func (e *ScheduleEstimator) EstimateAtStop(rs *schedule.RouteSchedule, exceptions *schedule.ExceptionIndex, positions []metricsdb.VehiclePosition, stopID string) (OTPResult, error) {
	stop, ok := rs.Stops[stopID]
	if !ok {
		return OTPResult{}, metricsdb.ErrStopNotFound
	}
	loc := e.loc()

	counts := observationCounts{total: len(positions)}
	var passages []Passage
	for _, pos := range positions {
		obsTime := time.Unix(pos.Timestamp, 0).In(loc)

		if exceptions != nil && pos.TripID.Valid {
			if trip, known := rs.Trips[pos.TripID.String]; known {
				if exceptions.Excluded(obsTime.Format("20060102"), trip.ServiceID) {
					counts.excluded++
					continue
				}
			}
		}

		distance := stopDistance(pos, stop)
		if distance > e.ExactPathMaxMeters {
			continue
		}

		var trip *schedule.Trip
		if pos.TripID.Valid {
			trip = rs.Trips[pos.TripID.String]
		}
		if trip == nil {
			result, matched := e.Matcher.Match(rs, pos, obsTime)
			if !matched {
				counts.unmatched++
				continue
			}
			trip = result.Trip
		}

		arrival, scheduledOK := rs.ScheduledArrival(trip.ID, stopID)
		if !scheduledOK {
			continue
		}
		diffSeconds := obsTime.Sub(arrival.Anchor(obsTime)).Seconds()

		passages = append(passages, Passage{
			VehicleID:      pos.VehicleID,
			TripID:         trip.ID,
			StopID:         stopID,
			Timestamp:      obsTime,
			DiffSeconds:    diffSeconds,
			Direction:      trip.DirectionID,
			DistanceMeters: distance,
		})
	}

	result := e.newResult(rs.RouteID, counts)
	e.classify(&result, Deduplicate(passages))
	return result, nil
}
