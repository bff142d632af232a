package analytics

import (
	"sort"
	"time"

	"github.com/twpayne/go-polyline"

	"transitperf.dev/internal/schedule"
	"transitperf.dev/internal/utils"
	"transitperf.dev/metricsdb"
)

const (
	// DefaultMinDurationMinutes drops trip segments too short to yield a
	// meaningful average speed.
	DefaultMinDurationMinutes = 5.0

	// DefaultMaxSpeedMph rejects segments whose implied speed can only come
	// from GPS jumps or feed glitches.
	DefaultMaxSpeedMph = 60.0

	metersPerMile = 1609.344
)

// TripSpeed is the observed speed of one vehicle over one trip (or one
// service day when the feed carried no trip id).
type TripSpeed struct {
	VehicleID string
	TripKey   string

	Observations    int
	DistanceMiles   float64
	DurationMinutes float64
	SpeedMph        float64

	// Path is the Google encoded polyline of the observed GPS track.
	Path string
}

// SpeedResult summarizes observed travel speeds on a route.
type SpeedResult struct {
	RouteID string

	TotalObservations    int
	ExcludedObservations int
	SegmentsAnalyzed     int
	SegmentsDiscarded    int

	// AvgSpeedMph is distance-weighted: total miles over total hours, so a
	// long express run counts for more than a short shuttle hop.
	AvgSpeedMph    *float64
	MedianSpeedMph *float64
	MinSpeedMph    *float64
	MaxSpeedMph    *float64

	TotalDistanceMiles *float64

	Trips []TripSpeed
}

// SpeedEstimator derives travel speeds from consecutive GPS observations.
type SpeedEstimator struct {
	MinDurationMinutes float64
	MaxSpeedMph        float64

	Location *time.Location
}

// NewSpeedEstimator returns an estimator with default limits.
func NewSpeedEstimator() *SpeedEstimator {
	return &SpeedEstimator{
		MinDurationMinutes: DefaultMinDurationMinutes,
		MaxSpeedMph:        DefaultMaxSpeedMph,
	}
}

type speedGroupKey struct {
	vehicleID string
	tripKey   string
}

// Estimate computes per-trip and route-level speeds from raw positions.
func (e *SpeedEstimator) Estimate(rs *schedule.RouteSchedule, exceptions *schedule.ExceptionIndex, positions []metricsdb.VehiclePosition) (SpeedResult, error) {
	loc := time.UTC
	if e.Location != nil {
		loc = e.Location
	}

	result := SpeedResult{
		RouteID:           rs.RouteID,
		TotalObservations: len(positions),
	}

	// Group observations into vehicle runs. With a trip id the run is the
	// trip; without one, the vehicle's whole service day stands in for it.
	groups := make(map[speedGroupKey][]metricsdb.VehiclePosition)
	for _, pos := range positions {
		obsTime := time.Unix(pos.Timestamp, 0).In(loc)

		if exceptions != nil && pos.TripID.Valid {
			if trip, ok := rs.Trips[pos.TripID.String]; ok {
				if exceptions.Excluded(obsTime.Format("20060102"), trip.ServiceID) {
					result.ExcludedObservations++
					continue
				}
			}
		}

		var key speedGroupKey
		if pos.TripID.Valid {
			key = speedGroupKey{vehicleID: pos.VehicleID, tripKey: pos.TripID.String}
		} else {
			key = speedGroupKey{vehicleID: pos.VehicleID, tripKey: obsTime.Format("20060102")}
		}
		groups[key] = append(groups[key], pos)
	}

	var (
		speeds     []float64
		totalMiles float64
		totalHours float64
	)
	for key, obs := range groups {
		trip, ok := e.tripSpeed(key, obs, loc)
		if !ok {
			result.SegmentsDiscarded++
			continue
		}
		result.SegmentsAnalyzed++
		result.Trips = append(result.Trips, trip)
		speeds = append(speeds, trip.SpeedMph)
		totalMiles += trip.DistanceMiles
		totalHours += trip.DurationMinutes / 60
	}

	sort.Slice(result.Trips, func(i, j int) bool {
		if result.Trips[i].VehicleID != result.Trips[j].VehicleID {
			return result.Trips[i].VehicleID < result.Trips[j].VehicleID
		}
		return result.Trips[i].TripKey < result.Trips[j].TripKey
	})

	if len(speeds) > 0 {
		lo, hi := minMax(speeds)
		result.AvgSpeedMph = ptr(round(totalMiles/totalHours, 2))
		result.MedianSpeedMph = ptr(round(median(speeds), 2))
		result.MinSpeedMph = ptr(round(lo, 2))
		result.MaxSpeedMph = ptr(round(hi, 2))
		result.TotalDistanceMiles = ptr(round(totalMiles, 2))
	}
	return result, nil
}

// tripSpeed turns one run's observations into a speed sample. Returns false
// for runs too short in time or implausibly fast.
func (e *SpeedEstimator) tripSpeed(key speedGroupKey, obs []metricsdb.VehiclePosition, loc *time.Location) (TripSpeed, bool) {
	if len(obs) < 2 {
		return TripSpeed{}, false
	}
	sort.Slice(obs, func(i, j int) bool {
		return obs[i].Timestamp < obs[j].Timestamp
	})

	durationMinutes := float64(obs[len(obs)-1].Timestamp-obs[0].Timestamp) / 60
	if durationMinutes < e.MinDurationMinutes {
		return TripSpeed{}, false
	}

	var meters float64
	coords := make([][]float64, 0, len(obs))
	for i, pos := range obs {
		coords = append(coords, []float64{pos.Lat, pos.Lon})
		if i > 0 {
			meters += utils.Distance(obs[i-1].Lat, obs[i-1].Lon, pos.Lat, pos.Lon)
		}
	}

	miles := meters / metersPerMile
	mph := miles / (durationMinutes / 60)
	if mph > e.MaxSpeedMph {
		return TripSpeed{}, false
	}

	return TripSpeed{
		VehicleID:       key.vehicleID,
		TripKey:         key.tripKey,
		Observations:    len(obs),
		DistanceMiles:   round(miles, 3),
		DurationMinutes: round(durationMinutes, 2),
		SpeedMph:        round(mph, 2),
		Path:            string(polyline.EncodeCoords(coords)),
	}, true
}
