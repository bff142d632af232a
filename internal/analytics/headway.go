package analytics

import (
	"sort"
	"time"

	"transitperf.dev/internal/schedule"
	"transitperf.dev/metricsdb"
)

const (
	// DefaultProximityMeters bounds how far from the reference stop a
	// position may be and still count as serving it.
	DefaultProximityMeters = 50.0

	// DefaultMaxHeadwayMinutes separates a long-but-real headway from a
	// service gap. Gaps are reported separately and excluded from stats.
	DefaultMaxHeadwayMinutes = 120.0
)

// HeadwayPair is one consecutive same-date passage pair at the measured stop.
type HeadwayPair struct {
	PrevVehicleID string
	VehicleID     string
	PrevTime      time.Time
	Time          time.Time
	GapMinutes    float64
	Flagged       bool
}

// HeadwayResult summarizes gaps between consecutive vehicle passages at one
// stop.
type HeadwayResult struct {
	RouteID     string
	StopID      string
	DirectionID int64 // schedule.DirectionAny when direction was inferred or mixed

	TotalObservations int
	Passages          int
	OutOfHours        int // observations dropped by the service-hours filter

	// Pairs lists every consecutive same-date passage pair in order;
	// HeadwaysMinutes holds the gaps that passed the ceiling, FlaggedGaps
	// the ones that exceeded it.
	Pairs           []HeadwayPair
	HeadwaysMinutes []float64
	FlaggedGaps     []float64

	MeanMinutes   *float64
	MedianMinutes *float64
	MinMinutes    *float64
	MaxMinutes    *float64
	StdDevMinutes *float64
	CV            *float64 // std/mean, regularity indicator
}

// HeadwayCalculator measures observed headways at a route's reference stop
// (or an explicitly chosen stop).
type HeadwayCalculator struct {
	ProximityMeters    float64
	MaxHeadwayMinutes  float64
	FilterServiceHours bool

	// Direction restricts passages to one direction. With DirectionAny the
	// calculator infers the stop's majority direction instead, so opposite
	// runs at a shared platform don't produce bogus short headways.
	Direction int64

	Location *time.Location
}

// NewHeadwayCalculator returns a calculator with defaults: auto direction,
// service-hours filtering on.
func NewHeadwayCalculator() *HeadwayCalculator {
	return &HeadwayCalculator{
		ProximityMeters:    DefaultProximityMeters,
		MaxHeadwayMinutes:  DefaultMaxHeadwayMinutes,
		FilterServiceHours: true,
		Direction:          schedule.DirectionAny,
	}
}

// Calculate measures headways at stopID, or at the route's reference stop
// when stopID is empty. Returns schedule.ErrNoReferenceStop when no stop
// qualifies, metricsdb.ErrStopNotFound when an explicit stop is not on the
// route.
func (c *HeadwayCalculator) Calculate(rs *schedule.RouteSchedule, exceptions *schedule.ExceptionIndex, positions []metricsdb.VehiclePosition, stopID string) (HeadwayResult, error) {
	if stopID == "" {
		ref, err := rs.ReferenceStop(c.Direction)
		if err != nil {
			return HeadwayResult{}, err
		}
		stopID = ref
	}
	stop, ok := rs.Stops[stopID]
	if !ok {
		return HeadwayResult{}, metricsdb.ErrStopNotFound
	}

	loc := time.UTC
	if c.Location != nil {
		loc = c.Location
	}

	result := HeadwayResult{
		RouteID:           rs.RouteID,
		StopID:            stopID,
		DirectionID:       c.Direction,
		TotalObservations: len(positions),
	}

	var passages []Passage
	for _, pos := range positions {
		obsTime := time.Unix(pos.Timestamp, 0).In(loc)

		if c.FilterServiceHours && !rs.InServiceHours(obsTime.Hour()) {
			result.OutOfHours++
			continue
		}
		if exceptions != nil && pos.TripID.Valid {
			if trip, known := rs.Trips[pos.TripID.String]; known {
				if exceptions.Excluded(obsTime.Format("20060102"), trip.ServiceID) {
					continue
				}
			}
		}
		if stopDistance(pos, stop) > c.ProximityMeters {
			continue
		}

		// Headways only need passage ordering, not trip confidence, so an
		// unresolvable trip id falls back to a per-vehicle key instead of
		// going through the matcher.
		tripKey := FallbackTripKey(pos.VehicleID)
		direction := schedule.DirectionAny
		if pos.TripID.Valid {
			if trip, known := rs.Trips[pos.TripID.String]; known {
				tripKey = trip.ID
				direction = trip.DirectionID
			}
		}
		if c.Direction != schedule.DirectionAny && direction != c.Direction {
			continue
		}

		passages = append(passages, Passage{
			VehicleID: pos.VehicleID,
			TripID:    tripKey,
			StopID:    stopID,
			Timestamp: obsTime,
			Direction: direction,
		})
	}

	deduped := Deduplicate(passages)
	if c.Direction == schedule.DirectionAny {
		deduped = majorityDirection(deduped)
	}
	result.Passages = len(deduped)
	if len(deduped) < 2 {
		return result, nil
	}

	for i := 1; i < len(deduped); i++ {
		prev, cur := deduped[i-1], deduped[i]
		// A gap spanning midnight into a new service date is a schedule
		// boundary, not a headway.
		if prev.Timestamp.In(loc).Format("20060102") != cur.Timestamp.In(loc).Format("20060102") {
			continue
		}
		gap := round(cur.Timestamp.Sub(prev.Timestamp).Minutes(), 2)
		flagged := gap > c.MaxHeadwayMinutes
		result.Pairs = append(result.Pairs, HeadwayPair{
			PrevVehicleID: prev.VehicleID,
			VehicleID:     cur.VehicleID,
			PrevTime:      prev.Timestamp,
			Time:          cur.Timestamp,
			GapMinutes:    gap,
			Flagged:       flagged,
		})
		if flagged {
			result.FlaggedGaps = append(result.FlaggedGaps, gap)
			continue
		}
		result.HeadwaysMinutes = append(result.HeadwaysMinutes, gap)
	}

	if len(result.HeadwaysMinutes) > 0 {
		lo, hi := minMax(result.HeadwaysMinutes)
		m := mean(result.HeadwaysMinutes)
		sd := sampleStdDev(result.HeadwaysMinutes)
		result.MeanMinutes = ptr(round(m, 2))
		result.MedianMinutes = ptr(round(median(result.HeadwaysMinutes), 2))
		result.MinMinutes = ptr(round(lo, 2))
		result.MaxMinutes = ptr(round(hi, 2))
		result.StdDevMinutes = ptr(round(sd, 2))
		if m > 0 {
			result.CV = ptr(round(sd/m, 2))
		}
	}
	return result, nil
}

// majorityDirection keeps passages in the direction most passages with a
// known direction travel. Without a clear majority (or any known
// directions) all passages are kept.
func majorityDirection(passages []Passage) []Passage {
	counts := make(map[int64]int)
	for _, p := range passages {
		if p.Direction != schedule.DirectionAny {
			counts[p.Direction]++
		}
	}
	if len(counts) == 0 {
		return passages
	}

	directions := make([]int64, 0, len(counts))
	for d := range counts {
		directions = append(directions, d)
	}
	sort.Slice(directions, func(i, j int) bool {
		if counts[directions[i]] != counts[directions[j]] {
			return counts[directions[i]] > counts[directions[j]]
		}
		return directions[i] < directions[j]
	})
	majority := directions[0]

	filtered := passages[:0:0]
	for _, p := range passages {
		if p.Direction == majority || p.Direction == schedule.DirectionAny {
			filtered = append(filtered, p)
		}
	}
	return filtered
}
