package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"transitperf.dev/internal/gtfstime"
	"transitperf.dev/internal/logging"
	"transitperf.dev/metricsdb"
)

// ErrNoReferenceStop is returned when a route has no stop suitable as a
// headway reference point.
var ErrNoReferenceStop = errors.New("no suitable reference stop")

// DirectionAny disables direction filtering.
const DirectionAny int64 = -1

// Default service hours used when a route has no parseable stop times.
const (
	defaultServiceStartHour = 5
	defaultServiceEndHour   = 23
)

// StopEvent is one scheduled stop visit of a trip.
type StopEvent struct {
	TripID       string
	StopID       string
	StopSequence int64
	Arrival      gtfstime.TimeOfDay
	Departure    gtfstime.TimeOfDay
}

// Trip is a scheduled trip with its ordered stop events.
type Trip struct {
	ID          string
	ServiceID   string
	DirectionID int64 // DirectionAny when the feed left it unset
	ShapeID     string
	StopTimes   []StopEvent
}

type tripStop struct {
	tripID string
	stopID string
}

// RouteSchedule is the loaded schedule snapshot for one route: its trips,
// their stop events, and the stops they serve. Loaded once per route per
// analysis session, then queried in memory.
type RouteSchedule struct {
	RouteID string
	Trips   map[string]*Trip
	Stops   map[string]metricsdb.Stop

	// SkippedStopTimes counts stop_times rows dropped for malformed clock
	// strings. Malformed schedule rows never abort a load.
	SkippedStopTimes int

	arrivals  map[tripStop]gtfstime.TimeOfDay
	hourSpan  [2]int
	hasHours  bool
	stopOrder []string // stop ids in deterministic order for scans
}

// NewRouteSchedule assembles a schedule snapshot from already-parsed trips
// and stops. LoadRoute is the database-backed path; this constructor serves
// callers that build schedules directly.
func NewRouteSchedule(routeID string, trips []*Trip, stops []metricsdb.Stop) *RouteSchedule {
	rs := &RouteSchedule{
		RouteID:  routeID,
		Trips:    make(map[string]*Trip, len(trips)),
		Stops:    make(map[string]metricsdb.Stop, len(stops)),
		arrivals: make(map[tripStop]gtfstime.TimeOfDay),
	}
	for _, s := range stops {
		rs.Stops[s.ID] = s
		rs.stopOrder = append(rs.stopOrder, s.ID)
	}
	for _, t := range trips {
		rs.Trips[t.ID] = t
		for _, st := range t.StopTimes {
			rs.arrivals[tripStop{tripID: t.ID, stopID: st.StopID}] = st.Arrival
			rs.observeHour(int(st.Arrival) / 3600)
		}
	}
	return rs
}

func (rs *RouteSchedule) observeHour(hour int) {
	if !rs.hasHours {
		rs.hourSpan = [2]int{hour, hour}
		rs.hasHours = true
		return
	}
	if hour < rs.hourSpan[0] {
		rs.hourSpan[0] = hour
	}
	if hour > rs.hourSpan[1] {
		rs.hourSpan[1] = hour
	}
}

// LoadRoute loads the schedule snapshot for routeID. Returns
// metricsdb.ErrRouteNotFound when the route does not exist.
func LoadRoute(ctx context.Context, queries *metricsdb.Queries, routeID string) (*RouteSchedule, error) {
	logger := slog.Default().With(slog.String("component", "schedule_loader"))

	if _, err := queries.GetRoute(ctx, routeID); err != nil {
		return nil, err
	}

	trips, err := queries.ListTripsForRoute(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("loading trips for route %s: %w", routeID, err)
	}
	stopTimes, err := queries.ListStopTimesForRoute(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("loading stop times for route %s: %w", routeID, err)
	}
	stops, err := queries.ListStopsForRoute(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("loading stops for route %s: %w", routeID, err)
	}

	rs := &RouteSchedule{
		RouteID:  routeID,
		Trips:    make(map[string]*Trip, len(trips)),
		Stops:    make(map[string]metricsdb.Stop, len(stops)),
		arrivals: make(map[tripStop]gtfstime.TimeOfDay, len(stopTimes)),
	}

	for _, t := range trips {
		direction := DirectionAny
		if t.DirectionID.Valid {
			direction = t.DirectionID.Int64
		}
		rs.Trips[t.ID] = &Trip{
			ID:          t.ID,
			ServiceID:   t.ServiceID,
			DirectionID: direction,
			ShapeID:     t.ShapeID.String,
		}
	}

	for _, s := range stops {
		rs.Stops[s.ID] = s
		rs.stopOrder = append(rs.stopOrder, s.ID)
	}

	for _, st := range stopTimes {
		trip, ok := rs.Trips[st.TripID]
		if !ok {
			continue
		}
		arrival, err := gtfstime.Parse(st.ArrivalTime)
		if err != nil {
			rs.SkippedStopTimes++
			continue
		}
		departure, err := gtfstime.Parse(st.DepartureTime)
		if err != nil {
			rs.SkippedStopTimes++
			continue
		}

		trip.StopTimes = append(trip.StopTimes, StopEvent{
			TripID:       st.TripID,
			StopID:       st.StopID,
			StopSequence: st.StopSequence,
			Arrival:      arrival,
			Departure:    departure,
		})
		rs.arrivals[tripStop{tripID: st.TripID, stopID: st.StopID}] = arrival
		rs.observeHour(int(arrival) / 3600)
	}

	// Rows arrive ordered by (trip_id, stop_sequence), but malformed-row
	// skips make that worth re-asserting per trip.
	for _, trip := range rs.Trips {
		sort.Slice(trip.StopTimes, func(i, j int) bool {
			return trip.StopTimes[i].StopSequence < trip.StopTimes[j].StopSequence
		})
	}

	if rs.SkippedStopTimes > 0 {
		logging.LogOperation(logger, "malformed_stop_times_skipped",
			slog.String("route_id", routeID),
			slog.Int("skipped", rs.SkippedStopTimes))
	}

	return rs, nil
}

// ScheduledArrival returns the scheduled arrival of tripID at stopID.
func (rs *RouteSchedule) ScheduledArrival(tripID, stopID string) (gtfstime.TimeOfDay, bool) {
	t, ok := rs.arrivals[tripStop{tripID: tripID, stopID: stopID}]
	return t, ok
}

// TripDirection returns the direction of tripID, or DirectionAny if the trip
// is unknown or has no direction.
func (rs *RouteSchedule) TripDirection(tripID string) int64 {
	if t, ok := rs.Trips[tripID]; ok {
		return t.DirectionID
	}
	return DirectionAny
}

// ServiceHours derives the route's operating hours from its stop times.
// The start hour is normalized to 0-23; the end hour keeps the GTFS
// convention and may exceed 24 for service running past midnight.
func (rs *RouteSchedule) ServiceHours() (startHour, endHour int) {
	if !rs.hasHours {
		return defaultServiceStartHour, defaultServiceEndHour
	}
	return rs.hourSpan[0] % 24, rs.hourSpan[1]
}

// InServiceHours reports whether a wall-clock hour (0-23) falls inside the
// route's operating span, handling spans that cross midnight.
func (rs *RouteSchedule) InServiceHours(hour int) bool {
	start, end := rs.ServiceHours()
	if end <= 23 {
		return hour >= start && hour <= end
	}
	// Service crosses midnight: a 4..26 span admits hours >= 4 or <= 2.
	return hour >= start || hour <= end-24
}

// ReferenceStop picks the stop to measure headways at: a stop that most
// trips pass through (at least 80% of the maximum), preferring one in the
// middle of the route by mean stop sequence. Pass DirectionAny to consider
// all trips.
func (rs *RouteSchedule) ReferenceStop(directionID int64) (string, error) {
	stopCounts := make(map[string]int)
	stopSequences := make(map[string][]int64)

	for _, trip := range rs.Trips {
		if directionID != DirectionAny && trip.DirectionID != directionID {
			continue
		}
		for _, st := range trip.StopTimes {
			stopCounts[st.StopID]++
			stopSequences[st.StopID] = append(stopSequences[st.StopID], st.StopSequence)
		}
	}

	if len(stopCounts) == 0 {
		return "", ErrNoReferenceStop
	}

	maxCount := 0
	for _, count := range stopCounts {
		if count > maxCount {
			maxCount = count
		}
	}

	var common []string
	for stopID, count := range stopCounts {
		if float64(count) >= float64(maxCount)*0.8 {
			common = append(common, stopID)
		}
	}

	meanSequence := func(stopID string) float64 {
		seqs := stopSequences[stopID]
		var sum int64
		for _, s := range seqs {
			sum += s
		}
		return float64(sum) / float64(len(seqs))
	}
	sort.Slice(common, func(i, j int) bool {
		mi, mj := meanSequence(common[i]), meanSequence(common[j])
		if mi != mj {
			return mi < mj
		}
		return common[i] < common[j]
	})

	return common[len(common)/2], nil
}

// StopIDs returns the route's stop ids in deterministic order.
func (rs *RouteSchedule) StopIDs() []string {
	return rs.stopOrder
}
