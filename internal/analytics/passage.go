// Package analytics computes route performance metrics from observed vehicle
// positions reconciled against the schedule: on-time performance, headways,
// and travel speeds.
package analytics

import (
	"sort"
	"time"

	"transitperf.dev/internal/gtfstime"
)

// Passage is one reconciled stop visit: a vehicle observed at (or departing)
// a stop, with its deviation from schedule when known.
type Passage struct {
	VehicleID      string
	TripID         string
	StopID         string
	Timestamp      time.Time
	DiffSeconds    float64
	Direction      int64
	DistanceMeters float64
}

// FallbackTripKey is the grouping key for passages whose observation carried
// no usable trip id. Keyed per vehicle so distinct vehicles never collapse
// into one group.
func FallbackTripKey(vehicleID string) string {
	return "unknown_" + vehicleID
}

type passageKey struct {
	vehicleID string
	tripID    string
	stopID    string
	date      gtfstime.ServiceDate
}

// Deduplicate collapses repeated observations of the same vehicle at the
// same stop into one passage, keeping the LATEST timestamp. The last
// observation approximates the departure: a bus that arrives early but holds
// until its scheduled time still serves waiting passengers.
//
// Grouping always includes the calendar date, so the same vehicle and stop
// on different days never collapse. The result is sorted by timestamp, which
// makes the operation idempotent and insensitive to input order.
func Deduplicate(passages []Passage) []Passage {
	latest := make(map[passageKey]Passage, len(passages))

	for _, p := range passages {
		key := passageKey{
			vehicleID: p.VehicleID,
			tripID:    p.TripID,
			stopID:    p.StopID,
			date:      gtfstime.DateOf(p.Timestamp),
		}
		if existing, ok := latest[key]; !ok || p.Timestamp.After(existing.Timestamp) {
			latest[key] = p
		}
	}

	result := make([]Passage, 0, len(latest))
	for _, p := range latest {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.Before(result[j].Timestamp)
		}
		if result[i].VehicleID != result[j].VehicleID {
			return result[i].VehicleID < result[j].VehicleID
		}
		return result[i].StopID < result[j].StopID
	})
	return result
}
