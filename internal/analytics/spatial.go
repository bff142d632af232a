package analytics

import (
	"github.com/tidwall/rtree"

	"transitperf.dev/internal/utils"
	"transitperf.dev/metricsdb"
)

// StopIndex answers nearest-stop queries for one route's stops.
type StopIndex interface {
	// Nearest returns the closest stop within maxMeters of (lat, lon).
	Nearest(lat, lon, maxMeters float64) (metricsdb.Stop, float64, bool)
}

// linearStopIndex scans every stop. Fine for single-route work where a
// route rarely has more than a few hundred stops.
type linearStopIndex struct {
	stops map[string]metricsdb.Stop
}

func (idx linearStopIndex) Nearest(lat, lon, maxMeters float64) (metricsdb.Stop, float64, bool) {
	var nearest metricsdb.Stop
	minDistance := maxMeters
	found := false

	for _, stop := range idx.stops {
		d := utils.Distance(lat, lon, stop.Lat, stop.Lon)
		if d <= minDistance {
			minDistance = d
			nearest = stop
			found = true
		}
	}
	return nearest, minDistance, found
}

func stopDistance(pos metricsdb.VehiclePosition, stop metricsdb.Stop) float64 {
	return utils.Distance(pos.Lat, pos.Lon, stop.Lat, stop.Lon)
}

// SpatialStopIndex is an r-tree backed StopIndex for the batch pipeline,
// where millions of positions are assigned to stops in one run.
type SpatialStopIndex struct {
	tree  rtree.RTreeG[metricsdb.Stop]
	count int
}

// NewSpatialStopIndex builds an index over the given stops.
func NewSpatialStopIndex(stops map[string]metricsdb.Stop) *SpatialStopIndex {
	idx := &SpatialStopIndex{}
	for _, stop := range stops {
		point := [2]float64{stop.Lon, stop.Lat}
		idx.tree.Insert(point, point, stop)
		idx.count++
	}
	return idx
}

// Len returns the number of indexed stops.
func (idx *SpatialStopIndex) Len() int {
	return idx.count
}

// Nearest searches the bounding box covering maxMeters around the point and
// refines candidates with exact distances.
func (idx *SpatialStopIndex) Nearest(lat, lon, maxMeters float64) (metricsdb.Stop, float64, bool) {
	bounds := utils.CalculateBounds(lat, lon, maxMeters)

	var nearest metricsdb.Stop
	minDistance := maxMeters
	found := false

	idx.tree.Search(
		[2]float64{bounds.MinLon, bounds.MinLat},
		[2]float64{bounds.MaxLon, bounds.MaxLat},
		func(_, _ [2]float64, stop metricsdb.Stop) bool {
			d := utils.Distance(lat, lon, stop.Lat, stop.Lon)
			if d <= minDistance {
				minDistance = d
				nearest = stop
				found = true
			}
			return true
		},
	)
	return nearest, minDistance, found
}
