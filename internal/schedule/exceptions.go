// Package schedule loads per-route schedule snapshots from the metrics store
// and answers schedule questions: which service runs on a date, where the
// reference stop of a route is, and what hours a route operates.
package schedule

import (
	"context"

	"transitperf.dev/metricsdb"
)

type exceptionKey struct {
	date      string
	serviceID string
}

// ExceptionIndex answers whether a (date, service) combination had its
// service removed by a calendar exception. Only removed-service exceptions
// (type 2) are indexed: added-service dates (type 1) represent real service
// that should stay in scope for analysis.
type ExceptionIndex struct {
	removed map[exceptionKey]struct{}
}

// LoadExceptionIndex builds the index from calendar_dates. It is loaded once
// per analysis session and queried per position.
func LoadExceptionIndex(ctx context.Context, queries *metricsdb.Queries) (*ExceptionIndex, error) {
	records, err := queries.ListRemovedServiceExceptions(ctx)
	if err != nil {
		return nil, err
	}

	return NewExceptionIndex(records), nil
}

// NewExceptionIndex builds an index from removed-service records directly.
func NewExceptionIndex(records []metricsdb.CalendarDate) *ExceptionIndex {
	idx := &ExceptionIndex{removed: make(map[exceptionKey]struct{}, len(records))}
	for _, r := range records {
		idx.removed[exceptionKey{date: r.Date, serviceID: r.ServiceID}] = struct{}{}
	}
	return idx
}

// Excluded reports whether serviceID was removed on the given "YYYYMMDD" date.
func (x *ExceptionIndex) Excluded(date, serviceID string) bool {
	_, ok := x.removed[exceptionKey{date: date, serviceID: serviceID}]
	return ok
}

// Len returns the number of indexed exceptions.
func (x *ExceptionIndex) Len() int {
	return len(x.removed)
}
