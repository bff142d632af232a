package schedule

import (
	"context"
	"sync"

	"transitperf.dev/metricsdb"
)

// Session caches schedule data for one analysis run: the exception index is
// loaded once up front, route schedules are loaded on first use and shared by
// every calculation that follows. Safe for concurrent use by the batch
// pipeline's per-route workers.
type Session struct {
	queries    *metricsdb.Queries
	exceptions *ExceptionIndex

	mu     sync.Mutex
	routes map[string]*RouteSchedule
}

// NewSession creates a Session and eagerly loads the exception index.
func NewSession(ctx context.Context, queries *metricsdb.Queries) (*Session, error) {
	exceptions, err := LoadExceptionIndex(ctx, queries)
	if err != nil {
		return nil, err
	}
	return &Session{
		queries:    queries,
		exceptions: exceptions,
		routes:     make(map[string]*RouteSchedule),
	}, nil
}

// Exceptions returns the session's exception index.
func (s *Session) Exceptions() *ExceptionIndex {
	return s.exceptions
}

// Queries exposes the underlying store for calculations that need direct
// position queries.
func (s *Session) Queries() *metricsdb.Queries {
	return s.queries
}

// Route returns the cached schedule for routeID, loading it on first use.
func (s *Session) Route(ctx context.Context, routeID string) (*RouteSchedule, error) {
	s.mu.Lock()
	if rs, ok := s.routes[routeID]; ok {
		s.mu.Unlock()
		return rs, nil
	}
	s.mu.Unlock()

	// Load outside the lock: route loads are slow and independent.
	rs, err := LoadRoute(ctx, s.queries, routeID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.routes[routeID]; ok {
		return existing, nil
	}
	s.routes[routeID] = rs
	return rs, nil
}
