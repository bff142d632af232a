package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"transitperf.dev/internal/logging"
	"transitperf.dev/internal/schedule"
	"transitperf.dev/metricsdb"
)

// DefaultMaxConcurrency bounds parallel per-route workers in batch runs.
const DefaultMaxConcurrency = 4

// RouteMetrics bundles every metric computed for one route in a batch run.
type RouteMetrics struct {
	RouteID string
	OTP     OTPResult
	Speed   SpeedResult

	// Headway is nil when the route has no usable reference stop.
	Headway *HeadwayResult
}

// BatchPipeline computes metrics for many routes in one run. Positions are
// loaded once with a single all-routes query and grouped in memory; routes
// are then processed by a bounded worker pool, each with an r-tree stop
// index so nearest-stop assignment stays cheap at batch volume.
type BatchPipeline struct {
	Session        *schedule.Session
	MaxConcurrency int

	// Templates for per-route estimators. The OTP estimator is copied per
	// route so each worker gets its own spatial index.
	OTP     *ScheduleEstimator
	Headway *HeadwayCalculator
	Speed   *SpeedEstimator

	logger *slog.Logger
}

// NewBatchPipeline returns a pipeline with default estimators.
func NewBatchPipeline(session *schedule.Session) *BatchPipeline {
	return &BatchPipeline{
		Session:        session,
		MaxConcurrency: DefaultMaxConcurrency,
		OTP:            NewScheduleEstimator(),
		Headway:        NewHeadwayCalculator(),
		Speed:          NewSpeedEstimator(),
		logger:         slog.Default().With(slog.String("component", "batch_pipeline")),
	}
}

// Run computes metrics for every route with positions in [start, end). A
// route that fails to load is logged and skipped; cancellation of ctx stops
// the run between routes.
func (p *BatchPipeline) Run(ctx context.Context, start, end time.Time) (map[string]RouteMetrics, error) {
	queries := p.Session.Queries()
	window := metricsdb.ListVehiclePositionsAllRoutesParams{
		StartUnix: start.Unix(),
		EndUnix:   end.Unix(),
	}

	positions, err := queries.ListVehiclePositionsAllRoutes(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("loading positions: %w", err)
	}

	byRoute := make(map[string][]metricsdb.VehiclePosition)
	for _, pos := range positions {
		byRoute[pos.RouteID] = append(byRoute[pos.RouteID], pos)
	}

	logging.LogOperation(p.logger, "batch_run_started",
		slog.Int("routes", len(byRoute)),
		slog.Int("positions", len(positions)))

	concurrency := p.MaxConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		mu      sync.Mutex
		results = make(map[string]RouteMetrics, len(byRoute))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for routeID, routePositions := range byRoute {
		g.Go(func() error {
			metrics, err := p.runRoute(gctx, routeID, routePositions)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				logging.LogError(p.logger, "route_metrics_failed", err,
					slog.String("route_id", routeID))
				return nil
			}
			mu.Lock()
			results[routeID] = metrics
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logging.LogOperation(p.logger, "batch_run_finished",
		slog.Int("routes_computed", len(results)))
	return results, nil
}

func (p *BatchPipeline) runRoute(ctx context.Context, routeID string, positions []metricsdb.VehiclePosition) (RouteMetrics, error) {
	rs, err := p.Session.Route(ctx, routeID)
	if err != nil {
		return RouteMetrics{}, fmt.Errorf("loading route %s: %w", routeID, err)
	}
	exceptions := p.Session.Exceptions()

	otpEstimator := *p.OTP
	otpEstimator.Stops = NewSpatialStopIndex(rs.Stops)

	otp, err := otpEstimator.Estimate(rs, exceptions, positions)
	if err != nil {
		return RouteMetrics{}, fmt.Errorf("otp for route %s: %w", routeID, err)
	}
	speed, err := p.Speed.Estimate(rs, exceptions, positions)
	if err != nil {
		return RouteMetrics{}, fmt.Errorf("speed for route %s: %w", routeID, err)
	}

	metrics := RouteMetrics{RouteID: routeID, OTP: otp, Speed: speed}

	headway, err := p.Headway.Calculate(rs, exceptions, positions, "")
	switch {
	case errors.Is(err, schedule.ErrNoReferenceStop):
		logging.LogOperation(p.logger, "headway_skipped_no_reference_stop",
			slog.String("route_id", routeID))
	case err != nil:
		return RouteMetrics{}, fmt.Errorf("headway for route %s: %w", routeID, err)
	default:
		metrics.Headway = &headway
	}

	return metrics, nil
}
