// Package pipeline runs the daily metrics job: for each recent service day
// and each route with position data, compute OTP, headway, and speed, and
// persist route-day rows plus a rolling per-route summary.
package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"transitperf.dev/internal/analytics"
	"transitperf.dev/internal/clock"
	"transitperf.dev/internal/logging"
	"transitperf.dev/internal/metrics"
	"transitperf.dev/internal/schedule"
	"transitperf.dev/metricsdb"
)

const (
	// DefaultMinPositions is the fewest observations a route-day needs
	// before its metrics are worth storing.
	DefaultMinPositions = 50

	DefaultDays              = 7
	DefaultSummaryWindowDays = 7
)

// Config controls a daily pipeline run.
type Config struct {
	// Days is how many whole days back from today to compute, today
	// excluded (its data is still arriving).
	Days int

	MinPositions      int
	SummaryWindowDays int

	// RouteIDs restricts the run; empty means every route with positions.
	RouteIDs []string

	Location *time.Location
}

// RunResult reports what a pipeline run did.
type RunResult struct {
	RouteDaysComputed int
	RouteDaysSkipped  int
	SummariesUpdated  int
}

// Job is a configured daily pipeline.
type Job struct {
	queries *metricsdb.Queries
	clk     clock.Clock
	metrics *metrics.Metrics // optional
	cfg     Config
	logger  *slog.Logger
}

// New creates a Job. m may be nil when no metrics collection is wanted.
func New(queries *metricsdb.Queries, clk clock.Clock, m *metrics.Metrics, cfg Config) *Job {
	if cfg.Days <= 0 {
		cfg.Days = DefaultDays
	}
	if cfg.MinPositions <= 0 {
		cfg.MinPositions = DefaultMinPositions
	}
	if cfg.SummaryWindowDays <= 0 {
		cfg.SummaryWindowDays = DefaultSummaryWindowDays
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Job{
		queries: queries,
		clk:     clk,
		metrics: m,
		cfg:     cfg,
		logger:  slog.Default().With(slog.String("component", "daily_pipeline")),
	}
}

// Run computes metrics for the configured window. Individual route-day
// failures are logged and skipped; cancellation stops the run between
// route-days.
func (j *Job) Run(ctx context.Context) (RunResult, error) {
	started := time.Now()

	session, err := schedule.NewSession(ctx, j.queries)
	if err != nil {
		return RunResult{}, fmt.Errorf("loading exception index: %w", err)
	}

	var result RunResult
	touched := make(map[string]struct{})

	today := j.clk.Now().In(j.cfg.Location)
	midnight := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, j.cfg.Location)

	for back := j.cfg.Days; back >= 1; back-- {
		dayStart := midnight.AddDate(0, 0, -back)
		dayEnd := dayStart.AddDate(0, 0, 1)

		routeIDs := j.cfg.RouteIDs
		if len(routeIDs) == 0 {
			routeIDs, err = j.queries.ListRouteIDsWithPositions(ctx, metricsdb.ListRouteIDsWithPositionsParams{
				StartUnix: dayStart.Unix(),
				EndUnix:   dayEnd.Unix(),
			})
			if err != nil {
				return result, fmt.Errorf("listing routes for %s: %w", dayStart.Format("2006-01-02"), err)
			}
		}

		for _, routeID := range routeIDs {
			if err := ctx.Err(); err != nil {
				return result, err
			}

			switch err := j.runRouteDay(ctx, session, routeID, dayStart, dayEnd); {
			case errors.Is(err, errInsufficientData):
				result.RouteDaysSkipped++
				if j.metrics != nil {
					j.metrics.RouteDaysSkipped.Inc()
				}
			case err != nil:
				logging.LogError(j.logger, "route_day_failed", err,
					slog.String("route_id", routeID),
					slog.String("date", dayStart.Format("20060102")))
			default:
				result.RouteDaysComputed++
				touched[routeID] = struct{}{}
				if j.metrics != nil {
					j.metrics.RouteDaysComputed.Inc()
				}
			}
		}
	}

	for routeID := range touched {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := j.updateSummary(ctx, routeID, midnight); err != nil {
			logging.LogError(j.logger, "summary_update_failed", err,
				slog.String("route_id", routeID))
			continue
		}
		result.SummariesUpdated++
	}

	if j.metrics != nil {
		j.metrics.PipelineRunDuration.Observe(time.Since(started).Seconds())
	}
	logging.LogOperation(j.logger, "daily_pipeline_finished",
		slog.Int("route_days_computed", result.RouteDaysComputed),
		slog.Int("route_days_skipped", result.RouteDaysSkipped),
		slog.Int("summaries_updated", result.SummariesUpdated),
		slog.Duration("elapsed", time.Since(started)))
	return result, nil
}

var errInsufficientData = errors.New("insufficient position data")

func (j *Job) runRouteDay(ctx context.Context, session *schedule.Session, routeID string, dayStart, dayEnd time.Time) error {
	positions, err := j.queries.ListVehiclePositions(ctx, metricsdb.ListVehiclePositionsParams{
		RouteID:   routeID,
		StartUnix: dayStart.Unix(),
		EndUnix:   dayEnd.Unix(),
	})
	if err != nil {
		return fmt.Errorf("loading positions: %w", err)
	}
	if len(positions) < j.cfg.MinPositions {
		return errInsufficientData
	}

	rs, err := session.Route(ctx, routeID)
	if err != nil {
		return fmt.Errorf("loading schedule: %w", err)
	}
	exceptions := session.Exceptions()

	otpEstimator := analytics.NewScheduleEstimator()
	otpEstimator.Location = j.cfg.Location
	otpEstimator.Stops = analytics.NewSpatialStopIndex(rs.Stops)

	otp, err := otpEstimator.Estimate(rs, exceptions, positions)
	if err != nil {
		return fmt.Errorf("otp: %w", err)
	}

	speedEstimator := analytics.NewSpeedEstimator()
	speedEstimator.Location = j.cfg.Location
	speed, err := speedEstimator.Estimate(rs, exceptions, positions)
	if err != nil {
		return fmt.Errorf("speed: %w", err)
	}

	headwayCalc := analytics.NewHeadwayCalculator()
	headwayCalc.Location = j.cfg.Location
	var headway *analytics.HeadwayResult
	hw, err := headwayCalc.Calculate(rs, exceptions, positions, "")
	switch {
	case errors.Is(err, schedule.ErrNoReferenceStop):
		// Route still gets its OTP and speed row.
	case err != nil:
		return fmt.Errorf("headway: %w", err)
	default:
		headway = &hw
	}

	if j.metrics != nil {
		j.metrics.PositionsProcessed.Add(float64(len(positions)))
		j.metrics.PositionsUnmatched.Add(float64(otp.UnmatchedObservations))
	}

	row := metricsdb.UpsertRouteMetricsDailyParams{
		RouteID:         routeID,
		Date:            dayStart.Format("20060102"),
		OtpPct:          nullFrom(otp.OnTimePct),
		EarlyPct:        nullFrom(otp.EarlyPct),
		LatePct:         nullFrom(otp.LatePct),
		OtpSampleSize:   int64(otp.Arrivals),
		AvgSpeedMph:     nullFrom(speed.AvgSpeedMph),
		SpeedSampleSize: int64(speed.SegmentsAnalyzed),
		PositionCount:   int64(len(positions)),
		ComputedAt:      j.clk.Now().Unix(),
	}
	if headway != nil {
		row.AvgHeadwayMin = nullFrom(headway.MeanMinutes)
		row.HeadwayCv = nullFrom(headway.CV)
		row.HeadwaySampleSize = int64(len(headway.HeadwaysMinutes))
	}
	if err := j.queries.UpsertRouteMetricsDaily(ctx, row); err != nil {
		return fmt.Errorf("storing route-day: %w", err)
	}
	return nil
}

// updateSummary recomputes the rolling per-route averages over the summary
// window from stored route-day rows.
func (j *Job) updateSummary(ctx context.Context, routeID string, midnight time.Time) error {
	since := midnight.AddDate(0, 0, -j.cfg.SummaryWindowDays).Format("20060102")
	rows, err := j.queries.ListRouteMetricsDaily(ctx, metricsdb.ListRouteMetricsDailyParams{
		RouteID:   routeID,
		SinceDate: since,
	})
	if err != nil {
		return fmt.Errorf("loading route-days: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	var otpVals, headwayVals, cvVals, speedVals []float64
	for _, row := range rows {
		if row.OtpPct.Valid {
			otpVals = append(otpVals, row.OtpPct.Float64)
		}
		if row.AvgHeadwayMin.Valid {
			headwayVals = append(headwayVals, row.AvgHeadwayMin.Float64)
		}
		if row.HeadwayCv.Valid {
			cvVals = append(cvVals, row.HeadwayCv.Float64)
		}
		if row.AvgSpeedMph.Valid {
			speedVals = append(speedVals, row.AvgSpeedMph.Float64)
		}
	}

	return j.queries.UpsertRouteMetricsSummary(ctx, metricsdb.UpsertRouteMetricsSummaryParams{
		RouteID:       routeID,
		WindowDays:    int64(j.cfg.SummaryWindowDays),
		AvgOtpPct:     nullMean(otpVals),
		AvgHeadwayMin: nullMean(headwayVals),
		AvgHeadwayCv:  nullMean(cvVals),
		AvgSpeedMph:   nullMean(speedVals),
		DaysWithData:  int64(len(rows)),
		ComputedAt:    j.clk.Now().Unix(),
	})
}

func nullFrom(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func nullMean(vals []float64) sql.NullFloat64 {
	if len(vals) == 0 {
		return sql.NullFloat64{}
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sql.NullFloat64{Float64: sum / float64(len(vals)), Valid: true}
}
