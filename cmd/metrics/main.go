package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/davecgh/go-spew/spew"
	"github.com/joho/godotenv"

	"transitperf.dev/internal/analytics"
	"transitperf.dev/internal/app"
	"transitperf.dev/internal/appconf"
	"transitperf.dev/internal/logging"
	"transitperf.dev/internal/pipeline"
	"transitperf.dev/internal/schedule"
)

type options struct {
	dbPath       string
	env          string
	verbose      bool
	days         int
	routes       string
	minPositions int
	batch        bool
	dump         bool

	importGTFS      string
	importPositions string
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	fs := flag.NewFlagSet("metrics", flag.ContinueOnError)

	var opts options
	fs.StringVar(&opts.dbPath, "db", envOr("TRANSITPERF_DB", "transitperf.db"), "path to the SQLite metrics store")
	fs.StringVar(&opts.env, "env", envOr("TRANSITPERF_ENV", "development"), "environment (test|development|production)")
	fs.BoolVar(&opts.verbose, "verbose", false, "enable debug logging")
	fs.IntVar(&opts.days, "days", pipeline.DefaultDays, "how many whole days back to compute")
	fs.StringVar(&opts.routes, "route", "", "comma-separated route ids to restrict the run")
	fs.IntVar(&opts.minPositions, "min-positions", pipeline.DefaultMinPositions, "minimum observations per route-day")
	fs.BoolVar(&opts.batch, "batch", false, "run an ad-hoc batch computation over the window instead of the daily job")
	fs.BoolVar(&opts.dump, "dump", false, "dump full batch results to stdout")
	fs.StringVar(&opts.importGTFS, "import-gtfs", "", "GTFS zip path or URL to import before running")
	fs.StringVar(&opts.importPositions, "import-positions", "", "vehicle position CSV (optionally gzipped) to import before running")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

// ParseRouteIDs splits a comma-separated route list, trimming whitespace and
// dropping empty entries.
func ParseRouteIDs(s string) []string {
	var routes []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			routes = append(routes, trimmed)
		}
	}
	return routes
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(args []string) error {
	// .env is optional; flags and real env vars win.
	_ = godotenv.Load()

	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := appconf.Config{
		Env:     appconf.EnvFlagToEnvironment(opts.env),
		Verbose: opts.verbose,
		DBPath:  opts.dbPath,
	}

	application, err := app.Build(cfg, logger)
	if err != nil {
		return fmt.Errorf("building application: %w", err)
	}
	defer func() {
		logging.SafeCloseWithLogging(closerFunc(application.Shutdown), logger, "application")
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.importGTFS != "" {
		if err := importStatic(ctx, application, opts.importGTFS); err != nil {
			return err
		}
	}
	if opts.importPositions != "" {
		result, err := application.DB.ImportPositionsCSV(ctx, opts.importPositions)
		if err != nil {
			return fmt.Errorf("importing positions: %w", err)
		}
		logging.LogOperation(logger, "positions_imported",
			slog.Int("inserted", result.Inserted),
			slog.Int("skipped", result.Skipped))
	}

	if opts.batch {
		return runBatch(ctx, application, opts)
	}
	return runDaily(ctx, application, opts)
}

func importStatic(ctx context.Context, application *app.Application, source string) error {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		if err := application.DB.DownloadAndStore(ctx, source); err != nil {
			return fmt.Errorf("importing GTFS from %s: %w", source, err)
		}
		return nil
	}
	if err := application.DB.ImportStaticFromFile(ctx, source); err != nil {
		return fmt.Errorf("importing GTFS from %s: %w", source, err)
	}
	return nil
}

func runDaily(ctx context.Context, application *app.Application, opts options) error {
	routeIDs := ParseRouteIDs(opts.routes)
	for _, routeID := range routeIDs {
		summary, err := application.DB.Queries.GetRouteDataSummary(ctx, routeID)
		if err != nil {
			return fmt.Errorf("summarizing route %s: %w", routeID, err)
		}
		application.Logger.Debug("route data summary",
			slog.String("route_id", summary.RouteID),
			slog.Int64("positions", summary.PositionCount),
			slog.Int64("vehicles", summary.DistinctVehicles),
			slog.Int64("first_unix", summary.FirstUnix),
			slog.Int64("last_unix", summary.LastUnix))
	}

	job := pipeline.New(application.DB.Queries, application.Clock, application.Metrics, pipeline.Config{
		Days:         opts.days,
		MinPositions: opts.minPositions,
		RouteIDs:     routeIDs,
	})

	result, err := job.Run(ctx)
	if err != nil {
		return fmt.Errorf("daily pipeline: %w", err)
	}
	logging.LogOperation(application.Logger, "run_complete",
		slog.Int("route_days_computed", result.RouteDaysComputed),
		slog.Int("route_days_skipped", result.RouteDaysSkipped),
		slog.Int("summaries_updated", result.SummariesUpdated))
	return nil
}

func runBatch(ctx context.Context, application *app.Application, opts options) error {
	session, err := schedule.NewSession(ctx, application.DB.Queries)
	if err != nil {
		return fmt.Errorf("loading schedule session: %w", err)
	}

	end := application.Clock.Now()
	start := end.AddDate(0, 0, -opts.days)

	results, err := analytics.NewBatchPipeline(session).Run(ctx, start, end)
	if err != nil {
		return fmt.Errorf("batch pipeline: %w", err)
	}

	if opts.dump {
		spew.Fdump(os.Stdout, results)
		return nil
	}
	for routeID, metrics := range results {
		attrs := []slog.Attr{
			slog.Int("arrivals", metrics.OTP.Arrivals),
			slog.Int("speed_segments", metrics.Speed.SegmentsAnalyzed),
		}
		if metrics.OTP.OnTimePct != nil {
			attrs = append(attrs, slog.Float64("otp_pct", *metrics.OTP.OnTimePct))
		}
		if metrics.Headway != nil && metrics.Headway.MeanMinutes != nil {
			attrs = append(attrs, slog.Float64("avg_headway_min", *metrics.Headway.MeanMinutes))
		}
		application.Logger.LogAttrs(ctx, slog.LevelInfo, "route "+routeID, attrs...)
	}
	return nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
