// Package app wires the application's dependencies together for the cmd
// entry points.
package app

import (
	"log/slog"
	"time"

	"transitperf.dev/internal/appconf"
	"transitperf.dev/internal/clock"
	"transitperf.dev/internal/metrics"
	"transitperf.dev/metricsdb"
)

// Application holds the shared dependencies of the metrics pipeline: config,
// logger, the metrics store, Prometheus metrics, and the clock the daily
// window is computed against.
type Application struct {
	Config  appconf.Config
	Logger  *slog.Logger
	DB      *metricsdb.Client
	Metrics *metrics.Metrics
	Clock   clock.Clock
}

// Build constructs an Application from config: logger, store client, metrics
// registry with the DB stats collector running.
func Build(cfg appconf.Config, logger *slog.Logger) (*Application, error) {
	db, err := metricsdb.NewClient(metricsdb.NewConfig(cfg.DBPath, cfg.Env, cfg.Verbose))
	if err != nil {
		return nil, err
	}

	m := metrics.NewWithLogger(logger)
	m.StartDBStatsCollector(db.DB, 15*time.Second)

	return &Application{
		Config:  cfg,
		Logger:  logger,
		DB:      db,
		Metrics: m,
		Clock:   clock.RealClock{},
	}, nil
}

// Shutdown stops the metrics collector and closes the store.
func (app *Application) Shutdown() error {
	app.Metrics.Shutdown()
	return app.DB.Close()
}
