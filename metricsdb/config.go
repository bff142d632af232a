package metricsdb

import "transitperf.dev/internal/appconf"

const defaultBulkInsertBatchSize = 3000

// Config holds the options for opening a metrics database.
type Config struct {
	DBPath  string
	Env     appconf.Environment
	verbose bool

	// BulkInsertBatchSize caps the number of rows per multi-row INSERT during
	// static imports. Zero means the default.
	BulkInsertBatchSize int
}

// NewConfig creates a Config for the given database path and environment.
func NewConfig(dbPath string, env appconf.Environment, verbose bool) Config {
	return Config{
		DBPath:  dbPath,
		Env:     env,
		verbose: verbose,
	}
}

// GetBulkInsertBatchSize returns the configured batch size or the default.
func (c Config) GetBulkInsertBatchSize() int {
	if c.BulkInsertBatchSize > 0 {
		return c.BulkInsertBatchSize
	}
	return defaultBulkInsertBatchSize
}
