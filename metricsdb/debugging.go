package metricsdb

import (
	"fmt"
	"log/slog"

	"transitperf.dev/internal/logging"
)

// TableCounts returns the row count for every known table, used by the CLI's
// dump output and by import sanity checks.
func (c *Client) TableCounts() (map[string]int, error) {
	rows, err := c.DB.Query("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		return nil, fmt.Errorf("failed to query table names: %w", err)
	}
	defer logging.SafeCloseWithLogging(rows,
		slog.Default().With(slog.String("component", "debugging")),
		"database_rows")

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, tableName)
	}

	counts := make(map[string]int)

	tableCountQueries := map[string]string{
		"agencies":              "SELECT COUNT(*) FROM agencies",
		"routes":                "SELECT COUNT(*) FROM routes",
		"stops":                 "SELECT COUNT(*) FROM stops",
		"trips":                 "SELECT COUNT(*) FROM trips",
		"stop_times":            "SELECT COUNT(*) FROM stop_times",
		"calendar":              "SELECT COUNT(*) FROM calendar",
		"calendar_dates":        "SELECT COUNT(*) FROM calendar_dates",
		"vehicle_positions":     "SELECT COUNT(*) FROM vehicle_positions",
		"route_metrics_daily":   "SELECT COUNT(*) FROM route_metrics_daily",
		"route_metrics_summary": "SELECT COUNT(*) FROM route_metrics_summary",
		"import_metadata":       "SELECT COUNT(*) FROM import_metadata",
	}

	for _, table := range tables {
		query, ok := tableCountQueries[table]
		if !ok {
			continue
		}

		var count int
		err := c.DB.QueryRow(query).Scan(&count)
		if err != nil {
			return nil, err
		}
		counts[table] = count
	}

	return counts, nil
}
