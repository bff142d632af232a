package metricsdb

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"transitperf.dev/internal/logging"
)

// Archived position dumps carry the header:
// timestamp,vehicle_id,route_id,trip_id,lat,lon,bearing,speed_mph,deviation_minutes
// with only timestamp, vehicle_id, route_id, lat, and lon required.

// PositionImportResult reports what an archive import did. Rows with
// malformed required fields are skipped and counted, never fatal.
type PositionImportResult struct {
	Inserted int
	Skipped  int
}

// ImportPositionsCSV loads an archived vehicle-position dump into
// vehicle_positions. Files ending in .gz are transparently decompressed.
func (c *Client) ImportPositionsCSV(ctx context.Context, path string) (PositionImportResult, error) {
	logger := slog.Default().With(slog.String("component", "position_importer"))

	f, err := os.Open(path)
	if err != nil {
		return PositionImportResult{}, err
	}
	defer logging.SafeCloseWithLogging(f, logger, path)

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return PositionImportResult{}, fmt.Errorf("opening gzip archive %s: %w", path, err)
		}
		defer logging.SafeCloseWithLogging(gz, logger, path+" (gzip)")
		r = gz
	}

	result, err := c.importPositions(ctx, csv.NewReader(r))
	if err != nil {
		return result, fmt.Errorf("importing positions from %s: %w", path, err)
	}

	logging.LogOperation(logger, "positions_imported",
		slog.String("source", path),
		slog.Int("inserted", result.Inserted),
		slog.Int("skipped", result.Skipped))

	return result, nil
}

func (c *Client) importPositions(ctx context.Context, reader *csv.Reader) (PositionImportResult, error) {
	logger := slog.Default().With(slog.String("component", "position_importer"))

	header, err := reader.Read()
	if err != nil {
		return PositionImportResult{}, fmt.Errorf("reading header: %w", err)
	}
	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"timestamp", "vehicle_id", "route_id", "lat", "lon"} {
		if _, ok := colIndex[required]; !ok {
			return PositionImportResult{}, fmt.Errorf("missing required column %q", required)
		}
	}

	tx, err := c.DB.Begin()
	if err != nil {
		return PositionImportResult{}, err
	}
	defer logging.SafeRollbackWithLogging(tx, logger, "import_positions")

	qtx := c.Queries.WithTx(tx)

	var result PositionImportResult
	for {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return result, fmt.Errorf("reading record: %w", err)
		}

		field := func(name string) string {
			idx, ok := colIndex[name]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		ts, err := parseTimestamp(field("timestamp"))
		if err != nil {
			result.Skipped++
			continue
		}
		lat, latErr := strconv.ParseFloat(field("lat"), 64)
		lon, lonErr := strconv.ParseFloat(field("lon"), 64)
		vehicleID := field("vehicle_id")
		routeID := field("route_id")
		if latErr != nil || lonErr != nil || vehicleID == "" || routeID == "" {
			result.Skipped++
			continue
		}

		err = qtx.CreateVehiclePosition(ctx, CreateVehiclePositionParams{
			VehicleID:        vehicleID,
			RouteID:          routeID,
			TripID:           toNullString(field("trip_id")),
			Lat:              lat,
			Lon:              lon,
			Bearing:          parseNullFloat(field("bearing")),
			SpeedMph:         parseNullFloat(field("speed_mph")),
			DeviationMinutes: parseNullFloat(field("deviation_minutes")),
			Timestamp:        ts,
		})
		if err != nil {
			return result, err
		}
		result.Inserted++
	}

	if err := tx.Commit(); err != nil {
		return result, err
	}
	return result, nil
}

// parseTimestamp accepts either a unix-seconds integer or an RFC 3339 string.
func parseTimestamp(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return unix, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("unparseable timestamp %q", s)
	}
	return t.Unix(), nil
}

// parseNullFloat parses an optional float column, with empty or invalid
// values becoming NULL.
func parseNullFloat(s string) sql.NullFloat64 {
	if s == "" {
		return sql.NullFloat64{Valid: false}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.NullFloat64{Valid: false}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}
