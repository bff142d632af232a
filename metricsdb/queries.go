package metricsdb

// Hand-written query implementations over database/sql.
//
// IMPORTANT: If a table schema in schema.sql changes, the SQL and Go types in
// this file and models.go must be updated manually to match.

import (
	"context"
	"database/sql"
	"errors"
)

// ErrRouteNotFound is returned when a route id does not exist in the
// schedule snapshot.
var ErrRouteNotFound = errors.New("route not found")

// ErrStopNotFound is returned when a stop id does not exist in the schedule
// snapshot.
var ErrStopNotFound = errors.New("stop not found")

// DBTX is the subset of *sql.DB / *sql.Tx the queries need.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const createAgency = `
INSERT INTO agencies (id, name, url, timezone, lang, phone)
VALUES (?, ?, ?, ?, ?, ?)
`

type CreateAgencyParams struct {
	ID       string
	Name     string
	Url      string
	Timezone string
	Lang     sql.NullString
	Phone    sql.NullString
}

func (q *Queries) CreateAgency(ctx context.Context, arg CreateAgencyParams) error {
	_, err := q.db.ExecContext(ctx, createAgency,
		arg.ID, arg.Name, arg.Url, arg.Timezone, arg.Lang, arg.Phone)
	return err
}

const createRoute = `
INSERT INTO routes (id, agency_id, short_name, long_name, type, color)
VALUES (?, ?, ?, ?, ?, ?)
`

type CreateRouteParams struct {
	ID        string
	AgencyID  string
	ShortName sql.NullString
	LongName  sql.NullString
	Type      int64
	Color     sql.NullString
}

func (q *Queries) CreateRoute(ctx context.Context, arg CreateRouteParams) error {
	_, err := q.db.ExecContext(ctx, createRoute,
		arg.ID, arg.AgencyID, arg.ShortName, arg.LongName, arg.Type, arg.Color)
	return err
}

const createStop = `
INSERT INTO stops (id, code, name, lat, lon, location_type, parent_station)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

type CreateStopParams struct {
	ID            string
	Code          sql.NullString
	Name          sql.NullString
	Lat           float64
	Lon           float64
	LocationType  sql.NullInt64
	ParentStation sql.NullString
}

func (q *Queries) CreateStop(ctx context.Context, arg CreateStopParams) error {
	_, err := q.db.ExecContext(ctx, createStop,
		arg.ID, arg.Code, arg.Name, arg.Lat, arg.Lon, arg.LocationType, arg.ParentStation)
	return err
}

const createTrip = `
INSERT INTO trips (id, route_id, service_id, headsign, direction_id, block_id, shape_id)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

type CreateTripParams struct {
	ID          string
	RouteID     string
	ServiceID   string
	Headsign    sql.NullString
	DirectionID sql.NullInt64
	BlockID     sql.NullString
	ShapeID     sql.NullString
}

func (q *Queries) CreateTrip(ctx context.Context, arg CreateTripParams) error {
	_, err := q.db.ExecContext(ctx, createTrip,
		arg.ID, arg.RouteID, arg.ServiceID, arg.Headsign, arg.DirectionID,
		arg.BlockID, arg.ShapeID)
	return err
}

const createStopTime = `
INSERT INTO stop_times (trip_id, arrival_time, departure_time, stop_id, stop_sequence)
VALUES (?, ?, ?, ?, ?)
`

type CreateStopTimeParams struct {
	TripID        string
	ArrivalTime   string
	DepartureTime string
	StopID        string
	StopSequence  int64
}

func (q *Queries) CreateStopTime(ctx context.Context, arg CreateStopTimeParams) error {
	_, err := q.db.ExecContext(ctx, createStopTime,
		arg.TripID, arg.ArrivalTime, arg.DepartureTime, arg.StopID, arg.StopSequence)
	return err
}

const createCalendar = `
INSERT INTO calendar (id, monday, tuesday, wednesday, thursday, friday, saturday, sunday, start_date, end_date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateCalendarParams struct {
	ID        string
	Monday    int64
	Tuesday   int64
	Wednesday int64
	Thursday  int64
	Friday    int64
	Saturday  int64
	Sunday    int64
	StartDate string
	EndDate   string
}

func (q *Queries) CreateCalendar(ctx context.Context, arg CreateCalendarParams) error {
	_, err := q.db.ExecContext(ctx, createCalendar,
		arg.ID, arg.Monday, arg.Tuesday, arg.Wednesday, arg.Thursday,
		arg.Friday, arg.Saturday, arg.Sunday, arg.StartDate, arg.EndDate)
	return err
}

const createCalendarDate = `
INSERT INTO calendar_dates (service_id, date, exception_type)
VALUES (?, ?, ?)
`

type CreateCalendarDateParams struct {
	ServiceID     string
	Date          string
	ExceptionType int64
}

func (q *Queries) CreateCalendarDate(ctx context.Context, arg CreateCalendarDateParams) error {
	_, err := q.db.ExecContext(ctx, createCalendarDate,
		arg.ServiceID, arg.Date, arg.ExceptionType)
	return err
}

const getRoute = `
SELECT id, agency_id, short_name, long_name, type, color
FROM routes
WHERE id = ?
`

func (q *Queries) GetRoute(ctx context.Context, id string) (Route, error) {
	var i Route
	err := q.db.QueryRowContext(ctx, getRoute, id).Scan(
		&i.ID, &i.AgencyID, &i.ShortName, &i.LongName, &i.Type, &i.Color)
	if err == sql.ErrNoRows {
		return Route{}, ErrRouteNotFound
	}
	return i, err
}

const listRoutes = `
SELECT id, agency_id, short_name, long_name, type, color
FROM routes
ORDER BY id
`

func (q *Queries) ListRoutes(ctx context.Context) ([]Route, error) {
	rows, err := q.db.QueryContext(ctx, listRoutes)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // closing is also checked explicitly below
	var items []Route
	for rows.Next() {
		var i Route
		if err := rows.Scan(&i.ID, &i.AgencyID, &i.ShortName, &i.LongName, &i.Type, &i.Color); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getStop = `
SELECT id, code, name, lat, lon, location_type, parent_station
FROM stops
WHERE id = ?
`

func (q *Queries) GetStop(ctx context.Context, id string) (Stop, error) {
	var i Stop
	err := q.db.QueryRowContext(ctx, getStop, id).Scan(
		&i.ID, &i.Code, &i.Name, &i.Lat, &i.Lon, &i.LocationType, &i.ParentStation)
	if err == sql.ErrNoRows {
		return Stop{}, ErrStopNotFound
	}
	return i, err
}

const listTripsForRoute = `
SELECT id, route_id, service_id, headsign, direction_id, block_id, shape_id
FROM trips
WHERE route_id = ?
ORDER BY id
`

func (q *Queries) ListTripsForRoute(ctx context.Context, routeID string) ([]Trip, error) {
	rows, err := q.db.QueryContext(ctx, listTripsForRoute, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // closing is also checked explicitly below
	var items []Trip
	for rows.Next() {
		var i Trip
		if err := rows.Scan(&i.ID, &i.RouteID, &i.ServiceID, &i.Headsign,
			&i.DirectionID, &i.BlockID, &i.ShapeID); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listStopTimesForRoute = `
SELECT st.trip_id, st.arrival_time, st.departure_time, st.stop_id, st.stop_sequence
FROM stop_times st
JOIN trips t ON t.id = st.trip_id
WHERE t.route_id = ?
ORDER BY st.trip_id, st.stop_sequence
`

func (q *Queries) ListStopTimesForRoute(ctx context.Context, routeID string) ([]StopTime, error) {
	rows, err := q.db.QueryContext(ctx, listStopTimesForRoute, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // closing is also checked explicitly below
	var items []StopTime
	for rows.Next() {
		var i StopTime
		if err := rows.Scan(&i.TripID, &i.ArrivalTime, &i.DepartureTime,
			&i.StopID, &i.StopSequence); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listStopsForRoute = `
SELECT DISTINCT s.id, s.code, s.name, s.lat, s.lon, s.location_type, s.parent_station
FROM stops s
JOIN stop_times st ON st.stop_id = s.id
JOIN trips t ON t.id = st.trip_id
WHERE t.route_id = ?
ORDER BY s.id
`

func (q *Queries) ListStopsForRoute(ctx context.Context, routeID string) ([]Stop, error) {
	rows, err := q.db.QueryContext(ctx, listStopsForRoute, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // closing is also checked explicitly below
	var items []Stop
	for rows.Next() {
		var i Stop
		if err := rows.Scan(&i.ID, &i.Code, &i.Name, &i.Lat, &i.Lon,
			&i.LocationType, &i.ParentStation); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listRemovedServiceExceptions = `
SELECT service_id, date, exception_type
FROM calendar_dates
WHERE exception_type = 2
ORDER BY date, service_id
`

// ListRemovedServiceExceptions returns only "service removed" exceptions
// (exception_type = 2). Added-service dates (type 1) stay in scope for
// analysis and are deliberately not returned here.
func (q *Queries) ListRemovedServiceExceptions(ctx context.Context) ([]CalendarDate, error) {
	rows, err := q.db.QueryContext(ctx, listRemovedServiceExceptions)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // closing is also checked explicitly below
	var items []CalendarDate
	for rows.Next() {
		var i CalendarDate
		if err := rows.Scan(&i.ServiceID, &i.Date, &i.ExceptionType); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createVehiclePosition = `
INSERT INTO vehicle_positions (vehicle_id, route_id, trip_id, lat, lon, bearing, speed_mph, deviation_minutes, timestamp)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateVehiclePositionParams struct {
	VehicleID        string
	RouteID          string
	TripID           sql.NullString
	Lat              float64
	Lon              float64
	Bearing          sql.NullFloat64
	SpeedMph         sql.NullFloat64
	DeviationMinutes sql.NullFloat64
	Timestamp        int64
}

func (q *Queries) CreateVehiclePosition(ctx context.Context, arg CreateVehiclePositionParams) error {
	_, err := q.db.ExecContext(ctx, createVehiclePosition,
		arg.VehicleID, arg.RouteID, arg.TripID, arg.Lat, arg.Lon,
		arg.Bearing, arg.SpeedMph, arg.DeviationMinutes, arg.Timestamp)
	return err
}

const listVehiclePositions = `
SELECT id, vehicle_id, route_id, trip_id, lat, lon, bearing, speed_mph, deviation_minutes, timestamp
FROM vehicle_positions
WHERE route_id = ? AND timestamp >= ? AND timestamp < ?
ORDER BY timestamp
`

type ListVehiclePositionsParams struct {
	RouteID   string
	StartUnix int64
	EndUnix   int64
}

func (q *Queries) ListVehiclePositions(ctx context.Context, arg ListVehiclePositionsParams) ([]VehiclePosition, error) {
	rows, err := q.db.QueryContext(ctx, listVehiclePositions,
		arg.RouteID, arg.StartUnix, arg.EndUnix)
	if err != nil {
		return nil, err
	}
	return scanVehiclePositions(rows)
}

const listVehiclePositionsAllRoutes = `
SELECT id, vehicle_id, route_id, trip_id, lat, lon, bearing, speed_mph, deviation_minutes, timestamp
FROM vehicle_positions
WHERE timestamp >= ? AND timestamp < ?
ORDER BY route_id, timestamp
`

type ListVehiclePositionsAllRoutesParams struct {
	StartUnix int64
	EndUnix   int64
}

// ListVehiclePositionsAllRoutes fetches every route's positions in one query
// for the batch pipeline's single-load path.
func (q *Queries) ListVehiclePositionsAllRoutes(ctx context.Context, arg ListVehiclePositionsAllRoutesParams) ([]VehiclePosition, error) {
	rows, err := q.db.QueryContext(ctx, listVehiclePositionsAllRoutes,
		arg.StartUnix, arg.EndUnix)
	if err != nil {
		return nil, err
	}
	return scanVehiclePositions(rows)
}

func scanVehiclePositions(rows *sql.Rows) ([]VehiclePosition, error) {
	defer rows.Close() //nolint:errcheck // closing is also checked explicitly below
	var items []VehiclePosition
	for rows.Next() {
		var i VehiclePosition
		if err := rows.Scan(&i.ID, &i.VehicleID, &i.RouteID, &i.TripID,
			&i.Lat, &i.Lon, &i.Bearing, &i.SpeedMph, &i.DeviationMinutes,
			&i.Timestamp); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listRouteIDsWithPositions = `
SELECT DISTINCT route_id
FROM vehicle_positions
WHERE timestamp >= ? AND timestamp < ?
ORDER BY route_id
`

type ListRouteIDsWithPositionsParams struct {
	StartUnix int64
	EndUnix   int64
}

func (q *Queries) ListRouteIDsWithPositions(ctx context.Context, arg ListRouteIDsWithPositionsParams) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listRouteIDsWithPositions,
		arg.StartUnix, arg.EndUnix)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // closing is also checked explicitly below
	var items []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getRouteDataSummary = `
SELECT COUNT(*), COUNT(DISTINCT vehicle_id),
       COALESCE(MIN(timestamp), 0), COALESCE(MAX(timestamp), 0)
FROM vehicle_positions
WHERE route_id = ?
`

// RouteDataSummary describes how much raw observation data a route has,
// before any reconciliation.
type RouteDataSummary struct {
	RouteID          string
	PositionCount    int64
	DistinctVehicles int64
	FirstUnix        int64
	LastUnix         int64
}

func (q *Queries) GetRouteDataSummary(ctx context.Context, routeID string) (RouteDataSummary, error) {
	row := q.db.QueryRowContext(ctx, getRouteDataSummary, routeID)
	summary := RouteDataSummary{RouteID: routeID}
	err := row.Scan(&summary.PositionCount, &summary.DistinctVehicles,
		&summary.FirstUnix, &summary.LastUnix)
	return summary, err
}

const upsertRouteMetricsDaily = `
INSERT INTO route_metrics_daily (
    route_id, date, otp_pct, early_pct, late_pct, otp_sample_size,
    avg_headway_min, headway_cv, headway_sample_size,
    avg_speed_mph, speed_sample_size, position_count, computed_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (route_id, date) DO UPDATE SET
    otp_pct = excluded.otp_pct,
    early_pct = excluded.early_pct,
    late_pct = excluded.late_pct,
    otp_sample_size = excluded.otp_sample_size,
    avg_headway_min = excluded.avg_headway_min,
    headway_cv = excluded.headway_cv,
    headway_sample_size = excluded.headway_sample_size,
    avg_speed_mph = excluded.avg_speed_mph,
    speed_sample_size = excluded.speed_sample_size,
    position_count = excluded.position_count,
    computed_at = excluded.computed_at
`

type UpsertRouteMetricsDailyParams struct {
	RouteID           string
	Date              string
	OtpPct            sql.NullFloat64
	EarlyPct          sql.NullFloat64
	LatePct           sql.NullFloat64
	OtpSampleSize     int64
	AvgHeadwayMin     sql.NullFloat64
	HeadwayCv         sql.NullFloat64
	HeadwaySampleSize int64
	AvgSpeedMph       sql.NullFloat64
	SpeedSampleSize   int64
	PositionCount     int64
	ComputedAt        int64
}

// UpsertRouteMetricsDaily makes route-day computation idempotent: re-running
// a day replaces that day's row instead of duplicating it.
func (q *Queries) UpsertRouteMetricsDaily(ctx context.Context, arg UpsertRouteMetricsDailyParams) error {
	_, err := q.db.ExecContext(ctx, upsertRouteMetricsDaily,
		arg.RouteID, arg.Date, arg.OtpPct, arg.EarlyPct, arg.LatePct,
		arg.OtpSampleSize, arg.AvgHeadwayMin, arg.HeadwayCv,
		arg.HeadwaySampleSize, arg.AvgSpeedMph, arg.SpeedSampleSize,
		arg.PositionCount, arg.ComputedAt)
	return err
}

const listRouteMetricsDaily = `
SELECT id, route_id, date, otp_pct, early_pct, late_pct, otp_sample_size,
       avg_headway_min, headway_cv, headway_sample_size,
       avg_speed_mph, speed_sample_size, position_count, computed_at
FROM route_metrics_daily
WHERE route_id = ? AND date >= ?
ORDER BY date
`

type ListRouteMetricsDailyParams struct {
	RouteID   string
	SinceDate string
}

func (q *Queries) ListRouteMetricsDaily(ctx context.Context, arg ListRouteMetricsDailyParams) ([]RouteMetricsDaily, error) {
	rows, err := q.db.QueryContext(ctx, listRouteMetricsDaily, arg.RouteID, arg.SinceDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // closing is also checked explicitly below
	var items []RouteMetricsDaily
	for rows.Next() {
		var i RouteMetricsDaily
		if err := rows.Scan(&i.ID, &i.RouteID, &i.Date, &i.OtpPct, &i.EarlyPct,
			&i.LatePct, &i.OtpSampleSize, &i.AvgHeadwayMin, &i.HeadwayCv,
			&i.HeadwaySampleSize, &i.AvgSpeedMph, &i.SpeedSampleSize,
			&i.PositionCount, &i.ComputedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertRouteMetricsSummary = `
INSERT INTO route_metrics_summary (
    route_id, window_days, avg_otp_pct, avg_headway_min, avg_headway_cv,
    avg_speed_mph, days_with_data, computed_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (route_id) DO UPDATE SET
    window_days = excluded.window_days,
    avg_otp_pct = excluded.avg_otp_pct,
    avg_headway_min = excluded.avg_headway_min,
    avg_headway_cv = excluded.avg_headway_cv,
    avg_speed_mph = excluded.avg_speed_mph,
    days_with_data = excluded.days_with_data,
    computed_at = excluded.computed_at
`

type UpsertRouteMetricsSummaryParams struct {
	RouteID       string
	WindowDays    int64
	AvgOtpPct     sql.NullFloat64
	AvgHeadwayMin sql.NullFloat64
	AvgHeadwayCv  sql.NullFloat64
	AvgSpeedMph   sql.NullFloat64
	DaysWithData  int64
	ComputedAt    int64
}

func (q *Queries) UpsertRouteMetricsSummary(ctx context.Context, arg UpsertRouteMetricsSummaryParams) error {
	_, err := q.db.ExecContext(ctx, upsertRouteMetricsSummary,
		arg.RouteID, arg.WindowDays, arg.AvgOtpPct, arg.AvgHeadwayMin,
		arg.AvgHeadwayCv, arg.AvgSpeedMph, arg.DaysWithData, arg.ComputedAt)
	return err
}

const getRouteMetricsSummary = `
SELECT route_id, window_days, avg_otp_pct, avg_headway_min, avg_headway_cv,
       avg_speed_mph, days_with_data, computed_at
FROM route_metrics_summary
WHERE route_id = ?
`

func (q *Queries) GetRouteMetricsSummary(ctx context.Context, routeID string) (RouteMetricsSummary, error) {
	var i RouteMetricsSummary
	err := q.db.QueryRowContext(ctx, getRouteMetricsSummary, routeID).Scan(
		&i.RouteID, &i.WindowDays, &i.AvgOtpPct, &i.AvgHeadwayMin,
		&i.AvgHeadwayCv, &i.AvgSpeedMph, &i.DaysWithData, &i.ComputedAt)
	if err == sql.ErrNoRows {
		return RouteMetricsSummary{}, ErrRouteNotFound
	}
	return i, err
}

const getImportMetadata = `
SELECT id, file_hash, import_time, file_source
FROM import_metadata
WHERE id = 1
`

func (q *Queries) GetImportMetadata(ctx context.Context) (ImportMetadata, error) {
	var i ImportMetadata
	err := q.db.QueryRowContext(ctx, getImportMetadata).Scan(
		&i.ID, &i.FileHash, &i.ImportTime, &i.FileSource)
	return i, err
}

const upsertImportMetadata = `
INSERT INTO import_metadata (id, file_hash, import_time, file_source)
VALUES (1, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    file_hash = excluded.file_hash,
    import_time = excluded.import_time,
    file_source = excluded.file_source
`

type UpsertImportMetadataParams struct {
	FileHash   string
	ImportTime int64
	FileSource string
}

func (q *Queries) UpsertImportMetadata(ctx context.Context, arg UpsertImportMetadataParams) error {
	_, err := q.db.ExecContext(ctx, upsertImportMetadata,
		arg.FileHash, arg.ImportTime, arg.FileSource)
	return err
}

func (q *Queries) ClearAgencies(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM agencies`)
	return err
}

func (q *Queries) ClearRoutes(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM routes`)
	return err
}

func (q *Queries) ClearStops(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM stops`)
	return err
}

func (q *Queries) ClearTrips(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM trips`)
	return err
}

func (q *Queries) ClearStopTimes(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM stop_times`)
	return err
}

func (q *Queries) ClearCalendar(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM calendar`)
	return err
}

func (q *Queries) ClearCalendarDates(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM calendar_dates`)
	return err
}

func (q *Queries) ClearVehiclePositions(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM vehicle_positions`)
	return err
}
