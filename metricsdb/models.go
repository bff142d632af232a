package metricsdb

import "database/sql"

type Agency struct {
	ID       string
	Name     string
	Url      string
	Timezone string
	Lang     sql.NullString
	Phone    sql.NullString
}

type Route struct {
	ID        string
	AgencyID  string
	ShortName sql.NullString
	LongName  sql.NullString
	Type      int64
	Color     sql.NullString
}

type Stop struct {
	ID            string
	Code          sql.NullString
	Name          sql.NullString
	Lat           float64
	Lon           float64
	LocationType  sql.NullInt64
	ParentStation sql.NullString
}

type Trip struct {
	ID          string
	RouteID     string
	ServiceID   string
	Headsign    sql.NullString
	DirectionID sql.NullInt64
	BlockID     sql.NullString
	ShapeID     sql.NullString
}

/// StopTime keeps arrival/departure in GTFS "H:MM:SS" form; hours may exceed
// 23 for trips running past midnight.
type StopTime struct {
	TripID        string
	ArrivalTime   string
	DepartureTime string
	StopID        string
	StopSequence  int64
}

type Calendar struct {
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

type CalendarDate struct {
	ServiceID     string
	Date          string
	ExceptionType int64
}

// VehiclePosition is one observed vehicle report. TripID is untrusted
// upstream input and may be empty or reference a trip that does not exist in
// the schedule.
type VehiclePosition struct {
	ID               int64
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

// RouteMetricsDaily is one computed route-day. Nullable columns stay NULL
// when the day had insufficient data for that metric.
type RouteMetricsDaily struct {
	ID                int64
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

type RouteMetricsSummary struct {
	RouteID       string
	WindowDays    int64
	AvgOtpPct     sql.NullFloat64
	AvgHeadwayMin sql.NullFloat64
	AvgHeadwayCv  sql.NullFloat64
	AvgSpeedMph   sql.NullFloat64
	DaysWithData  int64
	ComputedAt    int64
}

type ImportMetadata struct {
	ID         int64
	FileHash   string
	ImportTime int64
	FileSource string
}
