package schedule

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transitperf.dev/internal/appconf"
	"transitperf.dev/metricsdb"
)

func newTestStore(t *testing.T) *metricsdb.Client {
	t.Helper()
	client, err := metricsdb.NewClient(metricsdb.NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func seedRoute(t *testing.T, client *metricsdb.Client) {
	t.Helper()
	ctx := context.Background()
	q := client.Queries

	require.NoError(t, q.CreateRoute(ctx, metricsdb.CreateRouteParams{
		ID: "C4", AgencyID: "1", Type: 3,
	}))

	stops := []struct {
		id       string
		lat, lon float64
	}{
		{"S1", 38.9000, -77.0300},
		{"S2", 38.9050, -77.0350},
		{"S3", 38.9100, -77.0400},
	}
	for _, s := range stops {
		require.NoError(t, q.CreateStop(ctx, metricsdb.CreateStopParams{
			ID: s.id, Lat: s.lat, Lon: s.lon,
		}))
	}

	trips := []struct {
		id        string
		direction int64
	}{
		{"T1", 0},
		{"T2", 0},
		{"T3", 1},
	}
	for _, tr := range trips {
		require.NoError(t, q.CreateTrip(ctx, metricsdb.CreateTripParams{
			ID: tr.id, RouteID: "C4", ServiceID: "WKDY",
			DirectionID: sql.NullInt64{Int64: tr.direction, Valid: true},
		}))
	}

	// T1 and T2 run the full pattern; T3 is the reverse direction.
	stopTimes := []metricsdb.CreateStopTimeParams{
		{TripID: "T1", ArrivalTime: "8:00:00", DepartureTime: "8:00:00", StopID: "S1", StopSequence: 1},
		{TripID: "T1", ArrivalTime: "8:10:00", DepartureTime: "8:10:00", StopID: "S2", StopSequence: 2},
		{TripID: "T1", ArrivalTime: "8:20:00", DepartureTime: "8:20:00", StopID: "S3", StopSequence: 3},
		{TripID: "T2", ArrivalTime: "8:30:00", DepartureTime: "8:30:00", StopID: "S1", StopSequence: 1},
		{TripID: "T2", ArrivalTime: "8:40:00", DepartureTime: "8:40:00", StopID: "S2", StopSequence: 2},
		{TripID: "T2", ArrivalTime: "8:50:00", DepartureTime: "8:50:00", StopID: "S3", StopSequence: 3},
		{TripID: "T3", ArrivalTime: "9:00:00", DepartureTime: "9:00:00", StopID: "S3", StopSequence: 1},
		{TripID: "T3", ArrivalTime: "9:10:00", DepartureTime: "9:10:00", StopID: "S2", StopSequence: 2},
		{TripID: "T3", ArrivalTime: "9:20:00", DepartureTime: "9:20:00", StopID: "S1", StopSequence: 3},
	}
	for _, st := range stopTimes {
		require.NoError(t, q.CreateStopTime(ctx, st))
	}
}

func TestLoadRoute(t *testing.T) {
	client := newTestStore(t)
	seedRoute(t, client)

	rs, err := LoadRoute(context.Background(), client.Queries, "C4")
	require.NoError(t, err)

	assert.Len(t, rs.Trips, 3)
	assert.Len(t, rs.Stops, 3)
	assert.Equal(t, 0, rs.SkippedStopTimes)

	arrival, ok := rs.ScheduledArrival("T1", "S2")
	require.True(t, ok)
	assert.Equal(t, "8:10:00", arrival.String())

	assert.Equal(t, int64(0), rs.TripDirection("T1"))
	assert.Equal(t, int64(1), rs.TripDirection("T3"))
	assert.Equal(t, DirectionAny, rs.TripDirection("missing"))
}

func TestLoadRoute_NotFound(t *testing.T) {
	client := newTestStore(t)

	_, err := LoadRoute(context.Background(), client.Queries, "nope")
	assert.ErrorIs(t, err, metricsdb.ErrRouteNotFound)
}

func TestLoadRoute_SkipsMalformedStopTimes(t *testing.T) {
	client := newTestStore(t)
	seedRoute(t, client)
	ctx := context.Background()

	require.NoError(t, client.Queries.CreateStopTime(ctx, metricsdb.CreateStopTimeParams{
		TripID: "T1", ArrivalTime: "garbage", DepartureTime: "8:25:00",
		StopID: "S3", StopSequence: 4,
	}))

	rs, err := LoadRoute(ctx, client.Queries, "C4")
	require.NoError(t, err)
	assert.Equal(t, 1, rs.SkippedStopTimes)
	assert.Len(t, rs.Trips["T1"].StopTimes, 3)
}

func TestServiceHours_CrossingMidnight(t *testing.T) {
	client := newTestStore(t)
	ctx := context.Background()
	q := client.Queries

	require.NoError(t, q.CreateRoute(ctx, metricsdb.CreateRouteParams{
		ID: "OWL", AgencyID: "1", Type: 3,
	}))
	require.NoError(t, q.CreateStop(ctx, metricsdb.CreateStopParams{
		ID: "S1", Lat: 38.9, Lon: -77.0,
	}))
	require.NoError(t, q.CreateTrip(ctx, metricsdb.CreateTripParams{
		ID: "T1", RouteID: "OWL", ServiceID: "WKDY",
	}))
	for i, at := range []string{"4:30:00", "12:00:00", "26:30:00"} {
		require.NoError(t, q.CreateStopTime(ctx, metricsdb.CreateStopTimeParams{
			TripID: "T1", ArrivalTime: at, DepartureTime: at,
			StopID: "S1", StopSequence: int64(i + 1),
		}))
	}

	rs, err := LoadRoute(ctx, q, "OWL")
	require.NoError(t, err)

	start, end := rs.ServiceHours()
	assert.Equal(t, 4, start)
	assert.Equal(t, 26, end)

	assert.True(t, rs.InServiceHours(4))
	assert.True(t, rs.InServiceHours(23))
	// Hours 0-2 are the tail end of the previous service day (26 - 24 = 2).
	assert.True(t, rs.InServiceHours(1))
	assert.True(t, rs.InServiceHours(2))
	assert.False(t, rs.InServiceHours(3))
}

func TestServiceHours_DefaultWhenEmpty(t *testing.T) {
	client := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, client.Queries.CreateRoute(ctx, metricsdb.CreateRouteParams{
		ID: "EMPTY", AgencyID: "1", Type: 3,
	}))

	rs, err := LoadRoute(ctx, client.Queries, "EMPTY")
	require.NoError(t, err)

	start, end := rs.ServiceHours()
	assert.Equal(t, 5, start)
	assert.Equal(t, 23, end)
	assert.True(t, rs.InServiceHours(12))
	assert.False(t, rs.InServiceHours(2))
}

func TestReferenceStop_PrefersInteriorStop(t *testing.T) {
	client := newTestStore(t)
	seedRoute(t, client)

	rs, err := LoadRoute(context.Background(), client.Queries, "C4")
	require.NoError(t, err)

	// All three stops see every trip; the middle of the route wins.
	stopID, err := rs.ReferenceStop(int64(0))
	require.NoError(t, err)
	assert.Equal(t, "S2", stopID)

	// Unfiltered: S2 still sits in the middle by mean sequence.
	stopID, err = rs.ReferenceStop(DirectionAny)
	require.NoError(t, err)
	assert.Equal(t, "S2", stopID)
}

func TestReferenceStop_NoTrips(t *testing.T) {
	client := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, client.Queries.CreateRoute(ctx, metricsdb.CreateRouteParams{
		ID: "EMPTY", AgencyID: "1", Type: 3,
	}))

	rs, err := LoadRoute(ctx, client.Queries, "EMPTY")
	require.NoError(t, err)

	_, err = rs.ReferenceStop(DirectionAny)
	assert.ErrorIs(t, err, ErrNoReferenceStop)
}

func TestExceptionIndex(t *testing.T) {
	client := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, client.Queries.CreateCalendarDate(ctx, metricsdb.CreateCalendarDateParams{
		ServiceID: "WKDY", Date: "20251225", ExceptionType: 2,
	}))
	require.NoError(t, client.Queries.CreateCalendarDate(ctx, metricsdb.CreateCalendarDateParams{
		ServiceID: "HOLIDAY", Date: "20251225", ExceptionType: 1,
	}))

	idx, err := LoadExceptionIndex(ctx, client.Queries)
	require.NoError(t, err)

	assert.Equal(t, 1, idx.Len())
	assert.True(t, idx.Excluded("20251225", "WKDY"))
	// Added service stays in scope.
	assert.False(t, idx.Excluded("20251225", "HOLIDAY"))
	assert.False(t, idx.Excluded("20251226", "WKDY"))
}

func TestSession_CachesRouteLoads(t *testing.T) {
	client := newTestStore(t)
	seedRoute(t, client)
	ctx := context.Background()

	session, err := NewSession(ctx, client.Queries)
	require.NoError(t, err)

	first, err := session.Route(ctx, "C4")
	require.NoError(t, err)
	second, err := session.Route(ctx, "C4")
	require.NoError(t, err)

	assert.Same(t, first, second)
}
