package metricsdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/OneBusAway/go-gtfs"

	"transitperf.dev/internal/gtfstime"
	"transitperf.dev/internal/logging"
)

// processAndStoreStaticWithSource imports a parsed static GTFS feed into the
// schedule tables. The import is hash-gated: re-importing an unchanged feed
// is a no-op, a changed feed clears and replaces the schedule snapshot.
// Vehicle positions and computed metrics are never touched by a reimport.
func (c *Client) processAndStoreStaticWithSource(ctx context.Context, b []byte, source string) error {
	logger := slog.Default().With(slog.String("component", "static_importer"))

	startTime := time.Now()
	defer func() {
		c.importRuntime = time.Since(startTime)
		logging.LogOperation(logger, "static_import_completed",
			slog.Duration("duration", c.importRuntime),
			slog.String("source", source))
	}()

	hash := sha256.Sum256(b)
	hashStr := hex.EncodeToString(hash[:])

	existingMetadata, err := c.Queries.GetImportMetadata(ctx)
	if err == nil {
		if existingMetadata.FileHash == hashStr && existingMetadata.FileSource == source {
			logging.LogOperation(logger, "static_data_unchanged_skipping_import",
				slog.String("hash", hashStr[:8]))
			return nil
		}
		logging.LogOperation(logger, "static_data_changed_reimporting",
			slog.String("old_hash", existingMetadata.FileHash[:8]),
			slog.String("new_hash", hashStr[:8]))
		if err := c.clearScheduleData(ctx); err != nil {
			return fmt.Errorf("error clearing existing schedule data: %w", err)
		}
	} else if err != sql.ErrNoRows {
		return fmt.Errorf("error checking import metadata: %w", err)
	}
	// err == sql.ErrNoRows means first import, continue normally

	staticData, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return err
	}

	logging.LogOperation(logger, "starting_static_import",
		slog.Int("agencies", len(staticData.Agencies)),
		slog.Int("routes", len(staticData.Routes)),
		slog.Int("stops", len(staticData.Stops)),
		slog.Int("trips", len(staticData.Trips)),
		slog.Int("warnings", len(staticData.Warnings)))

	for _, a := range staticData.Agencies {
		err := c.Queries.CreateAgency(ctx, CreateAgencyParams{
			ID:       a.Id,
			Name:     a.Name,
			Url:      a.Url,
			Timezone: a.Timezone,
			Lang:     toNullString(a.Language),
			Phone:    toNullString(a.Phone),
		})
		if err != nil {
			return fmt.Errorf("unable to create agency: %w", err)
		}
	}

	singleAgencyID := ""
	if len(staticData.Agencies) == 1 {
		singleAgencyID = staticData.Agencies[0].Id
	}

	for _, r := range staticData.Routes {
		err := c.Queries.CreateRoute(ctx, CreateRouteParams{
			ID:        r.Id,
			AgencyID:  pickFirstAvailable(r.Agency.Id, singleAgencyID),
			ShortName: toNullString(r.ShortName),
			LongName:  toNullString(r.LongName),
			Type:      int64(r.Type),
			Color:     toNullString(r.Color),
		})
		if err != nil {
			return fmt.Errorf("unable to create route: %w", err)
		}
	}

	var allStopParams []CreateStopParams
	for _, s := range staticData.Stops {
		// Stops without coordinates (generic nodes, boarding areas) are
		// useless for proximity analysis. Skip them rather than storing
		// (0,0) placeholders that would contaminate nearest-stop searches.
		if s.Latitude == nil || s.Longitude == nil {
			continue
		}
		allStopParams = append(allStopParams, CreateStopParams{
			ID:            s.Id,
			Code:          toNullString(s.Code),
			Name:          toNullString(s.Name),
			Lat:           *s.Latitude,
			Lon:           *s.Longitude,
			LocationType:  toNullInt64(int64(s.Type)),
			ParentStation: sql.NullString{},
		})
	}
	if err := c.bulkInsertStops(ctx, allStopParams); err != nil {
		return fmt.Errorf("unable to create stops: %w", err)
	}

	for _, s := range staticData.Services {
		err := c.Queries.CreateCalendar(ctx, CreateCalendarParams{
			ID:        s.Id,
			Monday:    boolToInt(s.Monday),
			Tuesday:   boolToInt(s.Tuesday),
			Wednesday: boolToInt(s.Wednesday),
			Thursday:  boolToInt(s.Thursday),
			Friday:    boolToInt(s.Friday),
			Saturday:  boolToInt(s.Saturday),
			Sunday:    boolToInt(s.Sunday),
			StartDate: s.StartDate.Format("20060102"),
			EndDate:   s.EndDate.Format("20060102"),
		})
		if err != nil {
			return fmt.Errorf("unable to create calendar: %w", err)
		}
	}

	var allTripParams []CreateTripParams
	for _, t := range staticData.Trips {
		var shapeID string
		if t.Shape != nil {
			shapeID = t.Shape.ID
		}
		allTripParams = append(allTripParams, CreateTripParams{
			ID:        t.ID,
			RouteID:   t.Route.Id,
			ServiceID: t.Service.Id,
			Headsign:  toNullString(t.Headsign),
			// Direction 0 is a real value, so it cannot go through the
			// zero-is-NULL helper.
			DirectionID: sql.NullInt64{Int64: int64(t.DirectionId), Valid: true},
			BlockID:     toNullString(t.BlockID),
			ShapeID:     toNullString(shapeID),
		})
	}
	if err := c.bulkInsertTrips(ctx, allTripParams); err != nil {
		return fmt.Errorf("unable to create trips: %w", err)
	}

	var allStopTimeParams []CreateStopTimeParams
	for _, t := range staticData.Trips {
		for _, st := range t.StopTimes {
			// go-gtfs pre-parses clock strings into seconds; re-render them
			// into "H:MM:SS" so hours past midnight survive round trips.
			allStopTimeParams = append(allStopTimeParams, CreateStopTimeParams{
				TripID:        t.ID,
				ArrivalTime:   gtfstime.FromSeconds(int64(st.ArrivalTime)).String(),
				DepartureTime: gtfstime.FromSeconds(int64(st.DepartureTime)).String(),
				StopID:        st.Stop.Id,
				StopSequence:  int64(st.StopSequence),
			})
		}
	}
	if err := c.bulkInsertStopTimes(ctx, allStopTimeParams); err != nil {
		return fmt.Errorf("unable to create stop times: %w", err)
	}

	var allCalendarDateParams []CreateCalendarDateParams
	for _, service := range staticData.Services {
		// Exception type 1: service added on this date
		for _, date := range service.AddedDates {
			allCalendarDateParams = append(allCalendarDateParams, CreateCalendarDateParams{
				ServiceID:     service.Id,
				Date:          date.Format("20060102"),
				ExceptionType: 1,
			})
		}
		// Exception type 2: service removed on this date
		for _, date := range service.RemovedDates {
			allCalendarDateParams = append(allCalendarDateParams, CreateCalendarDateParams{
				ServiceID:     service.Id,
				Date:          date.Format("20060102"),
				ExceptionType: 2,
			})
		}
	}
	if len(allCalendarDateParams) > 0 {
		if err := c.bulkInsertCalendarDates(ctx, allCalendarDateParams); err != nil {
			return fmt.Errorf("unable to create calendar dates: %w", err)
		}
	}

	err = c.Queries.UpsertImportMetadata(ctx, UpsertImportMetadataParams{
		FileHash:   hashStr,
		ImportTime: time.Now().Unix(),
		FileSource: source,
	})
	if err != nil {
		logging.LogError(logger, "Error updating import metadata", err)
		return fmt.Errorf("error updating import metadata: %w", err)
	}

	return nil
}

// clearScheduleData clears the schedule snapshot in reverse dependency order.
func (c *Client) clearScheduleData(ctx context.Context) error {
	if err := c.Queries.ClearStopTimes(ctx); err != nil {
		return fmt.Errorf("error clearing stop_times: %w", err)
	}
	if err := c.Queries.ClearTrips(ctx); err != nil {
		return fmt.Errorf("error clearing trips: %w", err)
	}
	if err := c.Queries.ClearCalendarDates(ctx); err != nil {
		return fmt.Errorf("error clearing calendar_dates: %w", err)
	}
	if err := c.Queries.ClearCalendar(ctx); err != nil {
		return fmt.Errorf("error clearing calendar: %w", err)
	}
	if err := c.Queries.ClearStops(ctx); err != nil {
		return fmt.Errorf("error clearing stops: %w", err)
	}
	if err := c.Queries.ClearRoutes(ctx); err != nil {
		return fmt.Errorf("error clearing routes: %w", err)
	}
	if err := c.Queries.ClearAgencies(ctx); err != nil {
		return fmt.Errorf("error clearing agencies: %w", err)
	}
	return nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func toNullInt64(i int64) sql.NullInt64 {
	if i != 0 {
		return sql.NullInt64{Int64: i, Valid: true}
	}
	return sql.NullInt64{}
}

func toNullString(s string) sql.NullString {
	return sql.NullString{
		String: s,
		Valid:  s != "",
	}
}

func pickFirstAvailable(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func (c *Client) bulkInsertStops(ctx context.Context, stops []CreateStopParams) error {
	logger := slog.Default().With(slog.String("component", "bulk_insert"))

	tx, err := c.DB.Begin()
	if err != nil {
		return err
	}
	defer logging.SafeRollbackWithLogging(tx, logger, "bulk_insert_stops")

	qtx := c.Queries.WithTx(tx)
	for _, params := range stops {
		if err := qtx.CreateStop(ctx, params); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	logging.LogOperation(logger, "stops_inserted",
		slog.Int("count", len(stops)))

	return nil
}

func (c *Client) bulkInsertTrips(ctx context.Context, trips []CreateTripParams) error {
	logger := slog.Default().With(slog.String("component", "bulk_insert"))

	tx, err := c.DB.Begin()
	if err != nil {
		return err
	}
	defer logging.SafeRollbackWithLogging(tx, logger, "bulk_insert_trips")

	qtx := c.Queries.WithTx(tx)
	for _, params := range trips {
		if err := qtx.CreateTrip(ctx, params); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	logging.LogOperation(logger, "trips_inserted",
		slog.Int("count", len(trips)))

	return nil
}

func (c *Client) bulkInsertCalendarDates(ctx context.Context, calendarDates []CreateCalendarDateParams) error {
	logger := slog.Default().With(slog.String("component", "bulk_insert"))

	tx, err := c.DB.Begin()
	if err != nil {
		return err
	}
	defer logging.SafeRollbackWithLogging(tx, logger, "bulk_insert_calendar_dates")

	qtx := c.Queries.WithTx(tx)
	for _, params := range calendarDates {
		if err := qtx.CreateCalendarDate(ctx, params); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// preparedStopTimeBatch holds a built multi-row INSERT with its arguments.
type preparedStopTimeBatch struct {
	query string
	args  []interface{}
	index int // Original index for ordering
	end   int // End position for progress logging
}

// bulkInsertStopTimes is the hot path of a static import: stop_times is by
// far the largest table. Batches are built in parallel by a worker pool and
// executed sequentially in one transaction.
func (c *Client) bulkInsertStopTimes(ctx context.Context, stopTimes []CreateStopTimeParams) error {
	logger := slog.Default().With(slog.String("component", "bulk_insert"))

	logging.LogOperation(logger, "inserting_stop_times",
		slog.Int("count", len(stopTimes)))

	batchSize := c.config.GetBulkInsertBatchSize()
	const baseQuery = `INSERT INTO stop_times (
		trip_id, arrival_time, departure_time, stop_id, stop_sequence
	) VALUES `

	numBatches := (len(stopTimes) + batchSize - 1) / batchSize

	tx, err := c.DB.Begin()
	if err != nil {
		return err
	}
	defer logging.SafeRollbackWithLogging(tx, logger, "bulk_insert_stop_times")

	numWorkers := runtime.NumCPU()
	batchChan := make(chan int, numWorkers)
	resultsChan := make(chan preparedStopTimeBatch, numWorkers*4)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batchIndex := range batchChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				start := batchIndex * batchSize
				end := start + batchSize
				if end > len(stopTimes) {
					end = len(stopTimes)
				}
				batch := stopTimes[start:end]

				// Only placeholders (?) for values, never concatenated input.
				var query strings.Builder
				query.WriteString(baseQuery)
				args := make([]interface{}, 0, len(batch)*5)

				for j, params := range batch {
					if j > 0 {
						query.WriteString(", ")
					}
					query.WriteString("(?, ?, ?, ?, ?)")

					args = append(args,
						params.TripID,
						params.ArrivalTime,
						params.DepartureTime,
						params.StopID,
						params.StopSequence,
					)
				}

				resultsChan <- preparedStopTimeBatch{
					query: query.String(),
					args:  args,
					index: batchIndex,
					end:   end,
				}
			}
		}()
	}

	go func() {
		defer close(batchChan)
		for i := 0; i < numBatches; i++ {
			select {
			case <-ctx.Done():
				return
			case batchChan <- i:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	preparedBatches := make([]preparedStopTimeBatch, 0, numBatches)
	for batch := range resultsChan {
		preparedBatches = append(preparedBatches, batch)
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	// Sort batches by index to maintain insertion order
	sort.Slice(preparedBatches, func(i, j int) bool {
		return preparedBatches[i].index < preparedBatches[j].index
	})

	for _, batch := range preparedBatches {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		_, err := tx.ExecContext(ctx, batch.query, batch.args...)
		if err != nil {
			return fmt.Errorf("failed to insert stop_times batch: %w", err)
		}

		if (batch.end)%100000 == 0 || batch.end == len(stopTimes) {
			logging.LogOperation(logger, "stop_times_progress",
				slog.Int("inserted", batch.end),
				slog.Int("total", len(stopTimes)))
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	logging.LogOperation(logger, "stop_times_inserted",
		slog.Int("count", len(stopTimes)))

	return nil
}
