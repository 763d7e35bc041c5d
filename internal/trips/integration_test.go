//go:build integration

package trips

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taxi-insights/backend/internal/database"
	"github.com/taxi-insights/backend/internal/models"
	"github.com/taxi-insights/backend/internal/testutil"
)

func TestIntegration_PostgresRepository(t *testing.T) {
	ctx := context.Background()
	url := testutil.StartPostgres(t)

	db, err := database.Open(ctx, url, database.Options{MaxOpenConns: 4})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.CreateIndexes(ctx))
	// both are idempotent
	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.CreateIndexes(ctx))

	vendors, sample := testutil.SampleTrips()
	testutil.InsertVendors(t, db, vendors...)
	testutil.InsertTrips(t, db, sample...)

	repo := NewRepository(db.Dialect)
	conn, err := db.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	t.Run("list with filters", func(t *testing.T) {
		start := time.Date(2016, 3, 14, 0, 0, 0, 0, time.UTC)
		end := time.Date(2016, 3, 14, 23, 59, 59, 0, time.UTC)
		list, err := repo.ListTrips(ctx, conn, TripFilter{Start: &start, End: &end})
		require.NoError(t, err)
		assert.Equal(t, []string{"id0001", "id0002"}, tripIDs(list))

		long := -73.93981170654298
		list, err = repo.ListTrips(ctx, conn, TripFilter{PickupLongitude: &long, Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"id0004"}, tripIDs(list))
	})

	t.Run("trip by id", func(t *testing.T) {
		trip, err := repo.TripByID(ctx, conn, "id0003")
		require.NoError(t, err)
		require.NotNil(t, trip)
		require.NotNil(t, trip.PickupDatetime)
		assert.True(t, trip.PickupDatetime.Equal(time.Date(2016, 3, 15, 9, 15, 0, 0, time.UTC)))

		missing, err := repo.TripByID(ctx, conn, "nope")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("stats", func(t *testing.T) {
		stats, err := repo.Stats(ctx, conn)
		require.NoError(t, err)
		require.NotNil(t, stats.AverageTripDuration)
		assert.InDelta(t, 917.75, *stats.AverageTripDuration, 1e-9)
		assert.Equal(t, int64(3), stats.TotalDays)
		assert.Equal(t, []models.DayCount{
			{Date: "2016-03-14", TotalTrips: 2},
			{Date: "2016-03-15", TotalTrips: 1},
			{Date: "2016-03-17", TotalTrips: 1},
		}, stats.TripsPerDay)
	})
}
