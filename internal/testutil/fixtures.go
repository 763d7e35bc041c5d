// fixtures.go - In-memory database and trip fixtures for testing
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/taxi-insights/backend/internal/database"
	"github.com/taxi-insights/backend/internal/models"
)

// NewTestDB opens an in-memory DuckDB database with the schema applied.
// It is closed when the test finishes.
func NewTestDB(t *testing.T) *database.DB {
	t.Helper()
	return OpenTestDB(t, "duckdb://")
}

// OpenTestDB opens the database at url with the schema applied and closes
// it when the test finishes.
func OpenTestDB(t *testing.T, url string) *database.DB {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, url, database.Options{})
	if err != nil {
		t.Fatalf("opening test database %s: %v", url, err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

// EmbeddedDialects lists the engines that run without external services.
var EmbeddedDialects = []string{database.DialectDuckDB, database.DialectSQLite}

// DialectURL returns a URL for a fresh, empty database of the given embedded
// dialect. SQLite databases are files under the test's temp dir.
func DialectURL(t *testing.T, dialect string) string {
	t.Helper()
	switch dialect {
	case database.DialectDuckDB:
		return "duckdb://"
	case database.DialectSQLite:
		return "sqlite://" + filepath.Join(t.TempDir(), "trips.db")
	}
	t.Fatalf("no embedded engine for dialect %q", dialect)
	return ""
}

// InsertVendors adds vendor rows.
func InsertVendors(t *testing.T, db *database.DB, vendors ...models.Vendor) {
	t.Helper()

	p := db.Dialect.Placeholder
	query := fmt.Sprintf("INSERT INTO vendors (id, vendor_id) VALUES (%s, %s)", p(1), p(2))
	for _, v := range vendors {
		if _, err := db.Exec(query, v.ID, v.VendorID); err != nil {
			t.Fatalf("inserting vendor %d: %v", v.ID, err)
		}
	}
}

// InsertTrips adds trip rows. Nil fields are stored as NULL.
func InsertTrips(t *testing.T, db *database.DB, trips ...models.Trip) {
	t.Helper()

	p := db.Dialect.Placeholder
	query := fmt.Sprintf(`INSERT INTO trips (id, vendor_id, pickup_datetime, dropoff_datetime,
		passenger_count, pickup_longitude, pickup_latitude, dropoff_longitude, dropoff_latitude,
		store_and_fwd_flag, trip_duration, trip_distance)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		p(1), p(2), p(3), p(4), p(5), p(6), p(7), p(8), p(9), p(10), p(11), p(12))

	for _, tr := range trips {
		_, err := db.Exec(query, tr.ID, value(tr.VendorID), value(tr.PickupDatetime),
			value(tr.DropoffDatetime), value(tr.PassengerCount), value(tr.PickupLongitude),
			value(tr.PickupLatitude), value(tr.DropoffLongitude), value(tr.DropoffLatitude),
			value(tr.StoreAndFwdFlag), value(tr.TripDuration), value(tr.TripDistance))
		if err != nil {
			t.Fatalf("inserting trip %s: %v", tr.ID, err)
		}
	}
}

// NewTrip builds a fully populated trip.
func NewTrip(id string, vendorID int64, pickup time.Time, duration int64, long, lat float64) models.Trip {
	dropoff := pickup.Add(time.Duration(duration) * time.Second)
	return models.Trip{
		ID:               id,
		VendorID:         Ptr(vendorID),
		PickupDatetime:   Ptr(pickup),
		DropoffDatetime:  Ptr(dropoff),
		PassengerCount:   Ptr(int64(1)),
		PickupLongitude:  Ptr(long),
		PickupLatitude:   Ptr(lat),
		DropoffLongitude: Ptr(long + 0.01),
		DropoffLatitude:  Ptr(lat + 0.01),
		StoreAndFwdFlag:  Ptr("N"),
		TripDuration:     Ptr(duration),
		TripDistance:     Ptr(1.5),
	}
}

func value[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// SampleTrips returns four trips across three pickup days from two vendors.
func SampleTrips() ([]models.Vendor, []models.Trip) {
	vendors := []models.Vendor{{ID: 1, VendorID: 101}, {ID: 2, VendorID: 102}}
	day := func(d, h int) time.Time { return time.Date(2016, 3, d, h, 15, 0, 0, time.UTC) }
	trips := []models.Trip{
		NewTrip("id0001", 1, day(14, 17), 455, -73.98215484619139, 40.76793670654297),
		NewTrip("id0002", 2, day(14, 20), 663, -73.93981170654298, 40.81560134887695),
		NewTrip("id0003", 1, day(15, 9), 2124, -73.97902679443358, 40.76393890380859),
		NewTrip("id0004", 2, day(17, 23), 429, -73.93981170654298, 40.73801040649414),
	}
	return vendors, trips
}
