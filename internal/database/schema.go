package database

import (
	"context"
	"fmt"
)

// Rows are loaded by the external ETL job; the service only reads them.
// Referential integrity from trips.vendor_id is advisory, so the column
// carries no FOREIGN KEY clause.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS vendors (
		id        INTEGER PRIMARY KEY,
		vendor_id INTEGER NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS trips (
		id                 VARCHAR PRIMARY KEY,
		vendor_id          INTEGER,
		pickup_datetime    TIMESTAMP,
		dropoff_datetime   TIMESTAMP,
		passenger_count    INTEGER,
		pickup_longitude   DOUBLE PRECISION,
		pickup_latitude    DOUBLE PRECISION,
		dropoff_longitude  DOUBLE PRECISION,
		dropoff_latitude   DOUBLE PRECISION,
		store_and_fwd_flag CHAR(1),
		trip_duration      INTEGER,
		trip_distance      DOUBLE PRECISION
	)`,
}

// Index is a secondary index on the trips table.
type Index struct {
	Name    string
	Columns string
}

// TripIndexes speed up the filters and groupings the API issues.
var TripIndexes = []Index{
	{Name: "idx_pickup_datetime", Columns: "pickup_datetime"},
	{Name: "idx_trip_distance", Columns: "trip_distance"},
	{Name: "idx_pickup_location", Columns: "pickup_latitude, pickup_longitude"},
	{Name: "idx_dropoff_location", Columns: "dropoff_latitude, dropoff_longitude"},
	{Name: "idx_vendor_id", Columns: "vendor_id"},
}

// Migrate creates the vendors and trips tables if they are missing.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

// CreateIndexes builds TripIndexes. Safe to run repeatedly.
func (db *DB) CreateIndexes(ctx context.Context) error {
	for _, idx := range TripIndexes {
		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON trips (%s)", idx.Name, idx.Columns)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating index %s: %w", idx.Name, err)
		}
	}
	return nil
}
