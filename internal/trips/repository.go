// Package trips is the read-only query layer over the trips and vendors tables.
package trips

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taxi-insights/backend/internal/database"
	"github.com/taxi-insights/backend/internal/models"
)

const tripColumns = `id, vendor_id, pickup_datetime, dropoff_datetime, passenger_count,
	pickup_longitude, pickup_latitude, dropoff_longitude, dropoff_latitude,
	store_and_fwd_flag, trip_duration, trip_distance`

// TripFilter narrows ListTrips. Zero values mean "no filter".
type TripFilter struct {
	// Start and End bound pickup_datetime inclusively and only apply together.
	Start *time.Time
	End   *time.Time
	// Coordinates are compared with exact float equality.
	PickupLongitude *float64
	PickupLatitude  *float64
	VendorID        *int64
	Limit           int
	Offset          int
}

// Repository builds dialect-specific SQL. It holds no connection: every
// call takes the Querier checked out for the current request.
type Repository struct {
	dialect database.Dialect
}

// NewRepository creates a repository for the given dialect.
func NewRepository(dialect database.Dialect) *Repository {
	return &Repository{dialect: dialect}
}

// ListTrips returns every trip matching f, ordered by id.
func (r *Repository) ListTrips(ctx context.Context, q Querier, f TripFilter) ([]models.Trip, error) {
	where, args := r.buildWhereClause(f)

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(tripColumns)
	sb.WriteString(" FROM trips")
	sb.WriteString(where)
	sb.WriteString(" ORDER BY id")
	r.writePage(&sb, f.Limit, f.Offset)

	rows, err := q.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying trips: %w", err)
	}
	defer rows.Close()

	trips := make([]models.Trip, 0)
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading trips: %w", err)
	}
	return trips, nil
}

// writePage appends LIMIT/OFFSET as literals. Zero values are omitted.
func (r *Repository) writePage(sb *strings.Builder, limit, offset int) {
	switch {
	case limit > 0:
		fmt.Fprintf(sb, " LIMIT %d", limit)
	case offset > 0 && r.dialect.Name == database.DialectSQLite:
		// sqlite has no OFFSET without LIMIT
		sb.WriteString(" LIMIT -1")
	}
	if offset > 0 {
		fmt.Fprintf(sb, " OFFSET %d", offset)
	}
}

// TripByID returns the trip with the given id, or nil if there is none.
func (r *Repository) TripByID(ctx context.Context, q Querier, id string) (*models.Trip, error) {
	query := "SELECT " + tripColumns + " FROM trips WHERE id = " + r.dialect.Placeholder(1)
	trip, err := scanTrip(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

// ListVendors returns vendors ordered by id. A zero limit means no limit.
func (r *Repository) ListVendors(ctx context.Context, q Querier, limit, offset int) ([]models.Vendor, error) {
	var sb strings.Builder
	sb.WriteString("SELECT id, vendor_id FROM vendors ORDER BY id")
	r.writePage(&sb, limit, offset)

	rows, err := q.QueryContext(ctx, sb.String())
	if err != nil {
		return nil, fmt.Errorf("querying vendors: %w", err)
	}
	defer rows.Close()

	vendors := make([]models.Vendor, 0)
	for rows.Next() {
		var v models.Vendor
		if err := rows.Scan(&v.ID, &v.VendorID); err != nil {
			return nil, fmt.Errorf("scanning vendor: %w", err)
		}
		vendors = append(vendors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading vendors: %w", err)
	}
	return vendors, nil
}

// VendorByID returns the vendor with the given primary key, or nil.
func (r *Repository) VendorByID(ctx context.Context, q Querier, id int64) (*models.Vendor, error) {
	var v models.Vendor
	err := q.QueryRowContext(ctx, "SELECT id, vendor_id FROM vendors WHERE id = "+r.dialect.Placeholder(1), id).
		Scan(&v.ID, &v.VendorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying vendor %d: %w", id, err)
	}
	return &v, nil
}

// Stats computes the average duration, the number of distinct pickup days
// and the per-day counts. Each figure is its own query.
func (r *Repository) Stats(ctx context.Context, q Querier) (*models.TripStats, error) {
	stats := &models.TripStats{TripsPerDay: make([]models.DayCount, 0)}

	var avg sql.NullFloat64
	if err := q.QueryRowContext(ctx, "SELECT AVG(trip_duration) FROM trips").Scan(&avg); err != nil {
		return nil, fmt.Errorf("averaging trip duration: %w", err)
	}
	if avg.Valid {
		stats.AverageTripDuration = &avg.Float64
	}

	day := r.dialect.Day("pickup_datetime")

	perDay := "SELECT " + day + " AS pickup_day, COUNT(id) AS total_trips FROM trips" +
		" WHERE pickup_datetime IS NOT NULL GROUP BY pickup_day ORDER BY pickup_day"
	rows, err := q.QueryContext(ctx, perDay)
	if err != nil {
		return nil, fmt.Errorf("counting trips per day: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var dc models.DayCount
		if err := rows.Scan(&dc.Date, &dc.TotalTrips); err != nil {
			return nil, fmt.Errorf("scanning day count: %w", err)
		}
		stats.TripsPerDay = append(stats.TripsPerDay, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading day counts: %w", err)
	}

	if err := q.QueryRowContext(ctx, "SELECT COUNT(DISTINCT "+day+") FROM trips").Scan(&stats.TotalDays); err != nil {
		return nil, fmt.Errorf("counting distinct days: %w", err)
	}

	return stats, nil
}

func (r *Repository) buildWhereClause(f TripFilter) (string, []any) {
	var conditions []string
	var args []any

	if f.Start != nil && f.End != nil {
		args = append(args, *f.Start, *f.End)
		conditions = append(conditions, fmt.Sprintf("pickup_datetime BETWEEN %s AND %s",
			r.dialect.Placeholder(len(args)-1), r.dialect.Placeholder(len(args))))
	}
	if f.PickupLongitude != nil {
		args = append(args, *f.PickupLongitude)
		conditions = append(conditions, "pickup_longitude = "+r.dialect.Placeholder(len(args)))
	}
	if f.PickupLatitude != nil {
		args = append(args, *f.PickupLatitude)
		conditions = append(conditions, "pickup_latitude = "+r.dialect.Placeholder(len(args)))
	}
	if f.VendorID != nil {
		args = append(args, *f.VendorID)
		conditions = append(conditions, "vendor_id = "+r.dialect.Placeholder(len(args)))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row rowScanner) (models.Trip, error) {
	var (
		t                                 models.Trip
		vendorID, passengers, duration    sql.NullInt64
		pickupAt, dropoffAt               sql.NullTime
		pickupLong, pickupLat             sql.NullFloat64
		dropoffLong, dropoffLat, distance sql.NullFloat64
		flag                              sql.NullString
	)
	err := row.Scan(&t.ID, &vendorID, &pickupAt, &dropoffAt, &passengers,
		&pickupLong, &pickupLat, &dropoffLong, &dropoffLat,
		&flag, &duration, &distance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, err
		}
		return t, fmt.Errorf("scanning trip: %w", err)
	}

	t.VendorID = nullInt(vendorID)
	t.PickupDatetime = nullTime(pickupAt)
	t.DropoffDatetime = nullTime(dropoffAt)
	t.PassengerCount = nullInt(passengers)
	t.PickupLongitude = nullFloat(pickupLong)
	t.PickupLatitude = nullFloat(pickupLat)
	t.DropoffLongitude = nullFloat(dropoffLong)
	t.DropoffLatitude = nullFloat(dropoffLat)
	if flag.Valid {
		t.StoreAndFwdFlag = &flag.String
	}
	t.TripDuration = nullInt(duration)
	t.TripDistance = nullFloat(distance)
	return t, nil
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}
