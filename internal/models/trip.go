package models

import "time"

// Trip is one row of the trips table.
// Every column except ID may be NULL and is emitted as JSON null.
type Trip struct {
	ID               string     `json:"id" msgpack:"id"`
	VendorID         *int64     `json:"vendor_id" msgpack:"vendor_id"`
	PickupDatetime   *time.Time `json:"pickup_datetime" msgpack:"pickup_datetime"`
	DropoffDatetime  *time.Time `json:"dropoff_datetime" msgpack:"dropoff_datetime"`
	PassengerCount   *int64     `json:"passenger_count" msgpack:"passenger_count"`
	PickupLongitude  *float64   `json:"pickup_longitude" msgpack:"pickup_longitude"`
	PickupLatitude   *float64   `json:"pickup_latitude" msgpack:"pickup_latitude"`
	DropoffLongitude *float64   `json:"dropoff_longitude" msgpack:"dropoff_longitude"`
	DropoffLatitude  *float64   `json:"dropoff_latitude" msgpack:"dropoff_latitude"`
	StoreAndFwdFlag  *string    `json:"store_and_fwd_flag" msgpack:"store_and_fwd_flag"`
	TripDuration     *int64     `json:"trip_duration" msgpack:"trip_duration"`
	TripDistance     *float64   `json:"trip_distance" msgpack:"trip_distance"`
}

// Vendor is one row of the vendors table.
type Vendor struct {
	ID       int64 `json:"id"`
	VendorID int64 `json:"vendor_id"`
}
