package models

// TripStats is the aggregate view served by /trips/stats.
type TripStats struct {
	AverageTripDuration *float64   `json:"average_trip_duration"`
	TotalDays           int64      `json:"total_days"`
	TripsPerDay         []DayCount `json:"trips_per_day"`
}

// DayCount is the number of trips picked up on one calendar day (YYYY-MM-DD).
type DayCount struct {
	Date       string `json:"date"`
	TotalTrips int64  `json:"total_trips"`
}
