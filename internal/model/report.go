package model

import "time"

// CapacityRow is one line of the daily capacity report.
type CapacityRow struct {
	ShowtimeID       uint64    `json:"showtime_id"`
	MovieTitle       string    `json:"movie_title"`
	TheaterName      string    `json:"theater_name"`
	StartsAt         time.Time `json:"starts_at"`
	EndsAt           time.Time `json:"ends_at"`
	TotalSeats       uint32    `json:"total_seats"`
	ReservedSeats    uint32    `json:"reserved_seats"`
	OccupancyPercent float64   `json:"occupancy_percent"`
}
