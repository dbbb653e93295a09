package model

import "time"

// Showtime is a scheduled screening of a movie in a theater.  The
// interval [StartsAt, EndsAt) must not intersect any other showtime of
// the same theater.
//
// Fields:
//  ID        – primary key identifier.
//  MovieID   – movie being screened.
//  TheaterID – theater where the screening happens.
//  StartsAt  – inclusive start (UTC).
//  EndsAt    – exclusive end (UTC), strictly after StartsAt.
type Showtime struct {
	ID        uint64    `json:"id"`         // showtimes.id
	MovieID   uint64    `json:"movie_id"`   // showtimes.movie_id
	TheaterID uint64    `json:"theater_id"` // showtimes.theater_id
	StartsAt  time.Time `json:"starts_at"`  // showtimes.starts_at
	EndsAt    time.Time `json:"ends_at"`    // showtimes.ends_at
	CreatedAt time.Time `json:"created_at"` // showtimes.created_at
	UpdatedAt time.Time `json:"updated_at"` // showtimes.updated_at
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect.  Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// ShowtimeSummary is the showtime view embedded in reservation details.
type ShowtimeSummary struct {
	ID          uint64    `json:"id"`
	MovieID     uint64    `json:"movie_id"`
	MovieTitle  string    `json:"movie_title"`
	TheaterID   uint64    `json:"theater_id"`
	TheaterName string    `json:"theater_name"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
}
