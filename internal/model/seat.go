package model

import (
	"strconv"
	"time"
)

// SeatType classifies a seat.  It is informational only; the flat rate
// pricer charges every type the same.
type SeatType string

const (
	SeatStandard SeatType = "standard"
	SeatPremium  SeatType = "premium"
	SeatRecliner SeatType = "recliner"
)

// Valid reports whether t is one of the known seat types.
func (t SeatType) Valid() bool {
	switch t {
	case SeatStandard, SeatPremium, SeatRecliner:
		return true
	}
	return false
}

// Seat describes a physical seat in a theater.  Seats are uniquely
// identified by their theater, row label and seat number.
//
// Fields:
//  ID         – primary key identifier.
//  TheaterID  – theater to which this seat belongs.
//  RowLabel   – letter or string designating the row.
//  SeatNumber – number of the seat within the row.
//  SeatType   – standard, premium or recliner.
type Seat struct {
	ID         uint64    `json:"id"`          // seats.id
	TheaterID  uint64    `json:"theater_id"`  // seats.theater_id
	RowLabel   string    `json:"row"`         // seats.row_label
	SeatNumber uint32    `json:"number"`      // seats.seat_number
	SeatType   SeatType  `json:"type"`        // seats.seat_type
	CreatedAt  time.Time `json:"created_at"`  // seats.created_at
}

// Label returns the human readable seat position, e.g. "B7".
func (s Seat) Label() string {
	return s.RowLabel + strconv.FormatUint(uint64(s.SeatNumber), 10)
}

// SeatAvailability pairs a seat with whether it is held by an active
// reservation for a particular showtime.
type SeatAvailability struct {
	Seat
	Reserved bool `json:"reserved"`
}

// RowLabel converts a zero-based index to an alphabetical row label like
// A, B, ..., Z, AA, AB.
func RowLabel(i int) string {
	if i < 0 {
		return ""
	}
	res := []rune{}
	for {
		rem := i % 26
		res = append(res, rune('A'+rem))
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
		res[j], res[k] = res[k], res[j]
	}
	return string(res)
}
