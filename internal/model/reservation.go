package model

import "time"

// ReservationStatus is the lifecycle state of a reservation.  The only
// permitted transition is from pending or confirmed to cancelled.
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
)

// Active reports whether seat claims under this status still hold seats.
func (s ReservationStatus) Active() bool { return s != StatusCancelled }

// Reservation records a user's booking for a specific showtime.
// It aggregates one or more seat claims created in a single
// transaction and tracks the overall status and total price.
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – user who made the reservation.
//  ShowtimeID      – showtime being reserved.
//  Status          – pending, confirmed or cancelled.
//  TotalPriceCents – total price in cents for all seats.
//  ReservedAt      – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Reservation struct {
	ID              uint64            `json:"id"`                // reservations.id
	UserID          uint64            `json:"user_id"`           // reservations.user_id
	ShowtimeID      uint64            `json:"showtime_id"`       // reservations.showtime_id
	Status          ReservationStatus `json:"status"`            // reservations.status
	TotalPriceCents uint32            `json:"total_price_cents"` // reservations.total_price_cents
	ReservedAt      time.Time         `json:"reserved_at"`       // reservations.reserved_at
	UpdatedAt       time.Time         `json:"updated_at"`        // reservations.updated_at
}

// SeatClaim links a reservation to a single seat.  Claims are removed
// together with their reservation.
type SeatClaim struct {
	ID            uint64 // reservation_seats.id
	ReservationID uint64 // reservation_seats.reservation_id
	SeatID        uint64 // reservation_seats.seat_id
}

// ReservationDetail is a reservation loaded together with its seats,
// owner and showtime.
type ReservationDetail struct {
	Reservation
	User     UserSummary     `json:"user"`
	Showtime ShowtimeSummary `json:"showtime"`
	Seats    []Seat          `json:"seats"`
}

// SeatLabels returns the row/number labels of the reserved seats in order.
func (d ReservationDetail) SeatLabels() []string {
	out := make([]string, 0, len(d.Seats))
	for _, s := range d.Seats {
		out = append(out, s.Label())
	}
	return out
}
