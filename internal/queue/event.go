// Package queue defines the reservation events exchanged over RabbitMQ and
// the publisher and consumer that move them.
package queue

// Event types carried in ReservationEvent.Type and the AMQP Type header.
const (
	EventReservationConfirmed = "reservation.confirmed"
	EventReservationCancelled = "reservation.cancelled"
)

// ReservationEvent is published after a reservation is committed or
// cancelled.  It carries enough information for downstream consumers to
// log, notify or trigger analytics without querying the primary database.
type ReservationEvent struct {
	EventID         string   `json:"event_id"`
	Type            string   `json:"type"`
	ReservationID   uint64   `json:"reservation_id"`
	UserID          uint64   `json:"user_id"`
	ShowtimeID      uint64   `json:"showtime_id"`
	MovieTitle      string   `json:"movie_title"`
	TheaterName     string   `json:"theater_name"`
	StartsAt        string   `json:"starts_at"`
	Seats           []string `json:"seats"`
	TotalPriceCents uint32   `json:"total_price_cents"`
	OccurredAt      string   `json:"occurred_at"`
}
