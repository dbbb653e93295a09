package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/movie-reservation/internal/model"
	"github.com/iliyamo/movie-reservation/internal/queue"
)

// EventPublisher delivers reservation events.  *queue.Publisher
// implements it; a nil EventPublisher disables events.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}

const publishTimeout = 3 * time.Second

// publish sends a best-effort event for a committed change.  Failures are
// logged and never undo the change.
func publish(events EventPublisher, typ string, d *model.ReservationDetail) {
	if events == nil || d == nil {
		return
	}
	ev := queue.ReservationEvent{
		EventID:         uuid.NewString(),
		Type:            typ,
		ReservationID:   d.ID,
		UserID:          d.UserID,
		ShowtimeID:      d.ShowtimeID,
		MovieTitle:      d.Showtime.MovieTitle,
		TheaterName:     d.Showtime.TheaterName,
		StartsAt:        d.Showtime.StartsAt.UTC().Format(time.RFC3339),
		Seats:           d.SeatLabels(),
		TotalPriceCents: d.TotalPriceCents,
		OccurredAt:      time.Now().UTC().Format(time.RFC3339),
	}
	// detached from the request context so a client disconnect does not drop the event
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := events.Publish(ctx, ev); err != nil {
		log.Printf("events: %s for reservation %d not published: %v", typ, d.ID, err)
	}
}
