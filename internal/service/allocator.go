package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/iliyamo/movie-reservation/internal/model"
	"github.com/iliyamo/movie-reservation/internal/queue"
	"github.com/iliyamo/movie-reservation/internal/repository"
)

// ReservationService allocates seats and manages the reservation lifecycle.
// Availability is never cached in process: every decision is taken inside
// a MySQL transaction holding row locks on the seats involved.
type ReservationService struct {
	db           *sql.DB
	showtimes    *repository.ShowtimeRepo
	seats        *repository.SeatRepo
	reservations *repository.ReservationRepo
	pricer       Pricer
	events       EventPublisher
}

// NewReservationService wires the allocator.  events may be nil.
func NewReservationService(db *sql.DB, showtimes *repository.ShowtimeRepo, seats *repository.SeatRepo,
	reservations *repository.ReservationRepo, pricer Pricer, events EventPublisher) *ReservationService {
	if pricer == nil {
		pricer = FlatRate{CentsPerSeat: 1000}
	}
	return &ReservationService{
		db:           db,
		showtimes:    showtimes,
		seats:        seats,
		reservations: reservations,
		pricer:       pricer,
		events:       events,
	}
}

// Allocate reserves seatIDs for userID at showtimeID, all or nothing.
//
// The seat rows are locked with SELECT ... FOR UPDATE in ascending id order
// and the claim scan runs after the locks are held.  The transaction uses
// READ COMMITTED so that scan sees claims committed by a competing
// allocator that held the same locks a moment earlier; under REPEATABLE
// READ it would read a stale snapshot and double-book.
//
// Errors: InvalidRequest (empty, duplicate or foreign seat ids), NotFound
// (showtime), Conflict (SeatIDs lists the already claimed seats),
// Transient (deadlock, lock wait timeout, lost connection).
func (s *ReservationService) Allocate(ctx context.Context, userID, showtimeID uint64, seatIDs []uint64) (*model.ReservationDetail, error) {
	if userID == 0 {
		return nil, invalidRequest("user is required")
	}
	if showtimeID == 0 {
		return nil, invalidRequest("showtime_id is required")
	}
	ids, err := normalizeSeatIDs(seatIDs)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, classify("begin reservation", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// shared lock: the showtime cannot be deleted or moved until we commit
	st, err := s.showtimes.GetForShareTx(ctx, tx, showtimeID)
	if err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return nil, notFound("showtime")
		}
		return nil, classify("load showtime", err)
	}

	locked, err := s.seats.LockByIDsTx(ctx, tx, ids)
	if err != nil {
		return nil, classify("lock seats", err)
	}
	if invalid := foreignSeats(ids, locked, st.TheaterID); len(invalid) > 0 {
		return nil, &Error{Kind: KindInvalidRequest, Message: "seats do not exist in the showtime's theater", SeatIDs: invalid}
	}

	claimed, err := s.reservations.ClaimedSeatIDsTx(ctx, tx, showtimeID, ids)
	if err != nil {
		return nil, classify("check seat claims", err)
	}
	if len(claimed) > 0 {
		return nil, &Error{Kind: KindConflict, Message: "seats already reserved for this showtime", SeatIDs: claimed}
	}

	total, err := s.pricer.Price(ctx, st, locked)
	if err != nil {
		return nil, classify("price reservation", err)
	}
	res := &model.Reservation{
		UserID:          userID,
		ShowtimeID:      showtimeID,
		Status:          model.StatusConfirmed,
		TotalPriceCents: total,
	}
	if err := s.reservations.CreateTx(ctx, tx, res); err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return nil, notFound("showtime")
		}
		return nil, classify("insert reservation", err)
	}
	if err := s.reservations.CreateClaimsBulkTx(ctx, tx, res.ID, ids); err != nil {
		return nil, classify("insert seat claims", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, classify("commit reservation", err)
	}
	committed = true

	detail, err := s.reservations.GetDetail(ctx, res.ID)
	if err != nil {
		// the reservation is committed; answer with what we already know
		log.Printf("reservation %d committed but reload failed: %v", res.ID, err)
		res.ReservedAt = time.Now().UTC()
		detail = &model.ReservationDetail{
			Reservation: *res,
			User:        model.UserSummary{ID: userID},
			Showtime: model.ShowtimeSummary{
				ID: st.ID, MovieID: st.MovieID, TheaterID: st.TheaterID, StartsAt: st.StartsAt, EndsAt: st.EndsAt,
			},
			Seats: locked,
		}
	}
	publish(s.events, queue.EventReservationConfirmed, detail)
	return detail, nil
}

// normalizeSeatIDs rejects empty, zero and duplicate ids and returns the
// ids sorted ascending.
func normalizeSeatIDs(seatIDs []uint64) ([]uint64, error) {
	if len(seatIDs) == 0 {
		return nil, invalidRequest("seat_ids must not be empty")
	}
	ids := make([]uint64, len(seatIDs))
	copy(ids, seatIDs)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var dup []uint64
	for i, id := range ids {
		if id == 0 {
			return nil, invalidRequest("seat ids must be positive")
		}
		if i > 0 && ids[i-1] == id && (len(dup) == 0 || dup[len(dup)-1] != id) {
			dup = append(dup, id)
		}
	}
	if len(dup) > 0 {
		return nil, &Error{Kind: KindInvalidRequest, Message: "duplicate seat ids", SeatIDs: dup}
	}
	return ids, nil
}

// foreignSeats returns the requested ids that are missing or belong to a
// different theater, in ascending order.
func foreignSeats(ids []uint64, locked []model.Seat, theaterID uint64) []uint64 {
	ok := make(map[uint64]bool, len(locked))
	for _, s := range locked {
		if s.TheaterID == theaterID {
			ok[s.ID] = true
		}
	}
	var invalid []uint64
	for _, id := range ids {
		if !ok[id] {
			invalid = append(invalid, id)
		}
	}
	return invalid
}
