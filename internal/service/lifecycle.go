package service

import (
	"context"
	"errors"
	"log"

	"github.com/iliyamo/movie-reservation/internal/model"
	"github.com/iliyamo/movie-reservation/internal/queue"
	"github.com/iliyamo/movie-reservation/internal/repository"
)

// Get returns a reservation to its owner or to an admin.
func (s *ReservationService) Get(ctx context.Context, p model.Principal, id uint64) (*model.ReservationDetail, error) {
	d, err := s.reservations.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return nil, notFound("reservation")
		}
		return nil, classify("load reservation", err)
	}
	if !p.CanAccess(d.UserID) {
		return nil, forbidden("reservation belongs to another user")
	}
	return d, nil
}

// Cancel moves a pending or confirmed reservation to cancelled, which
// frees its seats for the showtime.  The reservation row is locked for the
// check-then-write so two concurrent cancels cannot both succeed.  A
// reservation that is already cancelled yields InvalidState.
func (s *ReservationService) Cancel(ctx context.Context, p model.Principal, id uint64) (*model.ReservationDetail, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify("begin cancel", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := s.reservations.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return nil, notFound("reservation")
		}
		return nil, classify("load reservation", err)
	}
	if !p.CanAccess(res.UserID) {
		return nil, forbidden("reservation belongs to another user")
	}
	if !res.Status.Active() {
		return nil, &Error{Kind: KindInvalidState, Message: "reservation is already cancelled"}
	}
	if err := s.reservations.UpdateStatusTx(ctx, tx, id, model.StatusCancelled); err != nil {
		return nil, classify("cancel reservation", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, classify("commit cancel", err)
	}
	committed = true

	d, err := s.reservations.GetDetail(ctx, id)
	if err != nil {
		log.Printf("reservation %d cancelled but reload failed: %v", id, err)
		res.Status = model.StatusCancelled
		d = &model.ReservationDetail{Reservation: *res, Seats: []model.Seat{}}
	}
	publish(s.events, queue.EventReservationCancelled, d)
	return d, nil
}

// Delete hard-deletes a reservation and its seat claims.  Admin only.
func (s *ReservationService) Delete(ctx context.Context, p model.Principal, id uint64) error {
	if !p.IsAdmin() {
		return forbidden("admin role required")
	}
	if err := s.reservations.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return notFound("reservation")
		}
		return classify("delete reservation", err)
	}
	return nil
}

// ListAll returns every reservation, newest first.  Admin only.
func (s *ReservationService) ListAll(ctx context.Context, p model.Principal) ([]model.ReservationDetail, error) {
	if !p.IsAdmin() {
		return nil, forbidden("admin role required")
	}
	out, err := s.reservations.ListDetails(ctx, repository.ReservationFilter{})
	return out, classify("list reservations", err)
}

// ListMine returns the caller's own reservations, newest first.
func (s *ReservationService) ListMine(ctx context.Context, p model.Principal) ([]model.ReservationDetail, error) {
	if p.UserID == 0 {
		return nil, forbidden("authentication required")
	}
	out, err := s.reservations.ListDetails(ctx, repository.ReservationFilter{UserID: p.UserID})
	return out, classify("list reservations", err)
}

// ListByShowtime returns all reservations of a showtime, cancelled ones
// included.  Admin only.
func (s *ReservationService) ListByShowtime(ctx context.Context, p model.Principal, showtimeID uint64) ([]model.ReservationDetail, error) {
	if !p.IsAdmin() {
		return nil, forbidden("admin role required")
	}
	if _, err := s.showtimes.GetByID(ctx, showtimeID); err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return nil, notFound("showtime")
		}
		return nil, classify("load showtime", err)
	}
	out, err := s.reservations.ListDetails(ctx, repository.ReservationFilter{ShowtimeID: showtimeID})
	return out, classify("list reservations", err)
}
