package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/iliyamo/movie-reservation/internal/model"
	"github.com/iliyamo/movie-reservation/internal/repository"
)

// ShowtimeService schedules showtimes so that no two showtimes of the same
// theater overlap under half-open [start, end) semantics.
type ShowtimeService struct {
	db           *sql.DB
	showtimes    *repository.ShowtimeRepo
	theaters     *repository.TheaterRepo
	movies       *repository.MovieRepo
	seats        *repository.SeatRepo
	reservations *repository.ReservationRepo
}

func NewShowtimeService(db *sql.DB, showtimes *repository.ShowtimeRepo, theaters *repository.TheaterRepo,
	movies *repository.MovieRepo, seats *repository.SeatRepo, reservations *repository.ReservationRepo) *ShowtimeService {
	return &ShowtimeService{db: db, showtimes: showtimes, theaters: theaters, movies: movies, seats: seats, reservations: reservations}
}

// ShowtimeInput carries the writable fields of a showtime.
type ShowtimeInput struct {
	MovieID   uint64
	TheaterID uint64
	StartsAt  time.Time
	EndsAt    time.Time
}

func (in ShowtimeInput) validate() error {
	if in.MovieID == 0 || in.TheaterID == 0 {
		return invalidRequest("movie_id and theater_id are required")
	}
	if in.StartsAt.IsZero() || in.EndsAt.IsZero() {
		return invalidRequest("starts_at and ends_at are required")
	}
	if !in.StartsAt.Before(in.EndsAt) {
		return invalidRequest("starts_at must be before ends_at")
	}
	return nil
}

// HasOverlap reports whether any showtime of theaterID other than
// excludeID intersects [start, end).  Pass excludeID 0 to consider all.
// The answer is advisory; Create and Update repeat the check under lock.
func (s *ShowtimeService) HasOverlap(ctx context.Context, theaterID uint64, start, end time.Time, excludeID uint64) (bool, error) {
	if !start.Before(end) {
		return false, invalidRequest("start must be before end")
	}
	found, err := s.showtimes.FindOverlapping(ctx, theaterID, start, end, excludeID)
	if err != nil {
		return false, classify("check overlap", err)
	}
	return len(overlapping(start, end, found)) > 0, nil
}

// Create schedules a new showtime.  Inside one transaction the theater row
// is locked, the overlap query runs and the insert follows, so concurrent
// creators for the same theater are serialised.  Overlap yields Conflict
// with the colliding showtimes.
func (s *ShowtimeService) Create(ctx context.Context, in ShowtimeInput) (*model.Showtime, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var created *model.Showtime
	err := s.inTx(ctx, "create showtime", func(tx *sql.Tx) error {
		if err := s.checkRefs(ctx, tx, in, in.TheaterID); err != nil {
			return err
		}
		if err := s.rejectOverlap(ctx, tx, in, 0); err != nil {
			return err
		}
		st := &model.Showtime{MovieID: in.MovieID, TheaterID: in.TheaterID, StartsAt: in.StartsAt.UTC(), EndsAt: in.EndsAt.UTC()}
		if err := s.showtimes.CreateTx(ctx, tx, st); err != nil {
			return err
		}
		got, err := s.showtimes.GetByIDTx(ctx, tx, st.ID)
		if err != nil {
			return err
		}
		created = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update reschedules an existing showtime, excluding itself from the
// overlap check.  When the theater changes both theater rows are locked in
// ascending id order, and a showtime whose seats are already claimed is a
// Conflict.
func (s *ShowtimeService) Update(ctx context.Context, id uint64, in ShowtimeInput) (*model.Showtime, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var updated *model.Showtime
	err := s.inTx(ctx, "update showtime", func(tx *sql.Tx) error {
		current, err := s.showtimes.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			if errors.Is(err, repository.ErrShowtimeNotFound) {
				return notFound("showtime")
			}
			return err
		}
		if err := s.checkRefs(ctx, tx, in, current.TheaterID); err != nil {
			return err
		}
		if current.TheaterID != in.TheaterID {
			// claims point at seats of the current theater
			held, err := s.reservations.HasActiveClaimsTx(ctx, tx, id)
			if err != nil {
				return err
			}
			if held {
				return &Error{Kind: KindConflict, Message: "showtime has active reservations and cannot move to another theater"}
			}
		}
		if err := s.rejectOverlap(ctx, tx, in, id); err != nil {
			return err
		}
		st := &model.Showtime{ID: id, MovieID: in.MovieID, TheaterID: in.TheaterID, StartsAt: in.StartsAt.UTC(), EndsAt: in.EndsAt.UTC()}
		if err := s.showtimes.UpdateTx(ctx, tx, st); err != nil {
			return err
		}
		got, err := s.showtimes.GetByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}
		updated = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// checkRefs verifies the movie and locks the target theater plus, when
// different, the theater the showtime currently lives in.
func (s *ShowtimeService) checkRefs(ctx context.Context, tx *sql.Tx, in ShowtimeInput, currentTheaterID uint64) error {
	if err := s.movies.ExistsTx(ctx, tx, in.MovieID); err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return notFound("movie")
		}
		return err
	}
	ids := []uint64{in.TheaterID}
	if currentTheaterID != in.TheaterID {
		ids = append(ids, currentTheaterID)
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	for _, tid := range ids {
		if err := s.theaters.LockTx(ctx, tx, tid); err != nil {
			if errors.Is(err, repository.ErrTheaterNotFound) {
				return notFound("theater")
			}
			return err
		}
	}
	return nil
}

func (s *ShowtimeService) rejectOverlap(ctx context.Context, tx *sql.Tx, in ShowtimeInput, excludeID uint64) error {
	found, err := s.showtimes.FindOverlappingTx(ctx, tx, in.TheaterID, in.StartsAt, in.EndsAt, excludeID)
	if err != nil {
		return err
	}
	if clash := overlapping(in.StartsAt, in.EndsAt, found); len(clash) > 0 {
		return &Error{Kind: KindConflict, Message: "showtime overlaps an existing showtime in this theater", Overlaps: clash}
	}
	return nil
}

// overlapping keeps the candidates that intersect [start, end).  The
// overlap query is the prefilter; model.Overlaps decides.
func overlapping(start, end time.Time, candidates []model.Showtime) []model.Showtime {
	out := make([]model.Showtime, 0, len(candidates))
	for _, st := range candidates {
		if model.Overlaps(start, end, st.StartsAt, st.EndsAt) {
			out = append(out, st)
		}
	}
	return out
}

// inTx runs fn in a READ COMMITTED transaction and commits when fn
// returns nil.  Errors are classified with op.
func (s *ShowtimeService) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return classify(op, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return classify(op, err)
	}
	if err := tx.Commit(); err != nil {
		return classify(op, err)
	}
	committed = true
	return nil
}

// Get returns a single showtime.
func (s *ShowtimeService) Get(ctx context.Context, id uint64) (*model.Showtime, error) {
	st, err := s.showtimes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return nil, notFound("showtime")
		}
		return nil, classify("load showtime", err)
	}
	return st, nil
}

// List returns showtimes filtered by movie, theater and UTC day.
func (s *ShowtimeService) List(ctx context.Context, f repository.ShowtimeFilter) ([]model.Showtime, error) {
	out, err := s.showtimes.List(ctx, f)
	return out, classify("list showtimes", err)
}

// Delete removes a showtime together with its reservations.
func (s *ShowtimeService) Delete(ctx context.Context, id uint64) error {
	if err := s.showtimes.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return notFound("showtime")
		}
		return classify("delete showtime", err)
	}
	return nil
}

// Availability lists every seat of the showtime's theater and whether an
// active reservation holds it.  The snapshot may be stale by the time the
// client allocates; Allocate re-checks under lock.
func (s *ShowtimeService) Availability(ctx context.Context, showtimeID uint64) ([]model.SeatAvailability, error) {
	st, err := s.Get(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	seats, err := s.seats.ListByTheater(ctx, st.TheaterID)
	if err != nil {
		return nil, classify("list seats", err)
	}
	claimed, err := s.reservations.ClaimedSeatIDs(ctx, showtimeID)
	if err != nil {
		return nil, classify("list claims", err)
	}
	taken := make(map[uint64]bool, len(claimed))
	for _, id := range claimed {
		taken[id] = true
	}
	out := make([]model.SeatAvailability, 0, len(seats))
	for _, seat := range seats {
		out = append(out, model.SeatAvailability{Seat: seat, Reserved: taken[seat.ID]})
	}
	return out, nil
}
