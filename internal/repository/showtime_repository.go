// This file holds persistence for showtimes.  A showtime is a screening of
// a movie in a theater over the half-open interval [starts_at, ends_at).
package repository

import (
	"context"      // context for controlling query lifetime
	"database/sql" // sql provides DB abstraction
	"errors"       // errors for sentinel definitions
	"time"

	"github.com/iliyamo/movie-reservation/internal/model"
)

// ErrShowtimeNotFound indicates that a showtime was not located in the DB.
var ErrShowtimeNotFound = errors.New("showtime not found")

// ShowtimeRepo manages persistence for showtimes.
type ShowtimeRepo struct {
	db *sql.DB
}

// NewShowtimeRepo constructs a ShowtimeRepo with the given DB handle.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo {
	return &ShowtimeRepo{db: db}
}

// ShowtimeFilter narrows List.  Zero values disable a filter; Day matches
// showtimes starting on that UTC calendar day.
type ShowtimeFilter struct {
	MovieID   uint64
	TheaterID uint64
	Day       time.Time
}

const showtimeColumns = `id, movie_id, theater_id, starts_at, ends_at, created_at, updated_at`

func scanShowtime(row interface{ Scan(...interface{}) error }, s *model.Showtime) error {
	return row.Scan(&s.ID, &s.MovieID, &s.TheaterID, &s.StartsAt, &s.EndsAt, &s.CreatedAt, &s.UpdatedAt)
}

// CreateTx inserts a new showtime using the provided transaction.  The
// caller must commit or roll back.  On success the generated ID is set.
func (r *ShowtimeRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.Showtime) error {
	const q = `INSERT INTO showtimes (movie_id, theater_id, starts_at, ends_at) VALUES (?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, s.MovieID, s.TheaterID, s.StartsAt.UTC(), s.EndsAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// UpdateTx rewrites movie, theater and window of an existing showtime.
func (r *ShowtimeRepo) UpdateTx(ctx context.Context, tx *sql.Tx, s *model.Showtime) error {
	const q = `UPDATE showtimes SET movie_id = ?, theater_id = ?, starts_at = ?, ends_at = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, s.MovieID, s.TheaterID, s.StartsAt.UTC(), s.EndsAt.UTC(), s.ID)
	return err
}

// GetByID retrieves a showtime by its ID.  It returns ErrShowtimeNotFound
// if there is no matching row.
func (r *ShowtimeRepo) GetByID(ctx context.Context, id uint64) (*model.Showtime, error) {
	var s model.Showtime
	err := scanShowtime(r.db.QueryRowContext(ctx, `SELECT `+showtimeColumns+` FROM showtimes WHERE id = ?`, id), &s)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowtimeNotFound
		}
		return nil, err
	}
	return &s, nil
}

// GetByIDTx is GetByID inside tx.
func (r *ShowtimeRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Showtime, error) {
	return r.getTx(ctx, tx, id, "")
}

// GetForShareTx reads the showtime and holds a shared lock on it until tx
// ends, so it cannot be deleted or moved while seats are being claimed.
func (r *ShowtimeRepo) GetForShareTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Showtime, error) {
	return r.getTx(ctx, tx, id, " FOR SHARE")
}

// GetForUpdateTx reads the showtime and locks it exclusively until tx ends.
func (r *ShowtimeRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Showtime, error) {
	return r.getTx(ctx, tx, id, " FOR UPDATE")
}

func (r *ShowtimeRepo) getTx(ctx context.Context, tx *sql.Tx, id uint64, lock string) (*model.Showtime, error) {
	var s model.Showtime
	err := scanShowtime(tx.QueryRowContext(ctx, `SELECT `+showtimeColumns+` FROM showtimes WHERE id = ?`+lock, id), &s)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowtimeNotFound
		}
		return nil, err
	}
	return &s, nil
}

// List returns showtimes matching f ordered by start time ascending.
func (r *ShowtimeRepo) List(ctx context.Context, f ShowtimeFilter) ([]model.Showtime, error) {
	q := `SELECT ` + showtimeColumns + ` FROM showtimes WHERE 1=1`
	var args []interface{}
	if f.MovieID != 0 {
		q += ` AND movie_id = ?`
		args = append(args, f.MovieID)
	}
	if f.TheaterID != 0 {
		q += ` AND theater_id = ?`
		args = append(args, f.TheaterID)
	}
	if !f.Day.IsZero() {
		from := time.Date(f.Day.Year(), f.Day.Month(), f.Day.Day(), 0, 0, 0, 0, time.UTC)
		q += ` AND starts_at >= ? AND starts_at < ?`
		args = append(args, from, from.AddDate(0, 0, 1))
	}
	q += ` ORDER BY starts_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectShowtimes(rows)
}

// FindOverlapping finds the showtimes of a theater whose window intersects
// [start, end).  A showtime overlaps when it starts before the proposed end
// and ends after the proposed start; touching endpoints do not overlap.
// excludeID, when non-zero, is left out so an update never collides with
// itself.
func (r *ShowtimeRepo) FindOverlapping(ctx context.Context, theaterID uint64, start, end time.Time, excludeID uint64) ([]model.Showtime, error) {
	q, args := overlapQuery(theaterID, start, end, excludeID)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectShowtimes(rows)
}

// FindOverlappingTx is FindOverlapping inside tx.  Run it after the
// theater row lock so the result cannot go stale before the write.
func (r *ShowtimeRepo) FindOverlappingTx(ctx context.Context, tx *sql.Tx, theaterID uint64, start, end time.Time, excludeID uint64) ([]model.Showtime, error) {
	q, args := overlapQuery(theaterID, start, end, excludeID)
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectShowtimes(rows)
}

func overlapQuery(theaterID uint64, start, end time.Time, excludeID uint64) (string, []interface{}) {
	q := `SELECT ` + showtimeColumns + ` FROM showtimes WHERE theater_id = ? AND starts_at < ? AND ends_at > ?`
	args := []interface{}{theaterID, end.UTC(), start.UTC()}
	if excludeID != 0 {
		q += ` AND id <> ?`
		args = append(args, excludeID)
	}
	q += ` ORDER BY starts_at`
	return q, args
}

func collectShowtimes(rows *sql.Rows) ([]model.Showtime, error) {
	out := make([]model.Showtime, 0)
	for rows.Next() {
		var s model.Showtime
		if err := scanShowtime(rows, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a showtime.  Its reservations and their seat claims are
// removed by cascade.
func (r *ShowtimeRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM showtimes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrShowtimeNotFound
	}
	return nil
}
