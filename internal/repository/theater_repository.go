package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/movie-reservation/internal/model"
)

// ErrTheaterNotFound indicates that a theater was not located in the DB.
var ErrTheaterNotFound = errors.New("theater not found")

// TheaterRepo manages persistence for theaters.
type TheaterRepo struct {
	db *sql.DB
}

func NewTheaterRepo(db *sql.DB) *TheaterRepo { return &TheaterRepo{db: db} }

const theaterColumns = `id, name, location, capacity, created_at, updated_at`

func scanTheater(row interface{ Scan(...interface{}) error }, t *model.Theater) error {
	return row.Scan(&t.ID, &t.Name, &t.Location, &t.Capacity, &t.CreatedAt, &t.UpdatedAt)
}

// CreateTx inserts a theater inside tx and populates its generated ID.
func (r *TheaterRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Theater) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO theaters (name, location, capacity) VALUES (?, ?, ?)`,
		t.Name, t.Location, t.Capacity)
	if err != nil {
		return mapWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// GetByID returns ErrTheaterNotFound when no row matches.
func (r *TheaterRepo) GetByID(ctx context.Context, id uint64) (*model.Theater, error) {
	var t model.Theater
	err := scanTheater(r.db.QueryRowContext(ctx, `SELECT `+theaterColumns+` FROM theaters WHERE id = ?`, id), &t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTheaterNotFound
		}
		return nil, err
	}
	return &t, nil
}

// List returns all theaters ordered by name.
func (r *TheaterRepo) List(ctx context.Context) ([]model.Theater, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+theaterColumns+` FROM theaters ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Theater, 0)
	for rows.Next() {
		var t model.Theater
		if err := scanTheater(rows, &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// LockTx takes an exclusive lock on the theater row for the rest of tx.
// Showtime writers serialise on this lock so that the overlap check and
// the write that follows see the same schedule.
func (r *TheaterRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	var got uint64
	err := tx.QueryRowContext(ctx, `SELECT id FROM theaters WHERE id = ? FOR UPDATE`, id).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTheaterNotFound
	}
	return err
}

// Delete removes a theater and, by cascade, its seats.  A theater that
// still has showtimes yields ErrInUse.
func (r *TheaterRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM theaters WHERE id = ?`, id)
	if err != nil {
		return mapWriteErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTheaterNotFound
	}
	return nil
}

// Update overwrites name, location and capacity.  Seats are untouched.
func (r *TheaterRepo) Update(ctx context.Context, t *model.Theater) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE theaters SET name = ?, location = ?, capacity = ? WHERE id = ?`,
		t.Name, t.Location, t.Capacity, t.ID)
	if err != nil {
		return mapWriteErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// zero for unchanged values too
		if _, err := r.GetByID(ctx, t.ID); err != nil {
			return err
		}
	}
	return nil
}
