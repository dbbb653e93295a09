package repository // repository defines data access for seats

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"errors"       // errors for sentinel definitions

	"github.com/iliyamo/movie-reservation/internal/model"
)

// ErrSeatNotFound is returned when a seat lookup yields no rows.
var ErrSeatNotFound = errors.New("seat not found")

// SeatRepo provides methods to work with seats in the database.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

const seatColumns = `id, theater_id, row_label, seat_number, seat_type, created_at`

func scanSeat(row interface{ Scan(...interface{}) error }, s *model.Seat) error {
	return row.Scan(&s.ID, &s.TheaterID, &s.RowLabel, &s.SeatNumber, &s.SeatType, &s.CreatedAt)
}

// Create inserts a single seat record.  A second seat at the same
// (theater, row, number) yields ErrDuplicate; an unknown theater yields
// ErrTheaterNotFound.
func (r *SeatRepo) Create(ctx context.Context, s *model.Seat) error {
	const q = `INSERT INTO seats (theater_id, row_label, seat_number, seat_type) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.TheaterID, s.RowLabel, s.SeatNumber, s.SeatType)
	if err != nil {
		if isMissingParent(err) {
			return ErrTheaterNotFound
		}
		return mapWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// CreateBulkTx inserts multiple seats in a single statement inside tx.
func (r *SeatRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO seats (theater_id, row_label, seat_number, seat_type) VALUES `
	args := make([]interface{}, 0, len(seats)*4)
	for i, seat := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, seat.TheaterID, seat.RowLabel, seat.SeatNumber, seat.SeatType)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return mapWriteErr(err)
}

// GetByID returns ErrSeatNotFound when no row matches.
func (r *SeatRepo) GetByID(ctx context.Context, id uint64) (*model.Seat, error) {
	var s model.Seat
	err := scanSeat(r.db.QueryRowContext(ctx, `SELECT `+seatColumns+` FROM seats WHERE id = ?`, id), &s)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeatNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Update moves or retypes a seat within its theater.  Taking the
// position of another seat yields ErrDuplicate.
func (r *SeatRepo) Update(ctx context.Context, s *model.Seat) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE seats SET row_label = ?, seat_number = ?, seat_type = ? WHERE id = ?`,
		s.RowLabel, s.SeatNumber, s.SeatType, s.ID)
	if err != nil {
		return mapWriteErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, s.ID); err != nil {
			return err
		}
	}
	return nil
}

// ListByTheater retrieves all seats of a theater ordered by row then number.
func (r *SeatRepo) ListByTheater(ctx context.Context, theaterID uint64) ([]model.Seat, error) {
	const q = `SELECT ` + seatColumns + ` FROM seats WHERE theater_id = ? ORDER BY row_label, seat_number`
	rows, err := r.db.QueryContext(ctx, q, theaterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Seat, 0)
	for rows.Next() {
		var s model.Seat
		if err := scanSeat(rows, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// LockByIDsTx selects the given seats with FOR UPDATE, in ascending id
// order so concurrent allocators acquire row locks in the same sequence.
// Seats that do not exist are simply absent from the result.
func (r *SeatRepo) LockByIDsTx(ctx context.Context, tx *sql.Tx, ids []uint64) ([]model.Seat, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := `SELECT ` + seatColumns + ` FROM seats WHERE id IN (` + placeholders(len(ids)) + `) ORDER BY id FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, uint64Args(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Seat, 0, len(ids))
	for rows.Next() {
		var s model.Seat
		if err := scanSeat(rows, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete removes a seat together with the cancelled reservation lines that
// still point at it.  A seat held by a pending or confirmed reservation
// yields ErrInUse.
func (r *SeatRepo) Delete(ctx context.Context, id uint64) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// the seat lock waits out any allocator that is claiming it
	var locked uint64
	err = tx.QueryRowContext(ctx, `SELECT id FROM seats WHERE id = ? FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSeatNotFound
		}
		return err
	}
	var held bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM reservation_seats rs JOIN reservations r ON r.id = rs.reservation_id`+
			` WHERE rs.seat_id = ? AND `+activeClaim+`)`, id).Scan(&held)
	if err != nil {
		return err
	}
	if held {
		return ErrInUse
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM reservation_seats WHERE seat_id = ?`, id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM seats WHERE id = ?`, id); err != nil {
		return mapWriteErr(err)
	}
	return tx.Commit()
}
