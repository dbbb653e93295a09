package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/movie-reservation/internal/model"
)

// ErrReservationNotFound indicates that a reservation was not located in the DB.
var ErrReservationNotFound = errors.New("reservation not found")

// ReservationRepo provides CRUD operations for reservations and their seat
// claims.  Claims are stored in reservation_seats and cascade with their
// reservation.  All timestamp fields are stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// ReservationFilter narrows ListDetails.  Zero values disable a filter.
type ReservationFilter struct {
	UserID     uint64
	ShowtimeID uint64
}

// activeClaim restricts a join on reservations r to those still holding
// their seats.
const activeClaim = "r.status <> '" + string(model.StatusCancelled) + "'"

const reservationColumns = `id, user_id, showtime_id, status, total_price_cents, reserved_at, updated_at`

// CreateTx inserts a new reservation within the scope of an existing
// transaction and populates the generated ID.  A showtime deleted in the
// meantime yields ErrShowtimeNotFound.  The caller must commit or
// roll back the transaction.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations (user_id, showtime_id, status, total_price_cents) VALUES (?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q, res.UserID, res.ShowtimeID, string(res.Status), res.TotalPriceCents)
	if err != nil {
		if isMissingParent(err) {
			return ErrShowtimeNotFound
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// CreateClaimsBulkTx inserts one reservation_seats row per seat in a single
// statement.  Passing no seats has no effect.
func (r *ReservationRepo) CreateClaimsBulkTx(ctx context.Context, tx *sql.Tx, reservationID uint64, seatIDs []uint64) error {
	if len(seatIDs) == 0 {
		return nil
	}
	query := `INSERT INTO reservation_seats (reservation_id, seat_id) VALUES `
	args := make([]interface{}, 0, len(seatIDs)*2)
	for i, id := range seatIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, reservationID, id)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// ClaimedSeatIDsTx returns which of seatIDs are held by a non-cancelled
// reservation of the showtime.  Run it after the seat rows are locked.
func (r *ReservationRepo) ClaimedSeatIDsTx(ctx context.Context, tx *sql.Tx, showtimeID uint64, seatIDs []uint64) ([]uint64, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	q := `SELECT rs.seat_id FROM reservation_seats rs JOIN reservations r ON r.id = rs.reservation_id` +
		` WHERE r.showtime_id = ? AND ` + activeClaim + ` AND rs.seat_id IN (` + placeholders(len(seatIDs)) + `) ORDER BY rs.seat_id`
	args := append([]interface{}{showtimeID}, uint64Args(seatIDs)...)
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIDs(rows)
}

// ClaimedSeatIDs returns every seat held by a non-cancelled reservation of
// the showtime.
func (r *ReservationRepo) ClaimedSeatIDs(ctx context.Context, showtimeID uint64) ([]uint64, error) {
	const q = `SELECT rs.seat_id FROM reservation_seats rs JOIN reservations r ON r.id = rs.reservation_id` +
		` WHERE r.showtime_id = ? AND ` + activeClaim + ` ORDER BY rs.seat_id`
	rows, err := r.db.QueryContext(ctx, q, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIDs(rows)
}

// HasActiveClaimsTx reports whether any non-cancelled reservation of the
// showtime holds seats.
func (r *ReservationRepo) HasActiveClaimsTx(ctx context.Context, tx *sql.Tx, showtimeID uint64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM reservation_seats rs JOIN reservations r ON r.id = rs.reservation_id` +
		` WHERE r.showtime_id = ? AND ` + activeClaim + `)`
	var found bool
	err := tx.QueryRowContext(ctx, q, showtimeID).Scan(&found)
	return found, err
}

func collectIDs(rows *sql.Rows) ([]uint64, error) {
	out := make([]uint64, 0)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// GetForUpdateTx loads a reservation and locks its row for the rest of tx.
func (r *ReservationRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
	var res model.Reservation
	err := tx.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ? FOR UPDATE`, id).Scan(
		&res.ID, &res.UserID, &res.ShowtimeID, &res.Status, &res.TotalPriceCents, &res.ReservedAt, &res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return &res, nil
}

// UpdateStatusTx sets the status of a reservation inside tx.
func (r *ReservationRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.ReservationStatus) error {
	_, err := tx.ExecContext(ctx, `UPDATE reservations SET status = ? WHERE id = ?`, string(status), id)
	return err
}

// Delete hard-deletes a reservation; its seat claims go with it.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrReservationNotFound
	}
	return nil
}

const detailSelect = `SELECT r.id, r.user_id, r.showtime_id, r.status, r.total_price_cents, r.reserved_at, r.updated_at,` +
	` u.email, s.movie_id, m.title, s.theater_id, t.name, s.starts_at, s.ends_at` +
	` FROM reservations r` +
	` JOIN users u ON u.id = r.user_id` +
	` JOIN showtimes s ON s.id = r.showtime_id` +
	` JOIN movies m ON m.id = s.movie_id` +
	` JOIN theaters t ON t.id = s.theater_id`

func scanDetail(row interface{ Scan(...interface{}) error }, d *model.ReservationDetail) error {
	err := row.Scan(
		&d.ID, &d.UserID, &d.ShowtimeID, &d.Status, &d.TotalPriceCents, &d.ReservedAt, &d.UpdatedAt,
		&d.User.Email, &d.Showtime.MovieID, &d.Showtime.MovieTitle, &d.Showtime.TheaterID, &d.Showtime.TheaterName,
		&d.Showtime.StartsAt, &d.Showtime.EndsAt,
	)
	if err != nil {
		return err
	}
	d.User.ID = d.UserID
	d.Showtime.ID = d.ShowtimeID
	d.Seats = []model.Seat{}
	return nil
}

// GetDetail returns a reservation with its owner, showtime (movie and
// theater names) and seats.  It returns ErrReservationNotFound when no
// reservation with the specified ID exists.
func (r *ReservationRepo) GetDetail(ctx context.Context, id uint64) (*model.ReservationDetail, error) {
	var d model.ReservationDetail
	if err := scanDetail(r.db.QueryRowContext(ctx, detailSelect+` WHERE r.id = ?`, id), &d); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	details := []model.ReservationDetail{d}
	if err := r.loadSeats(ctx, details); err != nil {
		return nil, err
	}
	return &details[0], nil
}

// ListDetails returns reservations newest first, each with its seats.
func (r *ReservationRepo) ListDetails(ctx context.Context, f ReservationFilter) ([]model.ReservationDetail, error) {
	q := detailSelect + ` WHERE 1=1`
	var args []interface{}
	if f.UserID != 0 {
		q += ` AND r.user_id = ?`
		args = append(args, f.UserID)
	}
	if f.ShowtimeID != 0 {
		q += ` AND r.showtime_id = ?`
		args = append(args, f.ShowtimeID)
	}
	q += ` ORDER BY r.reserved_at DESC, r.id DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]model.ReservationDetail, 0)
	for rows.Next() {
		var d model.ReservationDetail
		if err := scanDetail(rows, &d); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadSeats(ctx, details); err != nil {
		return nil, err
	}
	return details, nil
}

// loadSeats fills Seats of every detail with one batched query.
func (r *ReservationRepo) loadSeats(ctx context.Context, details []model.ReservationDetail) error {
	if len(details) == 0 {
		return nil
	}
	index := make(map[uint64]int, len(details))
	ids := make([]uint64, 0, len(details))
	for i := range details {
		index[details[i].ID] = i
		ids = append(ids, details[i].ID)
	}
	q := `SELECT rs.reservation_id, se.id, se.theater_id, se.row_label, se.seat_number, se.seat_type, se.created_at` +
		` FROM reservation_seats rs JOIN seats se ON se.id = rs.seat_id` +
		` WHERE rs.reservation_id IN (` + placeholders(len(ids)) + `) ORDER BY se.row_label, se.seat_number`
	rows, err := r.db.QueryContext(ctx, q, uint64Args(ids)...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var resID uint64
		var s model.Seat
		if err := rows.Scan(&resID, &s.ID, &s.TheaterID, &s.RowLabel, &s.SeatNumber, &s.SeatType, &s.CreatedAt); err != nil {
			return err
		}
		if i, ok := index[resID]; ok {
			details[i].Seats = append(details[i].Seats, s)
		}
	}
	return rows.Err()
}
