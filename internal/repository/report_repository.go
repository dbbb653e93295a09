package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/movie-reservation/internal/model"
)

// ReportRepo runs the read-only aggregate queries behind admin reports.
type ReportRepo struct {
	db *sql.DB
}

func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{db: db} }

// Capacity returns, for every showtime starting in [from, to), the
// theater capacity and the number of seats held by non-cancelled
// reservations.  OccupancyPercent is left for the caller to compute.
func (r *ReportRepo) Capacity(ctx context.Context, from, to time.Time) ([]model.CapacityRow, error) {
	const q = `SELECT s.id, m.title, t.name, s.starts_at, s.ends_at, t.capacity, COUNT(rs.id)` +
		` FROM showtimes s` +
		` JOIN movies m ON m.id = s.movie_id` +
		` JOIN theaters t ON t.id = s.theater_id` +
		` LEFT JOIN reservations r ON r.showtime_id = s.id AND ` + activeClaim +
		` LEFT JOIN reservation_seats rs ON rs.reservation_id = r.id` +
		` WHERE s.starts_at >= ? AND s.starts_at < ?` +
		` GROUP BY s.id, m.title, t.name, s.starts_at, s.ends_at, t.capacity` +
		` ORDER BY s.starts_at, s.id`
	rows, err := r.db.QueryContext(ctx, q, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.CapacityRow, 0)
	for rows.Next() {
		var c model.CapacityRow
		if err := rows.Scan(&c.ShowtimeID, &c.MovieTitle, &c.TheaterName, &c.StartsAt, &c.EndsAt, &c.TotalSeats, &c.ReservedSeats); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
