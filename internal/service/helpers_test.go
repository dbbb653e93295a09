package service

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-reservation/internal/queue"
	"github.com/iliyamo/movie-reservation/internal/repository"
)

var (
	t0       = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	t1       = t0.Add(2 * time.Hour)
	created  = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	stCols   = []string{"id", "movie_id", "theater_id", "starts_at", "ends_at", "created_at", "updated_at"}
	seatCols = []string{"id", "theater_id", "row_label", "seat_number", "seat_type", "created_at"}
	detCols  = []string{"id", "user_id", "showtime_id", "status", "total_price_cents", "reserved_at", "updated_at",
		"email", "movie_id", "title", "theater_id", "name", "starts_at", "ends_at"}
)

// q turns a literal SQL fragment into a sqlmock pattern.
func q(fragment string) string { return regexp.QuoteMeta(fragment) }

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, m, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, m
}

type repos struct {
	showtimes    *repository.ShowtimeRepo
	seats        *repository.SeatRepo
	theaters     *repository.TheaterRepo
	movies       *repository.MovieRepo
	reservations *repository.ReservationRepo
}

func newRepos(db *sql.DB) repos {
	return repos{
		showtimes:    repository.NewShowtimeRepo(db),
		seats:        repository.NewSeatRepo(db),
		theaters:     repository.NewTheaterRepo(db),
		movies:       repository.NewMovieRepo(db),
		reservations: repository.NewReservationRepo(db),
	}
}

func showtimeRow(id, movieID, theaterID uint64, start, end time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(stCols).AddRow(id, movieID, theaterID, start, end, created, created)
}

func seatRows(theaterID uint64, ids ...uint64) *sqlmock.Rows {
	rows := sqlmock.NewRows(seatCols)
	for i, id := range ids {
		rows.AddRow(id, theaterID, "A", i+1, "standard", created)
	}
	return rows
}

// expectDetail expects the reload of one reservation with the given seats.
func expectDetail(m sqlmock.Sqlmock, resID, userID, showtimeID uint64, status string, total int, seatIDs ...uint64) {
	m.ExpectQuery(q("FROM reservations r")).WithArgs(resID).WillReturnRows(
		sqlmock.NewRows(detCols).AddRow(resID, userID, showtimeID, status, total, created, created,
			"ana@example.com", 1, "Heat", 3, "Hall 1", t0, t1))
	seats := sqlmock.NewRows(append([]string{"reservation_id"}, seatCols...))
	for i, id := range seatIDs {
		seats.AddRow(resID, id, 3, "A", i+1, "standard", created)
	}
	m.ExpectQuery(q("FROM reservation_seats rs JOIN seats se")).WithArgs(resID).WillReturnRows(seats)
}

type mockPublisher struct{ mock.Mock }

func (p *mockPublisher) Publish(ctx context.Context, ev queue.ReservationEvent) error {
	args := p.Called(ctx, ev)
	return args.Error(0)
}
