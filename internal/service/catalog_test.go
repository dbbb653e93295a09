package service

import (
	"context"
	"database/sql/driver"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-reservation/internal/model"
)

var theaterCols = []string{"id", "name", "location", "capacity", "created_at", "updated_at"}

func newCatalog(t *testing.T) (*CatalogService, sqlmock.Sqlmock) {
	db, m := newMock(t)
	r := newRepos(db)
	return NewCatalogService(db, r.theaters, r.seats, r.movies), m
}

func TestCreateTheater_GeneratesSeatGrid(t *testing.T) {
	svc, m := newCatalog(t)
	m.ExpectBegin()
	m.ExpectExec(q("INSERT INTO theaters (name, location, capacity)")).WithArgs("Hall 1", "Downtown", 6).
		WillReturnResult(sqlmock.NewResult(4, 1))
	var args []driver.Value
	for _, row := range []string{"A", "B"} {
		for n := 1; n <= 3; n++ {
			args = append(args, 4, row, n, "standard")
		}
	}
	m.ExpectExec(q("INSERT INTO seats (theater_id, row_label, seat_number, seat_type) VALUES (?, ?, ?, ?),")).
		WithArgs(args...).WillReturnResult(sqlmock.NewResult(0, 6))
	m.ExpectCommit()
	m.ExpectQuery(q("FROM theaters WHERE id = ?")).WithArgs(4).
		WillReturnRows(sqlmock.NewRows(theaterCols).AddRow(4, "Hall 1", "Downtown", 6, created, created))

	th, err := svc.CreateTheater(context.Background(), TheaterInput{Name: " Hall 1 ", Location: "Downtown", Rows: 2, SeatsPerRow: 3})
	require.NoError(t, err)
	assert.Equal(t, uint32(6), th.Capacity)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestCreateTheater_Validation(t *testing.T) {
	svc, m := newCatalog(t)
	ctx := context.Background()

	_, err := svc.CreateTheater(ctx, TheaterInput{Location: "x", Capacity: 10})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = svc.CreateTheater(ctx, TheaterInput{Name: "x", Location: "y"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = svc.CreateTheater(ctx, TheaterInput{Name: "x", Location: "y", Rows: 101, SeatsPerRow: 1})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestDeleteTheater_WithShowtimesConflicts(t *testing.T) {
	svc, m := newCatalog(t)
	m.ExpectExec(q("DELETE FROM theaters WHERE id = ?")).WithArgs(4).
		WillReturnError(&mysql.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row"})
	m.ExpectExec(q("DELETE FROM theaters WHERE id = ?")).WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, svc.DeleteTheater(context.Background(), 4), ErrConflict)
	assert.ErrorIs(t, svc.DeleteTheater(context.Background(), 5), ErrNotFound)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestCreateSeat(t *testing.T) {
	svc, m := newCatalog(t)
	ctx := context.Background()
	const insert = "INSERT INTO seats (theater_id, row_label, seat_number, seat_type) VALUES (?, ?, ?, ?)"

	m.ExpectExec(q(insert)).WithArgs(4, "C", 7, "premium").WillReturnResult(sqlmock.NewResult(31, 1))
	seat, err := svc.CreateSeat(ctx, SeatInput{TheaterID: 4, Row: " c", Number: 7, Type: model.SeatPremium})
	require.NoError(t, err)
	assert.Equal(t, uint64(31), seat.ID)
	assert.Equal(t, "C7", seat.Label())

	m.ExpectExec(q(insert)).WithArgs(4, "C", 7, "standard").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	_, err = svc.CreateSeat(ctx, SeatInput{TheaterID: 4, Row: "C", Number: 7})
	assert.ErrorIs(t, err, ErrConflict)

	m.ExpectExec(q(insert)).WithArgs(40, "C", 7, "standard").
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"})
	_, err = svc.CreateSeat(ctx, SeatInput{TheaterID: 40, Row: "C", Number: 7})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.CreateSeat(ctx, SeatInput{TheaterID: 4, Row: "C", Number: 7, Type: "balcony"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestListSeats_UnknownTheater(t *testing.T) {
	svc, m := newCatalog(t)
	m.ExpectQuery(q("FROM theaters WHERE id = ?")).WithArgs(9).WillReturnRows(sqlmock.NewRows(theaterCols))

	_, err := svc.ListSeats(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestCreateMovie_UnknownGenre(t *testing.T) {
	svc, m := newCatalog(t)
	genre := uint64(12)
	m.ExpectExec(q("INSERT INTO movies")).WithArgs("Heat", "", nil, 170, 12).
		WillReturnError(&mysql.MySQLError{Number: 1452})

	_, err := svc.CreateMovie(context.Background(), MovieInput{Title: "Heat", DurationMinutes: 170, GenreID: &genre})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.CreateMovie(context.Background(), MovieInput{Title: "  "})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestCreateGenre_Duplicate(t *testing.T) {
	svc, m := newCatalog(t)
	m.ExpectExec(q("INSERT INTO genres (name) VALUES (?)")).WithArgs("Drama").
		WillReturnError(&mysql.MySQLError{Number: 1062})

	_, err := svc.CreateGenre(context.Background(), "Drama")
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestUpdateTheater(t *testing.T) {
	svc, m := newCatalog(t)
	ctx := context.Background()
	const update = "UPDATE theaters SET name = ?, location = ?, capacity = ? WHERE id = ?"

	m.ExpectExec(q(update)).WithArgs("Hall 2", "Level 3", 120, 4).WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectQuery(q("FROM theaters WHERE id = ?")).WithArgs(4).
		WillReturnRows(sqlmock.NewRows(theaterCols).AddRow(4, "Hall 2", "Level 3", 120, created, created))
	th, err := svc.UpdateTheater(ctx, 4, TheaterUpdate{Name: " Hall 2", Location: "Level 3", Capacity: 120})
	require.NoError(t, err)
	assert.Equal(t, "Hall 2", th.Name)

	// nothing changed and nothing found are told apart by a lookup
	m.ExpectExec(q(update)).WithArgs("Hall 2", "Level 3", 120, 9).WillReturnResult(sqlmock.NewResult(0, 0))
	m.ExpectQuery(q("FROM theaters WHERE id = ?")).WithArgs(9).WillReturnRows(sqlmock.NewRows(theaterCols))
	_, err = svc.UpdateTheater(ctx, 9, TheaterUpdate{Name: "Hall 2", Location: "Level 3", Capacity: 120})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.UpdateTheater(ctx, 4, TheaterUpdate{Name: "Hall 2", Location: "Level 3"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestUpdateSeat(t *testing.T) {
	svc, m := newCatalog(t)
	ctx := context.Background()
	const update = "UPDATE seats SET row_label = ?, seat_number = ?, seat_type = ? WHERE id = ?"
	seat := func(row string, n int, typ string) *sqlmock.Rows {
		return sqlmock.NewRows(seatCols).AddRow(12, 4, row, n, typ, created)
	}

	m.ExpectQuery(q("FROM seats WHERE id = ?")).WithArgs(12).WillReturnRows(seat("A", 3, "standard"))
	m.ExpectExec(q(update)).WithArgs("A", 3, "recliner", 12).WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectQuery(q("FROM seats WHERE id = ?")).WithArgs(12).WillReturnRows(seat("A", 3, "recliner"))
	out, err := svc.UpdateSeat(ctx, 12, SeatInput{Type: model.SeatRecliner})
	require.NoError(t, err)
	assert.Equal(t, model.SeatRecliner, out.SeatType)
	assert.Equal(t, "A3", out.Label())

	m.ExpectQuery(q("FROM seats WHERE id = ?")).WithArgs(12).WillReturnRows(seat("A", 3, "standard"))
	m.ExpectExec(q(update)).WithArgs("B", 4, "standard", 12).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	_, err = svc.UpdateSeat(ctx, 12, SeatInput{Row: "b", Number: 4})
	assert.ErrorIs(t, err, ErrConflict)

	m.ExpectQuery(q("FROM seats WHERE id = ?")).WithArgs(12).WillReturnRows(seat("A", 3, "standard"))
	_, err = svc.UpdateSeat(ctx, 12, SeatInput{TheaterID: 5})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	m.ExpectQuery(q("FROM seats WHERE id = ?")).WithArgs(13).WillReturnRows(sqlmock.NewRows(seatCols))
	_, err = svc.UpdateSeat(ctx, 13, SeatInput{Number: 1})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestGenreLookupAndRename(t *testing.T) {
	svc, m := newCatalog(t)
	ctx := context.Background()
	genreCols := []string{"id", "name", "created_at"}

	m.ExpectExec(q("UPDATE genres SET name = ? WHERE id = ?")).WithArgs("Noir", 2).WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectQuery(q("FROM genres WHERE id = ?")).WithArgs(2).WillReturnRows(sqlmock.NewRows(genreCols).AddRow(2, "Noir", created))
	g, err := svc.UpdateGenre(ctx, 2, " Noir ")
	require.NoError(t, err)
	assert.Equal(t, "Noir", g.Name)

	m.ExpectExec(q("UPDATE genres SET name = ? WHERE id = ?")).WithArgs("Drama", 2).
		WillReturnError(&mysql.MySQLError{Number: 1062})
	_, err = svc.UpdateGenre(ctx, 2, "Drama")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.UpdateGenre(ctx, 2, "  ")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	m.ExpectQuery(q("FROM genres WHERE id = ?")).WithArgs(8).WillReturnRows(sqlmock.NewRows(genreCols))
	_, err = svc.GetGenre(ctx, 8)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestDeleteSeat_DropsCancelledLines(t *testing.T) {
	svc, m := newCatalog(t)
	m.ExpectBegin()
	m.ExpectQuery(q("SELECT id FROM seats WHERE id = ? FOR UPDATE")).WithArgs(12).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))
	m.ExpectQuery(q("WHERE rs.seat_id = ? AND r.status <> 'cancelled')")).WithArgs(12).
		WillReturnRows(sqlmock.NewRows([]string{"held"}).AddRow(false))
	m.ExpectExec(q("DELETE FROM reservation_seats WHERE seat_id = ?")).WithArgs(12).WillReturnResult(sqlmock.NewResult(0, 2))
	m.ExpectExec(q("DELETE FROM seats WHERE id = ?")).WithArgs(12).WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectCommit()

	require.NoError(t, svc.DeleteSeat(context.Background(), 12))
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestDeleteSeat_HeldOrMissing(t *testing.T) {
	svc, m := newCatalog(t)
	ctx := context.Background()

	m.ExpectBegin()
	m.ExpectQuery(q("SELECT id FROM seats WHERE id = ? FOR UPDATE")).WithArgs(12).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))
	m.ExpectQuery(q("WHERE rs.seat_id = ? AND r.status <> 'cancelled')")).WithArgs(12).
		WillReturnRows(sqlmock.NewRows([]string{"held"}).AddRow(true))
	m.ExpectRollback()
	assert.ErrorIs(t, svc.DeleteSeat(ctx, 12), ErrConflict)

	m.ExpectBegin()
	m.ExpectQuery(q("SELECT id FROM seats WHERE id = ? FOR UPDATE")).WithArgs(13).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	m.ExpectRollback()
	assert.ErrorIs(t, svc.DeleteSeat(ctx, 13), ErrNotFound)
	assert.NoError(t, m.ExpectationsWereMet())
}
