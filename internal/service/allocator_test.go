package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-reservation/internal/model"
	"github.com/iliyamo/movie-reservation/internal/queue"
)

const (
	lockSeatsSQL = "FROM seats WHERE id IN (?,?) ORDER BY id FOR UPDATE"
	claimsSQL    = "SELECT rs.seat_id FROM reservation_seats rs JOIN reservations r ON r.id = rs.reservation_id"
	insertResSQL = "INSERT INTO reservations (user_id, showtime_id, status, total_price_cents) VALUES (?, ?, ?, ?)"
	insertRsSQL  = "INSERT INTO reservation_seats (reservation_id, seat_id) VALUES (?, ?),(?, ?)"
	showtimeSQL  = "FROM showtimes WHERE id = ? FOR SHARE"
)

func newAllocator(t *testing.T, events EventPublisher) (*ReservationService, sqlmock.Sqlmock) {
	db, m := newMock(t)
	r := newRepos(db)
	return NewReservationService(db, r.showtimes, r.seats, r.reservations, FlatRate{CentsPerSeat: 1250}, events), m
}

func TestAllocate_Success(t *testing.T) {
	pub := &mockPublisher{}
	svc, m := newAllocator(t, pub)

	m.ExpectBegin()
	m.ExpectQuery(q(showtimeSQL)).WithArgs(10).WillReturnRows(showtimeRow(10, 1, 3, t0, t1))
	m.ExpectQuery(q(lockSeatsSQL)).WithArgs(1, 2).WillReturnRows(seatRows(3, 1, 2))
	m.ExpectQuery(q(claimsSQL)).WithArgs(10, 1, 2).WillReturnRows(sqlmock.NewRows([]string{"seat_id"}))
	m.ExpectExec(q(insertResSQL)).WithArgs(7, 10, "confirmed", 2500).WillReturnResult(sqlmock.NewResult(55, 1))
	m.ExpectExec(q(insertRsSQL)).WithArgs(55, 1, 55, 2).WillReturnResult(sqlmock.NewResult(0, 2))
	m.ExpectCommit()
	expectDetail(m, 55, 7, 10, "confirmed", 2500, 1, 2)

	pub.On("Publish", mock.Anything, mock.MatchedBy(func(ev queue.ReservationEvent) bool {
		return ev.Type == queue.EventReservationConfirmed && ev.ReservationID == 55 &&
			assert.ObjectsAreEqual([]string{"A1", "A2"}, ev.Seats) && ev.EventID != ""
	})).Return(nil).Once()

	// unsorted input is normalised before locking
	d, err := svc.Allocate(context.Background(), 7, 10, []uint64{2, 1})
	require.NoError(t, err)
	assert.Equal(t, uint64(55), d.ID)
	assert.Equal(t, model.StatusConfirmed, d.Status)
	assert.Equal(t, uint32(2500), d.TotalPriceCents)
	assert.Equal(t, "Heat", d.Showtime.MovieTitle)
	assert.Len(t, d.Seats, 2)
	assert.NoError(t, m.ExpectationsWereMet())
	pub.AssertExpectations(t)
}

func TestAllocate_RejectsBadInput(t *testing.T) {
	svc, m := newAllocator(t, nil)
	ctx := context.Background()

	_, err := svc.Allocate(ctx, 7, 10, nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Allocate(ctx, 7, 10, []uint64{4, 0})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Allocate(ctx, 7, 10, []uint64{5, 3, 5, 3, 5})
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindInvalidRequest, se.Kind)
	assert.Equal(t, []uint64{3, 5}, se.SeatIDs)

	_, err = svc.Allocate(ctx, 7, 0, []uint64{1})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	// nothing reached the database
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestAllocate_ShowtimeNotFound(t *testing.T) {
	svc, m := newAllocator(t, nil)
	m.ExpectBegin()
	m.ExpectQuery(q(showtimeSQL)).WithArgs(10).WillReturnRows(sqlmock.NewRows(stCols))
	m.ExpectRollback()

	_, err := svc.Allocate(context.Background(), 7, 10, []uint64{1})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestAllocate_SeatFromAnotherTheater(t *testing.T) {
	svc, m := newAllocator(t, nil)
	m.ExpectBegin()
	m.ExpectQuery(q(showtimeSQL)).WithArgs(10).WillReturnRows(showtimeRow(10, 1, 3, t0, t1))
	// seat 2 exists but in theater 4; seat 9 does not exist at all
	rows := sqlmock.NewRows(seatCols).
		AddRow(1, 3, "A", 1, "standard", created).
		AddRow(2, 4, "A", 2, "standard", created)
	m.ExpectQuery(q("FROM seats WHERE id IN (?,?,?) ORDER BY id FOR UPDATE")).WithArgs(1, 2, 9).WillReturnRows(rows)
	m.ExpectRollback()

	_, err := svc.Allocate(context.Background(), 7, 10, []uint64{9, 2, 1})
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindInvalidRequest, se.Kind)
	assert.Equal(t, []uint64{2, 9}, se.SeatIDs)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestAllocate_ConflictNamesClaimedSeats(t *testing.T) {
	pub := &mockPublisher{}
	svc, m := newAllocator(t, pub)
	m.ExpectBegin()
	m.ExpectQuery(q(showtimeSQL)).WithArgs(10).WillReturnRows(showtimeRow(10, 1, 3, t0, t1))
	m.ExpectQuery(q(lockSeatsSQL)).WithArgs(1, 2).WillReturnRows(seatRows(3, 1, 2))
	m.ExpectQuery(q(claimsSQL)).WithArgs(10, 1, 2).WillReturnRows(sqlmock.NewRows([]string{"seat_id"}).AddRow(2))
	m.ExpectRollback()

	_, err := svc.Allocate(context.Background(), 7, 10, []uint64{1, 2})
	assert.ErrorIs(t, err, ErrConflict)
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []uint64{2}, se.SeatIDs)
	assert.NoError(t, m.ExpectationsWereMet())
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestAllocate_ClaimsAreScopedToTheShowtime(t *testing.T) {
	svc, m := newAllocator(t, nil)
	// seat 1 is held for showtime 10; the same seat at showtime 11 is free
	m.ExpectBegin()
	m.ExpectQuery(q(showtimeSQL)).WithArgs(11).WillReturnRows(showtimeRow(11, 1, 3, t1, t1.Add(2*time.Hour)))
	m.ExpectQuery(q("FROM seats WHERE id IN (?) ORDER BY id FOR UPDATE")).WithArgs(1).WillReturnRows(seatRows(3, 1))
	m.ExpectQuery(q(claimsSQL + " WHERE r.showtime_id = ?")).WithArgs(11, 1).WillReturnRows(sqlmock.NewRows([]string{"seat_id"}))
	m.ExpectExec(q(insertResSQL)).WithArgs(7, 11, "confirmed", 1250).WillReturnResult(sqlmock.NewResult(56, 1))
	m.ExpectExec(q("INSERT INTO reservation_seats (reservation_id, seat_id) VALUES (?, ?)")).WithArgs(56, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectCommit()
	expectDetail(m, 56, 7, 11, "confirmed", 1250, 1)

	d, err := svc.Allocate(context.Background(), 7, 11, []uint64{1})
	require.NoError(t, err)
	assert.Equal(t, uint64(11), d.ShowtimeID)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestAllocate_ShowtimeDeletedBeforeInsert(t *testing.T) {
	svc, m := newAllocator(t, nil)
	m.ExpectBegin()
	m.ExpectQuery(q(showtimeSQL)).WithArgs(10).WillReturnRows(showtimeRow(10, 1, 3, t0, t1))
	m.ExpectQuery(q(lockSeatsSQL)).WithArgs(1, 2).WillReturnRows(seatRows(3, 1, 2))
	m.ExpectQuery(q(claimsSQL)).WithArgs(10, 1, 2).WillReturnRows(sqlmock.NewRows([]string{"seat_id"}))
	m.ExpectExec(q(insertResSQL)).WithArgs(7, 10, "confirmed", 2500).
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"})
	m.ExpectRollback()

	_, err := svc.Allocate(context.Background(), 7, 10, []uint64{1, 2})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestAllocate_DeadlockIsTransient(t *testing.T) {
	svc, m := newAllocator(t, nil)
	m.ExpectBegin()
	m.ExpectQuery(q(showtimeSQL)).WithArgs(10).WillReturnRows(showtimeRow(10, 1, 3, t0, t1))
	m.ExpectQuery(q(lockSeatsSQL)).WithArgs(1, 2).WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"})
	m.ExpectRollback()

	_, err := svc.Allocate(context.Background(), 7, 10, []uint64{1, 2})
	assert.ErrorIs(t, err, ErrTransient)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestAllocate_ClaimInsertFailureRollsBack(t *testing.T) {
	svc, m := newAllocator(t, nil)
	m.ExpectBegin()
	m.ExpectQuery(q(showtimeSQL)).WithArgs(10).WillReturnRows(showtimeRow(10, 1, 3, t0, t1))
	m.ExpectQuery(q(lockSeatsSQL)).WithArgs(1, 2).WillReturnRows(seatRows(3, 1, 2))
	m.ExpectQuery(q(claimsSQL)).WithArgs(10, 1, 2).WillReturnRows(sqlmock.NewRows([]string{"seat_id"}))
	m.ExpectExec(q(insertResSQL)).WithArgs(7, 10, "confirmed", 2500).WillReturnResult(sqlmock.NewResult(55, 1))
	m.ExpectExec(q(insertRsSQL)).WillReturnError(errors.New("disk full"))
	m.ExpectRollback()

	_, err := svc.Allocate(context.Background(), 7, 10, []uint64{1, 2})
	assert.ErrorIs(t, err, ErrInternal)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestAllocate_ReloadFailureStillSucceeds(t *testing.T) {
	svc, m := newAllocator(t, nil)
	m.ExpectBegin()
	m.ExpectQuery(q(showtimeSQL)).WithArgs(10).WillReturnRows(showtimeRow(10, 1, 3, t0, t1))
	m.ExpectQuery(q("FROM seats WHERE id IN (?) ORDER BY id FOR UPDATE")).WithArgs(1).WillReturnRows(seatRows(3, 1))
	m.ExpectQuery(q(claimsSQL)).WithArgs(10, 1).WillReturnRows(sqlmock.NewRows([]string{"seat_id"}))
	m.ExpectExec(q(insertResSQL)).WithArgs(7, 10, "confirmed", 1250).WillReturnResult(sqlmock.NewResult(56, 1))
	m.ExpectExec(q("INSERT INTO reservation_seats (reservation_id, seat_id) VALUES (?, ?)")).WithArgs(56, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectCommit()
	m.ExpectQuery(q("FROM reservations r")).WithArgs(56).WillReturnError(errors.New("connection reset"))

	d, err := svc.Allocate(context.Background(), 7, 10, []uint64{1})
	require.NoError(t, err)
	assert.Equal(t, uint64(56), d.ID)
	assert.Equal(t, model.StatusConfirmed, d.Status)
	assert.Equal(t, uint64(3), d.Showtime.TheaterID)
	assert.Equal(t, []string{"A1"}, d.SeatLabels())
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestNormalizeSeatIDs(t *testing.T) {
	ids, err := normalizeSeatIDs([]uint64{9, 3, 7})
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 7, 9}, ids)
}

func TestFlatRate(t *testing.T) {
	total, err := FlatRate{CentsPerSeat: 1000}.Price(context.Background(), nil, make([]model.Seat, 3))
	require.NoError(t, err)
	assert.Equal(t, uint32(3000), total)

	_, err = FlatRate{CentsPerSeat: 1 << 31}.Price(context.Background(), nil, make([]model.Seat, 2))
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify("op", nil))
	assert.ErrorIs(t, classify("op", &mysql.MySQLError{Number: 1205}), ErrTransient)
	assert.ErrorIs(t, classify("op", context.DeadlineExceeded), ErrTransient)
	assert.ErrorIs(t, classify("op", errors.New("syntax")), ErrInternal)

	// typed errors pass through untouched
	nf := notFound("seat")
	assert.Same(t, nf, classify("op", nf))
	assert.Equal(t, "seat not found", nf.Error())
	assert.Equal(t, "conflict", KindConflict.String())
}
