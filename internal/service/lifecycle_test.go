package service

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-reservation/internal/model"
	"github.com/iliyamo/movie-reservation/internal/queue"
)

var (
	owner  = model.Principal{UserID: 7, Role: model.RoleUser}
	other  = model.Principal{UserID: 8, Role: model.RoleUser}
	admin  = model.Principal{UserID: 1, Role: model.RoleAdmin}
	resCol = []string{"id", "user_id", "showtime_id", "status", "total_price_cents", "reserved_at", "updated_at"}
)

const forUpdateSQL = "FROM reservations WHERE id = ? FOR UPDATE"

func lockedReservation(m sqlmock.Sqlmock, id, userID uint64, status string) {
	m.ExpectQuery(q(forUpdateSQL)).WithArgs(id).WillReturnRows(
		sqlmock.NewRows(resCol).AddRow(id, userID, 10, status, 2500, created, created))
}

func TestCancel_ConfirmedThenAgain(t *testing.T) {
	pub := &mockPublisher{}
	svc, m := newAllocator(t, pub)

	m.ExpectBegin()
	lockedReservation(m, 55, 7, "confirmed")
	m.ExpectExec(q("UPDATE reservations SET status = ? WHERE id = ?")).WithArgs("cancelled", 55).
		WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectCommit()
	expectDetail(m, 55, 7, 10, "cancelled", 2500, 1, 2)
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(ev queue.ReservationEvent) bool {
		return ev.Type == queue.EventReservationCancelled && ev.ReservationID == 55
	})).Return(nil).Once()

	d, err := svc.Cancel(context.Background(), owner, 55)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, d.Status)

	// a second cancel sees the committed state
	m.ExpectBegin()
	lockedReservation(m, 55, 7, "cancelled")
	m.ExpectRollback()
	_, err = svc.Cancel(context.Background(), owner, 55)
	assert.ErrorIs(t, err, ErrInvalidState)

	assert.NoError(t, m.ExpectationsWereMet())
	pub.AssertExpectations(t)
}

func TestCancel_OtherUserForbidden(t *testing.T) {
	svc, m := newAllocator(t, nil)
	m.ExpectBegin()
	lockedReservation(m, 55, 7, "confirmed")
	m.ExpectRollback()

	_, err := svc.Cancel(context.Background(), other, 55)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestCancel_AdminMayCancelAnyReservation(t *testing.T) {
	svc, m := newAllocator(t, nil)
	m.ExpectBegin()
	lockedReservation(m, 55, 7, "pending")
	m.ExpectExec(q("UPDATE reservations SET status = ?")).WithArgs("cancelled", 55).WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectCommit()
	expectDetail(m, 55, 7, 10, "cancelled", 2500, 1)

	_, err := svc.Cancel(context.Background(), admin, 55)
	require.NoError(t, err)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestCancel_NotFound(t *testing.T) {
	svc, m := newAllocator(t, nil)
	m.ExpectBegin()
	m.ExpectQuery(q(forUpdateSQL)).WithArgs(99).WillReturnRows(sqlmock.NewRows(resCol))
	m.ExpectRollback()

	_, err := svc.Cancel(context.Background(), owner, 99)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestGet_Access(t *testing.T) {
	svc, m := newAllocator(t, nil)

	expectDetail(m, 55, 7, 10, "confirmed", 2500, 1)
	_, err := svc.Get(context.Background(), other, 55)
	assert.ErrorIs(t, err, ErrForbidden)

	expectDetail(m, 55, 7, 10, "confirmed", 2500, 1)
	d, err := svc.Get(context.Background(), admin, 55)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", d.User.Email)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestDeleteAndListAll_AdminOnly(t *testing.T) {
	svc, m := newAllocator(t, nil)

	assert.ErrorIs(t, svc.Delete(context.Background(), owner, 55), ErrForbidden)
	_, err := svc.ListAll(context.Background(), owner)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.ListByShowtime(context.Background(), owner, 10)
	assert.ErrorIs(t, err, ErrForbidden)

	m.ExpectExec(q("DELETE FROM reservations WHERE id = ?")).WithArgs(55).WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectExec(q("DELETE FROM reservations WHERE id = ?")).WithArgs(56).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.NoError(t, svc.Delete(context.Background(), admin, 55))
	assert.ErrorIs(t, svc.Delete(context.Background(), admin, 56), ErrNotFound)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestListMine_FiltersByCaller(t *testing.T) {
	svc, m := newAllocator(t, nil)
	m.ExpectQuery(q("WHERE 1=1 AND r.user_id = ? ORDER BY r.reserved_at DESC, r.id DESC")).WithArgs(7).
		WillReturnRows(sqlmock.NewRows(detCols))

	out, err := svc.ListMine(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NotNil(t, out)
	assert.NoError(t, m.ExpectationsWereMet())
}
