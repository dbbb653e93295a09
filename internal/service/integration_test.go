package service

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-reservation/internal/database"
	"github.com/iliyamo/movie-reservation/internal/model"
)

// These tests run against a real MySQL when TEST_MYSQL_DSN is set, e.g.
// root:root@tcp(127.0.0.1:3306)/movie_test?parseTime=true&loc=UTC
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}
	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	db.SetMaxOpenConns(32)
	require.NoError(t, database.NewMigrator(db).Up(context.Background()))
	return db
}

func mustExec(t *testing.T, db *sql.DB, query string, args ...interface{}) uint64 {
	t.Helper()
	res, err := db.Exec(query, args...)
	require.NoError(t, err)
	id, _ := res.LastInsertId()
	return uint64(id)
}

func TestIntegration_ConcurrentAllocationsNeverDoubleBook(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	suffix := time.Now().UnixNano()

	userA := mustExec(t, db, "INSERT INTO users (email, password_hash, role) VALUES (?, 'x', 'user')", fmt.Sprintf("a%d@test", suffix))
	userB := mustExec(t, db, "INSERT INTO users (email, password_hash, role) VALUES (?, 'x', 'user')", fmt.Sprintf("b%d@test", suffix))
	movie := mustExec(t, db, "INSERT INTO movies (title, description, duration_minutes) VALUES ('Race', '', 90)")
	theater := mustExec(t, db, "INSERT INTO theaters (name, location, capacity) VALUES (?, 'here', 4)", fmt.Sprintf("T%d", suffix))
	var seatIDs []uint64
	for n := 1; n <= 4; n++ {
		seatIDs = append(seatIDs, mustExec(t, db, "INSERT INTO seats (theater_id, row_label, seat_number) VALUES (?, 'A', ?)", theater, n))
	}
	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	showtime := mustExec(t, db, "INSERT INTO showtimes (movie_id, theater_id, starts_at, ends_at) VALUES (?, ?, ?, ?)",
		movie, theater, start, start.Add(2*time.Hour))
	t.Cleanup(func() {
		_, _ = db.Exec("DELETE FROM showtimes WHERE id = ?", showtime)
		_, _ = db.Exec("DELETE FROM theaters WHERE id = ?", theater)
		_, _ = db.Exec("DELETE FROM movies WHERE id = ?", movie)
		_, _ = db.Exec("DELETE FROM users WHERE id IN (?, ?)", userA, userB)
	})

	r := newRepos(db)
	svc := NewReservationService(db, r.showtimes, r.seats, r.reservations, nil, nil)

	// overlapping requests: {1,2} against {2,3} repeated
	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user, seats := userA, []uint64{seatIDs[0], seatIDs[1]}
			if i%2 == 1 {
				user, seats = userB, []uint64{seatIDs[2], seatIDs[1]}
			}
			_, err := svc.Allocate(ctx, user, showtime, seats)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				return
			}
			var se *Error
			if assert.ErrorAs(t, err, &se) {
				assert.Contains(t, []Kind{KindConflict, KindTransient}, se.Kind)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)

	claimed, err := r.reservations.ClaimedSeatIDs(ctx, showtime)
	require.NoError(t, err)
	assert.Len(t, claimed, 2)
	assert.Contains(t, claimed, seatIDs[1])
}

func TestIntegration_AdjacentShowtimesAllowed(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	suffix := time.Now().UnixNano()

	movie := mustExec(t, db, "INSERT INTO movies (title, description, duration_minutes) VALUES ('Back to back', '', 60)")
	theater := mustExec(t, db, "INSERT INTO theaters (name, location, capacity) VALUES (?, 'here', 10)", fmt.Sprintf("T%d", suffix))
	t.Cleanup(func() {
		_, _ = db.Exec("DELETE FROM showtimes WHERE theater_id = ?", theater)
		_, _ = db.Exec("DELETE FROM theaters WHERE id = ?", theater)
		_, _ = db.Exec("DELETE FROM movies WHERE id = ?", movie)
	})

	r := newRepos(db)
	svc := NewShowtimeService(db, r.showtimes, r.theaters, r.movies, r.seats, r.reservations)
	start := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)

	_, err := svc.Create(ctx, ShowtimeInput{MovieID: movie, TheaterID: theater, StartsAt: start, EndsAt: start.Add(time.Hour)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, ShowtimeInput{MovieID: movie, TheaterID: theater, StartsAt: start.Add(time.Hour), EndsAt: start.Add(2 * time.Hour)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, ShowtimeInput{MovieID: movie, TheaterID: theater, StartsAt: start.Add(30 * time.Minute), EndsAt: start.Add(90 * time.Minute)})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestIntegration_SeatClaimsPerShowtime(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	suffix := time.Now().UnixNano()

	userA := mustExec(t, db, "INSERT INTO users (email, password_hash, role) VALUES (?, 'x', 'user')", fmt.Sprintf("ca%d@test", suffix))
	userB := mustExec(t, db, "INSERT INTO users (email, password_hash, role) VALUES (?, 'x', 'user')", fmt.Sprintf("cb%d@test", suffix))
	movie := mustExec(t, db, "INSERT INTO movies (title, description, duration_minutes) VALUES ('Twice', '', 90)")
	theater := mustExec(t, db, "INSERT INTO theaters (name, location, capacity) VALUES (?, 'here', 3)", fmt.Sprintf("T%d", suffix))
	var a []uint64
	for n := 1; n <= 3; n++ {
		a = append(a, mustExec(t, db, "INSERT INTO seats (theater_id, row_label, seat_number) VALUES (?, 'A', ?)", theater, n))
	}
	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Second)
	early := mustExec(t, db, "INSERT INTO showtimes (movie_id, theater_id, starts_at, ends_at) VALUES (?, ?, ?, ?)",
		movie, theater, start, start.Add(2*time.Hour))
	late := mustExec(t, db, "INSERT INTO showtimes (movie_id, theater_id, starts_at, ends_at) VALUES (?, ?, ?, ?)",
		movie, theater, start.Add(3*time.Hour), start.Add(5*time.Hour))
	t.Cleanup(func() {
		_, _ = db.Exec("DELETE FROM showtimes WHERE theater_id = ?", theater)
		_, _ = db.Exec("DELETE FROM theaters WHERE id = ?", theater)
		_, _ = db.Exec("DELETE FROM movies WHERE id = ?", movie)
		_, _ = db.Exec("DELETE FROM users WHERE id IN (?, ?)", userA, userB)
	})

	r := newRepos(db)
	svc := NewReservationService(db, r.showtimes, r.seats, r.reservations, nil, nil)

	first, err := svc.Allocate(ctx, userA, early, []uint64{a[0], a[1]})
	require.NoError(t, err)

	// the same seats at another showtime are free
	_, err = svc.Allocate(ctx, userB, late, []uint64{a[0], a[1]})
	require.NoError(t, err)

	_, err = svc.Allocate(ctx, userB, early, []uint64{a[1], a[2]})
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindConflict, se.Kind)
	assert.Equal(t, []uint64{a[1]}, se.SeatIDs)

	// the failed attempt left nothing behind
	_, err = svc.Allocate(ctx, userB, early, []uint64{a[2]})
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, model.Principal{UserID: userA, Role: model.RoleUser}, first.ID)
	require.NoError(t, err)
	_, err = svc.Allocate(ctx, userB, early, []uint64{a[0]})
	require.NoError(t, err)

	claimed, err := r.reservations.ClaimedSeatIDs(ctx, early)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{a[0], a[2]}, claimed)
}

func TestIntegration_FindOverlapping(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	suffix := time.Now().UnixNano()

	movie := mustExec(t, db, "INSERT INTO movies (title, description, duration_minutes) VALUES ('Grid', '', 60)")
	theater := mustExec(t, db, "INSERT INTO theaters (name, location, capacity) VALUES (?, 'here', 10)", fmt.Sprintf("T%d", suffix))
	t.Cleanup(func() {
		_, _ = db.Exec("DELETE FROM showtimes WHERE theater_id = ?", theater)
		_, _ = db.Exec("DELETE FROM theaters WHERE id = ?", theater)
		_, _ = db.Exec("DELETE FROM movies WHERE id = ?", movie)
	})
	base := time.Now().UTC().Add(96 * time.Hour).Truncate(time.Second)
	existing := mustExec(t, db, "INSERT INTO showtimes (movie_id, theater_id, starts_at, ends_at) VALUES (?, ?, ?, ?)",
		movie, theater, base, base.Add(2*time.Hour))

	r := newRepos(db)
	cases := []struct {
		name       string
		start, end time.Duration
		clash      bool
	}{
		{"ends as it starts", -time.Hour, 0, false},
		{"starts as it ends", 2 * time.Hour, 3 * time.Hour, false},
		{"overlaps the start", -time.Hour, time.Hour, true},
		{"overlaps the end", time.Hour, 3 * time.Hour, true},
		{"inside", 30 * time.Minute, 90 * time.Minute, true},
		{"around", -time.Hour, 3 * time.Hour, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.showtimes.FindOverlapping(ctx, theater, base.Add(tc.start), base.Add(tc.end), 0)
			require.NoError(t, err)
			if tc.clash {
				require.Len(t, got, 1)
				assert.Equal(t, existing, got[0].ID)
			} else {
				assert.Empty(t, got)
			}
		})
	}

	got, err := r.showtimes.FindOverlapping(ctx, theater, base, base.Add(time.Hour), existing)
	require.NoError(t, err)
	assert.Empty(t, got)
}
