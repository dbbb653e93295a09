package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-reservation/internal/model"
	"github.com/iliyamo/movie-reservation/internal/repository"
	"github.com/iliyamo/movie-reservation/internal/service"
)

// Showtimes is the overlap scheduler plus showtime reads.
// *service.ShowtimeService implements it.
type Showtimes interface {
	Create(ctx context.Context, in service.ShowtimeInput) (*model.Showtime, error)
	Update(ctx context.Context, id uint64, in service.ShowtimeInput) (*model.Showtime, error)
	Get(ctx context.Context, id uint64) (*model.Showtime, error)
	List(ctx context.Context, f repository.ShowtimeFilter) ([]model.Showtime, error)
	Delete(ctx context.Context, id uint64) error
	Availability(ctx context.Context, showtimeID uint64) ([]model.SeatAvailability, error)
}

// ShowtimeHandler serves /v1/showtimes.  Reads are public, writes are
// admin-only at the router.
type ShowtimeHandler struct {
	svc Showtimes
}

func NewShowtimeHandler(svc Showtimes) *ShowtimeHandler {
	if svc == nil {
		panic("nil service passed to NewShowtimeHandler")
	}
	return &ShowtimeHandler{svc: svc}
}

type showtimeReq struct {
	MovieID   uint64    `json:"movie_id" validate:"required"`
	TheaterID uint64    `json:"theater_id" validate:"required"`
	StartsAt  time.Time `json:"starts_at" validate:"required"`
	EndsAt    time.Time `json:"ends_at" validate:"required"`
}

func (r showtimeReq) input() service.ShowtimeInput {
	return service.ShowtimeInput{MovieID: r.MovieID, TheaterID: r.TheaterID, StartsAt: r.StartsAt, EndsAt: r.EndsAt}
}

// List handles GET /v1/showtimes?movie_id=&theater_id=&date=YYYY-MM-DD.
func (h *ShowtimeHandler) List(c echo.Context) error {
	movieID, ok := queryID(c, "movie_id")
	if !ok {
		return badRequest(c, "invalid movie_id")
	}
	theaterID, ok := queryID(c, "theater_id")
	if !ok {
		return badRequest(c, "invalid theater_id")
	}
	day, ok := queryDate(c, "date")
	if !ok {
		return badRequest(c, "date must be YYYY-MM-DD")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.svc.List(ctx, repository.ShowtimeFilter{MovieID: movieID, TheaterID: theaterID, Day: day})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Get handles GET /v1/showtimes/:id.
func (h *ShowtimeHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid showtime id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	st, err := h.svc.Get(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// Seats handles GET /v1/showtimes/:id/seats: every seat of the theater
// with a "reserved" flag.  Never cached.
func (h *ShowtimeHandler) Seats(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid showtime id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	seats, err := h.svc.Availability(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	free := 0
	for _, s := range seats {
		if !s.Reserved {
			free++
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"showtime_id": id, "available": free, "seats": seats})
}

// Create handles POST /v1/showtimes.  An overlap is 409 with "overlaps".
func (h *ShowtimeHandler) Create(c echo.Context) error {
	var req showtimeReq
	if msg, ok := bindValid(c, &req); !ok {
		return badRequest(c, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	st, err := h.svc.Create(ctx, req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, st)
}

// Update handles PUT /v1/showtimes/:id.
func (h *ShowtimeHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid showtime id")
	}
	var req showtimeReq
	if msg, ok := bindValid(c, &req); !ok {
		return badRequest(c, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	st, err := h.svc.Update(ctx, id, req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// Delete handles DELETE /v1/showtimes/:id; its reservations go with it.
func (h *ShowtimeHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid showtime id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.svc.Delete(ctx, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
