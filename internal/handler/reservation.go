package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-reservation/internal/model"
)

// Reservations is the reservation allocator and lifecycle as seen by HTTP.
// *service.ReservationService implements it.
type Reservations interface {
	Allocate(ctx context.Context, userID, showtimeID uint64, seatIDs []uint64) (*model.ReservationDetail, error)
	Get(ctx context.Context, p model.Principal, id uint64) (*model.ReservationDetail, error)
	Cancel(ctx context.Context, p model.Principal, id uint64) (*model.ReservationDetail, error)
	Delete(ctx context.Context, p model.Principal, id uint64) error
	ListAll(ctx context.Context, p model.Principal) ([]model.ReservationDetail, error)
	ListMine(ctx context.Context, p model.Principal) ([]model.ReservationDetail, error)
	ListByShowtime(ctx context.Context, p model.Principal, showtimeID uint64) ([]model.ReservationDetail, error)
}

// ReservationHandler serves /v1/reservations.  All routes require JWTAuth;
// ownership and admin checks happen in the service.
type ReservationHandler struct {
	svc Reservations
}

func NewReservationHandler(svc Reservations) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{svc: svc}
}

type createReservationReq struct {
	ShowtimeID uint64   `json:"showtime_id" validate:"required"`
	SeatIDs    []uint64 `json:"seat_ids" validate:"required,min=1,max=50,dive,gt=0"`
}

// Create handles POST /v1/reservations.  It reserves every requested seat
// or none: 201 with the reservation, 409 with "seat_ids" naming the seats
// someone else holds, 503 when the database asked us to retry.
func (h *ReservationHandler) Create(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return nil
	}
	var req createReservationReq
	if msg, ok := bindValid(c, &req); !ok {
		return badRequest(c, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.svc.Allocate(ctx, p.UserID, req.ShowtimeID, req.SeatIDs)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, d)
}

// Get handles GET /v1/reservations/:id for the owner or an admin.
func (h *ReservationHandler) Get(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.svc.Get(ctx, p, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// Cancel handles PUT /v1/reservations/:id/cancel.  Cancelling twice is 409.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.svc.Cancel(ctx, p, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// Delete handles DELETE /v1/reservations/:id (admin).
func (h *ReservationHandler) Delete(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return nil
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.svc.Delete(ctx, p, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListMine handles GET /v1/reservations/mine.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return nil
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.svc.ListMine(ctx, p)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// ListAll handles GET /v1/reservations and GET /v1/admin/reservations; the
// optional showtime_id query narrows the list to one showtime.
func (h *ReservationHandler) ListAll(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return nil
	}
	showtimeID, ok := queryID(c, "showtime_id")
	if !ok {
		return badRequest(c, "invalid showtime_id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	var out []model.ReservationDetail
	var err error
	if showtimeID != 0 {
		out, err = h.svc.ListByShowtime(ctx, p, showtimeID)
	} else {
		out, err = h.svc.ListAll(ctx, p)
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}
