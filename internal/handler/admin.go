package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-reservation/internal/model"
)

// Admin covers reports and user management.  *service.AdminService
// implements it.
type Admin interface {
	CapacityReport(ctx context.Context, date time.Time) ([]model.CapacityRow, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	PromoteToAdmin(ctx context.Context, id uint64) (*model.User, error)
}

// AdminHandler serves /v1/admin/reports and /v1/admin/users.
type AdminHandler struct {
	svc Admin
}

func NewAdminHandler(svc Admin) *AdminHandler {
	if svc == nil {
		panic("nil service passed to NewAdminHandler")
	}
	return &AdminHandler{svc: svc}
}

// Capacity handles GET /v1/admin/reports/capacity?date=YYYY-MM-DD.
func (h *AdminHandler) Capacity(c echo.Context) error {
	day, ok := queryDate(c, "date")
	if !ok || day.IsZero() {
		return badRequest(c, "date is required as YYYY-MM-DD")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, err := h.svc.CapacityReport(ctx, day)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"date": day.Format("2006-01-02"), "showtimes": rows})
}

func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.svc.ListUsers(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Promote handles POST /v1/admin/users/:id/promote.  The new role shows up
// in the user's next access token.
func (h *AdminHandler) Promote(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.svc.PromoteToAdmin(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}
