package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-reservation/internal/handler"
	"github.com/iliyamo/movie-reservation/internal/middleware"
	"github.com/iliyamo/movie-reservation/internal/model"
)

// RegisterReservations registers /v1/reservations.  Every route needs a
// valid JWT; listing everything and hard deletes are admin only.  limit
// throttles the write endpoints per user.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/reservations",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin),
	)
	admin := middleware.RequireRole(model.RoleAdmin)

	g.POST("", h.Create, limit)
	g.GET("/mine", h.ListMine)
	g.GET("/:id", h.Get)
	g.PUT("/:id/cancel", h.Cancel, limit)

	g.GET("", h.ListAll, admin)
	g.DELETE("/:id", h.Delete, admin)
}
