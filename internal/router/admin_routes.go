package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-reservation/internal/handler"
	"github.com/iliyamo/movie-reservation/internal/middleware"
	"github.com/iliyamo/movie-reservation/internal/model"
)

// AdminHandlers groups the handlers mounted behind the admin role.
type AdminHandlers struct {
	Catalog      *handler.CatalogHandler
	Showtimes    *handler.ShowtimeHandler
	Reservations *handler.ReservationHandler
	Admin        *handler.AdminHandler
}

// RegisterAdmin registers admin-only endpoints: showtime scheduling,
// reference data CRUD, reservation reports and user management.  purge
// drops cached browse responses after a successful catalogue write.
func RegisterAdmin(e *echo.Echo, h AdminHandlers, jwtSecret string, purge echo.MiddlewareFunc) {
	auth := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	}

	// ---- Showtimes ----
	st := e.Group("/v1/showtimes", auth...)
	st.POST("", h.Showtimes.Create)
	st.PUT("/:id", h.Showtimes.Update)
	st.DELETE("/:id", h.Showtimes.Delete)

	g := e.Group("/v1/admin", auth...)

	// ---- Catalogue ----
	g.POST("/theaters", h.Catalog.CreateTheater, purge)
	g.PUT("/theaters/:id", h.Catalog.UpdateTheater, purge)
	g.DELETE("/theaters/:id", h.Catalog.DeleteTheater, purge)
	g.POST("/seats", h.Catalog.CreateSeat, purge)
	g.PUT("/seats/:id", h.Catalog.UpdateSeat, purge)
	g.DELETE("/seats/:id", h.Catalog.DeleteSeat, purge)
	g.POST("/movies", h.Catalog.CreateMovie, purge)
	g.PUT("/movies/:id", h.Catalog.UpdateMovie, purge)
	g.DELETE("/movies/:id", h.Catalog.DeleteMovie, purge)
	g.POST("/genres", h.Catalog.CreateGenre, purge)
	g.PUT("/genres/:id", h.Catalog.UpdateGenre, purge)
	g.DELETE("/genres/:id", h.Catalog.DeleteGenre, purge)
	g.GET("/theaters/:id", h.Catalog.GetTheater)

	// ---- Reports ----
	g.GET("/reservations", h.Reservations.ListAll)
	g.GET("/reports/capacity", h.Admin.Capacity)

	// ---- Users ----
	g.GET("/users", h.Admin.ListUsers)
	g.POST("/users/:id/promote", h.Admin.Promote)
}
