package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-reservation/internal/handler"
	"github.com/iliyamo/movie-reservation/internal/middleware"
	"github.com/iliyamo/movie-reservation/internal/model"
)

// RegisterRoutes registers routes that need neither authentication nor
// any service beyond the database.  Currently only the health check.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers /v1/auth and the authenticated /v1/me endpoint.
// Register, login, refresh and logout run without a session; logout
// reads an optional bearer token itself.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin),
	)
}

// RegisterPublic registers the unauthenticated browse endpoints.  cache
// wraps the reference data reads; seat availability changes with every
// booking and is never cached.
func RegisterPublic(e *echo.Echo, cat *handler.CatalogHandler, st *handler.ShowtimeHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1")

	// reference data
	g.GET("/movies", cat.ListMovies, cache)
	g.GET("/movies/:id", cat.GetMovie, cache)
	g.GET("/genres", cat.ListGenres, cache)
	g.GET("/genres/:id", cat.GetGenre, cache)
	g.GET("/theaters", cat.ListTheaters, cache)
	g.GET("/theaters/:id/seats", cat.ListSeats, cache)
	g.GET("/seats/:id", cat.GetSeat, cache)

	// showtimes
	g.GET("/showtimes", st.List)
	g.GET("/showtimes/:id", st.Get)
	g.GET("/showtimes/:id/seats", st.Seats)
}
