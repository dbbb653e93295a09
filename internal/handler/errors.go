package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-reservation/internal/service"
)

// statusFor maps a service error kind to its HTTP status.
func statusFor(k service.Kind) int {
	switch k {
	case service.KindInvalidRequest:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict, service.KindInvalidState:
		return http.StatusConflict
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": kind, "message": ...} plus the
// conflicting seats or showtimes when the service reported them.
func writeError(c echo.Context, err error) error {
	var se *service.Error
	if !errors.As(err, &se) {
		se = &service.Error{Kind: service.KindInternal, Err: err}
	}
	status := statusFor(se.Kind)
	body := echo.Map{"error": se.Kind.String(), "message": se.Message}
	switch se.Kind {
	case service.KindInternal:
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		body["message"] = "internal error"
	case service.KindTransient:
		c.Logger().Warnf("%s %s: %v", c.Request().Method, c.Path(), err)
		c.Response().Header().Set("Retry-After", "1")
	}
	if len(se.SeatIDs) > 0 {
		body["seat_ids"] = se.SeatIDs
	}
	if len(se.Overlaps) > 0 {
		body["overlaps"] = se.Overlaps
	}
	return c.JSON(status, body)
}

// badRequest is shorthand for malformed path, query or body input.
func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": service.KindInvalidRequest.String(), "message": msg})
}
