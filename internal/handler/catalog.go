package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-reservation/internal/model"
	"github.com/iliyamo/movie-reservation/internal/service"
)

// Catalog is the reference data store behind the browse and admin CRUD
// routes.  *service.CatalogService implements it.
type Catalog interface {
	CreateTheater(ctx context.Context, in service.TheaterInput) (*model.Theater, error)
	GetTheater(ctx context.Context, id uint64) (*model.Theater, error)
	ListTheaters(ctx context.Context) ([]model.Theater, error)
	UpdateTheater(ctx context.Context, id uint64, in service.TheaterUpdate) (*model.Theater, error)
	DeleteTheater(ctx context.Context, id uint64) error
	CreateSeat(ctx context.Context, in service.SeatInput) (*model.Seat, error)
	GetSeat(ctx context.Context, id uint64) (*model.Seat, error)
	ListSeats(ctx context.Context, theaterID uint64) ([]model.Seat, error)
	UpdateSeat(ctx context.Context, id uint64, in service.SeatInput) (*model.Seat, error)
	DeleteSeat(ctx context.Context, id uint64) error
	CreateMovie(ctx context.Context, in service.MovieInput) (*model.Movie, error)
	UpdateMovie(ctx context.Context, id uint64, in service.MovieInput) (*model.Movie, error)
	GetMovie(ctx context.Context, id uint64) (*model.Movie, error)
	ListMovies(ctx context.Context, genreID uint64) ([]model.Movie, error)
	DeleteMovie(ctx context.Context, id uint64) error
	CreateGenre(ctx context.Context, name string) (*model.Genre, error)
	GetGenre(ctx context.Context, id uint64) (*model.Genre, error)
	ListGenres(ctx context.Context) ([]model.Genre, error)
	UpdateGenre(ctx context.Context, id uint64, name string) (*model.Genre, error)
	DeleteGenre(ctx context.Context, id uint64) error
}

// CatalogHandler serves movies, genres, theaters and seats.
type CatalogHandler struct {
	svc Catalog
}

func NewCatalogHandler(svc Catalog) *CatalogHandler {
	if svc == nil {
		panic("nil service passed to NewCatalogHandler")
	}
	return &CatalogHandler{svc: svc}
}

// ----- DTOs -----

type theaterReq struct {
	Name     string `json:"name" validate:"required,max=100"`
	Location string `json:"location" validate:"required,max=255"`
	Capacity uint32 `json:"capacity"`
	SeatRows int    `json:"seat_rows" validate:"gte=0,lte=100"`
	SeatCols int    `json:"seat_cols" validate:"gte=0,lte=100"`
}

type theaterUpdateReq struct {
	Name     string `json:"name" validate:"required,max=100"`
	Location string `json:"location" validate:"required,max=255"`
	Capacity uint32 `json:"capacity" validate:"required"`
}

type seatReq struct {
	TheaterID uint64 `json:"theater_id" validate:"required"`
	Row       string `json:"row" validate:"required,max=8"`
	Number    uint32 `json:"number" validate:"required"`
	Type      string `json:"type" validate:"omitempty,oneof=standard premium recliner"`
}

// seatUpdateReq fields left empty keep their current value.
type seatUpdateReq struct {
	Row    string `json:"row" validate:"omitempty,max=8"`
	Number uint32 `json:"number"`
	Type   string `json:"type" validate:"omitempty,oneof=standard premium recliner"`
}

type movieReq struct {
	Title           string  `json:"title" validate:"required,max=255"`
	Description     string  `json:"description"`
	ReleaseYear     *uint16 `json:"release_year" validate:"omitempty,gte=1888,lte=2100"`
	DurationMinutes uint16  `json:"duration_minutes" validate:"lte=1000"`
	GenreID         *uint64 `json:"genre_id"`
}

func (r movieReq) input() service.MovieInput {
	return service.MovieInput{
		Title:           r.Title,
		Description:     r.Description,
		ReleaseYear:     r.ReleaseYear,
		DurationMinutes: r.DurationMinutes,
		GenreID:         r.GenreID,
	}
}

type genreReq struct {
	Name string `json:"name" validate:"required,max=64"`
}

// ----- public reads -----

// ListMovies handles GET /v1/movies?genre_id=.
func (h *CatalogHandler) ListMovies(c echo.Context) error {
	genreID, ok := queryID(c, "genre_id")
	if !ok {
		return badRequest(c, "invalid genre_id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.svc.ListMovies(ctx, genreID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetMovie handles GET /v1/movies/:id.
func (h *CatalogHandler) GetMovie(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid movie id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.svc.GetMovie(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *CatalogHandler) ListGenres(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.svc.ListGenres(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetGenre handles GET /v1/genres/:id.
func (h *CatalogHandler) GetGenre(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid genre id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	g, err := h.svc.GetGenre(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *CatalogHandler) ListTheaters(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.svc.ListTheaters(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// ListSeats handles GET /v1/theaters/:id/seats.
func (h *CatalogHandler) ListSeats(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid theater id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.svc.ListSeats(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

func (h *CatalogHandler) GetSeat(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid seat id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.svc.GetSeat(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// ----- admin writes -----

// CreateTheater handles POST /v1/admin/theaters.  seat_rows and seat_cols,
// when both set, generate a standard seat grid.
func (h *CatalogHandler) CreateTheater(c echo.Context) error {
	var req theaterReq
	if msg, ok := bindValid(c, &req); !ok {
		return badRequest(c, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.svc.CreateTheater(ctx, service.TheaterInput{
		Name: req.Name, Location: req.Location, Capacity: req.Capacity, Rows: req.SeatRows, SeatsPerRow: req.SeatCols,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *CatalogHandler) GetTheater(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid theater id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.svc.GetTheater(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// UpdateTheater handles PUT /v1/admin/theaters/:id.  The seat layout is
// managed through the seat routes.
func (h *CatalogHandler) UpdateTheater(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid theater id")
	}
	var req theaterUpdateReq
	if msg, ok := bindValid(c, &req); !ok {
		return badRequest(c, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.svc.UpdateTheater(ctx, id, service.TheaterUpdate{
		Name: req.Name, Location: req.Location, Capacity: req.Capacity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// DeleteTheater handles DELETE /v1/admin/theaters/:id.  409 while
// showtimes still reference it.
func (h *CatalogHandler) DeleteTheater(c echo.Context) error {
	return h.deleteByID(c, "invalid theater id", h.svc.DeleteTheater)
}

// CreateSeat handles POST /v1/admin/seats.
func (h *CatalogHandler) CreateSeat(c echo.Context) error {
	var req seatReq
	if msg, ok := bindValid(c, &req); !ok {
		return badRequest(c, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.svc.CreateSeat(ctx, service.SeatInput{
		TheaterID: req.TheaterID, Row: req.Row, Number: req.Number, Type: model.SeatType(req.Type),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, s)
}

// UpdateSeat handles PUT /v1/admin/seats/:id.  Moving to an occupied
// row and number is a 409.
func (h *CatalogHandler) UpdateSeat(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid seat id")
	}
	var req seatUpdateReq
	if msg, ok := bindValid(c, &req); !ok {
		return badRequest(c, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.svc.UpdateSeat(ctx, id, service.SeatInput{
		Row: req.Row, Number: req.Number, Type: model.SeatType(req.Type),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *CatalogHandler) DeleteSeat(c echo.Context) error {
	return h.deleteByID(c, "invalid seat id", h.svc.DeleteSeat)
}

// CreateMovie handles POST /v1/admin/movies.
func (h *CatalogHandler) CreateMovie(c echo.Context) error {
	var req movieReq
	if msg, ok := bindValid(c, &req); !ok {
		return badRequest(c, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.svc.CreateMovie(ctx, req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

// UpdateMovie handles PUT /v1/admin/movies/:id.
func (h *CatalogHandler) UpdateMovie(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid movie id")
	}
	var req movieReq
	if msg, ok := bindValid(c, &req); !ok {
		return badRequest(c, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.svc.UpdateMovie(ctx, id, req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *CatalogHandler) DeleteMovie(c echo.Context) error {
	return h.deleteByID(c, "invalid movie id", h.svc.DeleteMovie)
}

// CreateGenre handles POST /v1/admin/genres.
func (h *CatalogHandler) CreateGenre(c echo.Context) error {
	var req genreReq
	if msg, ok := bindValid(c, &req); !ok {
		return badRequest(c, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	g, err := h.svc.CreateGenre(ctx, req.Name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, g)
}

func (h *CatalogHandler) UpdateGenre(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid genre id")
	}
	var req genreReq
	if msg, ok := bindValid(c, &req); !ok {
		return badRequest(c, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	g, err := h.svc.UpdateGenre(ctx, id, req.Name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *CatalogHandler) DeleteGenre(c echo.Context) error {
	return h.deleteByID(c, "invalid genre id", h.svc.DeleteGenre)
}

func (h *CatalogHandler) deleteByID(c echo.Context, badID string, del func(context.Context, uint64) error) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, badID)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := del(ctx, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
