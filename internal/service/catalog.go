package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/movie-reservation/internal/model"
	"github.com/iliyamo/movie-reservation/internal/repository"
)

// CatalogService manages the reference data around showtimes: theaters,
// their seats, movies and genres.
type CatalogService struct {
	db       *sql.DB
	theaters *repository.TheaterRepo
	seats    *repository.SeatRepo
	movies   *repository.MovieRepo
}

func NewCatalogService(db *sql.DB, theaters *repository.TheaterRepo, seats *repository.SeatRepo, movies *repository.MovieRepo) *CatalogService {
	return &CatalogService{db: db, theaters: theaters, seats: seats, movies: movies}
}

// TheaterInput describes a new theater.  When Rows and SeatsPerRow are both
// positive a standard seat grid A1.. is generated with it, and Capacity
// defaults to the grid size.
type TheaterInput struct {
	Name        string
	Location    string
	Capacity    uint32
	Rows        int
	SeatsPerRow int
}

// maxGrid bounds generated seat grids.
const maxGrid = 100

// CreateTheater inserts a theater and its optional seat grid atomically.
func (s *CatalogService) CreateTheater(ctx context.Context, in TheaterInput) (*model.Theater, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	if in.Name == "" || in.Location == "" {
		return nil, invalidRequest("name and location are required")
	}
	if in.Rows < 0 || in.SeatsPerRow < 0 || in.Rows > maxGrid || in.SeatsPerRow > maxGrid {
		return nil, invalidRequest("rows and seats_per_row must be between 0 and %d", maxGrid)
	}
	grid := in.Rows > 0 && in.SeatsPerRow > 0
	if in.Capacity == 0 && grid {
		in.Capacity = uint32(in.Rows * in.SeatsPerRow)
	}
	if in.Capacity == 0 {
		return nil, invalidRequest("capacity must be positive")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify("begin create theater", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	t := &model.Theater{Name: in.Name, Location: in.Location, Capacity: in.Capacity}
	if err := s.theaters.CreateTx(ctx, tx, t); err != nil {
		return nil, classify("create theater", err)
	}
	if grid {
		seats := make([]model.Seat, 0, in.Rows*in.SeatsPerRow)
		for r := 0; r < in.Rows; r++ {
			for n := 1; n <= in.SeatsPerRow; n++ {
				seats = append(seats, model.Seat{TheaterID: t.ID, RowLabel: model.RowLabel(r), SeatNumber: uint32(n), SeatType: model.SeatStandard})
			}
		}
		if err := s.seats.CreateBulkTx(ctx, tx, seats); err != nil {
			return nil, classify("create seats", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, classify("commit create theater", err)
	}
	committed = true
	return s.GetTheater(ctx, t.ID)
}

func (s *CatalogService) GetTheater(ctx context.Context, id uint64) (*model.Theater, error) {
	t, err := s.theaters.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTheaterNotFound) {
			return nil, notFound("theater")
		}
		return nil, classify("load theater", err)
	}
	return t, nil
}

// TheaterUpdate carries the editable fields of an existing theater.
type TheaterUpdate struct {
	Name     string
	Location string
	Capacity uint32
}

// UpdateTheater renames, relocates or resizes a theater.  Its seats are
// managed separately.
func (s *CatalogService) UpdateTheater(ctx context.Context, id uint64, in TheaterUpdate) (*model.Theater, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	if in.Name == "" || in.Location == "" {
		return nil, invalidRequest("name and location are required")
	}
	if in.Capacity == 0 {
		return nil, invalidRequest("capacity must be positive")
	}
	t := &model.Theater{ID: id, Name: in.Name, Location: in.Location, Capacity: in.Capacity}
	if err := s.theaters.Update(ctx, t); err != nil {
		if errors.Is(err, repository.ErrTheaterNotFound) {
			return nil, notFound("theater")
		}
		return nil, classify("update theater", err)
	}
	return s.GetTheater(ctx, id)
}

func (s *CatalogService) ListTheaters(ctx context.Context) ([]model.Theater, error) {
	out, err := s.theaters.List(ctx)
	return out, classify("list theaters", err)
}

// DeleteTheater removes a theater and its seats.  Theaters that still have
// showtimes are a Conflict.
func (s *CatalogService) DeleteTheater(ctx context.Context, id uint64) error {
	err := s.theaters.Delete(ctx, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrTheaterNotFound):
		return notFound("theater")
	case errors.Is(err, repository.ErrInUse):
		return &Error{Kind: KindConflict, Message: "theater has showtimes; delete them first"}
	}
	return classify("delete theater", err)
}

// SeatInput describes a single seat to add to a theater.
type SeatInput struct {
	TheaterID uint64
	Row       string
	Number    uint32
	Type      model.SeatType
}

// CreateSeat adds a seat.  A second seat at the same position is a Conflict.
func (s *CatalogService) CreateSeat(ctx context.Context, in SeatInput) (*model.Seat, error) {
	row := strings.ToUpper(strings.TrimSpace(in.Row))
	if in.TheaterID == 0 || row == "" || in.Number == 0 {
		return nil, invalidRequest("theater_id, row and number are required")
	}
	if len(row) > 8 {
		return nil, invalidRequest("row label is too long")
	}
	if in.Type == "" {
		in.Type = model.SeatStandard
	}
	if !in.Type.Valid() {
		return nil, invalidRequest("type must be standard, premium or recliner")
	}
	seat := &model.Seat{TheaterID: in.TheaterID, RowLabel: row, SeatNumber: in.Number, SeatType: in.Type}
	err := s.seats.Create(ctx, seat)
	switch {
	case err == nil:
		return seat, nil
	case errors.Is(err, repository.ErrTheaterNotFound):
		return nil, notFound("theater")
	case errors.Is(err, repository.ErrDuplicate):
		return nil, &Error{Kind: KindConflict, Message: "a seat already exists at this row and number"}
	}
	return nil, classify("create seat", err)
}

// ListSeats returns the seats of a theater ordered by row then number.
func (s *CatalogService) ListSeats(ctx context.Context, theaterID uint64) ([]model.Seat, error) {
	if _, err := s.GetTheater(ctx, theaterID); err != nil {
		return nil, err
	}
	out, err := s.seats.ListByTheater(ctx, theaterID)
	return out, classify("list seats", err)
}

func (s *CatalogService) GetSeat(ctx context.Context, id uint64) (*model.Seat, error) {
	seat, err := s.seats.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			return nil, notFound("seat")
		}
		return nil, classify("load seat", err)
	}
	return seat, nil
}

// UpdateSeat changes a seat's row, number or type.  Zero fields keep their
// current value.  A seat cannot move to another theater, and taking the
// position of another seat is a Conflict.
func (s *CatalogService) UpdateSeat(ctx context.Context, id uint64, in SeatInput) (*model.Seat, error) {
	seat, err := s.GetSeat(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.TheaterID != 0 && in.TheaterID != seat.TheaterID {
		return nil, invalidRequest("a seat cannot move to another theater")
	}
	if row := strings.ToUpper(strings.TrimSpace(in.Row)); row != "" {
		if len(row) > 8 {
			return nil, invalidRequest("row label is too long")
		}
		seat.RowLabel = row
	}
	if in.Number != 0 {
		seat.SeatNumber = in.Number
	}
	if in.Type != "" {
		if !in.Type.Valid() {
			return nil, invalidRequest("type must be standard, premium or recliner")
		}
		seat.SeatType = in.Type
	}
	err = s.seats.Update(ctx, seat)
	switch {
	case err == nil:
		return s.GetSeat(ctx, id)
	case errors.Is(err, repository.ErrSeatNotFound):
		return nil, notFound("seat")
	case errors.Is(err, repository.ErrDuplicate):
		return nil, &Error{Kind: KindConflict, Message: "another seat already exists at this row and number"}
	}
	return nil, classify("update seat", err)
}

// DeleteSeat removes a seat no pending or confirmed reservation holds.
// Lines of cancelled reservations go with it.
func (s *CatalogService) DeleteSeat(ctx context.Context, id uint64) error {
	err := s.seats.Delete(ctx, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrSeatNotFound):
		return notFound("seat")
	case errors.Is(err, repository.ErrInUse):
		return &Error{Kind: KindConflict, Message: "seat is held by an active reservation"}
	}
	return classify("delete seat", err)
}

// MovieInput carries the writable fields of a movie.
type MovieInput struct {
	Title           string
	Description     string
	ReleaseYear     *uint16
	DurationMinutes uint16
	GenreID         *uint64
}

func (in MovieInput) toModel(id uint64) (*model.Movie, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalidRequest("title is required")
	}
	if in.GenreID != nil && *in.GenreID == 0 {
		in.GenreID = nil
	}
	return &model.Movie{
		ID:              id,
		Title:           title,
		Description:     strings.TrimSpace(in.Description),
		ReleaseYear:     in.ReleaseYear,
		DurationMinutes: in.DurationMinutes,
		GenreID:         in.GenreID,
	}, nil
}

func (s *CatalogService) CreateMovie(ctx context.Context, in MovieInput) (*model.Movie, error) {
	m, err := in.toModel(0)
	if err != nil {
		return nil, err
	}
	if err := s.movies.Create(ctx, m); err != nil {
		if errors.Is(err, repository.ErrGenreNotFound) {
			return nil, invalidRequest("genre %d does not exist", *m.GenreID)
		}
		return nil, classify("create movie", err)
	}
	return s.GetMovie(ctx, m.ID)
}

func (s *CatalogService) UpdateMovie(ctx context.Context, id uint64, in MovieInput) (*model.Movie, error) {
	m, err := in.toModel(id)
	if err != nil {
		return nil, err
	}
	if err := s.movies.Update(ctx, m); err != nil {
		switch {
		case errors.Is(err, repository.ErrMovieNotFound):
			return nil, notFound("movie")
		case errors.Is(err, repository.ErrGenreNotFound):
			return nil, invalidRequest("genre %d does not exist", *m.GenreID)
		}
		return nil, classify("update movie", err)
	}
	return s.GetMovie(ctx, id)
}

func (s *CatalogService) GetMovie(ctx context.Context, id uint64) (*model.Movie, error) {
	m, err := s.movies.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return nil, notFound("movie")
		}
		return nil, classify("load movie", err)
	}
	return m, nil
}

// ListMovies returns all movies, or those of one genre when genreID != 0.
func (s *CatalogService) ListMovies(ctx context.Context, genreID uint64) ([]model.Movie, error) {
	out, err := s.movies.List(ctx, genreID)
	return out, classify("list movies", err)
}

// DeleteMovie removes a movie with its showtimes and their reservations.
func (s *CatalogService) DeleteMovie(ctx context.Context, id uint64) error {
	if err := s.movies.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return notFound("movie")
		}
		return classify("delete movie", err)
	}
	return nil
}

func (s *CatalogService) CreateGenre(ctx context.Context, name string) (*model.Genre, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidRequest("name is required")
	}
	g := &model.Genre{Name: name}
	if err := s.movies.CreateGenre(ctx, g); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &Error{Kind: KindConflict, Message: "genre with this name already exists"}
		}
		return nil, classify("create genre", err)
	}
	return g, nil
}

func (s *CatalogService) ListGenres(ctx context.Context) ([]model.Genre, error) {
	out, err := s.movies.ListGenres(ctx)
	return out, classify("list genres", err)
}

func (s *CatalogService) DeleteGenre(ctx context.Context, id uint64) error {
	if err := s.movies.DeleteGenre(ctx, id); err != nil {
		if errors.Is(err, repository.ErrGenreNotFound) {
			return notFound("genre")
		}
		return classify("delete genre", err)
	}
	return nil
}

func (s *CatalogService) GetGenre(ctx context.Context, id uint64) (*model.Genre, error) {
	g, err := s.movies.GetGenre(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrGenreNotFound) {
			return nil, notFound("genre")
		}
		return nil, classify("load genre", err)
	}
	return g, nil
}

// UpdateGenre renames a genre.  Names stay unique.
func (s *CatalogService) UpdateGenre(ctx context.Context, id uint64, name string) (*model.Genre, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidRequest("name is required")
	}
	err := s.movies.UpdateGenre(ctx, &model.Genre{ID: id, Name: name})
	switch {
	case err == nil:
		return s.GetGenre(ctx, id)
	case errors.Is(err, repository.ErrGenreNotFound):
		return nil, notFound("genre")
	case errors.Is(err, repository.ErrDuplicate):
		return nil, &Error{Kind: KindConflict, Message: "genre with this name already exists"}
	}
	return nil, classify("update genre", err)
}
