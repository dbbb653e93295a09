package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/movie-reservation/internal/model"
)

var (
	// ErrMovieNotFound indicates that a movie was not located in the DB.
	ErrMovieNotFound = errors.New("movie not found")
	// ErrGenreNotFound indicates that a genre was not located in the DB.
	ErrGenreNotFound = errors.New("genre not found")
)

// MovieRepo manages movies and their genres.
type MovieRepo struct {
	db *sql.DB
}

func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

const movieColumns = `id, title, description, release_year, duration_minutes, genre_id, created_at, updated_at`

func scanMovie(row interface{ Scan(...interface{}) error }, m *model.Movie) error {
	var year sql.NullInt64
	var genre sql.NullInt64
	if err := row.Scan(&m.ID, &m.Title, &m.Description, &year, &m.DurationMinutes, &genre, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return err
	}
	m.ReleaseYear, m.GenreID = nil, nil
	if year.Valid {
		y := uint16(year.Int64)
		m.ReleaseYear = &y
	}
	if genre.Valid {
		g := uint64(genre.Int64)
		m.GenreID = &g
	}
	return nil
}

// Create inserts a movie.  A GenreID that does not exist yields ErrGenreNotFound.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO movies (title, description, release_year, duration_minutes, genre_id) VALUES (?, ?, ?, ?, ?)`,
		m.Title, m.Description, m.ReleaseYear, m.DurationMinutes, m.GenreID)
	if err != nil {
		if isMissingParent(err) {
			return ErrGenreNotFound
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// Update overwrites the editable movie fields.
func (r *MovieRepo) Update(ctx context.Context, m *model.Movie) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE movies SET title = ?, description = ?, release_year = ?, duration_minutes = ?, genre_id = ? WHERE id = ?`,
		m.Title, m.Description, m.ReleaseYear, m.DurationMinutes, m.GenreID, m.ID)
	if err != nil {
		if isMissingParent(err) {
			return ErrGenreNotFound
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 affected rows for unchanged values as well
		if _, err := r.GetByID(ctx, m.ID); err != nil {
			return err
		}
	}
	return nil
}

// GetByID returns ErrMovieNotFound when no row matches.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	var m model.Movie
	err := scanMovie(r.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies WHERE id = ?`, id), &m)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		return nil, err
	}
	return &m, nil
}

// ExistsTx checks the movie inside tx without locking it.
func (r *MovieRepo) ExistsTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	var got uint64
	err := tx.QueryRowContext(ctx, `SELECT id FROM movies WHERE id = ?`, id).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMovieNotFound
	}
	return err
}

// List returns movies ordered by title, optionally restricted to a genre.
func (r *MovieRepo) List(ctx context.Context, genreID uint64) ([]model.Movie, error) {
	q := `SELECT ` + movieColumns + ` FROM movies`
	var args []interface{}
	if genreID != 0 {
		q += ` WHERE genre_id = ?`
		args = append(args, genreID)
	}
	q += ` ORDER BY title, id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Movie, 0)
	for rows.Next() {
		var m model.Movie
		if err := scanMovie(rows, &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete removes a movie together with its showtimes and their reservations.
func (r *MovieRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM movies WHERE id = ?`, id)
	if err != nil {
		return mapWriteErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMovieNotFound
	}
	return nil
}

// CreateGenre inserts a genre; a duplicate name yields ErrDuplicate.
func (r *MovieRepo) CreateGenre(ctx context.Context, g *model.Genre) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO genres (name) VALUES (?)`, g.Name)
	if err != nil {
		return mapWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	g.ID = uint64(id)
	return nil
}

// ListGenres returns all genres ordered by name.
func (r *MovieRepo) ListGenres(ctx context.Context) ([]model.Genre, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, created_at FROM genres ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Genre, 0)
	for rows.Next() {
		var g model.Genre
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// DeleteGenre removes a genre; its movies keep existing without a genre.
func (r *MovieRepo) DeleteGenre(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM genres WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrGenreNotFound
	}
	return nil
}

// GetGenre returns ErrGenreNotFound when no row matches.
func (r *MovieRepo) GetGenre(ctx context.Context, id uint64) (*model.Genre, error) {
	var g model.Genre
	err := r.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM genres WHERE id = ?`, id).
		Scan(&g.ID, &g.Name, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGenreNotFound
		}
		return nil, err
	}
	return &g, nil
}

// UpdateGenre renames a genre; a name taken by another genre yields
// ErrDuplicate.
func (r *MovieRepo) UpdateGenre(ctx context.Context, g *model.Genre) error {
	res, err := r.db.ExecContext(ctx, `UPDATE genres SET name = ? WHERE id = ?`, g.Name, g.ID)
	if err != nil {
		return mapWriteErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetGenre(ctx, g.ID); err != nil {
			return err
		}
	}
	return nil
}
