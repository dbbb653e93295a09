package model

import "time"

// Genre groups movies for browsing.
type Genre struct {
	ID        uint64    `json:"id"`         // genres.id
	Name      string    `json:"name"`       // genres.name
	CreatedAt time.Time `json:"created_at"` // genres.created_at
}

// Movie is a film that can be scheduled into showtimes.  GenreID is
// optional; deleting a genre leaves its movies uncategorised.
type Movie struct {
	ID              uint64    `json:"id"`                     // movies.id
	Title           string    `json:"title"`                  // movies.title
	Description     string    `json:"description"`            // movies.description
	ReleaseYear     *uint16   `json:"release_year,omitempty"` // movies.release_year (nullable)
	DurationMinutes uint16    `json:"duration_minutes"`       // movies.duration_minutes
	GenreID         *uint64   `json:"genre_id,omitempty"`     // movies.genre_id (nullable)
	CreatedAt       time.Time `json:"created_at"`             // movies.created_at
	UpdatedAt       time.Time `json:"updated_at"`             // movies.updated_at
}
