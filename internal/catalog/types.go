package catalog

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// Movie is a catalog movie as returned by the backend. Optional fields left
// at their zero value (nil pointer, nil slice, empty string) are unknown and
// may be filled later by Enrich.
type Movie struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Overview    string    `json:"overview,omitempty"`
	PosterURL   string    `json:"poster_path,omitempty"`
	ReleaseDate string    `json:"release_date,omitempty"`
	VoteAverage float64   `json:"vote_average"`
	Runtime     *int      `json:"runtime,omitempty"`
	Genres      []string  `json:"genres,omitempty"`
	GenreIDs    []GenreID `json:"genre_ids,omitempty"`
	Cast        []string  `json:"cast"`
	Director    string    `json:"director,omitempty"`
	Keywords    []string  `json:"keywords,omitempty"`
	Popularity  float64   `json:"popularity,omitempty"`

	// Character is set on person filmography entries.
	Character string `json:"character,omitempty"`

	// Score is the similarity score of a recommendation (0-1).
	Score float64 `json:"score,omitempty"`
}

// Key returns the movie id. It satisfies feed.Identified.
func (m Movie) Key() int { return m.ID }

// Year returns the release year or 0 when the date is unknown.
func (m Movie) Year() int {
	if len(m.ReleaseDate) < 4 {
		return 0
	}
	y, _ := strconv.Atoi(m.ReleaseDate[:4])
	return y
}

// RuntimeMinutes returns the runtime, counting unknown as 0.
func (m Movie) RuntimeMinutes() int {
	if m.Runtime == nil {
		return 0
	}
	return *m.Runtime
}

// NeedsDetails reports whether runtime or cast is still unknown.
func (m Movie) NeedsDetails() bool {
	return m.Runtime == nil || *m.Runtime == 0 || m.Cast == nil
}

// Enrich fills the fields of m that are unknown with the values from d.
// Known fields are never overwritten.
func (m *Movie) Enrich(d Movie) {
	if m.Title == "" {
		m.Title = d.Title
	}
	if m.Overview == "" {
		m.Overview = d.Overview
	}
	if m.PosterURL == "" {
		m.PosterURL = d.PosterURL
	}
	if m.ReleaseDate == "" {
		m.ReleaseDate = d.ReleaseDate
	}
	if m.VoteAverage == 0 {
		m.VoteAverage = d.VoteAverage
	}
	if (m.Runtime == nil || *m.Runtime == 0) && d.Runtime != nil {
		r := *d.Runtime
		m.Runtime = &r
	}
	if len(m.Genres) == 0 && len(d.Genres) > 0 {
		m.Genres = append([]string(nil), d.Genres...)
	}
	if m.Cast == nil && d.Cast != nil {
		m.Cast = append([]string{}, d.Cast...)
	}
	if m.Director == "" {
		m.Director = d.Director
	}
	if len(m.Keywords) == 0 && len(d.Keywords) > 0 {
		m.Keywords = append([]string(nil), d.Keywords...)
	}
	if m.Popularity == 0 {
		m.Popularity = d.Popularity
	}
}

// IntPtr is a helper for building movies with a known runtime.
func IntPtr(v int) *int { return &v }

// GenreID is a genre identifier. The backend uses numeric TMDB ids for real
// genres and string ids such as "v_romcom" for virtual sub-genres.
type GenreID string

// UnmarshalJSON accepts both JSON numbers and strings.
func (g *GenreID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*g = GenreID(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*g = ""
		return nil
	}
	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid genre id %s: %w", data, err)
	}
	*g = GenreID(strconv.FormatFloat(n, 'f', -1, 64))
	return nil
}

// MarshalJSON writes numeric ids as numbers and virtual ids as strings.
func (g GenreID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.Atoi(string(g)); err == nil {
		return []byte(g), nil
	}
	return json.Marshal(string(g))
}

// Genre is an entry of the genre list.
type Genre struct {
	ID   GenreID `json:"id"`
	Name string  `json:"name"`
}

// Person is a person search result.
type Person struct {
	ID                 int    `json:"id"`
	Name               string `json:"name"`
	KnownForDepartment string `json:"known_for_department"`
	ProfilePath        string `json:"profile_path,omitempty"`
}

// Status is the backend readiness snapshot.
type Status struct {
	Status          string `json:"status"`
	TotalMovies     int    `json:"total_movies"`
	EmbeddingsReady bool   `json:"embeddings_ready"`
	IndexReady      bool   `json:"faiss_index_ready"`
}

// MoviePage is a page of search, popular or discover results.
type MoviePage struct {
	Results      []Movie `json:"results"`
	Page         int     `json:"page"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// RatedMovie is one liked movie of a recommendation request.
type RatedMovie struct {
	MovieID int     `json:"movie_id" validate:"gt=0"`
	Rating  float64 `json:"rating" validate:"gte=0,lte=10"`
}

// RecommendationRequest is the body of POST /recommend.
type RecommendationRequest struct {
	LikedMovies []RatedMovie `json:"liked_movies" validate:"min=1,dive"`
	TopK        int          `json:"top_k" validate:"min=1,max=50"`
	Filters     Filters      `json:"filters"`
}

// recommendationItem is the wire shape of a recommendation.
type recommendationItem struct {
	MovieID     int      `json:"movie_id"`
	Title       string   `json:"title"`
	Score       float64  `json:"score"`
	PosterURL   string   `json:"poster_url"`
	Overview    string   `json:"overview"`
	ReleaseDate string   `json:"release_date"`
	VoteAverage *float64 `json:"vote_average"`
	Genres      []string `json:"genres"`
	Runtime     *int     `json:"runtime"`
}

func (r recommendationItem) movie() Movie {
	m := Movie{
		ID:          r.MovieID,
		Title:       r.Title,
		Score:       r.Score,
		PosterURL:   r.PosterURL,
		Overview:    r.Overview,
		ReleaseDate: r.ReleaseDate,
		Genres:      r.Genres,
		Runtime:     r.Runtime,
	}
	if r.VoteAverage != nil {
		m.VoteAverage = *r.VoteAverage
	}
	return m
}

type recommendationResponse struct {
	Recommendations []recommendationItem `json:"recommendations"`
}

// DiscoverParams are the query parameters of GET /discover.
type DiscoverParams struct {
	SortBy       string
	GenreID      string
	MinVoteCount int
	Page         int
}

// InitResult is the response of POST /initialize.
type InitResult struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	TotalMovies int    `json:"total_movies"`
}
