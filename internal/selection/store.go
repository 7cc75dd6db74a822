// Package selection holds the movies the user picked and rated, and builds
// recommendation requests from them.
package selection

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/marco/recofilms/internal/catalog"
)

const (
	// DefaultRating is given to a movie when it is selected.
	DefaultRating = 5.0
	// DefaultTopK is the number of recommendations requested.
	DefaultTopK = 20

	MinRating = 0.0
	MaxRating = 10.0
)

// ErrEmptySelection is returned when a request is built with nothing selected.
var ErrEmptySelection = errors.New("no movie selected")

var validate = validator.New()

// Selected is a picked movie with the user's rating.
type Selected struct {
	catalog.Movie
	Rating float64
}

// Store is the set of selected movies, in selection order.
type Store struct {
	mu      sync.RWMutex
	entries []Selected
	index   map[int]int // movie id -> position in entries
}

// NewStore creates an empty selection.
func NewStore() *Store {
	return &Store{index: make(map[int]int)}
}

// Toggle selects movie with the default rating, or deselects it when it is
// already selected. It returns true if the movie is now selected.
// A deselected movie loses its rating.
func (s *Store) Toggle(movie catalog.Movie) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[movie.ID]; ok {
		s.removeLocked(movie.ID)
		return false
	}
	s.index[movie.ID] = len(s.entries)
	s.entries = append(s.entries, Selected{Movie: movie, Rating: DefaultRating})
	return true
}

// SetRating sets the rating of a selected movie, clamped to [0, 10]. It
// returns false if the movie is not selected.
func (s *Store) SetRating(id int, rating float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.entries[i].Rating = clamp(rating)
	return true
}

// Remove deselects id. It returns false if it was not selected.
func (s *Store) Remove(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[id]; !ok {
		return false
	}
	s.removeLocked(id)
	return true
}

func (s *Store) removeLocked(id int) {
	i := s.index[id]
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.entries); j++ {
		s.index[s.entries[j].ID] = j
	}
}

// IsSelected reports whether id is selected.
func (s *Store) IsSelected(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[id]
	return ok
}

// Rating returns the rating of a selected movie.
func (s *Store) Rating(id int) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return 0, false
	}
	return s.entries[i].Rating, true
}

// Movies returns the selection in selection order.
func (s *Store) Movies() []Selected {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Selected(nil), s.entries...)
}

// Len returns the number of selected movies.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear deselects everything.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	clear(s.index)
}

// BuildRecommendationRequest pairs the selection with filters and topK.
// It fails with ErrEmptySelection when nothing is selected, in which case
// the backend must not be called. A topK <= 0 means DefaultTopK.
func (s *Store) BuildRecommendationRequest(filters catalog.Filters, topK int) (catalog.RecommendationRequest, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	s.mu.RLock()
	liked := make([]catalog.RatedMovie, 0, len(s.entries))
	for _, e := range s.entries {
		rating := e.Rating
		if rating != rating { // NaN
			rating = DefaultRating
		}
		liked = append(liked, catalog.RatedMovie{MovieID: e.ID, Rating: rating})
	}
	s.mu.RUnlock()

	if len(liked) == 0 {
		return catalog.RecommendationRequest{}, ErrEmptySelection
	}

	req := catalog.RecommendationRequest{
		LikedMovies: liked,
		TopK:        topK,
		Filters:     filters.Clone(),
	}
	if err := validate.Struct(req); err != nil {
		return catalog.RecommendationRequest{}, fmt.Errorf("invalid recommendation request: %w", err)
	}
	return req, nil
}

func clamp(v float64) float64 {
	switch {
	case v != v:
		return DefaultRating
	case v < MinRating:
		return MinRating
	case v > MaxRating:
		return MaxRating
	default:
		return v
	}
}
