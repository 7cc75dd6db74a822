// Package search drives the home feed from the movie search box.
package search

import (
	"strings"
	"time"

	"github.com/marco/recofilms/internal/catalog"
	"github.com/marco/recofilms/internal/debounce"
	"github.com/marco/recofilms/internal/logging"
)

// Resetter is the feed the search box drives.
type Resetter interface {
	Reset(filters catalog.Filters) bool
}

// Config configures a MovieSearch.
type Config struct {
	// Delay defaults to debounce.MovieSearchDelay.
	Delay time.Duration
	Clock debounce.Clock
}

// MovieSearch debounces free-text movie search. After a quiet period the
// home feed switches to the search results for the typed text; clearing
// the text brings back popular movies immediately.
type MovieSearch struct {
	home  Resetter
	query *debounce.Query
}

// New creates a MovieSearch driving home.
func New(home Resetter, cfg Config) *MovieSearch {
	if cfg.Delay <= 0 {
		cfg.Delay = debounce.MovieSearchDelay
	}
	s := &MovieSearch{home: home}
	s.query = debounce.New(debounce.Config{
		Name:      "movie",
		Delay:     cfg.Delay,
		MinLength: 1,
		Clock:     cfg.Clock,
		OnFire:    s.fire,
		OnClear:   s.clear,
	})
	return s
}

// Input records the text typed in the search box.
func (s *MovieSearch) Input(text string) {
	s.query.Input(text)
}

// Clear empties the box and returns to popular movies.
func (s *MovieSearch) Clear() {
	s.query.Input("")
}

func (s *MovieSearch) fire(value string) {
	q := strings.TrimSpace(value)
	logging.Debug().Str("query", q).Msg("Movie search fired")
	s.home.Reset(catalog.Filters{catalog.FilterQuery: q})
}

func (s *MovieSearch) clear() {
	s.home.Reset(nil)
}

// State returns the debounce state.
func (s *MovieSearch) State() debounce.State {
	return s.query.State()
}

// Close stops a pending search.
func (s *MovieSearch) Close() {
	s.query.Cancel()
}
