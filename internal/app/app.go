// Package app wires the session state together: the readiness gate, the
// browsing feeds, search, selection, recommendations, watch-later and the
// actor autocompletes.
package app

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/marco/recofilms/internal/autocomplete"
	"github.com/marco/recofilms/internal/browse"
	"github.com/marco/recofilms/internal/catalog"
	"github.com/marco/recofilms/internal/debounce"
	"github.com/marco/recofilms/internal/gate"
	"github.com/marco/recofilms/internal/logging"
	"github.com/marco/recofilms/internal/search"
	"github.com/marco/recofilms/internal/selection"
	"github.com/marco/recofilms/internal/watchlater"
)

// Options tunes an App. Zero values take the package defaults.
type Options struct {
	Clock            debounce.Clock
	MovieSearchDelay time.Duration
	ActorSearchDelay time.Duration
	TopK             int

	// Bus delivers pointer-downs to the actor autocompletes.
	Bus          *autocomplete.PointerBus
	FilterRegion autocomplete.Region
	ActorRegion  autocomplete.Region

	// ActorFilterChanged and ActorPickerChanged observe the autocompletes.
	ActorFilterChanged func(autocomplete.State)
	ActorPickerChanged func(autocomplete.State)
}

// App is one user session.
type App struct {
	ctx     context.Context
	catalog catalog.Catalog
	topK    int

	Gate            *gate.Gate
	Home            *browse.MovieFeed
	TopRated        *browse.MovieFeed
	Discover        *browse.MovieFeed
	Filmography     *browse.MovieFeed
	Search          *search.MovieSearch
	Selection       *selection.Store
	Recommendations *selection.Recommendations
	WatchLater      *watchlater.Store

	// ActorFilter completes the actor filter of recommendations.
	ActorFilter *autocomplete.Autocomplete
	// ActorPicker completes the actor whose filmography is shown.
	ActorPicker *autocomplete.Autocomplete

	mu      sync.RWMutex
	filters catalog.Filters
	genres  []catalog.Genre
	actor   *catalog.Person
}

// New creates a session over c. Background work runs with ctx.
func New(ctx context.Context, c catalog.Catalog, wl *watchlater.Store, opts Options) *App {
	if opts.TopK <= 0 {
		opts.TopK = selection.DefaultTopK
	}

	a := &App{
		ctx:             ctx,
		catalog:         c,
		topK:            opts.TopK,
		Gate:            gate.New(c),
		Home:            browse.NewHome(ctx, c),
		TopRated:        browse.NewTopRated(ctx, c),
		Discover:        browse.NewDiscover(ctx, c),
		Filmography:     browse.NewFilmography(ctx, c),
		Selection:       selection.NewStore(),
		Recommendations: &selection.Recommendations{},
		WatchLater:      wl,
		filters:         catalog.Filters{},
	}
	a.Search = search.New(a.Home, search.Config{Delay: opts.MovieSearchDelay, Clock: opts.Clock})
	a.ActorFilter = autocomplete.New(ctx, c, autocomplete.Config{
		Delay:    opts.ActorSearchDelay,
		Clock:    opts.Clock,
		Bus:      opts.Bus,
		Region:   opts.FilterRegion,
		OnChange: opts.ActorFilterChanged,
	})
	a.ActorPicker = autocomplete.New(ctx, c, autocomplete.Config{
		Delay:    opts.ActorSearchDelay,
		Clock:    opts.Clock,
		Bus:      opts.Bus,
		Region:   opts.ActorRegion,
		OnChange: opts.ActorPickerChanged,
	})
	return a
}

// Start checks backend readiness and loads the genre list concurrently.
// The home feed loads only once the backend is ready; otherwise the gate's
// blocking condition is returned.
func (a *App) Start(ctx context.Context) error {
	var state gate.State

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		state, _ = a.Gate.Check(gctx)
		return nil
	})
	g.Go(func() error {
		a.loadGenres(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if err := state.Err(); err != nil {
		return err
	}
	a.Home.Load(nil)
	return nil
}

// Recheck runs the manual status check and loads the home feed when the
// backend just became ready.
func (a *App) Recheck(ctx context.Context) error {
	before := a.Gate.State().Kind
	state, _ := a.Gate.Check(ctx)
	if err := state.Err(); err != nil {
		return err
	}
	if before != gate.Ready {
		a.Home.Load(nil)
		if len(a.Genres()) == 0 {
			a.loadGenres(ctx)
		}
	}
	return nil
}

func (a *App) loadGenres(ctx context.Context) {
	genres, err := a.catalog.GetGenres(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to load genres")
		return
	}
	a.mu.Lock()
	a.genres = genres
	a.mu.Unlock()
	logging.Debug().Int("count", len(genres)).Msg("Genres loaded")
}

// Genres returns the genre list loaded at start.
func (a *App) Genres() []catalog.Genre {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.genres)
}

// Filters returns a copy of the active recommendation filters.
func (a *App) Filters() catalog.Filters {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.filters.Clone()
}

// SetFilter sets or, with an empty value, removes one recommendation filter.
func (a *App) SetFilter(key, value string) {
	a.mu.Lock()
	a.filters = a.filters.With(key, value)
	a.mu.Unlock()
}

// ClearFilters removes every recommendation filter.
func (a *App) ClearFilters() {
	a.mu.Lock()
	a.filters = catalog.Filters{}
	a.mu.Unlock()
	a.ActorFilter.Input("")
}

// InputFilterActor feeds the actor filter box. Emptying it removes the
// actor filter right away.
func (a *App) InputFilterActor(text string) {
	a.ActorFilter.Input(text)
	if text == "" {
		a.SetFilter(catalog.FilterActor, "")
	}
}

// SelectFilterActor picks an actor suggestion as the actor filter.
func (a *App) SelectFilterActor(p catalog.Person) {
	a.ActorFilter.Select(p)
	a.SetFilter(catalog.FilterActor, p.Name)
}

// Recommend builds a request from the selection and the active filters and
// replaces the previous recommendations with the answer.
func (a *App) Recommend(ctx context.Context) error {
	if err := a.Gate.Require(); err != nil {
		return err
	}
	req, err := a.Selection.BuildRecommendationRequest(a.Filters(), a.topK)
	if err != nil {
		return err
	}

	gen := a.Recommendations.Begin(req)
	movies, err := a.catalog.GetRecommendations(ctx, req)
	if !a.Recommendations.Apply(gen, movies, err) {
		logging.Debug().Uint64("generation", gen).Msg("Discarded superseded recommendations")
		return nil
	}
	if err != nil {
		return catalog.Failed(catalog.OpRecommend, err)
	}
	logging.Info().Int("liked", len(req.LikedMovies)).Int("results", len(movies)).Msg("Recommendations received")
	return nil
}

// ClearSelection deselects everything and drops the recommendations.
func (a *App) ClearSelection() {
	a.Selection.Clear()
	a.Recommendations.Clear()
}

// MovieDetails fetches the full record of a movie.
func (a *App) MovieDetails(ctx context.Context, id int) (catalog.Movie, error) {
	if err := a.Gate.Require(); err != nil {
		return catalog.Movie{}, err
	}
	m, err := a.catalog.GetMovieDetails(ctx, id)
	if err != nil {
		return catalog.Movie{}, catalog.Failed(catalog.OpMovieDetails, err)
	}
	return m, nil
}

// ToggleWatchLater adds or removes a movie from the watch-later list.
func (a *App) ToggleWatchLater(m catalog.Movie) (bool, error) {
	if a.WatchLater == nil {
		return false, fmt.Errorf("watch later is not available")
	}
	return a.WatchLater.Toggle(m)
}

// show loads f on first use and resets it on later filter changes.
func show(f *browse.MovieFeed, filters catalog.Filters) {
	if f.State().Generation == 0 {
		f.Load(filters)
		return
	}
	f.Reset(filters)
}

// ShowTopRated opens the top-rated surface, optionally narrowed to a genre.
func (a *App) ShowTopRated(genreID string) error {
	if err := a.Gate.Require(); err != nil {
		return err
	}
	show(a.TopRated, catalog.Filters{}.With(catalog.FilterGenreID, genreID))
	return nil
}

// ShowDiscover opens the discover surface. An unknown sort order falls
// back to popularity.
func (a *App) ShowDiscover(sortBy, genreID string) error {
	if err := a.Gate.Require(); err != nil {
		return err
	}
	if !browse.ValidDiscoverSort(sortBy) {
		sortBy = browse.SortPopularity
	}
	show(a.Discover, catalog.Filters{catalog.FilterSortBy: sortBy}.With(catalog.FilterGenreID, genreID))
	return nil
}

// SelectActor picks an actor suggestion and shows their filmography.
func (a *App) SelectActor(p catalog.Person) error {
	a.ActorPicker.Select(p)

	a.mu.Lock()
	a.actor = &p
	a.mu.Unlock()

	return a.ShowFilmography("")
}

// ShowFilmography narrows the filmography of the selected actor to a genre.
func (a *App) ShowFilmography(genreID string) error {
	if err := a.Gate.Require(); err != nil {
		return err
	}
	a.mu.RLock()
	actor := a.actor
	a.mu.RUnlock()
	if actor == nil {
		return nil
	}
	show(a.Filmography, catalog.Filters{
		catalog.FilterPersonID: fmt.Sprint(actor.ID),
	}.With(catalog.FilterGenreID, genreID))
	return nil
}

// Wait blocks until background fetches and enrichments settle.
func (a *App) Wait() {
	a.Home.Wait()
	a.TopRated.Wait()
	a.Discover.Wait()
	a.Filmography.Wait()
	a.ActorFilter.Wait()
	a.ActorPicker.Wait()
	if a.WatchLater != nil {
		a.WatchLater.Wait()
	}
}

// Close detaches every component. Results still in flight are ignored.
func (a *App) Close() {
	a.Search.Close()
	a.ActorFilter.Close()
	a.ActorPicker.Close()
	a.Home.Close()
	a.TopRated.Close()
	a.Discover.Close()
	a.Filmography.Close()
}
