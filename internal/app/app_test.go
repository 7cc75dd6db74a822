package app

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marco/recofilms/internal/autocomplete"
	"github.com/marco/recofilms/internal/catalog"
	"github.com/marco/recofilms/internal/debounce"
	"github.com/marco/recofilms/internal/gate"
	"github.com/marco/recofilms/internal/selection"
	"github.com/marco/recofilms/internal/storage"
	"github.com/marco/recofilms/internal/watchlater"
)

type fakeCatalog struct {
	mu          sync.Mutex
	status      catalog.Status
	statusErr   error
	popular     int
	searches    []string
	recommended []catalog.RecommendationRequest
	recoErr     error
	discover    []catalog.DiscoverParams
	persons     []int
}

func (f *fakeCatalog) SearchMovies(ctx context.Context, query string, page int) (catalog.MoviePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, query)
	return catalog.MoviePage{Results: []catalog.Movie{{ID: 27205, Title: "Inception"}}}, nil
}

func (f *fakeCatalog) SearchPerson(ctx context.Context, query string) ([]catalog.Person, error) {
	return []catalog.Person{{ID: 6193, Name: "Leonardo DiCaprio", KnownForDepartment: "Acting"}}, nil
}

func (f *fakeCatalog) GetMovieDetails(ctx context.Context, id int) (catalog.Movie, error) {
	return catalog.Movie{ID: id, Title: "Details", Runtime: catalog.IntPtr(120), Cast: []string{"A"}}, nil
}

func (f *fakeCatalog) GetPopularMovies(ctx context.Context, page int) (catalog.MoviePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.popular++
	return catalog.MoviePage{Results: []catalog.Movie{{ID: 550, Title: "Fight Club"}, {ID: 603, Title: "The Matrix"}}}, nil
}

func (f *fakeCatalog) GetRecommendations(ctx context.Context, req catalog.RecommendationRequest) ([]catalog.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recommended = append(f.recommended, req)
	if f.recoErr != nil {
		return nil, f.recoErr
	}
	return []catalog.Movie{{ID: 157336, Title: "Interstellar", Score: 0.92}}, nil
}

func (f *fakeCatalog) GetStatus(ctx context.Context) (catalog.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, f.statusErr
}

func (f *fakeCatalog) GetGenres(ctx context.Context) ([]catalog.Genre, error) {
	return []catalog.Genre{{ID: "28", Name: "Action"}, {ID: "v_romcom", Name: "Comédie romantique"}}, nil
}

func (f *fakeCatalog) DiscoverMovies(ctx context.Context, p catalog.DiscoverParams) (catalog.MoviePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discover = append(f.discover, p)
	return catalog.MoviePage{Results: []catalog.Movie{{ID: 238}}, Page: p.Page, TotalPages: 2}, nil
}

func (f *fakeCatalog) GetPersonMovies(ctx context.Context, personID int) ([]catalog.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.persons = append(f.persons, personID)
	return []catalog.Movie{{ID: 27205, GenreIDs: []catalog.GenreID{"28"}}, {ID: 1}}, nil
}

func (f *fakeCatalog) InitializeSystem(ctx context.Context, numMovies int) (catalog.InitResult, error) {
	return catalog.InitResult{}, nil
}

func (f *fakeCatalog) popularCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.popular
}

var readyStatus = catalog.Status{EmbeddingsReady: true, IndexReady: true, TotalMovies: 5000}

func newTestApp(t *testing.T, c *fakeCatalog) (*App, *debounce.ManualClock) {
	t.Helper()
	wl, err := watchlater.Open(context.Background(), storage.NewSlot(storage.NewMemory(), watchlater.SlotKey), c)
	require.NoError(t, err)

	clock := debounce.NewManualClock(time.Unix(0, 0))
	a := New(context.Background(), c, wl, Options{Clock: clock})
	t.Cleanup(func() {
		a.Close()
		a.Wait()
	})
	return a, clock
}

func TestApp_StartReady(t *testing.T) {
	c := &fakeCatalog{status: readyStatus}
	a, _ := newTestApp(t, c)

	require.NoError(t, a.Start(context.Background()))
	a.Wait()

	assert.Equal(t, gate.Ready, a.Gate.State().Kind)
	assert.Len(t, a.Home.State().Items, 2)
	assert.Len(t, a.Genres(), 2)
}

func TestApp_StartNotReadyBlocksBrowsing(t *testing.T) {
	c := &fakeCatalog{status: catalog.Status{EmbeddingsReady: false, IndexReady: true}}
	a, _ := newTestApp(t, c)

	err := a.Start(context.Background())
	require.ErrorIs(t, err, gate.ErrNotReady)
	a.Wait()

	assert.Zero(t, c.popularCalls(), "no popular fetch before the backend is ready")
	assert.Empty(t, a.Home.State().Items)
	assert.ErrorIs(t, a.ShowTopRated(""), gate.ErrNotReady)
}

func TestApp_StartUnreachable(t *testing.T) {
	c := &fakeCatalog{statusErr: &catalog.NetworkFailure{
		Op:    catalog.OpStatus,
		Cause: &url.Error{Op: "Get", URL: "http://localhost:8000/api/status", Err: errors.New("connection refused")},
	}}
	a, _ := newTestApp(t, c)

	assert.ErrorIs(t, a.Start(context.Background()), gate.ErrUnreachable)
	assert.Zero(t, c.popularCalls())
}

func TestApp_RecheckLoadsHome(t *testing.T) {
	c := &fakeCatalog{status: catalog.Status{}}
	a, _ := newTestApp(t, c)
	require.Error(t, a.Start(context.Background()))

	c.mu.Lock()
	c.status = readyStatus
	c.mu.Unlock()

	require.NoError(t, a.Recheck(context.Background()))
	a.Wait()
	assert.Equal(t, 1, c.popularCalls())
	assert.Len(t, a.Home.State().Items, 2)
}

func TestApp_Recommend(t *testing.T) {
	c := &fakeCatalog{status: readyStatus}
	a, _ := newTestApp(t, c)
	require.NoError(t, a.Start(context.Background()))

	assert.ErrorIs(t, a.Recommend(context.Background()), selection.ErrEmptySelection)
	assert.Empty(t, c.recommended, "empty selection never reaches the backend")

	a.Selection.Toggle(catalog.Movie{ID: 27205})
	a.Selection.Toggle(catalog.Movie{ID: 603})
	a.Selection.SetRating(603, 9)
	a.SetFilter(catalog.FilterGenre, "Science-Fiction")

	require.NoError(t, a.Recommend(context.Background()))

	require.Len(t, c.recommended, 1)
	req := c.recommended[0]
	assert.Equal(t, []catalog.RatedMovie{{MovieID: 27205, Rating: 5}, {MovieID: 603, Rating: 9}}, req.LikedMovies)
	assert.Equal(t, 20, req.TopK)
	assert.Equal(t, catalog.Filters{catalog.FilterGenre: "Science-Fiction"}, req.Filters)

	snap := a.Recommendations.Snapshot()
	require.Len(t, snap.Movies, 1)
	assert.Equal(t, 157336, snap.Movies[0].ID)
}

func TestApp_RecommendFailure(t *testing.T) {
	c := &fakeCatalog{status: readyStatus, recoErr: errors.New("502")}
	a, _ := newTestApp(t, c)
	require.NoError(t, a.Start(context.Background()))

	a.Selection.Toggle(catalog.Movie{ID: 1})
	err := a.Recommend(context.Background())

	var of *catalog.OperationFailed
	require.ErrorAs(t, err, &of)
	assert.Equal(t, catalog.OpRecommend, of.Op)
	assert.Len(t, a.Selection.Movies(), 1, "selection is untouched")
}

func TestApp_SearchSwitchesHome(t *testing.T) {
	c := &fakeCatalog{status: readyStatus}
	a, clock := newTestApp(t, c)
	require.NoError(t, a.Start(context.Background()))
	a.Wait()

	a.Search.Input("Inception")
	clock.Advance(500 * time.Millisecond)
	a.Wait()
	assert.Equal(t, []string{"Inception"}, c.searches)
	assert.Equal(t, 27205, a.Home.State().Items[0].ID)

	a.Search.Clear()
	a.Wait()
	assert.Equal(t, 2, c.popularCalls())
}

func TestApp_FilterActorAutocomplete(t *testing.T) {
	c := &fakeCatalog{status: readyStatus}
	a, clock := newTestApp(t, c)

	a.InputFilterActor("Leo")
	clock.Advance(300 * time.Millisecond)
	a.Wait()

	sugg := a.ActorFilter.Snapshot().Suggestions
	require.Len(t, sugg, 1)
	a.SelectFilterActor(sugg[0])
	assert.Equal(t, "Leonardo DiCaprio", a.Filters()[catalog.FilterActor])

	a.InputFilterActor("")
	assert.NotContains(t, a.Filters(), catalog.FilterActor)
}

func TestApp_ActorPickerChanged(t *testing.T) {
	c := &fakeCatalog{status: readyStatus}
	wl, err := watchlater.Open(context.Background(), storage.NewSlot(storage.NewMemory(), watchlater.SlotKey), c)
	require.NoError(t, err)

	changes := make(chan autocomplete.State, 8)
	clock := debounce.NewManualClock(time.Unix(0, 0))
	a := New(context.Background(), c, wl, Options{
		Clock:              clock,
		ActorPickerChanged: func(st autocomplete.State) { changes <- st },
	})
	t.Cleanup(func() {
		a.Close()
		a.Wait()
	})

	a.ActorPicker.Input("Leo")
	clock.Advance(300 * time.Millisecond)

	st := <-changes
	assert.True(t, st.Loading)
	st = <-changes
	assert.False(t, st.Loading)
	require.Len(t, st.Suggestions, 1)
	assert.Equal(t, "Leonardo DiCaprio", st.Suggestions[0].Name)
	assert.Empty(t, a.ActorFilter.Snapshot().Suggestions)
}

func TestApp_Filmography(t *testing.T) {
	c := &fakeCatalog{status: readyStatus}
	a, _ := newTestApp(t, c)
	require.NoError(t, a.Start(context.Background()))

	require.NoError(t, a.SelectActor(catalog.Person{ID: 6193, Name: "Leonardo DiCaprio"}))
	a.Wait()
	assert.Len(t, a.Filmography.State().Items, 2)

	require.NoError(t, a.ShowFilmography("28"))
	a.Wait()
	assert.Len(t, a.Filmography.State().Items, 1)
	assert.Equal(t, []int{6193, 6193}, c.persons)
}

func TestApp_DiscoverUnknownSortFallsBack(t *testing.T) {
	c := &fakeCatalog{status: readyStatus}
	a, _ := newTestApp(t, c)
	require.NoError(t, a.Start(context.Background()))

	require.NoError(t, a.ShowDiscover("title.asc", "28"))
	a.Wait()

	require.Len(t, c.discover, 1)
	assert.Equal(t, "popularity.desc", c.discover[0].SortBy)
	assert.Equal(t, "28", c.discover[0].GenreID)
}

func TestApp_WatchLaterAndClear(t *testing.T) {
	c := &fakeCatalog{status: readyStatus}
	a, _ := newTestApp(t, c)

	added, err := a.ToggleWatchLater(catalog.Movie{ID: 603, Title: "The Matrix"})
	require.NoError(t, err)
	assert.True(t, added)
	a.Wait()
	assert.Equal(t, 120, a.WatchLater.Movies()[0].RuntimeMinutes())

	a.Selection.Toggle(catalog.Movie{ID: 1})
	a.ClearSelection()
	assert.Zero(t, a.Selection.Len())
	assert.Empty(t, a.Recommendations.Snapshot().Movies)
}
