package browse

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marco/recofilms/internal/catalog"
)

type stubCatalog struct {
	mu       sync.Mutex
	discover []catalog.DiscoverParams
	searches []string
	popular  []int
	persons  []int
	err      error
	person   []catalog.Movie
}

func (s *stubCatalog) SearchMovies(ctx context.Context, query string, page int) (catalog.MoviePage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches = append(s.searches, query)
	if s.err != nil {
		return catalog.MoviePage{}, s.err
	}
	return catalog.MoviePage{Results: []catalog.Movie{{ID: 27205, Title: "Inception"}}}, nil
}

func (s *stubCatalog) GetPopularMovies(ctx context.Context, page int) (catalog.MoviePage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.popular = append(s.popular, page)
	if s.err != nil {
		return catalog.MoviePage{}, s.err
	}
	return catalog.MoviePage{Results: []catalog.Movie{{ID: 1}, {ID: 2}}}, nil
}

func (s *stubCatalog) DiscoverMovies(ctx context.Context, p catalog.DiscoverParams) (catalog.MoviePage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discover = append(s.discover, p)
	if s.err != nil {
		return catalog.MoviePage{}, s.err
	}
	return catalog.MoviePage{
		Results:    []catalog.Movie{{ID: p.Page * 10}, {ID: p.Page*10 + 1}},
		Page:       p.Page,
		TotalPages: 3,
	}, nil
}

func (s *stubCatalog) GetPersonMovies(ctx context.Context, id int) ([]catalog.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persons = append(s.persons, id)
	if s.err != nil {
		return nil, s.err
	}
	return s.person, nil
}

func ids(movies []catalog.Movie) []int {
	out := make([]int, 0, len(movies))
	for _, m := range movies {
		out = append(out, m.ID)
	}
	return out
}

func TestTopRated_Params(t *testing.T) {
	c := &stubCatalog{}
	f := NewTopRated(context.Background(), c)
	defer f.Close()

	f.Load(catalog.Filters{catalog.FilterGenreID: "28", catalog.FilterSortBy: SortRevenue})
	f.Wait()
	require.True(t, f.RequestMore())
	f.Wait()

	want := []catalog.DiscoverParams{
		{SortBy: SortVoteAverage, GenreID: "28", MinVoteCount: TopRatedMinVotes, Page: 1},
		{SortBy: SortVoteAverage, GenreID: "28", MinVoteCount: TopRatedMinVotes, Page: 2},
	}
	if diff := cmp.Diff(want, c.discover); diff != "" {
		t.Errorf("discover params mismatch (-want +got):\n%s", diff)
	}

	st := f.State()
	assert.Equal(t, []int{10, 11, 20, 21}, ids(st.Items))
	assert.True(t, st.HasMore)
}

func TestDiscover_SortDefaultsAndOverrides(t *testing.T) {
	tests := []struct {
		name    string
		filters catalog.Filters
		want    catalog.DiscoverParams
	}{
		{
			name:    "defaults",
			filters: nil,
			want:    catalog.DiscoverParams{SortBy: SortPopularity, MinVoteCount: DiscoverMinVotes, Page: 1},
		},
		{
			name:    "sort and genre",
			filters: catalog.Filters{catalog.FilterSortBy: SortRevenue, catalog.FilterGenreID: "v_romcom"},
			want:    catalog.DiscoverParams{SortBy: SortRevenue, GenreID: "v_romcom", MinVoteCount: DiscoverMinVotes, Page: 1},
		},
		{
			name:    "vote floor override",
			filters: catalog.Filters{catalog.FilterMinVoteCount: "50"},
			want:    catalog.DiscoverParams{SortBy: SortPopularity, MinVoteCount: 50, Page: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &stubCatalog{}
			_, err := DiscoverFetcher(c)(context.Background(), tt.filters, 1)
			require.NoError(t, err)
			require.Len(t, c.discover, 1)
			assert.Equal(t, tt.want, c.discover[0])
		})
	}
}

func TestValidDiscoverSort(t *testing.T) {
	assert.True(t, ValidDiscoverSort(SortVoteCount))
	assert.False(t, ValidDiscoverSort(SortVoteAverage))
	assert.False(t, ValidDiscoverSort(""))
}

func TestHome_PopularOrSearch(t *testing.T) {
	c := &stubCatalog{}
	f := NewHome(context.Background(), c)
	defer f.Close()

	f.Load(nil)
	f.Wait()
	assert.Equal(t, []int{1, 2}, ids(f.State().Items))
	assert.False(t, f.State().HasMore, "home shows a single page")

	require.True(t, f.Reset(catalog.Filters{catalog.FilterQuery: "Inception"}))
	f.Wait()
	assert.Equal(t, []int{27205}, ids(f.State().Items))
	assert.Equal(t, []string{"Inception"}, c.searches)

	require.True(t, f.Reset(nil))
	f.Wait()
	assert.Equal(t, []int{1, 2}, ids(f.State().Items))
	assert.Equal(t, []int{1, 1}, c.popular)
}

func TestHome_ErrorNamesOperation(t *testing.T) {
	c := &stubCatalog{err: errors.New("boom")}
	f := NewHome(context.Background(), c)
	defer f.Close()

	f.Load(catalog.Filters{catalog.FilterQuery: "x"})
	f.Wait()

	var of *catalog.OperationFailed
	require.ErrorAs(t, f.State().Err, &of)
	assert.Equal(t, catalog.OpSearchMovies, of.Op)
}

func TestFilmography_GenreFilterIsLocal(t *testing.T) {
	c := &stubCatalog{person: []catalog.Movie{
		{ID: 1, GenreIDs: []catalog.GenreID{"28", "878"}},
		{ID: 2, GenreIDs: []catalog.GenreID{"18"}},
		{ID: 3},
		{ID: 4, GenreIDs: []catalog.GenreID{"28"}},
	}}
	f := NewFilmography(context.Background(), c)
	defer f.Close()

	f.Load(catalog.Filters{catalog.FilterPersonID: "6193"})
	f.Wait()
	assert.Equal(t, []int{1, 2, 3, 4}, ids(f.State().Items))
	assert.False(t, f.State().HasMore)

	f.Reset(catalog.Filters{catalog.FilterPersonID: "6193", catalog.FilterGenreID: "28"})
	f.Wait()
	assert.Equal(t, []int{1, 4}, ids(f.State().Items))
	assert.Equal(t, []int{6193, 6193}, c.persons)
}

func TestFilmography_NoPerson(t *testing.T) {
	c := &stubCatalog{}
	f := NewFilmography(context.Background(), c)
	defer f.Close()

	f.Load(nil)
	f.Wait()
	assert.Empty(t, f.State().Items)
	assert.Empty(t, c.persons)
}

func TestFilterByGenreID(t *testing.T) {
	movies := []catalog.Movie{{ID: 1, GenreIDs: []catalog.GenreID{"35"}}, {ID: 2}}
	assert.Len(t, FilterByGenreID(movies, ""), 2)
	assert.Equal(t, []int{1}, ids(FilterByGenreID(movies, "35")))
	assert.Empty(t, FilterByGenreID(movies, "v_romcom"))
}
