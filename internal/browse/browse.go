// Package browse builds the catalog feeds behind each browsing surface:
// home (popular or search), top rated, discover and actor filmography.
package browse

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/marco/recofilms/internal/catalog"
	"github.com/marco/recofilms/internal/feed"
)

// Feed names, used in logs and metrics.
const (
	FeedHome        = "home"
	FeedTopRated    = "top_rated"
	FeedDiscover    = "discover"
	FeedFilmography = "filmography"
)

// Discover sort orders.
const (
	SortPopularity  = "popularity.desc"
	SortVoteCount   = "vote_count.desc"
	SortRevenue     = "revenue.desc"
	SortVoteAverage = "vote_average.desc"
)

// Vote-count floors keep obscure titles with a handful of perfect votes out
// of the rankings.
const (
	TopRatedMinVotes = 500
	DiscoverMinVotes = 1000
)

// DiscoverSorts lists the sort orders offered by the discover surface.
var DiscoverSorts = []string{SortPopularity, SortVoteCount, SortRevenue}

// ValidDiscoverSort reports whether s is one of DiscoverSorts.
func ValidDiscoverSort(s string) bool {
	return slices.Contains(DiscoverSorts, s)
}

// MovieLister serves the home surface.
type MovieLister interface {
	SearchMovies(ctx context.Context, query string, page int) (catalog.MoviePage, error)
	GetPopularMovies(ctx context.Context, page int) (catalog.MoviePage, error)
}

// Discoverer serves the ranked surfaces.
type Discoverer interface {
	DiscoverMovies(ctx context.Context, params catalog.DiscoverParams) (catalog.MoviePage, error)
}

// FilmographySource serves the actor surface.
type FilmographySource interface {
	GetPersonMovies(ctx context.Context, personID int) ([]catalog.Movie, error)
}

// MovieFeed is a feed of catalog movies.
type MovieFeed = feed.Feed[catalog.Movie]

// MovieFeedState is a snapshot of a MovieFeed.
type MovieFeedState = feed.State[catalog.Movie]

func page(p catalog.MoviePage) feed.Page[catalog.Movie] {
	return feed.Page[catalog.Movie]{Items: p.Results, ServerPage: p.Page, TotalPages: p.TotalPages}
}

// HomeFetcher lists popular movies, or search results while the filters
// carry a query.
func HomeFetcher(c MovieLister) feed.Fetcher[catalog.Movie] {
	return func(ctx context.Context, filters catalog.Filters, n int) (feed.Page[catalog.Movie], error) {
		if q := strings.TrimSpace(filters.Get(catalog.FilterQuery)); q != "" {
			p, err := c.SearchMovies(ctx, q, n)
			if err != nil {
				return feed.Page[catalog.Movie]{}, catalog.Failed(catalog.OpSearchMovies, err)
			}
			return page(p), nil
		}

		p, err := c.GetPopularMovies(ctx, n)
		if err != nil {
			return feed.Page[catalog.Movie]{}, catalog.Failed(catalog.OpPopularMovies, err)
		}
		return page(p), nil
	}
}

// NewHome creates the home feed.
func NewHome(ctx context.Context, c MovieLister) *MovieFeed {
	return feed.New(ctx, feed.Config{Name: FeedHome, Op: catalog.OpPopularMovies}, HomeFetcher(c))
}

// discoverParams maps filters onto discover parameters. sort_by and
// min_vote_count in filters override the given defaults.
func discoverParams(filters catalog.Filters, n int, sortBy string, minVotes int) catalog.DiscoverParams {
	p := catalog.DiscoverParams{
		SortBy:       sortBy,
		GenreID:      filters.Get(catalog.FilterGenreID),
		MinVoteCount: minVotes,
		Page:         n,
	}
	if s := filters.Get(catalog.FilterSortBy); s != "" {
		p.SortBy = s
	}
	if v, err := strconv.Atoi(filters.Get(catalog.FilterMinVoteCount)); err == nil && v >= 0 {
		p.MinVoteCount = v
	}
	return p
}

// TopRatedFetcher ranks movies by average vote.
func TopRatedFetcher(c Discoverer) feed.Fetcher[catalog.Movie] {
	return func(ctx context.Context, filters catalog.Filters, n int) (feed.Page[catalog.Movie], error) {
		params := discoverParams(filters.Without(catalog.FilterSortBy), n, SortVoteAverage, TopRatedMinVotes)
		p, err := c.DiscoverMovies(ctx, params)
		if err != nil {
			return feed.Page[catalog.Movie]{}, err
		}
		return page(p), nil
	}
}

// NewTopRated creates the top-rated feed.
func NewTopRated(ctx context.Context, c Discoverer) *MovieFeed {
	return feed.New(ctx, feed.Config{Name: FeedTopRated, Op: catalog.OpDiscover}, TopRatedFetcher(c))
}

// DiscoverFetcher lists movies in the chosen sort order, popularity first
// by default.
func DiscoverFetcher(c Discoverer) feed.Fetcher[catalog.Movie] {
	return func(ctx context.Context, filters catalog.Filters, n int) (feed.Page[catalog.Movie], error) {
		p, err := c.DiscoverMovies(ctx, discoverParams(filters, n, SortPopularity, DiscoverMinVotes))
		if err != nil {
			return feed.Page[catalog.Movie]{}, err
		}
		return page(p), nil
	}
}

// NewDiscover creates the discover feed.
func NewDiscover(ctx context.Context, c Discoverer) *MovieFeed {
	return feed.New(ctx, feed.Config{Name: FeedDiscover, Op: catalog.OpDiscover}, DiscoverFetcher(c))
}

// FilmographyFetcher loads the movies of filters[person_id] in one page.
// The backend has no genre parameter here, so genre_id is applied to each
// movie's genre ids locally. Without a person the page is empty.
func FilmographyFetcher(c FilmographySource) feed.Fetcher[catalog.Movie] {
	return func(ctx context.Context, filters catalog.Filters, n int) (feed.Page[catalog.Movie], error) {
		id, err := strconv.Atoi(filters.Get(catalog.FilterPersonID))
		if err != nil || id <= 0 {
			return feed.Page[catalog.Movie]{ServerPage: 1, TotalPages: 1}, nil
		}

		movies, err := c.GetPersonMovies(ctx, id)
		if err != nil {
			return feed.Page[catalog.Movie]{}, err
		}
		return feed.Page[catalog.Movie]{
			Items:      FilterByGenreID(movies, filters.Get(catalog.FilterGenreID)),
			ServerPage: 1,
			TotalPages: 1,
		}, nil
	}
}

// NewFilmography creates the actor filmography feed.
func NewFilmography(ctx context.Context, c FilmographySource) *MovieFeed {
	return feed.New(ctx, feed.Config{Name: FeedFilmography, Op: catalog.OpPersonMovies}, FilmographyFetcher(c))
}

// FilterByGenreID keeps movies whose genre ids include genreID. An empty
// genreID keeps everything.
func FilterByGenreID(movies []catalog.Movie, genreID string) []catalog.Movie {
	if genreID == "" {
		return movies
	}
	want := catalog.GenreID(genreID)
	out := make([]catalog.Movie, 0, len(movies))
	for _, m := range movies {
		if slices.Contains(m.GenreIDs, want) {
			out = append(out, m)
		}
	}
	return out
}
