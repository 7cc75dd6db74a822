package catalog

import (
	"context"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/marco/recofilms/internal/logging"
	"github.com/marco/recofilms/internal/metrics"
)

const genresKey = "genres"

// CacheConfig sizes the client-side caches.
type CacheConfig struct {
	DetailsSize int
	DetailsTTL  time.Duration
	GenresTTL   time.Duration
}

type detailsItem struct {
	movie     Movie
	expiresAt time.Time
}

// Cached wraps a Catalog with client-side caches for movie details and the
// genre list. Concurrent detail fetches for the same id share one request.
// Every other operation goes straight to the wrapped Catalog.
type Cached struct {
	Catalog

	details    *lru.Cache[int, detailsItem]
	detailsTTL time.Duration
	genres     *gocache.Cache
	genresTTL  time.Duration
	group      singleflight.Group
}

// NewCached creates the caching decorator.
func NewCached(upstream Catalog, cfg CacheConfig) *Cached {
	if cfg.DetailsSize <= 0 {
		cfg.DetailsSize = 512
	}
	if cfg.DetailsTTL <= 0 {
		cfg.DetailsTTL = time.Hour
	}
	if cfg.GenresTTL <= 0 {
		cfg.GenresTTL = 24 * time.Hour
	}

	// lru.New only fails on a non-positive size.
	details, _ := lru.New[int, detailsItem](cfg.DetailsSize)

	return &Cached{
		Catalog:    upstream,
		details:    details,
		detailsTTL: cfg.DetailsTTL,
		genres:     gocache.New(cfg.GenresTTL, 2*cfg.GenresTTL),
		genresTTL:  cfg.GenresTTL,
	}
}

// GetMovieDetails returns cached details when fresh, otherwise fetches them once
// for all concurrent callers.
func (c *Cached) GetMovieDetails(ctx context.Context, id int) (Movie, error) {
	if item, ok := c.details.Get(id); ok {
		if time.Now().Before(item.expiresAt) {
			metrics.CacheLookups.WithLabelValues("details", "hit").Inc()
			return item.movie, nil
		}
		c.details.Remove(id)
	}
	metrics.CacheLookups.WithLabelValues("details", "miss").Inc()

	v, err, shared := c.group.Do(strconv.Itoa(id), func() (any, error) {
		movie, err := c.Catalog.GetMovieDetails(ctx, id)
		if err != nil {
			return Movie{}, err
		}
		c.details.Add(id, detailsItem{movie: movie, expiresAt: time.Now().Add(c.detailsTTL)})
		return movie, nil
	})
	if shared {
		logging.Debug().Int("movie_id", id).Msg("Shared in-flight details request")
	}
	if err != nil {
		return Movie{}, err
	}
	return v.(Movie), nil
}

// GetGenres returns the cached genre list when present.
func (c *Cached) GetGenres(ctx context.Context) ([]Genre, error) {
	if v, ok := c.genres.Get(genresKey); ok {
		metrics.CacheLookups.WithLabelValues("genres", "hit").Inc()
		return v.([]Genre), nil
	}
	metrics.CacheLookups.WithLabelValues("genres", "miss").Inc()

	genres, err := c.Catalog.GetGenres(ctx)
	if err != nil {
		return nil, err
	}
	// The backend answers [] when its own upstream failed.
	if len(genres) > 0 {
		c.genres.Set(genresKey, genres, c.genresTTL)
	}
	return genres, nil
}

// Purge drops every cached entry.
func (c *Cached) Purge() {
	c.details.Purge()
	c.genres.Flush()
}
