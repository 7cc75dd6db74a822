// Package catalog is the typed request/response boundary to the
// recommendation backend.
package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/marco/recofilms/internal/logging"
	"github.com/marco/recofilms/internal/metrics"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:8000/api"

// Catalog is the full set of backend operations. *Client and *Cached
// implement it.
type Catalog interface {
	SearchMovies(ctx context.Context, query string, page int) (MoviePage, error)
	SearchPerson(ctx context.Context, query string) ([]Person, error)
	GetMovieDetails(ctx context.Context, id int) (Movie, error)
	GetPopularMovies(ctx context.Context, page int) (MoviePage, error)
	GetRecommendations(ctx context.Context, req RecommendationRequest) ([]Movie, error)
	GetStatus(ctx context.Context) (Status, error)
	GetGenres(ctx context.Context) ([]Genre, error)
	DiscoverMovies(ctx context.Context, params DiscoverParams) (MoviePage, error)
	GetPersonMovies(ctx context.Context, personID int) ([]Movie, error)
	InitializeSystem(ctx context.Context, numMovies int) (InitResult, error)
}

// Client talks to the backend over HTTP. It never retries: a failed call
// returns a *NetworkFailure and the caller decides what to do.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

// ClientConfig holds configuration for the backend client.
type ClientConfig struct {
	BaseURL          string
	Timeout          time.Duration
	RateLimitDelayMs int
	CircuitBreaker   bool

	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient *http.Client
}

// NewClient creates a client for baseURL with default settings.
func NewClient(baseURL string) *Client {
	return NewClientWithConfig(ClientConfig{BaseURL: baseURL})
}

// NewClientWithConfig creates a backend client with full configuration.
func NewClientWithConfig(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}
	if cfg.RateLimitDelayMs > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Duration(cfg.RateLimitDelayMs)*time.Millisecond), 1)
	}
	if cfg.CircuitBreaker {
		c.breaker = newBreaker("recofilms-api")
	}
	return c
}

func newBreaker(name string) *gobreaker.CircuitBreaker[[]byte] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Only transport failures and 5xx answers count against the backend.
		IsSuccessful: func(err error) bool {
			var nf *NetworkFailure
			if errors.As(err, &nf) && nf.StatusCode > 0 && nf.StatusCode < 500 {
				return true
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
}

// do executes one request and returns the response body of a 200 answer.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body any) ([]byte, error) {
	if c.breaker == nil {
		return c.roundTrip(ctx, op, method, path, query, body)
	}
	data, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, op, method, path, query, body)
	})
	if err != nil {
		var nf *NetworkFailure
		if !errors.As(err, &nf) {
			// Rejected by the breaker without a request.
			metrics.CatalogRequests.WithLabelValues(op, "unreachable").Inc()
			return nil, &NetworkFailure{Op: op, Cause: err}
		}
		return nil, err
	}
	return data, nil
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, query url.Values, body any) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &NetworkFailure{Op: op, Cause: err}
		}
	}

	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &NetworkFailure{Op: op, Cause: fmt.Errorf("failed to encode request: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return nil, &NetworkFailure{Op: op, Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveCatalog(op, "unreachable", start)
		return nil, &NetworkFailure{Op: op, Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveCatalog(op, "unreachable", start)
		return nil, &NetworkFailure{Op: op, Cause: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		metrics.ObserveCatalog(op, "http_error", start)
		cause := fmt.Errorf("backend error: %s", strings.TrimSpace(string(data)))
		if resp.StatusCode == http.StatusNotFound && op == OpMovieDetails {
			cause = ErrMovieNotFound
		}
		return nil, &NetworkFailure{Op: op, StatusCode: resp.StatusCode, Cause: cause}
	}

	metrics.ObserveCatalog(op, "success", start)
	return data, nil
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) error {
	data, err := c.do(ctx, op, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return decode(op, data, out)
}

func decode(op string, data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return &NetworkFailure{Op: op, Cause: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

// SearchMovies searches movies by title.
func (c *Client) SearchMovies(ctx context.Context, query string, page int) (MoviePage, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(max(page, 1)))

	var result MoviePage
	err := c.get(ctx, OpSearchMovies, "/search", params, &result)
	return result, err
}

// SearchPerson searches people by name.
func (c *Client) SearchPerson(ctx context.Context, query string) ([]Person, error) {
	params := url.Values{}
	params.Set("query", query)

	var people []Person
	err := c.get(ctx, OpSearchPerson, "/search/person", params, &people)
	return people, err
}

// GetMovieDetails fetches a movie with cast, director and overview.
func (c *Client) GetMovieDetails(ctx context.Context, id int) (Movie, error) {
	var movie Movie
	err := c.get(ctx, OpMovieDetails, "/movie/"+strconv.Itoa(id), nil, &movie)
	return movie, err
}

// GetPopularMovies fetches one page of popular movies.
func (c *Client) GetPopularMovies(ctx context.Context, page int) (MoviePage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(max(page, 1)))

	var result MoviePage
	err := c.get(ctx, OpPopularMovies, "/popular", params, &result)
	return result, err
}

// GetRecommendations posts the liked movies and returns the ranked result.
// Items are normalized so that Movie.ID carries the backend's movie_id.
func (c *Client) GetRecommendations(ctx context.Context, req RecommendationRequest) ([]Movie, error) {
	data, err := c.do(ctx, OpRecommend, http.MethodPost, "/recommend", nil, req)
	if err != nil {
		return nil, err
	}

	var resp recommendationResponse
	if err := decode(OpRecommend, data, &resp); err != nil {
		return nil, err
	}

	movies := make([]Movie, 0, len(resp.Recommendations))
	for _, item := range resp.Recommendations {
		movies = append(movies, item.movie())
	}
	return movies, nil
}

// GetStatus fetches the backend readiness snapshot.
func (c *Client) GetStatus(ctx context.Context) (Status, error) {
	var status Status
	err := c.get(ctx, OpStatus, "/status", nil, &status)
	return status, err
}

// GetGenres fetches the genre list, including virtual sub-genres.
func (c *Client) GetGenres(ctx context.Context) ([]Genre, error) {
	var genres []Genre
	err := c.get(ctx, OpGenres, "/genres", nil, &genres)
	return genres, err
}

// DiscoverMovies fetches one page of the discover listing.
func (c *Client) DiscoverMovies(ctx context.Context, p DiscoverParams) (MoviePage, error) {
	params := url.Values{}
	if p.SortBy != "" {
		params.Set("sort_by", p.SortBy)
	}
	if p.MinVoteCount > 0 {
		params.Set("min_vote_count", strconv.Itoa(p.MinVoteCount))
	}
	if p.GenreID != "" {
		params.Set("genre_id", p.GenreID)
	}
	params.Set("page", strconv.Itoa(max(p.Page, 1)))

	var result MoviePage
	err := c.get(ctx, OpDiscover, "/discover", params, &result)
	return result, err
}

// GetPersonMovies fetches the filmography of a person, sorted by rating.
func (c *Client) GetPersonMovies(ctx context.Context, personID int) ([]Movie, error) {
	var movies []Movie
	err := c.get(ctx, OpPersonMovies, "/person/"+strconv.Itoa(personID)+"/movies", nil, &movies)
	return movies, err
}

// InitializeSystem asks the backend to build its index from numMovies
// popular movies. This is a long-running call.
func (c *Client) InitializeSystem(ctx context.Context, numMovies int) (InitResult, error) {
	params := url.Values{}
	params.Set("num_movies", strconv.Itoa(numMovies))

	data, err := c.do(ctx, OpInitializeSystem, http.MethodPost, "/initialize", params, nil)
	if err != nil {
		return InitResult{}, err
	}
	var result InitResult
	err = decode(OpInitializeSystem, data, &result)
	return result, err
}
