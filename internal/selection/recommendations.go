package selection

import (
	"sync"

	"github.com/marco/recofilms/internal/catalog"
)

// Result is the snapshot of the last recommendation request.
type Result struct {
	Movies     []catalog.Movie
	Request    *catalog.RecommendationRequest
	Loading    bool
	Err        error
	Generation uint64
}

// Recommendations holds the one-shot recommendation result. A successful
// response replaces the previous result; it is never merged. Responses to a
// request that was superseded or cleared are dropped.
type Recommendations struct {
	mu         sync.RWMutex
	movies     []catalog.Movie
	request    *catalog.RecommendationRequest
	loading    bool
	err        error
	generation uint64
}

// Begin marks a request as in flight and returns its generation.
func (r *Recommendations) Begin(req catalog.RecommendationRequest) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	r.loading = true
	r.request = &req
	return r.generation
}

// Apply records the outcome of the request started at gen. It reports
// whether the outcome was applied. On error the previous movies are kept.
func (r *Recommendations) Apply(gen uint64, movies []catalog.Movie, err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation {
		return false
	}
	r.loading = false
	if err != nil {
		r.err = catalog.Failed(catalog.OpRecommend, err)
		return true
	}
	r.err = nil
	r.movies = append([]catalog.Movie(nil), movies...)
	return true
}

// Clear drops the result and fences any request in flight.
func (r *Recommendations) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	r.movies = nil
	r.request = nil
	r.loading = false
	r.err = nil
}

// Snapshot returns the current result.
func (r *Recommendations) Snapshot() Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Result{
		Movies:     append([]catalog.Movie(nil), r.movies...),
		Request:    r.request,
		Loading:    r.loading,
		Err:        r.err,
		Generation: r.generation,
	}
}
