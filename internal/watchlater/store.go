// Package watchlater is the persisted "watch later" list.
//
// The list lives in one storage slot as a JSON array of movies. It is read
// once when the store opens and rewritten in full after every change.
package watchlater

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/marco/recofilms/internal/catalog"
	"github.com/marco/recofilms/internal/logging"
	"github.com/marco/recofilms/internal/metrics"
	"github.com/marco/recofilms/internal/retry"
)

// Backfill retries transient failures, toggles never do.
const backfillAttempts = 3

var backfillBackoff = 500 * time.Millisecond

// SlotKey is the default storage key of the list.
const SlotKey = "watchLater"

// DefaultMaxRuntime is the runtime bound used when a filter sets none.
const DefaultMaxRuntime = 240

// Slot is the durable record holding the list.
type Slot interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// DetailsFetcher fetches full movie details for enrichment.
type DetailsFetcher interface {
	GetMovieDetails(ctx context.Context, id int) (catalog.Movie, error)
}

// Store is the watch-later set, keyed by movie id and kept in insertion
// order. All methods are safe for concurrent use.
type Store struct {
	ctx     context.Context
	slot    Slot
	details DetailsFetcher
	claims  *claimGuard

	mu       sync.Mutex
	movies   []catalog.Movie
	index    map[int]int
	writeSeq uint64

	// saveMu orders slot writes; savedSeq is the last snapshot written.
	saveMu   sync.Mutex
	savedSeq uint64

	wg sync.WaitGroup
}

// Open loads the list from slot. A record that does not parse is logged and
// treated as an empty list. Enrichment fetches run with ctx.
func Open(ctx context.Context, slot Slot, details DetailsFetcher) (*Store, error) {
	s := &Store{
		ctx:     ctx,
		slot:    slot,
		details: details,
		claims:  newClaimGuard(),
		index:   make(map[int]int),
	}

	data, err := slot.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open watch later: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}

	var movies []catalog.Movie
	if err := json.Unmarshal(data, &movies); err != nil {
		logging.Warn().Err(err).Msg("Watch later record is unreadable, starting empty")
		return s, nil
	}
	for _, m := range movies {
		if _, dup := s.index[m.ID]; dup {
			continue
		}
		s.index[m.ID] = len(s.movies)
		s.movies = append(s.movies, m)
	}
	metrics.WatchLaterEntries.Set(float64(len(s.movies)))
	return s, nil
}

// Toggle adds movie when absent and removes it when present. It returns
// true if the movie is now in the list. An added movie that lacks runtime
// or cast is enriched in the background.
//
// The in-memory change stands even when saving fails; the error reports
// the failed write.
func (s *Store) Toggle(movie catalog.Movie) (bool, error) {
	s.mu.Lock()
	if _, ok := s.index[movie.ID]; ok {
		s.removeLocked(movie.ID)
		w := s.snapshotLocked()
		s.mu.Unlock()
		return false, s.persist(w)
	}

	s.index[movie.ID] = len(s.movies)
	s.movies = append(s.movies, movie)
	w := s.snapshotLocked()
	s.mu.Unlock()

	if movie.NeedsDetails() && s.details != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.enrich(s.ctx, movie.ID)
		}()
	}
	return true, s.persist(w)
}

// Remove deletes id. It returns false if id was not in the list.
func (s *Store) Remove(id int) (bool, error) {
	s.mu.Lock()
	if _, ok := s.index[id]; !ok {
		s.mu.Unlock()
		return false, nil
	}
	s.removeLocked(id)
	w := s.snapshotLocked()
	s.mu.Unlock()
	return true, s.persist(w)
}

func (s *Store) removeLocked(id int) {
	i := s.index[id]
	s.movies = slices.Delete(s.movies, i, i+1)
	delete(s.index, id)
	for j := i; j < len(s.movies); j++ {
		s.index[s.movies[j].ID] = j
	}
}

// pendingWrite is an encoded list waiting to be saved.
type pendingWrite struct {
	seq  uint64
	data []byte
	err  error
}

// snapshotLocked encodes the whole list and numbers the write. Caller
// holds mu, so sequence numbers follow mutation order.
func (s *Store) snapshotLocked() pendingWrite {
	metrics.WatchLaterEntries.Set(float64(len(s.movies)))

	s.writeSeq++
	list := s.movies
	if list == nil {
		list = []catalog.Movie{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return pendingWrite{seq: s.writeSeq, err: fmt.Errorf("failed to encode watch later: %w", err)}
	}
	return pendingWrite{seq: s.writeSeq, data: data}
}

// persist saves w unless a later snapshot was saved already. Only saveMu
// is held during the write, so readers never wait on storage.
func (s *Store) persist(w pendingWrite) error {
	if w.err != nil {
		return w.err
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if w.seq <= s.savedSeq {
		return nil
	}
	if err := s.slot.Save(s.ctx, w.data); err != nil {
		logging.Error().Err(err).Msg("Failed to save watch later")
		return err
	}
	s.savedSeq = w.seq
	return nil
}

// enrich fetches details for id and merges them into the current record,
// but only if id is still in the list. Failures are logged and dropped.
// When the entry is added again while a fetch runs, the holder of the
// claim fetches once more if the entry is still partial.
func (s *Store) enrich(ctx context.Context, id int) (enriched bool, err error) {
	if !s.claims.TryClaim(id) {
		return false, nil
	}

	again := true
	for again {
		enriched, err = s.enrichOnce(ctx, id)
		again = false
		for s.claims.Release(id) {
			if s.needsDetails(id) {
				again = true
				break
			}
		}
	}
	return enriched, err
}

func (s *Store) enrichOnce(ctx context.Context, id int) (bool, error) {
	details, err := s.details.GetMovieDetails(ctx, id)
	if err != nil {
		metrics.EnrichmentFailures.Inc()
		logging.Warn().Err(err).Int("movie_id", id).Msg("Watch later enrichment failed")
		return false, err
	}

	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		logging.Debug().Int("movie_id", id).Msg("Dropped enrichment for removed movie")
		return false, nil
	}
	s.movies[i].Enrich(details)
	w := s.snapshotLocked()
	s.mu.Unlock()

	if err := s.persist(w); err != nil {
		return true, err
	}
	logging.Debug().Int("movie_id", id).Msg("Watch later entry enriched")
	return true, nil
}

// needsDetails reports whether id is in the list and still partial.
func (s *Store) needsDetails(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	return ok && s.movies[i].NeedsDetails()
}

// Backfill enriches every entry still missing runtime or cast, using up to
// workers concurrent fetches. Transient failures are retried; the rest are
// reported in the results and never abort the run.
func (s *Store) Backfill(ctx context.Context, workers int) []EnrichResult {
	s.mu.Lock()
	var ids []int
	for _, m := range s.movies {
		if m.NeedsDetails() {
			ids = append(ids, m.ID)
		}
	}
	s.mu.Unlock()

	if len(ids) == 0 || s.details == nil {
		return nil
	}

	fetch := func(ctx context.Context, id int) (bool, error) {
		var enriched bool
		err := retry.Retry(ctx, func() error {
			var err error
			enriched, err = s.enrich(ctx, id)
			return err
		}, backfillAttempts, backfillBackoff)
		return enriched, err
	}

	var processed int64
	results := enrichConcurrently(ctx, ids, fetch, workers, &processed)
	logging.Info().Int("entries", len(ids)).Int64("processed", processed).Msg("Watch later backfill finished")
	return results
}

// Wait blocks until background enrichments have finished.
func (s *Store) Wait() {
	s.wg.Wait()
}

// Contains reports whether id is in the list.
func (s *Store) Contains(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[id]
	return ok
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.movies)
}

// Movies returns the entries in insertion order.
func (s *Store) Movies() []catalog.Movie {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.movies)
}

// Criteria narrows the list. Zero values disable a criterion.
type Criteria struct {
	// Actor matches a case-insensitive substring of any cast member.
	Actor string
	// MaxRuntime keeps movies at most this long; unknown runtimes count as 0.
	MaxRuntime int
	// Genre keeps movies listing exactly this genre name.
	Genre string
}

// Filter returns the entries matching c, in insertion order.
func (s *Store) Filter(c Criteria) []catalog.Movie {
	actor := strings.ToLower(strings.TrimSpace(c.Actor))

	var out []catalog.Movie
	for _, m := range s.Movies() {
		if actor != "" && !slices.ContainsFunc(m.Cast, func(name string) bool {
			return strings.Contains(strings.ToLower(name), actor)
		}) {
			continue
		}
		if c.MaxRuntime > 0 && m.RuntimeMinutes() > c.MaxRuntime {
			continue
		}
		if c.Genre != "" && !slices.Contains(m.Genres, c.Genre) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Genres returns the sorted set of genre names across the list.
func (s *Store) Genres() []string {
	seen := make(map[string]struct{})
	for _, m := range s.Movies() {
		for _, g := range m.Genres {
			seen[g] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for g := range seen {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}
