// Package feed implements incrementally loaded, filter-scoped lists of
// catalog items.
//
// Every fetch is tagged with the generation that was current when it was
// scheduled. A reset bumps the generation, so results computed for a
// superseded filter set are dropped when they finally arrive.
package feed

import (
	"context"
	"errors"
	"sync"

	"github.com/marco/recofilms/internal/catalog"
	"github.com/marco/recofilms/internal/logging"
	"github.com/marco/recofilms/internal/metrics"
)

// Identified is implemented by feed items.
type Identified interface {
	Key() int
}

// Page is what a Fetcher returns for one requested page.
type Page[T Identified] struct {
	Items      []T
	ServerPage int // 0 means "the requested page"
	TotalPages int
}

// Fetcher loads one page for the given filters.
type Fetcher[T Identified] func(ctx context.Context, filters catalog.Filters, page int) (Page[T], error)

// Result is a completed fetch, delivered to OnPageResult.
type Result[T Identified] struct {
	Page       int
	Generation uint64
	Items      []T
	ServerPage int
	TotalPages int
	Err        error
}

// State is a snapshot of a feed.
type State[T Identified] struct {
	Items      []T
	Page       int
	HasMore    bool
	Loading    bool
	Generation uint64
	Filters    catalog.Filters
	Err        error
}

// Config configures a Feed.
type Config struct {
	// Name labels logs and metrics ("top_rated", "discover", ...).
	Name string
	// Op names the failing operation in OperationFailed errors, unless the
	// fetcher already returned an OperationFailed.
	Op string
}

// Feed is a paginated list. All methods are safe for concurrent use.
type Feed[T Identified] struct {
	cfg   Config
	ctx   context.Context
	fetch Fetcher[T]

	mu         sync.Mutex
	filters    catalog.Filters
	items      []T
	ids        map[int]struct{}
	page       int
	retryPage  int // page whose fetch failed, requested again by RequestMore
	hasMore    bool
	loading    bool
	generation uint64
	err        error
	closed     bool
	subs       map[int]func(State[T])
	nextSub    int

	wg sync.WaitGroup
}

// New creates an empty feed. Nothing is fetched until Load or Reset.
// Fetches run with ctx; closing the feed does not cancel them.
func New[T Identified](ctx context.Context, cfg Config, fetch Fetcher[T]) *Feed[T] {
	if cfg.Op == "" {
		cfg.Op = cfg.Name
	}
	return &Feed[T]{
		cfg:     cfg,
		ctx:     ctx,
		fetch:   fetch,
		ids:     make(map[int]struct{}),
		page:    1,
		hasMore: true,
		subs:    make(map[int]func(State[T])),
	}
}

// Load resets the feed to filters and fetches page 1, even when filters
// equal the current ones. Views call it when they mount or refresh.
func (f *Feed[T]) Load(filters catalog.Filters) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.resetLocked(filters)
	f.mu.Unlock()
	f.notify()
}

// Reset switches to filters when they differ from the current ones. It
// reports whether a reset happened.
func (f *Feed[T]) Reset(filters catalog.Filters) bool {
	f.mu.Lock()
	if f.closed || f.filters.Equal(filters) {
		f.mu.Unlock()
		return false
	}
	f.resetLocked(filters)
	f.mu.Unlock()
	f.notify()
	return true
}

// Refresh reloads page 1 with the current filters.
func (f *Feed[T]) Refresh() {
	f.mu.Lock()
	filters := f.filters
	f.mu.Unlock()
	f.Load(filters)
}

// resetLocked clears the list, bumps the generation and schedules page 1.
// Caller holds mu.
func (f *Feed[T]) resetLocked(filters catalog.Filters) {
	f.filters = filters.Clone()
	f.items = nil
	clear(f.ids)
	f.page = 1
	f.retryPage = 0
	f.hasMore = true
	f.err = nil
	f.generation++
	f.scheduleLocked(1)
}

// RequestMore fetches the next page. It is a no-op while a fetch is in
// flight or when the server reported no more pages. After a failed fetch
// the same page is requested again.
func (f *Feed[T]) RequestMore() bool {
	f.mu.Lock()
	if f.closed || f.loading || !f.hasMore {
		f.mu.Unlock()
		return false
	}
	next := f.page + 1
	if f.retryPage > 0 {
		next = f.retryPage
	}
	f.page = next
	f.scheduleLocked(next)
	f.mu.Unlock()
	f.notify()
	return true
}

// scheduleLocked starts the fetch of page for the current generation.
// Caller holds mu.
func (f *Feed[T]) scheduleLocked(page int) {
	f.loading = true
	gen := f.generation
	filters := f.filters.Clone()

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		p, err := f.fetch(f.ctx, filters, page)
		f.OnPageResult(Result[T]{
			Page:       page,
			Generation: gen,
			Items:      p.Items,
			ServerPage: p.ServerPage,
			TotalPages: p.TotalPages,
			Err:        err,
		})
	}()
}

// OnPageResult applies a completed fetch. Results tagged with a superseded
// generation, or arriving after Close, are discarded.
func (f *Feed[T]) OnPageResult(r Result[T]) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	if r.Generation != f.generation {
		f.mu.Unlock()
		metrics.FeedStaleDiscarded.WithLabelValues(f.cfg.Name).Inc()
		logging.Debug().Str("feed", f.cfg.Name).Int("page", r.Page).
			Uint64("generation", r.Generation).Msg("Discarded stale page")
		return
	}

	f.loading = false

	if r.Err != nil {
		f.err = r.Err
		var of *catalog.OperationFailed
		if !errors.As(r.Err, &of) {
			f.err = catalog.Failed(f.cfg.Op, r.Err)
		}
		f.retryPage = r.Page
		if r.Page > 1 {
			f.page = r.Page - 1
		}
		f.mu.Unlock()
		logging.Warn().Err(r.Err).Str("feed", f.cfg.Name).Int("page", r.Page).Msg("Feed page failed")
		f.notify()
		return
	}

	f.err = nil
	f.retryPage = 0
	f.page = r.Page

	if r.Page == 1 {
		f.items = nil
		clear(f.ids)
	}
	for _, item := range r.Items {
		key := item.Key()
		if _, dup := f.ids[key]; dup {
			continue
		}
		f.ids[key] = struct{}{}
		f.items = append(f.items, item)
	}

	serverPage := r.ServerPage
	if serverPage == 0 {
		serverPage = r.Page
	}
	f.hasMore = serverPage < r.TotalPages
	if len(r.Items) == 0 {
		f.hasMore = false
	}
	f.mu.Unlock()

	metrics.FeedPagesApplied.WithLabelValues(f.cfg.Name).Inc()
	f.notify()
}

// State returns a snapshot. The returned slice is not shared with the feed.
func (f *Feed[T]) State() State[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Feed[T]) snapshotLocked() State[T] {
	return State[T]{
		Items:      append([]T(nil), f.items...),
		Page:       f.page,
		HasMore:    f.hasMore,
		Loading:    f.loading,
		Generation: f.generation,
		Filters:    f.filters.Clone(),
		Err:        f.err,
	}
}

// Subscribe registers fn to receive a snapshot after every change. The
// returned function removes the subscription.
func (f *Feed[T]) Subscribe(fn func(State[T])) (unsubscribe func()) {
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *Feed[T]) notify() {
	f.mu.Lock()
	if len(f.subs) == 0 {
		f.mu.Unlock()
		return
	}
	s := f.snapshotLocked()
	fns := make([]func(State[T]), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// Wait blocks until every scheduled fetch has been applied or discarded.
func (f *Feed[T]) Wait() {
	f.wg.Wait()
}

// Close detaches the feed. In-flight fetches complete but their results are
// ignored.
func (f *Feed[T]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	clear(f.subs)
}

// Name returns the configured feed name.
func (f *Feed[T]) Name() string { return f.cfg.Name }
