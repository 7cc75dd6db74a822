package watchlater

import (
	"context"
	"sync"
	"sync/atomic"
)

// EnrichResult is the outcome of enriching one entry.
type EnrichResult struct {
	ID       int
	Enriched bool // false when the entry was removed or already being enriched
	Err      error
}

// enrichFunc enriches one entry.
type enrichFunc func(ctx context.Context, id int) (bool, error)

// claimGuard makes sure a movie id is enriched by one goroutine at a time.
// Only the first caller of TryClaim for an id succeeds until it is released.
// A refused claim is remembered so the holder knows to run once more.
type claimGuard struct {
	mu    sync.Mutex
	ids   map[int]bool
	rerun map[int]bool
}

func newClaimGuard() *claimGuard {
	return &claimGuard{ids: make(map[int]bool), rerun: make(map[int]bool)}
}

// TryClaim returns true if id was free and is now claimed by the caller.
func (g *claimGuard) TryClaim(id int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ids[id] {
		g.rerun[id] = true
		return false
	}
	g.ids[id] = true
	return true
}

// Release frees id and returns false. If a claim was refused since the id
// was claimed, it keeps the claim, clears the request and returns true:
// the caller still holds id and must Release again when done.
func (g *claimGuard) Release(id int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rerun[id] {
		delete(g.rerun, id)
		return true
	}
	delete(g.ids, id)
	return false
}

// enrichConcurrently fans ids out across workers. processed is incremented
// after each id completes, success or failure. Results come back in no
// particular order.
func enrichConcurrently(
	ctx context.Context,
	ids []int,
	fn enrichFunc,
	workers int,
	processed *int64,
) []EnrichResult {
	if workers <= 0 {
		workers = 1
	}

	jobs := make(chan int, len(ids))
	results := make(chan EnrichResult, len(ids))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				if ctx.Err() != nil {
					results <- EnrichResult{ID: id, Err: ctx.Err()}
					atomic.AddInt64(processed, 1)
					continue
				}

				ok, err := fn(ctx, id)
				results <- EnrichResult{ID: id, Enriched: ok, Err: err}
				atomic.AddInt64(processed, 1)
			}
		}()
	}

	for _, id := range ids {
		jobs <- id
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var out []EnrichResult
	for r := range results {
		out = append(out, r)
	}
	return out
}
