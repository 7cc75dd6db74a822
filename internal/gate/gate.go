// Package gate holds the process-wide backend readiness state.
//
// The backend answers catalog queries only once its embeddings and search
// index are built. Check fetches the status once and records one of Ready,
// NotReady or Unreachable; the state stays until the next Check. There is
// no polling.
package gate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marco/recofilms/internal/catalog"
	"github.com/marco/recofilms/internal/logging"
)

var (
	ErrUnchecked   = errors.New("backend status not checked")
	ErrNotReady    = errors.New("backend not ready")
	ErrUnreachable = errors.New("backend unreachable")
)

// Kind is the readiness condition.
type Kind int

const (
	Unchecked Kind = iota
	Ready
	NotReady
	Unreachable
)

func (k Kind) String() string {
	switch k {
	case Unchecked:
		return "unchecked"
	case Ready:
		return "ready"
	case NotReady:
		return "not_ready"
	case Unreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// State is the outcome of the last check.
type State struct {
	Kind      Kind
	Status    catalog.Status
	Reason    string // set when NotReady
	Cause     error  // set when Unreachable, or NotReady after an error answer
	CheckedAt time.Time
}

// Err returns nil when browsing may proceed, otherwise an error wrapping
// ErrUnchecked, ErrNotReady or ErrUnreachable.
func (s State) Err() error {
	switch s.Kind {
	case Ready:
		return nil
	case NotReady:
		return fmt.Errorf("%w: %s", ErrNotReady, s.Reason)
	case Unreachable:
		return fmt.Errorf("%w: %w", ErrUnreachable, s.Cause)
	default:
		return ErrUnchecked
	}
}

// StatusFetcher fetches the backend status.
type StatusFetcher interface {
	GetStatus(ctx context.Context) (catalog.Status, error)
}

// Gate guards catalog browsing on backend readiness.
type Gate struct {
	fetcher StatusFetcher
	now     func() time.Time

	// Overlapping checks are collapsed: only one status fetch at a time.
	checking atomic.Bool

	mu    sync.RWMutex
	state State
}

// New creates an unchecked gate.
func New(fetcher StatusFetcher) *Gate {
	return &Gate{fetcher: fetcher, now: time.Now}
}

// Check fetches the status and records the new state. If another check is
// running it returns the current state and false without fetching.
func (g *Gate) Check(ctx context.Context) (State, bool) {
	if !g.checking.CompareAndSwap(false, true) {
		logging.Debug().Msg("Status check skipped: previous check still running")
		return g.State(), false
	}
	defer g.checking.Store(false)

	status, err := g.fetcher.GetStatus(ctx)
	next := evaluate(status, err)
	next.CheckedAt = g.now()

	g.mu.Lock()
	prev := g.state.Kind
	g.state = next
	g.mu.Unlock()

	ev := logging.Info()
	if next.Kind != Ready {
		ev = logging.Warn()
	}
	ev.Str("from", prev.String()).
		Str("to", next.Kind.String()).
		Int("total_movies", next.Status.TotalMovies).
		Str("reason", next.Reason).
		AnErr("cause", next.Cause).
		Msg("Backend status checked")

	return next, true
}

// evaluate maps a status answer to a state. Only transport failures are
// Unreachable; a backend that answered with an error is NotReady.
func evaluate(status catalog.Status, err error) State {
	if err != nil {
		if catalog.IsUnreachable(err) {
			return State{Kind: Unreachable, Cause: err}
		}
		return State{Kind: NotReady, Reason: answerReason(err), Cause: err}
	}

	var missing []string
	if !status.EmbeddingsReady {
		missing = append(missing, "embeddings")
	}
	if !status.IndexReady {
		missing = append(missing, "search index")
	}
	if len(missing) > 0 {
		return State{
			Kind:   NotReady,
			Status: status,
			Reason: strings.Join(missing, " and ") + " not built; initialize the system first",
		}
	}
	return State{Kind: Ready, Status: status}
}

func answerReason(err error) string {
	var nf *catalog.NetworkFailure
	if errors.As(err, &nf) && nf.StatusCode != 0 {
		return fmt.Sprintf("status check answered HTTP %d: %v", nf.StatusCode, nf.Cause)
	}
	return fmt.Sprintf("status check failed: %v", err)
}

// State returns the last recorded state.
func (g *Gate) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Ready reports whether catalog browsing may proceed.
func (g *Gate) Ready() bool {
	return g.State().Kind == Ready
}

// Require returns nil when ready and the blocking condition otherwise.
func (g *Gate) Require() error {
	return g.State().Err()
}
