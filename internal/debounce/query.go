// Package debounce implements the "type, wait, fire-or-cancel" query used by
// movie search and actor autocomplete.
package debounce

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/marco/recofilms/internal/logging"
	"github.com/marco/recofilms/internal/metrics"
)

// Default delays.
const (
	MovieSearchDelay = 500 * time.Millisecond
	ActorSearchDelay = 300 * time.Millisecond
)

// State is the lifecycle state of a Query.
type State int

const (
	Idle      State = iota
	Pending         // timer armed
	Fired           // search callback ran for the last value
	Cancelled       // timer stopped, or fire suppressed by the confirmed guard
	Cleared         // value below minimum length, clear callback ran
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Fired:
		return "fired"
	case Cancelled:
		return "cancelled"
	case Cleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Config configures a Query.
type Config struct {
	// Name labels logs and metrics, e.g. "movie" or "actor".
	Name string

	Delay time.Duration

	// MinLength is the minimum trimmed length, in characters, that arms the
	// timer. Shorter values clear immediately. Values below 1 count as 1.
	MinLength int

	// Clock defaults to RealClock.
	Clock Clock

	// OnFire receives the last value after Delay of quiet.
	OnFire func(value string)

	// OnClear runs synchronously when the value is too short.
	OnClear func()
}

// Query debounces a stream of input values. Each Input stops the pending
// timer and starts a new one, so at most one fire happens per quiet period
// and it always carries the latest value.
type Query struct {
	cfg Config

	mu        sync.Mutex
	state     State
	value     string
	confirmed string
	timer     Timer
	seq       uint64 // bumped on every Input/Cancel, fences timers whose Stop lost the race
}

// New creates an idle Query.
func New(cfg Config) *Query {
	if cfg.Clock == nil {
		cfg.Clock = RealClock
	}
	if cfg.MinLength < 1 {
		cfg.MinLength = 1
	}
	return &Query{cfg: cfg}
}

// Input records a new value.
func (q *Query) Input(value string) {
	q.mu.Lock()
	q.value = value
	q.seq++
	q.stopLocked()

	if utf8.RuneCountInString(strings.TrimSpace(value)) < q.cfg.MinLength {
		q.state = Cleared
		q.mu.Unlock()
		if q.cfg.OnClear != nil {
			q.cfg.OnClear()
		}
		return
	}

	q.state = Pending
	seq := q.seq
	q.timer = q.cfg.Clock.AfterFunc(q.cfg.Delay, func() { q.fire(seq) })
	q.mu.Unlock()
}

func (q *Query) fire(seq uint64) {
	q.mu.Lock()
	if seq != q.seq || q.state != Pending {
		q.mu.Unlock()
		return
	}
	q.timer = nil

	if q.confirmed != "" && q.value == q.confirmed {
		q.state = Cancelled
		q.mu.Unlock()
		logging.Debug().Str("query", q.cfg.Name).Str("value", q.value).Msg("Skipped search for confirmed selection")
		return
	}

	q.state = Fired
	value := q.value
	q.mu.Unlock()

	metrics.DebounceFires.WithLabelValues(q.cfg.Name).Inc()
	if q.cfg.OnFire != nil {
		q.cfg.OnFire(value)
	}
}

// Confirm marks value as an accepted selection: a pending or future fire
// whose value equals it is suppressed. An empty value removes the guard.
func (q *Query) Confirm(value string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.confirmed = value
}

// Cancel stops a pending timer without firing.
func (q *Query) Cancel() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	if q.stopLocked() || q.state == Pending {
		q.state = Cancelled
	}
}

// stopLocked stops the armed timer. Caller holds mu.
func (q *Query) stopLocked() bool {
	if q.timer == nil {
		return false
	}
	stopped := q.timer.Stop()
	q.timer = nil
	return stopped
}

// State returns the current state.
func (q *Query) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}
