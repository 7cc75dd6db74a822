package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fireRecord struct {
	value string
	at    time.Duration
}

type recorder struct {
	mu     sync.Mutex
	start  time.Time
	clock  Clock
	fires  []fireRecord
	clears int
}

func (r *recorder) onFire(v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fires = append(r.fires, fireRecord{value: v, at: r.clock.Now().Sub(r.start)})
}

func (r *recorder) onClear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clears++
}

func newManual(t *testing.T, delay time.Duration, minLen int) (*Query, *ManualClock, *recorder) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewManualClock(start)
	rec := &recorder{start: start, clock: clock}
	q := New(Config{
		Name:      "test",
		Delay:     delay,
		MinLength: minLen,
		Clock:     clock,
		OnFire:    rec.onFire,
		OnClear:   rec.onClear,
	})
	return q, clock, rec
}

func TestQuery_FiresLastValueAfterQuiet(t *testing.T) {
	q, clock, rec := newManual(t, MovieSearchDelay, 1)

	// Keystrokes at t=0, 100, 200, 450 ms.
	q.Input("Inc")
	clock.Advance(100 * time.Millisecond)
	q.Input("Ince")
	clock.Advance(100 * time.Millisecond)
	q.Input("Incep")
	clock.Advance(250 * time.Millisecond)
	q.Input("Inception")

	clock.Advance(499 * time.Millisecond)
	require.Empty(t, rec.fires, "fired before 950ms")
	assert.Equal(t, Pending, q.State())

	clock.Advance(time.Millisecond)
	require.Equal(t, []fireRecord{{value: "Inception", at: 950 * time.Millisecond}}, rec.fires)
	assert.Equal(t, Fired, q.State())

	clock.Advance(5 * time.Second)
	assert.Len(t, rec.fires, 1)
	assert.Zero(t, clock.Pending())
}

func TestQuery_ClearsBelowMinLength(t *testing.T) {
	q, clock, rec := newManual(t, ActorSearchDelay, 2)

	q.Input("Le")
	q.Input("L")

	assert.Equal(t, Cleared, q.State())
	assert.Equal(t, 1, rec.clears)

	clock.Advance(time.Second)
	assert.Empty(t, rec.fires, "cleared input must cancel the pending search")
}

func TestQuery_WhitespaceOnlyClears(t *testing.T) {
	q, clock, rec := newManual(t, MovieSearchDelay, 1)

	q.Input("   ")
	clock.Advance(time.Second)

	assert.Equal(t, 1, rec.clears)
	assert.Empty(t, rec.fires)
}

func TestQuery_MinLengthCountsCharacters(t *testing.T) {
	q, clock, rec := newManual(t, ActorSearchDelay, 2)

	// One two-byte rune is still a single character.
	q.Input("é")
	clock.Advance(time.Second)
	assert.Equal(t, 1, rec.clears)
	assert.Empty(t, rec.fires)
}

func TestQuery_ConfirmedGuard(t *testing.T) {
	q, clock, rec := newManual(t, ActorSearchDelay, 2)

	q.Confirm("Tom Hanks")
	q.Input("Tom Hanks")
	clock.Advance(ActorSearchDelay)

	assert.Empty(t, rec.fires)
	assert.Equal(t, Cancelled, q.State())

	// Typing something else searches again.
	q.Input("Tom Hardy")
	clock.Advance(ActorSearchDelay)
	require.Len(t, rec.fires, 1)
	assert.Equal(t, "Tom Hardy", rec.fires[0].value)
}

func TestQuery_Cancel(t *testing.T) {
	q, clock, rec := newManual(t, MovieSearchDelay, 1)

	q.Input("Alien")
	q.Cancel()
	clock.Advance(time.Second)

	assert.Empty(t, rec.fires)
	assert.Equal(t, Cancelled, q.State())
}

func TestQuery_RealClock(t *testing.T) {
	fired := make(chan string, 4)
	q := New(Config{
		Name:   "real",
		Delay:  20 * time.Millisecond,
		OnFire: func(v string) { fired <- v },
	})

	q.Input("a")
	q.Input("ab")
	q.Input("abc")

	select {
	case v := <-fired:
		assert.Equal(t, "abc", v)
	case <-time.After(time.Second):
		t.Fatal("debounced query never fired")
	}

	select {
	case v := <-fired:
		t.Fatalf("unexpected second fire %q", v)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		Idle:      "idle",
		Pending:   "pending",
		Fired:     "fired",
		Cancelled: "cancelled",
		Cleared:   "cleared",
		State(99): "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}
