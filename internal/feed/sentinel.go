package feed

import "sync"

// Sentinel is the proximity trigger at the end of a feed. While visible and
// armed it asks the feed for the next page. After triggering it stays
// disarmed until loading finishes without error or the item list changes,
// so a sentinel that stayed on screen is evaluated again once new content
// has rendered.
type Sentinel[T Identified] struct {
	feed        *Feed[T]
	unsubscribe func()

	mu          sync.Mutex
	visible     bool
	armed       bool
	lastLen     int
	lastLoading bool
}

// NewSentinel attaches a trigger to feed. Close detaches it.
func NewSentinel[T Identified](feed *Feed[T]) *Sentinel[T] {
	s := &Sentinel[T]{feed: feed, armed: true}
	st := feed.State()
	s.lastLen = len(st.Items)
	s.lastLoading = st.Loading
	s.unsubscribe = feed.Subscribe(s.onChange)
	return s
}

// SetVisible reports whether the sentinel is within the viewport.
func (s *Sentinel[T]) SetVisible(visible bool) {
	s.mu.Lock()
	s.visible = visible
	s.mu.Unlock()
	s.evaluate()
}

func (s *Sentinel[T]) onChange(State[T]) {
	// Snapshots can arrive out of order across goroutines; read the live state.
	st := s.feed.State()

	s.mu.Lock()
	if (s.lastLoading && !st.Loading && st.Err == nil) || len(st.Items) != s.lastLen {
		s.armed = true
	}
	s.lastLoading = st.Loading
	s.lastLen = len(st.Items)
	s.mu.Unlock()

	s.evaluate()
}

func (s *Sentinel[T]) evaluate() {
	s.mu.Lock()
	if !s.visible || !s.armed {
		s.mu.Unlock()
		return
	}
	st := s.feed.State()
	if st.Loading || !st.HasMore {
		s.mu.Unlock()
		return
	}
	s.armed = false
	s.mu.Unlock()

	if !s.feed.RequestMore() {
		s.mu.Lock()
		s.armed = true
		s.mu.Unlock()
	}
}

// Armed reports whether the next visibility will trigger a fetch.
func (s *Sentinel[T]) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed
}

// Close removes the feed subscription.
func (s *Sentinel[T]) Close() {
	s.unsubscribe()
}
