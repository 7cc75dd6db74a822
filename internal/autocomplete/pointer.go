package autocomplete

import (
	"sync"
)

// Point is a pointer position in the host's coordinate space.
type Point struct {
	X, Y float64
}

// Region is the area occupied by a widget.
type Region interface {
	Contains(p Point) bool
}

// Rect is an axis-aligned Region.
type Rect struct {
	X, Y, W, H float64
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// PointerBus fans pointer-down events out to subscribers. The host feeds
// it; widgets subscribe for as long as they are mounted.
type PointerBus struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Point)
}

// NewPointerBus creates an empty bus.
func NewPointerBus() *PointerBus {
	return &PointerBus{subs: make(map[int]func(Point))}
}

// Subscribe registers fn and returns the function that removes it.
// Calling the returned function more than once is harmless.
func (b *PointerBus) Subscribe(fn func(Point)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// PointerDown delivers p to every subscriber.
func (b *PointerBus) PointerDown(p Point) {
	b.mu.Lock()
	fns := make([]func(Point), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(p)
	}
}

// Len returns the number of subscribers.
func (b *PointerBus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
