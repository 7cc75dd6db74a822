// Package autocomplete suggests actors while the user types a name.
//
// Input goes through a debounce.Query (300 ms, two characters minimum).
// Each fired search is tagged with a sequence number and only the result of
// the latest search is applied. Suggestions keep people whose department is
// "Acting", at most five of them, and the dropdown opens when there is
// something to show. It closes on selection or on a pointer-down outside the
// widget's region.
package autocomplete

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/marco/recofilms/internal/catalog"
	"github.com/marco/recofilms/internal/debounce"
	"github.com/marco/recofilms/internal/logging"
)

const (
	// ActingDepartment is the department kept in suggestions.
	ActingDepartment = "Acting"

	DefaultMinLength      = 2
	DefaultMaxSuggestions = 5
)

// PersonSearcher looks people up by name.
type PersonSearcher interface {
	SearchPerson(ctx context.Context, query string) ([]catalog.Person, error)
}

// Config configures an Autocomplete. Zero values take the defaults.
type Config struct {
	Delay          time.Duration
	MinLength      int
	MaxSuggestions int
	Clock          debounce.Clock

	// Bus and Region enable dismissal on outside pointer-downs.
	Bus    *PointerBus
	Region Region

	// OnChange receives a snapshot after every visible change.
	OnChange func(State)
}

// State is a snapshot of the widget.
type State struct {
	Text        string
	Suggestions []catalog.Person
	Open        bool
	Loading     bool
	Selected    *catalog.Person
	Err         error
}

// Autocomplete is the actor search box.
type Autocomplete struct {
	ctx         context.Context
	searcher    PersonSearcher
	cfg         Config
	query       *debounce.Query
	unsubscribe func()

	mu          sync.Mutex
	text        string
	suggestions []catalog.Person
	open        bool
	loading     bool
	selected    *catalog.Person
	err         error
	seq         uint64
	closed      bool

	wg sync.WaitGroup
}

// New creates an Autocomplete. Searches run with ctx. If cfg.Bus is set the
// widget subscribes to it until Close.
func New(ctx context.Context, searcher PersonSearcher, cfg Config) *Autocomplete {
	if cfg.Delay <= 0 {
		cfg.Delay = debounce.ActorSearchDelay
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultMinLength
	}
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = DefaultMaxSuggestions
	}

	a := &Autocomplete{ctx: ctx, searcher: searcher, cfg: cfg}
	a.query = debounce.New(debounce.Config{
		Name:      "actor",
		Delay:     cfg.Delay,
		MinLength: cfg.MinLength,
		Clock:     cfg.Clock,
		OnFire:    a.search,
		OnClear:   a.clear,
	})
	if cfg.Bus != nil && cfg.Region != nil {
		a.unsubscribe = cfg.Bus.Subscribe(a.pointerDown)
	}
	return a
}

// Input sets the text and schedules a search.
func (a *Autocomplete) Input(text string) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.text = text
	a.mu.Unlock()

	a.query.Input(text)
}

func (a *Autocomplete) search(value string) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.seq++
	seq := a.seq
	a.loading = true
	a.mu.Unlock()
	a.changed()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		people, err := a.searcher.SearchPerson(a.ctx, value)
		a.apply(seq, people, err)
	}()
}

func (a *Autocomplete) apply(seq uint64, people []catalog.Person, err error) {
	a.mu.Lock()
	if a.closed || seq != a.seq {
		a.mu.Unlock()
		logging.Debug().Uint64("seq", seq).Msg("Discarded superseded actor search")
		return
	}
	a.loading = false
	if err != nil {
		a.err = catalog.Failed(catalog.OpSearchPerson, err)
		a.suggestions = nil
		a.open = false
		a.mu.Unlock()
		logging.Warn().Err(err).Msg("Actor search failed")
		a.changed()
		return
	}

	a.err = nil
	a.suggestions = Actors(people, a.cfg.MaxSuggestions)
	a.open = len(a.suggestions) > 0
	a.mu.Unlock()
	a.changed()
}

// Actors keeps people from the acting department, up to limit of them,
// in the order given.
func Actors(people []catalog.Person, limit int) []catalog.Person {
	if limit <= 0 {
		limit = DefaultMaxSuggestions
	}
	out := make([]catalog.Person, 0, limit)
	for _, p := range people {
		if p.KnownForDepartment != ActingDepartment {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out
}

// clear runs when the text is too short. It also fences any search still
// in flight.
func (a *Autocomplete) clear() {
	a.mu.Lock()
	a.seq++
	a.suggestions = nil
	a.open = false
	a.loading = false
	a.err = nil
	a.mu.Unlock()
	a.changed()
}

// Select picks a suggestion: the text becomes the person's name, the
// dropdown closes and the next debounce cycle does not search again.
func (a *Autocomplete) Select(p catalog.Person) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.seq++
	a.text = p.Name
	a.selected = &p
	a.open = false
	a.loading = false
	a.mu.Unlock()

	a.query.Confirm(p.Name)
	a.query.Input(p.Name)
	a.changed()
}

// Focus reopens the dropdown when the text is long enough.
func (a *Autocomplete) Focus() {
	a.mu.Lock()
	if a.closed || utf8.RuneCountInString(strings.TrimSpace(a.text)) < a.cfg.MinLength || a.open {
		a.mu.Unlock()
		return
	}
	a.open = true
	a.mu.Unlock()
	a.changed()
}

// Dismiss closes the dropdown.
func (a *Autocomplete) Dismiss() {
	a.mu.Lock()
	if !a.open {
		a.mu.Unlock()
		return
	}
	a.open = false
	a.mu.Unlock()
	a.changed()
}

func (a *Autocomplete) pointerDown(p Point) {
	if a.cfg.Region.Contains(p) {
		return
	}
	a.Dismiss()
}

// Snapshot returns the current state.
func (a *Autocomplete) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := State{
		Text:        a.text,
		Suggestions: slices.Clone(a.suggestions),
		Open:        a.open,
		Loading:     a.loading,
		Err:         a.err,
	}
	if a.selected != nil {
		p := *a.selected
		s.Selected = &p
	}
	return s
}

func (a *Autocomplete) changed() {
	if a.cfg.OnChange != nil {
		a.cfg.OnChange(a.Snapshot())
	}
}

// Wait blocks until in-flight searches have returned.
func (a *Autocomplete) Wait() {
	a.wg.Wait()
}

// Close unsubscribes from the pointer bus and stops the pending search.
// Results that arrive afterwards are ignored.
func (a *Autocomplete) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()

	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	a.query.Cancel()
}
