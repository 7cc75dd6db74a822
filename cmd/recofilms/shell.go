package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"

	"github.com/marco/recofilms/internal/app"
	"github.com/marco/recofilms/internal/autocomplete"
	"github.com/marco/recofilms/internal/browse"
	"github.com/marco/recofilms/internal/catalog"
	"github.com/marco/recofilms/internal/config"
	"github.com/marco/recofilms/internal/logging"
	"github.com/marco/recofilms/internal/watchlater"
)

const shellHelp = `Commands:
  status | recheck            backend readiness
  search <text> | clear       search movies, or back to popular
  home | top [genre id] | discover [sort] [genre id]
  more                        next page of the current list
  actor <name> | pick <n>     actor suggestions, then show a filmography
  films [genre id]            narrow the filmography to a genre
  details <id>
  select <id> | rate <id> <0-10> | selected | reset
  filter <key> <value>        genre, year, max_runtime, min_rating
  filter actor <name> | filter pick <n> | filters | unfilter
  recommend
  watch <id> | later [genre]
  quit`

// shell is an interactive session over one App.
type shell struct {
	s   *session
	out io.Writer

	filterChanges chan autocomplete.State
	pickerChanges chan autocomplete.State

	mu      sync.Mutex
	current *browse.MovieFeed
	printed map[*browse.MovieFeed]int
	gens    map[*browse.MovieFeed]uint64
}

func shellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Start an interactive session",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			sh := &shell{
				out:           os.Stdout,
				filterChanges: make(chan autocomplete.State, 16),
				pickerChanges: make(chan autocomplete.State, 16),
				printed:       make(map[*browse.MovieFeed]int),
				gens:          make(map[*browse.MovieFeed]uint64),
			}
			s, err := openSession(ctx, cmd, app.Options{
				ActorFilterChanged: forward(sh.filterChanges),
				ActorPickerChanged: forward(sh.pickerChanges),
			})
			if err != nil {
				return err
			}
			defer s.Close()
			sh.s = s
			sh.current = s.app.Home

			if addr := s.cfg.Metrics.Addr; addr != "" {
				stop := serveMetrics(addr)
				defer stop()
			}
			if path := cmd.String("config"); path != "" {
				w, err := config.Watch(path, config.DefaultReloadDelay, func(c *config.Config) {
					logging.SetLevel(c.Log.Level)
				})
				if err != nil {
					logging.Warn().Err(err).Msg("Config hot reload disabled")
				} else {
					defer w.Stop()
				}
			}

			for _, f := range []*browse.MovieFeed{s.app.Home, s.app.TopRated, s.app.Discover, s.app.Filmography} {
				unsubscribe := f.Subscribe(func(st browse.MovieFeedState) { sh.feedChanged(f, st) })
				defer unsubscribe()
			}

			if err := s.app.Start(ctx); err != nil {
				report(sh.out, err)
				fmt.Fprintln(sh.out, `Run "recheck" once the backend is ready.`)
			}
			return sh.run(ctx, os.Stdin)
		},
	}
}

// forward sends autocomplete changes to ch, dropping them when ch is full.
func forward(ch chan<- autocomplete.State) func(autocomplete.State) {
	return func(st autocomplete.State) {
		select {
		case ch <- st:
		default:
		}
	}
}

// suggestionWait bounds one debounced actor search.
func (sh *shell) suggestionWait() time.Duration {
	return sh.s.cfg.ActorSearchDelay() + sh.s.cfg.API.Timeout
}

// awaitSuggestions runs input and waits for the actor search it triggers
// to settle. Input too short to search settles right away; a search that
// never starts (the text is the confirmed selection) settles on timeout.
func awaitSuggestions(ctx context.Context, ac *autocomplete.Autocomplete, changes <-chan autocomplete.State, input func(), text string, wait time.Duration) autocomplete.State {
	for drained := false; !drained; {
		select {
		case <-changes:
		default:
			drained = true
		}
	}

	input()
	if utf8.RuneCountInString(strings.TrimSpace(text)) < autocomplete.DefaultMinLength {
		return ac.Snapshot()
	}

	timeout := time.NewTimer(wait)
	defer timeout.Stop()

	started := false
	for {
		select {
		case st := <-changes:
			if st.Loading {
				started = true
			} else if started {
				return st
			}
		case <-timeout.C:
			return ac.Snapshot()
		case <-ctx.Done():
			return ac.Snapshot()
		}
	}
}

func serveMetrics(addr string) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logging.Info().Str("addr", addr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("Metrics server stopped")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

// feedChanged prints the rows a feed appended since the last print, or the
// whole list after a reset.
func (sh *shell) feedChanged(f *browse.MovieFeed, st browse.MovieFeedState) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if f != sh.current || st.Loading {
		return
	}
	if st.Generation != sh.gens[f] {
		sh.gens[f] = st.Generation
		sh.printed[f] = 0
	}
	if st.Err != nil {
		fmt.Fprintf(sh.out, "\n%v\n> ", st.Err)
		return
	}

	from := sh.printed[f]
	if from > len(st.Items) {
		from = 0
	}
	if from == len(st.Items) && from > 0 {
		return
	}
	fmt.Fprintf(sh.out, "\n[%s] page %d\n", f.Name(), st.Page)
	printMovies(sh.out, st.Items[from:])
	if st.HasMore {
		fmt.Fprintln(sh.out, "(more)")
	}
	fmt.Fprint(sh.out, "> ")
	sh.printed[f] = len(st.Items)
}

func (sh *shell) show(f *browse.MovieFeed) {
	sh.mu.Lock()
	sh.current = f
	sh.mu.Unlock()
}

func (sh *shell) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(sh.out, "> ")
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Fprint(sh.out, "> ")
			continue
		}
		name, rest, _ := strings.Cut(line, " ")
		if name == "quit" || name == "exit" {
			return nil
		}
		if err := sh.exec(ctx, name, strings.TrimSpace(rest)); err != nil {
			report(sh.out, err)
		}
		fmt.Fprint(sh.out, "> ")
	}
	return scanner.Err()
}

func (sh *shell) exec(ctx context.Context, name, rest string) error {
	a := sh.s.app
	args := strings.Fields(rest)

	switch name {
	case "help":
		fmt.Fprintln(sh.out, shellHelp)

	case "status":
		st := a.Gate.State()
		fmt.Fprintf(sh.out, "%s", st.Kind)
		if err := st.Err(); err != nil {
			fmt.Fprintf(sh.out, ": %v", err)
		}
		fmt.Fprintln(sh.out)

	case "recheck":
		if err := a.Recheck(ctx); err != nil {
			return err
		}
		sh.show(a.Home)
		fmt.Fprintln(sh.out, "ready")

	case "search":
		if err := a.Gate.Require(); err != nil {
			return err
		}
		sh.show(a.Home)
		a.Search.Input(rest)

	case "clear":
		sh.show(a.Home)
		a.Search.Clear()

	case "home":
		if err := a.Gate.Require(); err != nil {
			return err
		}
		sh.show(a.Home)
		a.Home.Refresh()

	case "more":
		sh.mu.Lock()
		f := sh.current
		sh.mu.Unlock()
		if !f.RequestMore() {
			fmt.Fprintln(sh.out, "nothing more to load")
		}

	case "top":
		sh.show(a.TopRated)
		return a.ShowTopRated(arg(args, 0))

	case "discover":
		sh.show(a.Discover)
		return a.ShowDiscover(arg(args, 0), arg(args, 1))

	case "actor":
		st := awaitSuggestions(ctx, a.ActorPicker, sh.pickerChanges, func() { a.ActorPicker.Input(rest) }, rest, sh.suggestionWait())
		if st.Err != nil {
			return st.Err
		}
		printSuggestions(sh.out, st.Suggestions)

	case "pick":
		p, err := pickSuggestion(a.ActorPicker.Snapshot().Suggestions, arg(args, 0))
		if err != nil {
			return err
		}
		sh.show(a.Filmography)
		return a.SelectActor(p)

	case "films":
		sh.show(a.Filmography)
		return a.ShowFilmography(arg(args, 0))

	case "details":
		id, err := strconv.Atoi(arg(args, 0))
		if err != nil {
			return fmt.Errorf("usage: details <id>")
		}
		m, err := a.MovieDetails(ctx, id)
		if err != nil {
			return err
		}
		printDetails(sh.out, m)

	case "select":
		id, err := strconv.Atoi(arg(args, 0))
		if err != nil {
			return fmt.Errorf("usage: select <id>")
		}
		if a.Selection.Toggle(sh.lookup(id)) {
			fmt.Fprintf(sh.out, "selected %d\n", id)
		} else {
			fmt.Fprintf(sh.out, "deselected %d\n", id)
		}

	case "rate":
		id, err1 := strconv.Atoi(arg(args, 0))
		rating, err2 := strconv.ParseFloat(arg(args, 1), 64)
		if err1 != nil || err2 != nil {
			return fmt.Errorf("usage: rate <id> <0-10>")
		}
		if !a.Selection.SetRating(id, rating) {
			return fmt.Errorf("movie %d is not selected", id)
		}

	case "selected":
		printSelection(sh.out, a.Selection.Movies())

	case "reset":
		a.ClearSelection()

	case "filter":
		return sh.filter(ctx, args, rest)

	case "filters":
		fmt.Fprintln(sh.out, a.Filters())

	case "unfilter":
		a.ClearFilters()

	case "recommend":
		if err := a.Recommend(ctx); err != nil {
			return err
		}
		printRecommendations(sh.out, a.Recommendations.Snapshot().Movies)

	case "watch":
		id, err := strconv.Atoi(arg(args, 0))
		if err != nil {
			return fmt.Errorf("usage: watch <id>")
		}
		added, err := a.ToggleWatchLater(sh.lookup(id))
		if err != nil {
			return err
		}
		if added {
			fmt.Fprintf(sh.out, "added %d to watch later\n", id)
		} else {
			fmt.Fprintf(sh.out, "removed %d from watch later\n", id)
		}

	case "later":
		printMovies(sh.out, a.WatchLater.Filter(watchlater.Criteria{Genre: rest}))

	default:
		return fmt.Errorf("unknown command %q, try \"help\"", name)
	}
	return nil
}

func (sh *shell) filter(ctx context.Context, args []string, rest string) error {
	a := sh.s.app
	key := arg(args, 0)
	value := strings.TrimSpace(strings.TrimPrefix(rest, key))

	switch key {
	case "":
		return fmt.Errorf("usage: filter <key> <value>")
	case catalog.FilterActor:
		st := awaitSuggestions(ctx, a.ActorFilter, sh.filterChanges, func() { a.InputFilterActor(value) }, value, sh.suggestionWait())
		if value == "" {
			return nil
		}
		if st.Err != nil {
			return st.Err
		}
		printSuggestions(sh.out, st.Suggestions)
	case "pick":
		p, err := pickSuggestion(a.ActorFilter.Snapshot().Suggestions, value)
		if err != nil {
			return err
		}
		a.SelectFilterActor(p)
	default:
		a.SetFilter(key, value)
	}
	return nil
}

// lookup finds id in the current list so selections keep their title.
func (sh *shell) lookup(id int) catalog.Movie {
	sh.mu.Lock()
	f := sh.current
	sh.mu.Unlock()
	for _, m := range f.State().Items {
		if m.ID == id {
			return m
		}
	}
	return catalog.Movie{ID: id}
}

func printSuggestions(w io.Writer, people []catalog.Person) {
	if len(people) == 0 {
		fmt.Fprintln(w, "no matching actors")
		return
	}
	for i, p := range people {
		fmt.Fprintf(w, "  %d. %s\n", i+1, p.Name)
	}
}

func pickSuggestion(people []catalog.Person, n string) (catalog.Person, error) {
	i, err := strconv.Atoi(n)
	if err != nil || i < 1 || i > len(people) {
		return catalog.Person{}, fmt.Errorf("pick a suggestion between 1 and %d", len(people))
	}
	return people[i-1], nil
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
