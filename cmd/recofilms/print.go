package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/marco/recofilms/internal/catalog"
	"github.com/marco/recofilms/internal/gate"
	"github.com/marco/recofilms/internal/selection"
)

func printMovies(w io.Writer, movies []catalog.Movie) {
	if len(movies) == 0 {
		fmt.Fprintln(w, "No movies")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tYEAR\tRATING\tRUNTIME\tGENRES")
	for _, m := range movies {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f\t%s\t%s\n",
			m.ID, m.Title, year(m), m.VoteAverage, runtime(m), strings.Join(m.Genres, ", "))
	}
	tw.Flush()
}

func printRecommendations(w io.Writer, movies []catalog.Movie) {
	if len(movies) == 0 {
		fmt.Fprintln(w, "No recommendations")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSCORE\tID\tTITLE\tYEAR\tRATING")
	for i, m := range movies {
		fmt.Fprintf(tw, "%d\t%.0f%%\t%d\t%s\t%s\t%.1f\n", i+1, m.Score*100, m.ID, m.Title, year(m), m.VoteAverage)
	}
	tw.Flush()
}

func printSelection(w io.Writer, selected []selection.Selected) {
	if len(selected) == 0 {
		fmt.Fprintln(w, "Nothing selected")
		return
	}
	for _, s := range selected {
		fmt.Fprintf(w, "  %d  %s  (%.1f/10)\n", s.ID, s.Title, s.Rating)
	}
}

func printDetails(w io.Writer, m catalog.Movie) {
	fmt.Fprintf(w, "%s (%s)  #%d\n", m.Title, year(m), m.ID)
	fmt.Fprintf(w, "Rating:   %.1f/10\n", m.VoteAverage)
	fmt.Fprintf(w, "Runtime:  %s\n", runtime(m))
	if len(m.Genres) > 0 {
		fmt.Fprintf(w, "Genres:   %s\n", strings.Join(m.Genres, ", "))
	}
	if m.Director != "" {
		fmt.Fprintf(w, "Director: %s\n", m.Director)
	}
	if len(m.Cast) > 0 {
		fmt.Fprintf(w, "Cast:     %s\n", strings.Join(m.Cast, ", "))
	}
	if m.Overview != "" {
		fmt.Fprintf(w, "\n%s\n", m.Overview)
	}
}

func year(m catalog.Movie) string {
	if y := m.Year(); y > 0 {
		return fmt.Sprint(y)
	}
	return "-"
}

func runtime(m catalog.Movie) string {
	r := m.RuntimeMinutes()
	if r == 0 {
		return "-"
	}
	return fmt.Sprintf("%dh%02d", r/60, r%60)
}

// report prints err as a hard alert when the backend cannot be reached and
// as a soft warning when it is only not ready yet.
func report(w io.Writer, err error) {
	switch {
	case catalog.IsUnreachable(err):
		fmt.Fprintf(w, "unreachable: %v\n", err)
	case errors.Is(err, gate.ErrNotReady):
		fmt.Fprintf(w, "warning: %v\n", err)
	case catalog.IsNotFound(err):
		fmt.Fprintf(w, "not found: %v\n", err)
	default:
		fmt.Fprintf(w, "error: %v\n", err)
	}
}
