package catalog

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenreID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		input string
		want  GenreID
	}{
		{`35`, "35"},
		{`"v_romcom"`, "v_romcom"},
		{`"18"`, "18"},
		{`null`, ""},
	}

	for _, tt := range tests {
		var got GenreID
		if err := json.Unmarshal([]byte(tt.input), &got); err != nil {
			t.Fatalf("Unmarshal(%s) error: %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("Unmarshal(%s) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestGenreID_MarshalJSON(t *testing.T) {
	data, err := json.Marshal([]GenreID{"28", "v_parody"})
	require.NoError(t, err)
	assert.JSONEq(t, `[28,"v_parody"]`, string(data))
}

func TestMovie_Enrich(t *testing.T) {
	partial := Movie{
		ID:          27205,
		Title:       "Inception",
		VoteAverage: 8.4,
		Genres:      []string{"Action"},
	}
	details := Movie{
		ID:          27205,
		Title:       "Origine",
		Overview:    "Dreams.",
		VoteAverage: 8.1,
		Runtime:     IntPtr(148),
		Genres:      []string{"Action", "Science-Fiction"},
		Cast:        []string{"Leonardo DiCaprio", "Elliot Page"},
		Director:    "Christopher Nolan",
	}

	partial.Enrich(details)

	want := Movie{
		ID:          27205,
		Title:       "Inception",
		Overview:    "Dreams.",
		VoteAverage: 8.4,
		Runtime:     IntPtr(148),
		Genres:      []string{"Action"},
		Cast:        []string{"Leonardo DiCaprio", "Elliot Page"},
		Director:    "Christopher Nolan",
	}
	if diff := cmp.Diff(want, partial); diff != "" {
		t.Errorf("Enrich() mismatch (-want +got):\n%s", diff)
	}

	// The enriched record must not share slices with the details.
	details.Cast[0] = "changed"
	assert.Equal(t, "Leonardo DiCaprio", partial.Cast[0])
}

func TestMovie_NeedsDetails(t *testing.T) {
	tests := []struct {
		name  string
		movie Movie
		want  bool
	}{
		{"nothing known", Movie{ID: 1}, true},
		{"runtime only", Movie{ID: 1, Runtime: IntPtr(90)}, true},
		{"zero runtime", Movie{ID: 1, Runtime: IntPtr(0), Cast: []string{"A"}}, true},
		{"cast only", Movie{ID: 1, Cast: []string{"A"}}, true},
		{"complete", Movie{ID: 1, Runtime: IntPtr(90), Cast: []string{"A"}}, false},
		{"known empty cast", Movie{ID: 1, Runtime: IntPtr(90), Cast: []string{}}, false},
	}

	for _, tt := range tests {
		if got := tt.movie.NeedsDetails(); got != tt.want {
			t.Errorf("%s: NeedsDetails() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMovie_Year(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		{"2010-07-16", 2010},
		{"1999", 1999},
		{"", 0},
		{"n/a", 0},
	}
	for _, tt := range tests {
		if got := (Movie{ReleaseDate: tt.date}).Year(); got != tt.want {
			t.Errorf("Year(%q) = %d, want %d", tt.date, got, tt.want)
		}
	}
}

func TestMovie_CastNullRoundTrip(t *testing.T) {
	// An unknown cast must stay unknown after a save/load cycle.
	data, err := json.Marshal(Movie{ID: 1, Title: "A"})
	require.NoError(t, err)

	var back Movie
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Nil(t, back.Cast)
	assert.True(t, back.NeedsDetails())
}
