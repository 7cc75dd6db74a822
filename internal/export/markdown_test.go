package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/marco/recofilms/internal/catalog"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		movie catalog.Movie
		want  string
	}{
		{catalog.Movie{ID: 1, Title: "The Matrix", ReleaseDate: "1999-03-31"}, "the-matrix-1999"},
		{catalog.Movie{ID: 2, Title: "Alien: Romulus", ReleaseDate: "2024-08-14"}, "alien-romulus-2024"},
		{catalog.Movie{ID: 3, Title: "Inception"}, "inception"},
		{catalog.Movie{ID: 4, Title: "  --Up--  "}, "up"},
		{catalog.Movie{ID: 5, Title: "千と千尋の神隠し"}, "movie-5"},
	}

	for _, tt := range tests {
		if got := Slug(tt.movie); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.movie.Title, got, tt.want)
		}
	}
}

func TestGenerate_FrontMatterParses(t *testing.T) {
	m := catalog.Movie{
		ID:          945961,
		Title:       "Alien: Romulus",
		Overview:    "Space scavengers meet the most terrifying life form.",
		ReleaseDate: "2024-08-14",
		VoteAverage: 7.2,
		Runtime:     catalog.IntPtr(119),
		Genres:      []string{"Horreur", "Science-Fiction"},
		Director:    "Fede Álvarez",
		Cast:        []string{"Cailee Spaeny", "David Jonsson"},
	}
	exported := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	content, err := Generate(NewNote(m, exported))
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(content, "---\n"))
	parts := strings.SplitN(content, "---\n", 3)
	require.Len(t, parts, 3)

	var got Note
	require.NoError(t, yaml.Unmarshal([]byte(parts[1]), &got))
	assert.Equal(t, "Alien: Romulus", got.Title)
	assert.Equal(t, "alien-romulus-2024", got.Slug)
	assert.Equal(t, 119, got.Runtime)
	assert.Equal(t, 2024, got.ReleaseYear)
	assert.True(t, exported.Equal(got.ExportedAt))

	assert.Contains(t, content, `title: "Alien: Romulus"`)
	assert.Contains(t, parts[2], "# Alien: Romulus (2024)")
	assert.Contains(t, parts[2], "- **Runtime**: 119 minutes")
	assert.Contains(t, parts[2], "https://www.themoviedb.org/movie/945961")
}

func TestGenerate_SkipsUnknownDetails(t *testing.T) {
	content, err := Generate(NewNote(catalog.Movie{ID: 7, Title: "Partial"}, time.Now()))
	require.NoError(t, err)

	assert.NotContains(t, content, "## Synopsis")
	assert.NotContains(t, content, "**Runtime**")
	assert.NotContains(t, content, "**Cast**")
}

func TestMarkdownWriter_WriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "notes")
	w := NewMarkdownWriter(dir)

	paths, err := w.WriteAll([]catalog.Movie{
		{ID: 603, Title: "The Matrix", ReleaseDate: "1999-03-31"},
		{ID: 27205, Title: "Inception", ReleaseDate: "2010-07-15"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "the-matrix-1999.md"),
		filepath.Join(dir, "inception-2010.md"),
	}, paths)

	data, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Inception (2010)")
}
