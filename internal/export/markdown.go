// Package export writes movies as Markdown notes with YAML front matter.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/marco/recofilms/internal/catalog"
)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9-]+`)
	dashes       = regexp.MustCompile(`-+`)
)

// Note is the front matter of an exported movie.
type Note struct {
	Title       string    `yaml:"title"`
	Slug        string    `yaml:"slug"`
	Overview    string    `yaml:"overview,omitempty"`
	Poster      string    `yaml:"poster,omitempty"`
	Rating      float64   `yaml:"rating"`
	ReleaseYear int       `yaml:"releaseYear,omitempty"`
	ReleaseDate string    `yaml:"releaseDate,omitempty"`
	Runtime     int       `yaml:"runtime,omitempty"`
	Genres      []string  `yaml:"genres,omitempty"`
	Director    string    `yaml:"director,omitempty"`
	Cast        []string  `yaml:"cast,omitempty"`
	TMDBID      int       `yaml:"tmdbId"`
	ExportedAt  time.Time `yaml:"exportedAt"`
}

// NewNote builds the note of m.
func NewNote(m catalog.Movie, exportedAt time.Time) Note {
	return Note{
		Title:       m.Title,
		Slug:        Slug(m),
		Overview:    m.Overview,
		Poster:      m.PosterURL,
		Rating:      m.VoteAverage,
		ReleaseYear: m.Year(),
		ReleaseDate: m.ReleaseDate,
		Runtime:     m.RuntimeMinutes(),
		Genres:      m.Genres,
		Director:    m.Director,
		Cast:        m.Cast,
		TMDBID:      m.ID,
		ExportedAt:  exportedAt,
	}
}

// Slug creates a file-name-friendly slug from the title and year. Titles
// with nothing left after cleaning fall back to the movie id.
func Slug(m catalog.Movie) string {
	slug := strings.ToLower(m.Title)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = nonSlugChars.ReplaceAllString(slug, "")
	slug = dashes.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if slug == "" {
		return fmt.Sprintf("movie-%d", m.ID)
	}
	if y := m.Year(); y > 0 {
		return fmt.Sprintf("%s-%d", slug, y)
	}
	return slug
}

// MarkdownWriter writes notes into one directory.
type MarkdownWriter struct {
	dir string
	now func() time.Time
}

// NewMarkdownWriter creates a writer for dir.
func NewMarkdownWriter(dir string) *MarkdownWriter {
	return &MarkdownWriter{dir: dir, now: time.Now}
}

// WriteAll writes one file per movie and returns the paths written.
func (w *MarkdownWriter) WriteAll(movies []catalog.Movie) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	now := w.now()
	paths := make([]string, 0, len(movies))
	for _, m := range movies {
		note := NewNote(m, now)
		content, err := Generate(note)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(w.dir, note.Slug+".md")
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Generate renders a note as Markdown with YAML front matter.
func Generate(n Note) (string, error) {
	var sb strings.Builder
	sb.WriteString("---\n")

	var doc yaml.Node
	if err := doc.Encode(n); err != nil {
		return "", fmt.Errorf("failed to marshal note: %w", err)
	}
	forceQuotedFields(&doc, "title", "director")
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal note: %w", err)
	}
	sb.Write(data)
	sb.WriteString("---\n\n")

	sb.WriteString("# " + n.Title)
	if n.ReleaseYear > 0 {
		fmt.Fprintf(&sb, " (%d)", n.ReleaseYear)
	}
	sb.WriteString("\n\n")

	if n.Overview != "" {
		sb.WriteString("## Synopsis\n\n")
		sb.WriteString(n.Overview)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Details\n\n")
	if n.Rating > 0 {
		fmt.Fprintf(&sb, "- **Rating**: %.1f/10\n", n.Rating)
	}
	if n.Runtime > 0 {
		fmt.Fprintf(&sb, "- **Runtime**: %d minutes\n", n.Runtime)
	}
	if n.Director != "" {
		fmt.Fprintf(&sb, "- **Director**: %s\n", n.Director)
	}
	if len(n.Genres) > 0 {
		fmt.Fprintf(&sb, "- **Genres**: %s\n", strings.Join(n.Genres, ", "))
	}
	if len(n.Cast) > 0 {
		fmt.Fprintf(&sb, "- **Cast**: %s\n", strings.Join(n.Cast, ", "))
	}

	if n.TMDBID > 0 {
		sb.WriteString("\n## Links\n\n")
		fmt.Fprintf(&sb, "- [View on TMDB](https://www.themoviedb.org/movie/%d)\n", n.TMDBID)
	}
	return sb.String(), nil
}

// forceQuotedFields double-quotes the named scalars of a document mapping,
// so titles like "Alien: Romulus" stay plain strings for every YAML parser.
func forceQuotedFields(doc *yaml.Node, keys ...string) {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return
	}
	mapping := doc.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return
	}
	keySet := make(map[string]bool, len(keys))
	for _, k := range keys {
		keySet[k] = true
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if keySet[mapping.Content[i].Value] {
			mapping.Content[i+1].Style = yaml.DoubleQuotedStyle
		}
	}
}
