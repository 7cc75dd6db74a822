package catalog

import (
	"maps"
	"slices"
	"strings"
)

// Recognized filter keys.
const (
	FilterGenre        = "genre"
	FilterActor        = "actor"
	FilterYear         = "year"
	FilterMaxRuntime   = "max_runtime"
	FilterMinRating    = "min_rating"
	FilterSortBy       = "sort_by"
	FilterGenreID      = "genre_id"
	FilterMinVoteCount = "min_vote_count"

	// FilterQuery switches the home feed from popular movies to search.
	FilterQuery = "query"
	// FilterPersonID scopes the filmography feed.
	FilterPersonID = "person_id"
)

// Filters maps a filter key to its value. A key is present only while the
// filter is active.
type Filters map[string]string

// Equal reports whether both sets hold the same keys and values.
// A nil set equals an empty one.
func (f Filters) Equal(other Filters) bool {
	return maps.Equal(f, other)
}

// Clone returns an independent copy. Cloning nil yields an empty set.
func (f Filters) Clone() Filters {
	out := make(Filters, len(f))
	maps.Copy(out, f)
	return out
}

// With returns a copy with key set to value. An empty value removes the key.
func (f Filters) With(key, value string) Filters {
	out := f.Clone()
	if strings.TrimSpace(value) == "" {
		delete(out, key)
	} else {
		out[key] = value
	}
	return out
}

// Without returns a copy without the given keys.
func (f Filters) Without(keys ...string) Filters {
	out := f.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// Get returns the value for key or "".
func (f Filters) Get(key string) string {
	return f[key]
}

// String renders the set in key order, e.g. "genre=Drame year=2000".
func (f Filters) String() string {
	keys := slices.Sorted(maps.Keys(f))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+f[k])
	}
	return strings.Join(parts, " ")
}
