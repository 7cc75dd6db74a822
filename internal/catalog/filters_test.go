package catalog

import "testing"

func TestFilters_Equal(t *testing.T) {
	tests := []struct {
		name string
		a, b Filters
		want bool
	}{
		{"both nil", nil, nil, true},
		{"nil and empty", nil, Filters{}, true},
		{"same", Filters{"genre": "Drame"}, Filters{"genre": "Drame"}, true},
		{"different value", Filters{"genre": "Drame"}, Filters{"genre": "Action"}, false},
		{"extra key", Filters{"genre": "Drame"}, Filters{"genre": "Drame", "year": "2000"}, false},
	}

	for _, tt := range tests {
		if got := tt.a.Equal(tt.b); got != tt.want {
			t.Errorf("%s: Equal() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFilters_With(t *testing.T) {
	base := Filters{FilterGenre: "Drame"}

	set := base.With(FilterYear, "2000")
	if set.Get(FilterYear) != "2000" || set.Get(FilterGenre) != "Drame" {
		t.Errorf("With(year) = %v", set)
	}
	if _, ok := base[FilterYear]; ok {
		t.Error("With() mutated the receiver")
	}

	cleared := set.With(FilterGenre, "  ")
	if _, ok := cleared[FilterGenre]; ok {
		t.Errorf("With(genre, blank) kept the key: %v", cleared)
	}
}

func TestFilters_Without(t *testing.T) {
	f := Filters{FilterQuery: "alien", FilterGenre: "Horreur"}
	got := f.Without(FilterQuery)
	if !got.Equal(Filters{FilterGenre: "Horreur"}) {
		t.Errorf("Without(query) = %v", got)
	}
	if len(f) != 2 {
		t.Error("Without() mutated the receiver")
	}
}

func TestFilters_String(t *testing.T) {
	f := Filters{FilterYear: "2000", FilterGenre: "Drame"}
	if got, want := f.String(), "genre=Drame year=2000"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
