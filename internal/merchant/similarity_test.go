package merchant

import "testing"

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		min  float64
		max  float64
	}{
		{"exact", "rewe markt", "rewe markt", 1.0, 1.0},
		{"case and whitespace insensitive", "REWE  Markt", "rewe markt", 1.0, 1.0},
		{"containment", "rewe markt berlin", "rewe markt", 0.8, 1.0},
		{"shared tokens", "amazon payments europe", "amazon payments london", 0.5, 1.0},
		{"unrelated", "netflix", "shell station", 0, 0.4},
		{"empty", "", "rewe", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.a, tt.b)
			if got < tt.min || got > tt.max {
				t.Errorf("Similarity(%q, %q) = %f, want in [%f, %f]", tt.a, tt.b, got, tt.min, tt.max)
			}
		})
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	a, b := "rewe markt berlin", "rewe supermarkt"
	if Similarity(a, b) != Similarity(b, a) {
		t.Error("similarity must be symmetric")
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"kitten", "sitting", 3},
		{"", "abc", 3},
	}
	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
