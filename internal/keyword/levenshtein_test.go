package keyword

import "testing"

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected int
	}{
		{"identical empty", "", "", 0},
		{"identical word", "inception", "inception", 0},
		{"identical unicode", "こんにちは", "こんにちは", 0},
		{"empty a", "", "heat", 4},
		{"empty b", "heat", "", 4},
		{"one substitution", "cat", "bat", 1},
		{"one insertion", "alien", "aliens", 1},
		{"one deletion", "aliens", "alien", 1},
		{"kitten to sitting", "kitten", "sitting", 3},
		{"saturday to sunday", "saturday", "sunday", 3},
		{"common typo", "inceptoin", "inception", 2},
		{"missing letter", "the matrx", "the matrix", 1},
		{"case difference", "Heat", "heat", 1},
		{"unicode substitution", "amélie", "amelie", 1},
		{"transposition counts twice", "ab", "ba", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LevenshteinDistance(tt.a, tt.b); got != tt.expected {
				t.Errorf("LevenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.expected)
			}
			if got := LevenshteinDistance(tt.b, tt.a); got != tt.expected {
				t.Errorf("LevenshteinDistance(%q, %q) = %d, want %d (symmetry)", tt.b, tt.a, got, tt.expected)
			}
		})
	}
}
