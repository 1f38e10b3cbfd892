// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import "testing"

func TestKeywordScorerScore(t *testing.T) {
	tests := []struct {
		identifier string
		want       float64
	}{
		{"SEE DRAWING", 0},
		{"Contact manufacturer", 0},
		{"TBD", 0},
		{"VARIES", 0},
		{"XXXX-101", 0},
		{"P/N ####", 0},
		{"AB1", 0.2},
		{"0123456789012345678901", 0.2},
		{"77560", 0.8},
		{"EF02-102", 1.0},
		{"GASKET", 0.4},
		{"----", 0.5},
	}
	s := NewKeywordScorer()
	for _, tt := range tests {
		if got := s.Score(tt.identifier); got != tt.want {
			t.Errorf("Score(%q) = %.1f, want %.1f", tt.identifier, got, tt.want)
		}
	}
}

func TestKeywordScorerIsPlaceholder(t *testing.T) {
	s := NewKeywordScorer()
	for _, id := range []string{"SEE DRAWING A-4", "see drawing", "contact sales", "tbd", "N/A", "part n/a", "XXX", "##", ""} {
		if !s.IsPlaceholder(id) {
			t.Errorf("IsPlaceholder(%q) = false, want true", id)
		}
	}
	for _, id := range []string{"77560", "EF02-102", "AX100"} {
		if s.IsPlaceholder(id) {
			t.Errorf("IsPlaceholder(%q) = true, want false", id)
		}
	}
}

// Short markers match whole tokens only: a URL path segment that happens to
// contain "N/A" across a separator is not a placeholder.
func TestKeywordScorerMarkersRespectTokenBoundaries(t *testing.T) {
	s := NewKeywordScorer()
	for _, id := range []string{
		"https://img.example/oven/accessories/door-seal.jpg",
		"PAN/ABC-102",
		"CONTACTOR-24V",
	} {
		if s.IsPlaceholder(id) {
			t.Errorf("IsPlaceholder(%q) = true, want false", id)
		}
	}
}

// A letters-only identifier scores low even when legitimate. Documented
// false-positive risk of the keyword heuristic; swap the scorer per domain
// rather than loosening this.
func TestKeywordScorerLettersOnlyScoresLow(t *testing.T) {
	if got := NewKeywordScorer().Score("BLADE"); got != 0.4 {
		t.Errorf("Score(BLADE) = %.1f, want 0.4", got)
	}
}
