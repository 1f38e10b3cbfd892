// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"regexp"
	"strings"
	"unicode"
)

// QualityScorer grades identifier text before a pick is accepted. Scores are
// advisory and logged; placeholder detection feeds forced escalation.
//
// The heuristic is pluggable because it is coarse: a legitimate letters-only
// part number scores low, so domains with alphabetic catalogs should swap in
// their own scorer rather than loosen this one.
type QualityScorer interface {
	// Score grades identifier text in [0,1]. Higher means more likely a
	// real catalog identifier.
	Score(identifier string) float64

	// IsPlaceholder reports whether the identifier is a catalog placeholder
	// ("SEE DRAWING", "TBD", runs of X or #) rather than a part number.
	IsPlaceholder(identifier string) bool
}

// placeholder phrases seen in equipment catalogs where a drawing or a sales
// contact stands in for the actual number. Matched as substrings.
var placeholderPhrases = []string{
	"SEE DRAWING",
	"SEE MANUAL",
	"SEE CATALOG",
	"NOT AVAILABLE",
	"REFER TO",
}

// placeholder tokens are short markers matched only as whole
// whitespace-separated tokens. "N/A" as a substring would match across URL
// path separators ("OVEN/ACCESSORIES").
var placeholderTokens = []string{
	"CONTACT",
	"TBD",
	"VARIES",
	"N/A",
}

var placeholderRuns = regexp.MustCompile(`(?i)x{3,}|#{2,}`)

// KeywordScorer is the default scorer: placeholder markers score 0, length
// outside the 4-20 band scores 0.2, then mixed alphanumerics beat digits beat
// letters.
type KeywordScorer struct {
	phrases []string
	tokens  []string
}

// NewKeywordScorer returns the default scorer with the built-in marker lists.
func NewKeywordScorer() *KeywordScorer {
	return &KeywordScorer{phrases: placeholderPhrases, tokens: placeholderTokens}
}

func (s *KeywordScorer) IsPlaceholder(identifier string) bool {
	upper := strings.ToUpper(strings.TrimSpace(identifier))
	if upper == "" {
		return true
	}
	for _, phrase := range s.phrases {
		if strings.Contains(upper, phrase) {
			return true
		}
	}
	for _, field := range strings.Fields(upper) {
		for _, token := range s.tokens {
			if field == token {
				return true
			}
		}
	}
	return placeholderRuns.MatchString(upper)
}

func (s *KeywordScorer) Score(identifier string) float64 {
	if s.IsPlaceholder(identifier) {
		return 0
	}
	trimmed := strings.TrimSpace(identifier)
	if len(trimmed) < 4 || len(trimmed) > 20 {
		return 0.2
	}

	var hasLetter, hasDigit bool
	for _, r := range trimmed {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	switch {
	case hasLetter && hasDigit:
		return 1.0
	case hasDigit:
		return 0.8
	case hasLetter:
		return 0.4
	default:
		return 0.5
	}
}
