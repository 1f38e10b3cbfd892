// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Source identifies which of the two search legs produced a candidate.
type Source string

const (
	// SourceSearchEngine marks candidates built from keyword-search hits.
	SourceSearchEngine Source = "search_engine"

	// SourceAIResearch marks candidates built from the browsing-capable
	// model's structured answer.
	SourceAIResearch Source = "ai_research"

	// SourceNone is the arbitrator's selected_source when no candidate
	// clears the relevance bar. A decision with SourceNone carries no
	// candidate.
	SourceNone Source = "none"
)

// Candidate is a single proposed answer from one source: a part number, a
// supplier, a manual, a service provider, or an image, depending on domain.
type Candidate struct {
	// Identifier is the domain-specific primary key: OEM part number,
	// supplier name, manual URL, provider name, or image URL. Never empty.
	Identifier string `json:"identifier" yaml:"identifier"`

	// Description is the human-readable description of the candidate.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Source records which leg produced this candidate.
	Source Source `json:"source" yaml:"source"`

	// Position is the 1-based rank within the originating result set, used
	// for tie-breaking.
	Position int `json:"position,omitempty" yaml:"position,omitempty"`

	// Confidence is the source-reported confidence in [0,1].
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// SourceURLs lists supporting URLs in source order. May be empty.
	SourceURLs []string `json:"source_urls,omitempty" yaml:"source_urls,omitempty"`

	// Attrs holds domain-specific extras (price, is_authorized, file_format).
	Attrs map[string]string `json:"attrs,omitempty" yaml:"attrs,omitempty"`
}

// Attr returns the named extra attribute or "" when absent.
func (c Candidate) Attr(key string) string {
	if c.Attrs == nil {
		return ""
	}
	return c.Attrs[key]
}

// Decision is the arbitrator's output for a find flow: one pick or none.
type Decision struct {
	// Selected is the winning candidate, nil when SelectedSource is
	// SourceNone.
	Selected *Candidate `json:"selected,omitempty" yaml:"selected,omitempty"`

	// SelectedSource names the leg the pick came from, or SourceNone.
	SelectedSource Source `json:"selected_source" yaml:"selected_source"`

	// Confidence is the arbitrator's confidence in the pick, in [0,1].
	// A confidence of 0 requires non-empty Reasoning.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Reasoning is the arbitrator's free-text justification.
	Reasoning string `json:"reasoning" yaml:"reasoning"`

	// Analysis is the arbitrator's longer comparison of both result sets.
	Analysis string `json:"analysis,omitempty" yaml:"analysis,omitempty"`
}

// RankedPick is one entry of a rank-flow decision, ordered by the model's
// relevance judgment rather than input order.
type RankedPick struct {
	Candidate  Candidate `json:"candidate" yaml:"candidate"`
	Confidence float64   `json:"confidence" yaml:"confidence"`
	Reasoning  string    `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
}

// Validation is the independent re-check of one candidate identifier.
type Validation struct {
	// IsValid is true only when the evidence shows a real, purchasable or
	// authentic entity of the requested type. Uncertain means false.
	IsValid bool `json:"is_valid" yaml:"is_valid"`

	// ConfidenceScore grades the evidence quality in [0,1].
	ConfidenceScore float64 `json:"confidence_score" yaml:"confidence_score"`

	// Assessment explains the validation decision.
	Assessment string `json:"assessment" yaml:"assessment"`

	// Description is the canonical description extracted from the evidence.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// SourcesCount is the number of reliable sources found.
	SourcesCount int `json:"sources_count" yaml:"sources_count"`
}
