// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SearchHit is one organic result from the keyword-search backend.
type SearchHit struct {
	Position      int    `json:"position" yaml:"position"`
	Title         string `json:"title" yaml:"title"`
	URL           string `json:"url" yaml:"url"`
	Snippet       string `json:"snippet" yaml:"snippet"`
	DisplayedLink string `json:"displayed_link,omitempty" yaml:"displayed_link,omitempty"`
}

// ImageHit is one result from the image-search engine variant.
type ImageHit struct {
	Position  int    `json:"position" yaml:"position"`
	Title     string `json:"title" yaml:"title"`
	URL       string `json:"url" yaml:"url"`
	Thumbnail string `json:"thumbnail,omitempty" yaml:"thumbnail,omitempty"`
	Source    string `json:"source,omitempty" yaml:"source,omitempty"`
	SourceURL string `json:"source_url,omitempty" yaml:"source_url,omitempty"`
	Width     int    `json:"width,omitempty" yaml:"width,omitempty"`
	Height    int    `json:"height,omitempty" yaml:"height,omitempty"`
}

// SearchReport is the raw keyword-search leg of a pipeline run, kept in the
// envelope for audit. An unavailable backend yields Unavailable=true and an
// empty hit list, never an aborted run.
type SearchReport struct {
	Query       string      `json:"query" yaml:"query"`
	Hits        []SearchHit `json:"hits,omitempty" yaml:"hits,omitempty"`
	Images      []ImageHit  `json:"images,omitempty" yaml:"images,omitempty"`
	Unavailable bool        `json:"unavailable,omitempty" yaml:"unavailable,omitempty"`
	Err         string      `json:"error,omitempty" yaml:"error,omitempty"`
}

// ResearchReport is the raw AI-research leg of a pipeline run.
type ResearchReport struct {
	// Fields is the domain-specific structured guess (oem_part_number,
	// manufacturer, ... for parts; manual_title, manual_url, ... for manuals).
	Fields map[string]any `json:"fields,omitempty" yaml:"fields,omitempty"`

	// Confidence is the model's self-reported confidence in [0,1].
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// SourceURLs are citation URLs extracted from the browsing response.
	SourceURLs []string `json:"source_urls,omitempty" yaml:"source_urls,omitempty"`

	// Succeeded is false when both the browsing call and the fallback
	// completion failed or could not be parsed.
	Succeeded bool `json:"succeeded" yaml:"succeeded"`

	// Method records which code path produced the answer: "web_search" for
	// the browsing call, "completion_fallback" for the reduced-trust
	// training-knowledge path.
	Method string `json:"method,omitempty" yaml:"method,omitempty"`

	Err string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Resolution is the final envelope of one find-flow pipeline run. It is built
// once per query, immutable, and handed to the caller; persistence is an
// optional external side effect.
type Resolution struct {
	Query      Query          `json:"query" yaml:"query"`
	Search     SearchReport   `json:"search" yaml:"search"`
	Research   ResearchReport `json:"research" yaml:"research"`
	Decision   Decision       `json:"decision" yaml:"decision"`
	Validation *Validation    `json:"validation,omitempty" yaml:"validation,omitempty"`

	// Escalated is true when the similar-candidates search ran.
	Escalated bool `json:"escalated" yaml:"escalated"`

	// EscalationReason explains why the escalation fired (or did not).
	EscalationReason string `json:"escalation_reason,omitempty" yaml:"escalation_reason,omitempty"`

	// Similar holds alternative candidates from the widened search, each
	// scored independently, filtered and sorted by confidence.
	Similar []Candidate `json:"similar,omitempty" yaml:"similar,omitempty"`

	// Success is true when an accepted pick survived arbitration. "Not
	// found" is a normal outcome with Success=false, not an error.
	Success bool `json:"success" yaml:"success"`
}

// Accepted returns the accepted pick, or nil when the run ended without one.
func (r Resolution) Accepted() *Candidate {
	if !r.Success {
		return nil
	}
	return r.Decision.Selected
}

// Ranking is the final envelope of one rank-flow pipeline run (manuals,
// service providers): up to max-results picks ordered by the arbitrator.
type Ranking struct {
	Query    Query          `json:"query" yaml:"query"`
	Search   SearchReport   `json:"search" yaml:"search"`
	Research ResearchReport `json:"research" yaml:"research"`
	Picks    []RankedPick   `json:"picks" yaml:"picks"`
	Success  bool           `json:"success" yaml:"success"`
	Err      string         `json:"error,omitempty" yaml:"error,omitempty"`
}
