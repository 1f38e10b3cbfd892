// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate re-checks an arbitrated winner against fresh search
// evidence. The check is deliberately conservative: no evidence, or an
// unsure model, both count as invalid.
package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/parts-engine/internal/llm"
	"github.com/pdiddy/parts-engine/pkg/types"
)

// defaultHits is how many evidence hits the validator gathers when the
// request does not say otherwise.
const defaultHits = 8

// Searcher is the slice of the search client the validator needs.
type Searcher interface {
	Search(ctx context.Context, query string, count int, bypassCache bool) types.SearchReport
}

// Request describes one validation run. Query is the domain-built
// evidence query, typically quoting the identifier verbatim.
type Request struct {
	// System is the domain persona prompt.
	System string

	// Identifier is the value under test.
	Identifier string

	// Subject names what the identifier claims to be, e.g.
	// "OEM part number" or "parts supplier".
	Subject string

	// Equipment is the free-text equipment context.
	Equipment string

	// Query is the evidence search query.
	Query string

	// Hits caps the evidence set; zero means defaultHits.
	Hits int

	// BypassCache propagates the caller's cache-bypass flag to the
	// evidence search.
	BypassCache bool
}

// Validator grades identifiers against independent search evidence.
type Validator struct {
	search Searcher
	model  llm.Completer
}

// New returns a validator over the given search client and model.
func New(search Searcher, model llm.Completer) *Validator {
	return &Validator{search: search, model: model}
}

// Validate gathers evidence for the identifier and asks the model to
// grade it. It never returns an error: every failure mode degrades to
// an invalid verdict whose Assessment says why.
func (v *Validator) Validate(ctx context.Context, req Request) types.Validation {
	hits := req.Hits
	if hits <= 0 {
		hits = defaultHits
	}

	report := v.search.Search(ctx, req.Query, hits, req.BypassCache)
	if report.Unavailable {
		return invalid(fmt.Sprintf("evidence search unavailable: %s", report.Err))
	}
	if len(report.Hits) == 0 {
		return invalid(fmt.Sprintf("no search evidence found for %q", req.Identifier))
	}

	reply, err := v.model.CompleteJSON(ctx, req.System, v.prompt(req, report.Hits))
	if err != nil {
		return invalid(fmt.Sprintf("validation model call failed: %v", err))
	}

	var verdict struct {
		IsValid         bool    `json:"is_valid"`
		ConfidenceScore float64 `json:"confidence_score"`
		Assessment      string  `json:"assessment"`
		Description     string  `json:"description"`
		PartDescription string  `json:"part_description"`
		SourcesCount    int     `json:"sources_count"`
	}
	if err := json.Unmarshal([]byte(stripFences(reply)), &verdict); err != nil {
		return invalid(fmt.Sprintf("validation reply was not valid JSON: %v", err))
	}

	description := verdict.Description
	if description == "" {
		description = verdict.PartDescription
	}
	return types.Validation{
		IsValid:         verdict.IsValid,
		ConfidenceScore: clamp(verdict.ConfidenceScore),
		Assessment:      verdict.Assessment,
		Description:     description,
		SourcesCount:    verdict.SourcesCount,
	}
}

func (v *Validator) prompt(req Request, hits []types.SearchHit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Equipment: %s\n", req.Equipment)
	fmt.Fprintf(&b, "Claim: %q is a real %s for this equipment.\n\n", req.Identifier, req.Subject)
	b.WriteString("Search evidence:\n")
	for _, h := range hits {
		fmt.Fprintf(&b, "%d. %s\n   %s\n   %s\n", h.Position, h.Title, h.URL, h.Snippet)
	}
	fmt.Fprintf(&b, "\nJudge whether the evidence confirms the claim. "+
		"Be conservative: if the evidence is thin or ambiguous, answer is_valid false. "+
		"Respond with a JSON object with exactly these keys: "+
		"is_valid (boolean), confidence_score (0.0-1.0), assessment, "+
		"description (the canonical %s description from the evidence, or empty), "+
		"sources_count (number of reliable sources that confirm the claim).",
		req.Subject)
	return b.String()
}

func invalid(assessment string) types.Validation {
	return types.Validation{IsValid: false, ConfidenceScore: 0, Assessment: assessment}
}

func stripFences(reply string) string {
	text := strings.TrimSpace(reply)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	if i := strings.LastIndex(text, "```"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

func clamp(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
