// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package arbiter decides between the two research legs. The arbitrating
// model never browses: it sees only the candidate material gathered
// upstream and must pick a winner, or decline, with stated reasoning.
package arbiter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/parts-engine/internal/llm"
	"github.com/pdiddy/parts-engine/pkg/types"
)

// Input carries everything the arbitrating model needs for one decision.
// System and Objective come from the domain descriptor; the candidate
// lists come from the two legs, already normalized.
type Input struct {
	// System is the domain persona prompt.
	System string

	// Objective states what a winning candidate looks like for this
	// domain, in one or two sentences.
	Objective string

	// IdentifierKey is the JSON key the model must use for the winning
	// identifier, e.g. "oem_part_number" or "supplier_name".
	IdentifierKey string

	// Equipment is the free-text equipment context (make, model, year,
	// part description).
	Equipment string

	// Search and Research are the normalized candidates from each leg.
	// Either may be empty.
	Search   []types.Candidate
	Research []types.Candidate
}

// Arbitrator runs find and rank decisions over a non-browsing model.
type Arbitrator struct {
	model llm.Completer
}

// New returns an arbitrator backed by the given completion model.
func New(model llm.Completer) *Arbitrator {
	return &Arbitrator{model: model}
}

// Select asks the model for the single best candidate across both legs.
// It never fails the run: a transport error or an unparseable reply
// yields a SourceNone decision whose Reasoning records what went wrong.
func (a *Arbitrator) Select(ctx context.Context, in Input) types.Decision {
	user := a.selectPrompt(in)

	reply, err := a.model.CompleteJSON(ctx, in.System, user)
	if err != nil {
		return declined(fmt.Sprintf("arbitration call failed: %v", err))
	}

	fields, ok := parseJSON(reply)
	if !ok {
		return declined(fmt.Sprintf("arbitration reply was not valid JSON: %s", truncate(reply, 120)))
	}

	decision := types.Decision{
		SelectedSource: sourceOf(stringField(fields, "selected_source")),
		Confidence:     clamp(floatField(fields, "confidence")),
		Reasoning:      stringField(fields, "reasoning"),
		Analysis:       stringField(fields, "analysis"),
	}

	identifier := stringField(fields, in.IdentifierKey)
	if decision.SelectedSource == types.SourceNone || identifier == "" {
		decision.Selected = nil
		decision.SelectedSource = types.SourceNone
		if decision.Reasoning == "" {
			decision.Reasoning = "arbitrator declined both result sets"
		}
		return decision
	}

	picked := a.matchCandidate(in, decision.SelectedSource, identifier)
	picked.Identifier = identifier
	if d := stringField(fields, "description"); d != "" {
		picked.Description = d
	}
	picked.Source = decision.SelectedSource
	picked.Confidence = decision.Confidence
	decision.Selected = &picked
	if decision.Confidence == 0 && decision.Reasoning == "" {
		decision.Reasoning = "arbitrator reported no confidence in the pick"
	}
	return decision
}

// Rank asks the model for up to max candidates ordered by relevance,
// for the domains that return lists (suppliers, manuals, providers).
// A failed call or reply returns an empty slice.
func (a *Arbitrator) Rank(ctx context.Context, in Input, max int) []types.RankedPick {
	if max <= 0 {
		return nil
	}
	user := a.rankPrompt(in, max)

	reply, err := a.model.CompleteJSON(ctx, in.System, user)
	if err != nil {
		return nil
	}
	fields, ok := parseJSON(reply)
	if !ok {
		return nil
	}

	rawPicks, _ := fields["picks"].([]any)
	picks := make([]types.RankedPick, 0, len(rawPicks))
	for _, raw := range rawPicks {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		identifier := stringField(entry, in.IdentifierKey)
		if identifier == "" {
			identifier = stringField(entry, "identifier")
		}
		if identifier == "" {
			continue
		}
		source := sourceOf(stringField(entry, "source"))
		cand := a.matchCandidate(in, source, identifier)
		cand.Identifier = identifier
		if d := stringField(entry, "description"); d != "" {
			cand.Description = d
		}
		conf := clamp(floatField(entry, "confidence"))
		cand.Confidence = conf
		picks = append(picks, types.RankedPick{
			Candidate:  cand,
			Confidence: conf,
			Reasoning:  stringField(entry, "reasoning"),
		})
		if len(picks) == max {
			break
		}
	}
	return picks
}

// matchCandidate finds the upstream candidate with the given identifier
// so the decision inherits its URLs, position, and attributes. Source
// acts as a hint; both lists are searched.
func (a *Arbitrator) matchCandidate(in Input, source types.Source, identifier string) types.Candidate {
	lists := [][]types.Candidate{in.Search, in.Research}
	if source == types.SourceAIResearch {
		lists = [][]types.Candidate{in.Research, in.Search}
	}
	for _, list := range lists {
		for _, c := range list {
			if strings.EqualFold(c.Identifier, identifier) {
				return c
			}
		}
	}
	return types.Candidate{Identifier: identifier, Source: source}
}

func (a *Arbitrator) selectPrompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Equipment: %s\n\n", in.Equipment)
	fmt.Fprintf(&b, "Task: %s\n\n", in.Objective)
	writeCandidates(&b, "Search engine candidates", in.Search)
	writeCandidates(&b, "AI research candidates", in.Research)
	fmt.Fprintf(&b, "Compare both result sets and pick the single best answer, "+
		"or decline if neither set contains a credible one. "+
		"Respond with a JSON object with exactly these keys: "+
		"selected_source (one of %q, %q, %q), %q (the winning identifier, or null), "+
		"description, confidence (0.0-1.0), reasoning, analysis.",
		types.SourceSearchEngine, types.SourceAIResearch, types.SourceNone, in.IdentifierKey)
	return b.String()
}

func (a *Arbitrator) rankPrompt(in Input, max int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Equipment: %s\n\n", in.Equipment)
	fmt.Fprintf(&b, "Task: %s\n\n", in.Objective)
	writeCandidates(&b, "Search engine candidates", in.Search)
	writeCandidates(&b, "AI research candidates", in.Research)
	fmt.Fprintf(&b, "Merge both result sets, drop duplicates and irrelevant entries, "+
		"and return the best matches ordered by relevance, at most %d. "+
		"Respond with a JSON object: {\"picks\": [{%q: ..., \"description\": ..., "+
		"\"source\": ..., \"confidence\": 0.0-1.0, \"reasoning\": ...}]}.",
		max, in.IdentifierKey)
	return b.String()
}

func writeCandidates(b *strings.Builder, label string, cands []types.Candidate) {
	if len(cands) == 0 {
		fmt.Fprintf(b, "%s: none\n\n", label)
		return
	}
	fmt.Fprintf(b, "%s:\n", label)
	for _, c := range cands {
		body, err := json.Marshal(c)
		if err != nil {
			continue
		}
		fmt.Fprintf(b, "%s\n", body)
	}
	b.WriteString("\n")
}

func declined(reason string) types.Decision {
	return types.Decision{
		SelectedSource: types.SourceNone,
		Confidence:     0,
		Reasoning:      reason,
	}
}

func sourceOf(s string) types.Source {
	switch types.Source(strings.ToLower(strings.TrimSpace(s))) {
	case types.SourceSearchEngine:
		return types.SourceSearchEngine
	case types.SourceAIResearch:
		return types.SourceAIResearch
	default:
		return types.SourceNone
	}
}

// parseJSON decodes a model reply into a field map, tolerating markdown
// code fences around the object.
func parseJSON(reply string) (map[string]any, bool) {
	text := strings.TrimSpace(reply)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if i := strings.LastIndex(text, "```"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, false
	}
	return fields, true
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return strings.TrimSpace(s)
}

func floatField(fields map[string]any, key string) float64 {
	switch v := fields[key].(type) {
	case float64:
		return v
	case json.Number:
		f, _ := v.Float64()
		return f
	default:
		return 0
	}
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

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
