// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline implements the dual-search-and-arbitration flow shared by
// the five lookup domains: a keyword search and an AI web-research call run
// concurrently, a non-browsing arbitrator reconciles the two, a validator
// re-checks the pick, and an escalation policy decides whether to widen the
// search to similar candidates.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/pdiddy/parts-engine/internal/airesearch"
	"github.com/pdiddy/parts-engine/internal/arbiter"
	"github.com/pdiddy/parts-engine/internal/validate"
	"github.com/pdiddy/parts-engine/pkg/types"
)

// SearchClient is the slice of the search backend the pipeline needs.
type SearchClient interface {
	Search(ctx context.Context, query string, count int, bypassCache bool) types.SearchReport
	SearchImages(ctx context.Context, query string, count int, bypassCache bool) types.SearchReport
}

// Researcher runs the AI web-research leg.
type Researcher interface {
	Research(ctx context.Context, req airesearch.Request) types.ResearchReport
}

// Arbiter reconciles candidates without browsing.
type Arbiter interface {
	Select(ctx context.Context, in arbiter.Input) types.Decision
	Rank(ctx context.Context, in arbiter.Input, max int) []types.RankedPick
}

// Validator independently re-checks one identifier.
type Validator interface {
	Validate(ctx context.Context, req validate.Request) types.Validation
}

// Pipeline is the generic dual-search orchestrator. One Pipeline serves all
// five domains; per-run state lives on the stack, so concurrent runs are
// isolated.
type Pipeline struct {
	search    SearchClient
	research  Researcher
	arbiter   Arbiter
	validator Validator
	quality   QualityScorer
	cfg       types.PipelineConfig
	hits      int
	progress  io.Writer
}

// New builds a pipeline. A nil quality scorer gets the default keyword
// scorer; a nil progress writer discards output. searchHits is the organic
// result count per search-leg query.
func New(search SearchClient, research Researcher, arb Arbiter, validator Validator,
	quality QualityScorer, cfg types.PipelineConfig, searchHits int, progress io.Writer) *Pipeline {
	if quality == nil {
		quality = NewKeywordScorer()
	}
	if progress == nil {
		progress = io.Discard
	}
	if searchHits <= 0 {
		searchHits = 10
	}
	return &Pipeline{
		search:    search,
		research:  research,
		arbiter:   arb,
		validator: validator,
		quality:   quality,
		cfg:       cfg,
		hits:      searchHits,
		progress:  progress,
	}
}

// Find runs one find-flow pipeline: dual search, arbitration, validation,
// escalation. It always returns a complete envelope; component failures
// degrade to empty legs or a declined decision, never an error.
func (p *Pipeline) Find(ctx context.Context, q types.Query, d Descriptor) types.Resolution {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.RequestBudget)
	defer cancel()

	search, research := p.runLegs(ctx, q, d)
	searchCands := d.SearchCandidates(search)
	researchCands := d.ResearchCandidates(research)
	p.logf("%s: %d search candidates, %d research candidates\n", d.Domain, len(searchCands), len(researchCands))

	decision := p.arbiter.Select(ctx, arbiter.Input{
		System:        d.System,
		Objective:     d.Objective,
		IdentifierKey: d.IdentifierKey,
		Equipment:     equipmentContext(q),
		Search:        searchCands,
		Research:      researchCands,
	})

	if decision.Selected == nil && d.FirstResultFallback && len(searchCands) > 0 {
		first := searchCands[0]
		first.Confidence = 0.1
		decision = types.Decision{
			Selected:       &first,
			SelectedSource: types.SourceSearchEngine,
			Confidence:     0.1,
			Reasoning:      "arbitration produced no pick; fell back to the first search result",
		}
	}

	var validation *types.Validation
	if decision.Selected != nil {
		score := p.quality.Score(decision.Selected.Identifier)
		p.logf("%s: quality score %.1f for %q\n", d.Domain, score, decision.Selected.Identifier)
		if d.ValidationQuery != nil {
			v := p.validator.Validate(ctx, validate.Request{
				System:      d.System,
				Identifier:  decision.Selected.Identifier,
				Subject:     d.Subject,
				Equipment:   equipmentContext(q),
				Query:       d.ValidationQuery(q, decision.Selected.Identifier),
				BypassCache: q.BypassCache,
			})
			validation = &v
		}
	}

	outcome := NewEscalationPolicy(p.quality, p.cfg.ValidationMinConfidence).
		Decide(q, decision.Selected, validation, d.HasAlternates(research))
	p.logf("%s: escalation verdict: %s\n", d.Domain, outcome.Reason)

	if outcome.DropPick {
		decision.Selected = nil
		decision.SelectedSource = types.SourceNone
		decision.Confidence = 0
		decision.Reasoning = outcome.Reason
	}
	if outcome.Caveat != "" {
		decision.Reasoning = decision.Reasoning + " Caveat: " + outcome.Caveat
	}

	res := types.Resolution{
		Query:            q,
		Search:           search,
		Research:         research,
		Decision:         decision,
		Validation:       validation,
		Escalated:        outcome.Escalate && d.SimilarQuery != nil,
		EscalationReason: outcome.Reason,
		Success:          outcome.AcceptPick && decision.Selected != nil,
	}
	if res.Escalated {
		res.Similar = p.findSimilar(ctx, q, d)
	}
	return res
}

// Rank runs one rank-flow pipeline (manuals, service providers): dual
// search, then a top-K arbitration with no validation step.
func (p *Pipeline) Rank(ctx context.Context, q types.Query, d Descriptor) types.Ranking {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.RequestBudget)
	defer cancel()

	search, research := p.runLegs(ctx, q, d)
	searchCands := d.SearchCandidates(search)
	researchCands := d.ResearchCandidates(research)

	ranking := types.Ranking{Query: q, Search: search, Research: research}
	if len(searchCands) == 0 && len(researchCands) == 0 {
		if search.Unavailable && !research.Succeeded {
			ranking.Err = fmt.Sprintf("both sources failed: search: %s; research: %s", search.Err, research.Err)
		}
		return ranking
	}

	ranking.Picks = p.arbiter.Rank(ctx, arbiter.Input{
		System:        d.System,
		Objective:     d.Objective,
		IdentifierKey: d.IdentifierKey,
		Equipment:     equipmentContext(q),
		Search:        searchCands,
		Research:      researchCands,
	}, p.cfg.MaxRanked)
	ranking.Success = len(ranking.Picks) > 0
	return ranking
}

// runLegs executes the two source calls concurrently. Each leg reports its
// own failure in-band, so a dead source means zero candidates, not an
// aborted run.
func (p *Pipeline) runLegs(ctx context.Context, q types.Query, d Descriptor) (types.SearchReport, types.ResearchReport) {
	queryText := d.BuildQuery(ctx, q)

	var (
		wg       sync.WaitGroup
		search   types.SearchReport
		research types.ResearchReport
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		if d.Images {
			search = p.search.SearchImages(ctx, queryText, p.hits, q.BypassCache)
		} else {
			search = p.search.Search(ctx, queryText, p.hits, q.BypassCache)
		}
	}()
	go func() {
		defer wg.Done()
		research = p.research.Research(ctx, d.Research(q))
	}()
	wg.Wait()
	return search, research
}

// findSimilar widens the search to compatible/alternate candidates, ranks
// them, filters by the configured confidence floor, and caps the list.
func (p *Pipeline) findSimilar(ctx context.Context, q types.Query, d Descriptor) []types.Candidate {
	report := p.search.Search(ctx, d.SimilarQuery(q), p.hits, q.BypassCache)
	cands := d.SearchCandidates(report)
	if len(cands) == 0 {
		return nil
	}

	picks := p.arbiter.Rank(ctx, arbiter.Input{
		System:        d.System,
		Objective:     "Identify compatible, alternate, or interchange candidates for the original request. Score each independently.",
		IdentifierKey: d.IdentifierKey,
		Equipment:     equipmentContext(q),
		Search:        cands,
	}, p.cfg.MaxSimilar)

	similar := make([]types.Candidate, 0, len(picks))
	for _, pick := range picks {
		if pick.Confidence < p.cfg.SimilarMinConfidence {
			continue
		}
		c := pick.Candidate
		c.Confidence = pick.Confidence
		similar = append(similar, c)
	}
	sort.SliceStable(similar, func(i, j int) bool {
		return similar[i].Confidence > similar[j].Confidence
	})
	if len(similar) > p.cfg.MaxSimilar {
		similar = similar[:p.cfg.MaxSimilar]
	}
	return similar
}

func (p *Pipeline) logf(format string, args ...any) {
	fmt.Fprintf(p.progress, format, args...)
}
