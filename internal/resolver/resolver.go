// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolver orchestrates full part resolution: a database lookup, a
// manual-flavored dual search, and a web dual search, each independently
// validated, composite-scored, and reconciled into one answer.
package resolver

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pdiddy/parts-engine/internal/llm"
	"github.com/pdiddy/parts-engine/internal/partsdb"
	"github.com/pdiddy/parts-engine/internal/pipeline"
	"github.com/pdiddy/parts-engine/internal/validate"
	"github.com/pdiddy/parts-engine/pkg/types"
)

// Resolution methods, in the order they are attempted.
const (
	MethodDatabase     = "database"
	MethodManualSearch = "manual_search"
	MethodWebSearch    = "web_search"
)

// validationWeight scales the validation confidence into the composite sort
// key: composite = method confidence + 0.1 x validation confidence.
const validationWeight = 0.1

// saveMinConfidence gates the persistence side effect.
const saveMinConfidence = 0.5

// Options selects which resolution methods run. The zero value runs all.
type Options struct {
	SkipDatabase     bool `json:"skip_database,omitempty"`
	SkipManualSearch bool `json:"skip_manual_search,omitempty"`
	SkipWebSearch    bool `json:"skip_web_search,omitempty"`
}

// MethodResult is one resolution method's outcome.
type MethodResult struct {
	Method      string            `json:"method" yaml:"method"`
	PartNumber  string            `json:"part_number,omitempty" yaml:"part_number,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Confidence  float64           `json:"confidence" yaml:"confidence"`
	Validation  *types.Validation `json:"validation,omitempty" yaml:"validation,omitempty"`

	// Composite is the authoritative sort key.
	Composite float64 `json:"composite" yaml:"composite"`

	// Resolution is the full pipeline envelope for search methods, kept
	// for audit. Nil for the database method.
	Resolution *types.Resolution `json:"resolution,omitempty" yaml:"resolution,omitempty"`
}

// Comparison records a disagreement between the manual and web methods.
type Comparison struct {
	ManualPick string `json:"manual_pick" yaml:"manual_pick"`
	WebPick    string `json:"web_pick" yaml:"web_pick"`
	Agree      bool   `json:"agree" yaml:"agree"`

	// Differentiation is the model's analysis of the difference, produced
	// only when both picks validated.
	Differentiation string `json:"differentiation,omitempty" yaml:"differentiation,omitempty"`
}

// Response is the full part-resolution envelope.
type Response struct {
	Query      types.Query       `json:"query" yaml:"query"`
	Methods    []MethodResult    `json:"methods" yaml:"methods"`
	Best       *MethodResult     `json:"best,omitempty" yaml:"best,omitempty"`
	Comparison *Comparison       `json:"comparison,omitempty" yaml:"comparison,omitempty"`
	Similar    []types.Candidate `json:"similar,omitempty" yaml:"similar,omitempty"`
	Escalated  bool              `json:"escalated" yaml:"escalated"`
	Saved      bool              `json:"saved" yaml:"saved"`
	Success    bool              `json:"success" yaml:"success"`
}

// PartStore is the slice of the parts database the resolver needs.
type PartStore interface {
	Lookup(ctx context.Context, q types.Query) (*partsdb.PartRecord, error)
	SavePartMatch(ctx context.Context, rec partsdb.PartRecord) (bool, error)
}

// Finder runs one find-flow pipeline.
type Finder interface {
	Find(ctx context.Context, q types.Query, d pipeline.Descriptor) types.Resolution
}

// Resolver reconciles the three resolution methods.
type Resolver struct {
	store     PartStore
	finder    Finder
	validator pipeline.Validator
	model     llm.Completer
	progress  io.Writer
}

// New builds a resolver. store may be nil when no database is configured;
// a nil progress writer discards output.
func New(store PartStore, finder Finder, validator pipeline.Validator, model llm.Completer, progress io.Writer) *Resolver {
	if progress == nil {
		progress = io.Discard
	}
	return &Resolver{store: store, finder: finder, validator: validator, model: model, progress: progress}
}

// Resolve runs the selected methods and assembles the envelope. It never
// returns an error: method failures degrade to absent method results.
func (r *Resolver) Resolve(ctx context.Context, q types.Query, opts Options) Response {
	resp := Response{Query: q}

	if !opts.SkipDatabase && r.store != nil && !q.BypassCache {
		if m := r.databaseMethod(ctx, q); m != nil {
			resp.Methods = append(resp.Methods, *m)
		}
	}

	var manual, web *MethodResult
	if !opts.SkipManualSearch {
		manual = r.searchMethod(ctx, q, MethodManualSearch, manualPartDomain())
		if manual != nil {
			resp.Methods = append(resp.Methods, *manual)
		}
	}
	if !opts.SkipWebSearch {
		web = r.searchMethod(ctx, q, MethodWebSearch, pipeline.PartDomain())
		if web != nil {
			resp.Methods = append(resp.Methods, *web)
		}
	}

	resp.Comparison = r.compare(ctx, q, manual, web)

	sort.SliceStable(resp.Methods, func(i, j int) bool {
		return resp.Methods[i].Composite > resp.Methods[j].Composite
	})
	for i := range resp.Methods {
		if resp.Methods[i].PartNumber != "" {
			resp.Best = &resp.Methods[i]
			break
		}
	}
	resp.Success = resp.Best != nil

	if resp.Best == nil {
		resp.Escalated = true
		resp.Similar = firstSimilar(manual, web)
	} else if res := resp.Best.Resolution; res != nil && res.Escalated {
		// A supplementary similar search ran alongside the kept pick;
		// surface its results instead of burying them in the method audit.
		resp.Escalated = true
		resp.Similar = res.Similar
	}

	if resp.Best != nil && r.store != nil && r.shouldSave(resp.Best) {
		inserted, err := r.store.SavePartMatch(ctx, partsdb.PartRecord{
			Description:   q.Description,
			Make:          q.Make,
			Model:         q.Model,
			OEMPartNumber: resp.Best.PartNumber,
			Manufacturer:  q.Make,
			Confidence:    resp.Best.Confidence,
			Validated:     resp.Best.Validation != nil && resp.Best.Validation.IsValid,
		})
		if err != nil {
			fmt.Fprintf(r.progress, "resolver: save failed for %q: %v\n", resp.Best.PartNumber, err)
		}
		resp.Saved = inserted
	}
	return resp
}

// databaseMethod checks the parts store before any network call.
func (r *Resolver) databaseMethod(ctx context.Context, q types.Query) *MethodResult {
	rec, err := r.store.Lookup(ctx, q)
	if err != nil {
		fmt.Fprintf(r.progress, "resolver: database lookup failed: %v\n", err)
		return nil
	}
	if rec == nil {
		return nil
	}
	m := &MethodResult{
		Method:      MethodDatabase,
		PartNumber:  rec.OEMPartNumber,
		Description: rec.Description,
		Confidence:  rec.Confidence,
	}
	v := r.validatePick(ctx, q, rec.OEMPartNumber)
	m.Validation = v
	m.Composite = composite(m.Confidence, v)
	return m
}

// searchMethod runs one dual-search pipeline and reduces it to a method
// result. A run that ended without an accepted pick still contributes its
// envelope (and any similar candidates) for audit.
func (r *Resolver) searchMethod(ctx context.Context, q types.Query, method string, d pipeline.Descriptor) *MethodResult {
	res := r.finder.Find(ctx, q, d)
	m := &MethodResult{Method: method, Resolution: &res}
	if pick := res.Accepted(); pick != nil {
		m.PartNumber = pick.Identifier
		m.Description = pick.Description
		m.Confidence = res.Decision.Confidence
		m.Validation = res.Validation
		m.Composite = composite(m.Confidence, res.Validation)
	}
	return m
}

func (r *Resolver) validatePick(ctx context.Context, q types.Query, identifier string) *types.Validation {
	if r.validator == nil {
		return nil
	}
	d := pipeline.PartDomain()
	v := r.validator.Validate(ctx, validate.Request{
		System:      d.System,
		Identifier:  identifier,
		Subject:     d.Subject,
		Equipment:   q.Equipment() + ": " + q.Description,
		Query:       d.ValidationQuery(q, identifier),
		BypassCache: q.BypassCache,
	})
	return &v
}

// compare builds the comparison block when the manual and web methods both
// picked a part. When the picks differ and both validated, the model is
// asked to explain the difference.
func (r *Resolver) compare(ctx context.Context, q types.Query, manual, web *MethodResult) *Comparison {
	if manual == nil || web == nil || manual.PartNumber == "" || web.PartNumber == "" {
		return nil
	}
	cmp := &Comparison{
		ManualPick: manual.PartNumber,
		WebPick:    web.PartNumber,
		Agree:      strings.EqualFold(manual.PartNumber, web.PartNumber),
	}
	if cmp.Agree {
		return cmp
	}

	bothValid := manual.Validation != nil && manual.Validation.IsValid &&
		web.Validation != nil && web.Validation.IsValid
	if bothValid && r.model != nil {
		prompt := fmt.Sprintf("Equipment: %s: %s. Two research methods returned different OEM part numbers: "+
			"the manual-based search found %q (%s) and the web search found %q (%s). "+
			"Both validated against independent evidence. Explain the likely difference between the two parts "+
			"(revision, sub-assembly, serial-number range) and which a buyer should order. "+
			"Respond with a JSON object: {\"analysis\": ..., \"recommended\": ...}.",
			q.Equipment(), q.Description,
			manual.PartNumber, manual.Description, web.PartNumber, web.Description)
		if reply, err := r.model.CompleteJSON(ctx, "You are an equipment parts specialist.", prompt); err == nil {
			cmp.Differentiation = reply
		}
	}
	return cmp
}

// shouldSave gates the persistence side effect: a non-empty pick that
// cleared validation and the confidence floor, produced by a search method
// (database hits are already stored).
func (r *Resolver) shouldSave(best *MethodResult) bool {
	if best.Method == MethodDatabase || best.PartNumber == "" {
		return false
	}
	if best.Confidence < saveMinConfidence {
		return false
	}
	return best.Validation != nil && best.Validation.IsValid
}

func composite(methodConfidence float64, v *types.Validation) float64 {
	if v == nil {
		return methodConfidence
	}
	return methodConfidence + validationWeight*v.ConfidenceScore
}

func firstSimilar(results ...*MethodResult) []types.Candidate {
	for _, m := range results {
		if m != nil && m.Resolution != nil && len(m.Resolution.Similar) > 0 {
			return m.Resolution.Similar
		}
	}
	return nil
}

// manualPartDomain is the part domain steered toward parts-manual and
// catalog sources instead of storefront listings.
func manualPartDomain() pipeline.Descriptor {
	d := pipeline.PartDomain()
	d.BuildQuery = func(_ context.Context, q types.Query) string {
		return strings.TrimSpace(fmt.Sprintf("%s parts manual catalog %s part number", q.Equipment(), q.Description))
	}
	return d
}
