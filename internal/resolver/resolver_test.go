// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolver

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/pdiddy/parts-engine/internal/partsdb"
	"github.com/pdiddy/parts-engine/internal/pipeline"
	"github.com/pdiddy/parts-engine/internal/validate"
	"github.com/pdiddy/parts-engine/pkg/types"
)

type fakeStore struct {
	record    *partsdb.PartRecord
	lookupErr error
	saved     []partsdb.PartRecord
}

func (f *fakeStore) Lookup(context.Context, types.Query) (*partsdb.PartRecord, error) {
	return f.record, f.lookupErr
}

func (f *fakeStore) SavePartMatch(_ context.Context, rec partsdb.PartRecord) (bool, error) {
	for _, existing := range f.saved {
		if existing.OEMPartNumber == rec.OEMPartNumber {
			return false, nil
		}
	}
	f.saved = append(f.saved, rec)
	return true, nil
}

// fakeFinder returns a distinct resolution per query text so the manual and
// web methods can diverge.
type fakeFinder struct {
	byQueryTerm map[string]types.Resolution
	queries     []string
}

func (f *fakeFinder) Find(ctx context.Context, q types.Query, d pipeline.Descriptor) types.Resolution {
	query := d.BuildQuery(ctx, q)
	f.queries = append(f.queries, query)
	for term, res := range f.byQueryTerm {
		if strings.Contains(query, term) {
			return res
		}
	}
	return types.Resolution{Query: q}
}

type fakeValidator struct {
	verdict types.Validation
	calls   int
}

func (f *fakeValidator) Validate(context.Context, validate.Request) types.Validation {
	f.calls++
	return f.verdict
}

type scriptedModel struct {
	reply string
	err   error
	calls int
}

func (m *scriptedModel) CompleteJSON(context.Context, string, string) (string, error) {
	m.calls++
	return m.reply, m.err
}

func accepted(id string, confidence float64, validation *types.Validation) types.Resolution {
	return types.Resolution{
		Decision: types.Decision{
			Selected:       &types.Candidate{Identifier: id, Description: id + " description"},
			SelectedSource: types.SourceSearchEngine,
			Confidence:     confidence,
		},
		Validation: validation,
		Success:    true,
	}
}

func valid(confidence float64) *types.Validation {
	return &types.Validation{IsValid: true, ConfidenceScore: confidence}
}

func query() types.Query {
	return types.Query{Description: "door seal", Make: "Henny Penny", Model: "500", Domain: types.DomainPart}
}

func TestResolveCompositeOrdersMethods(t *testing.T) {
	// Web has higher method confidence, but manual wins on the composite
	// because of its stronger validation.
	finder := &fakeFinder{byQueryTerm: map[string]types.Resolution{
		"parts manual":    accepted("77560", 0.80, valid(0.9)), // composite 0.89
		"OEM part number": accepted("77561", 0.85, valid(0.1)), // composite 0.86
	}}
	r := New(nil, finder, nil, nil, nil)

	resp := r.Resolve(context.Background(), query(), Options{SkipDatabase: true})
	if !resp.Success || resp.Best == nil {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Best.PartNumber != "77560" {
		t.Errorf("Best = %q, want composite winner 77560", resp.Best.PartNumber)
	}
	if resp.Best.Composite != 0.80+0.1*0.9 {
		t.Errorf("Composite = %f", resp.Best.Composite)
	}
}

func TestResolveDatabaseHitSkipsNothingButWins(t *testing.T) {
	store := &fakeStore{record: &partsdb.PartRecord{
		Description: "door seal", OEMPartNumber: "77560", Confidence: 0.9,
	}}
	finder := &fakeFinder{}
	val := &fakeValidator{verdict: types.Validation{IsValid: true, ConfidenceScore: 0.8}}
	r := New(store, finder, val, nil, nil)

	resp := r.Resolve(context.Background(), query(), Options{})
	if resp.Best == nil || resp.Best.Method != MethodDatabase {
		t.Fatalf("Best = %+v, want database method", resp.Best)
	}
	if val.calls != 1 {
		t.Errorf("validator calls = %d, want database pick re-validated", val.calls)
	}
	// Search methods still ran for comparison.
	if len(finder.queries) != 2 {
		t.Errorf("finder queries = %v, want manual and web searches", finder.queries)
	}
	if len(store.saved) != 0 {
		t.Error("database hit re-saved")
	}
}

func TestResolveBypassCacheSkipsDatabase(t *testing.T) {
	store := &fakeStore{record: &partsdb.PartRecord{OEMPartNumber: "77560", Confidence: 0.9}}
	finder := &fakeFinder{}
	r := New(store, finder, &fakeValidator{}, nil, nil)

	q := query()
	q.BypassCache = true
	resp := r.Resolve(context.Background(), q, Options{})
	for _, m := range resp.Methods {
		if m.Method == MethodDatabase {
			t.Fatal("database method ran despite bypass_cache")
		}
	}
}

func TestResolveComparisonAgreement(t *testing.T) {
	finder := &fakeFinder{byQueryTerm: map[string]types.Resolution{
		"parts manual":    accepted("77560", 0.8, valid(0.9)),
		"OEM part number": accepted("77560", 0.7, valid(0.8)),
	}}
	r := New(nil, finder, nil, &scriptedModel{}, nil)

	resp := r.Resolve(context.Background(), query(), Options{SkipDatabase: true})
	if resp.Comparison == nil {
		t.Fatal("Comparison = nil with two picks")
	}
	if !resp.Comparison.Agree {
		t.Error("Agree = false for identical picks")
	}
	if resp.Comparison.Differentiation != "" {
		t.Error("Differentiation produced for agreeing picks")
	}
}

func TestResolveComparisonMismatchBothValidated(t *testing.T) {
	finder := &fakeFinder{byQueryTerm: map[string]types.Resolution{
		"parts manual":    accepted("77560", 0.8, valid(0.9)),
		"OEM part number": accepted("77561", 0.8, valid(0.8)),
	}}
	model := &scriptedModel{reply: `{"analysis":"77561 supersedes 77560 for serials after 2018","recommended":"77561"}`}
	r := New(nil, finder, nil, model, nil)

	resp := r.Resolve(context.Background(), query(), Options{SkipDatabase: true})
	if resp.Comparison == nil || resp.Comparison.Agree {
		t.Fatalf("Comparison = %+v, want mismatch", resp.Comparison)
	}
	if resp.Comparison.Differentiation == "" {
		t.Error("Differentiation empty when both picks validated")
	}
	if model.calls != 1 {
		t.Errorf("model calls = %d", model.calls)
	}
}

func TestResolveComparisonMismatchOneValidated(t *testing.T) {
	finder := &fakeFinder{byQueryTerm: map[string]types.Resolution{
		"parts manual":    accepted("77560", 0.8, &types.Validation{IsValid: false}),
		"OEM part number": accepted("77561", 0.8, valid(0.8)),
	}}
	model := &scriptedModel{}
	r := New(nil, finder, nil, model, nil)

	resp := r.Resolve(context.Background(), query(), Options{SkipDatabase: true})
	if model.calls != 0 {
		t.Error("differentiation ran with only one validated pick")
	}
	// The validated pick wins.
	if resp.Best == nil || resp.Best.PartNumber != "77561" {
		t.Errorf("Best = %+v, want the validated pick", resp.Best)
	}
}

func TestResolveSaveGate(t *testing.T) {
	tests := []struct {
		name       string
		res        types.Resolution
		wantSaved  bool
	}{
		{"validated and confident", accepted("77560", 0.8, valid(0.9)), true},
		{"below confidence floor", accepted("77560", 0.4, valid(0.9)), false},
		{"unvalidated", accepted("77560", 0.8, &types.Validation{IsValid: false}), false},
		{"no validation run", accepted("77560", 0.8, nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			finder := &fakeFinder{byQueryTerm: map[string]types.Resolution{
				"OEM part number": tt.res,
			}}
			r := New(store, finder, nil, nil, nil)
			resp := r.Resolve(context.Background(), query(), Options{SkipDatabase: true, SkipManualSearch: true})
			if resp.Saved != tt.wantSaved {
				t.Errorf("Saved = %v, want %v", resp.Saved, tt.wantSaved)
			}
			if got := len(store.saved); got != btoi(tt.wantSaved) {
				t.Errorf("stored rows = %d", got)
			}
		})
	}
}

func TestResolveSaveIdempotent(t *testing.T) {
	store := &fakeStore{}
	finder := &fakeFinder{byQueryTerm: map[string]types.Resolution{
		"OEM part number": accepted("77560", 0.8, valid(0.9)),
	}}
	r := New(store, finder, nil, nil, nil)
	opts := Options{SkipDatabase: true, SkipManualSearch: true}

	first := r.Resolve(context.Background(), query(), opts)
	second := r.Resolve(context.Background(), query(), opts)
	if !first.Saved {
		t.Error("first run not saved")
	}
	if second.Saved {
		t.Error("second run reported a new insert")
	}
	if len(store.saved) != 1 {
		t.Errorf("stored rows = %d, want 1", len(store.saved))
	}
}

func TestResolveNothingFoundEscalates(t *testing.T) {
	similar := []types.Candidate{{Identifier: "77561", Confidence: 0.6}}
	finder := &fakeFinder{byQueryTerm: map[string]types.Resolution{
		"OEM part number": {Escalated: true, Similar: similar},
	}}
	r := New(nil, finder, nil, nil, nil)

	resp := r.Resolve(context.Background(), query(), Options{SkipDatabase: true})
	if resp.Success {
		t.Error("Success = true with no pick")
	}
	if !resp.Escalated {
		t.Error("Escalated = false")
	}
	if len(resp.Similar) != 1 {
		t.Errorf("Similar = %+v, want carried from the web run", resp.Similar)
	}
}

// A kept best pick whose pipeline run escalated supplementarily still surfaces
// the similar candidates at the top level of the envelope.
func TestResolveSupplementarySimilarSurfacesInEnvelope(t *testing.T) {
	supplemented := accepted("77560", 0.85, valid(0.9))
	supplemented.Escalated = true
	supplemented.Similar = []types.Candidate{{Identifier: "77560-KIT", Confidence: 0.6}}
	finder := &fakeFinder{byQueryTerm: map[string]types.Resolution{
		"OEM part number": supplemented,
	}}
	r := New(nil, finder, nil, nil, nil)

	resp := r.Resolve(context.Background(), query(), Options{SkipDatabase: true, SkipManualSearch: true})
	if !resp.Success || resp.Best == nil || resp.Best.PartNumber != "77560" {
		t.Fatalf("Best = %+v", resp.Best)
	}
	if !resp.Escalated {
		t.Error("Escalated = false, supplementary search ran")
	}
	if len(resp.Similar) != 1 || resp.Similar[0].Identifier != "77560-KIT" {
		t.Errorf("Similar = %+v, want lifted from the winning method", resp.Similar)
	}
}

func TestResolveDatabaseErrorDegrades(t *testing.T) {
	store := &fakeStore{lookupErr: fmt.Errorf("disk gone")}
	finder := &fakeFinder{byQueryTerm: map[string]types.Resolution{
		"OEM part number": accepted("77560", 0.8, valid(0.9)),
	}}
	r := New(store, finder, nil, nil, nil)

	resp := r.Resolve(context.Background(), query(), Options{SkipManualSearch: true})
	if !resp.Success {
		t.Fatal("Success = false, database error must not abort resolution")
	}
	if resp.Best.Method != MethodWebSearch {
		t.Errorf("Best.Method = %q", resp.Best.Method)
	}
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
