// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package arbiter

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/pdiddy/parts-engine/pkg/types"
)

type scriptedModel struct {
	reply      string
	err        error
	lastSystem string
	lastUser   string
}

func (m *scriptedModel) CompleteJSON(_ context.Context, system, user string) (string, error) {
	m.lastSystem = system
	m.lastUser = user
	return m.reply, m.err
}

func partInput() Input {
	return Input{
		System:        "You are an equipment parts specialist.",
		Objective:     "Identify the single correct OEM part number.",
		IdentifierKey: "oem_part_number",
		Equipment:     "Henny Penny 500 (2015): door seal",
		Search: []types.Candidate{
			{
				Identifier: "77560",
				Source:     types.SourceSearchEngine,
				Position:   1,
				SourceURLs: []string{"https://partstown.com/77560"},
			},
		},
		Research: []types.Candidate{
			{
				Identifier: "77561",
				Source:     types.SourceAIResearch,
				Confidence: 0.7,
			},
		},
	}
}

func TestSelectPicksSearchCandidate(t *testing.T) {
	model := &scriptedModel{reply: `{
		"selected_source": "search_engine",
		"oem_part_number": "77560",
		"description": "Door seal gasket",
		"confidence": 0.85,
		"reasoning": "Listed on an authorized distributor page.",
		"analysis": "Search hit cites a live product page; AI answer is adjacent model."
	}`}
	d := New(model).Select(context.Background(), partInput())

	if d.SelectedSource != types.SourceSearchEngine {
		t.Fatalf("SelectedSource = %q", d.SelectedSource)
	}
	if d.Selected == nil {
		t.Fatal("Selected = nil")
	}
	if d.Selected.Identifier != "77560" {
		t.Errorf("Identifier = %q", d.Selected.Identifier)
	}
	if d.Selected.Description != "Door seal gasket" {
		t.Errorf("Description = %q", d.Selected.Description)
	}
	// Winner inherits the upstream candidate's evidence.
	if len(d.Selected.SourceURLs) != 1 {
		t.Errorf("SourceURLs = %v, want inherited from search candidate", d.Selected.SourceURLs)
	}
	if d.Confidence != 0.85 {
		t.Errorf("Confidence = %f", d.Confidence)
	}
	if !strings.Contains(model.lastUser, "77561") {
		t.Error("prompt omitted the AI research candidate")
	}
}

func TestSelectDecline(t *testing.T) {
	model := &scriptedModel{reply: `{
		"selected_source": "none",
		"oem_part_number": null,
		"confidence": 0.0,
		"reasoning": "Neither set names a verifiable part."
	}`}
	d := New(model).Select(context.Background(), partInput())

	if d.SelectedSource != types.SourceNone {
		t.Errorf("SelectedSource = %q", d.SelectedSource)
	}
	if d.Selected != nil {
		t.Errorf("Selected = %+v, want nil", d.Selected)
	}
	if d.Reasoning == "" {
		t.Error("Reasoning is empty, want stated reason")
	}
}

// A zero-confidence decision always carries reasoning, even when the model
// returned a pick and left the reasoning field empty.
func TestSelectZeroConfidencePickGetsDefaultReasoning(t *testing.T) {
	model := &scriptedModel{reply: `{
		"selected_source": "search_engine",
		"oem_part_number": "77560",
		"confidence": 0
	}`}
	d := New(model).Select(context.Background(), partInput())

	if d.Selected == nil {
		t.Fatal("Selected = nil")
	}
	if d.Confidence != 0 {
		t.Fatalf("Confidence = %f", d.Confidence)
	}
	if d.Reasoning == "" {
		t.Error("Reasoning is empty for a zero-confidence decision")
	}
}

func TestSelectModelError(t *testing.T) {
	model := &scriptedModel{err: fmt.Errorf("rate limited")}
	d := New(model).Select(context.Background(), partInput())

	if d.SelectedSource != types.SourceNone {
		t.Errorf("SelectedSource = %q, want none on model error", d.SelectedSource)
	}
	if d.Selected != nil {
		t.Error("Selected != nil on model error")
	}
	if !strings.Contains(d.Reasoning, "rate limited") {
		t.Errorf("Reasoning = %q, want failure cause", d.Reasoning)
	}
}

func TestSelectUnparseableReply(t *testing.T) {
	model := &scriptedModel{reply: "I think the best part is 77560 because..."}
	d := New(model).Select(context.Background(), partInput())

	if d.SelectedSource != types.SourceNone || d.Selected != nil {
		t.Errorf("decision = %+v, want declined", d)
	}
	if d.Confidence != 0 {
		t.Errorf("Confidence = %f, want 0", d.Confidence)
	}
}

func TestSelectFencedReply(t *testing.T) {
	model := &scriptedModel{reply: "```json\n{\"selected_source\":\"ai_research\",\"oem_part_number\":\"77561\",\"confidence\":0.6,\"reasoning\":\"ok\"}\n```"}
	d := New(model).Select(context.Background(), partInput())

	if d.SelectedSource != types.SourceAIResearch {
		t.Fatalf("SelectedSource = %q", d.SelectedSource)
	}
	if d.Selected == nil || d.Selected.Identifier != "77561" {
		t.Errorf("Selected = %+v", d.Selected)
	}
}

func TestSelectNewIdentifierNotInLists(t *testing.T) {
	// The model may name an identifier it synthesized from the evidence;
	// the decision carries it with no inherited attributes.
	model := &scriptedModel{reply: `{"selected_source":"ai_research","oem_part_number":"EF02-102","confidence":0.5,"reasoning":"combined"}`}
	d := New(model).Select(context.Background(), partInput())

	if d.Selected == nil || d.Selected.Identifier != "EF02-102" {
		t.Fatalf("Selected = %+v", d.Selected)
	}
	if len(d.Selected.SourceURLs) != 0 {
		t.Errorf("SourceURLs = %v, want none", d.Selected.SourceURLs)
	}
}

func TestRank(t *testing.T) {
	in := Input{
		System:        "You are a supplier research specialist.",
		Objective:     "Rank suppliers that stock this part.",
		IdentifierKey: "supplier_name",
		Equipment:     "Henny Penny 500: door seal",
		Search: []types.Candidate{
			{Identifier: "Parts Town", Source: types.SourceSearchEngine, SourceURLs: []string{"https://partstown.com"}},
			{Identifier: "WebstaurantStore", Source: types.SourceSearchEngine},
		},
	}
	model := &scriptedModel{reply: `{"picks":[
		{"supplier_name":"Parts Town","source":"search_engine","confidence":0.9,"reasoning":"authorized"},
		{"supplier_name":"WebstaurantStore","source":"search_engine","confidence":0.6},
		{"supplier_name":"","confidence":0.4},
		{"supplier_name":"eBay","source":"search_engine","confidence":0.2}
	]}`}

	picks := New(model).Rank(context.Background(), in, 3)
	if len(picks) != 3 {
		t.Fatalf("len(picks) = %d, want 3 (empty identifier dropped, max honored)", len(picks))
	}
	if picks[0].Candidate.Identifier != "Parts Town" {
		t.Errorf("picks[0] = %q", picks[0].Candidate.Identifier)
	}
	if len(picks[0].Candidate.SourceURLs) != 1 {
		t.Errorf("picks[0].SourceURLs = %v, want inherited", picks[0].Candidate.SourceURLs)
	}
	if picks[1].Confidence != 0.6 {
		t.Errorf("picks[1].Confidence = %f", picks[1].Confidence)
	}
}

func TestRankFailures(t *testing.T) {
	in := partInput()
	for name, model := range map[string]*scriptedModel{
		"model error": {err: fmt.Errorf("boom")},
		"bad json":    {reply: "no picks here"},
		"no picks":    {reply: `{"picks":[]}`},
	} {
		t.Run(name, func(t *testing.T) {
			if picks := New(model).Rank(context.Background(), in, 5); len(picks) != 0 {
				t.Errorf("picks = %v, want empty", picks)
			}
		})
	}
}

func TestSourceOf(t *testing.T) {
	tests := map[string]types.Source{
		"search_engine": types.SourceSearchEngine,
		"AI_RESEARCH":   types.SourceAIResearch,
		" none ":        types.SourceNone,
		"gibberish":     types.SourceNone,
		"":              types.SourceNone,
	}
	for in, want := range tests {
		if got := sourceOf(in); got != want {
			t.Errorf("sourceOf(%q) = %q, want %q", in, got, want)
		}
	}
}
