// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package airesearch asks a browsing-capable model to research a question on
// the live web and returns a structured candidate answer with citation URLs.
//
// The model runtime does not guarantee a uniform response layout: the answer
// may arrive as a JSON string, as a list of typed content blocks with separate
// citation annotations, or as a plain object. Each known layout is normalized
// by its own function into the same ResearchReport shape; unknown layouts fall
// into an explicit unparsed variant and trigger the non-browsing fallback
// completion, which answers from training knowledge alone and is recorded as
// the reduced-trust code path.
package airesearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/parts-engine/internal/llm"
	"github.com/pdiddy/parts-engine/pkg/types"
)

// responsesBase is the browsing-capable model endpoint. Declared as a var so
// tests can substitute an httptest server.
var responsesBase = "https://api.openai.com/v1/responses"

// Method values recorded in ResearchReport.Method.
const (
	MethodWebSearch = "web_search"
	MethodFallback  = "completion_fallback"
)

// Request describes one research question for a domain.
type Request struct {
	// System is the specialist persona for the fallback completion.
	System string

	// Prompt is the full instruction prompt listing the fields the model
	// must return as strict JSON.
	Prompt string

	// Input is the condensed single-line instruction for the browsing call.
	Input string

	// ExtractText recovers structured fields from a prose answer when the
	// browsing call returns text instead of JSON. Nil means prose answers
	// are treated as malformed and routed to the fallback.
	ExtractText func(text string, sourceURLs []string) (map[string]any, float64)
}

// Client performs the browsing research call with a non-browsing fallback.
type Client struct {
	httpc    *http.Client
	cfg      types.AIConfig
	fallback llm.Completer
}

// New builds a researcher. fallback handles the second-chance completion when
// the browsing call fails or cannot be parsed.
func New(cfg types.AIConfig, fallback llm.Completer) *Client {
	return &Client{
		httpc:    &http.Client{Timeout: cfg.Timeout},
		cfg:      cfg,
		fallback: fallback,
	}
}

// Research runs the browsing call, normalizes whichever response shape came
// back, and falls back to a plain completion when the browsing path fails.
// It never returns an error: a run that failed on both paths yields
// Succeeded=false with confidence 0 and the failure reason.
func (c *Client) Research(ctx context.Context, req Request) types.ResearchReport {
	norm, err := c.browse(ctx, req)
	if err != nil {
		return c.completeFallback(ctx, req, fmt.Sprintf("browsing call failed: %v", err))
	}

	report, ok := c.reportFromText(req, norm.text, norm.sourceURLs)
	if !ok {
		return c.completeFallback(ctx, req, "browsing response not parseable")
	}
	report.Method = MethodWebSearch
	return report
}

// --- browsing call ---

// normalizedAnswer is the common form every known response shape reduces to.
type normalizedAnswer struct {
	text       string
	sourceURLs []string
}

type browseRequest struct {
	Model string          `json:"model"`
	Input string          `json:"input"`
	Tools []browseToolDef `json:"tools"`
}

type browseToolDef struct {
	Type string `json:"type"`
}

func (c *Client) browse(ctx context.Context, req Request) (normalizedAnswer, error) {
	body, err := json.Marshal(browseRequest{
		Model: c.cfg.ResearchModel,
		Input: req.Input,
		Tools: []browseToolDef{{Type: "web_search"}},
	})
	if err != nil {
		return normalizedAnswer{}, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, responsesBase, bytes.NewReader(body))
	if err != nil {
		return normalizedAnswer{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return normalizedAnswer{}, fmt.Errorf("model API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return normalizedAnswer{}, fmt.Errorf("model API returned %d: %s", resp.StatusCode, truncate(string(b), 200))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return normalizedAnswer{}, fmt.Errorf("reading response: %w", err)
	}

	norm, ok := normalizeResponse(raw)
	if !ok {
		return normalizedAnswer{}, fmt.Errorf("unrecognized response shape")
	}
	return norm, nil
}

// rawResponse holds every field any known response shape populates. Fields
// are RawMessage because "output" has been observed both as a block list and
// as a plain string.
type rawResponse struct {
	Output  json.RawMessage `json:"output"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Content json.RawMessage `json:"content"`
}

type outputBlock struct {
	Type    string         `json:"type"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type        string       `json:"type"`
	Text        string       `json:"text"`
	Annotations []annotation `json:"annotations"`
}

type annotation struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// normalizeResponse reduces a raw response body to the common answer form.
// It tries each known shape in turn: typed block list, chat-style choices,
// then plain string. Unknown shapes report ok=false rather than being
// silently stringified.
func normalizeResponse(raw []byte) (normalizedAnswer, bool) {
	var rr rawResponse
	if err := json.Unmarshal(raw, &rr); err != nil {
		return normalizedAnswer{}, false
	}

	if len(rr.Output) > 0 {
		if norm, ok := normalizeBlocks(rr.Output); ok {
			return norm, true
		}
		if norm, ok := normalizeString(rr.Output); ok {
			return norm, true
		}
	}
	if len(rr.Choices) > 0 && rr.Choices[0].Message.Content != "" {
		return normalizedAnswer{text: rr.Choices[0].Message.Content}, true
	}
	if len(rr.Content) > 0 {
		if norm, ok := normalizeString(rr.Content); ok {
			return norm, true
		}
	}
	return normalizedAnswer{}, false
}

// normalizeBlocks handles the structured layout: a list of typed blocks where
// message blocks carry output_text content with url_citation annotations.
func normalizeBlocks(raw json.RawMessage) (normalizedAnswer, bool) {
	var blocks []outputBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return normalizedAnswer{}, false
	}

	var text strings.Builder
	var urls []string
	seen := make(map[string]bool)
	for _, b := range blocks {
		if b.Type != "message" {
			continue
		}
		for _, cb := range b.Content {
			if cb.Type != "output_text" {
				continue
			}
			text.WriteString(cb.Text)
			for _, a := range cb.Annotations {
				if a.URL != "" && !seen[a.URL] {
					seen[a.URL] = true
					urls = append(urls, a.URL)
				}
			}
		}
	}
	if text.Len() == 0 {
		return normalizedAnswer{}, false
	}
	return normalizedAnswer{text: text.String(), sourceURLs: urls}, true
}

// normalizeString handles the layout where the answer is one JSON string.
func normalizeString(raw json.RawMessage) (normalizedAnswer, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return normalizedAnswer{}, false
	}
	return normalizedAnswer{text: s}, true
}

// --- field extraction ---

// reportFromText turns the normalized answer text into a report. JSON answers
// become the field map directly; prose answers go through the domain's text
// extractor when one exists.
func (c *Client) reportFromText(req Request, text string, sourceURLs []string) (types.ResearchReport, bool) {
	if fields, ok := parseJSONObject(text); ok {
		report := types.ResearchReport{
			Fields:     fields,
			Confidence: floatField(fields, "confidence"),
			SourceURLs: mergeSources(fields, sourceURLs),
			Succeeded:  true,
		}
		return report, true
	}

	if req.ExtractText != nil {
		fields, confidence := req.ExtractText(text, sourceURLs)
		if fields != nil {
			return types.ResearchReport{
				Fields:     fields,
				Confidence: confidence,
				SourceURLs: sourceURLs,
				Succeeded:  true,
			}, true
		}
	}
	return types.ResearchReport{}, false
}

// completeFallback is the reduced-trust path: a plain JSON completion from
// training knowledge, recorded as MethodFallback.
func (c *Client) completeFallback(ctx context.Context, req Request, reason string) types.ResearchReport {
	raw, err := c.fallback.CompleteJSON(ctx, req.System, req.Prompt)
	if err != nil {
		return types.ResearchReport{
			Succeeded: false,
			Method:    MethodFallback,
			Err:       fmt.Sprintf("%s; fallback completion failed: %v", reason, err),
		}
	}

	fields, ok := parseJSONObject(raw)
	if !ok {
		return types.ResearchReport{
			Succeeded: false,
			Method:    MethodFallback,
			Err:       fmt.Sprintf("%s; fallback response not valid JSON", reason),
		}
	}

	return types.ResearchReport{
		Fields:     fields,
		Confidence: floatField(fields, "confidence"),
		SourceURLs: mergeSources(fields, nil),
		Succeeded:  true,
		Method:     MethodFallback,
	}
}

// parseJSONObject parses text as a JSON object, tolerating markdown code
// fences around the body.
func parseJSONObject(text string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(trimmed), &m); err != nil {
		return nil, false
	}
	return m, true
}

// floatField reads a numeric field from a decoded JSON object, clamped to [0,1].
func floatField(m map[string]any, key string) float64 {
	v, ok := m[key]
	if !ok {
		return 0
	}
	f, ok := v.(float64)
	if !ok {
		return 0
	}
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// mergeSources combines a "sources" field from the model's JSON with
// annotation URLs, preserving order and dropping duplicates. Source entries
// may be strings or {name,url} objects.
func mergeSources(fields map[string]any, annotationURLs []string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(u string) {
		if u != "" && !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}

	for _, u := range annotationURLs {
		add(u)
	}
	if raw, ok := fields["sources"].([]any); ok {
		for _, entry := range raw {
			switch v := entry.(type) {
			case string:
				add(v)
			case map[string]any:
				if u, ok := v["url"].(string); ok {
					add(u)
				} else if n, ok := v["name"].(string); ok {
					add(n)
				}
			}
		}
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
