// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package websearch queries the keyword-search API and returns ranked organic
// results. An unavailable backend degrades to an explicit empty report so the
// pipeline can continue on the AI-research leg alone.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/parts-engine/internal/httputil"
	"github.com/pdiddy/parts-engine/pkg/types"
)

// searchBase is the search API endpoint. Declared as a var so tests can
// substitute an httptest server.
var searchBase = "https://serpapi.com/search"

// now returns the current time; tests override it for deterministic
// cache-bypass tokens.
var now = time.Now

// Client issues keyword and image queries against the search API.
type Client struct {
	cfg  types.SearchConfig
	http *http.Client
}

// NewClient builds a search client from config. The HTTP client carries the
// configured timeout so a hung backend cannot stall a pipeline run.
func NewClient(cfg types.SearchConfig) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// organicResult mirrors the API's organic_results entries.
type organicResult struct {
	Position      int    `json:"position"`
	Title         string `json:"title"`
	Link          string `json:"link"`
	Snippet       string `json:"snippet"`
	DisplayedLink string `json:"displayed_link"`
}

// imageResult mirrors the API's images_results entries.
type imageResult struct {
	Position  int    `json:"position"`
	Title     string `json:"title"`
	Original  string `json:"original"`
	Thumbnail string `json:"thumbnail"`
	Source    string `json:"source"`
	Link      string `json:"link"`
	Width     int    `json:"original_width"`
	Height    int    `json:"original_height"`
}

type searchResponse struct {
	OrganicResults []organicResult `json:"organic_results"`
	ImagesResults  []imageResult   `json:"images_results"`
}

// Search issues a keyword query and returns up to count organic hits. It
// never returns an error: transport failures, timeouts, and malformed
// responses yield a report with Unavailable=true and an empty hit list, which
// callers must treat as "zero candidates from this source".
func (c *Client) Search(ctx context.Context, query string, count int, bypassCache bool) types.SearchReport {
	resp, err := c.request(ctx, "google", query, count, bypassCache)
	if err != nil {
		return types.SearchReport{Query: query, Unavailable: true, Err: err.Error()}
	}

	report := types.SearchReport{Query: query}
	for i, r := range resp.OrganicResults {
		if count > 0 && i >= count {
			break
		}
		report.Hits = append(report.Hits, types.SearchHit{
			Position:      i + 1,
			Title:         r.Title,
			URL:           r.Link,
			Snippet:       r.Snippet,
			DisplayedLink: r.DisplayedLink,
		})
	}
	return report
}

// SearchImages issues a query against the image-search engine variant.
// Failure degrades the same way Search does.
func (c *Client) SearchImages(ctx context.Context, query string, count int, bypassCache bool) types.SearchReport {
	resp, err := c.request(ctx, "google_images", query, count, bypassCache)
	if err != nil {
		return types.SearchReport{Query: query, Unavailable: true, Err: err.Error()}
	}

	report := types.SearchReport{Query: query}
	for i, r := range resp.ImagesResults {
		if count > 0 && i >= count {
			break
		}
		report.Images = append(report.Images, types.ImageHit{
			Position:  i + 1,
			Title:     r.Title,
			URL:       r.Original,
			Thumbnail: r.Thumbnail,
			Source:    r.Source,
			SourceURL: r.Link,
			Width:     r.Width,
			Height:    r.Height,
		})
	}
	return report
}

func (c *Client) request(ctx context.Context, engine, query string, count int, bypassCache bool) (*searchResponse, error) {
	if count <= 0 {
		count = c.cfg.MaxResults
	}

	params := url.Values{
		"api_key": {c.cfg.APIKey},
		"engine":  {engine},
		"q":       {query},
		"num":     {fmt.Sprintf("%d", count)},
		"gl":      {c.cfg.Country},
		"hl":      {c.cfg.Language},
	}
	if bypassCache {
		// A uniqueness token plus timestamp forces the backend to skip its
		// result cache.
		params.Set("no_cache", "true")
		params.Set("t", fmt.Sprintf("%d", now().Unix()))
		params.Set("uniq", uuid.NewString())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, c.http, req, 0)
	if err != nil {
		return nil, fmt.Errorf("search API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API returned HTTP %d", resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}
	return &sr, nil
}
