// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network
// requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout. The production value for search
	// calls is 30s.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "parts-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchConfig holds settings for the keyword-search backend.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey authenticates against the search API. Required; absence is a
	// fatal startup condition, not a per-request error.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxResults is the number of organic results requested per query
	// (default 10).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// Country is the result locale country code (default "us").
	Country string `json:"country" yaml:"country"`

	// Language is the result locale language code (default "en").
	Language string `json:"language" yaml:"language"`
}

// AIConfig holds settings for components that call the model API.
type AIConfig struct {
	// APIKey authenticates against the model API. Required at startup.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// ResearchModel is the browsing-capable model used for the AI research
	// leg (default "gpt-4o").
	ResearchModel string `json:"research_model" yaml:"research_model"`

	// ArbiterModel is the non-browsing model used for arbitration,
	// validation, and fallback completions (default "gpt-4o-mini").
	ArbiterModel string `json:"arbiter_model" yaml:"arbiter_model"`

	// Temperature for all model calls (default 0.1).
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// Timeout bounds each model call. Generous because the browsing call
	// may itself be searching the web (default 90s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// PipelineConfig holds thresholds shared by the five pipeline instances.
type PipelineConfig struct {
	// MaxRanked caps rank-flow output (manuals, providers; default 5).
	MaxRanked int `json:"max_ranked" yaml:"max_ranked"`

	// MaxSimilar caps the similar-candidates list (default 5).
	MaxSimilar int `json:"max_similar" yaml:"max_similar"`

	// SimilarMinConfidence filters similar candidates (default 0.4).
	SimilarMinConfidence float64 `json:"similar_min_confidence" yaml:"similar_min_confidence"`

	// ValidationMinConfidence forces escalation below this validation score
	// even when the pick otherwise looked acceptable (default 0.3).
	ValidationMinConfidence float64 `json:"validation_min_confidence" yaml:"validation_min_confidence"`

	// RequestBudget bounds one whole pipeline run. When exceeded the
	// orchestrator returns a best-effort envelope from whatever completed
	// (default 4m).
	RequestBudget time.Duration `json:"request_budget" yaml:"request_budget"`
}

// DatabaseConfig holds settings for the parts store.
type DatabaseConfig struct {
	// Path is the SQLite database file (default "parts.db").
	Path string `json:"path" yaml:"path"`
}

// ServerConfig holds settings for the HTTP surface.
type ServerConfig struct {
	// Addr is the listen address (default ":7777").
	Addr string `json:"addr" yaml:"addr"`

	// AllowedOrigins lists CORS origins; "*" allows any.
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`
}

// Config groups all component configurations.
type Config struct {
	Search   SearchConfig   `json:"search" yaml:"search"`
	AI       AIConfig       `json:"ai" yaml:"ai"`
	Pipeline PipelineConfig `json:"pipeline" yaml:"pipeline"`
	Database DatabaseConfig `json:"database" yaml:"database"`
	Server   ServerConfig   `json:"server" yaml:"server"`
}

// Defaults fills zero-valued fields with production defaults.
func (c *Config) Defaults() {
	if c.Search.Timeout <= 0 {
		c.Search.Timeout = 30 * time.Second
	}
	if c.Search.UserAgent == "" {
		c.Search.UserAgent = "parts-engine/0.1"
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = 10
	}
	if c.Search.Country == "" {
		c.Search.Country = "us"
	}
	if c.Search.Language == "" {
		c.Search.Language = "en"
	}
	if c.AI.ResearchModel == "" {
		c.AI.ResearchModel = "gpt-4o"
	}
	if c.AI.ArbiterModel == "" {
		c.AI.ArbiterModel = "gpt-4o-mini"
	}
	if c.AI.Temperature <= 0 {
		c.AI.Temperature = 0.1
	}
	if c.AI.Timeout <= 0 {
		c.AI.Timeout = 90 * time.Second
	}
	if c.Pipeline.MaxRanked <= 0 {
		c.Pipeline.MaxRanked = 5
	}
	if c.Pipeline.MaxSimilar <= 0 {
		c.Pipeline.MaxSimilar = 5
	}
	if c.Pipeline.SimilarMinConfidence <= 0 {
		c.Pipeline.SimilarMinConfidence = 0.4
	}
	if c.Pipeline.ValidationMinConfidence <= 0 {
		c.Pipeline.ValidationMinConfidence = 0.3
	}
	if c.Pipeline.RequestBudget <= 0 {
		c.Pipeline.RequestBudget = 4 * time.Minute
	}
	if c.Database.Path == "" {
		c.Database.Path = "parts.db"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":7777"
	}
}
