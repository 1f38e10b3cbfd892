// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm wraps the model API's chat-completions surface behind a small
// JSON-mode interface. The arbitrator, the validator, and the research
// fallback all go through Completer so tests can supply a mock.
package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/shared"

	"github.com/pdiddy/parts-engine/pkg/types"
)

// Completer is a non-browsing model call returning a strict-JSON object body.
type Completer interface {
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}

// Client calls the chat-completions API with response_format=json_object.
type Client struct {
	api         openai.Client
	model       string
	temperature float64
	cfg         types.AIConfig
}

// NewClient builds a JSON-mode completion client for the configured arbiter
// model. Construct once at process start and pass by handle; components never
// reach for process-wide client state.
func NewClient(cfg types.AIConfig) *Client {
	return &Client{
		api:         openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:       cfg.ArbiterModel,
		temperature: cfg.Temperature,
		cfg:         cfg,
	}
}

// WithModel returns a copy of the client pinned to a different model.
func (c *Client) WithModel(model string) *Client {
	clone := *c
	clone.model = model
	return &clone
}

// CompleteJSON sends one system+user exchange and returns the raw JSON text
// of the first choice. The response_format constraint makes the model emit a
// single JSON object; callers still parse defensively.
func (c *Client) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: param.NewOpt(c.temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	completion, err := c.api.Chat.Completions.New(ctx, params, option.WithRequestTimeout(c.cfg.Timeout))
	if err != nil {
		return "", fmt.Errorf("model API error: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}
