package model

import (
	"context"

	"github.com/hupe1980/stockmesh/core"
)

// ToolDefinition exposes a callable capability to the model.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// ToolCall is a capability call requested by the model. Arguments holds the
// raw JSON object emitted by the provider.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Request is the provider independent model input. Turns is the full
// transcript; adapters map each turn kind to their own message format.
type Request struct {
	Turns []core.Turn      `json:"turns"`
	Tools []ToolDefinition `json:"tools,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Response is a complete model completion.
type Response struct {
	ID           string      `json:"id"`
	Text         string      `json:"text"`
	ToolCalls    []ToolCall  `json:"tool_calls,omitempty"`
	FinishReason string      `json:"finish_reason"`
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required to drive a policy step or a
// single-shot generation.
type Model interface {
	Generate(ctx context.Context, req Request) (Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// Func adapts a function to Model.
type Func struct {
	Fn       func(ctx context.Context, req Request) (Response, error)
	Metadata Info
}

// Generate implements Model.
func (f Func) Generate(ctx context.Context, req Request) (Response, error) { return f.Fn(ctx, req) }

// Info implements Model.
func (f Func) Info() Info { return f.Metadata }
