// Package openai implements model.Model on top of the OpenAI Chat
// Completions API with function calling. Transcript turns are mapped to
// chat messages; capability results become tool messages correlated by the
// request id.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/stockmesh/core"
	"github.com/hupe1980/stockmesh/model"
)

// Options configure the OpenAI model adapter.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Model wraps the OpenAI Chat Completions API behind model.Model.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewClient builds an SDK client. An empty baseURL keeps the SDK default;
// an empty apiKey falls back to OPENAI_API_KEY.
func NewClient(apiKey, baseURL string, extra ...option.RequestOption) *openai.Client {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	opts = append(opts, extra...)

	client := openai.NewClient(opts...)
	return &client
}

// NewModel creates a model using a client configured from the environment.
func NewModel(optFns ...func(o *Options)) *Model {
	return NewModelFromClient(NewClient("", ""), optFns...)
}

// NewModelFromClient creates a model from an existing client.
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:               "gpt-4-turbo-preview",
		Temperature:         0.1,
		MaxCompletionTokens: 1000,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Generate implements model.Model.
func (m *Model) Generate(ctx context.Context, req model.Request) (model.Response, error) {
	params, err := m.buildParams(req)
	if err != nil {
		return model.Response{}, err
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return model.Response{}, classify(err)
	}

	if len(resp.Choices) == 0 {
		return model.Response{}, fmt.Errorf("%w: no choices returned", model.ErrMalformedOutput)
	}

	ch0 := resp.Choices[0]
	out := model.Response{
		ID:           resp.ID,
		Text:         ch0.Message.Content,
		FinishReason: ch0.FinishReason,
		Usage: &model.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	for _, tc := range ch0.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, model.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return out, nil
}

// Info implements model.Model.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "openai",
		SupportsTools: true,
	}
}

func (m *Model) buildParams(req model.Request) (openai.ChatCompletionNewParams, error) {
	messages, err := buildMessages(req.Turns)
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}

	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               m.opts.Model,
		Temperature:         openai.Float(m.opts.Temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	}

	if len(req.Tools) == 0 {
		return params, nil
	}

	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, def := range req.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  def.Parameters,
			},
		}
	}
	params.Tools = tools

	return params, nil
}

// buildMessages maps transcript turns to chat messages in order.
func buildMessages(turns []core.Turn) ([]openai.ChatCompletionMessageParamUnion, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))

	for _, turn := range turns {
		switch t := turn.(type) {
		case core.Instruction:
			messages = append(messages, openai.SystemMessage(t.Text))
		case core.UserQuery:
			messages = append(messages, openai.UserMessage(t.Text))
		case core.PolicyOutput:
			if len(t.Requests) == 0 {
				messages = append(messages, openai.AssistantMessage(t.Text))
				continue
			}
			calls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(t.Requests))
			for _, r := range t.Requests {
				args, err := json.Marshal(r.Params)
				if err != nil {
					return nil, fmt.Errorf("encode arguments of %s: %w", r.Name, err)
				}
				calls = append(calls, openai.ChatCompletionMessageToolCallParam{
					ID:   r.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      r.Name,
						Arguments: string(args),
					},
				})
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Role:      "assistant",
					ToolCalls: calls,
				},
			})
		case core.ToolResult:
			messages = append(messages, openai.ToolMessage(t.Invocation.OutputText(), t.Invocation.ID))
		}
	}

	return messages, nil
}

// classify maps SDK errors onto the model sentinels.
func classify(err error) error {
	if c := model.ClassifyContext(err); c != nil {
		return fmt.Errorf("%w: openai: %v", c, err)
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: openai status %d: %v", model.ClassifyStatus(apiErr.StatusCode), apiErr.StatusCode, err)
	}

	return fmt.Errorf("%w: openai: %v", model.ErrProvider, err)
}
