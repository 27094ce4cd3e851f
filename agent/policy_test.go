package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/stockmesh/capability"
	"github.com/hupe1980/stockmesh/core"
	"github.com/hupe1980/stockmesh/model"
)

func TestNewPolicyError_Classification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want PolicyErrorKind
	}{
		{"rate limit", fmt.Errorf("%w: 429", model.ErrRateLimited), PolicyRateLimit},
		{"timeout", fmt.Errorf("%w: slow", model.ErrTimeout), PolicyTimeout},
		{"deadline", context.DeadlineExceeded, PolicyTimeout},
		{"malformed", model.ErrMalformedOutput, PolicyInvalidResponse},
		{"other", errors.New("connection refused"), PolicyProviderError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := NewPolicyError(tt.err)
			assert.Equal(t, tt.want, pe.Kind)
			assert.ErrorIs(t, pe, tt.err)
		})
	}

	existing := &PolicyError{Kind: PolicyTimeout, Err: errors.New("x")}
	assert.Same(t, existing, NewPolicyError(fmt.Errorf("wrapped: %w", existing)))
}

func TestModelPolicy_ToolCalls(t *testing.T) {
	m := model.NewScriptedModel("m", model.Response{
		Text: "checking",
		ToolCalls: []model.ToolCall{
			{ID: "call_1", Name: "get_stock_price", Arguments: `{"ticker":"AAPL"}`},
			{Name: "echo_tool", Arguments: ""},
		},
	})
	reg := capability.NewRegistry().MustRegister(echoCapability(), quoteCapability())
	p := NewModelPolicy(m, reg.Descriptors())

	turns := []core.Turn{core.UserQuery{Text: "AAPL?"}}
	d, err := p.Decide(context.Background(), turns)
	require.NoError(t, err)

	assert.Equal(t, "checking", d.Text)
	require.Len(t, d.Requests, 2)
	assert.Equal(t, core.CapabilityRequest{ID: "call_1", Name: "get_stock_price", Params: map[string]any{"ticker": "AAPL"}}, d.Requests[0])
	assert.NotEmpty(t, d.Requests[1].ID)
	assert.Empty(t, d.Requests[1].Params)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, turns, reqs[0].Turns)
	require.Len(t, reqs[0].Tools, 2)
	assert.Equal(t, "echo_tool", reqs[0].Tools[0].Name)
	assert.Equal(t, "scripted", m.Info().Provider)
	assert.Equal(t, "m", p.ModelName())
}

func TestModelPolicy_MalformedArguments(t *testing.T) {
	m := model.NewScriptedModel("m", model.Response{
		ToolCalls: []model.ToolCall{{ID: "1", Name: "echo_tool", Arguments: `{not json`}},
	})
	p := NewModelPolicy(m, nil)

	_, err := p.Decide(context.Background(), nil)
	var pe *PolicyError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, PolicyInvalidResponse, pe.Kind)
	assert.ErrorIs(t, err, model.ErrMalformedOutput)
}

func TestModelPolicy_EmptyCompletion(t *testing.T) {
	p := NewModelPolicy(model.NewScriptedModel("m", model.Response{Text: "  "}), nil)

	_, err := p.Decide(context.Background(), nil)
	var pe *PolicyError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, PolicyInvalidResponse, pe.Kind)
}

func TestModelPolicy_ProviderFailure(t *testing.T) {
	m := model.Func{Fn: func(context.Context, model.Request) (model.Response, error) {
		return model.Response{}, fmt.Errorf("%w: 503", model.ErrProvider)
	}}
	p := NewModelPolicy(m, nil)

	_, err := p.Decide(context.Background(), nil)
	var pe *PolicyError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, PolicyProviderError, pe.Kind)
}

func TestModelPolicy_EndToEnd(t *testing.T) {
	m := model.NewScriptedModel("m",
		model.Response{ToolCalls: []model.ToolCall{{ID: "c1", Name: "echo_tool", Arguments: `{"message":"Hello, Agent!"}`}}},
		model.Response{Text: "Echo: Hello, Agent!"},
	)
	reg := capability.NewRegistry().MustRegister(echoCapability())
	a, err := New(reg, NewModelPolicy(m, reg.Descriptors()))
	require.NoError(t, err)

	resp := a.Query(context.Background(), "Echo back: Hello, Agent!")
	assert.Equal(t, core.TerminationAnswered, resp.Metadata.TerminationReason)
	require.Len(t, resp.Invocations, 1)
	assert.Equal(t, "c1", resp.Invocations[0].ID)

	// The second model call sees the tool result correlated by id.
	reqs := m.Requests()
	require.Len(t, reqs, 2)
	last := reqs[1].Turns[len(reqs[1].Turns)-1]
	tr, ok := last.(core.ToolResult)
	require.True(t, ok)
	assert.Equal(t, "c1", tr.Invocation.ID)
	assert.Equal(t, "Echo: Hello, Agent!", tr.Invocation.Output)
}
