package stockmesh

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/stockmesh/agent"
	"github.com/hupe1980/stockmesh/core"
	"github.com/hupe1980/stockmesh/market"
	"github.com/hupe1980/stockmesh/model"
	"github.com/hupe1980/stockmesh/toolset"
)

func TestNew_RequiresModel(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestQuery_EchoRoundTrip(t *testing.T) {
	m := model.NewScriptedModel("scripted",
		model.Response{ToolCalls: []model.ToolCall{{ID: "c1", Name: toolset.EchoName, Arguments: `{"message":"Hello, Agent!"}`}}},
		model.Response{Text: "Echo: Hello, Agent!"},
	)

	sm, err := New(m)
	require.NoError(t, err)
	assert.Equal(t, []string{toolset.EchoName}, sm.Registry().Names())

	resp := sm.Query(context.Background(), "Echo back: Hello, Agent!", true)
	assert.Equal(t, core.TerminationAnswered, resp.Metadata.TerminationReason)
	assert.Len(t, resp.Invocations, 1)
	assert.Equal(t, "scripted", resp.Metadata.Model)

	again := sm.Query(context.Background(), "Echo back: Hello, Agent!", true)
	assert.True(t, again.Metadata.CacheHit)
	assert.Equal(t, resp.Answer, again.Answer)
	assert.Equal(t, 2, m.Calls())
}

func TestQuery_WithQuotesAndNoCache(t *testing.T) {
	price := 178.23
	quotes := market.ProviderFunc(func(_ context.Context, ticker string) (market.Quote, error) {
		return market.Quote{Ticker: ticker, Price: &price}, nil
	})

	calls := 0
	policy := agent.PolicyFunc(func(_ context.Context, turns []core.Turn) (core.Decision, error) {
		calls++
		if tr, ok := turns[len(turns)-1].(core.ToolResult); ok {
			return core.Decision{Text: tr.Invocation.OutputText()}, nil
		}
		return core.Decision{Requests: []core.CapabilityRequest{{Name: toolset.StockPriceName, Params: map[string]any{"ticker": "AAPL"}}}}, nil
	})

	sm, err := NewWithPolicy(policy, func(o *Options) {
		o.Quotes = quotes
		o.Agent = append(o.Agent, func(ao *agent.Options) { ao.MaxIterations = 3 })
	})
	require.NoError(t, err)

	resp := sm.Query(context.Background(), "AAPL price?", false)
	assert.Contains(t, resp.Answer, "178.23")

	sm.Query(context.Background(), "AAPL price?", false)
	assert.Equal(t, 4, calls)
}
