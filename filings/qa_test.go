package filings

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/stockmesh/core"
	"github.com/hupe1980/stockmesh/model"
)

func TestQAEngine_Ask(t *testing.T) {
	ctx := context.Background()
	ix := NewInMemoryIndex()
	require.NoError(t, ix.Add(ctx, seedChunks()...))

	m := model.NewScriptedModel("qa-model", model.Response{
		Text:  "iPhone revenue was $201.2 billion [1].",
		Usage: &model.TokenUsage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
	})
	engine := NewQAEngine(ix, m)

	ans, err := engine.Ask(ctx, "What was iPhone revenue?", Filter{Ticker: "AAPL"}, 3)
	require.NoError(t, err)

	assert.Equal(t, "iPhone revenue was $201.2 billion [1].", ans.Text)
	require.Len(t, ans.Sources, 2)
	assert.Equal(t, 1, ans.Sources[0].ID)
	assert.Equal(t, "AAPL 10-K - Financial Statements", ans.Sources[0].Citation)
	assert.Equal(t, "qa-model", ans.Metadata.Model)
	assert.Equal(t, int64(120), ans.Metadata.TotalTokens)
	assert.Equal(t, 2, ans.Metadata.SourcesCount)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Turns, 2)
	assert.Equal(t, core.Instruction{Text: SystemPrompt}, reqs[0].Turns[0])
	user, ok := reqs[0].Turns[1].(core.UserQuery)
	require.True(t, ok)
	assert.True(t, strings.Contains(user.Text, "[1] Total net sales"))
}

func TestQAEngine_NoContext(t *testing.T) {
	m := model.NewScriptedModel("qa-model")
	engine := NewQAEngine(NewInMemoryIndex(), m)

	ans, err := engine.Ask(context.Background(), "anything", Filter{}, 3)
	require.NoError(t, err)
	assert.Equal(t, NoContextResponse, ans.Text)
	assert.Empty(t, ans.Sources)
	assert.Equal(t, 0, m.Calls())
}

type failingRetriever struct{}

func (failingRetriever) Search(context.Context, string, Filter, int) ([]Chunk, error) {
	return nil, errors.New("index offline")
}

func TestQAEngine_Errors(t *testing.T) {
	_, err := NewQAEngine(failingRetriever{}, model.NewScriptedModel("m")).Ask(context.Background(), "q", Filter{}, 3)
	assert.ErrorContains(t, err, "index offline")

	ix := NewInMemoryIndex()
	require.NoError(t, ix.Add(context.Background(), seedChunks()...))
	_, err = NewQAEngine(ix, model.NewScriptedModel("m")).Ask(context.Background(), "iPhone", Filter{}, 3)
	assert.ErrorIs(t, err, model.ErrProvider)
}
