package agent

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/stockmesh/core"
)

func TestQueryBatch(t *testing.T) {
	a := newTestAgent(t, echoOncePolicy())

	queries := []string{"a", "b", "c", "a"}
	results := a.QueryBatch(context.Background(), queries, 2)

	require.Len(t, results, len(queries))
	for i, r := range results {
		assert.Equal(t, queries[i], r.Query)
		assert.Equal(t, core.TerminationAnswered, r.Metadata.TerminationReason)
	}
}

func TestBoundedTerminationProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("always-tool policy stops at the ceiling", prop.ForAll(
		func(ceiling, perRound int) bool {
			p := &countingPolicy{fn: func(_ context.Context, _ []core.Turn) (core.Decision, error) {
				reqs := make([]core.CapabilityRequest, perRound)
				for i := range reqs {
					reqs[i] = core.CapabilityRequest{Name: "echo_tool", Params: map[string]any{"message": "x"}}
				}
				return core.Decision{Requests: reqs}, nil
			}}
			a := newTestAgent(t, p, func(o *Options) { o.MaxIterations = ceiling })

			resp := a.Query(context.Background(), "q")

			return p.calls.Load() == int64(ceiling) &&
				resp.Metadata.Iterations == ceiling &&
				resp.Metadata.TerminationReason == core.TerminationMaxIterations &&
				len(resp.Invocations) == ceiling*perRound
		},
		gen.IntRange(1, 12),
		gen.IntRange(1, 4),
	))

	properties.TestingRun(t)
}
