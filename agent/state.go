package agent

import (
	"time"

	"github.com/hupe1980/stockmesh/core"
)

// runState is the working state of one loop instance. It is never shared.
type runState struct {
	runID       string
	query       string
	transcript  *core.Transcript
	limiter     *core.RoundLimiter
	invocations []core.CapabilityInvocation
	used        []string
	seen        map[string]struct{}
	steps       []string
	start       time.Time
}

func newRunState(query, instructions string, maxIterations int, start time.Time) *runState {
	return &runState{
		runID:      core.NewID(),
		query:      query,
		transcript: core.NewTranscript(instructions, query),
		limiter:    core.NewRoundLimiter(maxIterations),
		seen:       make(map[string]struct{}),
		start:      start,
	}
}

// record appends inv to the audit list and the transcript.
func (st *runState) record(inv core.CapabilityInvocation) {
	st.invocations = append(st.invocations, inv)
	st.transcript.Append(core.ToolResult{Invocation: inv})

	if _, ok := st.seen[inv.Name]; !ok {
		st.seen[inv.Name] = struct{}{}
		st.used = append(st.used, inv.Name)
	}
}
