package agent

import (
	"github.com/hupe1980/stockmesh/core"
)

// aggregate projects the final run state into a response. The audit list
// is handed over as recorded; nothing is truncated.
func (a *Agent) aggregate(st *runState, reason core.TerminationReason, answer, errText string) core.AgentResponse {
	end := a.now()

	invocations := st.invocations
	if invocations == nil {
		invocations = []core.CapabilityInvocation{}
	}
	used := st.used
	if used == nil {
		used = []string{}
	}

	return core.AgentResponse{
		RunID:       st.runID,
		Query:       st.query,
		Answer:      answer,
		Invocations: invocations,
		Metadata: core.Metadata{
			Iterations:        st.limiter.Count(),
			ElapsedMs:         end.Sub(st.start).Milliseconds(),
			CacheHit:          false,
			CapabilitiesUsed:  used,
			TerminationReason: reason,
			ReasoningSteps:    st.steps,
			Model:             a.opts.ModelName,
			Error:             errText,
			Timestamp:         end,
		},
	}
}
