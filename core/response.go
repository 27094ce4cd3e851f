package core

import (
	"maps"
	"slices"
	"time"
)

// TerminationReason classifies why the execution loop stopped.
type TerminationReason string

const (
	// TerminationAnswered means the policy produced a final answer.
	TerminationAnswered TerminationReason = "answered"
	// TerminationMaxIterations means the round ceiling was reached.
	TerminationMaxIterations TerminationReason = "max_iterations_reached"
	// TerminationError means the policy failed.
	TerminationError TerminationReason = "error"
)

// Metadata describes a finished run.
type Metadata struct {
	Iterations        int               `json:"iterations"`
	ElapsedMs         int64             `json:"execution_time_ms"`
	CacheHit          bool              `json:"cache_hit"`
	CapabilitiesUsed  []string          `json:"tools_used"`
	TerminationReason TerminationReason `json:"termination_reason"`
	ReasoningSteps    []string          `json:"reasoning_steps,omitempty"`
	Model             string            `json:"model,omitempty"`
	Error             string            `json:"error,omitempty"`
	Timestamp         time.Time         `json:"timestamp"`
}

// AgentResponse is the externally visible result of a query.
type AgentResponse struct {
	RunID       string                 `json:"run_id"`
	Query       string                 `json:"query"`
	Answer      string                 `json:"answer"`
	Invocations []CapabilityInvocation `json:"tool_results"`
	Metadata    Metadata               `json:"metadata"`
}

// Clone returns a deep enough copy for the response to be cached and
// handed out without sharing slices or parameter maps.
func (r AgentResponse) Clone() AgentResponse {
	out := r
	if r.Invocations != nil {
		out.Invocations = make([]CapabilityInvocation, len(r.Invocations))
		for i, inv := range r.Invocations {
			inv.Params = maps.Clone(inv.Params)
			out.Invocations[i] = inv
		}
	}
	out.Metadata.CapabilitiesUsed = slices.Clone(r.Metadata.CapabilitiesUsed)
	out.Metadata.ReasoningSteps = slices.Clone(r.Metadata.ReasoningSteps)
	return out
}
