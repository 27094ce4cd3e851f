// Package agent implements the bounded reasoning loop that answers stock
// questions.
//
// An Agent alternates between a Policy decision and capability dispatch
// through a capability.Registry:
//
//	INIT -> DECIDING -> EXECUTING -> DECIDING -> ... -> DONE
//
// The loop ends when the policy returns a final answer, when the round
// ceiling is reached, or when the policy fails. Capability failures never end
// the loop; they are recorded as error-flagged invocations and the policy
// sees them on the next round.
//
// Answered responses are stored in an injected cache.Cache keyed by the
// query fingerprint, so repeated questions skip the loop entirely.
package agent
