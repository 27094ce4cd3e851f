// Package core holds the domain types shared by every stockmesh package:
//
//   - Turn and Transcript (the ordered record of one reasoning session)
//   - CapabilityRequest / CapabilityInvocation (requested and dispatched calls)
//   - Decision (the outcome of one policy step)
//   - AgentResponse (the externally visible result of a query)
//   - RoundLimiter (the iteration ceiling of the execution loop)
//
// The package has no behaviour beyond small helpers; execution lives in the
// agent package and dispatch in the capability package.
package core
