package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/stockmesh/capability"
	"github.com/hupe1980/stockmesh/core"
	"github.com/hupe1980/stockmesh/model"
)

// Policy decides the next step of a run from the transcript so far. It must
// behave as a pure function of its input from the loop's point of view.
type Policy interface {
	Decide(ctx context.Context, transcript []core.Turn) (core.Decision, error)
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(ctx context.Context, transcript []core.Turn) (core.Decision, error)

// Decide implements Policy.
func (f PolicyFunc) Decide(ctx context.Context, transcript []core.Turn) (core.Decision, error) {
	return f(ctx, transcript)
}

// PolicyErrorKind classifies policy failures.
type PolicyErrorKind string

const (
	PolicyRateLimit       PolicyErrorKind = "rate_limit"
	PolicyTimeout         PolicyErrorKind = "timeout"
	PolicyProviderError   PolicyErrorKind = "provider_error"
	PolicyInvalidResponse PolicyErrorKind = "invalid_response"
)

// PolicyError is a fatal policy failure. It ends the run with termination
// reason "error".
type PolicyError struct {
	Kind PolicyErrorKind
	Err  error
}

// Error implements the error interface.
func (e *PolicyError) Error() string {
	return fmt.Sprintf("policy %s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *PolicyError) Unwrap() error { return e.Err }

// NewPolicyError classifies err using the model error sentinels. An err that
// already is a *PolicyError is returned as is.
func NewPolicyError(err error) *PolicyError {
	var pe *PolicyError
	if errors.As(err, &pe) {
		return pe
	}

	kind := PolicyProviderError
	switch {
	case errors.Is(err, model.ErrRateLimited):
		kind = PolicyRateLimit
	case errors.Is(err, model.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		kind = PolicyTimeout
	case errors.Is(err, model.ErrMalformedOutput):
		kind = PolicyInvalidResponse
	}

	return &PolicyError{Kind: kind, Err: err}
}

// ModelPolicy drives decisions with a tool-calling model. The registry's
// descriptors are advertised as tools on every call.
type ModelPolicy struct {
	model model.Model
	tools []model.ToolDefinition
}

// NewModelPolicy creates a policy for m offering the given capabilities.
func NewModelPolicy(m model.Model, descriptors []capability.Descriptor) *ModelPolicy {
	tools := make([]model.ToolDefinition, 0, len(descriptors))
	for _, d := range descriptors {
		tools = append(tools, model.ToolDefinition{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Schema,
		})
	}

	return &ModelPolicy{model: m, tools: tools}
}

// ModelName returns the name of the backing model.
func (p *ModelPolicy) ModelName() string { return p.model.Info().Name }

// Decide implements Policy.
func (p *ModelPolicy) Decide(ctx context.Context, transcript []core.Turn) (core.Decision, error) {
	resp, err := p.model.Generate(ctx, model.Request{Turns: transcript, Tools: p.tools})
	if err != nil {
		return core.Decision{}, NewPolicyError(err)
	}

	decision := core.Decision{Text: resp.Text}

	for _, tc := range resp.ToolCalls {
		params := map[string]any{}
		if strings.TrimSpace(tc.Arguments) != "" {
			if err := json.Unmarshal([]byte(tc.Arguments), &params); err != nil {
				return core.Decision{}, &PolicyError{
					Kind: PolicyInvalidResponse,
					Err:  fmt.Errorf("%w: arguments of %s: %v", model.ErrMalformedOutput, tc.Name, err),
				}
			}
			if params == nil {
				params = map[string]any{}
			}
		}

		id := tc.ID
		if id == "" {
			id = core.NewID()
		}

		decision.Requests = append(decision.Requests, core.CapabilityRequest{
			ID:     id,
			Name:   tc.Name,
			Params: params,
		})
	}

	if decision.IsFinal() && strings.TrimSpace(decision.Text) == "" {
		return core.Decision{}, &PolicyError{
			Kind: PolicyInvalidResponse,
			Err:  fmt.Errorf("%w: empty completion", model.ErrMalformedOutput),
		}
	}

	return decision, nil
}
