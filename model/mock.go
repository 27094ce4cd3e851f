package model

import (
	"context"
	"fmt"
	"sync"
)

// ScriptedModel replays a fixed list of responses, one per call, and records
// every request. It is safe for concurrent use.
type ScriptedModel struct {
	mu        sync.Mutex
	info      Info
	responses []Response
	requests  []Request
}

// NewScriptedModel constructs a ScriptedModel with tool support enabled.
func NewScriptedModel(name string, responses ...Response) *ScriptedModel {
	return &ScriptedModel{
		info: Info{
			Name:          name,
			Provider:      "scripted",
			SupportsTools: true,
		},
		responses: responses,
	}
}

// Generate implements Model. Once the script is exhausted every call fails
// with ErrProvider.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx := len(m.requests)
	m.requests = append(m.requests, req)

	if idx >= len(m.responses) {
		return Response{}, fmt.Errorf("%w: script exhausted after %d responses", ErrProvider, len(m.responses))
	}

	return m.responses[idx], nil
}

// Calls returns how many times Generate was invoked.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of the recorded requests.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Info implements Model.
func (m *ScriptedModel) Info() Info { return m.info }
