// Package capability implements the catalogue of operations the policy may
// request and their schema-validated dispatch.
//
// A Capability is a named operation with a JSON schema for its parameters.
// Capabilities are registered once at startup in a Registry; afterwards the
// registry is read-only and may be shared by concurrent queries without
// locking.
package capability

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/stockmesh/internal/schema"
)

// Capability is an operation the policy can request by name.
//
// Implementations should be safe for concurrent use; the same instance is
// shared by every query.
type Capability interface {
	// Name returns the unique identifier (snake_case).
	Name() string

	// Description tells the policy when to use the capability.
	Description() string

	// Schema returns the JSON schema of the accepted parameters.
	Schema() map[string]any

	// Invoke runs the capability with already validated parameters.
	Invoke(ctx context.Context, params map[string]any) (any, error)
}

// Descriptor is the static metadata of a registered capability.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"parameters"`
}

var (
	// ErrDuplicateCapability is returned when a name is registered twice.
	ErrDuplicateCapability = errors.New("duplicate capability")
	// ErrUnknownCapability is returned when dispatching an unregistered name.
	ErrUnknownCapability = errors.New("unknown capability")
	// ErrInvalidParameters is returned when parameters violate the schema.
	ErrInvalidParameters = errors.New("invalid parameters")
	// ErrInvalidCapability is returned when registering a malformed capability.
	ErrInvalidCapability = errors.New("invalid capability")
)

// ValidationError details a schema violation.
type ValidationError = schema.ValidationError

// ExecutionError wraps a failure raised by a capability handler. Message
// keeps the handler's original text.
type ExecutionError struct {
	Capability string `json:"capability"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("capability %s failed: %s", e.Capability, e.Message)
}

// Unwrap returns the handler error.
func (e *ExecutionError) Unwrap() error { return e.Err }

// NewExecutionError wraps err as a failure of the named capability.
func NewExecutionError(name string, err error) *ExecutionError {
	return &ExecutionError{Capability: name, Message: err.Error(), Err: err}
}
