package capability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/panics"

	"github.com/hupe1980/stockmesh/internal/schema"
	"github.com/hupe1980/stockmesh/logging"
)

type entry struct {
	capability Capability
	descriptor Descriptor
	validator  *schema.Validator
}

// Registry holds registered capabilities and dispatches requests to them.
//
// Register is meant for startup; Dispatch, Descriptors and Lookup only read
// and may be called concurrently once registration is complete.
type Registry struct {
	entries map[string]*entry
	order   []string
	logger  logging.Logger
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Logger logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Registry{
		entries: make(map[string]*entry),
		logger:  logging.OrNoOp(opts.Logger),
	}
}

// Register adds a capability. It fails with ErrDuplicateCapability when the
// name is taken and with ErrInvalidCapability when the name is empty or the
// schema does not compile.
func (r *Registry) Register(c Capability) error {
	if c == nil || c.Name() == "" {
		return fmt.Errorf("%w: capability name is required", ErrInvalidCapability)
	}

	name := c.Name()
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCapability, name)
	}

	v, err := schema.Compile(name, c.Schema())
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidCapability, name, err)
	}

	r.entries[name] = &entry{
		capability: c,
		descriptor: Descriptor{Name: name, Description: c.Description(), Schema: c.Schema()},
		validator:  v,
	}
	r.order = append(r.order, name)

	return nil
}

// MustRegister is Register for startup wiring; it panics on error.
func (r *Registry) MustRegister(cs ...Capability) *Registry {
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
	return r
}

// Lookup returns the capability registered under name.
func (r *Registry) Lookup(name string) (Capability, bool) {
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.capability, true
}

// Descriptors returns the descriptors in registration order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].descriptor)
	}
	return out
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int { return len(r.order) }

// Dispatch validates params against the named capability's schema and
// invokes it synchronously.
//
// Error semantics:
//
//	unknown name        -> wraps ErrUnknownCapability
//	schema violation    -> wraps ErrInvalidParameters (and *ValidationError)
//	handler error/panic -> *ExecutionError carrying the original message
func (r *Registry) Dispatch(ctx context.Context, name string, params map[string]any) (any, error) {
	e, ok := r.entries[name]
	if !ok {
		r.logger.Warn("capability.dispatch.unknown", "capability", name)
		return nil, fmt.Errorf("%w: %s", ErrUnknownCapability, name)
	}

	if params == nil {
		params = map[string]any{}
	}

	if err := e.validator.Validate(params); err != nil {
		r.logger.Warn("capability.dispatch.invalid_parameters", "capability", name, "error", err.Error())
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidParameters, name, err)
	}

	start := time.Now()

	var (
		result any
		err    error
		pc     panics.Catcher
	)
	pc.Try(func() {
		result, err = e.capability.Invoke(ctx, params)
	})
	if rec := pc.Recovered(); rec != nil {
		err = rec.AsError()
		r.logger.Error("capability.dispatch.panic", "capability", name, "recover", rec.Value)
	}

	dur := time.Since(start)

	if err != nil {
		r.logger.Error("capability.dispatch.failed", "capability", name, "duration_ms", dur.Milliseconds(), "error", err.Error())

		var execErr *ExecutionError
		if errors.As(err, &execErr) {
			return nil, execErr
		}
		return nil, NewExecutionError(name, err)
	}

	r.logger.Debug("capability.dispatch.done", "capability", name, "duration_ms", dur.Milliseconds())

	return result, nil
}
