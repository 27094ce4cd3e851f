package capability

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/stockmesh/internal/schema"
)

// HandlerFunc is the implementation behind a Function capability.
type HandlerFunc func(ctx context.Context, params map[string]any) (any, error)

// Function exposes a plain Go function as a Capability. It holds no mutable
// state and is safe for concurrent use.
type Function struct {
	name        string
	description string
	schema      map[string]any
	fn          HandlerFunc
}

// NewFunction constructs a Function from an explicit schema.
//
// Example:
//
//	echo := capability.NewFunction(
//	  "echo_tool",
//	  "Echo a message back",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "message": map[string]any{"type": "string"},
//	    },
//	    "required": []string{"message"},
//	  },
//	  func(_ context.Context, p map[string]any) (any, error) {
//	    return "Echo: " + p["message"].(string), nil
//	  },
//	)
func NewFunction(name, description string, params map[string]any, fn HandlerFunc) *Function {
	return &Function{
		name:        name,
		description: description,
		schema:      params,
		fn:          fn,
	}
}

// NewFunctionFromStruct derives the parameter schema from a struct's json
// and description tags.
func NewFunctionFromStruct(name, description string, structType any, fn HandlerFunc) *Function {
	return NewFunction(name, description, schema.FromStruct(structType), fn)
}

// NewTypedFunction derives the schema from T and decodes validated params
// into a T before calling fn.
func NewTypedFunction[T any](name, description string, fn func(ctx context.Context, args T) (any, error)) *Function {
	var zero T
	return NewFunction(name, description, schema.FromStruct(zero), func(ctx context.Context, params map[string]any) (any, error) {
		args, err := Bind[T](params)
		if err != nil {
			return nil, err
		}
		return fn(ctx, args)
	})
}

// Bind decodes params into a T through their JSON form.
func Bind[T any](params map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(params)
	if err != nil {
		return out, fmt.Errorf("encode params: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode params: %w", err)
	}
	return out, nil
}

// Name implements Capability.
func (f *Function) Name() string { return f.name }

// Description implements Capability.
func (f *Function) Description() string { return f.description }

// Schema implements Capability.
func (f *Function) Schema() map[string]any { return f.schema }

// Invoke implements Capability.
func (f *Function) Invoke(ctx context.Context, params map[string]any) (any, error) {
	return f.fn(ctx, params)
}
