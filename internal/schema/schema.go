// Package schema derives JSON schemas from Go structs and validates
// capability parameters against compiled JSON schemas.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
)

// ValidationError describes the first schema violation found in a
// parameter set.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("field '%s': %s", e.Field, e.Message)
}

// Validator checks parameter maps against one compiled schema. It is
// immutable and safe for concurrent use.
type Validator struct {
	schema *jsonschema.Schema
}

// Compile compiles a schema map. name only identifies the resource in
// compiler diagnostics.
func Compile(name string, schema map[string]any) (*Validator, error) {
	if len(schema) == 0 {
		schema = map[string]any{"type": "object"}
	}

	doc, err := roundTrip(schema)
	if err != nil {
		return nil, fmt.Errorf("encode schema %s: %w", name, err)
	}

	url := name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource %s: %w", name, err)
	}

	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}

	return &Validator{schema: compiled}, nil
}

// Validate returns a *ValidationError when params violate the schema.
func (v *Validator) Validate(params map[string]any) error {
	if params == nil {
		params = map[string]any{}
	}

	inst, err := roundTrip(params)
	if err != nil {
		return &ValidationError{Message: fmt.Sprintf("parameters are not JSON encodable: %v", err)}
	}

	if err := v.schema.Validate(inst); err != nil {
		return toValidationError(err)
	}
	return nil
}

// roundTrip normalizes Go values to the JSON shape the validator expects
// ([]any, map[string]any, json.Number).
func roundTrip(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(b))
}

func toValidationError(err error) *ValidationError {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &ValidationError{Message: err.Error()}
	}

	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}

	field := strings.Join(leaf.InstanceLocation, ".")
	msg := "invalid value"
	switch k := leaf.ErrorKind.(type) {
	case *kind.Required:
		if len(k.Missing) > 0 {
			field = k.Missing[0]
		}
		msg = "required field is missing"
	case *kind.Type:
		msg = fmt.Sprintf("expected type %s, got %s", strings.Join(k.Want, " or "), k.Got)
	case *kind.Enum:
		msg = "value is not one of the allowed values"
	case *kind.AdditionalProperties:
		field = strings.Join(k.Properties, ",")
		msg = "unexpected field"
	}

	return &ValidationError{Field: field, Message: msg}
}

// FromStruct creates a JSON schema from a Go struct using reflection.
// Fields tagged omitempty or declared as pointers are optional. A
// "description" struct tag is copied to the property.
func FromStruct(structType any) map[string]any {
	t := reflect.TypeOf(structType)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t == nil || t.Kind() != reflect.Struct {
		return map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		}
	}

	properties := make(map[string]any)
	required := make([]string, 0)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}

		name := field.Name
		if parts := strings.Split(tag, ","); parts[0] != "" {
			name = parts[0]
		}

		prop := map[string]any{"type": jsonType(field.Type)}
		if d := field.Tag.Get("description"); d != "" {
			prop["description"] = d
		}
		if e := field.Tag.Get("enum"); e != "" {
			prop["enum"] = strings.Split(e, ",")
		}
		properties[name] = prop

		if !hasOmitEmpty(tag) && field.Type.Kind() != reflect.Ptr {
			required = append(required, name)
		}
	}

	out := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func jsonType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Ptr:
		return jsonType(t.Elem())
	default:
		return "string"
	}
}

func hasOmitEmpty(tag string) bool {
	parts := strings.Split(tag, ",")
	for _, part := range parts[1:] {
		if strings.TrimSpace(part) == "omitempty" {
			return true
		}
	}
	return false
}
