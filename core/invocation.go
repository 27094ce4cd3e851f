package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// CapabilityRequest is a single capability call requested by the policy.
type CapabilityRequest struct {
	ID     string         `json:"id,omitempty"` // Correlates the request with its ToolResult
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

// CapabilityInvocation is the immutable audit record of one dispatched
// request. When IsError is set, Output holds the error description.
type CapabilityInvocation struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Params   map[string]any `json:"params"`
	Output   any            `json:"output"`
	IsError  bool           `json:"is_error"`
	Duration time.Duration  `json:"duration_ns"`
}

// OutputText renders Output as text. Strings pass through unchanged and
// structured values are JSON encoded.
func (ci CapabilityInvocation) OutputText() string {
	return Stringify(ci.Output)
}

// Decision is the result of one policy step. A decision without requests
// is final and Text is the answer.
type Decision struct {
	Text     string              `json:"text,omitempty"`
	Requests []CapabilityRequest `json:"requests,omitempty"`
}

// IsFinal reports whether the decision ends the loop.
func (d Decision) IsFinal() bool { return len(d.Requests) == 0 }

// Stringify renders capability output for transcripts and providers.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	case error:
		return val.Error()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
