package core

// Turn is one entry of a Transcript. The set of turn kinds is closed:
// Instruction, UserQuery, PolicyOutput and ToolResult. Consumers switch on
// the concrete type.
type Turn interface{ isTurn() }

// Instruction carries the fixed system instructions. It is inserted once,
// at the head of the transcript.
type Instruction struct {
	Text string `json:"text"`
}

func (Instruction) isTurn() {}

// UserQuery carries the original natural-language question.
type UserQuery struct {
	Text string `json:"text"`
}

func (UserQuery) isTurn() {}

// PolicyOutput records what the policy produced in one round: free text
// and, unless the round was final, the capability requests it issued.
type PolicyOutput struct {
	Text     string              `json:"text,omitempty"`
	Requests []CapabilityRequest `json:"requests,omitempty"`
}

func (PolicyOutput) isTurn() {}

// ToolResult records the outcome of one dispatched capability request.
type ToolResult struct {
	Invocation CapabilityInvocation `json:"invocation"`
}

func (ToolResult) isTurn() {}

// Transcript is an append-only sequence of turns owned by a single query
// execution. It is not safe for concurrent use.
type Transcript struct {
	turns []Turn
}

// NewTranscript starts a transcript with the instruction and the query.
// An empty instruction text is skipped.
func NewTranscript(instruction, query string) *Transcript {
	t := &Transcript{turns: make([]Turn, 0, 8)}
	if instruction != "" {
		t.turns = append(t.turns, Instruction{Text: instruction})
	}
	t.turns = append(t.turns, UserQuery{Text: query})
	return t
}

// Append adds turns to the end of the transcript.
func (t *Transcript) Append(turns ...Turn) {
	t.turns = append(t.turns, turns...)
}

// Turns returns a copy of the turns in order.
func (t *Transcript) Turns() []Turn {
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Len returns the number of turns.
func (t *Transcript) Len() int { return len(t.turns) }

// Query returns the text of the first UserQuery turn.
func (t *Transcript) Query() string {
	for _, turn := range t.turns {
		if q, ok := turn.(UserQuery); ok {
			return q.Text
		}
	}
	return ""
}

// LastPolicyText returns the most recent non-empty PolicyOutput text.
func (t *Transcript) LastPolicyText() string {
	for i := len(t.turns) - 1; i >= 0; i-- {
		if p, ok := t.turns[i].(PolicyOutput); ok && p.Text != "" {
			return p.Text
		}
	}
	return ""
}
