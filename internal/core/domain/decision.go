package domain

// DecisionKind tells whether the model answered or asked for a tool
type DecisionKind string

const (
	DecisionText     DecisionKind = "text"
	DecisionToolCall DecisionKind = "tool_call"
)

// Decision is the outcome of one proposal: either a plain answer or a tool
// invocation with its raw argument payload.
type Decision struct {
	Kind      DecisionKind `json:"kind"`
	Text      string       `json:"text,omitempty"`
	ToolName  string       `json:"tool_name,omitempty"`
	Arguments string       `json:"arguments,omitempty"`
	CallID    string       `json:"call_id,omitempty"` // provider-side id, informational
}

func TextDecision(text string) Decision {
	return Decision{Kind: DecisionText, Text: text}
}

func ToolCallDecision(name, arguments string) Decision {
	return Decision{Kind: DecisionToolCall, ToolName: name, Arguments: arguments}
}

func (d Decision) IsToolCall() bool { return d.Kind == DecisionToolCall }

// ResolutionKind classifies what happened to a decision
type ResolutionKind string

const (
	ResolutionModelText           ResolutionKind = "model_text"
	ResolutionExecuted            ResolutionKind = "executed"
	ResolutionToolNotFound        ResolutionKind = "tool_not_found"
	ResolutionArgumentsParseError ResolutionKind = "arguments_parse_error"
	ResolutionExecutionError      ResolutionKind = "execution_error"
)

// Resolution is the classified result of resolving a Decision against a
// registry.
type Resolution struct {
	Kind      ResolutionKind
	Text      string      // ModelText
	ToolName  string      // requested or resolved tool name
	Arguments string      // raw payload, kept for parse errors
	Result    interface{} // Executed
	Err       error       // underlying cause for the failure kinds
}

// Executed reports whether a tool ran successfully.
func (r Resolution) Executed() bool { return r.Kind == ResolutionExecuted }

// Failed reports whether the resolution ends the exchange with an error.
func (r Resolution) Failed() bool {
	return r.Kind != ResolutionModelText && r.Kind != ResolutionExecuted
}

// AsError converts a failed resolution into its typed error. It returns nil
// for ModelText and Executed.
func (r Resolution) AsError() error {
	switch r.Kind {
	case ResolutionToolNotFound:
		return &ToolNotFoundError{Name: r.ToolName}
	case ResolutionArgumentsParseError:
		return &ArgumentsParseError{Name: r.ToolName, Raw: r.Arguments, Err: r.Err}
	case ResolutionExecutionError:
		return &ExecutionError{Name: r.ToolName, Err: r.Err}
	default:
		return nil
	}
}
