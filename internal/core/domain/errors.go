package domain

import (
	"errors"
	"fmt"
)

var (
	ErrTransport      = errors.New("model transport failed")
	ErrToolNotFound   = errors.New("tool not found")
	ErrArgumentsParse = errors.New("tool arguments could not be parsed")
	ErrExecution      = errors.New("tool execution failed")
	ErrLoopExhausted  = errors.New("loop exhausted without a final answer")
)

// TransportError wraps network, timeout and protocol failures of the model
// API. It is never retried by the engine.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("model transport: %v", e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }

// AsTransportError wraps err unless it already is a TransportError.
func AsTransportError(err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Err: err}
}

type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool not found: %s", e.Name)
}

func (e *ToolNotFoundError) Unwrap() error { return ErrToolNotFound }

type ArgumentsParseError struct {
	Name string
	Raw  string
	Err  error
}

func (e *ArgumentsParseError) Error() string {
	return fmt.Sprintf("tool %s: invalid arguments: %v", e.Name, e.Err)
}

func (e *ArgumentsParseError) Unwrap() []error { return []error{ErrArgumentsParse, e.Err} }

type ExecutionError struct {
	Name string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.Name, e.Err)
}

func (e *ExecutionError) Unwrap() []error { return []error{ErrExecution, e.Err} }

type LoopExhaustedError struct {
	MaxLoops int
}

func (e *LoopExhaustedError) Error() string {
	return fmt.Sprintf("max loops (%d) reached without final answer", e.MaxLoops)
}

func (e *LoopExhaustedError) Unwrap() error { return ErrLoopExhausted }

// FailureKind tags a structured failure
type FailureKind string

const (
	FailureTransport      FailureKind = "transport"
	FailureToolNotFound   FailureKind = "tool_not_found"
	FailureArgumentsParse FailureKind = "arguments_parse_error"
	FailureExecution      FailureKind = "execution_error"
	FailureLoopExhausted  FailureKind = "loop_exhausted"
	FailureInternal       FailureKind = "internal"
)

// Failure is the serializable form of a terminal error, sent back to the
// foreground instead of an answer.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Tool    string      `json:"tool,omitempty"`
	Message string      `json:"message"`
}

func (f *Failure) Error() string {
	if f.Tool != "" {
		return fmt.Sprintf("%s (%s): %s", f.Kind, f.Tool, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// FailureFromError classifies err into a Failure. It returns nil for nil.
func FailureFromError(err error) *Failure {
	if err == nil {
		return nil
	}

	var (
		transport *TransportError
		notFound  *ToolNotFoundError
		parse     *ArgumentsParseError
		exec      *ExecutionError
		exhausted *LoopExhaustedError
		failure   *Failure
	)
	switch {
	case errors.As(err, &failure):
		return failure
	case errors.As(err, &notFound):
		return &Failure{Kind: FailureToolNotFound, Tool: notFound.Name, Message: err.Error()}
	case errors.As(err, &parse):
		return &Failure{Kind: FailureArgumentsParse, Tool: parse.Name, Message: err.Error()}
	case errors.As(err, &exec):
		return &Failure{Kind: FailureExecution, Tool: exec.Name, Message: err.Error()}
	case errors.As(err, &exhausted):
		return &Failure{Kind: FailureLoopExhausted, Message: err.Error()}
	case errors.As(err, &transport):
		return &Failure{Kind: FailureTransport, Message: err.Error()}
	default:
		return &Failure{Kind: FailureInternal, Message: err.Error()}
	}
}
