package domain

import "time"

// StepKind identifies a transition of the multi-step loop
type StepKind string

const (
	StepProposed StepKind = "proposed" // proposal received from the model
	StepExecuted StepKind = "executed" // tool ran, result appended to history
	StepAnswered StepKind = "answered" // terminal: plain answer
	StepFailed   StepKind = "failed"   // terminal: error
)

// StepEvent records one transition of a multi-step exchange. Events are
// plain values; receivers own them.
type StepEvent struct {
	RunID     string    `json:"run_id"`
	Step      int       `json:"step"`
	Kind      StepKind  `json:"kind"`
	Decision  *Decision `json:"decision,omitempty"`
	ToolName  string    `json:"tool_name,omitempty"`
	Result    string    `json:"result,omitempty"`
	Answer    string    `json:"answer,omitempty"`
	Failure   *Failure  `json:"failure,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Terminal reports whether the event ends its exchange.
func (e StepEvent) Terminal() bool {
	return e.Kind == StepAnswered || e.Kind == StepFailed
}

// MultiStepAnswer is the result of an exchange that reached a plain answer.
type MultiStepAnswer struct {
	Text  string   `json:"text"`
	Steps int      `json:"steps"` // proposals made, including the final one
	Tools []string `json:"tools,omitempty"`
}
