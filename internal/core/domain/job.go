package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// PromptID identifies one submission to the worker bridge
type PromptID string

// PromptStatus tracks a prompt through the bridge
type PromptStatus string

const (
	PromptStatusQueued    PromptStatus = "QUEUED"
	PromptStatusRunning   PromptStatus = "RUNNING"
	PromptStatusCompleted PromptStatus = "COMPLETED"
	PromptStatusFailed    PromptStatus = "FAILED"
)

// Prompt is a unit of work for the background worker
type Prompt struct {
	ID          PromptID  `json:"id"`
	Text        string    `json:"text"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// NewPrompt assigns a fresh ID to text
func NewPrompt(text string) Prompt {
	return Prompt{
		ID:          PromptID(uuid.NewString()),
		Text:        text,
		SubmittedAt: time.Now().UTC(),
	}
}

// Response is what the worker sends back for a Prompt: either the answer
// text or a Failure, never both.
type Response struct {
	PromptID    PromptID  `json:"prompt_id"`
	Text        string    `json:"text,omitempty"`
	Steps       int       `json:"steps"`
	Tools       []string  `json:"tools,omitempty"`
	Failure     *Failure  `json:"failure,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

func (r Response) OK() bool { return r.Failure == nil }

func (r Response) Status() PromptStatus {
	if r.OK() {
		return PromptStatusCompleted
	}
	return PromptStatusFailed
}

var (
	ErrBridgeClosed = errors.New("worker bridge closed")
	ErrEmptyPrompt  = errors.New("prompt is empty")
)
