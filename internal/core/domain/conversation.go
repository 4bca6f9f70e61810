package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ConversationID uniquely identifies a persisted conversation
type ConversationID string

// MessageID uniquely identifies a message within a conversation
type MessageID string

// MessageRole defines who authored a message
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool" // tool result fed back to the model
)

// Conversation is the persisted envelope of a History
type Conversation struct {
	ID        ConversationID `json:"id"`
	Title     string         `json:"title"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Message is a single entry of a conversation. Messages are values and are
// never modified after being appended to a History.
type Message struct {
	ID             MessageID      `json:"id,omitempty"`
	ConversationID ConversationID `json:"conversation_id,omitempty"`
	Role           MessageRole    `json:"role"`
	Content        string         `json:"content"`
	ToolName       string         `json:"tool_name,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
)

// NewConversationID generates a conversation ID (conv-<uuid>)
func NewConversationID() ConversationID {
	return ConversationID("conv-" + uuid.NewString())
}

// NewMessageID generates a message ID (msg-<uuid>)
func NewMessageID() MessageID {
	return MessageID("msg-" + uuid.NewString())
}

func newMessage(role MessageRole, content, toolName string) Message {
	return Message{
		ID:        NewMessageID(),
		Role:      role,
		Content:   content,
		ToolName:  toolName,
		CreatedAt: time.Now().UTC(),
	}
}

// History is the ordered message log sent to the model on every proposal.
//
// The system preamble is stored apart from the sequence so callers can ask
// for the log with or without it. When included it is always first and
// there is never more than one. A History is owned by one exchange at a
// time and is not safe for concurrent use.
type History struct {
	system   *Message
	messages []Message
}

// NewHistory returns an empty history without a system preamble.
func NewHistory() *History {
	return &History{}
}

// NewHistoryWithSystem returns an empty history with the given preamble.
// An empty preamble leaves the history without one.
func NewHistoryWithSystem(system string) *History {
	h := NewHistory()
	if system != "" {
		h.SetSystem(system)
	}
	return h
}

// SetSystem replaces the system preamble.
func (h *History) SetSystem(content string) *History {
	msg := newMessage(RoleSystem, content, "")
	h.system = &msg
	return h
}

// ClearSystem removes the system preamble.
func (h *History) ClearSystem() *History {
	h.system = nil
	return h
}

// System returns the preamble, if one is set.
func (h *History) System() (Message, bool) {
	if h.system == nil {
		return Message{}, false
	}
	return *h.system, true
}

func (h *History) AddUser(content string) *History {
	h.messages = append(h.messages, newMessage(RoleUser, content, ""))
	return h
}

func (h *History) AddAssistant(content string) *History {
	h.messages = append(h.messages, newMessage(RoleAssistant, content, ""))
	return h
}

// AddToolResult appends the output of the named tool.
func (h *History) AddToolResult(toolName, content string) *History {
	h.messages = append(h.messages, newMessage(RoleTool, content, toolName))
	return h
}

// Append adds a previously stored message. A system message replaces the
// preamble instead of entering the sequence.
func (h *History) Append(msg Message) *History {
	if msg.Role == RoleSystem {
		m := msg
		h.system = &m
		return h
	}
	h.messages = append(h.messages, msg)
	return h
}

// Len is the number of messages, excluding the system preamble.
func (h *History) Len() int { return len(h.messages) }

func (h *History) IsEmpty() bool { return len(h.messages) == 0 }

// Messages returns a copy of the sequence without the system preamble.
func (h *History) Messages() []Message {
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// WithSystem returns a copy of the sequence with the preamble prepended.
func (h *History) WithSystem() []Message {
	n := len(h.messages)
	if h.system != nil {
		n++
	}
	out := make([]Message, 0, n)
	if h.system != nil {
		out = append(out, *h.system)
	}
	return append(out, h.messages...)
}

// Since returns a copy of the messages appended after the first n.
func (h *History) Since(n int) []Message {
	if n < 0 {
		n = 0
	}
	if n >= len(h.messages) {
		return nil
	}
	out := make([]Message, len(h.messages)-n)
	copy(out, h.messages[n:])
	return out
}

// Truncate drops every message after the first n.
func (h *History) Truncate(n int) *History {
	if n >= 0 && n < len(h.messages) {
		h.messages = h.messages[:n:n]
	}
	return h
}

// Clone returns an independent copy.
func (h *History) Clone() *History {
	c := &History{messages: h.Messages()}
	if h.system != nil {
		s := *h.system
		c.system = &s
	}
	return c
}
