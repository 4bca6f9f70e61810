package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_SystemPlacement(t *testing.T) {
	tests := []struct {
		name  string
		build func() *History
	}{
		{"empty", NewHistory},
		{"system only", func() *History { return NewHistoryWithSystem("sys") }},
		{"system set after messages", func() *History {
			return NewHistory().AddUser("u1").AddAssistant("a1").SetSystem("sys")
		}},
		{"system replaced", func() *History {
			return NewHistoryWithSystem("old").AddUser("u1").SetSystem("new")
		}},
		{"system cleared", func() *History {
			return NewHistoryWithSystem("sys").AddUser("u1").ClearSystem()
		}},
		{"tool results", func() *History {
			return NewHistoryWithSystem("sys").AddUser("u1").AddToolResult("add", `{"sum":3}`)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := tt.build()
			sys, hasSystem := h.System()

			for _, m := range h.Messages() {
				assert.NotEqual(t, RoleSystem, m.Role, "excluded sequence must not contain the system message")
			}

			with := h.WithSystem()
			systemCount := 0
			for _, m := range with {
				if m.Role == RoleSystem {
					systemCount++
				}
			}
			if hasSystem {
				require.NotEmpty(t, with)
				assert.Equal(t, RoleSystem, with[0].Role)
				assert.Equal(t, sys.Content, with[0].Content)
				assert.Equal(t, 1, systemCount)
				assert.Len(t, with, h.Len()+1)
			} else {
				assert.Equal(t, 0, systemCount)
				assert.Len(t, with, h.Len())
			}
		})
	}
}

func TestHistory_AddUserToEmpty(t *testing.T) {
	h := NewHistory()
	h.AddUser("hello")

	msgs := h.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, 1, h.Len())
}

func TestHistory_OrderAndToolName(t *testing.T) {
	h := NewHistoryWithSystem("sys")
	h.AddUser("u1").AddToolResult("get_constants", `{"X":42}`).AddAssistant("a1")

	msgs := h.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, []MessageRole{RoleUser, RoleTool, RoleAssistant}, []MessageRole{msgs[0].Role, msgs[1].Role, msgs[2].Role})
	assert.Equal(t, "get_constants", msgs[1].ToolName)
}

func TestHistory_CopiesAreIndependent(t *testing.T) {
	h := NewHistory().AddUser("u1")

	msgs := h.Messages()
	msgs[0].Content = "mutated"
	assert.Equal(t, "u1", h.Messages()[0].Content)

	clone := h.Clone()
	clone.AddUser("u2")
	assert.Equal(t, 1, h.Len())
	assert.Equal(t, 2, clone.Len())
}

func TestHistory_SinceAndTruncate(t *testing.T) {
	h := NewHistory().AddUser("u1").AddAssistant("a1")
	mark := h.Len()
	h.AddUser("u2").AddToolResult("add", "3")

	added := h.Since(mark)
	require.Len(t, added, 2)
	assert.Equal(t, "u2", added[0].Content)

	h.Truncate(mark)
	assert.Equal(t, mark, h.Len())
	assert.Nil(t, h.Since(mark))

	h.AddUser("u3")
	assert.Equal(t, "u3", h.Messages()[2].Content)
}

func TestHistory_AppendSystemReplacesPreamble(t *testing.T) {
	h := NewHistory()
	h.Append(Message{Role: RoleSystem, Content: "restored"})
	h.Append(Message{Role: RoleUser, Content: "u1"})

	sys, ok := h.System()
	require.True(t, ok)
	assert.Equal(t, "restored", sys.Content)
	assert.Equal(t, 1, h.Len())
}
