package services

import (
	"context"
	"errors"
	"testing"

	"github.com/manthysbr/toolchat/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestChat(t *testing.T, p *MockProposer, store *ConversationStore, keep bool) *ChatService {
	t.Helper()
	o := newTestOrchestrator(t, p, 5, NewAddTool())
	return NewChatService(testLogger(), o, store, ChatConfig{SystemPrompt: "sys", KeepHistory: keep})
}

func TestChatService_CommitsOnSuccess(t *testing.T) {
	p := new(MockProposer)
	p.On("Propose", mock.Anything, mock.Anything, mock.Anything).Return(domain.ToolCallDecision("add", `{"x":2,"y":3}`), nil).Once()
	p.On("Propose", mock.Anything, mock.Anything, mock.Anything).Return(domain.TextDecision("5"), nil).Once()

	repo := newMemRepo()
	store := NewConversationStore(repo, 4)
	chat := newTestChat(t, p, store, true)

	answer, err := chat.Ask(context.Background(), domain.NewPrompt("what is 2+3?"), nil)
	require.NoError(t, err)
	assert.Equal(t, "5", answer.Text)

	msgs := chat.History().Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, domain.RoleTool, msgs[1].Role)
	assert.Equal(t, domain.RoleAssistant, msgs[2].Role)

	convID := chat.ConversationID()
	require.NotEmpty(t, convID)
	stored, err := store.GetMessages(context.Background(), convID, 0)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, "5", stored[2].Content)

	conv, err := repo.GetConversation(context.Background(), convID)
	require.NoError(t, err)
	assert.Equal(t, "what is 2+3?", conv.Title)
}

func TestChatService_FailureLeavesHistoryUntouched(t *testing.T) {
	p := new(MockProposer)
	p.On("Propose", mock.Anything, mock.Anything, mock.Anything).Return(domain.TextDecision("first"), nil).Once()
	p.On("Propose", mock.Anything, mock.Anything, mock.Anything).Return(domain.ToolCallDecision("add", `{"x":1}`), nil).Once()

	chat := newTestChat(t, p, nil, true)

	_, err := chat.Ask(context.Background(), domain.NewPrompt("hello"), nil)
	require.NoError(t, err)
	before := chat.History().Messages()

	_, err = chat.Ask(context.Background(), domain.NewPrompt("add something"), nil)
	require.ErrorIs(t, err, domain.ErrArgumentsParse)
	assert.Equal(t, before, chat.History().Messages())
}

func TestChatService_SecondPromptSeesFirstExchange(t *testing.T) {
	p := new(MockProposer)
	p.On("Propose", mock.Anything, mock.Anything, mock.Anything).Return(domain.TextDecision("one"), nil).Once()
	p.On("Propose", mock.Anything, mock.MatchedBy(func(msgs []domain.Message) bool {
		// system, user, assistant, user
		return len(msgs) == 4 && msgs[2].Content == "one"
	}), mock.Anything).Return(domain.TextDecision("two"), nil).Once()

	chat := newTestChat(t, p, nil, true)
	_, err := chat.Ask(context.Background(), domain.NewPrompt("first"), nil)
	require.NoError(t, err)
	answer, err := chat.Ask(context.Background(), domain.NewPrompt("second"), nil)
	require.NoError(t, err)
	assert.Equal(t, "two", answer.Text)
	p.AssertExpectations(t)
}

func TestChatService_StatelessMode(t *testing.T) {
	p := new(MockProposer)
	p.On("Propose", mock.Anything, mock.MatchedBy(func(msgs []domain.Message) bool {
		return len(msgs) == 2
	}), mock.Anything).Return(domain.TextDecision("ok"), nil).Twice()

	chat := newTestChat(t, p, nil, false)
	for i := 0; i < 2; i++ {
		_, err := chat.Ask(context.Background(), domain.NewPrompt("again"), nil)
		require.NoError(t, err)
	}
	assert.True(t, chat.History().IsEmpty())
	p.AssertExpectations(t)
}

func TestChatService_ResetAndRestore(t *testing.T) {
	p := new(MockProposer)
	p.On("Propose", mock.Anything, mock.Anything, mock.Anything).Return(domain.TextDecision("stored"), nil)

	repo := newMemRepo()
	store := NewConversationStore(repo, 4)
	chat := newTestChat(t, p, store, true)

	_, err := chat.Ask(context.Background(), domain.NewPrompt("remember me"), nil)
	require.NoError(t, err)
	convID := chat.ConversationID()

	require.NoError(t, chat.Reset(context.Background()))
	assert.True(t, chat.History().IsEmpty())
	assert.Empty(t, chat.ConversationID())

	// a fresh service picks the conversation back up
	restored := newTestChat(t, p, NewConversationStore(repo, 4), true)
	require.NoError(t, restored.Restore(context.Background()))
	assert.Equal(t, convID, restored.ConversationID())

	msgs := restored.History().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "remember me", msgs[0].Content)
	assert.Equal(t, "stored", msgs[1].Content)
	sys, ok := restored.History().System()
	require.True(t, ok)
	assert.Equal(t, "sys", sys.Content)
}

func TestChatService_RestoreWithoutConversations(t *testing.T) {
	chat := newTestChat(t, new(MockProposer), NewConversationStore(newMemRepo(), 4), true)
	assert.NoError(t, chat.Restore(context.Background()))
	assert.True(t, chat.History().IsEmpty())
}

func TestChatService_EmptyPrompt(t *testing.T) {
	chat := newTestChat(t, new(MockProposer), nil, true)
	_, err := chat.Ask(context.Background(), domain.NewPrompt(""), nil)
	assert.True(t, errors.Is(err, domain.ErrEmptyPrompt))
}
