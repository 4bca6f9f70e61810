package ports

import (
	"context"

	"github.com/manthysbr/toolchat/internal/core/domain"
)

// Proposer abstracts the model API. One call is one request.
type Proposer interface {
	// Propose sends the message sequence (system preamble first, if any)
	// along with the tool schemas and maps the reply to a Decision.
	// Network, timeout and protocol failures are returned as
	// *domain.TransportError and are never retried.
	Propose(ctx context.Context, messages []domain.Message, tools []*domain.Tool) (domain.Decision, error)
}

// FileStore is the key-value file store
type FileStore interface {
	PutFile(ctx context.Context, path string, data []byte) error
	GetFile(ctx context.Context, path string) (domain.StoredFile, error)
	DeleteFile(ctx context.Context, path string) error
	ListFiles(ctx context.Context, prefix string) ([]domain.StoredFile, error)
	FileExists(ctx context.Context, path string) (bool, error)
}

// Repository abstracts the persistent storage (DuckDB)
type Repository interface {
	FileStore

	// Conversations
	CreateConversation(ctx context.Context, conv domain.Conversation) error
	GetConversation(ctx context.Context, id domain.ConversationID) (domain.Conversation, error)
	ListConversations(ctx context.Context) ([]domain.Conversation, error)
	DeleteConversation(ctx context.Context, id domain.ConversationID) error

	// Messages
	AddMessage(ctx context.Context, msg domain.Message) error
	ListMessages(ctx context.Context, convID domain.ConversationID, limit int) ([]domain.Message, error)

	// Settings
	GetSetting(ctx context.Context, key string) (string, error)
	SaveSetting(ctx context.Context, key string, value string) error

	Close() error
}
