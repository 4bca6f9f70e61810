package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/manthysbr/toolchat/internal/core/domain"
)

const conversationTitleMax = 60

// ChatConfig controls how a ChatService treats history between prompts
type ChatConfig struct {
	SystemPrompt string
	KeepHistory  bool
}

// ChatService owns the committed conversation and runs each prompt through
// the Orchestrator. It implements Asker.
//
// A prompt runs against a clone of the committed history. The clone replaces
// the committed history only when the exchange answers, so a failed exchange
// leaves no trace.
type ChatService struct {
	logger *slog.Logger
	orch   *Orchestrator
	store  *ConversationStore // optional
	cfg    ChatConfig

	mu      sync.RWMutex
	history *domain.History
	convID  domain.ConversationID
	gen     uint64 // bumped on Reset/Restore
}

func NewChatService(logger *slog.Logger, orch *Orchestrator, store *ConversationStore, cfg ChatConfig) *ChatService {
	return &ChatService{
		logger:  logger,
		orch:    orch,
		store:   store,
		cfg:     cfg,
		history: domain.NewHistoryWithSystem(cfg.SystemPrompt),
	}
}

// Ask runs one prompt to completion.
func (s *ChatService) Ask(ctx context.Context, prompt domain.Prompt, events chan<- domain.StepEvent) (*domain.MultiStepAnswer, error) {
	if strings.TrimSpace(prompt.Text) == "" {
		return nil, domain.ErrEmptyPrompt
	}

	if !s.cfg.KeepHistory {
		h := domain.NewHistoryWithSystem(s.cfg.SystemPrompt)
		return s.orch.Run(ctx, string(prompt.ID), h, prompt.Text, events)
	}

	s.mu.RLock()
	working := s.history.Clone()
	gen := s.gen
	s.mu.RUnlock()
	before := working.Len()

	answer, err := s.orch.Run(ctx, string(prompt.ID), working, prompt.Text, events)
	if err != nil {
		return nil, err
	}
	working.AddAssistant(answer.Text)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		s.logger.Warn("history reset during exchange, answer not committed", "prompt_id", prompt.ID)
		return answer, nil
	}
	s.history = working
	s.mu.Unlock()

	s.persist(ctx, prompt.Text, working.Since(before))
	return answer, nil
}

func (s *ChatService) persist(ctx context.Context, title string, msgs []domain.Message) {
	if s.store == nil || len(msgs) == 0 {
		return
	}

	s.mu.Lock()
	convID := s.convID
	s.mu.Unlock()

	if convID == "" {
		conv, err := s.store.CreateConversation(ctx, titleFrom(title))
		if err != nil {
			s.logger.Error("failed to create conversation", "error", err)
			return
		}
		convID = conv.ID
		s.mu.Lock()
		s.convID = convID
		s.mu.Unlock()
	}

	if err := s.store.AddMessages(ctx, convID, msgs); err != nil {
		s.logger.Error("failed to persist messages", "conversation_id", convID, "error", err)
		return
	}
	s.logger.Debug("messages persisted", "conversation_id", convID, "count", len(msgs))
}

// History returns a snapshot of the committed history.
func (s *ChatService) History() *domain.History {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Clone()
}

// ConversationID is the stored conversation new messages go to. Empty until
// the first answer is persisted.
func (s *ChatService) ConversationID() domain.ConversationID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.convID
}

// Reset clears the committed history. The next answer starts a new stored
// conversation; the old one is kept.
func (s *ChatService) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.history = domain.NewHistoryWithSystem(s.cfg.SystemPrompt)
	s.convID = ""
	s.gen++
	s.mu.Unlock()

	s.logger.Info("chat history reset")
	return nil
}

// Restore loads the most recent stored conversation as the committed history.
// With no store or no stored conversation it is a no-op.
func (s *ChatService) Restore(ctx context.Context) error {
	if s.store == nil || !s.cfg.KeepHistory {
		return nil
	}

	conv, err := s.store.LatestConversation(ctx)
	if errors.Is(err, domain.ErrConversationNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	h, err := s.store.LoadHistory(ctx, conv.ID, s.cfg.SystemPrompt)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.history = h
	s.convID = conv.ID
	s.gen++
	s.mu.Unlock()

	s.logger.Info("conversation restored", "conversation_id", conv.ID, "messages", h.Len())
	return nil
}

func titleFrom(prompt string) string {
	t := strings.Join(strings.Fields(prompt), " ")
	if r := []rune(t); len(r) > conversationTitleMax {
		t = string(r[:conversationTitleMax]) + "..."
	}
	return t
}
