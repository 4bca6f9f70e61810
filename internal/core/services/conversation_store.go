package services

import (
	"container/list"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/manthysbr/toolchat/internal/core/domain"
	"github.com/manthysbr/toolchat/internal/core/ports"
)

const defaultTranscriptCache = 64

// ConversationStore persists chat transcripts through a ports.Repository and
// keeps the full transcripts of recently used conversations in memory.
type ConversationStore struct {
	repo   ports.Repository
	recent *transcriptCache
}

func NewConversationStore(repo ports.Repository, maxCache int) *ConversationStore {
	if maxCache <= 0 {
		maxCache = defaultTranscriptCache
	}
	return &ConversationStore{repo: repo, recent: newTranscriptCache(maxCache)}
}

// CreateConversation stores an empty conversation. It is cached as a known
// empty transcript, so the first read does not hit the repository.
func (s *ConversationStore) CreateConversation(ctx context.Context, title string) (domain.Conversation, error) {
	now := time.Now().UTC()
	conv := domain.Conversation{
		ID:        domain.NewConversationID(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateConversation(ctx, conv); err != nil {
		return domain.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	s.recent.put(conv.ID, []domain.Message{})
	return conv, nil
}

func (s *ConversationStore) GetConversation(ctx context.Context, id domain.ConversationID) (domain.Conversation, error) {
	return s.repo.GetConversation(ctx, id)
}

// ListConversations returns all conversations, most recently updated first.
func (s *ConversationStore) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	return s.repo.ListConversations(ctx)
}

func (s *ConversationStore) LatestConversation(ctx context.Context) (domain.Conversation, error) {
	convs, err := s.repo.ListConversations(ctx)
	if err != nil {
		return domain.Conversation{}, err
	}
	if len(convs) == 0 {
		return domain.Conversation{}, domain.ErrConversationNotFound
	}
	return convs[0], nil
}

func (s *ConversationStore) DeleteConversation(ctx context.Context, id domain.ConversationID) error {
	if err := s.repo.DeleteConversation(ctx, id); err != nil {
		return err
	}
	s.recent.drop(id)
	return nil
}

// AddMessages persists msgs in order under convID; the repository keeps
// insertion order. Missing IDs and timestamps are filled in. Persisting
// stops at the first error; messages written before it stay stored and
// cached.
func (s *ConversationStore) AddMessages(ctx context.Context, convID domain.ConversationID, msgs []domain.Message) error {
	now := time.Now().UTC()
	for i, msg := range msgs {
		msg.ConversationID = convID
		if msg.ID == "" {
			msg.ID = domain.NewMessageID()
		}
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = now
		}
		if err := s.repo.AddMessage(ctx, msg); err != nil {
			return fmt.Errorf("add message %d: %w", i, err)
		}
		s.recent.extend(convID, msg)
	}
	return nil
}

// GetMessages returns the transcript of convID in order. A positive limit
// returns only the newest limit messages and bypasses the cache.
func (s *ConversationStore) GetMessages(ctx context.Context, convID domain.ConversationID, limit int) ([]domain.Message, error) {
	if limit > 0 {
		return s.repo.ListMessages(ctx, convID, limit)
	}
	if msgs, ok := s.recent.get(convID); ok {
		return msgs, nil
	}

	msgs, err := s.repo.ListMessages(ctx, convID, 0)
	if err != nil {
		return nil, err
	}
	s.recent.put(convID, msgs)
	return slices.Clone(msgs), nil
}

// LoadHistory rebuilds a History from the stored messages of convID.
// Stored system messages are skipped; systemPrompt becomes the preamble.
func (s *ConversationStore) LoadHistory(ctx context.Context, convID domain.ConversationID, systemPrompt string) (*domain.History, error) {
	msgs, err := s.GetMessages(ctx, convID, 0)
	if err != nil {
		return nil, err
	}
	h := domain.NewHistoryWithSystem(systemPrompt)
	for _, m := range msgs {
		if m.Role != domain.RoleSystem {
			h.Append(m)
		}
	}
	return h, nil
}

// transcriptCache is a bounded LRU of complete transcripts. Only complete
// transcripts are ever stored, so a hit can always be served as is.
type transcriptCache struct {
	mu      sync.Mutex
	limit   int
	lru     *list.List // front is most recently used
	entries map[domain.ConversationID]*list.Element
}

type transcript struct {
	id   domain.ConversationID
	msgs []domain.Message
}

func newTranscriptCache(limit int) *transcriptCache {
	return &transcriptCache{
		limit:   limit,
		lru:     list.New(),
		entries: make(map[domain.ConversationID]*list.Element, limit),
	}
}

func (c *transcriptCache) get(id domain.ConversationID) ([]domain.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	c.lru.MoveToFront(el)
	return slices.Clone(el.Value.(*transcript).msgs), true
}

func (c *transcriptCache) put(id domain.ConversationID, msgs []domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[id]; ok {
		el.Value.(*transcript).msgs = slices.Clone(msgs)
		c.lru.MoveToFront(el)
		return
	}
	c.entries[id] = c.lru.PushFront(&transcript{id: id, msgs: slices.Clone(msgs)})
	for c.lru.Len() > c.limit {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.entries, oldest.Value.(*transcript).id)
	}
}

// extend appends msg to a cached transcript. Unknown conversations are left
// alone: caching a partial transcript would hide older stored messages.
func (c *transcriptCache) extend(id domain.ConversationID, msg domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[id]; ok {
		t := el.Value.(*transcript)
		t.msgs = append(t.msgs, msg)
		c.lru.MoveToFront(el)
	}
}

func (c *transcriptCache) drop(id domain.ConversationID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[id]; ok {
		c.lru.Remove(el)
		delete(c.entries, id)
	}
}
