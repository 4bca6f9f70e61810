package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/manthysbr/toolchat/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// MockProposer replays scripted decisions
type MockProposer struct {
	mock.Mock
}

func (m *MockProposer) Propose(ctx context.Context, messages []domain.Message, tools []*domain.Tool) (domain.Decision, error) {
	args := m.Called(ctx, messages, tools)
	return args.Get(0).(domain.Decision), args.Error(1)
}

// memRepo is an in-memory ports.Repository
type memRepo struct {
	mu       sync.Mutex
	convs    map[domain.ConversationID]domain.Conversation
	msgs     map[domain.ConversationID][]domain.Message
	settings map[string]string
	files    map[string]domain.StoredFile
}

func newMemRepo() *memRepo {
	return &memRepo{
		convs:    map[domain.ConversationID]domain.Conversation{},
		msgs:     map[domain.ConversationID][]domain.Message{},
		settings: map[string]string{},
		files:    map[string]domain.StoredFile{},
	}
}

func (r *memRepo) CreateConversation(ctx context.Context, conv domain.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.convs[conv.ID] = conv
	return nil
}

func (r *memRepo) GetConversation(ctx context.Context, id domain.ConversationID) (domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok {
		return domain.Conversation{}, domain.ErrConversationNotFound
	}
	return c, nil
}

func (r *memRepo) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Conversation, 0, len(r.convs))
	for _, c := range r.convs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *memRepo) DeleteConversation(ctx context.Context, id domain.ConversationID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.convs, id)
	delete(r.msgs, id)
	return nil
}

func (r *memRepo) AddMessage(ctx context.Context, msg domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[msg.ConversationID]
	if !ok {
		return domain.ErrConversationNotFound
	}
	c.UpdatedAt = msg.CreatedAt
	r.convs[c.ID] = c
	r.msgs[msg.ConversationID] = append(r.msgs[msg.ConversationID], msg)
	return nil
}

func (r *memRepo) ListMessages(ctx context.Context, convID domain.ConversationID, limit int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.msgs[convID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (r *memRepo) GetSetting(ctx context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.settings[key]
	if !ok {
		return "", domain.ErrSettingNotFound
	}
	return v, nil
}

func (r *memRepo) SaveSetting(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[key] = value
	return nil
}

func (r *memRepo) PutFile(ctx context.Context, path string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := append([]byte(nil), data...)
	r.files[path] = domain.StoredFile{Path: path, SizeBytes: int64(len(cp)), ModifiedAt: time.Now().UTC(), Data: cp}
	return nil
}

func (r *memRepo) GetFile(ctx context.Context, path string) (domain.StoredFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[path]
	if !ok {
		return domain.StoredFile{}, domain.ErrFileNotFound
	}
	return f, nil
}

func (r *memRepo) DeleteFile(ctx context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[path]; !ok {
		return domain.ErrFileNotFound
	}
	delete(r.files, path)
	return nil
}

func (r *memRepo) ListFiles(ctx context.Context, prefix string) ([]domain.StoredFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.StoredFile
	for p, f := range r.files {
		if strings.HasPrefix(p, prefix) {
			f.Data = nil
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (r *memRepo) FileExists(ctx context.Context, path string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.files[path]
	return ok, nil
}

func (r *memRepo) Close() error { return nil }

// collect drains buffered events without blocking
func collect(ch chan domain.StepEvent) []domain.StepEvent {
	var out []domain.StepEvent
	for {
		select {
		case e := <-ch:
			out = append(out, e)
		default:
			return out
		}
	}
}
