package config

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/manthysbr/toolchat/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSettings struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemSettings() *memSettings { return &memSettings{data: map[string]string{}} }

func (m *memSettings) GetSetting(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", domain.ErrSettingNotFound
	}
	return v, nil
}

func (m *memSettings) SaveSetting(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func newTestStore(t *testing.T, repo SettingsRepository) *SettingsStore {
	t.Helper()
	t.Setenv(SecretKeyEnv, "store-test-key")
	sk, err := NewSecretKey("")
	require.NoError(t, err)

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	s, err := NewSettingsStore(context.Background(), logger, repo, sk, domain.DefaultConfig())
	require.NoError(t, err)
	return s
}

func TestSettingsStore_DefaultsWithoutSavedSettings(t *testing.T) {
	s := newTestStore(t, newMemSettings())
	assert.Equal(t, domain.DefaultConfig().LLM.Model, s.GetConfig().LLM.Model)
}

func TestSettingsStore_UpdateEncryptsAndMasks(t *testing.T) {
	repo := newMemSettings()
	s := newTestStore(t, repo)
	ctx := context.Background()

	var got *domain.AppConfig
	s.OnChange(func(cfg *domain.AppConfig) { got = cfg })

	update := s.GetConfig()
	update.LLM.APIKey = "sk-supersecret1234"
	update.LLM.Model = "gpt-4o"
	update.Agent.MaxLoops = 5
	update.Server.Addr = ":9999" // not editable
	require.NoError(t, s.UpdateConfig(ctx, update))

	require.NotNil(t, got)
	assert.Equal(t, "gpt-4o", got.LLM.Model)

	raw := repo.data[settingsKey]
	assert.NotContains(t, raw, "sk-supersecret1234")
	var stored storedConfig
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.True(t, strings.HasPrefix(stored.LLM.EncryptedAPIKey, sealedPrefix))

	masked := s.GetMaskedConfig()
	assert.Equal(t, "****1234", masked.LLM.APIKey)
	assert.Equal(t, "sk-supersecret1234", s.GetConfig().LLM.APIKey)
	assert.Equal(t, ":8080", s.GetConfig().Server.Addr)

	// a fresh store over the same table sees the persisted values
	reloaded := newTestStore(t, repo)
	cfg := reloaded.GetConfig()
	assert.Equal(t, "sk-supersecret1234", cfg.LLM.APIKey)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 5, cfg.Agent.MaxLoops)
	assert.Equal(t, domain.DefaultConfig().LLM.Timeout, cfg.LLM.Timeout)
}

func TestSettingsStore_MaskedKeyIsKept(t *testing.T) {
	s := newTestStore(t, newMemSettings())
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "llm.api_key", "sk-original9876"))

	update := s.GetMaskedConfig()
	update.LLM.Model = "other"
	require.NoError(t, s.UpdateConfig(ctx, update))

	assert.Equal(t, "sk-original9876", s.GetConfig().LLM.APIKey)
	assert.Equal(t, "other", s.GetConfig().LLM.Model)
}

func TestSettingsStore_Set(t *testing.T) {
	s := newTestStore(t, newMemSettings())
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "agent.max_loops", "3"))
	require.NoError(t, s.Set(ctx, "agent.keep_history", "false"))
	require.NoError(t, s.Set(ctx, "llm.timeout", "15s"))
	require.NoError(t, s.Set(ctx, "llm.provider", "Anthropic"))

	cfg := s.GetConfig()
	assert.Equal(t, 3, cfg.Agent.MaxLoops)
	assert.False(t, cfg.Agent.KeepHistory)
	assert.Equal(t, "15s", cfg.LLM.Timeout.String())
	assert.Equal(t, domain.ProviderAnthropic, cfg.LLM.Provider)

	assert.Error(t, s.Set(ctx, "server.addr", ":1"))
	assert.Error(t, s.Set(ctx, "agent.max_loops", "many"))
	assert.Error(t, s.Set(ctx, "agent.max_loops", "0"))
	assert.Error(t, s.Set(ctx, "llm.provider", "carrier-pigeon"))
	assert.Equal(t, 3, s.GetConfig().Agent.MaxLoops)
}
