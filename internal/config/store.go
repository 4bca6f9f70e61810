package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/manthysbr/toolchat/internal/core/domain"
)

const settingsKey = "app_config"

// SettingsRepository is the minimal DB interface for settings persistence.
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SaveSetting(ctx context.Context, key string, value string) error
}

// OnChangeFunc is called when settings are updated.
type OnChangeFunc func(cfg *domain.AppConfig)

// SettingsStore keeps the editable sections of the configuration (llm, agent
// and the search key) in the settings table. Secrets are encrypted at rest and
// masked on read.
type SettingsStore struct {
	mu       sync.RWMutex
	logger   *slog.Logger
	secret   *SecretKey
	repo     SettingsRepository
	config   *domain.AppConfig
	onChange []OnChangeFunc
}

// NewSettingsStore overlays the persisted settings, if any, onto base.
func NewSettingsStore(ctx context.Context, logger *slog.Logger, repo SettingsRepository, secret *SecretKey, base *domain.AppConfig) (*SettingsStore, error) {
	store := &SettingsStore{
		logger: logger,
		secret: secret,
		repo:   repo,
	}

	cfg := base.Clone()
	if err := store.loadFromDB(ctx, cfg); err != nil {
		if !errors.Is(err, domain.ErrSettingNotFound) {
			return nil, fmt.Errorf("load settings: %w", err)
		}
		logger.Debug("no saved settings found, using file config")
	}

	store.config = cfg
	return store, nil
}

// OnChange registers a callback for when settings are updated.
// Used to rebuild the proposer on the fly.
func (s *SettingsStore) OnChange(fn OnChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// GetConfig returns a copy of the current config with decrypted secrets.
func (s *SettingsStore) GetConfig() *domain.AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.Clone()
}

// GetMaskedConfig returns config safe for API response (secrets masked).
func (s *SettingsStore) GetMaskedConfig() *domain.AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := s.config.Clone()
	cp.LLM.APIKey = MaskSecret(cp.LLM.APIKey)
	cp.Tools.TavilyAPIKey = MaskSecret(cp.Tools.TavilyAPIKey)
	return cp
}

// UpdateConfig takes the llm and agent sections and the search key from
// update, validates them, persists them and triggers the onChange callbacks.
// Empty or masked keys keep the existing value.
func (s *SettingsStore) UpdateConfig(ctx context.Context, update *domain.AppConfig) error {
	s.mu.Lock()

	next := s.config.Clone()
	next.LLM = update.LLM
	next.Agent = update.Agent
	if update.LLM.APIKey == "" || isMasked(update.LLM.APIKey) {
		next.LLM.APIKey = s.config.LLM.APIKey
	}
	if update.Tools.TavilyAPIKey != "" && !isMasked(update.Tools.TavilyAPIKey) {
		next.Tools.TavilyAPIKey = update.Tools.TavilyAPIKey
	}
	next.LLM.Provider = strings.ToLower(strings.TrimSpace(next.LLM.Provider))

	if err := Validate(next); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.saveToDB(ctx, next); err != nil {
		s.mu.Unlock()
		return err
	}

	s.config = next
	callbacks := append([]OnChangeFunc(nil), s.onChange...)
	s.mu.Unlock()

	s.logger.Info("settings updated",
		"provider", next.LLM.Provider,
		"model", next.LLM.Model,
		"max_loops", next.Agent.MaxLoops,
	)

	// callbacks may read the store, so they run without the lock
	for _, fn := range callbacks {
		fn(next.Clone())
	}
	return nil
}

// Set updates a single editable key, e.g. "llm.model".
func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	next := s.GetConfig()
	if err := setField(next, key, value); err != nil {
		return err
	}
	return s.UpdateConfig(ctx, next)
}

// EditableKeys lists the keys accepted by Set.
var EditableKeys = []string{
	"llm.provider", "llm.base_url", "llm.api_key", "llm.model", "llm.max_tokens", "llm.timeout",
	"agent.max_loops", "agent.system_prompt", "agent.keep_history",
	"tools.tavily_api_key",
}

func setField(cfg *domain.AppConfig, key, value string) error {
	var err error
	switch key {
	case "llm.provider":
		cfg.LLM.Provider = value
	case "llm.base_url":
		cfg.LLM.BaseURL = value
	case "llm.api_key":
		cfg.LLM.APIKey = value
	case "llm.model":
		cfg.LLM.Model = value
	case "llm.max_tokens":
		cfg.LLM.MaxTokens, err = strconv.Atoi(value)
	case "llm.timeout":
		cfg.LLM.Timeout, err = time.ParseDuration(value)
	case "agent.max_loops":
		cfg.Agent.MaxLoops, err = strconv.Atoi(value)
	case "agent.system_prompt":
		cfg.Agent.SystemPrompt = value
	case "agent.keep_history":
		cfg.Agent.KeepHistory, err = strconv.ParseBool(value)
	case "tools.tavily_api_key":
		cfg.Tools.TavilyAPIKey = value
	default:
		return fmt.Errorf("unknown or read-only setting %q (editable: %s)", key, strings.Join(EditableKeys, ", "))
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}

func (s *SettingsStore) loadFromDB(ctx context.Context, cfg *domain.AppConfig) error {
	raw, err := s.repo.GetSetting(ctx, settingsKey)
	if err != nil {
		return err
	}

	var stored storedConfig
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return fmt.Errorf("unmarshal settings: %w", err)
	}

	cfg.LLM.Provider = stored.LLM.Provider
	cfg.LLM.BaseURL = stored.LLM.BaseURL
	cfg.LLM.Model = stored.LLM.Model
	cfg.LLM.MaxTokens = stored.LLM.MaxTokens
	cfg.LLM.Timeout = time.Duration(stored.LLM.TimeoutMS) * time.Millisecond
	cfg.Agent = stored.Agent

	s.openSecret("llm.api_key", stored.LLM.EncryptedAPIKey, &cfg.LLM.APIKey)
	s.openSecret("tools.tavily_api_key", stored.EncryptedTavilyKey, &cfg.Tools.TavilyAPIKey)
	return nil
}

func (s *SettingsStore) saveToDB(ctx context.Context, cfg *domain.AppConfig) error {
	stored := storedConfig{
		LLM: storedLLMConfig{
			Provider:  cfg.LLM.Provider,
			BaseURL:   cfg.LLM.BaseURL,
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
			TimeoutMS: cfg.LLM.Timeout.Milliseconds(),
		},
		Agent: cfg.Agent,
	}

	var err error
	if stored.LLM.EncryptedAPIKey, err = s.secret.Seal("llm.api_key", cfg.LLM.APIKey); err != nil {
		return fmt.Errorf("seal llm.api_key: %w", err)
	}
	if stored.EncryptedTavilyKey, err = s.secret.Seal("tools.tavily_api_key", cfg.Tools.TavilyAPIKey); err != nil {
		return fmt.Errorf("seal tools.tavily_api_key: %w", err)
	}

	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	return s.repo.SaveSetting(ctx, settingsKey, string(raw))
}

// openSecret keeps the file value in dst when the stored one cannot be
// opened, e.g. after the key file was replaced.
func (s *SettingsStore) openSecret(field, stored string, dst *string) {
	if stored == "" {
		return
	}
	v, err := s.secret.Open(field, stored)
	if err != nil {
		s.logger.Warn("stored secret ignored", "field", field, "error", err)
		return
	}
	*dst = v
}

// storedConfig is the DB representation with encrypted fields
type storedConfig struct {
	LLM                storedLLMConfig    `json:"llm"`
	Agent              domain.AgentConfig `json:"agent"`
	EncryptedTavilyKey string             `json:"encrypted_tavily_api_key,omitempty"`
}

type storedLLMConfig struct {
	Provider        string `json:"provider"`
	BaseURL         string `json:"base_url"`
	EncryptedAPIKey string `json:"encrypted_api_key,omitempty"`
	Model           string `json:"model"`
	MaxTokens       int    `json:"max_tokens"`
	TimeoutMS       int64  `json:"timeout_ms"`
}

func isMasked(s string) bool {
	return len(s) >= 4 && s[:4] == "****"
}
