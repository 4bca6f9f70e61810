package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/manthysbr/toolchat/internal/adapters/duckdb"
	"github.com/manthysbr/toolchat/internal/adapters/providers"
	"github.com/manthysbr/toolchat/internal/config"
	"github.com/manthysbr/toolchat/internal/core/domain"
	"github.com/manthysbr/toolchat/internal/core/services"
)

// app is the storage and tool side every command shares.
type app struct {
	logger   *slog.Logger
	loader   *config.Loader
	cfg      *domain.AppConfig // persisted settings with flags and env on top
	repo     *duckdb.Repository
	settings *config.SettingsStore
	resolver *services.Resolver
}

// loadConfig resolves defaults, the config file, env and flags.
func (o *RootOptions) loadConfig() (*domain.AppConfig, error) {
	return o.loader.Load(o.ConfigFile)
}

// openApp opens the database on top of base and builds the tool registry.
// Callers own the returned app and must Close it.
func (o *RootOptions) openApp(ctx context.Context, logger *slog.Logger, base *domain.AppConfig) (*app, error) {
	if used := o.loader.ConfigFileUsed(); used != "" {
		logger.Debug("config file loaded", "path", used)
	}

	repo, err := duckdb.NewRepository(base.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to init repository: %w", err)
	}

	a, err := o.wire(ctx, logger, base, repo)
	if err != nil {
		repo.Close()
		return nil, err
	}
	return a, nil
}

// setup is loadConfig, a logger on w and openApp in one call.
func (o *RootOptions) setup(ctx context.Context, w io.Writer) (*app, error) {
	base, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := o.NewLogger(w)
	if err != nil {
		return nil, err
	}
	return o.openApp(ctx, logger, base)
}

func (o *RootOptions) wire(ctx context.Context, logger *slog.Logger, base *domain.AppConfig, repo *duckdb.Repository) (*app, error) {
	secret, err := config.NewSecretKey(base.Storage.SecretKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to init secret key: %w", err)
	}

	settings, err := config.NewSettingsStore(ctx, logger, repo, secret, base)
	if err != nil {
		return nil, err
	}

	cfg := settings.GetConfig()
	if err := o.loader.ApplyPinned(cfg); err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	reg, err := services.NewDefaultRegistry(logger, services.ToolDeps{
		Config: cfg.Tools,
		Files:  repo,
	})
	if err != nil {
		return nil, err
	}

	return &app{
		logger:   logger,
		loader:   o.loader,
		cfg:      cfg,
		repo:     repo,
		settings: settings,
		resolver: services.NewResolver(logger, reg),
	}, nil
}

func (a *app) Close() error {
	return a.repo.Close()
}

// engine runs prompts: the proposer, the chat service and the worker bridge.
type engine struct {
	providers *services.ProviderRegistry
	chat      *services.ChatService
	bridge    *services.Bridge
}

// newEngine builds the chat side. With keepHistory the conversation is
// persisted and the latest one is restored. Settings changes rebuild the
// proposer in place.
func (a *app) newEngine(ctx context.Context, keepHistory bool) (*engine, error) {
	proposer, err := providers.Build(a.logger, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init provider: %w", err)
	}
	registry := services.NewProviderRegistry(a.cfg.LLM, proposer)

	orch := services.NewOrchestrator(a.logger, registry, a.resolver, a.cfg.Agent.MaxLoops)

	var store *services.ConversationStore
	if keepHistory {
		store = services.NewConversationStore(a.repo, 0)
	}
	chat := services.NewChatService(a.logger, orch, store, services.ChatConfig{
		SystemPrompt: a.cfg.Agent.SystemPrompt,
		KeepHistory:  keepHistory,
	})
	if err := chat.Restore(ctx); err != nil {
		return nil, fmt.Errorf("failed to restore conversation: %w", err)
	}

	a.settings.OnChange(func(next *domain.AppConfig) {
		if err := a.loader.ApplyPinned(next); err != nil {
			a.logger.Error("settings reload failed", "error", err)
			return
		}
		p, err := providers.Build(a.logger, next)
		if err != nil {
			a.logger.Error("provider reload failed", "error", err)
			return
		}
		registry.UpdateProvider(next.LLM, p)
		a.logger.Info("provider reloaded", "provider", next.LLM.Provider, "model", next.LLM.Model)
	})

	return &engine{
		providers: registry,
		chat:      chat,
		bridge:    services.NewBridge(a.logger, chat, services.BridgeConfig{}),
	}, nil
}
