package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/manthysbr/toolchat/internal/core/domain"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "TOOLCHAT"
	ConfigName = "toolchat"
)

// DefaultDir is where the key file, the log and an optional toolchat.yaml live.
func DefaultDir() string {
	return filepath.Join(homeDir(), ".toolchat")
}

// Loader resolves the configuration from defaults, a config file, TOOLCHAT_*
// environment variables and bound flags, in increasing precedence.
type Loader struct {
	v     *viper.Viper
	flags map[string]*pflag.Flag // config key -> flag
}

func NewLoader() *Loader {
	v := viper.New()
	setDefaults(v, domain.DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v, flags: map[string]*pflag.Flag{}}
}

func setDefaults(v *viper.Viper, d *domain.AppConfig) {
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.timeout", d.LLM.Timeout)

	v.SetDefault("agent.max_loops", d.Agent.MaxLoops)
	v.SetDefault("agent.system_prompt", d.Agent.SystemPrompt)
	v.SetDefault("agent.keep_history", d.Agent.KeepHistory)

	v.SetDefault("tools.enabled", []string{})
	v.SetDefault("tools.docs_root", d.Tools.DocsRoot)
	v.SetDefault("tools.tavily_api_key", "")
	v.SetDefault("tools.tavily_url", d.Tools.TavilyURL)
	v.SetDefault("tools.constant_x", d.Tools.ConstantX)
	v.SetDefault("tools.constant_y", d.Tools.ConstantY)
	v.SetDefault("tools.guess_target", d.Tools.GuessTarget)
	v.SetDefault("tools.guess_max", d.Tools.GuessMax)

	v.SetDefault("storage.db_path", d.Storage.DBPath)
	v.SetDefault("storage.secret_key_path", filepath.Join(DefaultDir(), "secret.key"))

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)

	v.SetDefault("ui.poll_interval", d.UI.PollInterval)
	v.SetDefault("ui.log_file", filepath.Join(DefaultDir(), "toolchat.log"))
}

// BindFlag makes flag override key when it is set on the command line.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("bind %s: flag not defined", key)
	}
	if err := l.v.BindPFlag(key, flag); err != nil {
		return fmt.Errorf("bind %s: %w", key, err)
	}
	l.flags[key] = flag
	return nil
}

// Load reads file (or toolchat.yaml from . and ~/.toolchat when file is
// empty) and returns the merged configuration. A missing default file is not
// an error.
func (l *Loader) Load(file string) (*domain.AppConfig, error) {
	if file != "" {
		l.v.SetConfigFile(file)
	} else {
		l.v.SetConfigName(ConfigName)
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		l.v.AddConfigPath(DefaultDir())
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &domain.AppConfig{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyKeyFallbacks(cfg)
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigFileUsed returns the file read by Load, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Pinned returns the keys set explicitly for this process through a flag or a
// TOOLCHAT_* variable.
func (l *Loader) Pinned() []string {
	var keys []string
	for _, key := range l.v.AllKeys() {
		if f, ok := l.flags[key]; ok && f.Changed {
			keys = append(keys, key)
			continue
		}
		if _, ok := os.LookupEnv(EnvName(key)); ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// ApplyPinned copies the pinned values onto cfg, so that they win over the
// persisted settings.
func (l *Loader) ApplyPinned(cfg *domain.AppConfig) error {
	pinned := l.Pinned()
	if len(pinned) == 0 {
		return nil
	}
	o := viper.New()
	for _, key := range pinned {
		o.Set(key, l.v.Get(key))
	}
	if err := o.Unmarshal(cfg); err != nil {
		return fmt.Errorf("apply overrides: %w", err)
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	return nil
}

// EnvName maps a config key to its environment variable, e.g. llm.model to
// TOOLCHAT_LLM_MODEL.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func applyKeyFallbacks(cfg *domain.AppConfig) {
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case domain.ProviderOpenAI:
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case domain.ProviderAnthropic:
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if cfg.Tools.TavilyAPIKey == "" {
		cfg.Tools.TavilyAPIKey = os.Getenv("TAVILY_API_KEY")
	}
}

// Validate rejects configurations the engine cannot run with.
func Validate(cfg *domain.AppConfig) error {
	switch cfg.LLM.Provider {
	case domain.ProviderOpenAI, domain.ProviderLocal, domain.ProviderAnthropic:
	default:
		return fmt.Errorf("unsupported llm provider %q", cfg.LLM.Provider)
	}
	if cfg.Agent.MaxLoops < 1 {
		return fmt.Errorf("agent.max_loops must be at least 1, got %d", cfg.Agent.MaxLoops)
	}
	if cfg.LLM.MaxTokens < 0 {
		return fmt.Errorf("llm.max_tokens must not be negative")
	}
	if cfg.LLM.Timeout < 0 {
		return fmt.Errorf("llm.timeout must not be negative")
	}
	if cfg.UI.PollInterval <= 0 {
		return fmt.Errorf("ui.poll_interval must be positive")
	}
	return nil
}
