package domain

import "time"

// Provider names understood by the provider factory
const (
	ProviderOpenAI    = "openai"    // OpenAI or any compatible remote endpoint
	ProviderLocal     = "local"     // Ollama's OpenAI-compatible /v1
	ProviderAnthropic = "anthropic" // Anthropic Messages API
)

const DefaultSystemPrompt = "You are a helpful assistant running in a terminal. " +
	"When a tool can answer part of the question, call it, then use its JSON result. " +
	"Reply with a concise final answer once you have what you need."

// LLMConfig configures the model provider
type LLMConfig struct {
	Provider  string        `json:"provider" mapstructure:"provider"`
	BaseURL   string        `json:"base_url" mapstructure:"base_url"` // "https://api.openai.com/v1"
	APIKey    string        `json:"api_key" mapstructure:"api_key"`   // encrypted in storage
	Model     string        `json:"model" mapstructure:"model"`
	MaxTokens int           `json:"max_tokens" mapstructure:"max_tokens"`
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
}

// AgentConfig configures the multi-step loop
type AgentConfig struct {
	MaxLoops     int    `json:"max_loops" mapstructure:"max_loops"`
	SystemPrompt string `json:"system_prompt" mapstructure:"system_prompt"`
	KeepHistory  bool   `json:"keep_history" mapstructure:"keep_history"`
}

// ToolsConfig configures the built-in tools
type ToolsConfig struct {
	Enabled      []string `json:"enabled" mapstructure:"enabled"` // empty = all
	DocsRoot     string   `json:"docs_root" mapstructure:"docs_root"`
	TavilyAPIKey string   `json:"tavily_api_key" mapstructure:"tavily_api_key"`
	TavilyURL    string   `json:"tavily_url" mapstructure:"tavily_url"`
	ConstantX    int      `json:"constant_x" mapstructure:"constant_x"`
	ConstantY    int      `json:"constant_y" mapstructure:"constant_y"`
	GuessTarget  int      `json:"guess_target" mapstructure:"guess_target"`
	GuessMax     int      `json:"guess_max" mapstructure:"guess_max"`
}

type StorageConfig struct {
	DBPath        string `json:"db_path" mapstructure:"db_path"`
	SecretKeyPath string `json:"secret_key_path" mapstructure:"secret_key_path"`
}

type ServerConfig struct {
	Addr           string   `json:"addr" mapstructure:"addr"`
	AllowedOrigins []string `json:"allowed_origins" mapstructure:"allowed_origins"`
}

type UIConfig struct {
	PollInterval time.Duration `json:"poll_interval" mapstructure:"poll_interval"`
	LogFile      string        `json:"log_file" mapstructure:"log_file"`
}

// AppConfig is the main application configuration
type AppConfig struct {
	LLM     LLMConfig     `json:"llm" mapstructure:"llm"`
	Agent   AgentConfig   `json:"agent" mapstructure:"agent"`
	Tools   ToolsConfig   `json:"tools" mapstructure:"tools"`
	Storage StorageConfig `json:"storage" mapstructure:"storage"`
	Server  ServerConfig  `json:"server" mapstructure:"server"`
	UI      UIConfig      `json:"ui" mapstructure:"ui"`
}

// DefaultConfig returns safe defaults
func DefaultConfig() *AppConfig {
	return &AppConfig{
		LLM: LLMConfig{
			Provider:  ProviderOpenAI,
			BaseURL:   "https://api.openai.com/v1",
			Model:     "gpt-4o-mini",
			MaxTokens: 2000,
			Timeout:   60 * time.Second,
		},
		Agent: AgentConfig{
			MaxLoops:     10,
			SystemPrompt: DefaultSystemPrompt,
			KeepHistory:  true,
		},
		Tools: ToolsConfig{
			DocsRoot:    "docs",
			TavilyURL:   "https://api.tavily.com/search",
			ConstantX:   42,
			ConstantY:   7,
			GuessTarget: 8,
			GuessMax:    10,
		},
		Storage: StorageConfig{
			DBPath: "toolchat.db",
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		UI: UIConfig{
			PollInterval: 100 * time.Millisecond,
		},
	}
}

// Clone returns a deep copy
func (c *AppConfig) Clone() *AppConfig {
	cp := *c
	cp.Tools.Enabled = append([]string(nil), c.Tools.Enabled...)
	cp.Server.AllowedOrigins = append([]string(nil), c.Server.AllowedOrigins...)
	return &cp
}
