package config

import (
	"time"
)

// Config holds adoread configuration.
// Stored at: {home}/config.yaml
type Config struct {
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults"`
	Server       ServerCfg                 `mapstructure:"server" yaml:"server"`
	Sessions     SessionsCfg               `mapstructure:"sessions" yaml:"sessions"`
	RateLimit    RateLimitCfg              `mapstructure:"rate_limit" yaml:"rate_limit"`
	History      HistoryCfg                `mapstructure:"history" yaml:"history"`
	Assistant    AssistantCfg              `mapstructure:"assistant" yaml:"assistant"`
	Logging      LoggingCfg                `mapstructure:"logging" yaml:"logging"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type      string `mapstructure:"type" yaml:"type"`                   // "openai", "openrouter"
	Model     string `mapstructure:"model" yaml:"model"`                 // Model name
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`             // API key (supports ${ENV_VAR} syntax)
	BaseURL   string `mapstructure:"base_url" yaml:"base_url,omitempty"` // OpenAI-compatible endpoint
	RateLimit int    `mapstructure:"rate_limit" yaml:"rate_limit"`       // Requests per minute
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies default selections.
type DefaultsCfg struct {
	LLMProvider  string `mapstructure:"llm_provider" yaml:"llm_provider"`     // Default LLM provider
	WordsPerPage int    `mapstructure:"words_per_page" yaml:"words_per_page"` // Paragraph pagination threshold
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host         string `mapstructure:"host" yaml:"host"`
	Port         string `mapstructure:"port" yaml:"port"`
	MaxUploadMB  int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	WriteTimeout string `mapstructure:"write_timeout" yaml:"write_timeout"` // bounds a hung upstream call
}

// SessionsCfg bounds the chat session registry.
type SessionsCfg struct {
	IdleTTL     string `mapstructure:"idle_ttl" yaml:"idle_ttl"`
	MaxSessions int    `mapstructure:"max_sessions" yaml:"max_sessions"`
}

// RateLimitCfg limits /api requests per client address.
type RateLimitCfg struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Requests int64  `mapstructure:"requests" yaml:"requests"`
	Period   string `mapstructure:"period" yaml:"period"`
}

// HistoryCfg selects where the word history is kept.
type HistoryCfg struct {
	Backend string `mapstructure:"backend" yaml:"backend"` // "sqlite" or "file"
	Path    string `mapstructure:"path" yaml:"path"`       // empty uses the home directory
}

// AssistantCfg tunes the definition and chat prompts.
type AssistantCfg struct {
	DefineModel      string `mapstructure:"define_model" yaml:"define_model"`
	ChatModel        string `mapstructure:"chat_model" yaml:"chat_model"`
	SuggestModel     string `mapstructure:"suggest_model" yaml:"suggest_model"`
	MaxPhraseWords   int    `mapstructure:"max_phrase_words" yaml:"max_phrase_words"`
	MaxContextTokens int    `mapstructure:"max_context_tokens" yaml:"max_context_tokens"`
	TokenEncoding    string `mapstructure:"token_encoding" yaml:"token_encoding"`
}

// LoggingCfg configures log output.
type LoggingCfg struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // auto, text, json
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"gemini": {
				Type:    "openai",
				Model:   "gemini-2.0-flash",
				APIKey:  "${GEMINI_API_KEY}",
				BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai/",
				Enabled: true,
			},
			"openrouter": {
				Type:      "openrouter",
				Model:     "google/gemini-2.0-flash-001",
				APIKey:    "${OPENROUTER_API_KEY}",
				RateLimit: 120,
				Enabled:   true,
			},
		},
		Defaults: DefaultsCfg{
			LLMProvider:  "gemini",
			WordsPerPage: 300,
		},
		Server: ServerCfg{
			Host:         "127.0.0.1",
			Port:         "8080",
			MaxUploadMB:  20,
			WriteTimeout: "2m",
		},
		Sessions: SessionsCfg{
			IdleTTL:     "30m",
			MaxSessions: 1000,
		},
		RateLimit: RateLimitCfg{
			Enabled:  true,
			Requests: 60,
			Period:   "1m",
		},
		History: HistoryCfg{
			Backend: "sqlite",
		},
		Assistant: AssistantCfg{
			MaxPhraseWords:   30,
			MaxContextTokens: 6000,
			TokenEncoding:    "cl100k_base",
		},
		Logging: LoggingCfg{
			Level:  "info",
			Format: "auto",
		},
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// SessionIdleTTL parses sessions.idle_ttl, falling back to 30 minutes.
func (c *Config) SessionIdleTTL() time.Duration {
	return parseDuration(c.Sessions.IdleTTL, 30*time.Minute)
}

// RateLimitPeriod parses rate_limit.period, falling back to one minute.
func (c *Config) RateLimitPeriod() time.Duration {
	return parseDuration(c.RateLimit.Period, time.Minute)
}

// WriteTimeout parses server.write_timeout, falling back to two minutes.
func (c *Config) WriteTimeout() time.Duration {
	return parseDuration(c.Server.WriteTimeout, 2*time.Minute)
}

// MaxUploadBytes is server.max_upload_mb in bytes.
func (c *Config) MaxUploadBytes() int64 {
	mb := c.Server.MaxUploadMB
	if mb <= 0 {
		mb = 20
	}
	return int64(mb) << 20
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
