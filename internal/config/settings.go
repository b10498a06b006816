package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// ErrInvalidKey is returned when a settings key contains invalid characters.
var ErrInvalidKey = errors.New("invalid config key")

// ErrUnknownKey is returned for a well-formed key that names no setting.
var ErrUnknownKey = errors.New("unknown config key")

// Entry is one effective setting, as listed by the settings endpoint.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Default     any    `json:"default" yaml:"default"`
	Description string `json:"description" yaml:"description"`
}

// ValidateKey checks that a key contains only letters, digits, dots,
// underscores and hyphens, and does not start or end with a dot.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	for i, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '_' && r != '-' {
			return fmt.Errorf("%w: invalid character %q at position %d", ErrInvalidKey, r, i)
		}
	}
	if key[0] == '.' || key[len(key)-1] == '.' {
		return fmt.Errorf("%w: key cannot start or end with a dot", ErrInvalidKey)
	}
	return nil
}

type setting struct {
	key         string
	description string
	get         func(*Config) any
}

var settings = []setting{
	{"defaults.llm_provider", "LLM provider used for definitions, chat and suggestions", func(c *Config) any { return c.Defaults.LLMProvider }},
	{"defaults.words_per_page", "Word threshold for paragraph-based pagination", func(c *Config) any { return c.Defaults.WordsPerPage }},
	{"server.host", "Address the HTTP server binds to", func(c *Config) any { return c.Server.Host }},
	{"server.port", "Port the HTTP server listens on", func(c *Config) any { return c.Server.Port }},
	{"server.max_upload_mb", "Largest accepted document upload in MiB", func(c *Config) any { return c.Server.MaxUploadMB }},
	{"server.write_timeout", "Upper bound on a response, including the upstream LLM call", func(c *Config) any { return c.Server.WriteTimeout }},
	{"sessions.idle_ttl", "Chat sessions unused for this long are evicted", func(c *Config) any { return c.Sessions.IdleTTL }},
	{"sessions.max_sessions", "Most chat sessions kept at once", func(c *Config) any { return c.Sessions.MaxSessions }},
	{"rate_limit.enabled", "Whether /api requests are rate limited per client", func(c *Config) any { return c.RateLimit.Enabled }},
	{"rate_limit.requests", "Requests allowed per client each period", func(c *Config) any { return c.RateLimit.Requests }},
	{"rate_limit.period", "Rate limit window", func(c *Config) any { return c.RateLimit.Period }},
	{"history.backend", "Word history storage: sqlite or file", func(c *Config) any { return c.History.Backend }},
	{"history.path", "Word history location (empty uses the home directory)", func(c *Config) any { return c.History.Path }},
	{"assistant.define_model", "Model override for definitions", func(c *Config) any { return c.Assistant.DefineModel }},
	{"assistant.chat_model", "Model override for chat", func(c *Config) any { return c.Assistant.ChatModel }},
	{"assistant.suggest_model", "Model override for reading suggestions", func(c *Config) any { return c.Assistant.SuggestModel }},
	{"assistant.max_phrase_words", "Longest selection, in words, that can be defined", func(c *Config) any { return c.Assistant.MaxPhraseWords }},
	{"assistant.max_context_tokens", "Token budget for document context sent with a prompt", func(c *Config) any { return c.Assistant.MaxContextTokens }},
	{"assistant.token_encoding", "Tokenizer encoding used for context budgeting", func(c *Config) any { return c.Assistant.TokenEncoding }},
	{"logging.level", "Log level: debug, info, warn or error", func(c *Config) any { return c.Logging.Level }},
	{"logging.format", "Log format: auto, text or json", func(c *Config) any { return c.Logging.Format }},
}

// Entries lists the effective settings with their defaults. Provider
// entries are included with literal API keys redacted.
func (c *Config) Entries() []Entry {
	def := DefaultConfig()
	out := make([]Entry, 0, len(settings)+4*len(c.LLMProviders))
	for _, s := range settings {
		out = append(out, Entry{Key: s.key, Value: s.get(c), Default: s.get(def), Description: s.description})
	}

	names := make([]string, 0, len(c.LLMProviders))
	for name := range c.LLMProviders {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := c.LLMProviders[name]
		d := def.LLMProviders[name]
		prefix := "llm_providers." + name + "."
		out = append(out,
			Entry{Key: prefix + "type", Value: p.Type, Default: d.Type, Description: "Provider implementation: openai or openrouter"},
			Entry{Key: prefix + "model", Value: p.Model, Default: d.Model, Description: "Default model for " + name},
			Entry{Key: prefix + "api_key", Value: RedactAPIKey(p.APIKey), Default: d.APIKey, Description: name + " API key (supports ${ENV_VAR} syntax)"},
			Entry{Key: prefix + "enabled", Value: p.Enabled, Default: d.Enabled, Description: "Whether " + name + " is registered"},
		)
	}
	return out
}

// Lookup returns the entry for key.
func (c *Config) Lookup(key string) (Entry, error) {
	if err := ValidateKey(key); err != nil {
		return Entry{}, err
	}
	for _, e := range c.Entries() {
		if e.Key == key {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

// RedactAPIKey hides literal keys. ${ENV_VAR} references are shown as is.
func RedactAPIKey(key string) string {
	if key == "" || strings.HasPrefix(key, "${") && strings.HasSuffix(key, "}") {
		return key
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
