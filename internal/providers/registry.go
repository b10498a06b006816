package providers

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// ErrNoProvider is returned when no LLM client is available.
var ErrNoProvider = errors.New("no LLM provider configured")

// Registry holds named LLM clients. It supports config-driven
// instantiation and hot reload, and is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	llmClients  map[string]LLMClient
	defaultName string
	logger      *slog.Logger
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		llmClients: make(map[string]LLMClient),
		logger:     slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// RegisterLLM registers an LLM client by name.
func (r *Registry) RegisterLLM(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llmClients[name] = client
	if r.logger != nil {
		r.logger.Info("registered LLM client", "name", name)
	}
}

// UnregisterLLM removes an LLM client by name.
func (r *Registry) UnregisterLLM(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.llmClients, name)
	if r.logger != nil {
		r.logger.Info("unregistered LLM client", "name", name)
	}
}

// SetDefault selects the client returned by Default.
func (r *Registry) SetDefault(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultName = name
}

// GetLLM returns an LLM client by name.
func (r *Registry) GetLLM(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.llmClients[name]
	if !ok {
		return nil, fmt.Errorf("LLM client not found: %s", name)
	}
	return client, nil
}

// Default returns the configured default client, or the only registered
// client when no default is set.
func (r *Registry) Default() (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.defaultName != "" {
		if client, ok := r.llmClients[r.defaultName]; ok {
			return client, nil
		}
	}
	if len(r.llmClients) == 1 {
		for _, client := range r.llmClients {
			return client, nil
		}
	}
	if len(r.llmClients) == 0 {
		return nil, ErrNoProvider
	}
	return nil, fmt.Errorf("%w: default %q not registered", ErrNoProvider, r.defaultName)
}

// ListLLM returns all registered LLM client names, sorted.
func (r *Registry) ListLLM() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.llmClients))
	for name := range r.llmClients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasLLM checks if an LLM client is registered.
func (r *Registry) HasLLM(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.llmClients[name]
	return ok
}

// Ready reports whether Default would succeed.
func (r *Registry) Ready() bool {
	_, err := r.Default()
	return err == nil
}

// RegistryConfig defines the providers to instantiate from config.
type RegistryConfig struct {
	LLMProviders map[string]LLMProviderConfig
	Default      string
}

// LLMProviderConfig matches config.LLMProviderCfg with a resolved API key.
type LLMProviderConfig struct {
	Type      string // "openrouter", "openai"
	Model     string
	APIKey    string
	BaseURL   string
	RateLimit int // Requests per minute
	Enabled   bool
}

// NewRegistryFromConfig creates a registry with providers based on configuration.
// Only enabled providers with an API key are registered.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	r.Reload(cfg)
	return r
}

// Reload reconciles the registry with cfg. Providers no longer configured
// are removed and providers with changed settings are recreated.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool)
	for name, provCfg := range cfg.LLMProviders {
		if !provCfg.Enabled || provCfg.APIKey == "" {
			continue
		}
		want[name] = true

		existing, hasExisting := r.llmClients[name]
		if hasExisting && !needsLLMUpdate(existing, provCfg) {
			continue
		}
		client := createLLMClient(provCfg)
		if client == nil {
			if r.logger != nil {
				r.logger.Warn("unknown LLM provider type", "name", name, "type", provCfg.Type)
			}
			continue
		}
		r.llmClients[name] = client
		if r.logger != nil {
			if hasExisting {
				r.logger.Info("updated LLM client", "name", name, "type", provCfg.Type)
			} else {
				r.logger.Info("registered LLM client", "name", name, "type", provCfg.Type)
			}
		}
	}

	for name := range r.llmClients {
		if !want[name] {
			delete(r.llmClients, name)
			if r.logger != nil {
				r.logger.Info("unregistered LLM client", "name", name)
			}
		}
	}
	r.defaultName = cfg.Default
}

func createLLMClient(cfg LLMProviderConfig) LLMClient {
	switch cfg.Type {
	case OpenRouterName:
		return NewOpenRouterClient(OpenRouterConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			RateLimit:    cfg.RateLimit,
		})
	case OpenAIName, "gemini":
		baseURL := cfg.BaseURL
		if baseURL == "" && cfg.Type == "gemini" {
			baseURL = GeminiOpenAIBaseURL
		}
		return NewOpenAIClient(OpenAIConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      baseURL,
			DefaultModel: cfg.Model,
			RateLimit:    cfg.RateLimit,
		})
	default:
		return nil
	}
}

func needsLLMUpdate(client LLMClient, cfg LLMProviderConfig) bool {
	switch c := client.(type) {
	case *OpenRouterClient:
		return cfg.Type != OpenRouterName ||
			c.apiKey != cfg.APIKey ||
			c.defaultModel != orDefault(cfg.Model, c.defaultModel) ||
			(cfg.BaseURL != "" && c.baseURL != cfg.BaseURL) ||
			c.rateLimit != cfg.RateLimit
	case *OpenAIClient:
		return (cfg.Type != OpenAIName && cfg.Type != "gemini") ||
			c.apiKey != cfg.APIKey ||
			c.defaultModel != orDefault(cfg.Model, c.defaultModel) ||
			(cfg.BaseURL != "" && c.baseURL != cfg.BaseURL) ||
			c.rateLimit != cfg.RateLimit
	default:
		return true
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
