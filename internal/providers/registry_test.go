package providers

import (
	"errors"
	"sync"
	"testing"
)

func TestRegistry(t *testing.T) {
	t.Run("register and get LLM", func(t *testing.T) {
		r := NewRegistry()
		mock := NewMockClient()
		r.RegisterLLM("test-llm", mock)

		client, err := r.GetLLM("test-llm")
		if err != nil {
			t.Fatalf("GetLLM() error = %v", err)
		}
		if client != mock {
			t.Error("got different client than registered")
		}
	})

	t.Run("get nonexistent LLM", func(t *testing.T) {
		r := NewRegistry()
		if _, err := r.GetLLM("nonexistent"); err == nil {
			t.Error("expected error for nonexistent LLM")
		}
	})

	t.Run("default with no providers", func(t *testing.T) {
		r := NewRegistry()
		if _, err := r.Default(); !errors.Is(err, ErrNoProvider) {
			t.Errorf("Default() error = %v, want ErrNoProvider", err)
		}
		if r.Ready() {
			t.Error("Ready() = true, want false")
		}
	})

	t.Run("default falls back to single provider", func(t *testing.T) {
		r := NewRegistry()
		mock := NewMockClient()
		r.RegisterLLM("only", mock)

		client, err := r.Default()
		if err != nil {
			t.Fatalf("Default() error = %v", err)
		}
		if client != mock {
			t.Error("expected the only registered client")
		}
	})

	t.Run("named default", func(t *testing.T) {
		r := NewRegistry()
		a, b := NewMockClient(), NewMockClient()
		r.RegisterLLM("a", a)
		r.RegisterLLM("b", b)

		if _, err := r.Default(); err == nil {
			t.Error("expected ambiguity error without default")
		}
		r.SetDefault("b")
		client, err := r.Default()
		if err != nil {
			t.Fatalf("Default() error = %v", err)
		}
		if client != b {
			t.Error("expected client b")
		}
	})

	t.Run("list is sorted", func(t *testing.T) {
		r := NewRegistry()
		r.RegisterLLM("zeta", NewMockClient())
		r.RegisterLLM("alpha", NewMockClient())

		got := r.ListLLM()
		if len(got) != 2 || got[0] != "alpha" || got[1] != "zeta" {
			t.Errorf("ListLLM() = %v", got)
		}
	})

	t.Run("concurrent access", func(t *testing.T) {
		r := NewRegistry()
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				r.RegisterLLM("llm", NewMockClient())
			}()
			go func() {
				defer wg.Done()
				r.HasLLM("llm")
				r.ListLLM()
			}()
		}
		wg.Wait()
	})
}

func TestRegistryFromConfig(t *testing.T) {
	t.Run("registers enabled providers with keys", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			LLMProviders: map[string]LLMProviderConfig{
				"openrouter": {Type: OpenRouterName, APIKey: "k1", Enabled: true},
				"openai":     {Type: OpenAIName, APIKey: "k2", Enabled: true},
				"disabled":   {Type: OpenRouterName, APIKey: "k3", Enabled: false},
				"nokey":      {Type: OpenRouterName, Enabled: true},
				"unknown":    {Type: "carrier-pigeon", APIKey: "k4", Enabled: true},
			},
			Default: "openai",
		})

		if got := r.ListLLM(); len(got) != 2 {
			t.Fatalf("ListLLM() = %v, want 2 providers", got)
		}
		client, err := r.Default()
		if err != nil {
			t.Fatalf("Default() error = %v", err)
		}
		if client.Name() != OpenAIName {
			t.Errorf("Default().Name() = %q, want openai", client.Name())
		}
	})

	t.Run("gemini uses the OpenAI-compatible endpoint", func(t *testing.T) {
		r := NewRegistryFromConfig(RegistryConfig{
			LLMProviders: map[string]LLMProviderConfig{
				"gemini": {Type: "gemini", APIKey: "k", Model: "gemini-2.0-flash", Enabled: true},
			},
		})
		client, err := r.GetLLM("gemini")
		if err != nil {
			t.Fatalf("GetLLM() error = %v", err)
		}
		oc, ok := client.(*OpenAIClient)
		if !ok {
			t.Fatalf("client type = %T, want *OpenAIClient", client)
		}
		if oc.baseURL != GeminiOpenAIBaseURL {
			t.Errorf("baseURL = %q", oc.baseURL)
		}
	})
}

func TestRegistryReload(t *testing.T) {
	base := RegistryConfig{
		LLMProviders: map[string]LLMProviderConfig{
			"openrouter": {Type: OpenRouterName, APIKey: "k1", Model: "m1", Enabled: true},
		},
	}

	t.Run("keeps providers with unchanged config", func(t *testing.T) {
		r := NewRegistryFromConfig(base)
		before, _ := r.GetLLM("openrouter")
		r.Reload(base)
		after, _ := r.GetLLM("openrouter")
		if before != after {
			t.Error("expected client to be reused")
		}
	})

	t.Run("updates providers with changed API keys", func(t *testing.T) {
		r := NewRegistryFromConfig(base)
		before, _ := r.GetLLM("openrouter")
		r.Reload(RegistryConfig{LLMProviders: map[string]LLMProviderConfig{
			"openrouter": {Type: OpenRouterName, APIKey: "k2", Model: "m1", Enabled: true},
		}})
		after, _ := r.GetLLM("openrouter")
		if before == after {
			t.Error("expected client to be recreated")
		}
	})

	t.Run("removes providers on reload", func(t *testing.T) {
		r := NewRegistryFromConfig(base)
		r.Reload(RegistryConfig{})
		if r.HasLLM("openrouter") {
			t.Error("expected provider to be removed")
		}
	})

	t.Run("concurrent reload is safe", func(t *testing.T) {
		r := NewRegistryFromConfig(base)
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				r.Reload(base)
			}()
			go func() {
				defer wg.Done()
				r.Default()
			}()
		}
		wg.Wait()
	})
}
