package endpoints

import (
	"github.com/jackzampolin/adoread/internal/api"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	Version         string
	SwaggerSpecPath string
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{Version: cfg.Version},

		// Reader assistant endpoints
		&DefineEndpoint{},
		&ChatEndpoint{},
		&FeedEndpoint{},

		// Document endpoints
		&UploadDocumentEndpoint{},
		&PaginateEndpoint{},

		// Settings endpoints
		&ListSettingsEndpoint{},
		&GetSettingEndpoint{},

		// LLM call history endpoints
		&ListLLMCallsEndpoint{},
		&GetLLMCallEndpoint{},
		&LLMCallCountsEndpoint{},
		&LLMCallSummaryEndpoint{},

		&MetricsEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{SpecPath: cfg.SwaggerSpecPath},
		&SwaggerUIEndpoint{},

		// Static files (catch-all, must be last)
		&StaticEndpoint{},
	}
}

// Groups returns the CLI command groups keyed by the path segment after
// /api/. Endpoints outside these groups are top-level api commands.
func Groups() map[string]string {
	return map[string]string{
		"documents": "Document upload commands",
		"settings":  "Configuration settings commands",
		"llmcalls":  "LLM call history commands",
	}
}

// NewRegistry builds an api.Registry holding All(cfg) with Groups applied.
func NewRegistry(cfg Config) *api.Registry {
	r := api.NewRegistry()
	for _, ep := range All(cfg) {
		r.Register(ep)
	}
	for name, short := range Groups() {
		r.DescribeGroup(name, short)
	}
	return r
}
