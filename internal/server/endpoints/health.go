package endpoints

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/adoread/internal/api"
	"github.com/jackzampolin/adoread/internal/svcctx"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status   string `json:"status"`
	Provider string `json:"provider,omitempty"`
	Database string `json:"database,omitempty"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Health check
//	@Description	Returns ok while the HTTP server is responding
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/health [get]
func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			return api.Print(resp, func(w io.Writer) {
				fmt.Fprintf(w, "Status: %s\n", resp.Status)
			})
		},
	}
}

// ReadyEndpoint handles GET /ready.
type ReadyEndpoint struct{}

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Readiness check
//	@Description	Returns ok only when an LLM provider is configured and the call ledger is reachable
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse
//	@Router			/ready [get]
func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Provider: "ok", Database: "ok"}
	status := http.StatusOK

	if registry := svcctx.RegistryFrom(r.Context()); registry == nil || !registry.Ready() {
		resp.Status = "degraded"
		resp.Provider = "not_configured"
		status = http.StatusServiceUnavailable
	}

	if store := svcctx.LLMCallStoreFrom(r.Context()); store == nil {
		resp.Database = "not_initialized"
	} else if err := store.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Database = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness (includes LLM provider)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/ready", &resp); err != nil {
				return err
			}
			return api.Print(resp, func(w io.Writer) {
				fmt.Fprintf(w, "Status:   %s\n", resp.Status)
				fmt.Fprintf(w, "Provider: %s\n", resp.Provider)
				fmt.Fprintf(w, "Database: %s\n", resp.Database)
			})
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server     string   `json:"server"`
	Version    string   `json:"version"`
	ConfigFile string   `json:"config_file,omitempty"`
	Home       string   `json:"home,omitempty"`
	Providers  []string `json:"providers"`
	Default    string   `json:"default_provider,omitempty"`
	Sessions   int      `json:"sessions"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct {
	// Version is set by the server since it is a build-time value
	Version string
}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Server status
//	@Description	Registered providers, active chat sessions and file locations
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Router			/status [get]
func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := StatusResponse{
		Server:    "running",
		Version:   e.Version,
		Providers: []string{},
	}

	if registry := svcctx.RegistryFrom(ctx); registry != nil {
		resp.Providers = registry.ListLLM()
		if client, err := registry.Default(); err == nil {
			resp.Default = client.Name()
		}
	}
	if s := svcctx.ServicesFrom(ctx); s != nil && s.ConfigManager != nil {
		resp.ConfigFile = s.ConfigManager.File()
	}
	if h := svcctx.HomeFrom(ctx); h != nil {
		resp.Home = h.Path()
	}
	if a := svcctx.AssistantFrom(ctx); a != nil {
		resp.Sessions = a.Sessions().Len()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			return api.Print(resp, func(w io.Writer) {
				fmt.Fprintf(w, "Server:   %s (%s)\n", resp.Server, resp.Version)
				fmt.Fprintf(w, "Config:   %s\n", orNone(resp.ConfigFile))
				fmt.Fprintf(w, "Home:     %s\n", resp.Home)
				fmt.Fprintf(w, "Sessions: %d\n", resp.Sessions)
				fmt.Fprintf(w, "Providers:\n")
				fmt.Fprintf(w, "  LLM:     %v\n", resp.Providers)
				fmt.Fprintf(w, "  Default: %s\n", orNone(resp.Default))
			})
		},
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// decodeJSON reads a JSON request body of at most limit bytes.
func decodeJSON(r *http.Request, limit int64, v any) error {
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, limit)).Decode(v)
}
