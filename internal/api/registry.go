package api

import (
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

// Endpoint pairs an HTTP route with the CLI command that calls it, so the
// server and the `adoread api` tree are built from the same list.
type Endpoint interface {
	Route() (method, path string, handler http.HandlerFunc)

	// RequiresInit reports whether the handler needs an LLM provider. Such
	// routes answer 503 until one is configured.
	RequiresInit() bool

	// Command builds the client command. getServerURL is read when the
	// command runs, after flags are parsed. A nil command means the route
	// has no CLI counterpart.
	Command(getServerURL func() string) *cobra.Command
}

// Registry holds all registered endpoints.
type Registry struct {
	endpoints []Endpoint
	extra     []*cobra.Command
	groups    map[string]string
}

// NewRegistry creates a new endpoint registry.
func NewRegistry() *Registry {
	return &Registry{groups: make(map[string]string)}
}

// DescribeGroup makes endpoints under /api/<name>/ build as subcommands of
// a "<name>" command with the given short description.
func (r *Registry) DescribeGroup(name, short string) {
	r.groups[name] = short
}

// Register adds an endpoint to the registry.
func (r *Registry) Register(ep Endpoint) {
	r.endpoints = append(r.endpoints, ep)
}

// AddCommand attaches a client-only command that has no route of its own.
func (r *Registry) AddCommand(cmd *cobra.Command) {
	r.extra = append(r.extra, cmd)
}

// RegisterRoutes registers all endpoint HTTP routes with the given mux.
// initMiddleware wraps handlers that require full server initialization.
func (r *Registry) RegisterRoutes(mux *http.ServeMux, initMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	for _, ep := range r.endpoints {
		method, path, handler := ep.Route()
		if ep.RequiresInit() {
			handler = initMiddleware(handler)
		}
		mux.HandleFunc(method+" "+path, handler)
	}
}

// BuildCommands returns a cobra.Command tree for all registered endpoints.
// Commands are organized by their URL path structure.
// getServerURL is called at runtime to get the server URL.
func (r *Registry) BuildCommands(getServerURL func() string) *cobra.Command {
	apiCmd := &cobra.Command{
		Use:   "api",
		Short: "Commands that call the running server",
		Long: `API commands call the running adoread server via HTTP.

These commands require a running server (adoread serve).
Use --server to specify a custom server URL.

Examples:
  adoread api health                      # Check server health
  adoread api define serendipity -c "..."  # Define a word in context
  adoread api documents upload notes.docx  # Extract and paginate a file`,
	}

	groupCmds := make(map[string]*cobra.Command)
	for _, ep := range r.endpoints {
		cmd := ep.Command(getServerURL)
		if cmd == nil {
			continue
		}
		_, path, _ := ep.Route()
		group := groupOf(path)
		short, ok := r.groups[group]
		if !ok {
			apiCmd.AddCommand(cmd)
			continue
		}
		parent, ok := groupCmds[group]
		if !ok {
			parent = &cobra.Command{Use: group, Short: short}
			groupCmds[group] = parent
			apiCmd.AddCommand(parent)
		}
		parent.AddCommand(cmd)
	}
	for _, c := range r.extra {
		apiCmd.AddCommand(c)
	}

	return apiCmd
}

// groupOf returns the first path segment after /api/.
func groupOf(path string) string {
	rest, ok := strings.CutPrefix(path, "/api/")
	if !ok {
		return ""
	}
	group, _, _ := strings.Cut(rest, "/")
	return group
}

// Endpoints returns all registered endpoints.
func (r *Registry) Endpoints() []Endpoint {
	return r.endpoints
}
