package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/adoread/internal/svcctx"
)

// MetricsEndpoint handles GET /metrics in the Prometheus exposition format.
type MetricsEndpoint struct{}

func (e *MetricsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/metrics", e.handler
}

func (e *MetricsEndpoint) RequiresInit() bool { return false }

func (e *MetricsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	svcctx.MetricsFrom(r.Context()).Handler().ServeHTTP(w, r)
}

// Command returns nil; scrape /metrics directly.
func (e *MetricsEndpoint) Command(_ func() string) *cobra.Command {
	return nil
}
