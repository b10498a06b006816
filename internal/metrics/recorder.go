// Package metrics exposes Prometheus collectors for LLM usage, uploads,
// chat sessions and rate limiting.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jackzampolin/adoread/internal/providers"
)

const namespace = "adoread"

// Recorder owns a private registry and the collectors registered on it.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	llmCalls    *prometheus.CounterVec
	llmTokens   *prometheus.CounterVec
	llmCost     *prometheus.CounterVec
	llmLatency  *prometheus.HistogramVec
	uploads     *prometheus.CounterVec
	sessions    prometheus.Gauge
	evictions   prometheus.Counter
	rateLimited *prometheus.CounterVec
	pagesServed prometheus.Histogram
}

// NewRecorder creates a recorder with Go runtime and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "LLM calls by provider, model, prompt and outcome.",
		}, []string{"provider", "model", "prompt_key", "status"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "Tokens consumed by LLM calls.",
		}, []string{"provider", "direction"}),
		llmCost: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_cost_usd_total",
			Help:      "Reported LLM cost in USD.",
		}, []string{"provider"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_call_duration_seconds",
			Help:      "LLM call latency including transport retries.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"provider", "prompt_key"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_uploads_total",
			Help:      "Document uploads by detected kind and outcome.",
		}, []string{"kind", "status"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chat_sessions_active",
			Help:      "Live chat sessions.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_sessions_evicted_total",
			Help:      "Chat sessions dropped by idle expiry or capacity.",
		}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"path"}),
		pagesServed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "document_pages",
			Help:      "Page count of paginated documents.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.llmCalls, r.llmTokens, r.llmCost, r.llmLatency,
		r.uploads, r.sessions, r.evictions, r.rateLimited, r.pagesServed,
	)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordLLMCall records one chat result under promptKey.
func (r *Recorder) RecordLLMCall(promptKey string, result *providers.ChatResult) {
	if r == nil || result == nil {
		return
	}
	status := "success"
	if !result.Success {
		status = "error"
		if result.ErrorType != "" {
			status = result.ErrorType
		}
	}
	r.llmCalls.WithLabelValues(result.Provider, result.ModelUsed, promptKey, status).Inc()
	r.llmTokens.WithLabelValues(result.Provider, "prompt").Add(float64(result.PromptTokens))
	r.llmTokens.WithLabelValues(result.Provider, "completion").Add(float64(result.CompletionTokens))
	if result.CostUSD > 0 {
		r.llmCost.WithLabelValues(result.Provider).Add(result.CostUSD)
	}
	latency := result.TotalTime
	if latency == 0 {
		latency = result.ExecutionTime
	}
	r.llmLatency.WithLabelValues(result.Provider, promptKey).Observe(latency.Seconds())
}

// RecordUpload counts a document upload.
func (r *Recorder) RecordUpload(kind string, ok bool) {
	if r == nil {
		return
	}
	status := "success"
	if !ok {
		status = "error"
	}
	if kind == "" {
		kind = "unknown"
	}
	r.uploads.WithLabelValues(kind, status).Inc()
}

// RecordPages observes the page count of a paginated document.
func (r *Recorder) RecordPages(n int) {
	if r == nil {
		return
	}
	r.pagesServed.Observe(float64(n))
}

// SetActiveSessions sets the live session gauge.
func (r *Recorder) SetActiveSessions(n int) {
	if r == nil {
		return
	}
	r.sessions.Set(float64(n))
}

// SessionEvicted counts one evicted chat session.
func (r *Recorder) SessionEvicted() {
	if r == nil {
		return
	}
	r.evictions.Inc()
}

// RateLimited counts one rejected request.
func (r *Recorder) RateLimited(path string) {
	if r == nil {
		return
	}
	r.rateLimited.WithLabelValues(path).Inc()
}
