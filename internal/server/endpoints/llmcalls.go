package endpoints

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/adoread/internal/api"
	"github.com/jackzampolin/adoread/internal/llmcall"
	"github.com/jackzampolin/adoread/internal/svcctx"
)

// LLMCallsResponse contains a list of LLM calls.
type LLMCallsResponse struct {
	Calls []llmcall.Call `json:"calls"`
	Total int            `json:"total"`
}

// LLMCallResponse contains a single LLM call.
type LLMCallResponse struct {
	Call  *llmcall.Call `json:"call,omitempty"`
	Error string        `json:"error,omitempty"`
}

// LLMCallCountsResponse contains prompt key counts.
type LLMCallCountsResponse struct {
	Counts map[string]int `json:"counts"`
}

// parseFilter builds a QueryFilter from query parameters.
func parseFilter(q url.Values) (llmcall.QueryFilter, error) {
	filter := llmcall.QueryFilter{
		SessionID: q.Get("session_id"),
		PromptKey: q.Get("prompt_key"),
		Provider:  q.Get("provider"),
		Model:     q.Get("model"),
	}

	if v := q.Get("success"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filter, fmt.Errorf("invalid success filter: %q must be true or false", v)
		}
		filter.Success = &b
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return filter, fmt.Errorf("invalid limit: %q must be an integer", v)
		}
		filter.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil {
			return filter, fmt.Errorf("invalid offset: %q must be an integer", v)
		}
		filter.Offset = offset
	}
	for _, bound := range []struct {
		name string
		dst  **time.Time
	}{{"after", &filter.After}, {"before", &filter.Before}} {
		v := q.Get(bound.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("invalid %s time: %q must be RFC3339 format (e.g., 2024-01-15T00:00:00Z)", bound.name, v)
		}
		*bound.dst = &t
	}
	return filter, nil
}

// filterFlags holds the CLI flags shared by the llmcall commands.
type filterFlags struct {
	sessionID, promptKey, provider, model string
	successOnly, failedOnly               bool
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.sessionID, "session-id", "", "Filter by chat session ID")
	cmd.Flags().StringVar(&f.promptKey, "prompt-key", "", "Filter by prompt key (define, chat, suggest)")
	cmd.Flags().StringVar(&f.provider, "provider", "", "Filter by provider")
	cmd.Flags().StringVar(&f.model, "model", "", "Filter by model")
	cmd.Flags().BoolVar(&f.successOnly, "success", false, "Only include successful calls")
	cmd.Flags().BoolVar(&f.failedOnly, "failed", false, "Only include failed calls")
}

func (f *filterFlags) values() url.Values {
	params := url.Values{}
	set := func(k, v string) {
		if v != "" {
			params.Set(k, v)
		}
	}
	set("session_id", f.sessionID)
	set("prompt_key", f.promptKey)
	set("provider", f.provider)
	set("model", f.model)
	if f.successOnly {
		params.Set("success", "true")
	}
	if f.failedOnly {
		params.Set("success", "false")
	}
	return params
}

func withQuery(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}
	return path + "?" + params.Encode()
}

// ListLLMCallsEndpoint handles GET /api/llmcalls.
type ListLLMCallsEndpoint struct{}

func (e *ListLLMCallsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/llmcalls", e.handler
}

func (e *ListLLMCallsEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		List LLM calls
//	@Description	Get LLM call history with optional filters, newest first
//	@Tags			llmcalls
//	@Produce		json
//	@Param			session_id	query		string	false	"Filter by chat session ID"
//	@Param			prompt_key	query		string	false	"Filter by prompt key"
//	@Param			provider	query		string	false	"Filter by provider"
//	@Param			model		query		string	false	"Filter by model"
//	@Param			success		query		bool	false	"Filter by success status (true or false)"
//	@Param			limit		query		int		false	"Max results (default 100)"
//	@Param			offset		query		int		false	"Result offset"
//	@Param			after		query		string	false	"Filter calls after this RFC3339 timestamp"
//	@Param			before		query		string	false	"Filter calls before this RFC3339 timestamp"
//	@Success		200			{object}	LLMCallsResponse
//	@Failure		400			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Router			/api/llmcalls [get]
func (e *ListLLMCallsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.LLMCallStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusInternalServerError, "LLM call store not available")
		return
	}

	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.Limit <= 0 {
		filter.Limit = 100
	}

	calls, err := store.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, LLMCallsResponse{
		Calls: calls,
		Total: len(calls),
	})
}

func (e *ListLLMCallsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var flags filterFlags
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List LLM calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			params := flags.values()
			if limit > 0 {
				params.Set("limit", strconv.Itoa(limit))
			}
			if offset > 0 {
				params.Set("offset", strconv.Itoa(offset))
			}

			var resp LLMCallsResponse
			if err := client.Get(cmd.Context(), withQuery("/api/llmcalls", params), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", 100, "Max results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Result offset")
	return cmd
}

// GetLLMCallEndpoint handles GET /api/llmcalls/{id}.
type GetLLMCallEndpoint struct{}

func (e *GetLLMCallEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/llmcalls/{id}", e.handler
}

func (e *GetLLMCallEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Get an LLM call
//	@Description	Get a single LLM call by ID
//	@Tags			llmcalls
//	@Produce		json
//	@Param			id	path		string	true	"LLM call ID"
//	@Success		200	{object}	LLMCallResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/llmcalls/{id} [get]
func (e *GetLLMCallEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id required")
		return
	}

	store := svcctx.LLMCallStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusInternalServerError, "LLM call store not available")
		return
	}

	call, err := store.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if call == nil {
		writeError(w, http.StatusNotFound, "LLM call not found")
		return
	}

	writeJSON(w, http.StatusOK, LLMCallResponse{Call: call})
}

func (e *GetLLMCallEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get an LLM call by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp LLMCallResponse
			if err := client.Get(cmd.Context(), "/api/llmcalls/"+url.PathEscape(args[0]), &resp); err != nil {
				return err
			}
			return api.Output(resp.Call)
		},
	}
}

// LLMCallCountsEndpoint handles GET /api/llmcalls/counts.
type LLMCallCountsEndpoint struct{}

func (e *LLMCallCountsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/llmcalls/counts", e.handler
}

func (e *LLMCallCountsEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Get LLM call counts by prompt key
//	@Description	Count LLM calls grouped by prompt key, using the same filters as the list endpoint
//	@Tags			llmcalls
//	@Produce		json
//	@Param			session_id	query		string	false	"Filter by chat session ID"
//	@Param			provider	query		string	false	"Filter by provider"
//	@Param			success		query		bool	false	"Filter by success status"
//	@Success		200			{object}	LLMCallCountsResponse
//	@Failure		400			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Router			/api/llmcalls/counts [get]
func (e *LLMCallCountsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.LLMCallStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusInternalServerError, "LLM call store not available")
		return
	}

	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	counts, err := store.CountByPromptKey(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, LLMCallCountsResponse{Counts: counts})
}

func (e *LLMCallCountsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var flags filterFlags
	cmd := &cobra.Command{
		Use:   "counts",
		Short: "Get LLM call counts by prompt key",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp LLMCallCountsResponse
			if err := client.Get(cmd.Context(), withQuery("/api/llmcalls/counts", flags.values()), &resp); err != nil {
				return err
			}
			return api.Output(resp.Counts)
		},
	}
	flags.register(cmd)
	return cmd
}

// LLMCallSummaryEndpoint handles GET /api/llmcalls/summary.
type LLMCallSummaryEndpoint struct{}

func (e *LLMCallSummaryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/llmcalls/summary", e.handler
}

func (e *LLMCallSummaryEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Summarize LLM calls
//	@Description	Totals, token usage, cost and latency percentiles over matching calls
//	@Tags			llmcalls
//	@Produce		json
//	@Param			session_id	query		string	false	"Filter by chat session ID"
//	@Param			prompt_key	query		string	false	"Filter by prompt key"
//	@Param			provider	query		string	false	"Filter by provider"
//	@Param			after		query		string	false	"Filter calls after this RFC3339 timestamp"
//	@Param			before		query		string	false	"Filter calls before this RFC3339 timestamp"
//	@Success		200			{object}	llmcall.Summary
//	@Failure		400			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Router			/api/llmcalls/summary [get]
func (e *LLMCallSummaryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.LLMCallStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusInternalServerError, "LLM call store not available")
		return
	}

	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := store.Summarize(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (e *LLMCallSummaryEndpoint) Command(getServerURL func() string) *cobra.Command {
	var flags filterFlags
	var since time.Duration
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize LLM call cost, tokens and latency",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			params := flags.values()
			if since > 0 {
				params.Set("after", time.Now().Add(-since).UTC().Format(time.RFC3339))
			}

			var resp llmcall.Summary
			if err := client.Get(cmd.Context(), withQuery("/api/llmcalls/summary", params), &resp); err != nil {
				return err
			}
			return api.Print(resp, func(w io.Writer) {
				fmt.Fprintf(w, "Calls:   %d (%d ok, %d failed)\n", resp.Count, resp.SuccessCount, resp.ErrorCount)
				fmt.Fprintf(w, "Tokens:  %d in / %d out\n", resp.TotalInputTokens, resp.TotalOutputTokens)
				fmt.Fprintf(w, "Cost:    $%.4f\n", resp.TotalCostUSD)
				fmt.Fprintf(w, "Latency: p50 %.0fms, p95 %.0fms, max %.0fms\n", resp.LatencyP50, resp.LatencyP95, resp.LatencyMax)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().DurationVar(&since, "since", 0, "Only include calls newer than this (e.g. 24h)")
	return cmd
}
