// Package llmcall records every LLM call for traceability and cost
// reporting. Calls are written asynchronously to SQLite.
package llmcall

import (
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/adoread/internal/providers"
)

// Prompt keys used by the assistant.
const (
	PromptDefine  = "define"
	PromptChat    = "chat"
	PromptSuggest = "suggest"
)

// Call represents a recorded LLM API call.
type Call struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	LatencyMs int       `json:"latency_ms"`

	// Context references
	SessionID string `json:"session_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`

	PromptKey string `json:"prompt_key"`

	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature,omitempty"`
	Attempts    int      `json:"attempts,omitempty"`

	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd,omitempty"`

	Response string `json:"response"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// RecordOptions provides context for recording an LLM call.
type RecordOptions struct {
	SessionID string
	PromptKey string

	// Pointer to distinguish "not set" from "set to 0".
	Temperature *float64
}

// FromChatResult creates a Call from a ChatResult.
// Returns nil if result is nil.
func FromChatResult(result *providers.ChatResult, opts RecordOptions) *Call {
	if result == nil {
		return nil
	}

	latency := result.TotalTime
	if latency == 0 {
		latency = result.ExecutionTime
	}

	call := &Call{
		ID:           uuid.New().String(),
		Timestamp:    time.Now().UTC(),
		LatencyMs:    int(latency.Milliseconds()),
		SessionID:    opts.SessionID,
		RequestID:    result.RequestID,
		PromptKey:    opts.PromptKey,
		Provider:     result.Provider,
		Model:        result.ModelUsed,
		Temperature:  opts.Temperature,
		Attempts:     result.Attempts,
		InputTokens:  result.PromptTokens,
		OutputTokens: result.CompletionTokens,
		CostUSD:      result.CostUSD,
		Response:     result.Content,
		Success:      result.Success,
	}
	if !result.Success {
		call.Error = result.ErrorMessage
	}
	return call
}
