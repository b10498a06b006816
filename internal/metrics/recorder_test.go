package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/jackzampolin/adoread/internal/providers"
)

func TestRecordLLMCall(t *testing.T) {
	r := NewRecorder()
	r.RecordLLMCall("define", &providers.ChatResult{
		Provider:         "openrouter",
		ModelUsed:        "m",
		PromptTokens:     10,
		CompletionTokens: 4,
		CostUSD:          0.002,
		ExecutionTime:    300 * time.Millisecond,
		Success:          true,
	})
	r.RecordLLMCall("define", &providers.ChatResult{Provider: "openrouter", ModelUsed: "m", ErrorType: "http_error"})

	if got := testutil.ToFloat64(r.llmCalls.WithLabelValues("openrouter", "m", "define", "success")); got != 1 {
		t.Errorf("success calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.llmCalls.WithLabelValues("openrouter", "m", "define", "http_error")); got != 1 {
		t.Errorf("error calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.llmTokens.WithLabelValues("openrouter", "prompt")); got != 10 {
		t.Errorf("prompt tokens = %v, want 10", got)
	}
	if got := testutil.ToFloat64(r.llmCost.WithLabelValues("openrouter")); got != 0.002 {
		t.Errorf("cost = %v, want 0.002", got)
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.RecordLLMCall("define", &providers.ChatResult{})
	r.RecordUpload("txt", true)
	r.SetActiveSessions(3)
	r.SessionEvicted()
	r.RateLimited("/api/define")
	r.RecordPages(2)
}

func TestHandler(t *testing.T) {
	r := NewRecorder()
	r.RecordUpload("docx", true)
	r.RecordUpload("", false)
	r.SessionEvicted()
	r.SetActiveSessions(2)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`adoread_document_uploads_total{kind="docx",status="success"} 1`,
		`adoread_document_uploads_total{kind="unknown",status="error"} 1`,
		`adoread_chat_sessions_evicted_total 1`,
		`adoread_chat_sessions_active 2`,
		`go_goroutines`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
