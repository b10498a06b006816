package llmcall

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackzampolin/adoread/internal/kv"
	"github.com/jackzampolin/adoread/internal/providers"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	db, err := kv.OpenDB(filepath.Join(t.TempDir(), "calls.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := NewStore(context.Background(), db)
	require.NoError(t, err)
	return s
}

func call(id, key string, ts time.Time, ok bool, latency int, cost float64) *Call {
	return &Call{
		ID: id, Timestamp: ts, PromptKey: key, Provider: "openrouter", Model: "m1",
		LatencyMs: latency, CostUSD: cost, Success: ok, InputTokens: 10, OutputTokens: 5,
	}
}

func TestFromChatResult(t *testing.T) {
	temp := 0.4
	c := FromChatResult(&providers.ChatResult{
		Content:          "a definition",
		PromptTokens:     12,
		CompletionTokens: 30,
		CostUSD:          0.01,
		ExecutionTime:    200 * time.Millisecond,
		TotalTime:        450 * time.Millisecond,
		Provider:         "openrouter",
		ModelUsed:        "google/gemini-2.0-flash-001",
		RequestID:        "req-1",
		Attempts:         2,
		Success:          true,
	}, RecordOptions{PromptKey: PromptDefine, SessionID: "s1", Temperature: &temp})

	require.NotNil(t, c)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, 450, c.LatencyMs)
	assert.Equal(t, PromptDefine, c.PromptKey)
	assert.Equal(t, "s1", c.SessionID)
	assert.Equal(t, "req-1", c.RequestID)
	assert.Equal(t, 2, c.Attempts)
	assert.Equal(t, 0.4, *c.Temperature)
	assert.Empty(t, c.Error)

	failed := FromChatResult(&providers.ChatResult{ErrorMessage: "boom"}, RecordOptions{})
	assert.Equal(t, "boom", failed.Error)

	assert.Nil(t, FromChatResult(nil, RecordOptions{}))
}

func TestStore_InsertGetList(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	temp := 0.8
	first := call("a", PromptDefine, base, true, 100, 0.01)
	first.Temperature = &temp
	require.NoError(t, s.Insert(ctx,
		first,
		call("b", PromptChat, base.Add(time.Minute), false, 300, 0),
		call("c", PromptDefine, base.Add(2*time.Minute), true, 200, 0.02),
	))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *first, *got)

	missing, err := s.Get(ctx, "zzz")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := s.List(ctx, QueryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID, "newest first")

	defines, err := s.List(ctx, QueryFilter{PromptKey: PromptDefine})
	require.NoError(t, err)
	assert.Len(t, defines, 2)

	ok := false
	failures, err := s.List(ctx, QueryFilter{Success: &ok})
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "b", failures[0].ID)

	after := base.Add(30 * time.Second)
	recent, err := s.List(ctx, QueryFilter{After: &after, Limit: 1})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "c", recent[0].ID)

	page2, err := s.List(ctx, QueryFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "a", page2[0].ID)

	counts, err := s.CountByPromptKey(ctx, QueryFilter{})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{PromptDefine: 2, PromptChat: 1}, counts)
}

func TestStore_Summarize(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	now := time.Now().UTC()
	require.NoError(t, s.Insert(ctx,
		call("a", PromptDefine, now, true, 100, 0.01),
		call("b", PromptDefine, now, true, 200, 0.02),
		call("c", PromptChat, now, false, 300, 0),
	))

	sum, err := s.Summarize(ctx, QueryFilter{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Count)
	assert.Equal(t, 2, sum.SuccessCount)
	assert.Equal(t, 1, sum.ErrorCount)
	assert.InDelta(t, 0.03, sum.TotalCostUSD, 1e-9)
	assert.Equal(t, 30, sum.TotalInputTokens)
	assert.Equal(t, 200.0, sum.LatencyP50)
	assert.Equal(t, 300.0, sum.LatencyMax)
	assert.Equal(t, map[string]int{PromptDefine: 2, PromptChat: 1}, sum.ByPromptKey)
}

func TestPercentile(t *testing.T) {
	assert.Equal(t, 0.0, percentile(nil, 50))
	assert.Equal(t, 7.0, percentile([]float64{7}, 95))
	assert.Equal(t, 15.0, percentile([]float64{10, 20}, 50))
	assert.Equal(t, 20.0, percentile([]float64{10, 20}, 100))
}

func TestRecorder_FlushAndStop(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	r := NewRecorder(RecorderConfig{Store: s, FlushInterval: time.Hour})

	r.Record(&providers.ChatResult{Provider: "mock", Success: true, Content: "x"}, RecordOptions{PromptKey: PromptDefine})
	require.NoError(t, r.Flush(ctx))

	calls, err := s.List(ctx, QueryFilter{})
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "x", calls[0].Response)

	r.Record(&providers.ChatResult{Provider: "mock", Success: true}, RecordOptions{PromptKey: PromptChat})
	r.Stop()
	r.Stop()

	calls, err = s.List(ctx, QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, calls, 2, "stop flushes pending calls")

	r.Record(&providers.ChatResult{}, RecordOptions{})
	assert.NoError(t, r.Flush(ctx))
}

func TestRecorder_BatchSizeTriggersWrite(t *testing.T) {
	s := openStore(t)
	r := NewRecorder(RecorderConfig{Store: s, BatchSize: 2, FlushInterval: time.Hour})
	defer r.Stop()

	r.Record(&providers.ChatResult{Success: true}, RecordOptions{PromptKey: PromptDefine})
	r.Record(&providers.ChatResult{Success: true}, RecordOptions{PromptKey: PromptDefine})

	require.Eventually(t, func() bool {
		calls, err := s.List(context.Background(), QueryFilter{})
		return err == nil && len(calls) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.Record(&providers.ChatResult{}, RecordOptions{})
	r.Stop()
	assert.NoError(t, r.Flush(context.Background()))
}
