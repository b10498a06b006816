package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackzampolin/adoread/internal/providers"
	"github.com/jackzampolin/adoread/internal/session"
)

func newService(t *testing.T, mock *providers.MockClient, cfg Config) *Service {
	t.Helper()
	reg := providers.NewRegistry()
	if mock != nil {
		reg.RegisterLLM(providers.MockClientName, mock)
	}
	return New(cfg, Deps{Registry: reg})
}

func TestDefine(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = "  Lasting a very short time.  "
	svc := newService(t, mock, Config{DefineModel: "define-model"})

	def, err := svc.Define(context.Background(), "ephemeral", "Fame is ephemeral.")
	require.NoError(t, err)
	assert.Equal(t, "Lasting a very short time.", def)

	req := mock.LastRequest()
	require.NotNil(t, req)
	assert.Equal(t, 0.4, req.Temperature)
	assert.Equal(t, 100, req.MaxTokens)
	assert.Equal(t, "define-model", req.Model)
	require.Len(t, req.Messages, 1)
	assert.Contains(t, req.Messages[0].Content, `word or phrase "ephemeral"`)
	assert.Contains(t, req.Messages[0].Content, `"Fame is ephemeral."`)
}

func TestDefine_Validation(t *testing.T) {
	svc := newService(t, providers.NewMockClient(), Config{MaxPhraseWords: 3})
	ctx := context.Background()

	_, err := svc.Define(ctx, "", "ctx")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Define(ctx, "word", "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Define(ctx, "one two three four", "ctx")
	assert.ErrorIs(t, err, ErrPhraseTooLong)
}

func TestDefine_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("no provider", func(t *testing.T) {
		_, err := newService(t, nil, Config{}).Define(ctx, "w", "c")
		assert.ErrorIs(t, err, ErrNoProvider)
	})

	t.Run("named provider missing", func(t *testing.T) {
		_, err := newService(t, providers.NewMockClient(), Config{Provider: "openrouter"}).Define(ctx, "w", "c")
		assert.ErrorIs(t, err, ErrNoProvider)
	})

	t.Run("upstream error", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ShouldFail = true
		_, err := newService(t, mock, Config{}).Define(ctx, "w", "c")
		assert.ErrorIs(t, err, ErrUpstream)
	})

	t.Run("empty reply", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ResponseText = "   "
		_, err := newService(t, mock, Config{}).Define(ctx, "w", "c")
		assert.ErrorIs(t, err, ErrUpstream)
	})
}

func TestDefine_ClipsContext(t *testing.T) {
	mock := providers.NewMockClient()
	svc := newService(t, mock, Config{MaxContextTokens: 20})

	long := strings.Repeat("filler ", 200) + "the quixotic plan " + strings.Repeat("tail ", 200)
	_, err := svc.Define(context.Background(), "quixotic", long)
	require.NoError(t, err)

	prompt := mock.LastRequest().Messages[0].Content
	assert.Contains(t, prompt, "the quixotic plan")
	assert.NotContains(t, prompt, strings.Repeat("filler ", 50))
}

func TestChat_SessionLifecycle(t *testing.T) {
	mock := providers.NewMockClient()
	var n atomic.Int32
	mock.Respond = func(req *providers.ChatRequest) (string, error) {
		return "reply " + string(rune('0'+n.Add(1))), nil
	}
	svc := newService(t, mock, Config{})
	ctx := context.Background()

	text, id, err := svc.Chat(ctx, "s1", "What is this about?", "A story about whales.")
	require.NoError(t, err)
	assert.Equal(t, "reply 1", text)
	assert.Equal(t, "s1", id)

	req := mock.LastRequest()
	assert.Equal(t, 0.8, req.Temperature)
	assert.Equal(t, 150, req.MaxTokens)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, providers.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "A story about whales.")
	assert.Equal(t, "User: What is this about?", req.Messages[1].Content)

	_, _, err = svc.Chat(ctx, "s1", "And then?", "ignored on later turns")
	require.NoError(t, err)
	req = mock.LastRequest()
	require.Len(t, req.Messages, 4)
	assert.Equal(t, "reply 1", req.Messages[2].Content)
	assert.NotContains(t, req.Messages[0].Content, "ignored")
}

func TestChat_NoDocument(t *testing.T) {
	mock := providers.NewMockClient()
	svc := newService(t, mock, Config{})
	_, _, err := svc.Chat(context.Background(), "s", "hi", "")
	require.NoError(t, err)
	assert.Contains(t, mock.LastRequest().Messages[0].Content, "No document content provided.")
}

func TestChat_GeneratesSessionID(t *testing.T) {
	svc := newService(t, providers.NewMockClient(), Config{})
	_, id, err := svc.Chat(context.Background(), "", "hi", "doc")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, ok := svc.Sessions().Get(id)
	assert.True(t, ok)
}

func TestChat_FailedTurnRolledBack(t *testing.T) {
	mock := providers.NewMockClient()
	fail := true
	mock.Respond = func(*providers.ChatRequest) (string, error) {
		if fail {
			return "", errors.New("boom")
		}
		return "ok", nil
	}
	svc := New(Config{}, Deps{Registry: registryWith(mock), Sessions: session.NewRegistry(session.Config{})})
	ctx := context.Background()

	_, _, err := svc.Chat(ctx, "s", "first", "doc")
	assert.ErrorIs(t, err, ErrUpstream)

	fail = false
	_, _, err = svc.Chat(ctx, "s", "second", "doc")
	require.NoError(t, err)
	msgs := mock.LastRequest().Messages
	require.Len(t, msgs, 2, "failed turn is not part of the conversation")
	assert.Equal(t, "User: second", msgs[1].Content)
}

func TestChat_Validation(t *testing.T) {
	svc := newService(t, providers.NewMockClient(), Config{})
	_, _, err := svc.Chat(context.Background(), "s", " ", "doc")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func registryWith(c providers.LLMClient) *providers.Registry {
	reg := providers.NewRegistry()
	reg.RegisterLLM(c.Name(), c)
	return reg
}

func TestSuggest(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseJSON = json.RawMessage(`{"title":"Whales","description":"About whales.","category":"academic","url":"https://example.com/whales"}`)
	svc := newService(t, mock, Config{})

	got, err := svc.Suggest(context.Background(), "marine biology")
	require.NoError(t, err)
	assert.Equal(t, &Suggestion{
		Title:       "Whales",
		Description: "About whales.",
		Category:    "academic",
		URL:         "https://example.com/whales",
	}, got)

	req := mock.LastRequest()
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, "json_schema", req.ResponseFormat.Type)
	assert.Contains(t, req.Messages[0].Content, `"additionalProperties":false`)
}

func TestSuggest_Repair(t *testing.T) {
	mock := providers.NewMockClient()
	var calls atomic.Int32
	mock.Respond = func(*providers.ChatRequest) (string, error) {
		if calls.Add(1) == 1 {
			return `{"title":"Missing fields"}`, nil
		}
		return "```json\n{\"title\":\"T\",\"description\":\"D\",\"category\":\"casual\",\"url\":\"u\"}\n```", nil
	}
	svc := newService(t, mock, Config{})

	got, err := svc.Suggest(context.Background(), "coffee")
	require.NoError(t, err)
	assert.Equal(t, "T", got.Title)
	assert.Equal(t, int32(2), calls.Load())

	msgs := mock.LastRequest().Messages
	require.Len(t, msgs, 4)
	assert.Contains(t, msgs[3].Content, "Validation issue")
}

func TestSuggest_GivesUp(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = "no json here"
	svc := newService(t, mock, Config{})

	_, err := svc.Suggest(context.Background(), "coffee")
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, int64(providers.MaxStructuredRepairAttempts+1), mock.RequestCount())
}

func TestSuggest_Validation(t *testing.T) {
	_, err := newService(t, providers.NewMockClient(), Config{}).Suggest(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGenerateSchema(t *testing.T) {
	var schema map[string]any
	require.NoError(t, json.Unmarshal(GenerateSchema[Suggestion](), &schema))

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])
	assert.ElementsMatch(t, []any{"title", "description", "category", "url"}, schema["required"])
	assert.NotContains(t, schema, "$schema")
}
