// Package assistant implements the server side of definitions, document chat
// and reading suggestions on top of the configured LLM provider.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackzampolin/adoread/internal/llmcall"
	"github.com/jackzampolin/adoread/internal/metrics"
	"github.com/jackzampolin/adoread/internal/providers"
	"github.com/jackzampolin/adoread/internal/session"
)

var (
	// ErrInvalidInput means a required field was empty.
	ErrInvalidInput = errors.New("invalid input")
	// ErrPhraseTooLong means the selection exceeds Config.MaxPhraseWords.
	ErrPhraseTooLong = errors.New("phrase too long")
	// ErrNoProvider means no LLM client is configured.
	ErrNoProvider = providers.ErrNoProvider
	// ErrUpstream means the LLM call failed or returned nothing usable.
	ErrUpstream = errors.New("llm request failed")
)

const (
	DefaultMaxPhraseWords   = 30
	DefaultMaxContextTokens = 6000

	defineTemperature  = 0.4
	defineMaxTokens    = 100
	chatTemperature    = 0.8
	chatMaxTokens      = 150
	suggestTemperature = 0.8
	suggestMaxTokens   = 400
)

// Config tunes the assistant.
type Config struct {
	// Provider names the registry client to use; empty uses the default.
	Provider string

	DefineModel  string
	ChatModel    string
	SuggestModel string

	MaxPhraseWords   int
	MaxContextTokens int
}

// Service answers define, chat and suggestion requests.
type Service struct {
	cfg      Config
	registry *providers.Registry
	sessions *session.Registry
	calls    *llmcall.Recorder
	metrics  *metrics.Recorder
	counter  Counter
	logger   *slog.Logger
}

// Deps are the collaborators of a Service. Calls, Metrics and Counter are
// optional.
type Deps struct {
	Registry *providers.Registry
	Sessions *session.Registry
	Calls    *llmcall.Recorder
	Metrics  *metrics.Recorder
	Counter  Counter
	Logger   *slog.Logger
}

// New creates a Service.
func New(cfg Config, deps Deps) *Service {
	if cfg.MaxPhraseWords <= 0 {
		cfg.MaxPhraseWords = DefaultMaxPhraseWords
	}
	if cfg.MaxContextTokens <= 0 {
		cfg.MaxContextTokens = DefaultMaxContextTokens
	}
	if deps.Counter == nil {
		deps.Counter = WordCounter{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Sessions == nil {
		deps.Sessions = session.NewRegistry(session.Config{Logger: deps.Logger})
	}
	return &Service{
		cfg:      cfg,
		registry: deps.Registry,
		sessions: deps.Sessions,
		calls:    deps.Calls,
		metrics:  deps.Metrics,
		counter:  deps.Counter,
		logger:   deps.Logger,
	}
}

// Sessions returns the chat session registry.
func (s *Service) Sessions() *session.Registry {
	return s.sessions
}

func (s *Service) client() (providers.LLMClient, error) {
	if s.registry == nil {
		return nil, ErrNoProvider
	}
	if s.cfg.Provider != "" {
		c, err := s.registry.GetLLM(s.cfg.Provider)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoProvider, err)
		}
		return c, nil
	}
	return s.registry.Default()
}

// complete runs one LLM request and records it. A non-nil result is returned
// whenever the provider produced one.
func (s *Service) complete(ctx context.Context, client providers.LLMClient, promptKey, sessionID string, req *providers.ChatRequest) (*providers.ChatResult, error) {
	result, err := client.Chat(ctx, req)
	if result != nil {
		temp := req.Temperature
		s.calls.Record(result, llmcall.RecordOptions{
			SessionID:   sessionID,
			PromptKey:   promptKey,
			Temperature: &temp,
		})
		s.metrics.RecordLLMCall(promptKey, result)
	}
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if result == nil {
		return nil, fmt.Errorf("%w: no result", ErrUpstream)
	}
	return result, nil
}

// Define returns a definition of word as it is used in contextText.
func (s *Service) Define(ctx context.Context, word, contextText string) (string, error) {
	word = strings.TrimSpace(word)
	if word == "" || strings.TrimSpace(contextText) == "" {
		return "", fmt.Errorf("%w: word and context are required", ErrInvalidInput)
	}
	if n := len(strings.Fields(word)); n > s.cfg.MaxPhraseWords {
		return "", fmt.Errorf("%w: %d words, limit is %d", ErrPhraseTooLong, n, s.cfg.MaxPhraseWords)
	}

	client, err := s.client()
	if err != nil {
		return "", err
	}

	clipped := ClipAround(s.counter, contextText, word, s.cfg.MaxContextTokens)
	result, err := s.complete(ctx, client, llmcall.PromptDefine, "", &providers.ChatRequest{
		Messages:    []providers.Message{{Role: providers.RoleUser, Content: DefinePrompt(word, clipped)}},
		Model:       s.cfg.DefineModel,
		Temperature: defineTemperature,
		MaxTokens:   defineMaxTokens,
	})
	if err != nil {
		s.logger.Error("error generating definition", "word", word, "error", err)
		return "", err
	}
	if !result.Success {
		return "", fmt.Errorf("%w: %s", ErrUpstream, result.ErrorMessage)
	}
	definition := strings.TrimSpace(result.Content)
	if definition == "" {
		return "", fmt.Errorf("%w: no definition generated", ErrUpstream)
	}
	return definition, nil
}

// Chat sends message in the conversation identified by sessionID, seeding a
// new conversation with documentText. An empty sessionID starts a new
// conversation; the ID actually used is returned.
func (s *Service) Chat(ctx context.Context, sessionID, message, documentText string) (string, string, error) {
	if strings.TrimSpace(message) == "" {
		return "", sessionID, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	client, err := s.client()
	if err != nil {
		return "", sessionID, err
	}

	sess, created := s.sessions.Acquire(sessionID, func() []providers.Message {
		doc := ClipAround(s.counter, documentText, "", s.cfg.MaxContextTokens)
		return []providers.Message{{Role: providers.RoleSystem, Content: ChatSystemPrompt(doc)}}
	})
	if created {
		s.metrics.SetActiveSessions(s.sessions.Len())
	}

	reply, err := sess.Exchange(ctx, ChatUserMessage(message), func(ctx context.Context, msgs []providers.Message) (string, error) {
		result, err := s.complete(ctx, client, llmcall.PromptChat, sess.ID, &providers.ChatRequest{
			Messages:    msgs,
			Model:       s.cfg.ChatModel,
			Temperature: chatTemperature,
			MaxTokens:   chatMaxTokens,
		})
		if err != nil {
			return "", err
		}
		if !result.Success {
			return "", fmt.Errorf("%w: %s", ErrUpstream, result.ErrorMessage)
		}
		return strings.TrimSpace(result.Content), nil
	})
	if err != nil {
		s.logger.Error("error generating response", "session_id", sess.ID, "error", err)
		return "", sess.ID, err
	}
	return reply, sess.ID, nil
}

var suggestionSchema = GenerateSchema[Suggestion]()

// Suggest recommends one reading for query. Replies that are not valid
// against the Suggestion schema are sent back for repair a bounded number of
// times.
func (s *Service) Suggest(ctx context.Context, query string) (*Suggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	client, err := s.client()
	if err != nil {
		return nil, err
	}

	format, _ := json.Marshal(map[string]any{"name": "suggestion", "strict": true, "schema": suggestionSchema})
	msgs := []providers.Message{
		{Role: providers.RoleSystem, Content: suggestPrompt(string(suggestionSchema))},
		{Role: providers.RoleUser, Content: query},
	}

	var issue error
	for attempt := 0; attempt <= providers.MaxStructuredRepairAttempts; attempt++ {
		result, err := s.complete(ctx, client, llmcall.PromptSuggest, "", &providers.ChatRequest{
			Messages:       msgs,
			Model:          s.cfg.SuggestModel,
			Temperature:    suggestTemperature,
			MaxTokens:      suggestMaxTokens,
			ResponseFormat: &providers.ResponseFormat{Type: "json_schema", JSONSchema: format},
		})
		if err != nil {
			return nil, err
		}

		parsed := result.ParsedJSON
		if len(parsed) == 0 {
			parsed, issue = providers.ParseStructuredJSON(result.Content)
		} else {
			issue = nil
		}
		if issue == nil {
			issue = providers.ValidateStructuredJSON(suggestionSchema, parsed)
		}
		if issue == nil {
			var out Suggestion
			if issue = json.Unmarshal(parsed, &out); issue == nil {
				return &out, nil
			}
		}

		s.logger.Warn("suggestion failed validation", "attempt", attempt+1, "error", issue)
		msgs = append(msgs,
			providers.Message{Role: providers.RoleAssistant, Content: result.Content},
			providers.Message{Role: providers.RoleUser, Content: providers.StructuredRepairPrompt(suggestionSchema, result.Content, issue)},
		)
	}
	return nil, fmt.Errorf("%w: invalid structured output: %v", ErrUpstream, issue)
}
