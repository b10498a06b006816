// Package lookup is the reader's client for the definition and chat
// endpoints. Its string-returning methods never fail: errors are turned
// into the fixed messages shown to the reader.
package lookup

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackzampolin/adoread/internal/api"
)

// Messages shown in place of a definition or chat reply.
const (
	DefineFailedMessage = "Failed to fetch definition. Please try again."
	ChatFailedMessage   = "Sorry, I encountered an error. Please try again."
	ChatEmptyMessage    = "Sorry, I couldn't find an answer to your question."
)

// ErrEmptyDefinition is returned by Define when the server answers with
// an empty definition.
var ErrEmptyDefinition = errors.New("empty definition")

// DefineRequest is the body of POST /api/define.
type DefineRequest struct {
	Word    string `json:"word"`
	Context string `json:"context"`
}

// DefineResponse is the success body of POST /api/define.
type DefineResponse struct {
	Definition string `json:"definition"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message      string `json:"message"`
	DocumentText string `json:"documentText"`
	SessionID    string `json:"sessionId"`
}

// ChatResponse is the success body of POST /api/chat.
type ChatResponse struct {
	Text      string `json:"text"`
	SessionID string `json:"sessionId"`
}

// Config configures a Client.
type Config struct {
	ServerURL string
	// Timeout bounds each request. Zero leaves requests unbounded.
	Timeout time.Duration
}

// Client talks to an adoread server.
type Client struct {
	api *api.Client
}

// New creates a lookup client.
func New(cfg Config) *Client {
	var opts []api.ClientOption
	if cfg.Timeout > 0 {
		opts = append(opts, api.WithTimeout(cfg.Timeout))
	}
	return &Client{api: api.NewClient(cfg.ServerURL, opts...)}
}

// Define asks the server for a context-specific definition of word.
func (c *Client) Define(ctx context.Context, word, contextText string) (string, error) {
	var resp DefineResponse
	if err := c.api.Post(ctx, "/api/define", DefineRequest{Word: word, Context: contextText}, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Definition) == "" {
		return "", ErrEmptyDefinition
	}
	return resp.Definition, nil
}

// FetchDefinition is Define with failures replaced by DefineFailedMessage.
func (c *Client) FetchDefinition(ctx context.Context, word, contextText string) string {
	def, err := c.Define(ctx, word, contextText)
	if err != nil {
		return DefineFailedMessage
	}
	return def
}

// Chat sends one chat turn. The returned session ID is the one the server
// used, which may be newly assigned when sessionID is empty.
func (c *Client) Chat(ctx context.Context, message, documentText, sessionID string) (ChatResponse, error) {
	var resp ChatResponse
	err := c.api.Post(ctx, "/api/chat", ChatRequest{
		Message:      message,
		DocumentText: documentText,
		SessionID:    sessionID,
	}, &resp)
	if err != nil {
		return ChatResponse{}, err
	}
	if resp.SessionID == "" {
		resp.SessionID = sessionID
	}
	return resp, nil
}

// SendChatMessage is Chat reduced to the reply text, with failures and
// empty replies replaced by their fixed messages.
func (c *Client) SendChatMessage(ctx context.Context, message, documentText, sessionID string) string {
	resp, err := c.Chat(ctx, message, documentText, sessionID)
	if err != nil {
		return ChatFailedMessage
	}
	if strings.TrimSpace(resp.Text) == "" {
		return ChatEmptyMessage
	}
	return resp.Text
}
