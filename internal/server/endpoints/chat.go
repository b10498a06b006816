package endpoints

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/adoread/internal/api"
	"github.com/jackzampolin/adoread/internal/svcctx"
)

// ChatRequest is the request body for POST /api/chat.
type ChatRequest struct {
	Message      string `json:"message"`
	DocumentText string `json:"documentText"`
	SessionID    string `json:"sessionId,omitempty"`
}

// ChatResponse carries the assistant's reply and the session it belongs to.
type ChatResponse struct {
	Text      string `json:"text"`
	SessionID string `json:"sessionId"`
}

// ChatEndpoint handles POST /api/chat.
type ChatEndpoint struct{}

func (e *ChatEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/chat", e.handler
}

func (e *ChatEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Chat about the document
//	@Description	Sends one message in a conversation grounded in the document text. Omit sessionId to start a new conversation; the response carries the ID to continue it.
//	@Tags			assistant
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ChatRequest	true	"Message, optional session and document text"
//	@Success		200		{object}	ChatResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/chat [post]
func (e *ChatEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(r, maxRequestBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}

	a := svcctx.AssistantFrom(r.Context())
	reply, sessionID, err := a.Chat(r.Context(), req.SessionID, req.Message, req.DocumentText)
	if err != nil {
		writeAssistantError(w, err, "Message is required", "Failed to generate response")
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Text: reply, SessionID: sessionID})
}

func (e *ChatEndpoint) Command(getServerURL func() string) *cobra.Command {
	var file, sessionID string
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat about a document",
		Long: `Chat about a document.

With a message argument, sends one message and prints the reply. Without
one, reads messages from stdin line by line and keeps the conversation
going until EOF.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var text string
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read document: %w", err)
				}
				text = string(data)
			}
			client := api.NewClient(getServerURL())

			send := func(msg string) error {
				var resp ChatResponse
				req := ChatRequest{Message: msg, DocumentText: text, SessionID: sessionID}
				if err := client.Post(cmd.Context(), "/api/chat", req, &resp); err != nil {
					return err
				}
				sessionID = resp.SessionID
				return api.Print(resp, func(w io.Writer) {
					fmt.Fprintln(w, resp.Text)
				})
			}

			if len(args) == 1 {
				return send(args[0])
			}
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				msg := strings.TrimSpace(scanner.Text())
				if msg == "" {
					continue
				}
				if err := send(msg); err != nil {
					return err
				}
			}
			return scanner.Err()
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Plain-text document to chat about")
	cmd.Flags().StringVar(&sessionID, "session", "", "Continue an existing session")
	return cmd
}
