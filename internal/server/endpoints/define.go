package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/adoread/internal/api"
	"github.com/jackzampolin/adoread/internal/assistant"
	"github.com/jackzampolin/adoread/internal/svcctx"
)

// maxRequestBytes bounds JSON request bodies. Chat and define carry whole
// documents as context.
const maxRequestBytes = 8 << 20

// DefineRequest is the request body for POST /api/define.
type DefineRequest struct {
	Word    string `json:"word"`
	Context string `json:"context"`
}

// DefineResponse carries a generated definition.
type DefineResponse struct {
	Definition string `json:"definition"`
}

// DefineEndpoint handles POST /api/define.
type DefineEndpoint struct{}

func (e *DefineEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/define", e.handler
}

func (e *DefineEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Define a word in context
//	@Description	Generates a short definition of a word or phrase as it is used in the surrounding document text
//	@Tags			assistant
//	@Accept			json
//	@Produce		json
//	@Param			request	body		DefineRequest	true	"Word and document context"
//	@Success		200		{object}	DefineResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/define [post]
func (e *DefineEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req DefineRequest
	if err := decodeJSON(r, maxRequestBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Word and context are required")
		return
	}

	definition, err := svcctx.AssistantFrom(r.Context()).Define(r.Context(), req.Word, req.Context)
	if err != nil {
		writeAssistantError(w, err, "Word and context are required", "Failed to generate definition")
		return
	}
	writeJSON(w, http.StatusOK, DefineResponse{Definition: definition})
}

func (e *DefineEndpoint) Command(getServerURL func() string) *cobra.Command {
	var contextText string
	cmd := &cobra.Command{
		Use:   "define <word>",
		Short: "Define a word or phrase as used in some context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if contextText == "" {
				contextText = args[0]
			}
			client := api.NewClient(getServerURL())
			var resp DefineResponse
			if err := client.Post(cmd.Context(), "/api/define", DefineRequest{Word: args[0], Context: contextText}, &resp); err != nil {
				return err
			}
			return api.Print(resp, func(w io.Writer) {
				fmt.Fprintln(w, resp.Definition)
			})
		},
	}
	cmd.Flags().StringVarP(&contextText, "context", "c", "", "Surrounding text the word appears in")
	return cmd
}

// writeAssistantError maps assistant errors to the status codes and
// messages the reader shows.
func writeAssistantError(w http.ResponseWriter, err error, badRequest, failed string) {
	switch {
	case errors.Is(err, assistant.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, badRequest)
	case errors.Is(err, assistant.ErrPhraseTooLong):
		writeError(w, http.StatusBadRequest, "Selection is too long to define")
	case errors.Is(err, assistant.ErrNoProvider):
		writeError(w, http.StatusServiceUnavailable, "no LLM provider configured")
	default:
		writeError(w, http.StatusInternalServerError, failed)
	}
}
