package endpoints

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/adoread/internal/api"
	"github.com/jackzampolin/adoread/internal/assistant"
	"github.com/jackzampolin/adoread/internal/svcctx"
)

// FeedRequest is the request body for POST /api/feed.
type FeedRequest struct {
	Query string `json:"query"`
}

// FeedEndpoint handles POST /api/feed.
type FeedEndpoint struct{}

func (e *FeedEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/feed", e.handler
}

func (e *FeedEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Suggest a reading
//	@Description	Recommends one article or document for a topic query
//	@Tags			assistant
//	@Accept			json
//	@Produce		json
//	@Param			request	body		FeedRequest	true	"Topic query"
//	@Success		200		{object}	assistant.Suggestion
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/feed [post]
func (e *FeedEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req FeedRequest
	if err := decodeJSON(r, maxRequestBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}

	suggestion, err := svcctx.AssistantFrom(r.Context()).Suggest(r.Context(), req.Query)
	if err != nil {
		writeAssistantError(w, err, "Query is required", "Failed to process feed request")
		return
	}
	writeJSON(w, http.StatusOK, suggestion)
}

func (e *FeedEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "feed <query...>",
		Short: "Get a reading suggestion for a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp assistant.Suggestion
			if err := client.Post(cmd.Context(), "/api/feed", FeedRequest{Query: strings.Join(args, " ")}, &resp); err != nil {
				return err
			}
			return api.Print(resp, func(w io.Writer) {
				fmt.Fprintf(w, "%s [%s]\n%s\n%s\n", resp.Title, resp.Category, resp.Description, resp.URL)
			})
		},
	}
}
