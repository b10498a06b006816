package endpoints

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/adoread/internal/api"
	"github.com/jackzampolin/adoread/internal/document"
	"github.com/jackzampolin/adoread/internal/svcctx"
)

// PaginateRequest is the request body for POST /api/paginate.
type PaginateRequest struct {
	Text         string `json:"text"`
	WordsPerPage int    `json:"wordsPerPage,omitempty"`
}

// PaginateResponse holds the pages of the submitted text.
type PaginateResponse struct {
	Pages []string       `json:"pages"`
	Stats document.Stats `json:"stats"`
}

// PaginateEndpoint handles POST /api/paginate.
type PaginateEndpoint struct{}

func (e *PaginateEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/paginate", e.handler
}

func (e *PaginateEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Paginate text
//	@Description	Splits plain text into pages on form feeds, page-marker lines or paragraph boundaries
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			request			body		PaginateRequest	true	"Text to paginate"
//	@Param			words_per_page	query		int				false	"Paragraph accumulation threshold"
//	@Success		200				{object}	PaginateResponse
//	@Failure		400				{object}	ErrorResponse
//	@Router			/api/paginate [post]
func (e *PaginateEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req PaginateRequest
	if err := decodeJSON(r, maxRequestBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if v := r.URL.Query().Get("words_per_page"); v != "" && req.WordsPerPage == 0 {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid words_per_page: %q must be an integer", v))
			return
		}
		req.WordsPerPage = n
	}
	if req.WordsPerPage < 0 {
		writeError(w, http.StatusBadRequest, "wordsPerPage must not be negative")
		return
	}

	p := document.Paginator{WordsPerPage: req.WordsPerPage}
	if p.WordsPerPage == 0 {
		if ing := svcctx.IngesterFrom(r.Context()); ing != nil {
			p = ing.Paginator
		}
	}
	pages := p.Paginate(req.Text)
	svcctx.MetricsFrom(r.Context()).RecordPages(len(pages))

	writeJSON(w, http.StatusOK, PaginateResponse{
		Pages: pages,
		Stats: document.ComputeStats(req.Text, len(pages)),
	})
}

func (e *PaginateEndpoint) Command(getServerURL func() string) *cobra.Command {
	var wordsPerPage int
	cmd := &cobra.Command{
		Use:   "paginate [file]",
		Short: "Split plain text into pages (reads stdin without a file)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 1 {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("failed to read text: %w", err)
			}

			client := api.NewClient(getServerURL())
			var resp PaginateResponse
			req := PaginateRequest{Text: string(data), WordsPerPage: wordsPerPage}
			if err := client.Post(cmd.Context(), "/api/paginate", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().IntVar(&wordsPerPage, "words-per-page", 0, "Paragraph accumulation threshold (server default when 0)")
	return cmd
}
