package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/adoread/internal/api"
	"github.com/jackzampolin/adoread/internal/document"
	"github.com/jackzampolin/adoread/internal/svcctx"
)

// multipartOverhead is added to the upload limit to leave room for form
// boundaries and headers.
const multipartOverhead = 1 << 20

// UploadDocumentEndpoint handles POST /api/documents with a multipart file upload.
type UploadDocumentEndpoint struct{}

var _ api.Endpoint = (*UploadDocumentEndpoint)(nil)

func (e *UploadDocumentEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/documents", e.handler
}

func (e *UploadDocumentEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Upload a document
//	@Description	Extracts text from a .txt or .docx upload and splits it into pages
//	@Tags			documents
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	".txt or .docx file"
//	@Success		200		{object}	document.Document
//	@Failure		400		{object}	ErrorResponse
//	@Failure		413		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/api/documents [post]
func (e *UploadDocumentEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ingester := svcctx.IngesterFrom(r.Context())
	if ingester == nil {
		writeError(w, http.StatusServiceUnavailable, "document ingester not initialized")
		return
	}
	m := svcctx.MetricsFrom(r.Context())
	logger := svcctx.LoggerFrom(r.Context())

	if ingester.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, ingester.MaxBytes+multipartOverhead)
	}
	file, fh, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			m.RecordUpload("", false)
			writeError(w, http.StatusRequestEntityTooLarge, "File is too large")
			return
		}
		writeError(w, http.StatusBadRequest, document.ErrUnsupportedType.Error())
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	kind := strings.TrimPrefix(strings.ToLower(filepath.Ext(fh.Filename)), ".")
	doc, err := ingester.Ingest(fh.Filename, file)
	if err != nil {
		m.RecordUpload(kind, false)
		logger.Warn("document upload rejected", "name", fh.Filename, "error", err)
		switch {
		case errors.Is(err, document.ErrUnsupportedType):
			writeError(w, http.StatusBadRequest, document.ErrUnsupportedType.Error())
		case errors.Is(err, document.ErrTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "File is too large")
		default:
			writeError(w, http.StatusUnprocessableEntity, document.ErrExtract.Error())
		}
		return
	}

	m.RecordUpload(kind, true)
	m.RecordPages(doc.PageCount())
	logger.Info("document ingested", "name", doc.Name, "pages", doc.Stats.Pages, "words", doc.Stats.Words)
	writeJSON(w, http.StatusOK, doc)
}

func (e *UploadDocumentEndpoint) Command(getServerURL func() string) *cobra.Command {
	var showText bool
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a .txt or .docx file and show its pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open file: %w", err)
			}
			defer f.Close()

			client := api.NewClient(getServerURL())
			var doc document.Document
			if err := client.PostFile(cmd.Context(), "/api/documents", filepath.Base(args[0]), f, &doc); err != nil {
				return err
			}
			if !showText {
				doc.Text = ""
				doc.Pages = nil
			}
			return api.Output(doc)
		},
	}
	cmd.Flags().BoolVar(&showText, "text", false, "Include the extracted text and pages")
	return cmd
}
