package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/adoread/internal/api"
	"github.com/jackzampolin/adoread/internal/document"
	"github.com/jackzampolin/adoread/internal/server/endpoints"
)

var paginateWordsPerPage int

var paginateCmd = &cobra.Command{
	Use:   "paginate [file]",
	Short: "Split a document into pages locally",
	Long: `Extract and paginate a .txt or .docx file without a server. With no file,
plain text is read from stdin. Pages break on form feeds, then on page
marker lines such as "--- Page 3 ---", then every --words-per-page words at
paragraph boundaries.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := document.Paginator{WordsPerPage: paginateWordsPerPage}

		if len(args) == 0 {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			text := string(data)
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("no text on stdin")
			}
			pages := p.Paginate(text)
			return api.Output(endpoints.PaginateResponse{
				Pages: pages,
				Stats: document.ComputeStats(text, len(pages)),
			})
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()
		doc, err := document.Ingester{Paginator: p}.Ingest(filepath.Base(args[0]), f)
		if err != nil {
			return err
		}
		return api.Output(endpoints.PaginateResponse{
			Pages: doc.PageTexts(),
			Stats: doc.Stats,
		})
	},
}

func init() {
	paginateCmd.Flags().IntVar(&paginateWordsPerPage, "words-per-page", document.DefaultWordsPerPage, "Paragraph accumulation threshold")

	rootCmd.AddCommand(paginateCmd)
}
