package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
)

// Sentinel errors for ingestion. The messages are shown to the user as-is.
var (
	ErrUnsupportedType = errors.New("Please upload a .txt or .docx file")
	ErrExtract         = errors.New("Error processing file")
	ErrTooLarge        = errors.New("file too large")
)

// Kind is a supported input format.
type Kind string

const (
	KindText Kind = "txt"
	KindDOCX Kind = "docx"
)

const (
	mimeText = "text/plain"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeZip  = "application/zip"
)

// Ingester reads uploads into Documents.
type Ingester struct {
	Paginator Paginator
	// MaxBytes caps the upload size. Zero means unlimited.
	MaxBytes int64
}

// Ingest reads r fully, detects its kind from name and content, extracts
// text and paginates it.
func (in Ingester) Ingest(name string, r io.Reader) (*Document, error) {
	src := r
	if in.MaxBytes > 0 {
		src = io.LimitReader(r, in.MaxBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("%w: read upload: %v", ErrExtract, err)
	}
	if in.MaxBytes > 0 && int64(len(data)) > in.MaxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, in.MaxBytes)
	}

	kind, err := DetectKind(name, data)
	if err != nil {
		return nil, err
	}

	text, err := Extract(kind, data)
	if err != nil {
		return nil, err
	}
	return New(name, text, in.Paginator), nil
}

// DetectKind decides the input format. The extension is consulted first,
// as the browser client does; files without a recognised extension are
// sniffed.
func DetectKind(name string, data []byte) (Kind, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt":
		return KindText, nil
	case ".docx":
		return KindDOCX, nil
	case "":
		// fall through to sniffing
	default:
		return "", ErrUnsupportedType
	}

	for mt := mimetype.Detect(data); mt != nil; mt = mt.Parent() {
		switch {
		case mt.Is(mimeDOCX):
			return KindDOCX, nil
		case mt.Is(mimeText):
			return KindText, nil
		case mt.Is(mimeZip):
			// A bare zip may still be an OOXML document without the usual ordering.
			if _, err := ExtractDOCX(data); err == nil {
				return KindDOCX, nil
			}
			return "", ErrUnsupportedType
		}
	}
	return "", ErrUnsupportedType
}

// Extract returns the plain text for data of the given kind.
func Extract(kind Kind, data []byte) (string, error) {
	switch kind {
	case KindText:
		data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: text is not valid UTF-8", ErrExtract)
		}
		return strings.ReplaceAll(string(data), "\r\n", "\n"), nil
	case KindDOCX:
		return ExtractDOCX(data)
	default:
		return "", ErrUnsupportedType
	}
}
