package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const docxBodyPart = "word/document.xml"

// ExtractDOCX returns the plain text of a .docx file, one paragraph per
// block separated by a blank line.
func ExtractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: not a docx archive: %v", ErrExtract, err)
	}

	for _, f := range zr.File {
		if f.Name != docxBodyPart {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("%w: open %s: %v", ErrExtract, docxBodyPart, err)
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("%w: read %s: %v", ErrExtract, docxBodyPart, err)
		}
		return parseWordXML(body)
	}
	return "", fmt.Errorf("%w: missing %s", ErrExtract, docxBodyPart)
}

// parseWordXML walks word/document.xml token by token so text nested in
// hyperlinks, tables, content controls and text boxes is kept in document
// order. Each closing <w:p> ends a paragraph.
func parseWordXML(body []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))

	var (
		paras  []string
		cur    strings.Builder
		inBody bool
		inText bool
		runs   int // open <w:r> elements; tab stops in <w:pPr> are not text
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: parse %s: %v", ErrExtract, docxBodyPart, err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "body":
				inBody = true
			case "r":
				runs++
			case "t":
				inText = inBody
			case "tab":
				if inBody && runs > 0 {
					cur.WriteByte('\t')
				}
			case "br", "cr":
				if inBody && runs > 0 {
					cur.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "body":
				inBody = false
			case "r":
				runs--
			case "t":
				inText = false
			case "p":
				if inBody {
					paras = append(paras, cur.String())
					cur.Reset()
				}
			}
		case xml.CharData:
			if inText {
				cur.Write(el)
			}
		}
	}
	if cur.Len() > 0 {
		paras = append(paras, cur.String())
	}
	return strings.TrimSpace(strings.Join(paras, "\n\n")), nil
}
