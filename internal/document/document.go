// Package document turns uploaded .txt and .docx files into paginated,
// read-only documents.
package document

import (
	"strings"
	"unicode"
)

// Document is an ingested file. It is replaced wholesale when a new file is
// loaded and never mutated.
type Document struct {
	Name  string `json:"name"`
	Text  string `json:"text"`
	Pages []Page `json:"pages"`
	Stats Stats  `json:"stats"`
}

// Page is one display unit of a document. Index is 1-based.
type Page struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Stats summarises a document's size.
type Stats struct {
	Words int `json:"words"`
	Chars int `json:"chars"` // non-whitespace characters
	Pages int `json:"pages"`
}

// New paginates text and computes stats.
func New(name, text string, p Paginator) *Document {
	split := p.Paginate(text)
	pages := make([]Page, len(split))
	for i, s := range split {
		pages[i] = Page{Index: i + 1, Text: s}
	}
	return &Document{
		Name:  name,
		Text:  text,
		Pages: pages,
		Stats: ComputeStats(text, len(pages)),
	}
}

// ComputeStats counts words and non-whitespace characters in text.
func ComputeStats(text string, pages int) Stats {
	chars := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			chars++
		}
	}
	return Stats{
		Words: CountWords(text),
		Chars: chars,
		Pages: pages,
	}
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// PageText returns the text of the 1-based page n, or "" when out of range.
func (d *Document) PageText(n int) string {
	if n < 1 || n > len(d.Pages) {
		return ""
	}
	return d.Pages[n-1].Text
}

// PageTexts returns the page bodies in order.
func (d *Document) PageTexts() []string {
	out := make([]string, len(d.Pages))
	for i, p := range d.Pages {
		out[i] = p.Text
	}
	return out
}

// IsEmpty reports whether the document has no readable text.
func (d *Document) IsEmpty() bool {
	return d == nil || strings.TrimSpace(d.Text) == ""
}
