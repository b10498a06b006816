package document

import (
	"regexp"
	"strings"
)

// DefaultWordsPerPage is the paragraph accumulation threshold.
const DefaultWordsPerPage = 300

var (
	// pageMarker matches a whole line that is a page label: "---- Page 12 ----"
	// (dashes optional, any count), "Page 3", or "[7]".
	pageMarker = regexp.MustCompile(`(?im)^[ \t]*(?:-*[ \t]*page[ \t]+\d+[ \t]*-*|\[[ \t]*\d+[ \t]*\])[ \t]*\r?$`)

	// paragraphBreak is a newline, optional whitespace, newline.
	paragraphBreak = regexp.MustCompile(`\n\s*\n`)
)

// Paginator splits raw document text into pages.
type Paginator struct {
	// WordsPerPage is the accumulation threshold for paragraph-based
	// pagination. Zero means DefaultWordsPerPage.
	WordsPerPage int
}

// Paginate splits raw with the default threshold.
func Paginate(raw string) []string {
	return Paginator{}.Paginate(raw)
}

// Paginate splits raw into pages using the first strategy that applies:
// form feeds, then labeled page-marker lines, then greedy paragraph
// accumulation. It always returns at least one page.
func (p Paginator) Paginate(raw string) []string {
	var pages []string
	switch {
	case strings.Contains(raw, "\f"):
		pages = trimNonEmpty(strings.Split(raw, "\f"))
	case pageMarker.MatchString(raw):
		pages = trimNonEmpty(pageMarker.Split(raw, -1))
	default:
		pages = p.byParagraphs(raw)
	}

	if len(pages) == 0 {
		return []string{strings.TrimSpace(raw)}
	}
	return pages
}

// byParagraphs accumulates paragraphs until adding the next one would exceed
// the threshold. A paragraph longer than the threshold becomes its own page.
func (p Paginator) byParagraphs(raw string) []string {
	limit := p.WordsPerPage
	if limit <= 0 {
		limit = DefaultWordsPerPage
	}

	var (
		pages     []string
		current   []string
		wordCount int
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		if page := strings.TrimSpace(strings.Join(current, "\n\n")); page != "" {
			pages = append(pages, page)
		}
		current = current[:0]
		wordCount = 0
	}

	for _, para := range paragraphBreak.Split(raw, -1) {
		n := CountWords(para)
		if n == 0 {
			continue
		}
		if wordCount > 0 && wordCount+n > limit {
			flush()
		}
		current = append(current, para)
		wordCount += n
	}
	flush()

	return pages
}

func trimNonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// CountWords returns the number of whitespace-separated words in s.
func CountWords(s string) int {
	return len(strings.Fields(s))
}
