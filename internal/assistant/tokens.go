package assistant

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

// Counter counts tokens in text.
type Counter interface {
	Count(text string) int
}

// WordCounter approximates tokens by whitespace-separated words.
type WordCounter struct{}

func (WordCounter) Count(text string) int { return len(strings.Fields(text)) }

// TiktokenCounter counts tokens with a BPE encoding.
type TiktokenCounter struct {
	mu  sync.Mutex
	tke *tiktoken.Tiktoken
}

// NewCounter returns a tiktoken counter for encoding, or a WordCounter when
// the encoding cannot be loaded (it is fetched on first use).
func NewCounter(encoding string, logger *slog.Logger) Counter {
	if encoding == "" {
		encoding = defaultEncoding
	}
	tke, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("tiktoken unavailable, counting words instead", "encoding", encoding, "error", err)
		return WordCounter{}
	}
	return &TiktokenCounter{tke: tke}
}

func (c *TiktokenCounter) Count(text string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tke.Encode(text, nil, nil))
}

// ClipAround returns text unchanged when it fits in maxTokens. Otherwise it
// returns the largest window of whole words centred on the first
// case-insensitive occurrence of phrase (or the start of the text when the
// phrase is absent) that fits, with ellipses marking the cut ends.
func ClipAround(c Counter, text, phrase string, maxTokens int) string {
	if maxTokens <= 0 || c.Count(text) <= maxTokens {
		return text
	}

	words := strings.Fields(text)
	center, span := 0, 1
	if phrase != "" {
		phraseWords := strings.Fields(phrase)
		if i := indexWords(words, phraseWords); i >= 0 {
			center, span = i, max(len(phraseWords), 1)
		}
	}

	window := func(r int) (int, int) {
		lo := max(center-r, 0)
		hi := min(center+span+r, len(words))
		return lo, hi
	}
	join := func(lo, hi int) string {
		s := strings.Join(words[lo:hi], " ")
		if lo > 0 {
			s = "... " + s
		}
		if hi < len(words) {
			s += " ..."
		}
		return s
	}

	// Largest radius whose window fits.
	lo, hi := 0, len(words)
	best := -1
	for lo <= hi {
		mid := (lo + hi) / 2
		a, b := window(mid)
		if c.Count(join(a, b)) <= maxTokens {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if best < 0 {
		a, b := window(0)
		return join(a, b)
	}
	a, b := window(best)
	return join(a, b)
}

// indexWords finds needle as a run in haystack, ignoring case and
// surrounding punctuation.
func indexWords(haystack, needle []string) int {
	if len(needle) == 0 {
		return -1
	}
	norm := func(s string) string {
		return strings.ToLower(strings.Trim(s, `.,;:!?"'()[]{}“”‘’`))
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j, w := range needle {
			if norm(haystack[i+j]) != norm(w) {
				continue outer
			}
		}
		return i
	}
	return -1
}
