package results

import (
	"log"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"cseek/internal/domain"
)

// truncationMark trails content cut to the display width
const truncationMark = "…"

// Formatter turns raw indexer output lines into structured candidates. It
// holds no mutable state: formatting the same line twice yields identical
// candidates.
type Formatter struct {
	maxWidth  int
	highlight func(string) []domain.Span
}

// NewFormatter creates a formatter. maxWidth bounds the display width of the
// content field only; file, function and line are never truncated. highlight
// may be nil.
func NewFormatter(maxWidth int, highlight func(string) []domain.Span) *Formatter {
	if maxWidth <= 0 {
		maxWidth = 120
	}
	return &Formatter{maxWidth: maxWidth, highlight: highlight}
}

// ParseLine parses one raw output line of the shape
//
//	<file> <function> <line> <content>
//
// where the first three fields are whitespace-delimited and content is the
// remainder of the line verbatim (leading whitespace dropped). Lines that do
// not match the shape are skipped: indexer tools emit diagnostic chatter on
// stdout and it must never surface as a candidate or an error.
func (f *Formatter) ParseLine(raw string) (domain.Candidate, bool) {
	file, rest := cutField(raw)
	function, rest := cutField(rest)
	lineField, rest := cutField(rest)

	if file == "" || function == "" || lineField == "" {
		return domain.Candidate{}, false
	}

	line, err := strconv.Atoi(lineField)
	if err != nil || line < 1 {
		return domain.Candidate{}, false
	}

	content := strings.TrimLeft(rest, " \t")
	content = f.truncate(content)

	return domain.Candidate{
		File:       file,
		Function:   function,
		Line:       line,
		Content:    content,
		Highlights: f.spans(content),
	}, true
}

// truncate cuts content to the configured display width
func (f *Formatter) truncate(content string) string {
	if runewidth.StringWidth(content) <= f.maxWidth {
		return content
	}
	return runewidth.Truncate(content, f.maxWidth, truncationMark)
}

// spans applies the highlighter to (possibly truncated) content. Highlighting
// is decoration: any panic or bad span is dropped and the candidate is still
// emitted.
func (f *Formatter) spans(content string) (spans []domain.Span) {
	if f.highlight == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("results: highlighter panic: %v", r)
			spans = nil
		}
	}()

	for _, s := range f.highlight(content) {
		if s.Start < 0 || s.End > len(content) || s.Start >= s.End {
			continue
		}
		spans = append(spans, s)
	}
	return spans
}

// cutField returns the next whitespace-delimited token and the remainder
func cutField(s string) (string, string) {
	s = strings.TrimLeft(s, " \t")
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i:]
}

// MatchesFilter reports whether a candidate survives the secondary filter
// terms: every term must appear in the candidate's file path or visible
// display string, case-insensitively.
func MatchesFilter(c domain.Candidate, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	haystack := strings.ToLower(c.File + " " + c.Display())
	for _, term := range terms {
		if !strings.Contains(haystack, strings.ToLower(term)) {
			return false
		}
	}
	return true
}
