package query

import (
	"strings"

	"github.com/google/shlex"
)

// passthroughMarker introduces raw flags handed to the subprocess verbatim
const passthroughMarker = " -- "

// Split is the structured form of one raw input string
type Split struct {
	Pattern     string   // primary search pattern
	FilterTerms []string // secondary terms, narrowed client-side
	ExtraArgs   []string // pass-through subprocess flags
}

// Splitter parses raw incremental input. Splitting is pure and total: every
// raw string produces some split, and the same input always produces the
// same result.
type Splitter struct {
	narrow rune
}

// NewSplitter creates a splitter using the given narrowing rune ('#' by default)
func NewSplitter(narrow rune) *Splitter {
	if narrow == 0 {
		narrow = '#'
	}
	return &Splitter{narrow: narrow}
}

// Split parses raw input. The narrowing rune starts the primary pattern;
// each further occurrence starts a filter term; everything after the
// pass-through marker is tokenized into subprocess flags. Input without the
// narrowing rune is taken as the pattern whole.
func (s *Splitter) Split(raw string) Split {
	text := raw
	var extra []string

	if before, after, found := strings.Cut(text, passthroughMarker); found {
		text = before
		extra = splitTokens(after)
	} else if rest, ok := strings.CutSuffix(text, " --"); ok {
		// Marker typed but no flags yet
		text = rest
	}

	segments := strings.Split(text, string(s.narrow))

	// No narrowing rune: the whole text is the pattern
	if len(segments) == 1 {
		return Split{Pattern: strings.TrimSpace(segments[0]), ExtraArgs: extra}
	}

	// Text before the first narrowing rune is discarded by convention; the
	// pattern starts at the rune.
	pattern := strings.TrimSpace(segments[1])

	var terms []string
	for _, seg := range segments[2:] {
		if term := strings.TrimSpace(seg); term != "" {
			terms = append(terms, term)
		}
	}

	return Split{Pattern: pattern, FilterTerms: terms, ExtraArgs: extra}
}

// splitTokens tokenizes pass-through flags shell-style, falling back to
// whitespace fields while the user is mid-quote so splitting stays total.
func splitTokens(text string) []string {
	tokens, err := shlex.Split(text)
	if err != nil {
		tokens = strings.Fields(text)
	}
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}
