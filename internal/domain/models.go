package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// SearchType selects which kind of cross-reference query the indexer performs.
// The numeric values are the cscope line-oriented search codes and are passed
// to the subprocess verbatim (-L<code><pattern>).
type SearchType int

// Search type codes understood by cscope's -L mode. Code 5 (change text) is
// interactive-only and has no line-oriented equivalent, hence the gap.
const (
	SearchSymbol     SearchType = 0 // references to a symbol
	SearchDefinition SearchType = 1 // global definition
	SearchCalledBy   SearchType = 2 // functions called by this function
	SearchCalling    SearchType = 3 // functions calling this function
	SearchText       SearchType = 4 // plain text string
	SearchEgrep      SearchType = 6 // egrep pattern
	SearchFile       SearchType = 7 // file name
	SearchIncluding  SearchType = 8 // files including this file
	SearchAssignment SearchType = 9 // assignments to a symbol (newer indexes only)
)

var searchTypeNames = map[SearchType]string{
	SearchSymbol:     "symbol",
	SearchDefinition: "definition",
	SearchCalledBy:   "called by",
	SearchCalling:    "calling",
	SearchText:       "text",
	SearchEgrep:      "egrep",
	SearchFile:       "file",
	SearchIncluding:  "including",
	SearchAssignment: "assignment",
}

// searchTypeOrder is the cycling order used by the UI.
var searchTypeOrder = []SearchType{
	SearchSymbol, SearchDefinition, SearchCalledBy, SearchCalling,
	SearchText, SearchEgrep, SearchFile, SearchIncluding, SearchAssignment,
}

// ParseSearchType accepts either a numeric code or a name ("symbol",
// "definition", ...) and returns the matching search type.
func ParseSearchType(s string) (SearchType, error) {
	s = strings.ReplaceAll(s, "-", " ")
	for st, name := range searchTypeNames {
		if strings.EqualFold(s, name) || s == strconv.Itoa(int(st)) {
			return st, nil
		}
	}
	return SearchSymbol, fmt.Errorf("unknown search type %q", s)
}

// Name returns a short human-readable label for the search type.
func (t SearchType) Name() string {
	if name, ok := searchTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type %d", int(t))
}

// Valid reports whether t is one of the supported search codes.
func (t SearchType) Valid() bool {
	_, ok := searchTypeNames[t]
	return ok
}

// Next returns the search type following t in cycling order. When
// withAssignment is false the assignment kind is skipped, because older index
// formats cannot answer it.
func (t SearchType) Next(withAssignment bool) SearchType {
	for i, st := range searchTypeOrder {
		if st != t {
			continue
		}
		next := searchTypeOrder[(i+1)%len(searchTypeOrder)]
		if next == SearchAssignment && !withAssignment {
			next = searchTypeOrder[0]
		}
		return next
	}
	return SearchSymbol
}

// Span marks a half-open byte range [Start, End) to emphasize in display text.
type Span struct {
	Start int
	End   int
}

// Candidate is one structured match parsed from an indexer output line.
// Immutable once constructed.
type Candidate struct {
	File       string // path as reported by the indexer
	Function   string // enclosing function, or a placeholder like "<global>"
	Line       int    // 1-based line number
	Content    string // display content, possibly truncated
	Highlights []Span // emphasis spans within Content, best effort
}

// Display renders the candidate's visible portion (everything except the
// group key). The UI strips the group key prefix, so this must stay in sync
// with the grouping rules.
func (c Candidate) Display() string {
	return fmt.Sprintf("%s[%d]: %s", c.Function, c.Line, c.Content)
}

// PositionMarker is a concrete navigation target derived from a candidate.
// Column is always 0: the indexer strips leading whitespace from content, so
// column fidelity is lost and not recoverable without re-reading the source.
type PositionMarker struct {
	File   string
	Line   int
	Column int
}

// DatabaseLocation is a resolved index file, known to exist at resolution
// time. Directory is the working directory subprocesses run in, so that
// relative paths in the index resolve correctly.
type DatabaseLocation struct {
	Path      string
	Directory string
}

// Invocation fully describes one subprocess launch. Immutable; a new one is
// built for every (query, database, search type) combination.
type Invocation struct {
	Program string
	Args    []string
	Dir     string
}
