package query

import (
	"errors"
	"regexp"
	"strings"

	"cseek/internal/domain"
)

// ErrNoPattern means the compiler could not produce a usable matcher from the
// current input. Not an error condition for the pipeline: it yields zero
// candidates until the input changes.
var ErrNoPattern = errors.New("no usable search pattern")

// Mode selects how pattern text is interpreted
type Mode int

const (
	// ModeLiteral treats the text as a verbatim symbol or string
	ModeLiteral Mode = iota
	// ModeRegexp treats the text as an egrep-style pattern
	ModeRegexp
)

// Compiled pairs the subprocess search argument with a display highlighter.
// Immutable once produced for a query.
type Compiled struct {
	// Matcher is the text embedded into the -L<code> argument
	Matcher string
	// Highlight maps display text to emphasis spans. May be nil; it is
	// best-effort decoration and never load-bearing.
	Highlight func(text string) []domain.Span
}

// Compiler builds a matcher/highlighter pair from pattern text
type Compiler interface {
	Compile(text string, mode Mode, caseInsensitive bool) (Compiled, error)
}

// regexpCompiler is the default compiler, backed by the standard regexp engine
type regexpCompiler struct{}

// NewCompiler creates the default pattern compiler
func NewCompiler() Compiler {
	return &regexpCompiler{}
}

// Compile produces a Compiled value, or ErrNoPattern for empty input and for
// regexp input that does not (yet) parse — partial input is normal while the
// user is typing.
func (c *regexpCompiler) Compile(text string, mode Mode, caseInsensitive bool) (Compiled, error) {
	if strings.TrimSpace(text) == "" {
		return Compiled{}, ErrNoPattern
	}

	expr := text
	if mode == ModeLiteral {
		expr = regexp.QuoteMeta(text)
	}
	if caseInsensitive {
		expr = "(?i)" + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		// Half-typed regexp input is normal, not an error
		return Compiled{}, ErrNoPattern
	}

	return Compiled{
		Matcher:   text,
		Highlight: highlighter(re),
	}, nil
}

// highlighter wraps a compiled regexp into a span function
func highlighter(re *regexp.Regexp) func(string) []domain.Span {
	if re == nil {
		return nil
	}
	return func(text string) []domain.Span {
		matches := re.FindAllStringIndex(text, -1)
		if len(matches) == 0 {
			return nil
		}
		spans := make([]domain.Span, 0, len(matches))
		for _, m := range matches {
			spans = append(spans, domain.Span{Start: m[0], End: m[1]})
		}
		return spans
	}
}
