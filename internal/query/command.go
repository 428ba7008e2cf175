package query

import (
	"fmt"
	"slices"

	"cseek/internal/domain"
)

// caseFlag is cscope's ignore-case flag. It is honored whether it appears in
// the configured static args or in the split-off pass-through args; both
// places are checked deliberately.
const caseFlag = "-C"

// Builder combines locator output, splitter output and a compiled pattern
// into a concrete subprocess invocation.
type Builder struct {
	program        string
	configuredArgs []string
}

// NewBuilder creates a command builder for the given indexer program and
// static configured arguments.
func NewBuilder(program string, configuredArgs []string) *Builder {
	return &Builder{program: program, configuredArgs: configuredArgs}
}

// Build produces the invocation
//
//	program [configuredArgs] -f <db> -L<code><matcher> [passthrough]
//
// -f suppresses any index rebuild by the subprocess; -L<n> selects the
// line-oriented non-interactive search mode for type n. Returns ErrNoPattern
// when the compiled matcher is empty, in which case no subprocess may be
// launched.
func (b *Builder) Build(st domain.SearchType, compiled Compiled, db domain.DatabaseLocation, passthrough []string) (domain.Invocation, error) {
	if compiled.Matcher == "" {
		return domain.Invocation{}, ErrNoPattern
	}
	if !st.Valid() {
		return domain.Invocation{}, fmt.Errorf("unsupported search type %d", int(st))
	}

	args := make([]string, 0, len(b.configuredArgs)+3+len(passthrough))
	args = append(args, b.configuredArgs...)
	args = append(args, "-f", db.Path)
	args = append(args, fmt.Sprintf("-L%d%s", int(st), compiled.Matcher))
	args = append(args, passthrough...)

	return domain.Invocation{
		Program: b.program,
		Args:    args,
		Dir:     db.Directory,
	}, nil
}

// CaseInsensitive reports whether the ignore-case flag is present in either
// the configured static args or the pass-through args.
func (b *Builder) CaseInsensitive(passthrough []string) bool {
	if slices.Contains(b.configuredArgs, caseFlag) {
		return true
	}
	return slices.Contains(passthrough, caseFlag)
}

// SearchMode maps a search type to the pattern interpretation its subprocess
// mode expects: egrep queries are regexps, everything else is literal text.
func SearchMode(st domain.SearchType) Mode {
	if st == domain.SearchEgrep {
		return ModeRegexp
	}
	return ModeLiteral
}
