// Package matcher provides the pattern matchers the searcher drives over
// chunk byte ranges.
package matcher

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher finds the first unanchored match inside a byte range.
type Matcher interface {
	// Match scans data[start:end] and returns the absolute byte span of
	// the first match, or ok=false if there is none.
	Match(data []byte, start, end int) (s, e int, ok bool)
}

// Options selects the matcher implementation.
type Options struct {
	Fixed      bool // treat the pattern as a literal string
	PCRE       bool // PCRE2 semantics (disables index filtering)
	IgnoreCase bool
}

// New creates the appropriate Matcher for pattern.
// Selection logic:
//   - PCRE flag -> PCREMatcher (PCRE2 via pure Go port)
//   - Fixed, or a pattern with no metacharacters -> LiteralMatcher
//   - Otherwise -> RegexMatcher (RE2)
func New(pattern string, opts Options) (Matcher, error) {
	if pattern == "" {
		return nil, fmt.Errorf("empty pattern")
	}
	if opts.PCRE {
		return NewPCREMatcher(pattern, opts.IgnoreCase)
	}
	if opts.Fixed || isLiteral(pattern) {
		return NewLiteralMatcher(pattern, opts.IgnoreCase), nil
	}
	return NewRegexMatcher(pattern, opts.IgnoreCase)
}

// IndexPattern returns the RE2-syntax pattern the index analyzer should
// decompose for this matcher, or "" when the matcher cannot be indexed.
func IndexPattern(pattern string, opts Options) string {
	if opts.PCRE {
		return ""
	}
	if opts.Fixed {
		pattern = regexp.QuoteMeta(pattern)
	}
	if opts.IgnoreCase {
		pattern = "(?i)" + pattern
	}
	return pattern
}

// isLiteral returns true if the pattern contains no regex metacharacters
// and can be treated as a fixed string.
func isLiteral(pattern string) bool {
	return !strings.ContainsAny(pattern, `\.+*?()|[]{}^$`)
}
