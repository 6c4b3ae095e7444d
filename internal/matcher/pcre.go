package matcher

import "go.elara.ws/pcre"

// PCREMatcher matches using PCRE2-compatible regexes via the pure Go pcre
// package. Supports lookahead, lookbehind, backreferences, and atomic
// groups. PCRE patterns cannot be decomposed for index filtering, so
// searches with this matcher always scan full chunks.
type PCREMatcher struct {
	re *pcre.Regexp
}

// NewPCREMatcher creates a PCREMatcher from a PCRE2 pattern string.
func NewPCREMatcher(pattern string, ignoreCase bool) (*PCREMatcher, error) {
	var opts pcre.CompileOption
	if ignoreCase {
		opts |= pcre.Caseless
	}
	re, err := pcre.CompileOpts(pattern, opts)
	if err != nil {
		return nil, err
	}
	return &PCREMatcher{re: re}, nil
}

func (m *PCREMatcher) Match(data []byte, start, end int) (int, int, bool) {
	loc := m.re.FindIndex(data[start:end])
	if loc == nil {
		return 0, 0, false
	}
	return start + loc[0], start + loc[1], true
}

// Close releases the compiled PCRE regex resources.
func (m *PCREMatcher) Close() {
	if m.re != nil {
		m.re.Close()
	}
}
