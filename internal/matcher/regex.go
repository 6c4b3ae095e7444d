package matcher

import "regexp"

// RegexMatcher uses Go's RE2 regexp engine.
type RegexMatcher struct {
	re *regexp.Regexp
}

// NewRegexMatcher creates a RegexMatcher for the given pattern.
func NewRegexMatcher(pattern string, ignoreCase bool) (*RegexMatcher, error) {
	if ignoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &RegexMatcher{re: re}, nil
}

func (m *RegexMatcher) Match(data []byte, start, end int) (int, int, bool) {
	loc := m.re.FindIndex(data[start:end])
	if loc == nil {
		return 0, 0, false
	}
	return start + loc[0], start + loc[1], true
}
