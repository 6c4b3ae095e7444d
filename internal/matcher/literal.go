package matcher

import "bytes"

// LiteralMatcher searches for a fixed byte string. Case-sensitive search
// rides on bytes.Index; case-insensitive search skips by first byte and
// compares ASCII-lowered candidates.
type LiteralMatcher struct {
	pattern    []byte
	patternLow []byte
	ignoreCase bool
}

// NewLiteralMatcher creates a LiteralMatcher for a single fixed pattern.
func NewLiteralMatcher(pattern string, ignoreCase bool) *LiteralMatcher {
	p := []byte(pattern)
	low := p
	if ignoreCase {
		low = bytes.ToLower(p)
	}
	return &LiteralMatcher{pattern: p, patternLow: low, ignoreCase: ignoreCase}
}

func (m *LiteralMatcher) Match(data []byte, start, end int) (int, int, bool) {
	if !m.ignoreCase {
		idx := bytes.Index(data[start:end], m.pattern)
		if idx < 0 {
			return 0, 0, false
		}
		return start + idx, start + idx + len(m.pattern), true
	}

	plen := len(m.patternLow)
	if plen == 0 || end-start < plen {
		return 0, 0, false
	}
	first := m.patternLow[0]
	firstUp := toUpperASCII(first)
	for i := start; i+plen <= end; i++ {
		if data[i] != first && data[i] != firstUp {
			continue
		}
		if equalFoldASCII(data[i:i+plen], m.patternLow) {
			return i, i + plen, true
		}
	}
	return 0, 0, false
}

// equalFoldASCII compares data against an already-lowered pattern,
// folding ASCII letters only.
func equalFoldASCII(data, patternLow []byte) bool {
	for i := range patternLow {
		if toLowerASCII(data[i]) != patternLow[i] {
			return false
		}
	}
	return true
}

func toLowerASCII(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

func toUpperASCII(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}
