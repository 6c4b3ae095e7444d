package index

import (
	"regexp/syntax"
	"unicode"
	"unicode/utf8"
)

// maxNodes bounds the size of an analyzed key. Past it the analyzer gives
// up and reports "no filter"; the search then degrades to a full scan,
// which is always correct.
const maxNodes = 4096

// Analyze decomposes pattern into an IndexKey. The key is conservative:
// for every position where the compiled pattern could match, the bytes at
// that position are accepted by the key. A nil key (or one for which
// NoFilter is true) means the pattern admits no useful prefix filtering.
func Analyze(pattern string) (*Key, error) {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return nil, err
	}
	a := analysis{}
	res := a.walk(re.Simplify())
	if res.key.NoFilter() || res.key.size() > maxNodes {
		return nil, nil
	}
	return res.key, nil
}

// result carries a key plus the two facts concatenation needs: exact
// means every terminal leaf of key marks a completely consumed match of
// the subexpression (so a following expression may be grafted there);
// nullable means the subexpression can match the empty string.
type result struct {
	key      *Key
	exact    bool
	nullable bool
}

type analysis struct{}

var anyKey = &Key{Empty: true}

func anyResult() result {
	return result{key: anyKey, exact: false, nullable: true}
}

// emptyResult is an exactly-matched empty prefix: anchors and other
// zero-width ops produce it, and grafting onto it yields the next key
// unchanged.
func emptyResult() result {
	return result{key: &Key{Empty: true}, exact: true, nullable: true}
}

func (a *analysis) walk(re *syntax.Regexp) result {
	switch re.Op {
	case syntax.OpEmptyMatch, syntax.OpBeginLine, syntax.OpEndLine,
		syntax.OpBeginText, syntax.OpEndText,
		syntax.OpWordBoundary, syntax.OpNoWordBoundary:
		return emptyResult()

	case syntax.OpLiteral:
		return a.literal(re.Rune, re.Flags&syntax.FoldCase != 0)

	case syntax.OpCharClass:
		return a.charClass(re.Rune)

	case syntax.OpAnyChar, syntax.OpAnyCharNotNL:
		return result{key: anyKey, exact: false, nullable: false}

	case syntax.OpCapture:
		return a.walk(re.Sub[0])

	case syntax.OpConcat:
		return a.concat(re.Sub)

	case syntax.OpAlternate:
		return a.alternate(re.Sub)

	case syntax.OpPlus:
		s := a.walk(re.Sub[0])
		// The first iteration must still be there; further iterations
		// forbid grafting anything after the key.
		return result{key: s.key, exact: false, nullable: s.nullable}

	case syntax.OpRepeat:
		if re.Min >= 1 {
			s := a.walk(re.Sub[0])
			return result{key: s.key, exact: false, nullable: s.nullable}
		}
		return anyResult()

	case syntax.OpStar, syntax.OpQuest:
		return anyResult()

	default:
		return anyResult()
	}
}

// literal builds a byte chain for a run of literal runes. Case folding is
// expanded per rune via the simple fold orbit.
func (a *analysis) literal(runes []rune, fold bool) result {
	acc := emptyResult()
	for _, r := range runes {
		var alt result
		if fold {
			alt = a.foldedRune(r)
		} else {
			alt = runeChain(r)
		}
		acc = concat2(acc, alt)
		if !acc.exact {
			break
		}
	}
	acc.nullable = len(runes) == 0
	return acc
}

// runeChain encodes one rune as a chain of single-byte ranges.
func runeChain(r rune) result {
	if r == '\n' {
		// Keys cannot express a newline; matches never contain one.
		return result{key: anyKey, exact: false, nullable: false}
	}
	var buf [utf8.UTFMax]byte
	n := utf8.EncodeRune(buf[:], r)
	key := &Key{Empty: true}
	for i := n - 1; i >= 0; i-- {
		key = &Key{Ranges: []Range{{Lo: buf[i], Hi: buf[i], Next: key}}}
	}
	return result{key: key, exact: true, nullable: false}
}

// foldedRune unions the chains of every rune in r's simple fold orbit.
func (a *analysis) foldedRune(r rune) result {
	res := runeChain(r)
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		res = alternate2(res, runeChain(f))
	}
	return res
}

// charClass builds a one-byte key from rune pairs. ASCII pairs become
// exact ranges; anything reaching beyond ASCII degrades to a conservative
// first-byte range with an unconstrained tail.
func (a *analysis) charClass(pairs []rune) result {
	key := &Key{}
	exact := true
	term := &Key{Empty: true}
	for i := 0; i+1 < len(pairs); i += 2 {
		lo, hi := pairs[i], pairs[i+1]
		if lo >= utf8.RuneSelf || hi >= utf8.RuneSelf {
			// First bytes of UTF-8 encodings are monotonic in the rune,
			// so the first-byte span covers the whole pair.
			asciiHi := hi
			if lo < utf8.RuneSelf {
				asciiHi = utf8.RuneSelf - 1
				addByteRange(key, byte(lo), byte(asciiHi), term)
			}
			var lobuf, hibuf [utf8.UTFMax]byte
			start := lo
			if start < utf8.RuneSelf {
				start = utf8.RuneSelf
			}
			utf8.EncodeRune(lobuf[:], start)
			utf8.EncodeRune(hibuf[:], hi)
			addByteRange(key, lobuf[0], hibuf[0], anyKey)
			exact = false
			continue
		}
		addByteRange(key, byte(lo), byte(hi), term)
	}
	if len(key.Ranges) == 0 {
		return result{key: anyKey, exact: false, nullable: false}
	}
	return result{key: key, exact: exact, nullable: false}
}

// addByteRange appends [lo, hi] -> next to key, splitting around '\n' and
// keeping Ranges sorted and disjoint (merging against the existing list).
func addByteRange(key *Key, lo, hi byte, next *Key) {
	if lo > hi {
		return
	}
	add := func(l, h byte) {
		if l > h {
			return
		}
		var lossy bool
		merged := merge2(key, &Key{Ranges: []Range{{Lo: l, Hi: h, Next: next}}}, &lossy)
		key.Ranges = merged.Ranges
		key.Empty = key.Empty || merged.Empty
	}
	if lo <= '\n' && '\n' <= hi {
		if '\n' > lo {
			add(lo, '\n'-1)
		}
		if '\n' < hi {
			add('\n'+1, hi)
		}
		return
	}
	add(lo, hi)
}

func (a *analysis) concat(subs []*syntax.Regexp) result {
	acc := emptyResult()
	nullable := true
	for _, sub := range subs {
		s := a.walk(sub)
		nullable = nullable && s.nullable
		if acc.exact {
			acc = concat2(acc, s)
		}
	}
	acc.nullable = nullable
	return acc
}

// concat2 grafts y onto x's terminal leaves. Only valid when x is exact;
// otherwise x's key already stands as the conservative answer.
func concat2(x, y result) result {
	if !x.exact {
		return result{key: x.key, exact: false, nullable: x.nullable && y.nullable}
	}
	return result{
		key:      graft(x.key, y.key),
		exact:    x.exact && y.exact,
		nullable: x.nullable && y.nullable,
	}
}

// graft returns x with every terminal leaf replaced by y. x's spine is
// copied; y is spliced in by reference (shared subtrees are fine).
func graft(x, y *Key) *Key {
	if x.terminal() {
		return y
	}
	out := &Key{Empty: x.Empty}
	out.Ranges = make([]Range, len(x.Ranges))
	for i, r := range x.Ranges {
		out.Ranges[i] = Range{Lo: r.Lo, Hi: r.Hi, Next: graft(r.Next, y)}
	}
	return out
}

func (a *analysis) alternate(subs []*syntax.Regexp) result {
	var acc result
	for i, sub := range subs {
		s := a.walk(sub)
		if i == 0 {
			acc = s
			continue
		}
		acc = alternate2(acc, s)
	}
	return acc
}

// alternate2 unions two alternatives. A bare empty leaf on either side is
// only preserved when both sides are zero-width anchors; any other empty
// alternative poisons the union (a following graft could not represent
// both "skip me" and "consume me" branches soundly).
func alternate2(x, y result) result {
	nullable := x.nullable || y.nullable
	if x.key.terminal() && y.key.terminal() && x.exact && y.exact {
		return result{key: x.key, exact: true, nullable: nullable}
	}
	if x.key.terminal() || y.key.terminal() || x.key.NoFilter() || y.key.NoFilter() {
		return result{key: anyKey, exact: false, nullable: nullable}
	}
	var lossy bool
	merged := merge2(x.key, y.key, &lossy)
	return result{
		key:      merged,
		exact:    x.exact && y.exact && !lossy,
		nullable: nullable,
	}
}

// merge2 unions two keys. Overlapping ranges are split at their byte
// boundaries and the overlap's children merged recursively; disjoint
// pieces keep their original child by reference.
//
// Merging a terminal with a non-terminal (one alternative complete, the
// other mid-prefix, as in "a|ab") widens the result to "anything may
// follow" and sets *lossy: the caller must not graft a continuation onto
// such a key as if every leaf marked a complete prefix.
func merge2(a, b *Key, lossy *bool) *Key {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.terminal() != b.terminal() {
		*lossy = true
	}
	if a.terminal() || b.terminal() {
		return anyKey
	}
	out := &Key{Empty: a.Empty || b.Empty}

	// Boundary sweep over both sorted range lists.
	bounds := make(map[int]bool)
	for _, r := range a.Ranges {
		bounds[int(r.Lo)] = true
		bounds[int(r.Hi)+1] = true
	}
	for _, r := range b.Ranges {
		bounds[int(r.Lo)] = true
		bounds[int(r.Hi)+1] = true
	}
	points := make([]int, 0, len(bounds))
	for p := range bounds {
		points = append(points, p)
	}
	sortInts(points)

	find := func(k *Key, lo int) *Key {
		for _, r := range k.Ranges {
			if int(r.Lo) <= lo && lo <= int(r.Hi) {
				return r.Next
			}
		}
		return nil
	}

	for i := 0; i < len(points)-1; i++ {
		lo, hi := points[i], points[i+1]-1
		ca := find(a, lo)
		cb := find(b, lo)
		var child *Key
		switch {
		case ca == nil && cb == nil:
			continue
		case ca == nil:
			child = cb
		case cb == nil:
			child = ca
		default:
			child = merge2(ca, cb, lossy)
		}
		if n := len(out.Ranges); n > 0 && int(out.Ranges[n-1].Hi)+1 == lo && out.Ranges[n-1].Next == child {
			out.Ranges[n-1].Hi = byte(hi)
			continue
		}
		out.Ranges = append(out.Ranges, Range{Lo: byte(lo), Hi: byte(hi), Next: child})
	}
	return out
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
