package search

import (
	"bytes"
	"sort"
	"unicode/utf8"

	"github.com/dl/srcsearch/internal/chunk"
	"github.com/dl/srcsearch/internal/corpus"
)

// MatchContext is one occurrence of a matched line inside a file: its
// line number, surrounding context lines, and every (ref, path) the
// occurrence is visible under.
type MatchContext struct {
	File    *corpus.SearchFile
	LineNum int
	Before  [][]byte // nearest line first
	After   [][]byte
	Paths   []corpus.Path
}

// MatchResult is one emitted match: the matched line, the match span as
// UTF-8 codepoint offsets within it, and the contexts grouped under one
// path.
type MatchResult struct {
	Line       []byte
	MatchLeft  int
	MatchRight int
	Context    []MatchContext
}

// matchGroup accumulates the per-path contexts of a single confirmed
// line before they are published.
type matchGroup struct {
	line    []byte
	left    int
	right   int
	matches map[string][]MatchContext
}

func (s *searcher) newMatchGroup(c *chunk.Chunk, ms, me, ls, le int) *matchGroup {
	return &matchGroup{
		line:    c.Data[ls:le],
		left:    utf8.RuneCount(c.Data[ls:ms]),
		right:   utf8.RuneCount(c.Data[ls:ms]) + utf8.RuneCount(c.Data[ms:me]),
		matches: make(map[string][]MatchContext),
	}
}

var newline = []byte{'\n'}

// tryMatch resolves the line number of the matched line within sf and, if
// the file really contains this instance of the line, records a context
// under each accepted path.
//
// The line number walk counts newlines across sf's segments; segments are
// joined by one implicit newline each. A file whose segmentation never
// covers the line pointer is skipped: the chunk line belongs to a
// different instance of the content.
func (s *searcher) tryMatch(group *matchGroup, c *chunk.Chunk, ls, le int, sf *corpus.SearchFile) {
	lno := 1
	seg := -1
	for i := range sf.Content {
		sg := &sf.Content[i]
		if sg.Chunk == c && uint32(ls) >= sg.Off && uint32(ls) <= sg.Off+sg.Len {
			lno += bytes.Count(c.Data[sg.Off:uint32(ls)], newline)
			seg = i
			break
		}
		lno += bytes.Count(sg.Bytes(), newline) + 1
	}
	if seg < 0 {
		return
	}

	ctx := MatchContext{File: sf, LineNum: lno}
	ctx.Before = contextBefore(sf, seg, uint32(ls))
	ctx.After = contextAfter(sf, seg, uint32(le))

	for _, p := range sf.Paths {
		if !s.acceptPath(p) {
			continue
		}
		list, ok := group.matches[p.Path]
		switch {
		case !ok:
			s.matches.Add(1)
			list = append(list, ctx)
		case list[len(list)-1].File != sf:
			list = append(list, ctx)
		}
		last := &list[len(list)-1]
		last.Paths = append(last.Paths, p)
		group.matches[p.Path] = list
	}
}

// contextBefore gathers up to ContextLines lines preceding the line
// starting at lstart, stepping backwards across segment boundaries.
func contextBefore(sf *corpus.SearchFile, seg int, lstart uint32) [][]byte {
	var out [][]byte
	for i := 0; i < ContextLines; i++ {
		sg := &sf.Content[seg]
		if lstart == sg.Off {
			if seg == 0 {
				break
			}
			seg--
			sg = &sf.Content[seg]
			lstart = sg.Off + sg.Len + 1
		}
		ns, ne := lineWithin(sg, lstart-1)
		out = append(out, sg.Chunk.Data[ns:ne])
		lstart = ns
	}
	return out
}

// contextAfter gathers up to ContextLines lines following the line
// ending at lend, stepping forwards across segment boundaries.
func contextAfter(sf *corpus.SearchFile, seg int, lend uint32) [][]byte {
	var out [][]byte
	for i := 0; i < ContextLines; i++ {
		sg := &sf.Content[seg]
		if lend == sg.Off+sg.Len {
			seg++
			if seg == len(sf.Content) {
				break
			}
			sg = &sf.Content[seg]
			lend = sg.Off - 1
		}
		ns, ne := lineWithin(sg, lend+1)
		out = append(out, sg.Chunk.Data[ns:ne])
		lend = ne
	}
	return out
}

// lineWithin returns the line of the segment containing byte position
// pos, bounded by the segment (lines never leak into a neighboring
// segment's bytes).
func lineWithin(sg *corpus.Segment, pos uint32) (uint32, uint32) {
	data := sg.Chunk.Data
	start := sg.Off
	if i := bytes.LastIndexByte(data[sg.Off:pos], '\n'); i >= 0 {
		start = sg.Off + uint32(i) + 1
	}
	end := sg.Off + sg.Len
	if i := bytes.IndexByte(data[pos:sg.Off+sg.Len], '\n'); i >= 0 {
		end = pos + uint32(i)
	}
	return start, end
}

// finishGroup publishes one MatchResult per path, in path order.
func (s *searcher) finishGroup(group *matchGroup) {
	if len(group.matches) == 0 {
		return
	}
	paths := make([]string, 0, len(group.matches))
	for p := range group.matches {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		s.results <- &MatchResult{
			Line:       group.line,
			MatchLeft:  group.left,
			MatchRight: group.right,
			Context:    group.matches[p],
		}
	}
}
