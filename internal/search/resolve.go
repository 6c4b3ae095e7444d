package search

import (
	"time"

	"github.com/dl/srcsearch/internal/chunk"
)

// findMatch resolves a confirmed match to every file containing its line.
// With indexing on it walks the chunk-file tree; otherwise it falls back
// to a linear scan over the chunk's records.
func (s *searcher) findMatch(c *chunk.Chunk, ms, me, ls, le int) {
	if !s.indexed {
		s.findMatchBrute(c, ms, me, ls, le)
		return
	}

	start := time.Now()
	defer func() { s.resolveTime.add(time.Since(start)) }()

	loff := uint32(ls)
	group := s.newMatchGroup(c, ms, me, ls, le)

	// Explicit stack, in-order traversal: a frame with visit=false
	// inspects the node and pushes children (plus itself with visit=true
	// in between, if its interval covers loff); visit=true scans the
	// node's files. In-order popping yields matches in ascending chunk
	// position.
	type frame struct {
		n     *chunk.FileNode
		visit bool
	}

	var stack []frame
	if c.Root() != nil {
		stack = append(stack, frame{c.Root(), false})
	}

	for len(stack) > 0 && s.exitReason() == ExitNone {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := f.n

		if f.visit {
			for _, no := range n.File.Files {
				sf := s.corp.Files()[no]
				if !s.acceptFile(sf) {
					continue
				}
				if s.exitEarly() {
					break
				}
				s.tryMatch(group, c, ls, le, sf)
			}
			continue
		}

		if loff > n.RightLimit {
			continue
		}
		if loff >= n.File.Left {
			if n.Right != nil {
				stack = append(stack, frame{n.Right, false})
			}
			if loff <= n.File.Right {
				stack = append(stack, frame{n, true})
			}
		}
		if n.Left != nil {
			stack = append(stack, frame{n.Left, false})
		}
	}

	s.finishGroup(group)
}

// findMatchBrute is the indexing-disabled resolver: a linear walk over
// the chunk's file records with the same acceptance semantics.
func (s *searcher) findMatchBrute(c *chunk.Chunk, ms, me, ls, le int) {
	start := time.Now()
	defer func() { s.resolveTime.add(time.Since(start)) }()

	loff := uint32(ls)
	group := s.newMatchGroup(c, ms, me, ls, le)

	for i := range c.Files {
		cf := &c.Files[i]
		if loff < cf.Left || loff > cf.Right {
			continue
		}
		for _, no := range cf.Files {
			sf := s.corp.Files()[no]
			if !s.acceptFile(sf) {
				continue
			}
			if s.exitEarly() {
				break
			}
			s.tryMatch(group, c, ls, le, sf)
		}
	}

	s.finishGroup(group)
}
