package corpus

import (
	"bytes"

	"github.com/cespare/xxhash/v2"

	"github.com/dl/srcsearch/internal/chunk"
)

// lineIntern maps distinct line contents to the chunk span they were
// interned at. Keys are xxhash64 of the line bytes (without the newline);
// buckets resolve collisions by comparing against the chunk bytes, so no
// copy of the line is retained outside the chunk.
type lineIntern struct {
	buckets map[uint64][]chunk.Span
}

func newLineIntern() *lineIntern {
	return &lineIntern{buckets: make(map[uint64][]chunk.Span)}
}

// lookup returns the interned span for line, if present. Spans include
// the trailing newline; line does not.
func (li *lineIntern) lookup(line []byte) (chunk.Span, bool) {
	h := xxhash.Sum64(line)
	for _, s := range li.buckets[h] {
		b := s.Bytes()
		if len(b) == len(line)+1 && bytes.Equal(b[:len(line)], line) {
			return s, true
		}
	}
	return chunk.Span{}, false
}

func (li *lineIntern) insert(line []byte, s chunk.Span) {
	h := xxhash.Sum64(line)
	li.buckets[h] = append(li.buckets[h], s)
}
