package corpus

import (
	"crypto/sha1"

	"github.com/dl/srcsearch/internal/chunk"
)

// Path names one occurrence of a file's content: a ref plus a path inside
// that ref's tree. A single SearchFile may carry many Paths.
type Path struct {
	Ref  string
	Path string
}

// Segment is a contiguous span of a file's content inside one chunk. It
// covers whole lines, includes interior newlines, and stops just before
// the trailing newline of its last line. Segments never cross chunks.
type Segment struct {
	Chunk *chunk.Chunk
	Off   uint32
	Len   uint32
}

// Bytes returns the chunk bytes the segment covers.
func (s Segment) Bytes() []byte {
	return s.Chunk.Data[s.Off : s.Off+s.Len]
}

// SearchFile is the deduplicated unit of the corpus: one per distinct
// blob content, identified by content hash and referenced by every
// (ref, path) pair that produced it.
type SearchFile struct {
	No      uint32
	Hash    [sha1.Size]byte
	Paths   []Path
	Content []Segment
}
