// Package corpus builds the deduplicated line corpus a search runs over.
//
// Blobs stream in as (ref, path, bytes) tuples. Content-identical blobs
// collapse into a single SearchFile; distinct lines are interned into
// chunks exactly once. Finalize seals the corpus, after which it is
// immutable and safe for concurrent searches.
package corpus

import (
	"bytes"
	"crypto/sha1"
	"errors"

	"github.com/dl/srcsearch/internal/chunk"
)

var (
	// ErrFinalized is returned by Ingest or Finalize after the corpus has
	// been sealed.
	ErrFinalized = errors.New("corpus: already finalized")
)

// Stats counts ingested and deduplicated volume.
type Stats struct {
	Bytes      int64
	DedupBytes int64
	Lines      int64
	DedupLines int64
	Files      int64
	DedupFiles int64
}

// Corpus is the deduplicated chunk/line store plus its file table. Build
// is single-threaded; after Finalize all state is read-only.
type Corpus struct {
	alloc     chunk.Allocator
	files     []*SearchFile
	fileMap   map[[sha1.Size]byte]*SearchFile
	lines     *lineIntern
	refs      []string
	stats     Stats
	finalized bool
}

// New returns an empty corpus backed by alloc.
func New(alloc chunk.Allocator) *Corpus {
	return &Corpus{
		alloc:   alloc,
		fileMap: make(map[[sha1.Size]byte]*SearchFile),
		lines:   newLineIntern(),
	}
}

// BeginRef records a ref about to be walked into the corpus.
func (c *Corpus) BeginRef(ref string) {
	c.refs = append(c.refs, ref)
}

// Refs returns the refs ingested so far, in walk order.
func (c *Corpus) Refs() []string { return c.refs }

// Files returns the file table, indexed by SearchFile.No.
func (c *Corpus) Files() []*SearchFile { return c.files }

// Chunks returns the corpus chunks in creation order.
func (c *Corpus) Chunks() []*chunk.Chunk { return c.alloc.Chunks() }

// Stats returns ingestion counters.
func (c *Corpus) Stats() Stats { return c.stats }

// Finalized reports whether Finalize has run.
func (c *Corpus) Finalized() bool { return c.finalized }

// Ingest adds one blob under (ref, path). Blobs containing a NUL byte are
// skipped. A blob whose content hash is already known only gains a new
// path. Otherwise the blob is split into newline-terminated lines, each
// interned into a chunk once; a final line with no trailing newline is
// dropped.
func (c *Corpus) Ingest(ref, path string, data []byte) error {
	if c.finalized {
		return ErrFinalized
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return nil
	}

	c.stats.Bytes += int64(len(data))
	c.stats.Files++

	h := sha1.Sum(data)
	if sf, ok := c.fileMap[h]; ok {
		sf.Paths = append(sf.Paths, Path{Ref: ref, Path: path})
		return nil
	}
	c.stats.DedupFiles++

	sf := &SearchFile{
		No:    uint32(len(c.files)),
		Hash:  h,
		Paths: []Path{{Ref: ref, Path: path}},
	}
	c.files = append(c.files, sf)
	c.fileMap[h] = sf

	p := 0
	for {
		f := bytes.IndexByte(data[p:], '\n')
		if f < 0 {
			break
		}
		line := data[p : p+f]

		span, ok := c.lines.lookup(line)
		if !ok {
			c.stats.DedupBytes += int64(f) + 1
			c.stats.DedupLines++
			span = c.alloc.Alloc(f + 1)
			copy(span.Bytes(), data[p:p+f+1])
			c.lines.insert(line, span)
		}

		span.Chunk.AddFile(sf.No, span.Off, span.Len)
		c.appendSegment(sf, span)

		p += f + 1
		c.stats.Lines++
	}

	for _, ch := range c.alloc.Chunks() {
		ch.FinishFile()
	}
	return nil
}

// appendSegment extends the file's last segment when the new line is
// byte-adjacent to it (same chunk, directly after the segment's trailing
// newline); otherwise it starts a new segment.
func (c *Corpus) appendSegment(sf *SearchFile, span chunk.Span) {
	if n := len(sf.Content); n > 0 {
		last := &sf.Content[n-1]
		if last.Chunk == span.Chunk && last.Off+last.Len+1 == span.Off {
			last.Len = span.Off + span.Len - 1 - last.Off
			return
		}
	}
	sf.Content = append(sf.Content, Segment{Chunk: span.Chunk, Off: span.Off, Len: span.Len - 1})
}

// Finalize seals the corpus: every chunk gets its suffix array and
// chunk-file tree. Finalizing twice is an error.
func (c *Corpus) Finalize() error {
	if c.finalized {
		return ErrFinalized
	}
	c.finalized = true
	return c.alloc.Finalize()
}

// Cleanup releases chunk storage. The corpus is unusable afterwards.
func (c *Corpus) Cleanup() error {
	return c.alloc.Cleanup()
}
