// Package chunk provides the byte arenas backing a deduplicated corpus.
//
// A chunk stores concatenated newline-terminated interned lines. After
// finalization it owns a suffix array over its bytes and an interval tree
// mapping byte ranges to the files that contain them.
package chunk

import (
	"errors"
	"sort"
)

// DefaultSize is the default capacity of a single chunk.
const DefaultSize = 1 << 25

var (
	// ErrFinalized is returned by Allocator.Finalize when the allocator has
	// already been finalized. Alloc after Finalize panics instead.
	ErrFinalized = errors.New("chunk: allocator already finalized")
)

// File records a byte interval [Left, Right] (inclusive) inside a chunk
// whose bytes all belong to the same set of search files. Files holds the
// dense numbers of those files.
type File struct {
	Left  uint32
	Right uint32
	Files []uint32
}

// FileNode is a node of the chunk-file interval tree, keyed by File.Left.
// RightLimit is the maximum File.Right over the subtree rooted here.
type FileNode struct {
	File       *File
	Left       *FileNode
	Right      *FileNode
	RightLimit uint32
}

// Chunk is a fixed-capacity byte arena. Data[:Size] holds interned lines,
// each followed by '\n'. Suffixes and the file tree exist only after
// Finalize.
type Chunk struct {
	Data     []byte
	Size     int
	Suffixes []uint32
	Files    []File

	root *FileNode

	// lastOpen marks whether the most recent Files entry may still be
	// extended by adjacent lines for the same file.
	lastOpen bool
}

// Span is a byte range inside a chunk. Len includes the trailing newline
// for interned line spans.
type Span struct {
	Chunk *Chunk
	Off   uint32
	Len   uint32
}

// Bytes returns the chunk bytes the span covers.
func (s Span) Bytes() []byte {
	return s.Chunk.Data[s.Off : s.Off+s.Len]
}

// AddFile records that file no owns the interned line span [off, off+size).
// Adjacent lines for the same file extend the open record; anything else
// opens a new one.
func (c *Chunk) AddFile(no uint32, off, size uint32) {
	if n := len(c.Files); n > 0 && c.lastOpen {
		last := &c.Files[n-1]
		if len(last.Files) == 1 && last.Files[0] == no && last.Right+1 == off {
			last.Right = off + size - 1
			return
		}
	}
	c.Files = append(c.Files, File{Left: off, Right: off + size - 1, Files: []uint32{no}})
	c.lastOpen = true
}

// FinishFile closes the open record, if any. The builder calls this on
// every chunk after each ingested blob.
func (c *Chunk) FinishFile() {
	c.lastOpen = false
}

// Root returns the root of the chunk-file interval tree. Nil before
// Finalize or for an empty chunk.
func (c *Chunk) Root() *FileNode {
	return c.root
}

// Finalize seals the chunk: builds the suffix array, canonicalizes the
// file records into disjoint maximal intervals, and builds the interval
// tree over them.
func (c *Chunk) Finalize() {
	c.Data = c.Data[:c.Size]
	c.Suffixes = buildSuffixes(c.Data)
	c.Files = canonicalize(c.Files)
	c.root = buildTree(c.Files)
}

// canonicalize rebuilds raw ingest-time records into sorted, disjoint
// intervals whose file sets are exactly the files containing each byte.
// Raw records may overlap: a line interned for one file is later
// referenced by every other file containing it.
func canonicalize(recs []File) []File {
	if len(recs) == 0 {
		return recs
	}

	type event struct {
		pos   uint32
		add   bool
		files []uint32
	}
	events := make([]event, 0, 2*len(recs))
	for i := range recs {
		events = append(events, event{pos: recs[i].Left, add: true, files: recs[i].Files})
		events = append(events, event{pos: recs[i].Right + 1, add: false, files: recs[i].Files})
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].pos != events[j].pos {
			return events[i].pos < events[j].pos
		}
		// Removes sort before adds so a record ending at pos-1 never
		// bleeds into an interval starting at pos.
		return !events[i].add && events[j].add
	})

	active := make(map[uint32]int)
	var out []File
	var prev uint32

	flush := func(from, to uint32) { // interval [from, to-1]
		if from >= to || len(active) == 0 {
			return
		}
		set := make([]uint32, 0, len(active))
		for no := range active {
			set = append(set, no)
		}
		sort.Slice(set, func(i, j int) bool { return set[i] < set[j] })

		if n := len(out); n > 0 && out[n-1].Right+1 == from && equalSet(out[n-1].Files, set) {
			out[n-1].Right = to - 1
			return
		}
		out = append(out, File{Left: from, Right: to - 1, Files: set})
	}

	for i := 0; i < len(events); {
		pos := events[i].pos
		flush(prev, pos)
		for ; i < len(events) && events[i].pos == pos; i++ {
			for _, no := range events[i].files {
				if events[i].add {
					active[no]++
				} else if active[no]--; active[no] == 0 {
					delete(active, no)
				}
			}
		}
		prev = pos
	}
	return out
}

func equalSet(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// buildTree builds a balanced BST over records sorted by Left and fills
// in RightLimit bottom-up.
func buildTree(files []File) *FileNode {
	if len(files) == 0 {
		return nil
	}
	mid := len(files) / 2
	n := &FileNode{
		File:  &files[mid],
		Left:  buildTree(files[:mid]),
		Right: buildTree(files[mid+1:]),
	}
	n.RightLimit = n.File.Right
	if n.Left != nil && n.Left.RightLimit > n.RightLimit {
		n.RightLimit = n.Left.RightLimit
	}
	if n.Right != nil && n.Right.RightLimit > n.RightLimit {
		n.RightLimit = n.Right.RightLimit
	}
	return n
}
