// Package search runs regex queries over a finalized corpus: suffix-array
// filtered candidate generation, regex confirmation, file resolution and
// match grouping, dispatched across chunks by a persistent worker pool.
package search

import (
	"bytes"
	"math/rand/v2"
	"regexp"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/dl/srcsearch/internal/chunk"
	"github.com/dl/srcsearch/internal/corpus"
	"github.com/dl/srcsearch/internal/index"
	"github.com/dl/srcsearch/internal/matcher"
)

// Tuning constants for candidate filtering and context assembly.
const (
	ContextLines   = 3
	MinSkip        = 250
	MinFilterRatio = 50
	MaxScan        = 1 << 20
)

// searcher holds the transient state of one query. It is shared by every
// worker the query fans out to; all mutable fields are atomics or guarded.
type searcher struct {
	corp    *corpus.Corpus
	m       matcher.Matcher
	filePat *regexp.Regexp
	key     *index.Key
	indexed bool
	logger  *log.Logger

	maxMatches int
	deadline   time.Time

	results chan *MatchResult

	matches atomic.Int32
	exit    atomic.Int32

	// files caches the file-path filter's verdict per SearchFile:
	// -1 unknown, 0 rejected, 1 accepted.
	files []atomic.Int32

	// density is the sampled fraction of files the path filter accepts;
	// -1 until computed.
	densityMu sync.Mutex
	density   float64

	analyzeTime atomicTimer
	indexTime   atomicTimer
	sortTime    atomicTimer
	regexTime   atomicTimer
	resolveTime atomicTimer
}

func (s *searcher) exitReason() ExitReason {
	return ExitReason(s.exit.Load())
}

func (s *searcher) setExit(r ExitReason) {
	s.exit.CompareAndSwap(int32(ExitNone), int32(r))
}

// exitEarly checks the query-wide stop conditions. Workers call it
// between results and return promptly once it trips.
func (s *searcher) exitEarly() bool {
	if s.exitReason() != ExitNone {
		return true
	}
	if int(s.matches.Load()) >= s.maxMatches {
		s.setExit(ExitMatchLimit)
		return true
	}
	if !s.deadline.IsZero() && time.Now().After(s.deadline) {
		s.setExit(ExitTimeout)
		return true
	}
	return false
}

func (s *searcher) acceptPath(p corpus.Path) bool {
	if s.filePat == nil {
		return true
	}
	return s.filePat.MatchString(p.Path)
}

func (s *searcher) acceptFile(sf *corpus.SearchFile) bool {
	if s.filePat == nil {
		return true
	}
	if v := s.files[sf.No].Load(); v >= 0 {
		return v == 1
	}
	verdict := int32(0)
	for _, p := range sf.Paths {
		if s.acceptPath(p) {
			verdict = 1
			break
		}
	}
	s.files[sf.No].Store(verdict)
	return verdict == 1
}

// acceptFileNos reports whether any of the files is path-accepted.
func (s *searcher) acceptFileNos(nos []uint32) bool {
	files := s.corp.Files()
	for _, no := range nos {
		if s.acceptFile(files[no]) {
			return true
		}
	}
	return false
}

// filesDensity estimates the fraction of files the path filter accepts by
// sampling up to 1000 random files. Computed once per query.
func (s *searcher) filesDensity() float64 {
	s.densityMu.Lock()
	defer s.densityMu.Unlock()
	if s.density >= 0 {
		return s.density
	}
	files := s.corp.Files()
	if len(files) == 0 {
		s.density = 1
		return s.density
	}
	sample := min(1000, len(files))
	hits := 0
	for i := 0; i < sample; i++ {
		if s.acceptFile(files[rand.IntN(len(files))]) {
			hits++
		}
	}
	s.density = float64(hits) / float64(sample)
	return s.density
}

// searchChunk runs the query over one chunk, pushing results to the
// query's result queue. scratch is the worker's candidate buffer.
func (s *searcher) searchChunk(c *chunk.Chunk, scratch []uint32) {
	if s.exitReason() != ExitNone {
		return
	}
	if s.indexed && !s.key.NoFilter() {
		s.filteredSearch(c, scratch)
	} else {
		s.fullChunk(c)
	}
}

func (s *searcher) filteredSearch(c *chunk.Chunk, scratch []uint32) {
	start := time.Now()
	count := index.Walk(c, s.key, scratch)
	s.indexTime.add(time.Since(start))

	s.logger.Debug("filtered search", "chunk_size", c.Size, "candidates", count)
	s.searchLines(scratch, count, c)
}

// searchLines coalesces sorted candidate positions into line ranges and
// confirms each range with the regex. Falls back to a full chunk scan
// when the filter was not selective enough.
func (s *searcher) searchLines(indexes []uint32, count int, c *chunk.Chunk) {
	if count == 0 {
		return
	}

	if count*MinFilterRatio > c.Size {
		s.fullChunk(c)
		return
	}

	if s.filePat != nil && float64(count*30)/float64(c.Size) > s.filesDensity() {
		s.fullChunk(c)
		return
	}

	start := time.Now()
	radixSort(indexes[:count])
	s.sortTime.add(time.Since(start))

	finger := &matchFinger{}

	maxp := int(indexes[0])
	minp := lineStart(c, maxp)
	for i := 0; i <= count && !s.exitEarly(); i++ {
		if i != count {
			if int(indexes[i]) < maxp {
				continue
			}
			if int(indexes[i]) < maxp+MinSkip {
				maxp = int(indexes[i])
				continue
			}
		}

		end := lineEnd(c, maxp)
		s.fullSearch(finger, c, minp, end)

		if i != count {
			maxp = int(indexes[i])
			minp = lineStart(c, maxp)
		}
	}
}

func (s *searcher) fullChunk(c *chunk.Chunk) {
	finger := &matchFinger{}
	s.fullSearch(finger, c, 0, c.Size-1)
}

// matchFinger is a monotonically advancing cursor into a chunk's file
// records, used to skip regions whose files the path filter rejects.
type matchFinger struct {
	i int
}

// nextRange narrows [*pos, *end) to the next sub-range that intersects a
// path-accepted file record, absorbing adjacent accepted records closer
// than MinSkip. Without a path filter (or with indexing off) the range
// stands as given.
func (s *searcher) nextRange(finger *matchFinger, c *chunk.Chunk, pos, end *int, maxpos int) {
	if s.filePat == nil || !s.indexed {
		return
	}

	files := c.Files

	for finger.i < len(files) &&
		(int(files[finger.i].Right) < *pos || !s.acceptFileNos(files[finger.i].Files)) &&
		int(files[finger.i].Left) < maxpos {
		finger.i++
	}

	if finger.i >= len(files) || int(files[finger.i].Left) >= maxpos {
		*pos, *end = maxpos, maxpos
		return
	}

	if l := int(files[finger.i].Left); *pos < l {
		*pos = l
	}
	*end = int(files[finger.i].Right)

	// Scan until the range is proven covered, a gap wider than MinSkip
	// appears, or we pass maxpos.
	for {
		f := &files[finger.i]
		if int(f.Left) >= *end+MinSkip {
			break
		}
		if int(f.Right) >= *end && s.acceptFileNos(f.Files) {
			if int(f.Right) > *end {
				*end = int(f.Right)
			}
			if *end >= maxpos {
				break
			}
		}
		finger.i++
		if finger.i >= len(files) || int(files[finger.i].Left) >= maxpos {
			break
		}
	}

	if *end > maxpos {
		*end = maxpos
	}
}

// fullSearch runs the regex over [minpos, maxpos) of the chunk, resolving
// each confirmed match to its files. Scans are clamped to MaxScan bytes,
// extended to the next newline so a line is never cut mid-way.
func (s *searcher) fullSearch(finger *matchFinger, c *chunk.Chunk, minpos, maxpos int) {
	pos, end := minpos, minpos
	for pos < maxpos && !s.exitEarly() {
		if pos >= end {
			end = maxpos
			s.nextRange(finger, c, &pos, &end, maxpos)
		}
		if pos >= maxpos {
			break
		}

		limit := end
		if limit-pos > MaxScan {
			limit = lineEnd(c, pos+MaxScan)
		}

		start := time.Now()
		ms, me, ok := s.m.Match(c.Data, pos, limit)
		s.regexTime.add(time.Since(start))
		if !ok {
			pos = limit + 1
			continue
		}

		// The index key never spans a newline, so neither may a match.
		ls, le := findLine(c, ms, me)
		if utf8.Valid(c.Data[ls:le]) {
			s.findMatch(c, ms, me, ls, le)
		}
		pos = le + 1
	}
}

// lineStart returns the position of the newline preceding pos, or 0.
func lineStart(c *chunk.Chunk, pos int) int {
	if i := bytes.LastIndexByte(c.Data[:pos], '\n'); i >= 0 {
		return i
	}
	return 0
}

// lineEnd returns the position of the newline at or after pos, or the
// chunk size.
func lineEnd(c *chunk.Chunk, pos int) int {
	if i := bytes.IndexByte(c.Data[pos:c.Size], '\n'); i >= 0 {
		return pos + i
	}
	return c.Size
}

// findLine expands a match span to its containing line [ls, le).
func findLine(c *chunk.Chunk, ms, me int) (int, int) {
	ls := 0
	if i := bytes.LastIndexByte(c.Data[:ms], '\n'); i >= 0 {
		ls = i + 1
	}
	le := c.Size
	if i := bytes.IndexByte(c.Data[me:c.Size], '\n'); i >= 0 {
		le = me + i
	}
	return ls, le
}
