package search

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dl/srcsearch/internal/chunk"
	"github.com/dl/srcsearch/internal/corpus"
	"github.com/dl/srcsearch/internal/matcher"
)

type blob struct {
	ref, path, content string
}

func buildCorpus(t *testing.T, chunkSize int, blobs []blob) *corpus.Corpus {
	t.Helper()
	c := corpus.New(chunk.NewMemAllocator(chunkSize))
	for _, b := range blobs {
		require.NoError(t, c.Ingest(b.ref, b.path, []byte(b.content)))
	}
	require.NoError(t, c.Finalize())
	return c
}

func collect(t *testing.T, e *Engine, q Query) ([]*MatchResult, Stats) {
	t.Helper()
	var results []*MatchResult
	stats, err := e.Search(q, func(r *MatchResult) {
		results = append(results, r)
	})
	require.NoError(t, err)
	return results, stats
}

func newTestEngine(t *testing.T, corp *corpus.Corpus, opts Options) *Engine {
	t.Helper()
	pool := NewPool(4)
	t.Cleanup(pool.Close)
	if opts.MaxMatches == 0 {
		opts.MaxMatches = 50
	}
	return NewEngine(corp, pool, opts)
}

func TestBasicMatch(t *testing.T) {
	corp := buildCorpus(t, 1<<16, []blob{{"r", "f", "foo\nbar\nbaz\n"}})
	e := newTestEngine(t, corp, Options{Index: true, Search: true})

	results, stats := collect(t, e, Query{Pattern: "ba."})
	require.Len(t, results, 2)
	require.Equal(t, ExitNone, stats.Why)
	require.Equal(t, 2, stats.Matches)

	sort.Slice(results, func(i, j int) bool {
		return results[i].Context[0].LineNum < results[j].Context[0].LineNum
	})
	require.Equal(t, "bar", string(results[0].Line))
	require.Equal(t, 2, results[0].Context[0].LineNum)
	require.Equal(t, "baz", string(results[1].Line))
	require.Equal(t, 3, results[1].Context[0].LineNum)
	for _, r := range results {
		require.Equal(t, 0, r.MatchLeft)
		require.Equal(t, 3, r.MatchRight)
	}
}

func TestDedupAcrossRefs(t *testing.T) {
	corp := buildCorpus(t, 1<<16, []blob{
		{"r1", "f", "x\ny\n"},
		{"r2", "f", "x\ny\n"},
	})
	e := newTestEngine(t, corp, Options{Index: true, Search: true})

	results, _ := collect(t, e, Query{Pattern: "y"})
	require.Len(t, results, 1)
	require.Len(t, results[0].Context, 1)
	require.Equal(t, []corpus.Path{
		{Ref: "r1", Path: "f"},
		{Ref: "r2", Path: "f"},
	}, results[0].Context[0].Paths)
}

func TestMatchLimit(t *testing.T) {
	blobs := make([]blob, 10)
	for i := range blobs {
		content := ""
		for l := 1; l <= 10; l++ {
			if i == 3 && l == 7 {
				content += "the needle line\n"
			} else {
				content += fmt.Sprintf("blob %d line %d\n", i, l)
			}
		}
		blobs[i] = blob{"r", fmt.Sprintf("f%d", i), content}
	}
	corp := buildCorpus(t, 1<<16, blobs)
	e := newTestEngine(t, corp, Options{Index: true, Search: true, MaxMatches: 1})

	results, stats := collect(t, e, Query{Pattern: "needle"})
	require.Len(t, results, 1)
	require.Equal(t, 7, results[0].Context[0].LineNum)
	require.Equal(t, ExitMatchLimit, stats.Why)
}

func TestFileFilter(t *testing.T) {
	corp := buildCorpus(t, 1<<16, []blob{
		{"r", "src/a", "foo here\n"},
		{"r", "test/b", "foo there\n"},
	})
	e := newTestEngine(t, corp, Options{Index: true, Search: true})

	results, _ := collect(t, e, Query{Pattern: "foo", FilePattern: "^src/"})
	require.Len(t, results, 1)
	require.Equal(t, "src/a", results[0].Context[0].Paths[0].Path)
}

// resultSet flattens results into comparable (path, line number, line)
// tuples.
func resultSet(results []*MatchResult) map[string]bool {
	set := make(map[string]bool)
	for _, r := range results {
		for _, ctx := range r.Context {
			for _, p := range ctx.Paths {
				set[fmt.Sprintf("%s|%s|%d|%s", p.Ref, p.Path, ctx.LineNum, r.Line)] = true
			}
		}
	}
	return set
}

func TestIndexEquivalence(t *testing.T) {
	var blobs []blob
	for f := 0; f < 8; f++ {
		content := ""
		for l := 0; l < 40; l++ {
			if (f+l)%7 == 0 {
				content += fmt.Sprintf("prefix abc suffix %d\n", l%3)
			} else {
				content += fmt.Sprintf("file %d line %d text\n", f, l)
			}
		}
		blobs = append(blobs, blob{"r", fmt.Sprintf("dir/f%d", f), content})
	}

	for _, pattern := range []string{"abc", "suffix [0-9]", "line 1[0-9]"} {
		var sets []map[string]bool
		for _, indexed := range []bool{true, false} {
			corp := buildCorpus(t, 1<<16, blobs)
			e := newTestEngine(t, corp, Options{Index: indexed, Search: true, MaxMatches: 100000})
			results, stats := collect(t, e, Query{Pattern: pattern})
			require.Equal(t, ExitNone, stats.Why)
			sets = append(sets, resultSet(results))
		}
		require.Equal(t, sets[0], sets[1], "pattern %q", pattern)
		require.NotEmpty(t, sets[0], "pattern %q matched nothing", pattern)
	}
}

func TestMultiChunkEquivalence(t *testing.T) {
	var blobs []blob
	for f := 0; f < 6; f++ {
		content := ""
		for l := 0; l < 30; l++ {
			content += fmt.Sprintf("f%d l%02d padding padding padding\n", f, l)
		}
		content += "shared target line\n"
		blobs = append(blobs, blob{"r", fmt.Sprintf("f%d", f), content})
	}

	// Small chunks force the corpus across many chunks.
	var sets []map[string]bool
	for _, chunkSize := range []int{1 << 9, 1 << 20} {
		corp := buildCorpus(t, chunkSize, blobs)
		require.Greater(t, len(corp.Chunks()), 0)
		e := newTestEngine(t, corp, Options{Index: true, Search: true, MaxMatches: 100000})
		results, _ := collect(t, e, Query{Pattern: "target"})
		sets = append(sets, resultSet(results))
	}
	require.Equal(t, sets[0], sets[1])
	require.Len(t, sets[0], 6)
}

func TestInvalidUTF8LineSkipped(t *testing.T) {
	corp := buildCorpus(t, 1<<16, []blob{
		{"r", "f", "good line\n\xff\xfe bad line\n"},
	})
	e := newTestEngine(t, corp, Options{Index: true, Search: true})

	results, _ := collect(t, e, Query{Pattern: "line"})
	require.Len(t, results, 1)
	require.Equal(t, "good line", string(results[0].Line))
}

func TestUTF8MatchOffsets(t *testing.T) {
	corp := buildCorpus(t, 1<<16, []blob{
		{"r", "f", "héllo wörld needle end\n"},
	})
	e := newTestEngine(t, corp, Options{Index: true, Search: true})

	results, _ := collect(t, e, Query{Pattern: "needle"})
	require.Len(t, results, 1)
	// 12 codepoints precede the match ("héllo wörld " has two 2-byte
	// runes).
	require.Equal(t, 12, results[0].MatchLeft)
	require.Equal(t, 18, results[0].MatchRight)
}

func TestContextLines(t *testing.T) {
	content := "l1\nl2\nl3\nl4 target\nl5\nl6\nl7\n"
	corp := buildCorpus(t, 1<<16, []blob{{"r", "f", content}})
	e := newTestEngine(t, corp, Options{Index: true, Search: true})

	results, _ := collect(t, e, Query{Pattern: "target"})
	require.Len(t, results, 1)
	ctx := results[0].Context[0]
	require.Equal(t, 4, ctx.LineNum)

	// Nearest line first.
	require.Equal(t, []string{"l3", "l2", "l1"}, lineStrings(ctx.Before))
	require.Equal(t, []string{"l5", "l6", "l7"}, lineStrings(ctx.After))
}

func TestContextAtFileEdges(t *testing.T) {
	corp := buildCorpus(t, 1<<16, []blob{{"r", "f", "first target\nsecond\n"}})
	e := newTestEngine(t, corp, Options{Index: true, Search: true})

	results, _ := collect(t, e, Query{Pattern: "target"})
	require.Len(t, results, 1)
	ctx := results[0].Context[0]
	require.Empty(t, ctx.Before)
	require.Equal(t, []string{"second"}, lineStrings(ctx.After))
}

func TestContextCrossesSegments(t *testing.T) {
	// File b shares its first and last lines with a, so its middle line
	// lands in a separate segment. Context for the middle line must
	// stitch across segments.
	corp := buildCorpus(t, 1<<16, []blob{
		{"r", "a", "alpha\nbeta\ngamma\n"},
		{"r", "b", "alpha\nunique target\ngamma\n"},
	})
	e := newTestEngine(t, corp, Options{Index: true, Search: true})

	results, _ := collect(t, e, Query{Pattern: "target"})
	require.Len(t, results, 1)
	ctx := results[0].Context[0]
	require.Equal(t, 2, ctx.LineNum)
	require.Equal(t, []string{"alpha"}, lineStrings(ctx.Before))
	require.Equal(t, []string{"gamma"}, lineStrings(ctx.After))
}

func TestOrderingWithinChunk(t *testing.T) {
	content := ""
	for l := 0; l < 50; l++ {
		content += fmt.Sprintf("needle occurrence %02d\n", l)
	}
	corp := buildCorpus(t, 1<<16, []blob{{"r", "f", content}})
	e := newTestEngine(t, corp, Options{Index: true, Search: true, MaxMatches: 1000})

	results, _ := collect(t, e, Query{Pattern: "needle"})
	require.Len(t, results, 50)
	last := 0
	for _, r := range results {
		require.GreaterOrEqual(t, r.Context[0].LineNum, last)
		last = r.Context[0].LineNum
	}
}

func TestLineNumbersAcrossDedup(t *testing.T) {
	// "shared" sits at a different line number in each file.
	corp := buildCorpus(t, 1<<16, []blob{
		{"r", "a", "shared\nx\n"},
		{"r", "b", "one\ntwo\nshared\nx\n"},
	})
	e := newTestEngine(t, corp, Options{Index: true, Search: true})

	results, _ := collect(t, e, Query{Pattern: "shared"})
	lnos := make(map[string]int)
	for _, r := range results {
		for _, ctx := range r.Context {
			lnos[ctx.Paths[0].Path] = ctx.LineNum
		}
	}
	require.Equal(t, map[string]int{"a": 1, "b": 3}, lnos)
}

func TestSearchDisabled(t *testing.T) {
	corp := buildCorpus(t, 1<<16, []blob{{"r", "f", "x\n"}})
	e := newTestEngine(t, corp, Options{Index: true, Search: false})
	results, stats := collect(t, e, Query{Pattern: "x"})
	require.Empty(t, results)
	require.Zero(t, stats.Matches)
}

func TestInvalidPattern(t *testing.T) {
	corp := buildCorpus(t, 1<<16, []blob{{"r", "f", "x\n"}})
	e := newTestEngine(t, corp, Options{Index: true, Search: true})
	_, err := e.Search(Query{Pattern: "("}, func(*MatchResult) {})
	require.Error(t, err)

	_, err = e.Search(Query{Pattern: "x", FilePattern: "("}, func(*MatchResult) {})
	require.Error(t, err)
}

func TestSearchBeforeFinalizePanics(t *testing.T) {
	corp := corpus.New(chunk.NewMemAllocator(1 << 16))
	require.NoError(t, corp.Ingest("r", "f", []byte("x\n")))
	e := newTestEngine(t, corp, Options{Index: true, Search: true})
	require.Panics(t, func() {
		e.Search(Query{Pattern: "x"}, func(*MatchResult) {})
	})
}

func TestPCREQuery(t *testing.T) {
	corp := buildCorpus(t, 1<<16, []blob{{"r", "f", "foobar\nfoobaz\n"}})
	e := newTestEngine(t, corp, Options{Index: true, Search: true})

	results, _ := collect(t, e, Query{
		Pattern: `foo(?=bar)`,
		Matcher: matcher.Options{PCRE: true},
	})
	require.Len(t, results, 1)
	require.Equal(t, "foobar", string(results[0].Line))
}

func TestTimeoutDisabled(t *testing.T) {
	corp := buildCorpus(t, 1<<16, []blob{{"r", "f", "x\n"}})
	e := newTestEngine(t, corp, Options{Index: true, Search: true, Timeout: 0})
	_, stats := collect(t, e, Query{Pattern: "x"})
	require.Equal(t, ExitNone, stats.Why)
}

func TestTimeoutExpires(t *testing.T) {
	corp := buildCorpus(t, 1<<16, []blob{{"r", "f", "x\n"}})
	e := newTestEngine(t, corp, Options{Index: true, Search: true, Timeout: time.Nanosecond})
	// The deadline is already past when workers first check it.
	time.Sleep(time.Millisecond)
	results, stats := collect(t, e, Query{Pattern: "x"})
	require.Empty(t, results)
	require.Equal(t, ExitTimeout, stats.Why)
}

func lineStrings(lines [][]byte) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = string(l)
	}
	return out
}
