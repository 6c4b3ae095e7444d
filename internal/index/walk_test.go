package index

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dl/srcsearch/internal/chunk"
)

func buildChunk(t *testing.T, lines ...string) *chunk.Chunk {
	t.Helper()
	a := chunk.NewMemAllocator(1 << 16)
	for _, l := range lines {
		s := a.Alloc(len(l) + 1)
		copy(s.Bytes(), l+"\n")
		s.Chunk.AddFile(0, s.Off, s.Len)
	}
	for _, c := range a.Chunks() {
		c.FinishFile()
	}
	require.NoError(t, a.Finalize())
	return a.Chunks()[0]
}

// genLines produces enough distinct filler lines that the suffix slices
// stay above the copy-it-all threshold.
func genLines(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("filler line %04d with some text", i)
	}
	return lines
}

func TestWalkFindsAllMatchStarts(t *testing.T) {
	lines := append(genLines(200),
		"the needle is here",
		"another needle line",
		"and one more needle")
	c := buildChunk(t, lines...)

	key, err := Analyze("needle")
	require.NoError(t, err)
	require.False(t, key.NoFilter())

	out := make([]uint32, len(c.Data))
	count := Walk(c, key, out)
	require.LessOrEqual(t, count, len(out))

	candidates := make(map[uint32]bool)
	for _, p := range out[:count] {
		candidates[p] = true
	}

	re := regexp.MustCompile("needle")
	locs := re.FindAllIndex(c.Data, -1)
	require.Len(t, locs, 3)
	for _, loc := range locs {
		require.True(t, candidates[uint32(loc[0])],
			"match start %d missing from candidates", loc[0])
	}

	// The filter must actually narrow: far fewer candidates than bytes.
	require.Less(t, count, c.Size/10)
}

func TestWalkRangeKey(t *testing.T) {
	lines := append(genLines(150), "match09 target", "match42 target")
	c := buildChunk(t, lines...)

	key, err := Analyze("match[0-9][0-9]")
	require.NoError(t, err)
	require.False(t, key.NoFilter())

	out := make([]uint32, len(c.Data))
	count := Walk(c, key, out)

	candidates := make(map[uint32]bool)
	for _, p := range out[:count] {
		candidates[p] = true
	}
	re := regexp.MustCompile("match[0-9][0-9]")
	for _, loc := range re.FindAllIndex(c.Data, -1) {
		require.True(t, candidates[uint32(loc[0])])
	}
}

func TestWalkOverBudget(t *testing.T) {
	c := buildChunk(t, genLines(120)...)

	key, err := Analyze("filler")
	require.NoError(t, err)

	// Every line starts with "filler": a tiny budget must overflow.
	out := make([]uint32, 4)
	count := Walk(c, key, out)
	require.Equal(t, len(out)+1, count)
}

func TestWalkNoFilterKeyCopiesEverything(t *testing.T) {
	c := buildChunk(t, "aa", "bb")
	out := make([]uint32, len(c.Data))
	count := Walk(c, nil, out)
	require.Equal(t, c.Size, count)
}
