package index

import "github.com/dl/srcsearch/internal/chunk"

// smallSlice is the suffix-slice size below which descending further is
// not worth the binary searches; the slice is copied out as-is.
const smallSlice = 100

// Walk filters c's suffix array with key and appends candidate match
// positions to out[:0]. It returns the candidate count; a count greater
// than len(out) means the filter blew its budget and the caller should
// fall back to a full scan.
func Walk(c *chunk.Chunk, key *Key, out []uint32) int {
	type frame struct {
		left, right int
		key         *Key
		depth       int
	}

	stack := []frame{{0, len(c.Suffixes), key, 0}}
	count := 0

	for len(stack) > 0 {
		st := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if st.key.NoFilter() || st.right-st.left <= smallSlice {
			n := st.right - st.left
			if count+n > len(out) {
				return len(out) + 1
			}
			copy(out[count:], c.Suffixes[st.left:st.right])
			count += n
			continue
		}

		for _, r := range st.key.Ranges {
			// Narrow to the sub-slice whose depth-th byte lies in [Lo, Hi].
			l := lowerBound(c, st.left, st.right, st.depth, int(r.Lo))
			right := lowerBound(c, l, st.right, st.depth, int(r.Hi)+1)
			if l == right {
				continue
			}

			// Split the range into single bytes so deeper key nodes can
			// keep pruning per byte.
			for ch := int(r.Lo); ch <= int(r.Hi); ch++ {
				rr := lowerBound(c, l, right, st.depth, ch+1)
				if rr != l {
					stack = append(stack, frame{l, rr, r.Next, st.depth + 1})
				}
				l = rr
			}
		}
	}

	return count
}

// lowerBound returns the first index in [lo, hi) whose suffix's depth-th
// byte is >= b, with '\n' ordering below every real byte.
func lowerBound(c *chunk.Chunk, lo, hi, depth, b int) int {
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		ch := c.Data[int(c.Suffixes[mid])+depth]
		if ch != '\n' && int(ch) >= b {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}
