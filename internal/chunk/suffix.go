package chunk

// Suffix ordering treats '\n' as a string terminator: comparison stops at
// a newline on either side, and a newline sorts below every real byte.
// rankAt maps the byte at off+depth into that order (terminator = 0).
func rankAt(data []byte, off uint32, depth int) int {
	p := int(off) + depth
	if p >= len(data) {
		return 0
	}
	b := data[p]
	if b == '\n' {
		return 0
	}
	return int(b) + 1
}

// buildSuffixes returns the permutation of [0, len(data)) ordered by the
// suffix starting at each offset.
func buildSuffixes(data []byte) []uint32 {
	sa := make([]uint32, len(data))
	for i := range sa {
		sa[i] = uint32(i)
	}
	sortSuffixes(data, sa, 0)
	return sa
}

// sortSuffixes is a multikey ternary quicksort (Bentley-Sedgewick) on the
// depth-th rank. The equal partition recurses one byte deeper unless its
// rank is the terminator, in which case the suffixes compare equal and
// their relative order does not matter.
func sortSuffixes(data []byte, sa []uint32, depth int) {
	for len(sa) > 1 {
		if len(sa) <= 16 {
			insertionSort(data, sa, depth)
			return
		}

		pivot := rankAt(data, sa[medianOfThree(data, sa, depth)], depth)

		// Three-way partition: [0,lt) < pivot, [lt,i) == pivot, (gt,end] > pivot.
		lt, i, gt := 0, 0, len(sa)-1
		for i <= gt {
			r := rankAt(data, sa[i], depth)
			switch {
			case r < pivot:
				sa[lt], sa[i] = sa[i], sa[lt]
				lt++
				i++
			case r > pivot:
				sa[i], sa[gt] = sa[gt], sa[i]
				gt--
			default:
				i++
			}
		}

		sortSuffixes(data, sa[:lt], depth)
		sortSuffixes(data, sa[gt+1:], depth)
		if pivot == 0 {
			return
		}
		sa = sa[lt : gt+1]
		depth++
	}
}

func medianOfThree(data []byte, sa []uint32, depth int) int {
	a, b, c := 0, len(sa)/2, len(sa)-1
	ra := rankAt(data, sa[a], depth)
	rb := rankAt(data, sa[b], depth)
	rc := rankAt(data, sa[c], depth)
	if ra > rb {
		a, ra, b, rb = b, rb, a, ra
	}
	if rb > rc {
		b, rb = c, rc
	}
	if ra > rb {
		b = a
	}
	return b
}

func insertionSort(data []byte, sa []uint32, depth int) {
	for i := 1; i < len(sa); i++ {
		for j := i; j > 0 && suffixLess(data, sa[j], sa[j-1], depth); j-- {
			sa[j], sa[j-1] = sa[j-1], sa[j]
		}
	}
}

func suffixLess(data []byte, a, b uint32, depth int) bool {
	for {
		ra := rankAt(data, a, depth)
		rb := rankAt(data, b, depth)
		if ra != rb {
			return ra < rb
		}
		if ra == 0 {
			return false
		}
		depth++
	}
}
