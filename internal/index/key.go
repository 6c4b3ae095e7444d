// Package index turns a regular expression into a conservative prefix
// filter (an IndexKey) and walks a chunk's suffix array with it, emitting
// the candidate positions where a match could start.
package index

// Key is one node of an index key: a set of acceptable byte prefixes for
// a match start. If Empty is set, any suffix is acceptable from here on.
// Otherwise the next byte must fall in one of Ranges, and the bytes after
// it must satisfy the corresponding child key.
//
// Keys may share subtrees; walkers must not assume unique ownership.
type Key struct {
	Empty  bool
	Ranges []Range
}

// Range maps the inclusive byte range [Lo, Hi] to the key governing the
// following bytes. Lo..Hi never includes '\n'.
type Range struct {
	Lo, Hi byte
	Next   *Key
}

// NoFilter reports whether the key constrains nothing, so filtered search
// would be pointless and the caller should scan the whole chunk.
func (k *Key) NoFilter() bool {
	return k == nil || k.Empty || len(k.Ranges) == 0
}

// terminal reports whether k is a bare empty leaf: the prefix is complete
// here and any suffix is acceptable.
func (k *Key) terminal() bool {
	return k != nil && k.Empty && len(k.Ranges) == 0
}

// size returns the node count, for capping analyzer output. Shared
// subtrees are counted once.
func (k *Key) size() int {
	seen := make(map[*Key]bool)
	var count func(*Key) int
	count = func(n *Key) int {
		if n == nil || seen[n] {
			return 0
		}
		seen[n] = true
		total := 1
		for _, r := range n.Ranges {
			total += count(r.Next)
		}
		return total
	}
	return count(k)
}
