package corpus

import "github.com/dl/srcsearch/internal/walker"

// WalkRef ingests every blob reachable from ref in repo. orderRoot names
// the top-level directories to visit first, in order; the remainder
// follow lexicographically.
func (c *Corpus) WalkRef(repo walker.Repository, ref string, orderRoot []string) error {
	if c.finalized {
		return ErrFinalized
	}
	c.BeginRef(ref)
	return repo.WalkRef(ref, orderRoot, func(path string, data []byte) error {
		return c.Ingest(ref, path, data)
	})
}
