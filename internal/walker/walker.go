// Package walker streams (ref, path, blob) tuples out of version-control
// snapshots for corpus ingestion. The corpus only ever sees byte content;
// the walker owns tree traversal, ignore rules and path filtering.
package walker

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Repository yields the blobs reachable from a named ref.
type Repository interface {
	// WalkRef visits every blob in ref's tree. Top-level entries named
	// in orderRoot come first, in that order; the rest follow
	// lexicographically. Subdirectories are walked lexicographically.
	WalkRef(ref string, orderRoot []string, visit func(path string, data []byte) error) error
}

// Options configures snapshot traversal.
type Options struct {
	NoIgnore bool     // skip .gitignore processing
	Hidden   bool     // include dotfiles and dot-directories
	Globs    []string // if non-empty, only paths matching one glob are visited
}

// DirRepository treats directories on disk as snapshot trees, one per
// ref.
type DirRepository struct {
	refs map[string]string
	opts Options
}

// NewDirRepository creates an empty DirRepository with the given walk
// options.
func NewDirRepository(opts Options) *DirRepository {
	return &DirRepository{refs: make(map[string]string), opts: opts}
}

// AddRef registers dir as the tree of ref.
func (r *DirRepository) AddRef(ref, dir string) {
	r.refs[ref] = dir
}

func (r *DirRepository) WalkRef(ref string, orderRoot []string, visit func(path string, data []byte) error) error {
	root, ok := r.refs[ref]
	if !ok {
		return fmt.Errorf("walker: unknown ref %q", ref)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("walker: read %s: %w", root, err)
	}

	byName := make(map[string]os.DirEntry, len(entries))
	for _, ent := range entries {
		byName[ent.Name()] = ent
	}

	var ordered []os.DirEntry
	for _, name := range orderRoot {
		if ent, ok := byName[name]; ok {
			ordered = append(ordered, ent)
			delete(byName, name)
		}
	}
	rest := make([]os.DirEntry, 0, len(byName))
	for _, ent := range byName {
		rest = append(rest, ent)
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].Name() < rest[j].Name() })
	ordered = append(ordered, rest...)

	ignores := newIgnoreStack()
	if !r.opts.NoIgnore {
		ignores.push(root)
	}

	for _, ent := range ordered {
		if err := r.walkEntry(root, "", ent, ignores, visit); err != nil {
			return err
		}
	}
	return nil
}

func (r *DirRepository) walkEntry(root, prefix string, ent os.DirEntry, ignores *ignoreStack, visit func(string, []byte) error) error {
	name := ent.Name()
	if !r.opts.Hidden && strings.HasPrefix(name, ".") {
		return nil
	}

	rel := prefix + name
	full := filepath.Join(root, rel)

	if ent.IsDir() {
		if !r.opts.NoIgnore && ignores.isIgnored(full, true) {
			return nil
		}
		return r.walkTree(root, rel+"/", full, ignores, visit)
	}

	if !ent.Type().IsRegular() {
		return nil
	}
	if !r.opts.NoIgnore && ignores.isIgnored(full, false) {
		return nil
	}
	if len(r.opts.Globs) > 0 && !matchAnyGlob(r.opts.Globs, rel) {
		return nil
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return fmt.Errorf("walker: read %s: %w", full, err)
	}
	return visit(rel, data)
}

func (r *DirRepository) walkTree(root, prefix, dir string, ignores *ignoreStack, visit func(string, []byte) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("walker: read %s: %w", dir, err)
	}

	if !r.opts.NoIgnore {
		ignores.push(dir)
		defer ignores.pop()
	}

	for _, ent := range entries {
		if err := r.walkEntry(root, prefix, ent, ignores, visit); err != nil {
			return err
		}
	}
	return nil
}

func matchAnyGlob(globs []string, rel string) bool {
	for _, g := range globs {
		if ok, err := doublestar.Match(g, rel); err == nil && ok {
			return true
		}
	}
	return false
}
