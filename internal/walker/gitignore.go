package walker

import (
	"path/filepath"

	ignore "github.com/sabhiram/go-gitignore"
)

// ignoreStack tracks .gitignore rules as the walk descends. Each layer
// corresponds to one walked directory; a directory without a usable
// .gitignore file holds a layer with a nil parser.
type ignoreStack struct {
	layers []ignoreLayer
}

type ignoreLayer struct {
	dir    string
	parser *ignore.GitIgnore
}

func newIgnoreStack() *ignoreStack {
	return &ignoreStack{}
}

// push loads .gitignore from a directory and pushes its rules onto the
// stack. Directories without one (or with a broken one) push a nil layer
// to keep the stack depth aligned with the walk.
func (s *ignoreStack) push(dir string) {
	parser, err := ignore.CompileIgnoreFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		s.layers = append(s.layers, ignoreLayer{dir: dir})
		return
	}
	s.layers = append(s.layers, ignoreLayer{dir: dir, parser: parser})
}

func (s *ignoreStack) pop() {
	if len(s.layers) > 0 {
		s.layers = s.layers[:len(s.layers)-1]
	}
}

// isIgnored checks a path against every active layer, using paths
// relative to each layer's directory the way git does.
func (s *ignoreStack) isIgnored(fullPath string, isDir bool) bool {
	for _, layer := range s.layers {
		if layer.parser == nil {
			continue
		}
		rel, err := filepath.Rel(layer.dir, fullPath)
		if err != nil {
			continue
		}
		if isDir {
			rel += "/"
		}
		if layer.parser.MatchesPath(rel) {
			return true
		}
	}
	return false
}
