package indexer

import (
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// ignoreScope is a compiled gitignore matcher scoped to dir and its
// descendants: patterns from a .gitignore only ever exclude paths under
// the directory that contains it.
type ignoreScope struct {
	dir string
	gi  *ignore.GitIgnore
}

// exclusionSet is the union of configured exclusion_patterns and every
// .gitignore encountered so far while descending the tree. It is
// immutable: withDir returns a new value, so concurrent walkers descending
// into sibling directories never share mutable state.
type exclusionSet struct {
	scopes []ignoreScope
}

// newExclusionSet seeds an exclusionSet from the repo-wide configured
// patterns (unscoped: applies everywhere).
func newExclusionSet(patterns []string) *exclusionSet {
	es := &exclusionSet{}
	if len(patterns) > 0 {
		if gi, err := ignore.CompileIgnoreLines(patterns...); err == nil {
			es.scopes = append(es.scopes, ignoreScope{dir: "", gi: gi})
		}
	}
	return es
}

// withDir layers dir's .gitignore (if present) on top of es, scoped to dir
// and everything beneath it.
func (es *exclusionSet) withDir(dir string) *exclusionSet {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		return es
	}

	next := &exclusionSet{scopes: make([]ignoreScope, len(es.scopes), len(es.scopes)+1)}
	copy(next.scopes, es.scopes)
	next.scopes = append(next.scopes, ignoreScope{dir: dir, gi: gi})
	return next
}

// excludes reports whether path should be skipped under any scope that
// contains it.
func (es *exclusionSet) excludes(path string) bool {
	for _, scope := range es.scopes {
		rel := path
		if scope.dir != "" {
			r, err := filepath.Rel(scope.dir, path)
			if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
				continue
			}
			rel = r
		}
		if scope.gi.MatchesPath(rel) {
			return true
		}
	}
	return false
}
