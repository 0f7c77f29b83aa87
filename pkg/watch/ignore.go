package watch

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultIgnoredDirs are build and VCS directories whose churn never triggers a pass.
var DefaultIgnoredDirs = []string{".git", "target", "node_modules", "bin", "obj"}

// DefaultIgnoredGlobs are file patterns, relative to the watched root.
var DefaultIgnoredGlobs = []string{"**/*.class", "**/package-lock.json"}

// Matcher decides which paths under a root are ignored.
type Matcher struct {
	root  string
	dirs  map[string]bool
	globs []string
	trees []string
}

// NewMatcher builds a Matcher for root. globs are doublestar patterns matched against
// slash-separated paths relative to root; trees are absolute directories ignored with
// everything below them.
func NewMatcher(root string, globs, trees []string) (*Matcher, error) {
	m := &Matcher{root: filepath.Clean(root), dirs: make(map[string]bool)}
	for _, d := range DefaultIgnoredDirs {
		m.dirs[d] = true
	}
	for _, g := range append(append([]string(nil), DefaultIgnoredGlobs...), globs...) {
		if !doublestar.ValidatePattern(g) {
			return nil, fmt.Errorf("invalid ignore pattern %q", g)
		}
		m.globs = append(m.globs, g)
	}
	for _, t := range trees {
		if t != "" {
			m.trees = append(m.trees, filepath.Clean(t))
		}
	}
	return m, nil
}

// Ignored reports whether path (absolute, or relative to the root) is ignored.
func (m *Matcher) Ignored(path string) bool {
	if !filepath.IsAbs(path) {
		path = filepath.Join(m.root, path)
	}
	path = filepath.Clean(path)

	for _, t := range m.trees {
		if path == t || strings.HasPrefix(path, t+string(filepath.Separator)) {
			return true
		}
	}

	rel, err := filepath.Rel(m.root, path)
	if err != nil || rel == "." {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, seg := range strings.Split(rel, "/") {
		if m.dirs[seg] {
			return true
		}
	}
	for _, g := range m.globs {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
	}
	return false
}
