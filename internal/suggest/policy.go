package suggest

import (
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// pathIgnored reports whether the filename matches any of the configured
// ignore globs. Patterns match against the full path and, for bare
// patterns like "*.min.js", against the base name as well.
func pathIgnored(filename string, globs []string) bool {
	if filename == "" || len(globs) == 0 {
		return false
	}
	base := filepath.Base(filename)
	for _, glob := range globs {
		if ok, err := doublestar.Match(glob, filename); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(glob, base); err == nil && ok {
			return true
		}
	}
	return false
}
