package normalize

import (
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/text/cases"
)

// PathCompare selects how two paths are compared when reducing a folder selection.
type PathCompare int

const (
	// CaseSensitive compares cleaned paths byte for byte
	CaseSensitive PathCompare = iota

	// CaseInsensitive also unifies separators and folds case
	CaseInsensitive
)

// String returns a human-readable representation of the comparison mode.
func (m PathCompare) String() string {
	if m == CaseInsensitive {
		return "case-insensitive"
	}
	return "case-sensitive"
}

// PlatformPathCompare returns the comparison mode of the host's default filesystem.
func PlatformPathCompare() PathCompare {
	switch runtime.GOOS {
	case "windows", "darwin":
		return CaseInsensitive
	default:
		return CaseSensitive
	}
}

// ReducePaths collapses a folder selection into a minimal set of non-overlapping paths.
//
// Exact duplicates are dropped first. Then every path that lies inside another selected
// path (by whole segments, so /music does not cover /musicals) is dropped, as is a path
// equal to an earlier one after canonicalization. The first occurrence wins and the output
// keeps input order. Every input path is covered by some output path. Malformed strings
// are passed through untouched.
func ReducePaths(paths []string, mode PathCompare) []string {
	seen := make(map[string]struct{}, len(paths))
	unique := make([]string, 0, len(paths))
	canon := make([]string, 0, len(paths))
	byCanon := make(map[string]struct{}, len(paths))

	for _, p := range paths {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}

		c := CanonicalPath(p, mode)
		if _, dup := byCanon[c]; dup {
			continue
		}
		byCanon[c] = struct{}{}

		unique = append(unique, p)
		canon = append(canon, c)
	}

	result := make([]string, 0, len(unique))
	for i, p := range unique {
		covered := false
		for j := range unique {
			if i != j && isWithin(canon[i], canon[j]) {
				covered = true
				break
			}
		}
		if !covered {
			result = append(result, p)
		}
	}
	return result
}

// canonicalPath cleans p and, in insensitive mode, unifies separators and folds case.
func CanonicalPath(p string, mode PathCompare) string {
	c := filepath.ToSlash(filepath.Clean(p))
	if mode == CaseInsensitive {
		c = strings.ReplaceAll(c, `\`, "/")
		c = cases.Fold().String(c)
	}
	return c
}

// isWithin reports whether child is strictly inside parent, comparing whole segments.
func isWithin(child, parent string) bool {
	if child == parent {
		return false
	}
	prefix := parent
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return strings.HasPrefix(child, prefix)
}

// Covers reports whether path is root itself or lies inside it.
func Covers(root, path string, mode PathCompare) bool {
	r, p := CanonicalPath(root, mode), CanonicalPath(path, mode)
	return r == p || isWithin(p, r)
}
