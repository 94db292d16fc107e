// Package repoindex lists and filters repository files by glob pattern,
// grounded on the teacher's glob tool (internal/tools/glob.go) but trimmed
// to the pure listing/filtering operation the engine's RepoFileIndex
// collaborator needs — no approval manager, no tool-call plumbing.
package repoindex

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// defaultExcludes skips the same directories the teacher's walk logic
// special-cases (hidden dirs) plus the common vendor/build directories.
var defaultExcludes = []string{".git", "node_modules", "vendor"}

// List walks root and returns slash-separated relative paths matching
// pattern (doublestar syntax, supports **). An empty pattern matches every
// file.
func List(root, pattern string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var out []string
	err = filepath.WalkDir(absRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") && path != absRoot {
				return filepath.SkipDir
			}
			for _, ex := range defaultExcludes {
				if name == ex {
					return filepath.SkipDir
				}
			}
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if pattern == "" {
			out = append(out, rel)
			return nil
		}
		if match, _ := doublestar.Match(pattern, rel); match {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// Filter narrows an already-gathered file list to those matching pattern,
// used when the caller already has a full ListRepoFiles() result (e.g.
// from fsys.Local) and wants a glob view over it without re-walking disk.
func Filter(files []string, pattern string) []string {
	if pattern == "" {
		return files
	}
	var out []string
	for _, f := range files {
		if match, _ := doublestar.Match(pattern, f); match {
			out = append(out, f)
		}
	}
	return out
}
