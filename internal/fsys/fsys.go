// Package fsys implements the engine's FileSystemService collaborator
// contract against the local disk.
package fsys

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/forgecode/editengine/internal/vcs"
)

// FileSystemService is the external collaborator contract: existence,
// read/write, directory creation, repo file listing, and VCS-root
// discovery.
type FileSystemService interface {
	FileExists(abs string) bool
	ReadFile(abs string) (string, bool)
	WriteFile(abs, content string) error
	EnsureDir(abs string) error
	ListRepoFiles() ([]string, error)
	VCSRoot() (string, bool)
}

// Local implements FileSystemService rooted at Root, listing files via
// doublestar globbing the same way the teacher's tools.ListFiles walks a
// directory tree, and skipping the patterns in IgnoreGlobs (defaulting to
// version-control and build-output directories).
type Local struct {
	Root        string
	IgnoreGlobs []string
}

// DefaultIgnoreGlobs mirrors the directories the teacher's glob tool skips
// by default.
var DefaultIgnoreGlobs = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/vendor/**",
}

func NewLocal(root string) *Local {
	return &Local{Root: root, IgnoreGlobs: DefaultIgnoreGlobs}
}

func (l *Local) FileExists(abs string) bool {
	_, err := os.Stat(abs)
	return err == nil
}

func (l *Local) ReadFile(abs string) (string, bool) {
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (l *Local) WriteFile(abs, content string) error {
	if err := l.EnsureDir(filepath.Dir(abs)); err != nil {
		return err
	}
	return os.WriteFile(abs, []byte(content), 0o644)
}

func (l *Local) EnsureDir(abs string) error {
	return os.MkdirAll(abs, 0o755)
}

// ListRepoFiles walks Root, returning slash-separated paths relative to
// Root, excluding anything matched by IgnoreGlobs.
func (l *Local) ListRepoFiles() ([]string, error) {
	var out []string
	err := filepath.WalkDir(l.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.Root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		for _, pattern := range l.IgnoreGlobs {
			if match, _ := doublestar.Match(pattern, rel); match {
				return nil
			}
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Local) VCSRoot() (string, bool) {
	info := vcs.DetectRepo(l.Root)
	if !info.IsRepo {
		return "", false
	}
	return info.Root, true
}
