package repoindex

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, rel string) {
	t.Helper()
	abs := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestList_MatchesGlobAndSkipsExcludedDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go")
	writeFile(t, root, "internal/pkg/a.go")
	writeFile(t, root, "README.md")
	writeFile(t, root, ".git/HEAD")
	writeFile(t, root, "vendor/dep/dep.go")

	got, err := List(root, "**/*.go")
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{"main.go": true, "internal/pkg/a.go": true}
	if len(got) != len(want) {
		t.Fatalf("got %v, want keys of %v", got, want)
	}
	for _, p := range got {
		if !want[p] {
			t.Errorf("unexpected path %q in result (excluded dirs leaked through)", p)
		}
	}
}

func TestList_EmptyPatternMatchesEverything(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt")
	writeFile(t, root, "b.txt")

	got, err := List(root, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 files, got %v", got)
	}
}

func TestFilter_NarrowsByPattern(t *testing.T) {
	files := []string{"main.go", "README.md", "internal/pkg/a.go"}
	got := Filter(files, "**/*.go")
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %v", got)
	}
}

func TestFilter_EmptyPatternReturnsInput(t *testing.T) {
	files := []string{"a.txt", "b.txt"}
	got := Filter(files, "")
	if len(got) != len(files) {
		t.Fatalf("expected passthrough, got %v", got)
	}
}
