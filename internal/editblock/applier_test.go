package editblock

import (
	"fmt"
	"path/filepath"
	"testing"
)

type fakeFS struct {
	files map[string]string // absolute path -> content
}

func newFakeFS(files map[string]string) *fakeFS {
	return &fakeFS{files: files}
}

func (f *fakeFS) FileExists(abs string) bool {
	_, ok := f.files[abs]
	return ok
}

func (f *fakeFS) ReadFile(abs string) (string, bool) {
	c, ok := f.files[abs]
	return c, ok
}

func (f *fakeFS) WriteFile(abs, content string) error {
	f.files[abs] = content
	return nil
}

func (f *fakeFS) EnsureDir(abs string) error { return nil }

type failingWriteFS struct {
	*fakeFS
}

func (f *failingWriteFS) WriteFile(abs, content string) error {
	return fmt.Errorf("disk full")
}

type fakeVCS struct {
	committed [][]string
	message   string
	failErr   error
}

func (v *fakeVCS) CommitFiles(paths []string, message string) error {
	if v.failErr != nil {
		return v.failErr
	}
	v.committed = append(v.committed, paths)
	v.message = message
	return nil
}

const root = "/repo"

// Scenario 1: exact replace on an existing file.
func TestApply_ExactReplace(t *testing.T) {
	fs := newFakeFS(map[string]string{filepath.Join(root, "a.txt"): "Hello world.\n"})
	block := EditBlock{FilePath: "a.txt", OriginalText: "Hello world.\n", UpdatedText: "Hello universe.\n"}

	result := Apply([]EditBlock{block}, root, nil, fs, nil, ApplierOptions{LenientWhitespace: true})

	if _, ok := result.AppliedFilePaths["a.txt"]; !ok {
		t.Fatalf("expected a.txt applied, got %+v", result.AppliedFilePaths)
	}
	if len(result.FailedEdits) != 0 {
		t.Fatalf("expected no failures, got %+v", result.FailedEdits)
	}
	if fs.files[filepath.Join(root, "a.txt")] != "Hello universe.\n" {
		t.Fatalf("got content %q", fs.files[filepath.Join(root, "a.txt")])
	}
}

// Scenario 2: new file creation.
func TestApply_CreateNewFile(t *testing.T) {
	fs := newFakeFS(map[string]string{})
	block := EditBlock{FilePath: "new.txt", OriginalText: "", UpdatedText: "This is new.\n"}

	result := Apply([]EditBlock{block}, root, nil, fs, nil, ApplierOptions{LenientWhitespace: true})

	if _, ok := result.AppliedFilePaths["new.txt"]; !ok {
		t.Fatalf("expected new.txt applied")
	}
	if fs.files[filepath.Join(root, "new.txt")] != "This is new.\n" {
		t.Fatalf("got %q", fs.files[filepath.Join(root, "new.txt")])
	}
}

// Scenario 3: search miss leaves the file untouched and reports a failure.
func TestApply_SearchMissIsFailed(t *testing.T) {
	fs := newFakeFS(map[string]string{filepath.Join(root, "a.txt"): "Actual content.\n"})
	block := EditBlock{FilePath: "a.txt", OriginalText: "NonExistent\n", UpdatedText: "X\n"}

	result := Apply([]EditBlock{block}, root, nil, fs, nil, ApplierOptions{LenientWhitespace: true})

	if len(result.AppliedFilePaths) != 0 {
		t.Fatalf("expected no applied files, got %+v", result.AppliedFilePaths)
	}
	if len(result.FailedEdits) != 1 {
		t.Fatalf("expected 1 failed edit, got %d", len(result.FailedEdits))
	}
	if fs.files[filepath.Join(root, "a.txt")] != "Actual content.\n" {
		t.Fatalf("file should be untouched, got %q", fs.files[filepath.Join(root, "a.txt")])
	}
}

// Scenario 4: fallback to another in-chat file when the named target misses.
func TestApply_FallbackToOtherInChatFile(t *testing.T) {
	fs := newFakeFS(map[string]string{
		filepath.Join(root, "original.txt"): "unrelated\n",
		filepath.Join(root, "fallback.txt"): "Search this in fallback.\nMore lines.\n",
	})
	block := EditBlock{
		FilePath:     "original.txt",
		OriginalText: "Search this in fallback.\n",
		UpdatedText:  "Replaced in fallback.\n",
	}

	result := Apply([]EditBlock{block}, root, []string{"original.txt", "fallback.txt"}, fs, nil, ApplierOptions{LenientWhitespace: true})

	if _, ok := result.AppliedFilePaths["fallback.txt"]; !ok {
		t.Fatalf("expected fallback.txt applied, got %+v", result.AppliedFilePaths)
	}
	if _, ok := result.AppliedFilePaths["original.txt"]; ok {
		t.Fatalf("original.txt should not be recorded as applied")
	}
	want := "Replaced in fallback.\nMore lines.\n"
	if fs.files[filepath.Join(root, "fallback.txt")] != want {
		t.Fatalf("got %q want %q", fs.files[filepath.Join(root, "fallback.txt")], want)
	}
	if fs.files[filepath.Join(root, "original.txt")] != "unrelated\n" {
		t.Fatalf("original.txt should be unchanged")
	}
}

func TestApply_WriteFailureReportsOriginalFilename(t *testing.T) {
	fs := &failingWriteFS{fakeFS: newFakeFS(map[string]string{filepath.Join(root, "a.txt"): "Hello world.\n"})}
	block := EditBlock{FilePath: "a.txt", OriginalText: "Hello world.\n", UpdatedText: "Hello universe.\n"}

	result := Apply([]EditBlock{block}, root, nil, fs, nil, ApplierOptions{LenientWhitespace: true})

	if len(result.AppliedFilePaths) != 0 {
		t.Fatalf("expected no applied files on write failure")
	}
	if len(result.FailedEdits) != 1 || result.FailedEdits[0].FilePath != "a.txt" {
		t.Fatalf("expected failure reported against original filename, got %+v", result.FailedEdits)
	}
}

func TestApply_DryRunDoesNotWrite(t *testing.T) {
	fs := newFakeFS(map[string]string{filepath.Join(root, "a.txt"): "Hello world.\n"})
	block := EditBlock{FilePath: "a.txt", OriginalText: "Hello world.\n", UpdatedText: "Hello universe.\n"}

	result := Apply([]EditBlock{block}, root, nil, fs, nil, ApplierOptions{LenientWhitespace: true, DryRun: true})

	if _, ok := result.AppliedFilePaths["a.txt"]; !ok {
		t.Fatalf("dry run should still report the resolved path")
	}
	if fs.files[filepath.Join(root, "a.txt")] != "Hello world.\n" {
		t.Fatalf("dry run should not write, got %q", fs.files[filepath.Join(root, "a.txt")])
	}
}

func TestApply_AutoCommitOnSuccess(t *testing.T) {
	fs := newFakeFS(map[string]string{filepath.Join(root, "a.txt"): "Hello world.\n"})
	vcsClient := &fakeVCS{}
	block := EditBlock{FilePath: "a.txt", OriginalText: "Hello world.\n", UpdatedText: "Hello universe.\n"}

	Apply([]EditBlock{block}, root, nil, fs, vcsClient, ApplierOptions{LenientWhitespace: true, AutoCommit: true})

	if len(vcsClient.committed) != 1 || len(vcsClient.committed[0]) != 1 || vcsClient.committed[0][0] != "a.txt" {
		t.Fatalf("expected a.txt committed, got %+v", vcsClient.committed)
	}
}

func TestApply_CommitFailureDoesNotConvertToBlockFailure(t *testing.T) {
	fs := newFakeFS(map[string]string{filepath.Join(root, "a.txt"): "Hello world.\n"})
	vcsClient := &fakeVCS{failErr: fmt.Errorf("remote rejected")}
	block := EditBlock{FilePath: "a.txt", OriginalText: "Hello world.\n", UpdatedText: "Hello universe.\n"}

	result := Apply([]EditBlock{block}, root, nil, fs, vcsClient, ApplierOptions{LenientWhitespace: true, AutoCommit: true})

	if _, ok := result.AppliedFilePaths["a.txt"]; !ok {
		t.Fatalf("expected the edit to remain applied despite commit failure")
	}
	if len(result.FailedEdits) != 0 {
		t.Fatalf("commit failure must not become a block failure, got %+v", result.FailedEdits)
	}
}

func TestApply_PartialFailureOtherBlocksProceed(t *testing.T) {
	fs := newFakeFS(map[string]string{
		filepath.Join(root, "a.txt"): "Hello world.\n",
		filepath.Join(root, "b.txt"): "Goodbye world.\n",
	})
	blocks := []EditBlock{
		{FilePath: "a.txt", OriginalText: "NotThere\n", UpdatedText: "X\n"},
		{FilePath: "b.txt", OriginalText: "Goodbye world.\n", UpdatedText: "Goodbye universe.\n"},
	}

	result := Apply(blocks, root, nil, fs, nil, ApplierOptions{LenientWhitespace: true})

	if len(result.FailedEdits) != 1 || result.FailedEdits[0].FilePath != "a.txt" {
		t.Fatalf("expected only a.txt to fail, got %+v", result.FailedEdits)
	}
	if _, ok := result.AppliedFilePaths["b.txt"]; !ok {
		t.Fatalf("expected b.txt applied despite a.txt failing")
	}
}
