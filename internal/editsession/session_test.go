package editsession

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forgecode/editengine/internal/editblock"
	"github.com/forgecode/editengine/internal/llmclient"
)

type scriptedLLM struct {
	responses []string
	calls     int
}

func (s *scriptedLLM) Name() string { return "scripted" }

func (s *scriptedLLM) Generate(ctx context.Context, messages []llmclient.Message, opts llmclient.Options) (string, error) {
	if s.calls >= len(s.responses) {
		return "", nil
	}
	r := s.responses[s.calls]
	s.calls++
	return r, nil
}

type memFS struct {
	root  string
	files map[string]string // relative -> content
}

func newMemFS(root string, files map[string]string) *memFS {
	return &memFS{root: root, files: files}
}

func (f *memFS) rel(abs string) string {
	r, _ := filepath.Rel(f.root, abs)
	return filepath.ToSlash(r)
}

func (f *memFS) FileExists(abs string) bool {
	_, ok := f.files[f.rel(abs)]
	return ok
}

func (f *memFS) ReadFile(abs string) (string, bool) {
	c, ok := f.files[f.rel(abs)]
	return c, ok
}

func (f *memFS) WriteFile(abs, content string) error {
	f.files[f.rel(abs)] = content
	return nil
}

func (f *memFS) EnsureDir(abs string) error { return nil }

func (f *memFS) ListRepoFiles() ([]string, error) {
	out := make([]string, 0, len(f.files))
	for p := range f.files {
		out = append(out, p)
	}
	return out, nil
}

func diffBlock(path, original, updated string) string {
	return path + "\n````\n<<<<<<< SEARCH\n" + original + "=======\n" + updated + ">>>>>>> REPLACE\n````\n"
}

func TestSession_SucceedsOnFirstAttempt(t *testing.T) {
	root := "/repo"
	fs := newMemFS(root, map[string]string{"a.txt": "Hello world.\n"})
	llm := &scriptedLLM{responses: []string{diffBlock("a.txt", "Hello world.\n", "Hello universe.\n")}}

	sess := New(llm, fs, nil, Options{
		Root:              root,
		Format:            editblock.Diff,
		Fence:             editblock.DefaultFence,
		MaxAttempts:       3,
		LenientWhitespace: true,
	}, nil)

	result, err := sess.Run(context.Background(), "say hello differently")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.State != Done {
		t.Fatalf("expected Done, got %v", result.State)
	}
	if len(result.AppliedFilePaths) != 1 || result.AppliedFilePaths[0] != "a.txt" {
		t.Fatalf("got applied %+v", result.AppliedFilePaths)
	}
	if fs.files["a.txt"] != "Hello universe.\n" {
		t.Fatalf("got %q", fs.files["a.txt"])
	}
	if llm.calls != 1 {
		t.Fatalf("expected exactly 1 LLM call, got %d", llm.calls)
	}
}

// A search miss on attempt 1 feeds a reflection report back and succeeds on
// attempt 2 once the model corrects it.
func TestSession_RetriesAfterReflection(t *testing.T) {
	root := "/repo"
	fs := newMemFS(root, map[string]string{"a.txt": "Actual content.\n"})
	llm := &scriptedLLM{responses: []string{
		diffBlock("a.txt", "NonExistent\n", "X\n"),
		diffBlock("a.txt", "Actual content.\n", "Updated content.\n"),
	}}

	sess := New(llm, fs, nil, Options{
		Root:              root,
		Format:            editblock.Diff,
		Fence:             editblock.DefaultFence,
		MaxAttempts:       3,
		LenientWhitespace: true,
	}, nil)

	result, err := sess.Run(context.Background(), "fix the content")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.State != Done {
		t.Fatalf("expected Done after retry, got %v", result.State)
	}
	if llm.calls != 2 {
		t.Fatalf("expected 2 LLM calls, got %d", llm.calls)
	}
	if fs.files["a.txt"] != "Updated content.\n" {
		t.Fatalf("got %q", fs.files["a.txt"])
	}

	// §8 "session monotonicity": reflection_messages.len() == attempts_used - 1
	// for a session that eventually succeeds (the final, successful attempt
	// produces no reflection report).
	if len(result.ReflectionMessages) != llm.calls-1 {
		t.Fatalf("expected %d reflection messages, got %d: %+v", llm.calls-1, len(result.ReflectionMessages), result.ReflectionMessages)
	}
	if !strings.Contains(result.ReflectionMessages[0], "SearchReplaceNoExactMatch") {
		t.Fatalf("expected first reflection message to carry the match-failure code, got: %s", result.ReflectionMessages[0])
	}
}

// §8 "Session monotonicity": attempts exhausted with persistent failures
// surfaces Failed and a non-empty report.
func TestSession_AttemptsExhausted(t *testing.T) {
	root := "/repo"
	fs := newMemFS(root, map[string]string{"a.txt": "Actual content.\n"})
	bad := diffBlock("a.txt", "NonExistent\n", "X\n")
	llm := &scriptedLLM{responses: []string{bad, bad}}

	sess := New(llm, fs, nil, Options{
		Root:              root,
		Format:            editblock.Diff,
		Fence:             editblock.DefaultFence,
		MaxAttempts:       2,
		LenientWhitespace: true,
	}, nil)

	result, err := sess.Run(context.Background(), "fix the content")
	if err == nil {
		t.Fatalf("expected an error on attempt exhaustion")
	}
	if result.State != Failed {
		t.Fatalf("expected Failed, got %v", result.State)
	}
	if !strings.Contains(result.Report, "SearchReplaceNoExactMatch") {
		t.Fatalf("expected last reflection report preserved, got: %s", result.Report)
	}
	if len(result.ReflectionMessages) != llm.calls {
		t.Fatalf("expected %d reflection messages (one per failed attempt), got %d", llm.calls, len(result.ReflectionMessages))
	}
}

func TestSession_CancellationBeforeLLMCall(t *testing.T) {
	root := "/repo"
	fs := newMemFS(root, map[string]string{"a.txt": "Hello world.\n"})
	llm := &scriptedLLM{responses: []string{diffBlock("a.txt", "Hello world.\n", "Hello universe.\n")}}

	sess := New(llm, fs, nil, Options{
		Root:              root,
		Format:            editblock.Diff,
		Fence:             editblock.DefaultFence,
		MaxAttempts:       3,
		LenientWhitespace: true,
	}, func() bool { return true })

	_, err := sess.Run(context.Background(), "say hello differently")
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
	if llm.calls != 0 {
		t.Fatalf("expected no LLM calls once cancelled, got %d", llm.calls)
	}
}
