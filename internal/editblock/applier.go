package editblock

import (
	"fmt"
	"log/slog"
	"path/filepath"
)

// MaxFallbackFiles caps how many in-chat files the Applier will retry a
// failed match against before giving up on relocation.
const MaxFallbackFiles = 16

// FileSystemService is the slice of the filesystem collaborator the
// Applier needs: path-keyed reads and writes against absolute paths.
type FileSystemService interface {
	FileExists(abs string) bool
	ReadFile(abs string) (string, bool)
	WriteFile(abs, content string) error
	EnsureDir(abs string) error
}

// VCS is the slice of the VCS collaborator the Applier needs to auto-commit
// applied files.
type VCS interface {
	CommitFiles(paths []string, message string) error
}

// ApplierOptions mirrors spec.md's Edit Applier input options.
type ApplierOptions struct {
	AutoCommit        bool
	DryRun            bool
	LenientWhitespace bool
	Fence             Fence
	CommitMessage     string
}

// ApplyResult is the Edit Applier's output.
type ApplyResult struct {
	AppliedFilePaths map[string]struct{}
	FailedEdits      []EditBlock
}

// Apply runs the per-block procedure from spec.md §4.5 over blocks in
// source order, using root to resolve a block's relative path to an
// absolute one for fs calls. abs_fnames_in_chat is capped at
// MaxFallbackFiles; any excess is logged and skipped rather than silently
// truncated.
func Apply(blocks []EditBlock, root string, inChatFiles []string, fs FileSystemService, vcsClient VCS, opts ApplierOptions) ApplyResult {
	if len(inChatFiles) > MaxFallbackFiles {
		slog.Warn("editblock: in-chat fallback set exceeds cap, truncating",
			"cap", MaxFallbackFiles, "skipped", len(inChatFiles)-MaxFallbackFiles)
		inChatFiles = inChatFiles[:MaxFallbackFiles]
	}

	result := ApplyResult{AppliedFilePaths: make(map[string]struct{})}

	for _, block := range blocks {
		resolvedPath, newContent, ok := applyOne(block, root, inChatFiles, fs, opts)
		if !ok {
			result.FailedEdits = append(result.FailedEdits, block)
			continue
		}

		if opts.DryRun {
			result.AppliedFilePaths[resolvedPath] = struct{}{}
			continue
		}

		abs := filepath.Join(root, resolvedPath)
		if err := fs.WriteFile(abs, newContent); err != nil {
			slog.Warn("editblock: write failed", "file", block.FilePath, "error", err)
			// A write I/O error is reported against the original filename,
			// not the fallback target, per spec.
			result.FailedEdits = append(result.FailedEdits, block)
			continue
		}
		result.AppliedFilePaths[resolvedPath] = struct{}{}
	}

	if opts.AutoCommit && !opts.DryRun && vcsClient != nil && len(result.AppliedFilePaths) > 0 {
		paths := make([]string, 0, len(result.AppliedFilePaths))
		for p := range result.AppliedFilePaths {
			paths = append(paths, p)
		}
		message := opts.CommitMessage
		if message == "" {
			message = "Apply edits"
		}
		if err := vcsClient.CommitFiles(paths, message); err != nil {
			slog.Warn("editblock: auto-commit failed", "error", err, "files", paths)
		}
	}

	return result
}

// applyOne matches block against its target file, falling back across
// inChatFiles on failure, and returns the resolved relative path and new
// content on success.
func applyOne(block EditBlock, root string, inChatFiles []string, fs FileSystemService, opts ApplierOptions) (string, string, bool) {
	if path, content, ok := tryMatch(block, block.FilePath, root, fs, opts); ok {
		return path, content, true
	}

	for _, candidate := range inChatFiles {
		if candidate == block.FilePath {
			continue
		}
		if path, content, ok := tryMatch(block, candidate, root, fs, opts); ok {
			return path, content, true
		}
	}

	return "", "", false
}

func tryMatch(block EditBlock, targetRel, root string, fs FileSystemService, opts ApplierOptions) (string, string, bool) {
	abs := filepath.Join(root, targetRel)
	content, exists := fs.ReadFile(abs)

	result, ok := Match(content, exists, block, opts.LenientWhitespace)
	if !ok {
		return "", "", false
	}
	return targetRel, result.NewWhole, true
}

// CommitMessageFor builds the fixed auto-commit message the teacher's git
// tooling expects: a short summary naming the request, falling back to a
// generic message when request is empty.
func CommitMessageFor(request string) string {
	if request == "" {
		return "Apply edits"
	}
	return fmt.Sprintf("Apply edits: %s", request)
}
