package report

import (
	"strings"
	"testing"

	"github.com/forgecode/editengine/internal/editblock"
)

func TestRenderApplyResult_ListsAppliedAndFailed(t *testing.T) {
	result := editblock.ApplyResult{
		AppliedFilePaths: map[string]struct{}{"a.go": {}},
		FailedEdits:      []editblock.EditBlock{{FilePath: "b.go"}},
	}
	out := RenderApplyResult(result)
	if !strings.Contains(out, "a.go") {
		t.Errorf("expected applied file in output, got %q", out)
	}
	if !strings.Contains(out, "b.go") {
		t.Errorf("expected failed file in output, got %q", out)
	}
}

func TestRenderApplyResult_EmptyResultSaysNoEdits(t *testing.T) {
	out := RenderApplyResult(editblock.ApplyResult{})
	if !strings.Contains(out, "No edit blocks") {
		t.Errorf("expected no-edits message, got %q", out)
	}
}

func TestRenderReflectionReport_EmptyReportYieldsEmptyString(t *testing.T) {
	if out := RenderReflectionReport("   "); out != "" {
		t.Errorf("expected empty output for blank report, got %q", out)
	}
}

func TestRenderReflectionReport_IncludesBodyVerbatim(t *testing.T) {
	report := "## a.txt\n\nReason: SearchReplaceNoExactMatch\n"
	out := RenderReflectionReport(report)
	if !strings.Contains(out, report) {
		t.Errorf("expected report body preserved verbatim, got %q", out)
	}
}
