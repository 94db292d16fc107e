// Package report renders Edit Applier results and reflection reports for
// the terminal, following the color roles the teacher's internal/ui
// styles.go assigns (success/error/muted semantic colors via lipgloss)
// trimmed to the handful this engine's CLI output actually needs.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/forgecode/editengine/internal/editblock"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#b8bb26")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#fb4934")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#928374"))
	fileStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#83a598"))
)

// RenderApplyResult summarises an editblock.ApplyResult for terminal
// output: a checkmark line per applied file, a cross line per failed block.
func RenderApplyResult(result editblock.ApplyResult) string {
	var sb strings.Builder

	applied := make([]string, 0, len(result.AppliedFilePaths))
	for p := range result.AppliedFilePaths {
		applied = append(applied, p)
	}
	sort.Strings(applied)

	for _, p := range applied {
		sb.WriteString(successStyle.Render("✓") + " " + fileStyle.Render(p) + "\n")
	}
	for _, b := range result.FailedEdits {
		sb.WriteString(errorStyle.Render("✗") + " " + fileStyle.Render(b.FilePath) +
			mutedStyle.Render(" (no match found)") + "\n")
	}

	if len(applied) == 0 && len(result.FailedEdits) == 0 {
		return mutedStyle.Render("No edit blocks found in the response.") + "\n"
	}
	return sb.String()
}

// RenderReflectionReport wraps a plain-text reflection report with a
// colorized heading, leaving the report body (which is also sent back to
// the model verbatim) untouched.
func RenderReflectionReport(report string) string {
	if strings.TrimSpace(report) == "" {
		return ""
	}
	return errorStyle.Render(fmt.Sprintf("--- reflection (%d bytes) ---", len(report))) + "\n" + report
}
