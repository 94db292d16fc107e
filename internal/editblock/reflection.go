package editblock

import (
	"fmt"
	"strings"
)

// ClosestLine is a file line that closely resembles the start of a failed
// block's search text, carried forward from the teacher's FindClosestLines
// "did you mean" diagnostics.
type ClosestLine struct {
	LineNum    int
	Content    string
	Similarity float64
}

// BuildReport produces the plain-text Reflection Report for a completed
// attempt: every failed block re-rendered in wire format (at the canonical
// 7-character marker width, not the width the model used), a redundancy note when updated_text is already present in the current
// file, a closest-lines hint, and a one-line summary of what was applied
// so the model does not re-emit it.
func BuildReport(failed []EditBlock, appliedPaths []string, repoContent map[string]string, format Format, fence Fence) string {
	var sb strings.Builder

	if len(appliedPaths) > 0 {
		sb.WriteString(fmt.Sprintf("Applied edits to %d file(s) successfully: %s\n\n", len(appliedPaths), strings.Join(appliedPaths, ", ")))
	}

	if len(failed) == 0 {
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("%d block(s) failed to apply. Resend only the failing blocks below, corrected.\n\n", len(failed)))

	for _, block := range failed {
		sb.WriteString(fmt.Sprintf("## %s\n\n", block.FilePath))
		sb.WriteString(fmt.Sprintf("Reason: %s\n\n", ErrMatchFailed.Code()))
		sb.WriteString(renderVerbatimBlock(block, format, fence))
		sb.WriteString("\n")

		current, ok := repoContent[block.FilePath]
		if !ok {
			sb.WriteString("The target file was not found.\n\n")
			continue
		}

		if block.UpdatedText != "" && strings.Contains(current, block.UpdatedText) {
			sb.WriteString("Note: the replacement text already appears in the file — this edit may be redundant.\n\n")
		}

		if closest := FindClosestLines(current, block.OriginalText, 5); len(closest) > 0 {
			sb.WriteString("Closest lines in the current file (did you mean one of these?):\n")
			for _, c := range closest {
				sb.WriteString(fmt.Sprintf("%4d: %s\n", c.LineNum, c.Content))
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString("Resend the corrected blocks for the files listed above. Do not resend blocks that already succeeded.\n")
	return sb.String()
}

// renderVerbatimBlock reproduces the exact wire format of a SEARCH/REPLACE
// block using 7-repeat markers, the widest common default; the original
// marker width from the model's response is not retained on EditBlock, so
// reflection always re-renders at the canonical width rather than echoing
// an arbitrary one back.
func renderVerbatimBlock(block EditBlock, format Format, fence Fence) string {
	var sb strings.Builder
	if format == DiffFenced {
		sb.WriteString(fence.Open + "\n")
		sb.WriteString(block.FilePath + "\n")
	} else {
		sb.WriteString(block.FilePath + "\n")
		sb.WriteString(fence.Open + "\n")
	}
	sb.WriteString("<<<<<<< SEARCH\n")
	sb.WriteString(block.OriginalText)
	sb.WriteString("=======\n")
	sb.WriteString(block.UpdatedText)
	sb.WriteString(">>>>>>> REPLACE\n")
	sb.WriteString(fence.Close + "\n")
	return sb.String()
}

// FindClosestLines ranks content's non-blank lines by similarity to
// search's first non-blank line, returning up to maxResults candidates
// above a similarity floor. Grounded on the teacher's retry.go of the same
// name, generalized to run over the Matcher's failure path.
func FindClosestLines(content, search string, maxResults int) []ClosestLine {
	firstSearchLine := firstNonBlankLine(search)
	if firstSearchLine == "" {
		return nil
	}

	lines := strings.Split(content, "\n")
	var candidates []ClosestLine
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		sim := lineSimilarity(trimmed, firstSearchLine)
		if sim > 0.3 {
			candidates = append(candidates, ClosestLine{LineNum: i + 1, Content: line, Similarity: sim})
		}
	}

	for i := 0; i < len(candidates)-1; i++ {
		for j := i + 1; j < len(candidates); j++ {
			if candidates[j].Similarity > candidates[i].Similarity {
				candidates[i], candidates[j] = candidates[j], candidates[i]
			}
		}
	}

	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}
	return candidates
}

func firstNonBlankLine(text string) string {
	for _, l := range strings.Split(text, "\n") {
		if t := strings.TrimSpace(l); t != "" {
			return t
		}
	}
	return ""
}

// lineSimilarity is a normalised Levenshtein similarity in [0,1].
func lineSimilarity(a, b string) float64 {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == b {
		return 1.0
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshteinDistance(a, b))/float64(maxLen)
}

func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			min := del
			if ins < min {
				min = ins
			}
			if sub < min {
				min = sub
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
