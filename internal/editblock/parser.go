package editblock

import (
	"log/slog"
	"regexp"
	"strings"
)

var (
	searchMarkerRe  = regexp.MustCompile(`^<{5,9} SEARCH\s*$`)
	dividerMarkerRe = regexp.MustCompile(`^={5,9}\s*$`)
	replaceMarkerRe = regexp.MustCompile(`^>{5,9} REPLACE\s*$`)
)

type parserState int

const (
	seeking parserState = iota // looking for the next SEARCH marker
	inOriginal
	inUpdated
)

// Parse scans a model response for SEARCH/REPLACE edit blocks. It never
// returns an error; malformed fragments are dropped and logged.
func Parse(response string, fence Fence, format Format) []EditBlock {
	normalized := normalizeResponse(response)
	lines := strings.Split(normalized, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	var blocks []EditBlock
	var window []string
	var original, updated []string
	var currentFile string
	var stickyFile string
	var fromSticky bool

	state := seeking

	resetBlockState := func() {
		window = nil
		original = nil
		updated = nil
		currentFile = ""
		fromSticky = false
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		switch state {
		case seeking:
			if searchMarkerRe.MatchString(trimmed) {
				path, sticky := resolveFilename(window, fence, format, stickyFile)
				if path == "" {
					slog.Warn("editblock: dropping block with unresolved filename", "window_size", len(window))
					resetBlockState()
					state = seeking
					continue
				}
				currentFile = path
				fromSticky = sticky
				original = nil
				state = inOriginal
				continue
			}
			window = append(window, line)

		case inOriginal:
			if dividerMarkerRe.MatchString(trimmed) {
				updated = nil
				state = inUpdated
				continue
			}
			original = append(original, line)

		case inUpdated:
			if replaceMarkerRe.MatchString(trimmed) {
				block := EditBlock{
					FilePath:     currentFile,
					OriginalText: joinWithTrailingNewline(original),
					UpdatedText:  joinWithTrailingNewline(updated),
					FromSticky:   fromSticky,
				}
				blocks = append(blocks, block)
				stickyFile = currentFile
				resetBlockState()
				state = seeking
				continue
			}
			updated = append(updated, line)
		}
	}

	// EOF mid-block: drop the partial block with a warning (P1/P3 preserved
	// for everything already emitted).
	if state == inOriginal || state == inUpdated {
		slog.Warn("editblock: dropping partial block at EOF", "file", currentFile, "state", state)
	}

	return blocks
}

// unanchoredMarkerRe finds a marker wherever it appears in a line, used to
// detect one glued to preceding text on the same line.
var unanchoredMarkerRe = regexp.MustCompile(`<{5,9} SEARCH\s*$|={5,9}\s*$|>{5,9} REPLACE\s*$`)

// normalizeResponse unifies line endings, splits markers glued to preceding
// text onto their own line, and guarantees a trailing newline.
func normalizeResponse(response string) string {
	s := strings.ReplaceAll(response, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	rawLines := strings.Split(s, "\n")
	var fixed []string
	for _, line := range rawLines {
		if strings.TrimSpace(line) == "" {
			fixed = append(fixed, line)
			continue
		}
		if loc := unanchoredMarkerRe.FindStringIndex(line); loc != nil && loc[0] > 0 {
			prefix := line[:loc[0]]
			marker := line[loc[0]:]
			fixed = append(fixed, prefix, marker)
			continue
		}
		fixed = append(fixed, line)
	}
	s = strings.Join(fixed, "\n")

	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	return s
}

func joinWithTrailingNewline(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// resolveFilename applies the format-specific filename resolution policy
// over the accumulated window of lines preceding a SEARCH marker. It returns
// the resolved path and whether it came from the sticky carry-forward.
func resolveFilename(window []string, fence Fence, format Format, sticky string) (string, bool) {
	var nonEmpty []string
	for _, l := range window {
		if strings.TrimSpace(l) != "" {
			nonEmpty = append(nonEmpty, l)
		}
	}

	switch format {
	case DiffFenced:
		if path, ok := resolveFencedFilename(window, fence); ok {
			return path, false
		}
	default: // Diff, Whole, Architect all defer to Diff parsing.
		// Last three non-empty lines, nearest first.
		start := len(nonEmpty) - 3
		if start < 0 {
			start = 0
		}
		candidates := nonEmpty[start:]
		for i := len(candidates) - 1; i >= 0; i-- {
			if path, ok := ExtractFilename(candidates[i], fence); ok {
				return path, false
			}
		}
	}

	if sticky != "" {
		return sticky, true
	}
	return "", false
}

// resolveFencedFilename finds the most recent fence-open line in the window
// and returns the first non-empty line after it.
func resolveFencedFilename(window []string, fence Fence) (string, bool) {
	fenceIdx := -1
	for i, l := range window {
		if strings.HasPrefix(strings.TrimSpace(l), fence.Open) {
			fenceIdx = i
		}
	}
	if fenceIdx < 0 {
		return "", false
	}
	for i := fenceIdx + 1; i < len(window); i++ {
		if strings.TrimSpace(window[i]) == "" {
			continue
		}
		return ExtractFilename(window[i], fence)
	}
	return "", false
}
