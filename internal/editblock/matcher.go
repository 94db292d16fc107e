package editblock

import "strings"

// MatchResult is the outcome of running the Matcher cascade against one
// candidate whole-file content.
type MatchResult struct {
	NewWhole string
	Level    MatchLevel
}

// Match runs the patch-matcher cascade against whole for a single edit
// block. It is pure and performs no I/O: the caller is responsible for
// reading and writing file content. exists distinguishes an empty whole
// that represents a zero-byte file from one that represents a file that is
// not present at all, since both have the same empty string content but the
// new-file-creation tie-break only applies to the latter.
func Match(whole string, exists bool, block EditBlock, lenientWhitespace bool) (MatchResult, bool) {
	original := block.OriginalText
	updated := block.UpdatedText

	if original == "" {
		if !exists {
			return MatchResult{NewWhole: ensureTrailingNewline(updated), Level: MatchNewFile}, true
		}
		return MatchResult{NewWhole: appendContent(whole, updated), Level: MatchAppend}, true
	}

	whole = ensureTrailingNewline(whole)
	wholeLines := splitKeepEmpty(whole)
	originalLines := splitKeepEmpty(original)
	updatedLines := splitKeepEmpty(updated)

	if lines, ok := exactMatch(wholeLines, originalLines); ok {
		return MatchResult{NewWhole: joinLines(splice(wholeLines, lines, updatedLines)), Level: MatchExact}, true
	}

	if len(originalLines) > 0 && strings.TrimSpace(originalLines[0]) == "" {
		trimmedOriginal := originalLines[1:]
		if lines, ok := exactMatch(wholeLines, trimmedOriginal); ok {
			return MatchResult{NewWhole: joinLines(splice(wholeLines, lines, updatedLines)), Level: MatchLeadingBlankTolerant}, true
		}
	}

	if lenientWhitespace {
		if result, ok := indentNormalisedMatch(wholeLines, originalLines, updatedLines); ok {
			return result, true
		}
	}

	if containsElision(originalLines) {
		if result, ok := elisionMatch(whole, original, updated); ok {
			return result, true
		}
	}

	return MatchResult{}, false
}

type lineRange struct {
	start, end int // end exclusive
}

// exactMatch finds original as a contiguous line-sequence inside whole.
// Multiple matches still accept the first: SEARCH blocks replace the first
// occurrence by contract.
func exactMatch(whole, original []string) (lineRange, bool) {
	if len(original) == 0 || len(original) > len(whole) {
		return lineRange{}, false
	}
	for i := 0; i+len(original) <= len(whole); i++ {
		if linesEqual(whole[i:i+len(original)], original) {
			return lineRange{start: i, end: i + len(original)}, true
		}
	}
	return lineRange{}, false
}

func linesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// indentNormalisedMatch outdents original and updated by their shared
// minimum indent, then looks for a window in whole whose lines match after
// trimming leading whitespace and whose non-blank lines all carry the same
// extra indent prefix over the outdented original. updated is re-indented
// by that prefix.
func indentNormalisedMatch(whole, original, updated []string) (MatchResult, bool) {
	indent := commonLeadingWhitespace(append(append([]string{}, original...), updated...))
	outdentedOriginal := outdentAll(original, indent)

	for i := 0; i+len(original) <= len(whole); i++ {
		window := whole[i : i+len(original)]
		if !windowMatchesTrimmed(window, outdentedOriginal) {
			continue
		}
		prefix, ok := commonWindowIndent(window, outdentedOriginal)
		if !ok {
			continue
		}
		reindented := reindentAll(outdentAll(updated, indent), prefix)
		newWhole := splice(whole, lineRange{start: i, end: i + len(original)}, reindented)
		return MatchResult{NewWhole: joinLines(newWhole), Level: MatchIndentNormalised}, true
	}
	return MatchResult{}, false
}

func windowMatchesTrimmed(window, outdentedOriginal []string) bool {
	for i, line := range outdentedOriginal {
		if strings.TrimLeft(window[i], " \t") != strings.TrimLeft(line, " \t") {
			return false
		}
	}
	return true
}

// commonWindowIndent returns the single leading-whitespace prefix that every
// non-blank line in window carries on top of its outdented original line,
// failing if lines disagree.
func commonWindowIndent(window, outdentedOriginal []string) (string, bool) {
	var prefix string
	set := false
	for i, line := range window {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !strings.HasSuffix(line, outdentedOriginal[i]) {
			return "", false
		}
		p := line[:len(line)-len(outdentedOriginal[i])]
		if !set {
			prefix = p
			set = true
			continue
		}
		if p != prefix {
			return "", false
		}
	}
	if !set {
		return "", false
	}
	return prefix, true
}

func commonLeadingWhitespace(lines []string) string {
	var shortest string
	found := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		p := leadingWhitespace(line)
		if !found {
			shortest = p
			found = true
			continue
		}
		shortest = commonPrefix(shortest, p)
	}
	return shortest
}

func leadingWhitespace(line string) string {
	i := 0
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	return line[:i]
}

func commonPrefix(a, b string) string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}

func outdentAll(lines []string, indent string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = strings.TrimPrefix(line, indent)
	}
	return out
}

func reindentAll(lines []string, prefix string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			out[i] = line
			continue
		}
		out[i] = prefix + line
	}
	return out
}

const elisionToken = "..."

func containsElision(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) == elisionToken {
			return true
		}
	}
	return false
}

// elisionMatch splits original and updated on "..." separator lines, which
// must pair up positionally (same count, same surrounding indentation), and
// stitches each non-elided original segment's unique occurrence in whole
// with its corresponding updated segment.
func elisionMatch(whole, original, updated string) (MatchResult, bool) {
	originalSegments, ok := splitOnElision(original)
	if !ok {
		return MatchResult{}, false
	}
	updatedSegments, ok := splitOnElision(updated)
	if !ok || len(updatedSegments) != len(originalSegments) {
		return MatchResult{}, false
	}
	var separators [2][]string
	for k, text := range []string{original, updated} {
		for _, l := range splitKeepEmpty(text) {
			if strings.TrimSpace(l) == elisionToken {
				separators[k] = append(separators[k], l)
			}
		}
	}
	if !linesEqual(separators[0], separators[1]) {
		return MatchResult{}, false
	}

	var sb strings.Builder
	remaining := whole
	consumed := 0

	for i, seg := range originalSegments {
		if seg == "" {
			sb.WriteString(updatedSegments[i])
			continue
		}
		idx := strings.Index(remaining, seg)
		if idx < 0 {
			return MatchResult{}, false
		}
		if strings.Index(remaining[idx+1:], seg) >= 0 {
			return MatchResult{}, false // ambiguous: occurs more than once
		}
		sb.WriteString(whole[consumed : consumed+idx])
		sb.WriteString(updatedSegments[i])
		consumed += idx + len(seg)
		remaining = whole[consumed:]
	}
	sb.WriteString(remaining)

	return MatchResult{NewWhole: ensureTrailingNewline(sb.String()), Level: MatchElision}, true
}

// splitOnElision splits text's lines on standalone "..." lines, returning
// the segments between them joined back into text. It fails if no elision
// lines are present, since pairing requires at least one separator.
func splitOnElision(text string) ([]string, bool) {
	lines := splitKeepEmpty(text)
	var segments []string
	var current []string
	found := false
	for _, l := range lines {
		if strings.TrimSpace(l) == elisionToken {
			segments = append(segments, joinLines(current))
			current = nil
			found = true
			continue
		}
		current = append(current, l)
	}
	segments = append(segments, joinLines(current))
	if !found {
		return nil, false
	}
	return segments, true
}

func splice(whole []string, r lineRange, replacement []string) []string {
	out := make([]string, 0, len(whole)-(r.end-r.start)+len(replacement))
	out = append(out, whole[:r.start]...)
	out = append(out, replacement...)
	out = append(out, whole[r.end:]...)
	return out
}

// splitKeepEmpty splits newline-terminated text into its lines, dropping
// only the final empty element produced by the trailing newline.
func splitKeepEmpty(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func ensureTrailingNewline(s string) string {
	if s == "" {
		return s
	}
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

func appendContent(whole, addition string) string {
	if whole == "" {
		return ensureTrailingNewline(addition)
	}
	if !strings.HasSuffix(whole, "\n") {
		whole += "\n"
	}
	return whole + ensureTrailingNewline(addition)
}
