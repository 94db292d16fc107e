package editblock

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ExtractFilename isolates a real relative path from a single line that may
// carry markdown emphasis, comment prefixes, quoting, or trailing
// punctuation. It returns false when the residue is not path-like.
func ExtractFilename(line string, fence Fence) (string, bool) {
	candidate := strings.TrimSpace(line)
	if candidate == "" {
		return "", false
	}

	candidate = stripMarkdownEmphasis(candidate)
	candidate = stripMatchedQuotes(candidate)
	candidate = stripCommentPrefix(candidate)
	candidate = strings.TrimSuffix(candidate, ":")
	candidate = strings.TrimSpace(candidate)

	if candidate == "" {
		return "", false
	}
	if strings.HasPrefix(candidate, fence.Open) {
		return "", false
	}
	if strings.ContainsAny(candidate, " \t") {
		return "", false
	}

	return candidate, true
}

// stripCommentPrefix removes a leading #, //, or -- comment marker followed
// by whitespace. A sigil with no following whitespace (e.g. "#alias/foo")
// is left untouched so the ModuleAlias validator can still see it.
func stripCommentPrefix(s string) string {
	for _, prefix := range []string{"//", "--", "#"} {
		if !strings.HasPrefix(s, prefix) {
			continue
		}
		rest := strings.TrimPrefix(s, prefix)
		if rest == "" || rest[0] == ' ' || rest[0] == '\t' {
			return strings.TrimSpace(rest)
		}
	}
	return s
}

// stripMarkdownEmphasis removes matched pairs of backticks, asterisks, and
// underscores wrapping the whole token. It parses the line as a standalone
// markdown document with goldmark and, when the line is a single paragraph
// consisting of one inline span (a code span or emphasis run), returns that
// span's literal text — a more faithful "matched pair" check than
// hand-rolled prefix/suffix trimming, since it rejects unbalanced or
// partial markup instead of stripping it anyway.
func stripMarkdownEmphasis(s string) string {
	for {
		inner, ok := unwrapSingleInlineSpan(s)
		if !ok {
			return s
		}
		s = inner
	}
}

func unwrapSingleInlineSpan(s string) (string, bool) {
	if s == "" {
		return s, false
	}
	doc := goldmark.New().Parser().Parse(text.NewReader([]byte(s)))
	para, ok := doc.FirstChild().(*ast.Paragraph)
	if !ok || para.NextSibling() != nil {
		return s, false
	}
	child := para.FirstChild()
	if child == nil || child.NextSibling() != nil {
		return s, false
	}

	source := []byte(s)
	switch n := child.(type) {
	case *ast.CodeSpan:
		return inlineText(n, source), true
	case *ast.Emphasis:
		return inlineText(n, source), true
	default:
		return s, false
	}
}

// inlineText concatenates the literal text of an inline node's Text
// children, the only child kind a bare filename token can contain.
func inlineText(n ast.Node, source []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
		}
	}
	return sb.String()
}

// stripMatchedQuotes removes a single or double quote pair wrapping the
// whole token.
func stripMatchedQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// looksLikeMarkdownHeading reports whether s has the markdown-heading shape
// (one or more '#' followed by whitespace), used by the ModuleAlias
// validator rule to exempt headings from the alias-sigil rejection.
func looksLikeMarkdownHeading(s string) bool {
	i := 0
	for i < len(s) && s[i] == '#' {
		i++
	}
	return i > 0 && i < len(s) && (s[i] == ' ' || s[i] == '\t')
}
