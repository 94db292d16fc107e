package editblock

import (
	"fmt"
	"path"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Rule checks a single block against the known repo file set and returns an
// issue when the block should be rejected.
type Rule interface {
	Check(block EditBlock, repoFiles []string) (ValidationIssue, bool)
}

// RuleFunc adapts a plain function to Rule.
type RuleFunc func(block EditBlock, repoFiles []string) (ValidationIssue, bool)

func (f RuleFunc) Check(block EditBlock, repoFiles []string) (ValidationIssue, bool) {
	return f(block, repoFiles)
}

// ValidatorOptions controls the optional rules.
type ValidatorOptions struct {
	// SimilarFileThreshold is the minimum basename similarity in [0,1] for
	// the fuzzy check in SimilarFileName, which runs only when
	// SimilarFileEnabled is set and the threshold is non-zero; otherwise the
	// rule keeps to its exact-basename-collision form.
	SimilarFileThreshold float64
	SimilarFileEnabled   bool

	// DuplicateCodeThreshold is the maximum allowed duplicate-line ratio;
	// the DuplicateCode rule runs only when DuplicateCodeEnabled is set.
	DuplicateCodeThreshold float64
	DuplicateCodeEnabled   bool
}

// DefaultRules returns the pipeline in spec-mandated order.
func DefaultRules(opts ValidatorOptions) []Rule {
	rules := []Rule{
		RuleFunc(ModuleAliasRule),
		RuleFunc(PathExistsRule),
		RuleFunc(similarFileNameRule(opts)),
	}
	if opts.DuplicateCodeEnabled {
		rules = append(rules, duplicateCodeRule(opts))
	}
	return rules
}

// Validate runs every rule against block, collecting every issue rather
// than stopping at the first — a block is kept iff no rule returns an
// issue.
func Validate(block EditBlock, repoFiles []string, rules []Rule) []ValidationIssue {
	var issues []ValidationIssue
	for _, r := range rules {
		if issue, ok := r.Check(block, repoFiles); ok {
			issues = append(issues, issue)
		}
	}
	return issues
}

// ModuleAliasRule rejects paths starting with a module-alias sigil, except
// lines that have markdown-heading shape (a stray heading line mistaken for
// a filename should fail PathExists instead, with a clearer reason).
func ModuleAliasRule(block EditBlock, _ []string) (ValidationIssue, bool) {
	p := block.FilePath
	if p == "" {
		return ValidationIssue{}, false
	}
	if (p[0] == '#' || p[0] == '@') && !looksLikeMarkdownHeading(p) {
		return ValidationIssue{File: p, Reason: "path begins with a module-alias sigil (# or @)"}, true
	}
	return ValidationIssue{}, false
}

// PathExistsRule rejects a block targeting a path absent from repoFiles
// unless original_text is empty — only empty-SEARCH blocks may create new
// files.
func PathExistsRule(block EditBlock, repoFiles []string) (ValidationIssue, bool) {
	if strings.TrimSpace(block.OriginalText) == "" {
		return ValidationIssue{}, false
	}
	if containsPath(repoFiles, block.FilePath) {
		return ValidationIssue{}, false
	}
	return ValidationIssue{File: block.FilePath, Reason: "path not found in repository and SEARCH is non-empty"}, true
}

func containsPath(repoFiles []string, p string) bool {
	for _, f := range repoFiles {
		if f == p {
			return true
		}
	}
	return false
}

// similarFileNameRule rejects a missing path that shares both basename and
// immediate parent directory with some existing path — almost always a
// wrong-case or wrong-separator typo of a real file — and, when enabled,
// extends the check with a fuzzy basename match whose normalised similarity
// must reach the configured threshold.
func similarFileNameRule(opts ValidatorOptions) RuleFunc {
	return func(block EditBlock, repoFiles []string) (ValidationIssue, bool) {
		if containsPath(repoFiles, block.FilePath) {
			return ValidationIssue{}, false
		}

		base := path.Base(block.FilePath)
		dir := path.Dir(block.FilePath)
		for _, f := range repoFiles {
			if strings.EqualFold(path.Base(f), base) && strings.EqualFold(path.Dir(f), dir) {
				return ValidationIssue{File: block.FilePath, Reason: fmt.Sprintf("did you mean %q?", f)}, true
			}
		}

		if !opts.SimilarFileEnabled || opts.SimilarFileThreshold <= 0 {
			return ValidationIssue{}, false
		}
		if match, ok := bestFuzzyMatch(base, repoFiles); ok && lineSimilarity(base, path.Base(match)) >= opts.SimilarFileThreshold {
			return ValidationIssue{File: block.FilePath, Reason: fmt.Sprintf("did you mean %q? (fuzzy match)", match)}, true
		}
		return ValidationIssue{}, false
	}
}

type basenameSource []string

func (s basenameSource) String(i int) string { return path.Base(s[i]) }
func (s basenameSource) Len() int            { return len(s) }

// bestFuzzyMatch returns the highest-scoring repo path whose basename fuzzy-
// matches query, using sahilm/fuzzy the same way the teacher's file-completion
// source does.
func bestFuzzyMatch(query string, repoFiles []string) (string, bool) {
	matches := fuzzy.FindFrom(query, basenameSource(repoFiles))
	if len(matches) == 0 {
		return "", false
	}
	best := matches[0]
	for _, m := range matches[1:] {
		if m.Score > best.Score {
			best = m
		}
	}
	return repoFiles[best.Index], true
}

// duplicateCodeRule is advisory: it rejects an edit whose duplicate-line
// ratio exceeds the configured threshold, computed as the fraction of
// non-blank lines in updated_text that also occur (after trimming) in the
// block's own original_text. The rest of the target file is not consulted.
func duplicateCodeRule(opts ValidatorOptions) RuleFunc {
	return func(block EditBlock, _ []string) (ValidationIssue, bool) {
		updatedLines := nonBlankLines(block.UpdatedText)
		if len(updatedLines) == 0 {
			return ValidationIssue{}, false
		}

		existing := make(map[string]int)
		for _, l := range nonBlankLines(block.OriginalText) {
			existing[strings.TrimSpace(l)]++
		}

		dup := 0
		for _, l := range updatedLines {
			if existing[strings.TrimSpace(l)] > 0 {
				dup++
			}
		}
		ratio := float64(dup) / float64(len(updatedLines))
		if ratio > opts.DuplicateCodeThreshold {
			return ValidationIssue{
				File:   block.FilePath,
				Reason: fmt.Sprintf("duplicate-line ratio %.2f exceeds threshold %.2f", ratio, opts.DuplicateCodeThreshold),
			}, true
		}
		return ValidationIssue{}, false
	}
}

func nonBlankLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}
