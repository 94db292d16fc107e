package config

import "testing"

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.MaxAttempts != 3 {
		t.Fatalf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
	}
	if !cfg.AutoCommit || !cfg.DirtyCommits || !cfg.LenientWhitespace {
		t.Fatalf("expected auto_commit, dirty_commits, lenient_whitespace to default true: %+v", cfg)
	}
	if cfg.DryRun || cfg.SimilarFileEnabled {
		t.Fatalf("expected dry_run and similar_file_enabled to default false: %+v", cfg)
	}
	if cfg.Fence().Open != "````" || cfg.Fence().Close != "````" {
		t.Fatalf("expected quadruple-backtick default fence, got %+v", cfg.Fence())
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := Defaults()
	out := cfg.ApplyOverrides(map[string]any{
		"provider":     "openai",
		"model":        "gpt-4o",
		"max_attempts": 5,
		"dry_run":      true,
	})

	if out.Provider != ProviderOpenAI {
		t.Fatalf("provider = %q, want %q", out.Provider, ProviderOpenAI)
	}
	if out.Model != "gpt-4o" {
		t.Fatalf("model = %q, want gpt-4o", out.Model)
	}
	if out.MaxAttempts != 5 {
		t.Fatalf("max_attempts = %d, want 5", out.MaxAttempts)
	}
	if !out.DryRun {
		t.Fatalf("expected dry_run override to apply")
	}
	if cfg.Provider != ProviderAnthropic {
		t.Fatalf("original config must not be mutated, got %+v", cfg)
	}
}

func TestFormatMapping(t *testing.T) {
	cfg := Defaults()
	cfg.EditFormat = "diff-fenced"
	if cfg.Format().String() != "diff-fenced" {
		t.Fatalf("got %v", cfg.Format())
	}
	cfg.EditFormat = "unrecognised"
	if cfg.Format().String() != "diff" {
		t.Fatalf("expected unrecognised edit_format to default to diff, got %v", cfg.Format())
	}
}
