// Package config loads editengine's configuration the way the teacher
// loads term-llm's: a YAML file under a dotfile directory, environment
// variable overrides, and a CLI-flag override pass, all through viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/forgecode/editengine/internal/editblock"
)

// ProviderType selects which concrete LLM adapter backs a session.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderGemini    ProviderType = "gemini"
)

// Config is the engine-wide configuration, covering every item enumerated
// in spec.md §6 plus provider selection, following the teacher's
// mapstructure-tagged struct shape.
type Config struct {
	Provider ProviderType `mapstructure:"provider"`
	Model    string       `mapstructure:"model"`

	EditFormat          string  `mapstructure:"edit_format"`
	FenceOpen           string  `mapstructure:"fence_open"`
	FenceClose          string  `mapstructure:"fence_close"`
	LenientWhitespace   bool    `mapstructure:"lenient_whitespace"`
	AutoCommit          bool    `mapstructure:"auto_commit"`
	DirtyCommits        bool    `mapstructure:"dirty_commits"`
	DryRun              bool    `mapstructure:"dry_run"`
	SuggestShellCmds    bool    `mapstructure:"suggest_shell_commands"`
	MaxAttempts         int     `mapstructure:"max_attempts"`
	SimilarFileEnabled  bool    `mapstructure:"similar_file_enabled"`
	SimilarFileThresh   float64 `mapstructure:"similar_file_threshold"`
	DuplicateCodeEnabled bool   `mapstructure:"duplicate_code_enabled"`
	DuplicateCodeThresh  float64 `mapstructure:"duplicate_code_threshold"`

	SessionDBPath string `mapstructure:"session_db_path"`
}

// Defaults mirror spec.md §6's enumerated configuration defaults.
func Defaults() Config {
	return Config{
		Provider:            ProviderAnthropic,
		EditFormat:          "diff",
		FenceOpen:           editblock.DefaultFence.Open,
		FenceClose:          editblock.DefaultFence.Close,
		LenientWhitespace:   true,
		AutoCommit:          true,
		DirtyCommits:        true,
		DryRun:              false,
		SuggestShellCmds:    true,
		MaxAttempts:         3,
		SimilarFileEnabled:  false,
		SimilarFileThresh:   0.9,
		DuplicateCodeEnabled: false,
		DuplicateCodeThresh:  0.5,
	}
}

// dotDir returns ~/.editengine, creating it if absent, the same layout
// convention the teacher uses for its own dotfile directory.
func dotDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home dir: %w", err)
	}
	dir := filepath.Join(home, ".editengine")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("config: create config dir: %w", err)
	}
	return dir, nil
}

// Load reads config.yaml from the dotfile directory (if present), applies
// EDITENGINE_-prefixed environment overrides, and fills in defaults for
// anything left unset.
func Load() (Config, error) {
	cfg := Defaults()

	dir, err := dotDir()
	if err != nil {
		return cfg, err
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.SetEnvPrefix("EDITENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, fmt.Errorf("config: read config.yaml: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: unmarshal: %w", err)
	}
	if cfg.SessionDBPath == "" {
		cfg.SessionDBPath = filepath.Join(dir, "sessions.db")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("provider", string(cfg.Provider))
	v.SetDefault("edit_format", cfg.EditFormat)
	v.SetDefault("fence_open", cfg.FenceOpen)
	v.SetDefault("fence_close", cfg.FenceClose)
	v.SetDefault("lenient_whitespace", cfg.LenientWhitespace)
	v.SetDefault("auto_commit", cfg.AutoCommit)
	v.SetDefault("dirty_commits", cfg.DirtyCommits)
	v.SetDefault("dry_run", cfg.DryRun)
	v.SetDefault("suggest_shell_commands", cfg.SuggestShellCmds)
	v.SetDefault("max_attempts", cfg.MaxAttempts)
	v.SetDefault("similar_file_enabled", cfg.SimilarFileEnabled)
	v.SetDefault("similar_file_threshold", cfg.SimilarFileThresh)
	v.SetDefault("duplicate_code_enabled", cfg.DuplicateCodeEnabled)
	v.SetDefault("duplicate_code_threshold", cfg.DuplicateCodeThresh)
}

// ApplyOverrides layers CLI-flag values (only those explicitly set) on top
// of a loaded Config, following the teacher's flag-precedence pattern.
func (c Config) ApplyOverrides(overrides map[string]any) Config {
	out := c
	for key, val := range overrides {
		switch key {
		case "provider":
			out.Provider = ProviderType(val.(string))
		case "model":
			out.Model = val.(string)
		case "edit_format":
			out.EditFormat = val.(string)
		case "auto_commit":
			out.AutoCommit = val.(bool)
		case "dry_run":
			out.DryRun = val.(bool)
		case "max_attempts":
			out.MaxAttempts = val.(int)
		}
	}
	return out
}

// Fence builds the editblock.Fence this config names.
func (c Config) Fence() editblock.Fence {
	return editblock.Fence{Open: c.FenceOpen, Close: c.FenceClose}
}

// Format maps the configured edit_format string to its typed constant,
// defaulting to Diff for an unrecognised value.
func (c Config) Format() editblock.Format {
	switch strings.ToLower(c.EditFormat) {
	case "diff-fenced", "difffenced":
		return editblock.DiffFenced
	case "whole":
		return editblock.Whole
	case "architect":
		return editblock.Architect
	default:
		return editblock.Diff
	}
}

// ValidatorOptions builds the editblock.ValidatorOptions this config names.
func (c Config) ValidatorOptions() editblock.ValidatorOptions {
	return editblock.ValidatorOptions{
		SimilarFileEnabled:     c.SimilarFileEnabled,
		SimilarFileThreshold:   c.SimilarFileThresh,
		DuplicateCodeEnabled:   c.DuplicateCodeEnabled,
		DuplicateCodeThreshold: c.DuplicateCodeThresh,
	}
}
