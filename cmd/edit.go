package cmd

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forgecode/editengine/internal/config"
	"github.com/forgecode/editengine/internal/editblock"
	"github.com/forgecode/editengine/internal/editsession"
	"github.com/forgecode/editengine/internal/fsys"
	"github.com/forgecode/editengine/internal/llmclient"
	"github.com/forgecode/editengine/internal/repoindex"
	"github.com/forgecode/editengine/internal/report"
	"github.com/forgecode/editengine/internal/sessionstore"
	"github.com/forgecode/editengine/internal/vcs"
)

var (
	editDryRun     bool
	editProvider   string
	editModel      string
	editFiles      []string
	editMaxAttempt int
	editNoCommit   bool
	editGlob       string
)

var editCmd = &cobra.Command{
	Use:   "edit <request>",
	Short: "Edit files using AI assistance",
	Long: `Edit files based on a natural language request.

A model is asked to propose SEARCH/REPLACE edit blocks; editengine parses,
validates, and applies them, retrying with a reflection report on any
failure.

Examples:
  editengine edit "add error handling" --file main.go
  editengine edit "extract a helper function" --file main.go --file util.go`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().StringArrayVarP(&editFiles, "file", "f", nil, "File(s) the model may edit without asking (repeatable)")
	editCmd.Flags().BoolVar(&editDryRun, "dry-run", false, "Show what would change without applying")
	editCmd.Flags().StringVar(&editProvider, "provider", "", "Override provider (anthropic, openai, gemini)")
	editCmd.Flags().StringVar(&editModel, "model", "", "Override model name")
	editCmd.Flags().IntVar(&editMaxAttempt, "max-attempts", 0, "Override max reflection/retry attempts")
	editCmd.Flags().BoolVar(&editNoCommit, "no-commit", false, "Disable auto-commit for this run")
	editCmd.Flags().StringVar(&editGlob, "glob", "", "Restrict the validator's repo file listing to paths matching this doublestar glob (e.g. \"**/*.go\")")
	editCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	request := joinArgs(args)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("edit: load config: %w", err)
	}

	overrides := map[string]any{}
	if editProvider != "" {
		overrides["provider"] = editProvider
	}
	if editModel != "" {
		overrides["model"] = editModel
	}
	if editMaxAttempt > 0 {
		overrides["max_attempts"] = editMaxAttempt
	}
	if editDryRun {
		overrides["dry_run"] = true
	}
	cfg = cfg.ApplyOverrides(overrides)
	if editNoCommit {
		cfg.AutoCommit = false
	}

	llm, err := newLLMClient(cfg)
	if err != nil {
		return fmt.Errorf("edit: %w", err)
	}

	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("edit: getwd: %w", err)
	}

	var fsClient editsession.FileSystem = fsys.NewLocal(root)
	if editGlob != "" {
		fsClient = globFilteredFS{FileSystem: fsClient, pattern: editGlob}
	}
	var vcsClient editblock.VCS
	if info := vcs.DetectRepo(root); info.IsRepo {
		vcsClient = vcs.NewGit(info.Root)
	}

	store, err := sessionstore.Open(cfg.SessionDBPath)
	if err != nil {
		return fmt.Errorf("edit: open session store: %w", err)
	}
	defer store.Close()

	sess := editsession.New(llm, fsClient, vcsClient, editsession.Options{
		Root:              root,
		Format:            cfg.Format(),
		Fence:             cfg.Fence(),
		MaxAttempts:       cfg.MaxAttempts,
		LenientWhitespace: cfg.LenientWhitespace,
		AutoCommit:        cfg.AutoCommit,
		DirtyCommits:      cfg.DirtyCommits,
		DryRun:            cfg.DryRun,
		ValidatorOptions:  cfg.ValidatorOptions(),
		InChatFiles:       editFiles,
		CommitMessage:     editblock.CommitMessageFor(request),
		Recorder:          store,
		SessionID:         newSessionID(),
	}, nil)

	result, runErr := sess.Run(ctx, request)

	for _, p := range result.AppliedFilePaths {
		fmt.Println(report.RenderApplyResult(editblock.ApplyResult{
			AppliedFilePaths: map[string]struct{}{p: {}},
		}))
	}
	if result.Report != "" {
		fmt.Println(report.RenderReflectionReport(result.Report))
	}

	if runErr != nil {
		return fmt.Errorf("edit: %w", runErr)
	}
	return nil
}

// newSessionID generates an opaque identifier for a new EditSession row.
func newSessionID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("sess-%d", os.Getpid())
	}
	return hex.EncodeToString(b[:])
}

// globFilteredFS narrows an underlying FileSystem's repo file listing to
// paths matching pattern, so the Validator's similar-file/path-exists checks
// only ever see the slice of the repo the caller asked about. The Reflection
// Report reads failed blocks' files directly and is not affected.
type globFilteredFS struct {
	editsession.FileSystem
	pattern string
}

func (g globFilteredFS) ListRepoFiles() ([]string, error) {
	files, err := g.FileSystem.ListRepoFiles()
	if err != nil {
		return nil, err
	}
	return repoindex.Filter(files, g.pattern), nil
}

func joinArgs(args []string) string {
	out := args[0]
	for _, a := range args[1:] {
		out += " " + a
	}
	return out
}

func newLLMClient(cfg config.Config) (llmclient.LLM, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not set")
		}
		model := cfg.Model
		if model == "" {
			model = "gpt-5.2"
		}
		return llmclient.NewOpenAIClient(key, model), nil
	case config.ProviderGemini:
		key := os.Getenv("GEMINI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY not set")
		}
		model := cfg.Model
		if model == "" {
			model = "gemini-3-flash-preview"
		}
		return llmclient.NewGeminiClient(key, model), nil
	default:
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
		model := cfg.Model
		if model == "" {
			model = "claude-sonnet-4-5"
		}
		return llmclient.NewAnthropicClient(key, model), nil
	}
}
