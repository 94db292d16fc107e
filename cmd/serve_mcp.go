package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forgecode/editengine/internal/config"
	"github.com/forgecode/editengine/internal/mcpserve"
	"github.com/forgecode/editengine/internal/sessionstore"
)

var (
	serveMCPProvider string
	serveMCPModel    string
)

var serveMCPCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Run the edit engine as an MCP tool server over stdio",
	Long: `Exposes a single "apply_edit_request" MCP tool that drives one edit
request through the full Session & Retry Controller (ask, parse, validate,
apply, reflect) and reports which files were changed.`,
	RunE: runServeMCP,
}

func init() {
	serveMCPCmd.Flags().StringVar(&serveMCPProvider, "provider", "", "Override provider (anthropic, openai, gemini)")
	serveMCPCmd.Flags().StringVar(&serveMCPModel, "model", "", "Override model name")
	rootCmd.AddCommand(serveMCPCmd)
}

func runServeMCP(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("serve-mcp: load config: %w", err)
	}

	overrides := map[string]any{}
	if serveMCPProvider != "" {
		overrides["provider"] = serveMCPProvider
	}
	if serveMCPModel != "" {
		overrides["model"] = serveMCPModel
	}
	cfg = cfg.ApplyOverrides(overrides)

	llm, err := newLLMClient(cfg)
	if err != nil {
		return fmt.Errorf("serve-mcp: %w", err)
	}

	store, err := sessionstore.Open(cfg.SessionDBPath)
	if err != nil {
		return fmt.Errorf("serve-mcp: open session store: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	server := mcpserve.New(llm, cfg, store)
	return server.Run(ctx)
}
