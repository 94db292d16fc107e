// Package mcpserve exposes the Session & Retry Controller as a single MCP
// tool, following the typed sdkmcp.AddTool handler shape the pack's vecgrep
// MCP server uses and the stdio-transport Run loop the teacher's
// cmd/mcp_server.go sets up.
package mcpserve

import (
	"context"
	"fmt"
	"os"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/forgecode/editengine/internal/config"
	"github.com/forgecode/editengine/internal/editblock"
	"github.com/forgecode/editengine/internal/editsession"
	"github.com/forgecode/editengine/internal/fsys"
	"github.com/forgecode/editengine/internal/llmclient"
	"github.com/forgecode/editengine/internal/sessionstore"
	"github.com/forgecode/editengine/internal/vcs"
)

// Server wraps an MCP server exposing an "apply_edit_request" tool that
// drives one EditSession to completion per call.
type Server struct {
	server *sdkmcp.Server
	llm    llmclient.LLM
	cfg    config.Config
	store  *sessionstore.Store
}

// EditRequestInput is the tool's input schema.
type EditRequestInput struct {
	Request     string   `json:"request" jsonschema:"The natural-language edit request to send to the model."`
	Root        string   `json:"root" jsonschema:"Absolute path to the repository root to edit."`
	InChatFiles []string `json:"in_chat_files,omitempty" jsonschema:"Repo-relative paths the model may edit without asking."`
	DryRun      bool     `json:"dry_run,omitempty" jsonschema:"Preview the edit without writing to disk."`
}

// EditRequestOutput is the tool's result payload.
type EditRequestOutput struct {
	State            string   `json:"state"`
	AppliedFilePaths []string `json:"applied_file_paths"`
	Report           string   `json:"report,omitempty"`
}

// New constructs the MCP server and registers its one tool.
func New(llm llmclient.LLM, cfg config.Config, store *sessionstore.Store) *Server {
	s := &Server{
		llm:   llm,
		cfg:   cfg,
		store: store,
	}
	s.server = sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "editengine",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: "editengine applies SEARCH/REPLACE edit blocks to a repository, " +
			"retrying with a reflection report when a block fails to match.",
	})

	sdkmcp.AddTool(s.server, &sdkmcp.Tool{
		Name:        "apply_edit_request",
		Description: "Run one edit request (LLM round-trips, parse, validate, apply, reflect) to completion and report which files changed.",
	}, s.handleApplyEditRequest)

	return s
}

// Run starts the MCP server on stdio.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &sdkmcp.StdioTransport{})
}

func (s *Server) handleApplyEditRequest(ctx context.Context, req *sdkmcp.CallToolRequest, input EditRequestInput) (*sdkmcp.CallToolResult, any, error) {
	if input.Request == "" {
		return errorResult("request is required"), nil, nil
	}
	root := input.Root
	if root == "" {
		var err error
		root, err = os.Getwd()
		if err != nil {
			return errorResult(fmt.Sprintf("resolve working directory: %v", err)), nil, nil
		}
	}

	fsClient := fsys.NewLocal(root)
	var vcsClient editblock.VCS
	if info := vcs.DetectRepo(root); info.IsRepo {
		vcsClient = vcs.NewGit(info.Root)
	}

	cfg := s.cfg
	if input.DryRun {
		cfg.DryRun = true
	}

	sess := editsession.New(s.llm, fsClient, vcsClient, editsession.Options{
		Root:              root,
		Format:            cfg.Format(),
		Fence:             cfg.Fence(),
		MaxAttempts:       cfg.MaxAttempts,
		LenientWhitespace: cfg.LenientWhitespace,
		AutoCommit:        cfg.AutoCommit,
		DirtyCommits:      cfg.DirtyCommits,
		DryRun:            cfg.DryRun,
		ValidatorOptions:  cfg.ValidatorOptions(),
		InChatFiles:       input.InChatFiles,
		CommitMessage:     editblock.CommitMessageFor(input.Request),
		Recorder:          s.store,
	}, nil)

	result, runErr := sess.Run(ctx, input.Request)
	out := EditRequestOutput{
		State:            result.State.String(),
		AppliedFilePaths: result.AppliedFilePaths,
		Report:           result.Report,
	}
	if runErr != nil {
		return &sdkmcp.CallToolResult{
			Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: result.Report}},
			IsError: true,
		}, out, nil
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: fmt.Sprintf("applied %d file(s)", len(result.AppliedFilePaths))}},
	}, out, nil
}

func errorResult(msg string) *sdkmcp.CallToolResult {
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: msg}},
		IsError: true,
	}
}
