// Package editsession implements the Session & Retry Controller: the state
// machine that drives repeated LLM turns through parsing, validation, and
// application until every edit block succeeds or attempts are exhausted.
package editsession

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/forgecode/editengine/internal/editblock"
	"github.com/forgecode/editengine/internal/llmclient"
)

// State is a step in the session state machine.
type State int

const (
	Init State = iota
	Asking
	Parsing
	Validating
	Applying
	Reflecting
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case Asking:
		return "asking"
	case Parsing:
		return "parsing"
	case Validating:
		return "validating"
	case Applying:
		return "applying"
	case Reflecting:
		return "reflecting"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// FileSystem is the slice of FileSystemService the controller needs beyond
// what the Applier already takes: listing the repository's files for the
// validator's repo-file list.
type FileSystem interface {
	editblock.FileSystemService
	ListRepoFiles() ([]string, error)
}

// Options configures a single EditSession.
type Options struct {
	Root              string
	Format            editblock.Format
	Fence             editblock.Fence
	MaxAttempts       int
	LenientWhitespace bool
	AutoCommit        bool
	DirtyCommits      bool
	DryRun            bool
	ValidatorOptions  editblock.ValidatorOptions
	InChatFiles       []string
	CommitMessage     string

	// Recorder, when set, persists the session row and the history of each
	// attempt that produced a reflection report (response, report, failure
	// count). The controller only writes this history; it never reads it
	// back to resume a session. Nil disables persistence.
	Recorder   Recorder
	SessionID  string
}

// Recorder persists a session's lifecycle to durable storage. It mirrors
// internal/sessionstore.Store's method set so that package can satisfy this
// interface directly without an adapter.
type Recorder interface {
	CreateSession(id, request, root, format string) error
	RecordAttempt(sessionID string, attemptNumber int, response, report string, failedCount int) error
	FinishSession(sessionID, finalState, appliedFiles string) error
}

// EditSession drives one user request through the Session & Retry
// Controller state machine.
type EditSession struct {
	opts   Options
	llm    llmclient.LLM
	fs     FileSystem
	vcs    editblock.VCS
	cancel func() bool // cooperative cancellation check

	state          State
	attempt        int
	initiallyDirty map[string]bool
	applied        map[string]struct{}
	lastReport     string
	lastResponse   string
	lastFailed     []editblock.EditBlock
	blocks         []editblock.EditBlock
	messages       []llmclient.Message

	// reflectionMessages is the ordered history of reflection reports
	// produced across all attempts of this session (spec data model's
	// reflection_messages). A successful session that needed N reflections
	// has len(reflectionMessages) == attempts_used - 1; an exhausted session
	// has len(reflectionMessages) == attempts_used.
	reflectionMessages []string
}

// New constructs a session. cancelCheck may be nil, in which case
// cancellation is never requested.
func New(llm llmclient.LLM, fs FileSystem, vcsClient editblock.VCS, opts Options, cancelCheck func() bool) *EditSession {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if cancelCheck == nil {
		cancelCheck = func() bool { return false }
	}
	return &EditSession{
		opts:    opts,
		llm:     llm,
		fs:      fs,
		vcs:     vcsClient,
		cancel:  cancelCheck,
		state:   Init,
		applied: make(map[string]struct{}),
	}
}

// Result is what Run returns on completion.
type Result struct {
	State              State
	AppliedFilePaths   []string
	Report             string   // populated on Failed, the last reflection report
	ReflectionMessages []string // ordered history of every reflection report produced
}

// Run executes the state machine to completion: Init -> Asking -> Parsing
// -> Validating -> Applying -> {Done | Reflecting -> Asking}, terminating
// on Done or attempt exhaustion.
func (s *EditSession) Run(ctx context.Context, request string) (Result, error) {
	s.state = Init
	s.captureInitiallyDirty()
	s.messages = []llmclient.Message{{Role: llmclient.RoleUser, Text: request}}

	if s.opts.Recorder != nil {
		if err := s.opts.Recorder.CreateSession(s.opts.SessionID, request, s.opts.Root, s.opts.Format.String()); err != nil {
			slog.Warn("editsession: failed to record session creation", "error", err)
		}
	}

	for {
		switch s.state {
		case Init:
			s.state = Asking

		case Asking:
			if s.cancel() {
				return s.failResult(), fmt.Errorf("cancelled before LLM call")
			}
			s.attempt++
			if s.attempt > s.opts.MaxAttempts {
				s.state = Failed
				continue
			}
			response, err := s.llm.Generate(ctx, s.messages, llmclient.Options{})
			if err != nil {
				return s.failResult(), fmt.Errorf("editsession: generate: %w", err)
			}
			s.messages = append(s.messages, llmclient.Message{Role: llmclient.RoleAssistant, Text: response})
			s.lastResponse = response
			s.state = Parsing

		case Parsing:
			s.blocks = editblock.Parse(s.lastResponse, s.opts.Fence, s.opts.Format)
			s.state = Validating

		case Validating:
			repoFiles, err := s.fs.ListRepoFiles()
			if err != nil {
				return s.failResult(), fmt.Errorf("editsession: list repo files: %w", err)
			}
			rules := editblock.DefaultRules(s.opts.ValidatorOptions)
			var kept []editblock.EditBlock
			for _, b := range s.blocks {
				if issues := editblock.Validate(b, repoFiles, rules); len(issues) > 0 {
					slog.Debug("editsession: block rejected by validator", "file", b.FilePath, "issues", issues)
					continue
				}
				kept = append(kept, b)
			}
			s.blocks = kept
			s.state = Applying

		case Applying:
			if s.cancel() {
				return s.failResult(), fmt.Errorf("cancelled before file writes")
			}
			applyOpts := editblock.ApplierOptions{
				AutoCommit:        s.opts.AutoCommit && s.commitIsSafe(),
				DryRun:            s.opts.DryRun,
				LenientWhitespace: s.opts.LenientWhitespace,
				Fence:             s.opts.Fence,
				CommitMessage:     s.opts.CommitMessage,
			}
			result := editblock.Apply(s.blocks, s.opts.Root, s.opts.InChatFiles, s.fs, s.vcs, applyOpts)
			for p := range result.AppliedFilePaths {
				s.applied[p] = struct{}{}
			}

			if len(result.FailedEdits) == 0 {
				s.state = Done
				continue
			}

			s.lastFailed = result.FailedEdits
			s.state = Reflecting

		case Reflecting:
			repoContent := make(map[string]string)
			for _, b := range s.lastFailed {
				abs := filepath.Join(s.opts.Root, b.FilePath)
				if content, ok := s.fs.ReadFile(abs); ok {
					repoContent[b.FilePath] = content
				}
			}
			appliedList := make([]string, 0, len(s.applied))
			for p := range s.applied {
				appliedList = append(appliedList, p)
			}
			s.lastReport = editblock.BuildReport(s.lastFailed, appliedList, repoContent, s.opts.Format, s.opts.Fence)
			s.reflectionMessages = append(s.reflectionMessages, s.lastReport)

			s.recordAttempt()

			if s.attempt >= s.opts.MaxAttempts {
				s.state = Failed
				continue
			}
			s.messages = append(s.messages, llmclient.Message{Role: llmclient.RoleUser, Text: s.lastReport})
			s.state = Asking

		case Done:
			s.finishSession("done")
			return s.doneResult(), nil

		case Failed:
			s.finishSession("failed")
			return s.failResult(), fmt.Errorf("editsession: exhausted %d attempts with failures remaining", s.opts.MaxAttempts)
		}
	}
}

// recordAttempt persists the just-completed attempt's response and
// reflection report when a Recorder is configured.
func (s *EditSession) recordAttempt() {
	if s.opts.Recorder == nil {
		return
	}
	if err := s.opts.Recorder.RecordAttempt(s.opts.SessionID, s.attempt, s.lastResponse, s.lastReport, len(s.lastFailed)); err != nil {
		slog.Warn("editsession: failed to record attempt", "error", err)
	}
}

// finishSession persists the terminal state when a Recorder is configured.
func (s *EditSession) finishSession(finalState string) {
	if s.opts.Recorder == nil {
		return
	}
	paths := make([]string, 0, len(s.applied))
	for p := range s.applied {
		paths = append(paths, p)
	}
	if err := s.opts.Recorder.FinishSession(s.opts.SessionID, finalState, strings.Join(paths, ",")); err != nil {
		slog.Warn("editsession: failed to finish session", "error", err)
	}
}

func (s *EditSession) doneResult() Result {
	paths := make([]string, 0, len(s.applied))
	for p := range s.applied {
		paths = append(paths, p)
	}
	return Result{State: Done, AppliedFilePaths: paths, ReflectionMessages: s.reflectionMessages}
}

func (s *EditSession) failResult() Result {
	paths := make([]string, 0, len(s.applied))
	for p := range s.applied {
		paths = append(paths, p)
	}
	return Result{State: Failed, AppliedFilePaths: paths, Report: s.lastReport, ReflectionMessages: s.reflectionMessages}
}

// captureInitiallyDirty snapshots which in-chat files are already dirty at
// session entry, so commitIsSafe can refuse to auto-commit a file that
// became dirty mid-session for reasons other than this session's own edits.
func (s *EditSession) captureInitiallyDirty() {
	s.initiallyDirty = make(map[string]bool)
	if s.vcs == nil {
		return
	}
	type dirtyChecker interface {
		IsDirty(rel string) bool
	}
	checker, ok := s.vcs.(dirtyChecker)
	if !ok {
		return
	}
	for _, f := range s.opts.InChatFiles {
		s.initiallyDirty[f] = checker.IsDirty(f)
	}
}

// commitIsSafe refuses auto-commit when dirty_commits is false and any
// in-chat file that was clean at entry is now dirty for reasons outside
// this session's own applied edits.
func (s *EditSession) commitIsSafe() bool {
	if s.opts.DirtyCommits {
		return true
	}
	type dirtyChecker interface {
		IsDirty(rel string) bool
	}
	checker, ok := s.vcs.(dirtyChecker)
	if !ok {
		return true
	}
	for f, wasDirty := range s.initiallyDirty {
		if wasDirty {
			continue
		}
		if _, applied := s.applied[f]; applied {
			continue
		}
		if checker.IsDirty(f) {
			return false
		}
	}
	return true
}
