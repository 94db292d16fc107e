package prompt

import (
	"fmt"
	"strings"

	"github.com/forgecode/editengine/internal/editblock"
	"github.com/forgecode/editengine/internal/llmclient"
)

// Flags are the assembler's boolean/string knobs from spec.md §4.8.
type Flags struct {
	SuggestShell        bool
	Lazy                bool
	Overeager           bool
	Language            string
	Platform            string
	QuadBacktickReminder bool
}

// Request is the assembler's full input: the user's text request plus the
// file/context inputs and flags that shape the system and context messages.
type Request struct {
	UserRequest  string
	InChatFiles  map[string]string // path -> content
	ReadOnlyFiles map[string]string
	RepoMapText  string
	Flags        Flags
	Format       editblock.Format
	Fence        editblock.Fence
}

// Assemble builds the ordered message sequence:
// [System, (ExampleUser, ExampleAssistant)*, ContextUser, ContextAssistant, UserRequest].
// Every {placeholder} named in spec.md §4.8 must be resolved; Assemble
// returns an error if any template leaves one unresolved.
func Assemble(store *Store, req Request) ([]llmclient.Message, error) {
	vars := map[string]string{
		"fence_0":                  req.Fence.Open,
		"fence_1":                  req.Fence.Close,
		"language":                 orDefault(req.Flags.Language, "the user's"),
		"platform":                 orDefault(req.Flags.Platform, "unknown"),
		"format":                   req.Format.String(),
		"final_reminders":          finalReminders(req.Flags),
		"shell_cmd_prompt_section": shellCmdSection(req.Flags.SuggestShell),
		"quad_backtick_reminder":   quadBacktickReminder(req.Flags.QuadBacktickReminder, req.Fence),
	}

	systemTemplate, ok := store.Get("system")
	if !ok {
		return nil, fmt.Errorf("prompt: missing %q template", "system")
	}
	system, err := Substitute(systemTemplate, vars)
	if err != nil {
		return nil, err
	}

	var messages []llmclient.Message
	messages = append(messages, llmclient.Message{Role: llmclient.RoleSystem, Text: system})

	if exUser, ok := store.Get("example_user"); ok {
		if exAssistant, ok := store.Get("example_assistant"); ok {
			u, err := Substitute(exUser, vars)
			if err != nil {
				return nil, err
			}
			a, err := Substitute(exAssistant, vars)
			if err != nil {
				return nil, err
			}
			messages = append(messages,
				llmclient.Message{Role: llmclient.RoleUser, Text: u},
				llmclient.Message{Role: llmclient.RoleAssistant, Text: a},
			)
		}
	}

	contextUser := buildContextMessage(req)
	messages = append(messages,
		llmclient.Message{Role: llmclient.RoleUser, Text: contextUser},
		llmclient.Message{Role: llmclient.RoleAssistant, Text: "Ok, I will propose edits using SEARCH/REPLACE blocks."},
		llmclient.Message{Role: llmclient.RoleUser, Text: req.UserRequest},
	)

	return messages, nil
}

func buildContextMessage(req Request) string {
	var sb strings.Builder
	sb.WriteString("Here are the files relevant to this request.\n\n")

	for path, content := range req.InChatFiles {
		sb.WriteString(fmt.Sprintf("%s\n%s\n%s\n%s\n", path, req.Fence.Open, content, req.Fence.Close))
	}
	for path, content := range req.ReadOnlyFiles {
		sb.WriteString(fmt.Sprintf("%s (read-only)\n%s\n%s\n%s\n", path, req.Fence.Open, content, req.Fence.Close))
	}
	if req.RepoMapText != "" {
		sb.WriteString("\nRepository map:\n")
		sb.WriteString(req.RepoMapText)
	}
	return sb.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func finalReminders(flags Flags) string {
	reminders := []string{
		"Only output SEARCH/REPLACE blocks for files that need changes.",
		"Keep SEARCH blocks minimal and exact.",
	}
	if flags.Overeager {
		reminders = append(reminders, "Do not make unrelated changes beyond the request.")
	}
	if flags.Lazy {
		reminders = append(reminders, "Write every change out in full; never leave placeholder comments in place of code.")
	}
	return strings.Join(reminders, " ")
}

func shellCmdSection(enabled bool) string {
	if !enabled {
		return ""
	}
	return "If the change requires a shell command (e.g. installing a dependency), suggest it in prose; do not execute it."
}

func quadBacktickReminder(enabled bool, fence editblock.Fence) string {
	if !enabled {
		return ""
	}
	return fmt.Sprintf("Remember: fence every block with %s, never plain triple backticks.", fence.Open)
}
