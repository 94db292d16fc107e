// Package llmclient adapts concrete model-provider SDKs to the engine's LLM
// collaborator contract: a single non-streaming generate call.
package llmclient

import "context"

// Role identifies a message role in a prompt sequence.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in the ordered message sequence the Prompt Assembler
// builds.
type Message struct {
	Role Role
	Text string
}

// Options carries the per-call knobs the engine needs from a provider.
type Options struct {
	Model           string
	MaxOutputTokens int
	Temperature     float32
}

// LLM is the external collaborator contract: generate(messages, opts) ->
// string. No streaming requirement; cancellation is via ctx.
type LLM interface {
	Name() string
	Generate(ctx context.Context, messages []Message, opts Options) (string, error)
}
