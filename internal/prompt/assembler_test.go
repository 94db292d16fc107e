package prompt

import (
	"strings"
	"testing"

	"github.com/forgecode/editengine/internal/editblock"
	"github.com/forgecode/editengine/internal/llmclient"
)

func TestAssemble_MessageSequenceShape(t *testing.T) {
	store := NewStoreFromMap(DefaultTemplates())
	req := Request{
		UserRequest: "add a comment",
		InChatFiles: map[string]string{"main.go": "package main\n"},
		Format:      editblock.Diff,
		Fence:       editblock.DefaultFence,
	}

	messages, err := Assemble(store, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if messages[0].Role != llmclient.RoleSystem {
		t.Fatalf("expected first message to be System, got %v", messages[0].Role)
	}
	last := messages[len(messages)-1]
	if last.Role != llmclient.RoleUser || last.Text != req.UserRequest {
		t.Fatalf("expected final message to be the verbatim user request, got %+v", last)
	}
	if messages[1].Role != llmclient.RoleUser || messages[2].Role != llmclient.RoleAssistant {
		t.Fatalf("expected an example user/assistant pair after system, got %+v", messages[1:3])
	}
}

func TestAssemble_NoUnresolvedPlaceholders(t *testing.T) {
	store := NewStoreFromMap(DefaultTemplates())
	req := Request{UserRequest: "x", Format: editblock.Diff, Fence: editblock.DefaultFence}

	messages, err := Assemble(store, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, m := range messages {
		if strings.ContainsAny(m.Text, "{}") && strings.Contains(m.Text, "{") {
			t.Fatalf("message contains an unresolved placeholder: %q", m.Text)
		}
	}
}

func TestAssemble_MissingSystemTemplateErrors(t *testing.T) {
	store := NewStoreFromMap(map[string]string{})
	_, err := Assemble(store, Request{UserRequest: "x", Format: editblock.Diff, Fence: editblock.DefaultFence})
	if err == nil {
		t.Fatalf("expected an error when the system template is missing")
	}
}

func TestSubstitute_UnresolvedPlaceholderErrors(t *testing.T) {
	_, err := Substitute("hello {name}", map[string]string{"other": "x"})
	if err == nil {
		t.Fatalf("expected an error for an unresolved placeholder")
	}
}

func TestSubstitute_AllKnownPlaceholdersResolved(t *testing.T) {
	out, err := Substitute("{a}-{b}", map[string]string{"a": "1", "b": "2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "1-2" {
		t.Fatalf("got %q", out)
	}
}
