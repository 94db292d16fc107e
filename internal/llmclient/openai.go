package llmclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

// OpenAIClient implements LLM using the Responses API, the same endpoint
// the teacher's provider uses for its tool-call edit flow.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	c := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIClient{client: &c, model: model}
}

func (o *OpenAIClient) Name() string { return "openai" }

func (o *OpenAIClient) Generate(ctx context.Context, messages []Message, opts Options) (string, error) {
	model := opts.Model
	if model == "" {
		model = o.model
	}

	var system strings.Builder
	var turns strings.Builder
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system.WriteString(m.Text)
			system.WriteString("\n\n")
		case RoleUser, RoleAssistant:
			turns.WriteString(m.Text)
			turns.WriteString("\n\n")
		}
	}

	params := responses.ResponseNewParams{
		Model:        shared.ResponsesModel(model),
		Instructions: openai.String(system.String()),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(strings.TrimSpace(turns.String())),
		},
	}

	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai generate: %w", err)
	}

	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type != "message" {
			continue
		}
		for _, content := range item.Content {
			if content.Type == "output_text" && content.Text != "" {
				out.WriteString(content.Text)
			}
		}
	}
	return out.String(), nil
}
