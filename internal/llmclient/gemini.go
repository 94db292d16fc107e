package llmclient

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiClient implements LLM using the Google GenAI SDK's non-streaming
// GenerateContent call.
type GeminiClient struct {
	apiKey string
	model  string
}

func NewGeminiClient(apiKey, model string) *GeminiClient {
	if model == "" {
		model = "gemini-3-flash-preview"
	}
	return &GeminiClient{apiKey: apiKey, model: model}
}

func (g *GeminiClient) Name() string { return "gemini" }

func (g *GeminiClient) Generate(ctx context.Context, messages []Message, opts Options) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: g.apiKey})
	if err != nil {
		return "", fmt.Errorf("gemini client: %w", err)
	}

	var system string
	var contents []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += m.Text
		case RoleUser:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: m.Text}},
			})
		case RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: m.Text}},
			})
		}
	}
	if len(contents) == 0 {
		return "", fmt.Errorf("gemini generate: no user content provided")
	}

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	model := opts.Model
	if model == "" {
		model = g.model
	}

	resp, err := client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return resp.Text(), nil
}
