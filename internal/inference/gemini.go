package inference

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiConfig holds Gemini API client configuration
type GeminiConfig struct {
	APIKey string
	Model  string
}

// GeminiClient is a Gemini API inference client
type GeminiClient struct {
	client       *genai.Client
	defaultModel string
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, cfg *GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiClient{
		client:       client,
		defaultModel: cfg.Model,
	}, nil
}

// Infer sends a generate-content request to Gemini
func (c *GeminiClient) Infer(ctx context.Context, req *Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		case RoleSystem:
			// folded into SystemInstruction below
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	cfg := &genai.GenerateContentConfig{}
	if system := systemText(req); system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		cfg.Temperature = &temp
	}

	res, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	text := res.Text()
	if text == "" {
		return nil, fmt.Errorf("gemini returned empty text")
	}

	out := &Response{Content: text, Model: model}
	if res.UsageMetadata != nil {
		out.TokensUsed = int(res.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}

// Health fetches the default model to confirm the key is accepted
func (c *GeminiClient) Health(ctx context.Context) error {
	if _, err := c.client.Models.Get(ctx, c.defaultModel, nil); err != nil {
		return fmt.Errorf("gemini health check failed: %w", err)
	}
	return nil
}

func systemText(req *Request) string {
	text := req.System
	for _, m := range req.Messages {
		if m.Role != RoleSystem {
			continue
		}
		if text != "" {
			text += "\n\n"
		}
		text += m.Content
	}
	return text
}
