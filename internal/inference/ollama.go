package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaConfig holds Ollama client configuration
type OllamaConfig struct {
	URL          string
	DefaultModel string
	Timeout      time.Duration
}

// OllamaClient is an Ollama inference client
type OllamaClient struct {
	baseURL      string
	defaultModel string
	httpClient   *http.Client
}

// NewOllamaClient creates a new Ollama client
func NewOllamaClient(cfg *OllamaConfig) (*OllamaClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("ollama URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &OllamaClient{
		baseURL:      strings.TrimRight(cfg.URL, "/"),
		defaultModel: cfg.DefaultModel,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   string         `json:"format,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

// Infer sends a chat request to Ollama
func (c *OllamaClient) Infer(ctx context.Context, req *Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	chatReq := ollamaChatRequest{
		Model:    model,
		Messages: withSystem(req.System, req.Messages),
	}
	if req.JSON {
		chatReq.Format = "json"
	}
	if req.Temperature != nil {
		chatReq.Options = map[string]any{"temperature": *req.Temperature}
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(body))
	}

	var ollamaResp OllamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &Response{
		Content:    ollamaResp.Message.Content,
		Model:      ollamaResp.Model,
		TokensUsed: ollamaResp.PromptCount + ollamaResp.EvalCount,
	}, nil
}

// Health checks if Ollama is healthy
func (c *OllamaClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama health check returned status %d", resp.StatusCode)
	}

	return nil
}

// OllamaResponse represents an Ollama chat API response
type OllamaResponse struct {
	Model       string  `json:"model"`
	Message     Message `json:"message"`
	Done        bool    `json:"done"`
	PromptCount int     `json:"prompt_eval_count"`
	EvalCount   int     `json:"eval_count"`
}

// withSystem prepends the system prompt as a system message.
func withSystem(system string, msgs []Message) []Message {
	if system == "" {
		return msgs
	}
	out := make([]Message, 0, len(msgs)+1)
	out = append(out, Message{Role: RoleSystem, Content: system})
	return append(out, msgs...)
}
