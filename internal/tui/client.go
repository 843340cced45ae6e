package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cortexhub/orchestrator-gateway/internal/llm"
)

// ChatResponse mirrors the /chat reply.
type ChatResponse struct {
	Answer     string          `json:"answer"`
	Action     string          `json:"action"`
	Params     map[string]any  `json:"params"`
	BackendRaw json.RawMessage `json:"backend_raw_data,omitempty"`
}

// Client talks to a running gateway over HTTP.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the gateway at baseURL.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Send posts one turn to /chat.
func (c *Client) Send(ctx context.Context, question string, history []llm.Message) (*ChatResponse, error) {
	body, err := json.Marshal(map[string]any{"question": question, "history": history})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send turn: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var out ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode reply: %w", err)
	}
	return &out, nil
}

// ClearSession drops the server-side form state for this client's token.
func (c *Client) ClearSession(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/v1/session", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}
