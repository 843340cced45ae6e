// Package knowledge talks to the question-answering service.
package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cortexhub/orchestrator-gateway/internal/config"
	"github.com/cortexhub/orchestrator-gateway/internal/logging"
	"github.com/cortexhub/orchestrator-gateway/internal/metrics"
)

// MaintenanceMessage is returned whenever the service cannot answer.
const MaintenanceMessage = "The knowledge base is under maintenance right now. Please try again later."

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

// Client asks questions of the knowledge service
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new knowledge client
func NewClient(cfg *config.KnowledgeConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.GetTimeout(),
		},
	}
}

// Ask forwards question verbatim and returns the service's answer.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	start := time.Now()
	defer func() {
		metrics.CollaboratorLatency.WithLabelValues("knowledge").Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(askRequest{Question: question})
	if err != nil {
		return "", fmt.Errorf("failed to marshal question: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ask", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ask request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("knowledge service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out askResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode answer: %w", err)
	}
	return out.Answer, nil
}

// AskOrMaintenance is Ask with failures replaced by MaintenanceMessage.
func (c *Client) AskOrMaintenance(ctx context.Context, question string) string {
	answer, err := c.Ask(ctx, question)
	if err != nil {
		metrics.CollaboratorErrors.WithLabelValues("knowledge").Inc()
		logging.FromContext(ctx, logging.WithComponent("knowledge")).Warn("knowledge lookup failed", "error", err)
		return MaintenanceMessage
	}
	return answer
}

// Health checks if the knowledge service is reachable
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("knowledge health returned status %d", resp.StatusCode)
	}
	return nil
}
