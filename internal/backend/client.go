package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cortexhub/orchestrator-gateway/internal/config"
	"github.com/cortexhub/orchestrator-gateway/internal/metrics"
)

// ErrUnauthorized is returned when the backend rejects the caller's credential.
var ErrUnauthorized = errors.New("backend: credential rejected")

// APIError is a non-success response from the backend.
type APIError struct {
	Status  int
	Message string
	Body    json.RawMessage
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend returned status %d", e.Status)
}

// IsDuplicateCode reports whether the backend refused a project because its
// code is already taken in the workspace.
func (e *APIError) IsDuplicateCode() bool {
	text := strings.ToLower(e.Message + " " + string(e.Body))
	return strings.Contains(text, "code already exists")
}

// IsDuplicateCode reports whether err carries a duplicate project code error.
func IsDuplicateCode(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsDuplicateCode()
}

// Client represents the project backend REST client
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new backend client
func NewClient(cfg *config.BackendConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.GetTimeout(),
		},
	}
}

// envelope is the backend's standard response wrapper.
type envelope struct {
	Success *bool           `json:"success,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// Health checks if the backend answers at all
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/actuator/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("backend health returned status %d", resp.StatusCode)
	}
	return nil
}

// do performs an HTTP request with the caller's credential and decodes the
// backend envelope into out.
func (c *Client) do(ctx context.Context, op, method, path, token, contentType string, body io.Reader, out any) (err error) {
	start := time.Now()
	defer func() {
		metrics.CollaboratorLatency.WithLabelValues("backend_" + op).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.CollaboratorErrors.WithLabelValues("backend_" + op).Inc()
		}
	}()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", BearerToken(token))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Orchestrator-Gateway/1.0.0")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", op, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 || (decodeErr == nil && env.Success != nil && !*env.Success) {
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Message = firstNonEmpty(env.Message, env.Error)
			apiErr.Body = json.RawMessage(raw)
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}
	// A *json.RawMessage receiver takes whatever a 2xx carried: the envelope
	// data when present, otherwise the whole body.
	rawOut, wantsRaw := out.(*json.RawMessage)
	if decodeErr != nil {
		if wantsRaw {
			return nil
		}
		return fmt.Errorf("failed to decode %s response: %w", op, decodeErr)
	}
	if out == nil {
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		if wantsRaw {
			*rawOut = append((*rawOut)[:0], raw...)
		}
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s data: %w", op, err)
	}
	return nil
}

// BearerToken adds the Bearer scheme when the caller sent a bare token.
func BearerToken(token string) string {
	if strings.HasPrefix(token, "Bearer ") {
		return token
	}
	return "Bearer " + token
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
