package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// DefaultPriority is sent when the caller never named one.
const DefaultPriority = "LOW"

// CreateProjectRequest holds the normalized fields of a new project.
type CreateProjectRequest struct {
	CompanyID   int64
	WorkspaceID int64
	Name        string
	Code        string
	Description string
	StartDate   string
	EndDate     string
	Priority    string
}

// projectPayload is the JSON "data" part the backend expects. Manager, type
// and board fields are placeholders this gateway never sets.
type projectPayload struct {
	Name          string         `json:"name"`
	ProjectCode   string         `json:"projectCode"`
	Description   string         `json:"description"`
	StartDate     string         `json:"startDate"`
	EndDate       string         `json:"endDate"`
	Priority      string         `json:"priority"`
	ManagerID     int64          `json:"managerId"`
	ProjectTypeID int64          `json:"projectTypeId"`
	BoardConfig   map[string]any `json:"boardConfig"`
	CoverImageURL string         `json:"coverImageUrl"`
	Goal          string         `json:"goal"`
}

// Project is the created-project descriptor.
type Project struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ProjectCode string `json:"projectCode"`
	StartDate   string `json:"startDate"`
	DueDate     string `json:"dueDate"`
}

// CreateResult carries the created project and the raw backend data.
type CreateResult struct {
	Project Project
	Raw     json.RawMessage
}

// CreateProject creates a project in the given company workspace.
func (c *Client) CreateProject(ctx context.Context, token string, req CreateProjectRequest) (*CreateResult, error) {
	priority := strings.ToUpper(strings.TrimSpace(req.Priority))
	if priority == "" {
		priority = DefaultPriority
	}
	payload := projectPayload{
		Name:        req.Name,
		ProjectCode: req.Code,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Priority:    priority,
		BoardConfig: map[string]any{},
	}

	body, contentType, err := encodeMultipart(payload)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/api/companies/%d/workspaces/%d/projects", req.CompanyID, req.WorkspaceID)
	var raw json.RawMessage
	if err := c.do(ctx, "create_project", http.MethodPost, path, token, contentType, body, &raw); err != nil {
		return nil, err
	}

	return decodeCreated(raw), nil
}

// decodeCreated reads the project descriptor out of a successful create
// response. The backend accepted the project either way, so a descriptor it
// cannot read leaves Project empty and keeps the body in Raw.
func decodeCreated(raw json.RawMessage) *CreateResult {
	result := &CreateResult{Raw: raw}
	if len(raw) == 0 {
		return result
	}
	// Some deployments wrap the descriptor once more in {"data": {...}}.
	var nested struct {
		Data *Project `json:"data"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil && nested.Data != nil {
		result.Project = *nested.Data
		return result
	}
	var p Project
	if err := json.Unmarshal(raw, &p); err == nil {
		result.Project = p
	}
	return result
}

func encodeMultipart(payload projectPayload) (*bytes.Buffer, string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal project: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="data"`)
	h.Set("Content-Type", "application/json")
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("failed to write multipart part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
