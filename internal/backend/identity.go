package backend

import (
	"context"
	"errors"
	"net/http"
)

// CompanyMembership is a company the caller may act in.
type CompanyMembership struct {
	CompanyID   int64  `json:"companyId"`
	CompanyName string `json:"companyName"`
}

// WorkspaceMembership is a workspace the caller may act in.
type WorkspaceMembership struct {
	WorkspaceID   int64  `json:"workspaceId"`
	WorkspaceName string `json:"workspaceName"`
	CompanyID     int64  `json:"companyId"`
}

// User is the current-user payload of the identity service.
type User struct {
	ID                   int64                 `json:"id,omitempty"`
	Email                string                `json:"email,omitempty"`
	CompanyMemberships   []CompanyMembership   `json:"companyMemberships"`
	WorkspaceMemberships []WorkspaceMembership `json:"workspaceMemberships"`
}

// CurrentUser fetches the memberships of the credential's owner. A
// response with success=false is treated like a rejected credential.
func (c *Client) CurrentUser(ctx context.Context, token string) (*User, error) {
	var user User
	err := c.do(ctx, "identity", http.MethodGet, "/api/users/me", token, "", nil, &user)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status >= 200 && apiErr.Status < 300 {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return &user, nil
}
