package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexhub/orchestrator-gateway/internal/config"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(&config.BackendConfig{URL: srv.URL, Timeout: "2s"})
}

func TestCurrentUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/me", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"success":true,"data":{"companyMemberships":[{"companyId":1,"companyName":"Alpha Corp"}],
			"workspaceMemberships":[{"workspaceId":10,"workspaceName":"Frontend","companyId":1}]}}`))
	})

	user, err := c.CurrentUser(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, user.CompanyMemberships, 1)
	assert.Equal(t, int64(1), user.CompanyMemberships[0].CompanyID)
	assert.Equal(t, "Frontend", user.WorkspaceMemberships[0].WorkspaceName)
}

func TestCurrentUser_KeepsBearerPrefix(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		w.Write([]byte(`{"success":true,"data":{}}`))
	})
	_, err := c.CurrentUser(context.Background(), "Bearer abc")
	require.NoError(t, err)
}

func TestCurrentUser_Unauthorized(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		_, err := c.CurrentUser(context.Background(), "tok")
		assert.ErrorIs(t, err, ErrUnauthorized, "status %d", status)
	}
}

func TestCurrentUser_SuccessFalse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"message":"token expired"}`))
	})
	_, err := c.CurrentUser(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCurrentUser_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	})
	_, err := c.CurrentUser(context.Background(), "tok")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnauthorized))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
}

func TestCreateProject(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/companies/1/workspaces/10/projects", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("data")
		if err == nil {
			defer file.Close()
			assert.Equal(t, "application/json", header.Header.Get("Content-Type"))
		}
		var raw []byte
		if err == nil {
			raw, _ = io.ReadAll(file)
		} else {
			raw = []byte(r.FormValue("data"))
		}

		var payload map[string]any
		require.NoError(t, json.Unmarshal(raw, &payload))
		assert.Equal(t, "Apollo", payload["name"])
		assert.Equal(t, "AP01", payload["projectCode"])
		assert.Equal(t, "LOW", payload["priority"])
		assert.Equal(t, float64(0), payload["managerId"])
		assert.Equal(t, map[string]any{}, payload["boardConfig"])

		w.Write([]byte(`{"success":true,"data":{"data":{"id":77,"name":"Apollo","projectCode":"AP01","startDate":"2026-01-15","dueDate":"2026-01-20"}}}`))
	})

	res, err := c.CreateProject(context.Background(), "tok", CreateProjectRequest{
		CompanyID: 1, WorkspaceID: 10, Name: "Apollo", Code: "AP01",
		StartDate: "2026-01-15", EndDate: "2026-01-20",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(77), res.Project.ID)
	assert.Equal(t, "2026-01-20", res.Project.DueDate)
	assert.NotEmpty(t, res.Raw)
}

func TestCreateProject_BareDescriptor(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":7,"name":"Apollo","projectCode":"AP01"}`))
	})

	res, err := c.CreateProject(context.Background(), "tok", CreateProjectRequest{CompanyID: 1, WorkspaceID: 2, Name: "Apollo", Code: "AP01"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.Project.ID)
	assert.Equal(t, "AP01", res.Project.ProjectCode)
	assert.JSONEq(t, `{"id":7,"name":"Apollo","projectCode":"AP01"}`, string(res.Raw))
}

func TestCreateProject_EmptyCreatedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	res, err := c.CreateProject(context.Background(), "tok", CreateProjectRequest{CompanyID: 1, WorkspaceID: 2, Name: "Apollo", Code: "AP01"})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Zero(t, res.Project.ID)
}

func TestCreateProject_SuccessWithoutData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"message":"created"}`))
	})

	res, err := c.CreateProject(context.Background(), "tok", CreateProjectRequest{CompanyID: 1, WorkspaceID: 2, Name: "Apollo", Code: "AP01"})
	require.NoError(t, err)
	assert.Zero(t, res.Project.ID)
	assert.NotEmpty(t, res.Raw)
}

func TestCreateProject_DuplicateCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success":false,"message":"Project code already exists in this workspace"}`))
	})

	_, err := c.CreateProject(context.Background(), "tok", CreateProjectRequest{CompanyID: 1, WorkspaceID: 2, Name: "A", Code: "AP01"})
	require.Error(t, err)
	assert.True(t, IsDuplicateCode(err))
}

func TestCreateProject_OtherFailureIsNotDuplicate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"database unavailable"}`))
	})

	_, err := c.CreateProject(context.Background(), "tok", CreateProjectRequest{CompanyID: 1, WorkspaceID: 2})
	require.Error(t, err)
	assert.False(t, IsDuplicateCode(err))
	assert.Equal(t, "database unavailable", err.Error())
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "Bearer x", BearerToken("x"))
	assert.Equal(t, "Bearer x", BearerToken("Bearer x"))
}
