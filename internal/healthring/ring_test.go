package healthring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexhub/orchestrator-gateway/internal/config"
)

func TestNewHealthRing_HTTPMembers(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()
	teapot := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer teapot.Close()

	expect := http.StatusTeapot
	hr := NewHealthRing(config.HealthRingConfig{
		Enabled: true,
		Members: []config.HealthMemberConfig{
			{Name: "ok", URL: ok.URL},
			{Name: "teapot", URL: teapot.URL, ExpectStatus: &expect},
			{Name: "wrong", URL: teapot.URL},
		},
	})
	assert.Equal(t, []string{"ok", "teapot", "wrong"}, hr.Names())
	assert.Equal(t, StatusUnknown, hr.Summary()["ok"])

	hr.CheckAll(context.Background())

	summary := hr.Summary()
	assert.Equal(t, StatusUp, summary["ok"])
	assert.Equal(t, StatusUp, summary["teapot"])
	assert.Equal(t, StatusDown, summary["wrong"])

	wrong, err := hr.GetMemberStatus("wrong")
	require.NoError(t, err)
	require.Len(t, wrong.History, 1)
	assert.Equal(t, "status 418 expected 200", wrong.History[0].Error)
}

func TestCheckAll_CheckerMembersAndHistoryCap(t *testing.T) {
	hr := NewHealthRing(config.HealthRingConfig{})
	fail := true
	hr.Add("backend", CheckerFunc(func(context.Context) error {
		if fail {
			return errors.New("connection refused")
		}
		return nil
	}))

	for i := 0; i < 12; i++ {
		hr.CheckAll(context.Background())
	}
	st, err := hr.GetMemberStatus("backend")
	require.NoError(t, err)
	assert.Equal(t, StatusDown, st.Status)
	assert.Len(t, st.History, 10)

	fail = false
	hr.CheckAll(context.Background())
	assert.Equal(t, StatusUp, hr.Summary()["backend"])
}

func TestGetMemberStatus_Unknown(t *testing.T) {
	hr := NewHealthRing(config.HealthRingConfig{})
	_, err := hr.GetMemberStatus("nope")
	assert.Error(t, err)
}

func TestHandlers(t *testing.T) {
	hr := NewHealthRing(config.HealthRingConfig{})
	hr.Add("knowledge", CheckerFunc(func(context.Context) error { return nil }))
	hr.CheckAll(context.Background())

	w := httptest.NewRecorder()
	hr.GetStatusHandler()(w, httptest.NewRequest(http.MethodGet, "/api/v1/healthring/status", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"knowledge"`)

	w = httptest.NewRecorder()
	hr.GetMemberHandler()(w, httptest.NewRequest(http.MethodGet, "/api/v1/healthring/knowledge", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"up"`)

	w = httptest.NewRecorder()
	hr.GetMemberHandler()(w, httptest.NewRequest(http.MethodGet, "/api/v1/healthring/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	hr.GetStatusHandler()(w, httptest.NewRequest(http.MethodPost, "/api/v1/healthring/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
