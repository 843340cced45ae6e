package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexhub/orchestrator-gateway/internal/inference"
)

type fakeInferer struct {
	reply string
	err   error
	lanes []string
	reqs  []*inference.Request
}

func (f *fakeInferer) Infer(_ context.Context, lane string, req *inference.Request) (*inference.Response, error) {
	f.lanes = append(f.lanes, lane)
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &inference.Response{Content: f.reply}, nil
}

func TestExtractJSON(t *testing.T) {
	raw, ok := ExtractJSON("Sure! ```json\n{\"action\":\"NO_TOOL\",\"params\":{}}\n``` hope it helps {x}")
	require.True(t, ok)
	assert.JSONEq(t, `{"action":"NO_TOOL","params":{}}`, string(raw))

	raw, ok = ExtractJSON(`{broken {"action":"ask_knowledge"}`)
	require.True(t, ok)
	assert.JSONEq(t, `{"action":"ask_knowledge"}`, string(raw))

	_, ok = ExtractJSON("no braces here")
	assert.False(t, ok)
}

func TestParsePlan(t *testing.T) {
	plan, err := ParsePlan(`{"action":"create_project","params":{"name":"Apollo","company_id":3}}`)
	require.NoError(t, err)
	assert.Equal(t, ActionCreateProject, plan.Action)
	assert.Equal(t, "Apollo", plan.Params["name"])
	assert.Equal(t, float64(3), plan.Params["company_id"])

	plan, err = ParsePlan(`{"action":"NO_TOOL","params":null}`)
	require.NoError(t, err)
	assert.NotNil(t, plan.Params)
}

func TestParsePlan_RejectsSchemaViolations(t *testing.T) {
	for _, text := range []string{
		`{"action":"delete_everything","params":{}}`,
		`{"action":42}`,
		`{"params":{}}`,
		`{"action":"create_project","params":"name=Apollo"}`,
		`plain words`,
	} {
		_, err := ParsePlan(text)
		assert.ErrorIs(t, err, ErrUnparseable, text)
	}
}

func TestLooksStructured(t *testing.T) {
	assert.True(t, LooksStructured(`{"id": 1}`))
	assert.True(t, LooksStructured("```json\n{}\n```"))
	assert.True(t, LooksStructured(`[1,2]`))
	assert.True(t, LooksStructured("   "))
	assert.False(t, LooksStructured("Project Apollo (AP01) was created in Frontend."))
}

func TestHeuristicIntent(t *testing.T) {
	assert.Equal(t, ActionCreateProject, HeuristicIntent("Mình muốn TẠO DỰ ÁN mới"))
	assert.Equal(t, ActionCreateProject, HeuristicIntent("please create project for me"))
	assert.Equal(t, ActionNoTool, HeuristicIntent("what's the leave policy?"))
}

func TestAnalyzeIntent(t *testing.T) {
	f := &fakeInferer{reply: "```json\n{\"action\":\"ask_knowledge\",\"params\":{\"query\":\"leave\"}}\n```"}
	s := NewService(f, "classify", "respond")

	plan := s.AnalyzeIntent(context.Background(), "leave policy?", map[string]any{}, []Message{{Role: "user", Content: "hi"}})

	assert.Equal(t, ActionAskKnowledge, plan.Action)
	assert.Equal(t, []string{"classify"}, f.lanes)
	require.Len(t, f.reqs, 1)
	assert.True(t, f.reqs[0].JSON)
	assert.Contains(t, f.reqs[0].Messages[0].Content, "[user]: hi")
}

func TestAnalyzeIntent_FallsBackOnError(t *testing.T) {
	s := NewService(&fakeInferer{err: errors.New("quota exceeded")}, "", "")
	plan := s.AnalyzeIntent(context.Background(), "tạo dự án Apollo", nil, nil)
	assert.Equal(t, ActionCreateProject, plan.Action)
	assert.Empty(t, plan.Params)
}

func TestAnalyzeIntent_FallsBackOnGarbage(t *testing.T) {
	s := NewService(&fakeInferer{reply: "I think the user wants a project"}, "", "")
	plan := s.AnalyzeIntent(context.Background(), "hello", nil, nil)
	assert.Equal(t, ActionNoTool, plan.Action)
}

func TestGenerateFollowup(t *testing.T) {
	s := NewService(&fakeInferer{reply: "Which workspace and when does it end?"}, "", "respond")
	assert.Equal(t, "Which workspace and when does it end?", s.GenerateFollowup(context.Background(), []string{"workspace_id", "end_date"}, nil))

	s = NewService(&fakeInferer{err: errors.New("down")}, "", "")
	assert.Equal(t, "I still need: workspace_id, end_date. Could you fill those in?",
		s.GenerateFollowup(context.Background(), []string{"workspace_id", "end_date"}, nil))
}

func TestGenerateResponse(t *testing.T) {
	s := NewService(&fakeInferer{reply: "  Done!  "}, "", "")
	text, err := s.GenerateResponse(context.Background(), "q", map[string]any{"ok": true})
	require.NoError(t, err)
	assert.Equal(t, "Done!", text)

	s = NewService(&fakeInferer{err: errors.New("down")}, "", "")
	_, err = s.GenerateResponse(context.Background(), "q", nil)
	assert.Error(t, err)
}
