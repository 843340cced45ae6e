package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAsker struct{ got string }

func (f *fakeAsker) AskOrMaintenance(_ context.Context, q string) string {
	f.got = q
	return "answer to " + q
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(NewTool("b", "second", true, nil))
	r.Register(NewTool("a", "first", false, nil))

	tool, ok := r.Get("b")
	require.True(t, ok)
	assert.True(t, tool.RequiresAuth)

	_, ok = r.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, []Info{
		{Name: "a", Description: "first"},
		{Name: "b", Description: "second", RequiresAuth: true},
	}, r.List())
}

func TestExecuteFillsDefaults(t *testing.T) {
	tool := NewTool("x", "", false, func(context.Context, Invocation) (Result, error) {
		return Result{Answer: "hi"}, nil
	})
	res, err := tool.Execute(context.Background(), Invocation{})
	require.NoError(t, err)
	assert.Equal(t, "x", res.Action)
	assert.NotNil(t, res.Params)
}

func TestExecuteWrapsError(t *testing.T) {
	boom := errors.New("boom")
	tool := NewTool("x", "", false, func(context.Context, Invocation) (Result, error) {
		return Result{}, boom
	})
	_, err := tool.Execute(context.Background(), Invocation{})
	assert.ErrorIs(t, err, boom)
}

func TestKnowledgeTool(t *testing.T) {
	asker := &fakeAsker{}
	tool := NewKnowledgeTool(asker)
	assert.False(t, tool.RequiresAuth)

	res, err := tool.Execute(context.Background(), Invocation{Question: "what is the leave policy?"})
	require.NoError(t, err)
	assert.Equal(t, "answer to what is the leave policy?", res.Answer)
	assert.Equal(t, "ask_knowledge", res.Action)
	assert.Equal(t, "what is the leave policy?", asker.got)
}
