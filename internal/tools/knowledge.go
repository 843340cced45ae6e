package tools

import (
	"context"

	"github.com/cortexhub/orchestrator-gateway/internal/llm"
)

// Asker answers free-text questions, never failing.
type Asker interface {
	AskOrMaintenance(ctx context.Context, question string) string
}

// NewKnowledgeTool forwards the raw question to the knowledge service and
// returns its answer verbatim.
func NewKnowledgeTool(asker Asker) *Tool {
	return NewTool(llm.ActionAskKnowledge, "Answer questions about processes and documentation", false,
		func(ctx context.Context, inv Invocation) (Result, error) {
			return Result{
				Answer: asker.AskOrMaintenance(ctx, inv.Question),
				Action: llm.ActionAskKnowledge,
				Params: map[string]any{"query": inv.Question},
			}, nil
		})
}
