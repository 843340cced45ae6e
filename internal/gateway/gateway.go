// Package gateway runs one conversational turn: classify, merge, dispatch.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/cortexhub/orchestrator-gateway/internal/llm"
	"github.com/cortexhub/orchestrator-gateway/internal/logging"
	"github.com/cortexhub/orchestrator-gateway/internal/merge"
	"github.com/cortexhub/orchestrator-gateway/internal/metrics"
	"github.com/cortexhub/orchestrator-gateway/internal/session"
	"github.com/cortexhub/orchestrator-gateway/internal/tools"
)

// ErrInvalidInput is returned for a turn without a question.
var ErrInvalidInput = errors.New("gateway: question is required")

// Fixed replies.
const (
	UnauthenticatedMessage = "You need to sign in before I can do that. Please log in and try again."
	NoToolFallback         = "I can help you create a project or answer questions from the knowledge base. What would you like to do?"

	TechnicalDifficultyMessage = "Sorry, I ran into a technical problem. Please try again in a moment."
)

// Classifier picks the action for a turn.
type Classifier interface {
	AnalyzeIntent(ctx context.Context, question string, snapshot map[string]any, history []llm.Message) llm.Plan
}

// Responder phrases the reply when no tool handles the turn.
type Responder interface {
	GenerateResponse(ctx context.Context, question string, result any) (string, error)
}

// Gateway is the orchestration entry point shared by every channel.
type Gateway struct {
	store      session.Store
	classifier Classifier
	responder  Responder
	merger     *merge.Engine
	registry   *tools.Registry
	logger     *slog.Logger
}

// New creates a gateway.
func New(store session.Store, classifier Classifier, responder Responder, merger *merge.Engine, registry *tools.Registry) *Gateway {
	if merger == nil {
		merger = merge.NewEngine(nil)
	}
	return &Gateway{
		store:      store,
		classifier: classifier,
		responder:  responder,
		merger:     merger,
		registry:   registry,
		logger:     logging.WithComponent("gateway"),
	}
}

// HandleTurn answers one user message. Turns on the same token run one at a
// time; different tokens run in parallel.
func (g *Gateway) HandleTurn(ctx context.Context, text string, history []llm.Message, token string) (tools.Result, error) {
	if strings.TrimSpace(text) == "" {
		return tools.Result{}, ErrInvalidInput
	}
	if logging.RequestID(ctx) == "" {
		ctx = logging.WithRequestID(ctx, uuid.NewString())
	}
	log := logging.FromContext(ctx, g.logger).With("token_ref", logging.TokenRef(token))

	unlock := g.store.Lock(token)
	defer unlock()

	prior := g.store.Get(token)
	plan := g.classifier.AnalyzeIntent(ctx, text, prior.Snapshot(), history)
	if plan.Action == llm.ActionNoTool && prior.InFlow() {
		metrics.ClassifierOverrides.Inc()
		log.Debug("continuing create flow despite NO_TOOL classification")
		plan.Action = llm.ActionCreateProject
	}
	log.Info("turn classified", "action", plan.Action)

	tool, ok := g.registry.Get(plan.Action)
	if !ok {
		metrics.TurnsTotal.WithLabelValues(llm.ActionNoTool).Inc()
		return g.noTool(ctx, text, plan), nil
	}
	metrics.TurnsTotal.WithLabelValues(tool.Name).Inc()

	if tool.RequiresAuth && token == "" {
		return tools.Result{Answer: UnauthenticatedMessage, Action: tool.Name, Params: map[string]any{}}, nil
	}

	cand, changes := g.merger.Merge(prior, plan.Params, text)
	log.Debug("parameters merged", "provenance", cand.Provenance(), "changes", changes.Strings())

	res, err := tool.Execute(ctx, tools.Invocation{
		Question:  text,
		History:   history,
		Token:     token,
		Prior:     prior,
		Candidate: cand,
		Changes:   changes,
	})
	if err != nil {
		log.Error("tool failed", "action", tool.Name, "error", err)
		return tools.Result{}, fmt.Errorf("handle turn: %w", err)
	}
	return res, nil
}

func (g *Gateway) noTool(ctx context.Context, text string, plan llm.Plan) tools.Result {
	answer, err := g.responder.GenerateResponse(ctx, text, map[string]any{
		"action": llm.ActionNoTool,
		"params": plan.Params,
	})
	if err != nil || llm.LooksStructured(answer) {
		if err != nil {
			logging.FromContext(ctx, g.logger).Warn("no-tool reply failed", "error", err)
		}
		answer = NoToolFallback
	}
	params := plan.Params
	if params == nil {
		params = map[string]any{}
	}
	return tools.Result{Answer: answer, Action: llm.ActionNoTool, Params: params}
}

// Session returns the stored form state for token.
func (g *Gateway) Session(token string) map[string]any {
	return g.store.Get(token).Snapshot()
}

// ClearSession drops the stored form state for token.
func (g *Gateway) ClearSession(token string) {
	unlock := g.store.Lock(token)
	defer unlock()
	g.store.Clear(token)
}

// Tools lists the dispatchable actions.
func (g *Gateway) Tools() []tools.Info {
	return g.registry.List()
}
