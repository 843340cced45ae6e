// Package llm classifies turns and phrases replies through the inference
// router.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cortexhub/orchestrator-gateway/internal/inference"
	"github.com/cortexhub/orchestrator-gateway/internal/logging"
	"github.com/cortexhub/orchestrator-gateway/internal/metrics"
)

// Message is one prior chat turn.
type Message = inference.Message

// Inferer runs a request on a named lane.
type Inferer interface {
	Infer(ctx context.Context, lane string, req *inference.Request) (*inference.Response, error)
}

// createKeywords trigger the create flow when the model is unavailable.
var createKeywords = []string{"tạo dự án", "tao du an", "tạo project", "create project", "create a project", "new project", "du an moi", "dự án mới"}

// HeuristicIntent picks an action from keywords alone.
func HeuristicIntent(question string) string {
	text := strings.ToLower(question)
	for _, k := range createKeywords {
		if strings.Contains(text, k) {
			return ActionCreateProject
		}
	}
	return ActionNoTool
}

// Service is the intent classifier and response generator.
type Service struct {
	infer        Inferer
	classifyLane string
	respondLane  string
	logger       *slog.Logger
}

// NewService creates a service using the given lanes. Empty lanes use the
// router's default.
func NewService(infer Inferer, classifyLane, respondLane string) *Service {
	return &Service{
		infer:        infer,
		classifyLane: classifyLane,
		respondLane:  respondLane,
		logger:       logging.WithComponent("llm"),
	}
}

// AnalyzeIntent classifies question. It never fails: model errors and
// malformed output fall back to HeuristicIntent.
func (s *Service) AnalyzeIntent(ctx context.Context, question string, snapshot map[string]any, history []Message) Plan {
	log := logging.FromContext(ctx, s.logger)
	temp := 0.0

	res, err := s.infer.Infer(ctx, s.classifyLane, &inference.Request{
		System:      classifySystem,
		Messages:    []inference.Message{{Role: inference.RoleUser, Content: classifyPrompt(question, snapshot, history)}},
		JSON:        true,
		Temperature: &temp,
	})
	if err == nil {
		plan, perr := ParsePlan(res.Content)
		if perr == nil {
			return plan
		}
		err = perr
	}

	metrics.ClassifierFallbacks.Inc()
	action := HeuristicIntent(question)
	log.Warn("intent classification failed, using keyword heuristic", "error", err, "action", action)
	return Plan{Action: action, Params: map[string]any{}}
}

// GenerateResponse phrases result as prose for the user. Callers should
// check LooksStructured and substitute a template when it reports true.
func (s *Service) GenerateResponse(ctx context.Context, question string, result any) (string, error) {
	res, err := s.infer.Infer(ctx, s.respondLane, &inference.Request{
		System:   respondSystem,
		Messages: []inference.Message{{Role: inference.RoleUser, Content: respondPrompt(question, result)}},
	})
	if err != nil {
		return "", fmt.Errorf("generate response: %w", err)
	}
	return strings.TrimSpace(res.Content), nil
}

// GenerateFollowup asks for the missing fields, falling back to a fixed
// sentence when the model fails.
func (s *Service) GenerateFollowup(ctx context.Context, missing []string, snapshot map[string]any) string {
	res, err := s.infer.Infer(ctx, s.respondLane, &inference.Request{
		System:   followupSystem,
		Messages: []inference.Message{{Role: inference.RoleUser, Content: followupPrompt(missing, snapshot)}},
	})
	if err != nil || strings.TrimSpace(res.Content) == "" || LooksStructured(res.Content) {
		if err != nil {
			logging.FromContext(ctx, s.logger).Warn("follow-up generation failed", "error", err)
		}
		return FollowupFallback(missing)
	}
	return strings.TrimSpace(res.Content)
}
