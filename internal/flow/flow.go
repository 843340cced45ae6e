// Package flow runs the create_project conversation: it collects the
// required fields across turns, asks for confirmation, and calls the
// backend once the user agrees.
//
// The state lives in the session. A session without the pending flag is
// collecting; with it, the flow is waiting for a yes, a no or an edit.
// Execution happens inside the confirming turn that said yes.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/cortexhub/orchestrator-gateway/internal/backend"
	"github.com/cortexhub/orchestrator-gateway/internal/events"
	"github.com/cortexhub/orchestrator-gateway/internal/llm"
	"github.com/cortexhub/orchestrator-gateway/internal/logging"
	"github.com/cortexhub/orchestrator-gateway/internal/merge"
	"github.com/cortexhub/orchestrator-gateway/internal/metrics"
	"github.com/cortexhub/orchestrator-gateway/internal/session"
	"github.com/cortexhub/orchestrator-gateway/internal/tools"
)

// Replies with fixed wording.
const (
	CancelledMessage = "The project creation was cancelled. You can start again with new details whenever you like."
	ExpiredMessage   = "Your login has expired or is invalid. Please sign in again; your project details are kept."
)

// Outcome labels for metrics and logs.
const (
	OutcomeGuidance  = "guidance"
	OutcomeMissing   = "missing"
	OutcomeInvalid   = "invalid"
	OutcomeConfirm   = "confirm"
	OutcomeResummary = "resummary"
	OutcomeReask     = "reask"
	OutcomeCancelled = "cancelled"
	OutcomeCreated   = "created"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

// Resolver maps company/workspace references in s to ids.
type Resolver interface {
	Resolve(ctx context.Context, s *session.Session, token, text string) string
}

// Creator calls the backend create operation.
type Creator interface {
	CreateProject(ctx context.Context, token string, req backend.CreateProjectRequest) (*backend.CreateResult, error)
}

// Responder phrases replies.
type Responder interface {
	GenerateResponse(ctx context.Context, question string, result any) (string, error)
	GenerateFollowup(ctx context.Context, missing []string, snapshot map[string]any) string
}

// Flow is the create_project tool.
type Flow struct {
	store     session.Store
	resolver  Resolver
	creator   Creator
	responder Responder
	replies   ReplyClassifier
	events    events.Publisher
	logger    *slog.Logger
}

// New wires a flow. A nil publisher disables events; a nil classifier uses
// the Vietnamese and English keyword sets.
func New(store session.Store, resolver Resolver, creator Creator, responder Responder, replies ReplyClassifier, pub events.Publisher) *Flow {
	if replies == nil {
		replies = NewKeywordClassifier("vi", "en")
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &Flow{
		store:     store,
		resolver:  resolver,
		creator:   creator,
		responder: responder,
		replies:   replies,
		events:    pub,
		logger:    logging.WithComponent("flow"),
	}
}

// Tool exposes the flow as the auth-only create_project action.
func (f *Flow) Tool() *tools.Tool {
	return tools.NewTool(llm.ActionCreateProject, "Create a project through a guided conversation", true, f.Handle)
}

// Handle runs one turn of the flow.
func (f *Flow) Handle(ctx context.Context, inv tools.Invocation) (tools.Result, error) {
	s := inv.Candidate.Session()
	log := logging.FromContext(ctx, f.logger).With("token_ref", logging.TokenRef(inv.Token))
	reply := f.replies.Classify(inv.Question)

	// A deny is honoured before resolution calls the identity service.
	if s.PendingConfirmation && reply.Deny {
		f.store.Clear(inv.Token)
		f.publish(ctx, events.TypeProjectCancelled, inv.Token, map[string]any{"params": s.Snapshot()})
		return f.result(ctx, OutcomeCancelled, CancelledMessage, session.New(), nil), nil
	}

	if guidance := f.resolver.Resolve(ctx, s, inv.Token, inv.Question); guidance != "" {
		return f.persist(ctx, inv.Token, s, OutcomeGuidance, guidance)
	}

	if missing := s.Missing(); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, m := range missing {
			names[i] = string(m)
		}
		question := f.responder.GenerateFollowup(ctx, names, s.Snapshot())
		return f.persist(ctx, inv.Token, s, OutcomeMissing, question)
	}

	if problems := Validate(s); len(problems) > 0 {
		return f.persist(ctx, inv.Token, s, OutcomeInvalid, strings.Join(problems, " "))
	}

	if !s.PendingConfirmation {
		s.PendingConfirmation = true
		return f.persist(ctx, inv.Token, s, OutcomeConfirm,
			fmt.Sprintf(`Please confirm the new project: %s. Reply "yes" to create it or "cancel" to stop.`, Summary(s)))
	}

	if edited := effectiveChanges(inv.Prior, s, inv.Changes); !edited.Empty() || reply.Edit {
		log.Debug("details edited while confirming", "fields", edited.Strings())
		return f.persist(ctx, inv.Token, s, OutcomeResummary,
			fmt.Sprintf(`Updated. Please check again: %s. Reply "yes" to create it or "cancel" to stop.`, Summary(s)))
	}

	if !reply.Affirm {
		return f.persist(ctx, inv.Token, s, OutcomeReask,
			fmt.Sprintf(`Please reply "yes" to create the project or "cancel" to stop. Current details: %s`, Summary(s)))
	}

	return f.execute(ctx, inv, s)
}

// effectiveChanges drops changes that resolution mapped back to the stored
// value, such as a company name echoed by the classifier.
func effectiveChanges(prior, resolved *session.Session, changes merge.ChangeSet) merge.ChangeSet {
	var out merge.ChangeSet
	for _, f := range changes {
		if resolved.Get(f) != prior.Get(f) {
			out = append(out, f)
		}
	}
	return out
}

func (f *Flow) execute(ctx context.Context, inv tools.Invocation, s *session.Session) (tools.Result, error) {
	log := logging.FromContext(ctx, f.logger).With("token_ref", logging.TokenRef(inv.Token))

	req, err := createRequest(s)
	if err != nil {
		// The resolver only stores numeric ids, so this means a corrupted session.
		s.PendingConfirmation = false
		return f.persist(ctx, inv.Token, s, OutcomeFailed, "I could not read the company or workspace id. Please tell me which company and workspace to use.")
	}

	res, err := f.creator.CreateProject(ctx, inv.Token, req)
	if err != nil {
		return f.executeFailed(ctx, inv, s, err)
	}

	s.PendingConfirmation = false
	answer := f.successAnswer(ctx, inv.Question, res, s)
	f.store.Clear(inv.Token)

	log.Info("project created", "project_id", res.Project.ID, "code", res.Project.ProjectCode)
	f.publish(ctx, events.TypeProjectCreated, inv.Token, map[string]any{
		"project_id":   res.Project.ID,
		"name":         res.Project.Name,
		"code":         res.Project.ProjectCode,
		"company_id":   req.CompanyID,
		"workspace_id": req.WorkspaceID,
	})
	return f.result(ctx, OutcomeCreated, answer, session.New(), res.Raw), nil
}

func (f *Flow) executeFailed(ctx context.Context, inv tools.Invocation, s *session.Session, err error) (tools.Result, error) {
	log := logging.FromContext(ctx, f.logger).With("token_ref", logging.TokenRef(inv.Token))
	raw := backendRaw(err)

	switch {
	case backend.IsDuplicateCode(err):
		s.PendingConfirmation = false
		if saveErr := f.store.Save(inv.Token, s); saveErr != nil {
			return tools.Result{}, saveErr
		}
		f.publish(ctx, events.TypeProjectDuplicate, inv.Token, map[string]any{"code": s.Get(session.Code)})
		msg := fmt.Sprintf("The project code %q already exists in this workspace. Please give me a different code.", s.Get(session.Code))
		return f.result(ctx, OutcomeDuplicate, msg, s, raw), nil

	case errors.Is(err, backend.ErrUnauthorized):
		return f.result(ctx, OutcomeFailed, ExpiredMessage, s, raw), nil

	default:
		log.Error("project creation failed", "error", err)
		f.publish(ctx, events.TypeProjectFailed, inv.Token, map[string]any{"error": err.Error()})
		msg := fmt.Sprintf(`Something went wrong while creating the project: %v. Your details are kept; reply "yes" to try again.`, err)
		return f.result(ctx, OutcomeFailed, msg, s, raw), nil
	}
}

func (f *Flow) successAnswer(ctx context.Context, question string, res *backend.CreateResult, s *session.Session) string {
	payload := map[string]any{
		"action":  llm.ActionCreateProject,
		"project": res.Project,
		"params":  s.Snapshot(),
	}
	text, err := f.responder.GenerateResponse(ctx, question, payload)
	if err != nil || llm.LooksStructured(text) {
		return ProjectCreated(res.Project, s)
	}
	return text
}

func createRequest(s *session.Session) (backend.CreateProjectRequest, error) {
	cid, err := strconv.ParseInt(s.Get(session.CompanyID), 10, 64)
	if err != nil {
		return backend.CreateProjectRequest{}, fmt.Errorf("company id: %w", err)
	}
	wid, err := strconv.ParseInt(s.Get(session.WorkspaceID), 10, 64)
	if err != nil {
		return backend.CreateProjectRequest{}, fmt.Errorf("workspace id: %w", err)
	}
	return backend.CreateProjectRequest{
		CompanyID:   cid,
		WorkspaceID: wid,
		Name:        s.Get(session.Name),
		Code:        s.Get(session.Code),
		Description: s.Get(session.Description),
		StartDate:   s.Get(session.StartDate),
		EndDate:     s.Get(session.EndDate),
		Priority:    s.Get(session.Priority),
	}, nil
}

func backendRaw(err error) any {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && len(apiErr.Body) > 0 {
		return apiErr.Body
	}
	return nil
}

func (f *Flow) persist(ctx context.Context, token string, s *session.Session, outcome, answer string) (tools.Result, error) {
	if err := f.store.Save(token, s); err != nil {
		return tools.Result{}, fmt.Errorf("save session: %w", err)
	}
	return f.result(ctx, outcome, answer, s, nil), nil
}

func (f *Flow) result(ctx context.Context, outcome, answer string, s *session.Session, raw any) tools.Result {
	metrics.FlowTransitions.WithLabelValues(outcome).Inc()
	logging.FromContext(ctx, f.logger).Debug("flow turn", "outcome", outcome)
	return tools.Result{
		Answer:     answer,
		Action:     llm.ActionCreateProject,
		Params:     s.Snapshot(),
		BackendRaw: raw,
	}
}

func (f *Flow) publish(ctx context.Context, eventType, token string, payload map[string]any) {
	if err := f.events.Publish(ctx, events.New(eventType, logging.TokenRef(token), payload)); err != nil {
		logging.FromContext(ctx, f.logger).Warn("event publish failed", "type", eventType, "error", err)
	}
}
