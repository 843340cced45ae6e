package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cortexhub/orchestrator-gateway/internal/llm"
	"github.com/cortexhub/orchestrator-gateway/internal/merge"
	"github.com/cortexhub/orchestrator-gateway/internal/session"
)

// Invocation is everything a tool handler gets for one turn.
type Invocation struct {
	Question string
	History  []llm.Message
	Token    string
	// Prior is the session as stored before this turn.
	Prior     *session.Session
	Candidate *merge.Candidate
	Changes   merge.ChangeSet
}

// Result is the reply of a tool handler.
type Result struct {
	Answer     string         `json:"answer"`
	Action     string         `json:"action"`
	Params     map[string]any `json:"params"`
	BackendRaw any            `json:"backend_raw_data,omitempty"`
}

// Handler runs a tool for one turn.
type Handler func(ctx context.Context, inv Invocation) (Result, error)

// Tool represents an action the gateway can dispatch to
type Tool struct {
	Name         string
	Description  string
	RequiresAuth bool
	Handler      Handler
}

// NewTool creates a new tool
func NewTool(name, desc string, requiresAuth bool, handler Handler) *Tool {
	return &Tool{
		Name:         name,
		Description:  desc,
		RequiresAuth: requiresAuth,
		Handler:      handler,
	}
}

// Execute runs the tool with the given invocation
func (t *Tool) Execute(ctx context.Context, inv Invocation) (Result, error) {
	res, err := t.Handler(ctx, inv)
	if err != nil {
		return Result{}, fmt.Errorf("tool %s: %w", t.Name, err)
	}
	if res.Action == "" {
		res.Action = t.Name
	}
	if res.Params == nil {
		res.Params = map[string]any{}
	}
	return res, nil
}

// Registry maps action names to tools
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool, replacing any tool of the same name.
func (r *Registry) Register(t *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name] = t
}

// Get returns the tool registered for action.
func (r *Registry) Get(action string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[action]
	return t, ok
}

// Info describes a registered tool.
type Info struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	RequiresAuth bool   `json:"requires_auth"`
}

// List returns the registered tools sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Info, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, Info{Name: t.Name, Description: t.Description, RequiresAuth: t.RequiresAuth})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
