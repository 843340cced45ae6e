package inference

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cortexhub/orchestrator-gateway/internal/config"
	"github.com/cortexhub/orchestrator-gateway/internal/logging"
	"github.com/cortexhub/orchestrator-gateway/internal/metrics"
)

// Client is the interface for inference providers
type Client interface {
	Infer(ctx context.Context, req *Request) (*Response, error)
	Health(ctx context.Context) error
}

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Roles used in Message.Role.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Request represents an inference request
type Request struct {
	System   string
	Messages []Message
	Model    string
	// JSON asks the engine to answer with a single JSON object.
	JSON        bool
	Temperature *float64
}

// Response represents an inference response
type Response struct {
	Content    string
	Model      string
	TokensUsed int
	Lane       string
}

// Router manages inference engines and lanes
type Router struct {
	lanes       map[string]*Lane
	engines     map[string]*Engine
	defaultLane string
	mu          sync.RWMutex
}

// Lane represents an inference routing lane
type Lane struct {
	Name   string
	Engine *Engine
	Model  string
}

// Engine represents a runtime inference engine
type Engine struct {
	Name    string
	Type    string
	URL     string
	Models  []string
	Default string
	Client  Client
}

// EngineInfo is the public description of an engine.
type EngineInfo struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	URL     string   `json:"url,omitempty"`
	Models  []string `json:"models"`
	Default string   `json:"default_model"`
}

// LaneInfo is the public description of a lane.
type LaneInfo struct {
	Name   string `json:"name"`
	Engine string `json:"engine"`
	Model  string `json:"model"`
}

// NewRouter creates a new inference router from config
func NewRouter(ctx context.Context, cfg *config.InferenceConfig) (*Router, error) {
	log := logging.WithComponent("inference")
	r := &Router{
		lanes:       make(map[string]*Lane),
		engines:     make(map[string]*Engine),
		defaultLane: cfg.DefaultLane,
	}

	for _, ec := range cfg.Engines {
		models := ec.Models
		if len(models) == 0 {
			models = []string{defaultModelFor(ec.Type)}
		}
		client, err := createClient(ctx, ec, models[0])
		if err != nil {
			log.Warn("skipping engine", "engine", ec.Name, "error", err)
			continue
		}
		r.engines[ec.Name] = &Engine{
			Name:    ec.Name,
			Type:    ec.Type,
			URL:     ec.URL,
			Models:  models,
			Default: models[0],
			Client:  client,
		}
	}

	for _, lc := range cfg.Lanes {
		eng, ok := r.engines[lc.Engine]
		if !ok {
			log.Warn("engine not found for lane", "engine", lc.Engine, "lane", lc.Name)
			continue
		}
		model := lc.Model
		if model == "" {
			model = eng.Default
		}
		r.lanes[lc.Name] = &Lane{Name: lc.Name, Engine: eng, Model: model}
	}

	if r.defaultLane != "" {
		if _, ok := r.lanes[r.defaultLane]; !ok {
			return nil, fmt.Errorf("default lane %s not found", r.defaultLane)
		}
	} else if len(r.lanes) > 0 {
		names := make([]string, 0, len(r.lanes))
		for name := range r.lanes {
			names = append(names, name)
		}
		sort.Strings(names)
		r.defaultLane = names[0]
	}

	return r, nil
}

func defaultModelFor(typ string) string {
	switch typ {
	case "gemini":
		return "gemini-2.5-flash"
	case "ollama":
		return "llama3.1"
	default:
		return "gpt-4o-mini"
	}
}

func createClient(ctx context.Context, ec config.EngineConfig, defaultModel string) (Client, error) {
	switch ec.Type {
	case "ollama":
		return NewOllamaClient(&OllamaConfig{URL: ec.URL, DefaultModel: defaultModel, Timeout: ec.GetTimeout()})
	case "openai-compatible", "openai", "openrouter", "vllm":
		return NewOpenAIClient(&OpenAIConfig{BaseURL: ec.URL, APIKey: ec.APIKey, Model: defaultModel, Timeout: ec.GetTimeout()})
	case "gemini":
		return NewGeminiClient(ctx, &GeminiConfig{APIKey: ec.APIKey, Model: defaultModel})
	default:
		return nil, fmt.Errorf("unsupported inference type: %s", ec.Type)
	}
}

// Register adds or replaces an engine and a lane of the same name pointing at it.
func (r *Router) Register(name string, client Client, model string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	eng := &Engine{Name: name, Type: "custom", Models: []string{model}, Default: model, Client: client}
	r.engines[name] = eng
	r.lanes[name] = &Lane{Name: name, Engine: eng, Model: model}
	if r.defaultLane == "" {
		r.defaultLane = name
	}
}

// HasLane reports whether lane is configured.
func (r *Router) HasLane(lane string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.lanes[lane]
	return ok
}

// Infer routes the request to the appropriate engine
func (r *Router) Infer(ctx context.Context, lane string, req *Request) (*Response, error) {
	r.mu.RLock()
	if lane == "" || r.lanes[lane] == nil {
		lane = r.defaultLane
	}
	target, ok := r.lanes[lane]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("lane %s not found", lane)
	}

	if req.Model == "" || !target.Engine.hasModel(req.Model) {
		req.Model = target.Model
	}

	start := time.Now()
	res, err := target.Engine.Client.Infer(ctx, req)
	metrics.InferenceLatency.WithLabelValues(lane).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("lane %s: %w", lane, err)
	}
	res.Lane = lane
	return res, nil
}

func (e *Engine) hasModel(model string) bool {
	for _, m := range e.Models {
		if m == model {
			return true
		}
	}
	return false
}

// Health checks all engines
func (r *Router) Health(ctx context.Context) map[string]error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make(map[string]error)
	for name, eng := range r.engines {
		results[name] = eng.Client.Health(ctx)
	}
	return results
}

// ListEngines returns the configured engines sorted by name
func (r *Router) ListEngines() []EngineInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]EngineInfo, 0, len(r.engines))
	for _, e := range r.engines {
		list = append(list, EngineInfo{Name: e.Name, Type: e.Type, URL: e.URL, Models: e.Models, Default: e.Default})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// ListLanes returns the configured lanes sorted by name
func (r *Router) ListLanes() []LaneInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]LaneInfo, 0, len(r.lanes))
	for _, l := range r.lanes {
		list = append(list, LaneInfo{Name: l.Name, Engine: l.Engine.Name, Model: l.Model})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// DefaultLane returns the lane used when none is requested.
func (r *Router) DefaultLane() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultLane
}
