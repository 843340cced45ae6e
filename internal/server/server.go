package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cortexhub/orchestrator-gateway/internal/channel"
	"github.com/cortexhub/orchestrator-gateway/internal/config"
	"github.com/cortexhub/orchestrator-gateway/internal/gateway"
	"github.com/cortexhub/orchestrator-gateway/internal/inference"
	"github.com/cortexhub/orchestrator-gateway/internal/llm"
	"github.com/cortexhub/orchestrator-gateway/internal/logging"
	"github.com/cortexhub/orchestrator-gateway/internal/metrics"
	"github.com/cortexhub/orchestrator-gateway/internal/tools"
)

const (
	Role    = "Orchestrator"
	Version = "1.0.0"

	maxBodyBytes = 1 << 20
)

// Orchestrator is the conversational core behind the HTTP surface.
type Orchestrator interface {
	channel.Turner
	ClearSession(token string)
	Tools() []tools.Info
}

// EngineLister describes the configured inference engines.
type EngineLister interface {
	ListEngines() []inference.EngineInfo
	ListLanes() []inference.LaneInfo
	DefaultLane() string
}

// HealthReporter summarizes collaborator probes.
type HealthReporter interface {
	Summary() map[string]string
	GetStatusHandler() http.HandlerFunc
	GetMemberHandler() http.HandlerFunc
}

// Server represents the HTTP server
type Server struct {
	orchestrator Orchestrator
	engines      EngineLister
	healthRing   HealthReporter
	webchat      http.Handler
	handler      http.Handler
	corsOrigins  []string
	httpServer   *http.Server
	startTime    time.Time
	logger       *slog.Logger
}

// ChatRequest is the /chat request body.
type ChatRequest struct {
	Question string        `json:"question"`
	History  []llm.Message `json:"history,omitempty"`
}

// ErrorResponse is the body of every 4xx/5xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status        string            `json:"status"`
	Role          string            `json:"role"`
	Version       string            `json:"version"`
	Uptime        string            `json:"uptime"`
	Collaborators map[string]string `json:"collaborators,omitempty"`
	Timestamp     string            `json:"timestamp"`
}

// EnginesResponse lists engines and lanes.
type EnginesResponse struct {
	Engines     []inference.EngineInfo `json:"engines"`
	Lanes       []inference.LaneInfo   `json:"lanes"`
	DefaultLane string                 `json:"default_lane"`
}

// Option configures optional server parts.
type Option func(*Server)

// WithEngines exposes /api/v1/inference/engines.
func WithEngines(e EngineLister) Option {
	return func(s *Server) { s.engines = e }
}

// WithHealthRing adds collaborator probes to /health and /api/v1/healthring.
func WithHealthRing(h HealthReporter) Option {
	return func(s *Server) { s.healthRing = h }
}

// WithWebChat serves the WebSocket channel on /ws.
func WithWebChat(h http.Handler) Option {
	return func(s *Server) { s.webchat = h }
}

// New creates a new HTTP server
func New(cfg config.ServerConfig, orch Orchestrator, opts ...Option) *Server {
	s := &Server{
		orchestrator: orch,
		corsOrigins:  cfg.CORSOrigins,
		logger:       logging.WithComponent("server"),
		startTime:    time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/chat", s.instrument("/chat", s.chatHandler))
	mux.HandleFunc("/health", s.instrument("/health", s.healthHandler))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/v1/tools", s.instrument("/api/v1/tools", s.toolsHandler))
	mux.HandleFunc("/api/v1/session", s.instrument("/api/v1/session", s.sessionHandler))
	if s.engines != nil {
		mux.HandleFunc("/api/v1/inference/engines", s.instrument("/api/v1/inference/engines", s.listEnginesHandler))
	}
	if s.healthRing != nil {
		mux.HandleFunc("/api/v1/healthring/status", s.healthRing.GetStatusHandler())
		mux.HandleFunc("/api/v1/healthring/", s.healthRing.GetMemberHandler())
	}
	if s.webchat != nil {
		mux.Handle("/ws", s.webchat)
	}
	s.handler = s.cors(mux)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// chatHandler runs one conversational turn.
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	req, err := decodeChat(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", requestID)
	ctx := logging.WithRequestID(r.Context(), requestID)

	res, err := s.orchestrator.HandleTurn(ctx, req.Question, req.History, channel.TokenFromRequest(r))
	switch {
	case errors.Is(err, gateway.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "question is required")
		return
	case err != nil:
		logging.FromContext(ctx, s.logger).Error("turn failed", "error", err)
		res = tools.Result{Answer: gateway.TechnicalDifficultyMessage, Action: llm.ActionNoTool, Params: map[string]any{}}
	}
	writeJSON(w, http.StatusOK, res)
}

// decodeChat accepts only an object whose question is a string.
func decodeChat(body io.Reader) (*ChatRequest, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid JSON body")
	}
	q, ok := raw["question"]
	if !ok {
		return nil, fmt.Errorf("question is required")
	}
	req := &ChatRequest{}
	if err := json.Unmarshal(q, &req.Question); err != nil {
		return nil, fmt.Errorf("question must be a string")
	}
	if h, ok := raw["history"]; ok && string(h) != "null" {
		if err := json.Unmarshal(h, &req.History); err != nil {
			return nil, fmt.Errorf("history must be a list of {role, content}")
		}
	}
	return req, nil
}

// healthHandler handles health check requests
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	response := HealthResponse{
		Status:    "ok",
		Role:      Role,
		Version:   Version,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if s.healthRing != nil {
		response.Collaborators = s.healthRing.Summary()
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) toolsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.orchestrator.Tools())
}

// sessionHandler clears the caller's stored form state.
func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	token := channel.TokenFromRequest(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "authorization required")
		return
	}
	s.orchestrator.ClearSession(token)
	w.WriteHeader(http.StatusNoContent)
}

// listEnginesHandler lists available inference engines
func (s *Server) listEnginesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, EnginesResponse{
		Engines:     s.engines.ListEngines(),
		Lanes:       s.engines.ListLanes(),
		DefaultLane: s.engines.DefaultLane(),
	})
}

// cors adds CORS headers for allowed origins and answers preflight requests.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowedOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowedOrigin(origin string) string {
	if origin == "" {
		return ""
	}
	for _, o := range s.corsOrigins {
		if o == "*" {
			return "*"
		}
		if o == origin {
			return origin
		}
	}
	return ""
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		metrics.RequestCount.WithLabelValues(r.Method, endpoint, strconv.Itoa(rec.status)).Inc()
		metrics.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
