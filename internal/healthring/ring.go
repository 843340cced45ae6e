// Package healthring probes the gateway's collaborators and keeps a short
// history of the results.
package healthring

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cortexhub/orchestrator-gateway/internal/config"
	"github.com/cortexhub/orchestrator-gateway/internal/logging"
	"github.com/cortexhub/orchestrator-gateway/internal/metrics"
)

const (
	StatusUnknown = "unknown"
	StatusUp      = "up"
	StatusDown    = "down"
)

// Checker is anything that can report its own health.
type Checker interface {
	Health(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Health(ctx context.Context) error { return f(ctx) }

type HealthCheckResult struct {
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

type MemberStatus struct {
	Name    string              `json:"name"`
	Status  string              `json:"status"`
	History []HealthCheckResult `json:"history"`
}

type member struct {
	checker Checker
	status  *MemberStatus
}

type HealthRing struct {
	mu          sync.RWMutex
	members     map[string]*member
	timeout     time.Duration
	historySize int
	logger      *slog.Logger
}

// NewHealthRing creates a ring with the HTTP members from cfg. Collaborator
// clients are added with Add.
func NewHealthRing(cfg config.HealthRingConfig) *HealthRing {
	h := &HealthRing{
		members:     make(map[string]*member),
		timeout:     5 * time.Second,
		historySize: 10,
		logger:      logging.WithComponent("healthring"),
	}
	client := &http.Client{Timeout: h.timeout}
	for _, mc := range cfg.Members {
		h.Add(mc.Name, HTTPCheck(client, mc.URL, mc.ExpectStatus))
	}
	return h
}

// Add registers or replaces a member.
func (h *HealthRing) Add(name string, c Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.members[name] = &member{
		checker: c,
		status:  &MemberStatus{Name: name, Status: StatusUnknown, History: make([]HealthCheckResult, 0)},
	}
}

// HTTPCheck probes url with GET and expects expectStatus (200 when nil).
func HTTPCheck(client *http.Client, url string, expectStatus *int) Checker {
	expect := http.StatusOK
	if expectStatus != nil {
		expect = *expectStatus
	}
	return CheckerFunc(func(ctx context.Context) error {
		if url == "" {
			return fmt.Errorf("url required for http check")
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != expect {
			return fmt.Errorf("status %d expected %d", resp.StatusCode, expect)
		}
		return nil
	})
}

// CheckAll probes every member concurrently and records the results.
func (h *HealthRing) CheckAll(ctx context.Context) {
	h.mu.RLock()
	names := make([]string, 0, len(h.members))
	checkers := make([]Checker, 0, len(h.members))
	for name, m := range h.members {
		names = append(names, name)
		checkers = append(checkers, m.checker)
	}
	h.mu.RUnlock()

	results := make([]HealthCheckResult, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i := range names {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, h.timeout)
			defer cancel()
			res := HealthCheckResult{Timestamp: time.Now(), Success: true}
			if err := checkers[i].Health(cctx); err != nil {
				res.Success = false
				res.Error = err.Error()
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	h.mu.Lock()
	defer h.mu.Unlock()
	for i, name := range names {
		m, ok := h.members[name]
		if !ok {
			continue
		}
		h.record(m.status, results[i])
	}
}

func (h *HealthRing) record(status *MemberStatus, res HealthCheckResult) {
	status.Status = StatusUp
	up := 1.0
	if !res.Success {
		status.Status = StatusDown
		up = 0
	}
	status.History = append(status.History, res)
	if len(status.History) > h.historySize {
		status.History = status.History[1:]
	}
	metrics.CollaboratorUp.WithLabelValues(status.Name).Set(up)
	h.logger.Debug("Health check for member", "name", status.Name, "status", status.Status, "error", res.Error)
}

// Status returns a copy of every member's status.
func (h *HealthRing) Status() map[string]*MemberStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	m := make(map[string]*MemberStatus, len(h.members))
	for k, v := range h.members {
		m[k] = copyStatus(v.status)
	}
	return m
}

// Summary maps member names to their current status string.
func (h *HealthRing) Summary() map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]string, len(h.members))
	for k, v := range h.members {
		out[k] = v.status.Status
	}
	return out
}

// Names returns the member names sorted.
func (h *HealthRing) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.members))
	for k := range h.members {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (h *HealthRing) GetMemberStatus(name string) (*MemberStatus, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	m, ok := h.members[name]
	if !ok {
		return nil, fmt.Errorf("member not found")
	}
	return copyStatus(m.status), nil
}

func copyStatus(s *MemberStatus) *MemberStatus {
	c := *s
	c.History = append([]HealthCheckResult(nil), s.History...)
	return &c
}

func (h *HealthRing) GetStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(h.Status()); err != nil {
			http.Error(w, "Encode error", http.StatusInternalServerError)
		}
	}
}

func (h *HealthRing) GetMemberHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		name := strings.TrimPrefix(r.URL.Path, "/api/v1/healthring/")
		if name == "" {
			http.Error(w, "Member name required", http.StatusBadRequest)
			return
		}
		member, err := h.GetMemberStatus(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(member); err != nil {
			http.Error(w, "Encode error", http.StatusInternalServerError)
		}
	}
}
