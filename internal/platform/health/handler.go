// Package health serves the liveness, readiness and status probes.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"vcregistry/pkg/platform/httputil"
)

// Version is set at build time via ldflags.
var Version = "dev"

const defaultCheckTimeout = 2 * time.Second

// CheckFunc reports the health of one dependency; nil means healthy.
type CheckFunc func(ctx context.Context) error

type namedCheck struct {
	name  string
	check CheckFunc
}

// Handler serves the probes. Dependencies register readiness checks at
// startup; a failing check turns /health/ready into a 503.
type Handler struct {
	started      time.Time
	environment  string
	checkTimeout time.Duration

	mu     sync.RWMutex
	checks []namedCheck
}

func New(environment string) *Handler {
	return &Handler{
		started:      time.Now(),
		environment:  environment,
		checkTimeout: defaultCheckTimeout,
	}
}

// RegisterCheck adds or replaces the readiness check called name.
func (h *Handler) RegisterCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.checks {
		if h.checks[i].name == name {
			h.checks[i].check = check
			return
		}
	}
	h.checks = append(h.checks, namedCheck{name: name, check: check})
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleStatus)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

type LivenessResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, LivenessResponse{Status: "alive"})
}

// CheckResult is the outcome of one readiness check.
type CheckResult struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type ReadinessResponse struct {
	Status string        `json:"status"`
	Checks []CheckResult `json:"checks"`
}

// HandleReadiness runs every check concurrently under a shared deadline.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := append([]namedCheck(nil), h.checks...)
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(r.Context(), h.checkTimeout)
	defer cancel()

	results := make([]CheckResult, len(checks))
	var g errgroup.Group
	for i, c := range checks {
		g.Go(func() error {
			start := time.Now()
			err := c.check(ctx)
			res := CheckResult{Name: c.name, Status: "up", LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				res.Status = "down"
				res.Error = err.Error()
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	resp := ReadinessResponse{Status: "ready", Checks: results}
	status := http.StatusOK
	for _, res := range results {
		if res.Status != "up" {
			resp.Status = "not_ready"
			status = http.StatusServiceUnavailable
			break
		}
	}
	httputil.WriteJSON(w, status, resp)
}

type StatusResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Environment   string `json:"environment"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Timestamp     string `json:"timestamp"`
}

func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Status:        "healthy",
		Version:       Version,
		Environment:   h.environment,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	})
}
