// AngelaMos | 2026
// handler.go

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

type Checker interface {
	Ping(ctx context.Context) error
}

// CheckerFunc adapts a ping function to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// Handler serves liveness and readiness. Readiness pings every registered
// dependency; only required checks can degrade it.
type Handler struct {
	names    []string
	checkers map[string]Checker
	advisory map[string]bool
	ready    atomic.Bool
	shutdown atomic.Bool
}

func NewHandler() *Handler {
	h := &Handler{
		checkers: make(map[string]Checker),
		advisory: make(map[string]bool),
	}
	h.ready.Store(true)
	return h
}

// Register adds a named dependency to the readiness checks. A nil checker
// is ignored.
func (h *Handler) Register(name string, c Checker) *Handler {
	if c == nil {
		return h
	}
	if _, ok := h.checkers[name]; !ok {
		h.names = append(h.names, name)
	}
	h.checkers[name] = c
	delete(h.advisory, name)
	return h
}

// RegisterAdvisory adds a check that is reported on readiness but never
// degrades it. Its error text is shown as the message.
func (h *Handler) RegisterAdvisory(name string, c Checker) *Handler {
	if c == nil {
		return h
	}
	h.Register(name, c)
	h.advisory[name] = true
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Liveness)
	r.Get("/livez", h.Liveness)
	r.Get("/readyz", h.Readiness)
}

func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	if h.shutdown.Load() {
		h.writeStatus(w, http.StatusServiceUnavailable, StatusResponse{
			Status: "shutting_down",
		})
		return
	}

	h.writeStatus(w, http.StatusOK, StatusResponse{
		Status: "ok",
	})
}

func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.shutdown.Load() {
		h.writeStatus(w, http.StatusServiceUnavailable, StatusResponse{
			Status: "shutting_down",
		})
		return
	}

	if !h.ready.Load() {
		h.writeStatus(w, http.StatusServiceUnavailable, StatusResponse{
			Status: "not_ready",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := h.runHealthChecks(ctx)

	status := "ok"
	statusCode := http.StatusOK
	for _, check := range checks {
		if !check.Healthy && !check.Advisory {
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
			break
		}
	}

	h.writeStatus(w, statusCode, ReadinessResponse{
		Status: status,
		Checks: checks,
	})
}

func (h *Handler) runHealthChecks(ctx context.Context) []HealthCheck {
	var wg sync.WaitGroup
	checks := make([]HealthCheck, len(h.names))

	for i, name := range h.names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			checks[i] = check(ctx, name, h.checkers[name], h.advisory[name])
		}()
	}

	wg.Wait()
	return checks
}

func check(ctx context.Context, name string, c Checker, advisory bool) HealthCheck {
	result := HealthCheck{
		Name:     name,
		Healthy:  true,
		Advisory: advisory,
	}

	start := time.Now()
	err := c.Ping(ctx)
	result.Latency = time.Since(start).String()

	if err != nil {
		result.Healthy = false
		result.Message = "ping failed"
		if advisory {
			result.Message = err.Error()
		}
	}

	return result
}

func (h *Handler) SetReady(ready bool) {
	h.ready.Store(ready)
}

func (h *Handler) SetShutdown(shutdown bool) {
	h.shutdown.Store(shutdown)
}

func (h *Handler) writeStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	//nolint:errcheck // best-effort response
	_ = json.NewEncoder(w).Encode(data)
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ReadinessResponse struct {
	Status string        `json:"status"`
	Checks []HealthCheck `json:"checks"`
}

type HealthCheck struct {
	Name     string `json:"name"`
	Healthy  bool   `json:"healthy"`
	Advisory bool   `json:"advisory,omitempty"`
	Latency  string `json:"latency,omitempty"`
	Message  string `json:"message,omitempty"`
}
