package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultProbeTimeout bounds a single readiness probe.
const DefaultProbeTimeout = 5 * time.Second

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ReadinessProbe reports whether a dependency can serve traffic.
type ReadinessProbe func(ctx context.Context) error

// Checker implements HealthChecker from a set of named readiness probes.
// The process is considered alive until MarkStopping is called.
type Checker struct {
	timeout  time.Duration
	stopping atomic.Bool

	mu     sync.RWMutex
	probes map[string]ReadinessProbe
	status map[string]string
}

// NewChecker creates a checker with no probes.
func NewChecker() *Checker {
	return &Checker{
		timeout: DefaultProbeTimeout,
		probes:  make(map[string]ReadinessProbe),
		status:  make(map[string]string),
	}
}

// AddProbe registers a readiness probe under name.
func (c *Checker) AddProbe(name string, probe ReadinessProbe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[name] = probe
	c.status[name] = "unknown"
}

// MarkStopping makes readiness fail while the process shuts down.
func (c *Checker) MarkStopping() {
	c.stopping.Store(true)
}

// Liveness implements HealthChecker.
func (c *Checker) Liveness() bool {
	return true
}

// Readiness runs every probe and reports whether all of them passed.
func (c *Checker) Readiness(ctx context.Context) bool {
	if c.stopping.Load() {
		c.mu.Lock()
		c.status["shutdown"] = "in progress"
		c.mu.Unlock()
		return false
	}

	c.mu.RLock()
	probes := make(map[string]ReadinessProbe, len(c.probes))
	for name, probe := range c.probes {
		probes[name] = probe
	}
	c.mu.RUnlock()

	ready := true
	results := make(map[string]string, len(probes))
	for name, probe := range probes {
		probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := probe(probeCtx)
		cancel()

		if err != nil {
			ready = false
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	c.mu.Lock()
	for name, result := range results {
		c.status[name] = result
	}
	c.mu.Unlock()

	return ready
}

// GetStatus implements HealthChecker.
func (c *Checker) GetStatus() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := make(map[string]string, len(c.status))
	for k, v := range c.status {
		status[k] = v
	}
	return status
}

// LivenessHandler returns a handler for Kubernetes liveness probes.
// Liveness probes should only fail if the process needs to be restarted.
func LivenessHandler(checker HealthChecker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "alive"
		statusCode := http.StatusOK

		if !checker.Liveness() {
			status = "not alive"
			statusCode = http.StatusServiceUnavailable
		}

		writeHealth(w, statusCode, HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}, logger)
	}
}

// ReadinessHandler returns a handler for Kubernetes readiness probes.
// Readiness fails while the delivery stream cannot be reached.
func ReadinessHandler(checker HealthChecker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ready"
		statusCode := http.StatusOK

		if !checker.Readiness(r.Context()) {
			status = "not ready"
			statusCode = http.StatusServiceUnavailable
		}

		writeHealth(w, statusCode, HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    checker.GetStatus(),
		}, logger)
	}
}

func writeHealth(w http.ResponseWriter, statusCode int, response HealthResponse, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("failed to encode health response", zap.Error(err))
	}
}
