// Package server implements the HTTP endpoints for health checks and
// Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HealthChecker interface for checking component health.
type HealthChecker interface {
	Liveness() bool
	Readiness(ctx context.Context) bool
	GetStatus() map[string]string
}

// Config contains listener settings. When HealthPort and MetricsPort are
// equal a single listener serves both.
type Config struct {
	HealthPort     int
	LivenessPath   string
	ReadinessPath  string
	MetricsEnabled bool
	MetricsPort    int
	MetricsPath    string
}

func (c Config) withDefaults() Config {
	if c.LivenessPath == "" {
		c.LivenessPath = "/health/live"
	}
	if c.ReadinessPath == "" {
		c.ReadinessPath = "/health/ready"
	}
	if c.MetricsPath == "" {
		c.MetricsPath = "/metrics"
	}
	return c
}

// Server represents the HTTP server for health and metrics.
type Server struct {
	servers []*http.Server
	logger  *zap.Logger
}

// NewServer creates the HTTP listeners.
func NewServer(config Config, healthChecker HealthChecker, registry *prometheus.Registry, logger *zap.Logger) *Server {
	config = config.withDefaults()

	healthMux := http.NewServeMux()
	healthMux.HandleFunc(config.LivenessPath, LivenessHandler(healthChecker, logger))
	healthMux.HandleFunc(config.ReadinessPath, ReadinessHandler(healthChecker, logger))

	servers := []*http.Server{newHTTPServer(config.HealthPort, healthMux)}

	if config.MetricsEnabled {
		metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
		if config.MetricsPort == config.HealthPort {
			healthMux.Handle(config.MetricsPath, metricsHandler)
		} else {
			metricsMux := http.NewServeMux()
			metricsMux.Handle(config.MetricsPath, metricsHandler)
			servers = append(servers, newHTTPServer(config.MetricsPort, metricsMux))
		}
	}

	return &Server{
		servers: servers,
		logger:  logger,
	}
}

func newHTTPServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Handlers returns the handler of every listener, health first.
func (s *Server) Handlers() []http.Handler {
	handlers := make([]http.Handler, len(s.servers))
	for i, srv := range s.servers {
		handlers[i] = srv.Handler
	}
	return handlers
}

// Run serves until ctx is cancelled, then shuts the listeners down within
// gracePeriod.
func (s *Server) Run(ctx context.Context, gracePeriod time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, srv := range s.servers {
		srv := srv
		g.Go(func() error {
			s.logger.Info("starting http server", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server %s failed: %w", srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), gracePeriod)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown gracefully shuts down every listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP servers")

	var g errgroup.Group
	for _, srv := range s.servers {
		srv := srv
		g.Go(func() error {
			if err := srv.Shutdown(ctx); err != nil {
				s.logger.Error("error shutting down server", zap.String("addr", srv.Addr), zap.Error(err))
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
