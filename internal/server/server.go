package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/haskel/aerotwin/internal/config"
	"github.com/haskel/aerotwin/internal/quality"
	"github.com/haskel/aerotwin/internal/scheduler"
	"github.com/haskel/aerotwin/internal/server/middleware"
)

// Predictor is the model surface the HTTP handlers need.
type Predictor interface {
	PredictQuality(ctx context.Context, features map[string]any) (*quality.Prediction, error)
	Train(ctx context.Context) (*quality.TrainReport, error)
	Info() quality.Info
	State() quality.State
}

// JobReporter exposes the activity of a background job.
type JobReporter interface {
	Stats() scheduler.Stats
}

type Server struct {
	httpServer *http.Server
	predictor  Predictor
	registry   *prometheus.Registry
	config     *config.Config
	logger     *slog.Logger
	version    string
	authConfig *middleware.AuthConfig
	watcher    JobReporter
}

// New builds the HTTP server. The registry backs /metrics and receives
// the HTTP collectors; predictor collectors are registered by the caller.
func New(cfg *config.Config, predictor Predictor, registry *prometheus.Registry, logger *slog.Logger, version string) *Server {
	authConfig := &middleware.AuthConfig{
		Enabled:  cfg.Auth.Enabled,
		User:     cfg.Auth.User,
		Password: cfg.Auth.Password,
	}

	s := &Server{
		predictor:  predictor,
		registry:   registry,
		config:     cfg,
		logger:     logger,
		version:    version,
		authConfig: authConfig,
	}

	mux := s.setupRoutes()

	handler := middleware.Chain(
		mux,
		middleware.Recovery(logger),
		middleware.Logging(logger),
		middleware.Instrument(registry),
		middleware.SecurityHeaders(),
		middleware.MaxBody(cfg.Server.MaxBodyBytes),
		middleware.RateLimit(middleware.RateLimitConfig{
			Enabled:           cfg.Server.RateLimit.Enabled,
			RequestsPerSecond: cfg.Server.RateLimit.RequestsPerSecond,
			Burst:             cfg.Server.RateLimit.Burst,
			PerIP:             cfg.Server.RateLimit.PerIP,
		}),
		middleware.Auth(authConfig, "/health", "/ready", "/metrics"),
	)

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     handler,
		ReadTimeout: 10 * time.Second,
		// a cold-start prediction blocks on training
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// SetArtifactWatcher attaches the artifact watch job reported by
// GET /v1/model. Call it before Start.
func (s *Server) SetArtifactWatcher(w JobReporter) {
	s.watcher = w
}

// ReloadConfig applies the settings that can change at runtime.
// Host, port and model parameters require a restart.
func (s *Server) ReloadConfig(cfg *config.Config) {
	s.logger.Info("reloading configuration")

	s.authConfig.Update(cfg.Auth.Enabled, cfg.Auth.User, cfg.Auth.Password)
	s.config = cfg

	s.logger.Info("configuration reloaded",
		"auth_enabled", cfg.Auth.Enabled,
	)
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	s.logger.Info("server starting",
		"addr", s.httpServer.Addr,
	)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
