// internal/api/server.go
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/crashscope/internal/api/middleware"
	"github.com/newthinker/crashscope/internal/api/response"
	"github.com/newthinker/crashscope/internal/app"
	"github.com/newthinker/crashscope/internal/cache"
	"github.com/newthinker/crashscope/internal/core"
	crashlog "github.com/newthinker/crashscope/internal/logger"
	"github.com/newthinker/crashscope/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Analyzer runs the analysis pipeline for one symbol
type Analyzer interface {
	Analyze(ctx context.Context, symbol string) (*app.Report, error)
}

// Server represents the HTTP server for crashscope
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	deps       Dependencies
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	APIKey      string
	MetricsPath string // empty disables the metrics endpoint
}

// Dependencies are the services behind the API. Cache and Metrics may be nil.
type Dependencies struct {
	Analyzer Analyzer
	Cache    cache.Cache
	Metrics  *metrics.Registry
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.Analyzer == nil {
		return nil, errors.New("analyzer is required")
	}
	logger = crashlog.OrNop(logger)

	s := &Server{
		logger: logger,
		mux:    http.NewServeMux(),
		deps:   deps,
	}
	s.setupRoutes(cfg)

	var handler http.Handler = s.mux
	if deps.Metrics != nil {
		handler = metrics.HTTPMiddleware(deps.Metrics)(handler)
	}
	handler = metrics.LoggingMiddleware(logger)(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // long series downloads
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config) {
	auth := middleware.APIKeyAuth(cfg.APIKey)

	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.Handle("GET /api/symbols/{symbol}/drawdowns", auth(http.HandlerFunc(s.handleDrawdowns)))
	s.mux.Handle("GET /api/symbols/{symbol}/recoveries", auth(http.HandlerFunc(s.handleRecoveries)))
	s.mux.Handle("GET /api/symbols/{symbol}/cached", auth(http.HandlerFunc(s.handleCached)))

	if cfg.MetricsPath != "" && s.deps.Metrics != nil {
		s.mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(s.deps.Metrics, promhttp.HandlerOpts{}))
	}
}

// Handler returns the root handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDrawdowns(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.analyze(w, r)
	if !ok {
		return
	}
	response.JSON(w, http.StatusOK, rep.Drawdowns)
}

func (s *Server) handleRecoveries(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.analyze(w, r)
	if !ok {
		return
	}
	response.JSON(w, http.StatusOK, rep.Recoveries)
}

// handleCached returns the last saved drawdown table without fetching
func (s *Server) handleCached(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cache == nil {
		response.Error(w, http.StatusNotFound, core.WrapError(core.ErrNotCached, errors.New("cache disabled")))
		return
	}

	symbol := r.PathValue("symbol")
	records, err := s.deps.Cache.Load(r.Context(), symbol)
	if err != nil {
		s.logger.Error("cache load failed", zap.String("symbol", symbol), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, core.WrapError(core.ErrCacheFailed, err))
		return
	}
	if records == nil {
		response.Error(w, http.StatusNotFound,
			core.WrapError(core.ErrNotCached, fmt.Errorf("nothing cached for %s", symbol)))
		return
	}
	response.JSON(w, http.StatusOK, records)
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) (*app.Report, bool) {
	symbol := r.PathValue("symbol")
	rep, err := s.deps.Analyzer.Analyze(r.Context(), symbol)
	if err != nil {
		s.logger.Warn("analysis request failed", zap.String("symbol", symbol), zap.Error(err))
		response.FromError(w, err)
		return nil, false
	}
	return rep, true
}
