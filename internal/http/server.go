// Package http provides the HTTP API consumed by desktop shells and other
// local clients of repovault.
package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/repovault/internal/archive"
	"github.com/fyrsmithlabs/repovault/internal/github"
)

// Server provides HTTP endpoints for repovault.
type Server struct {
	echo    *echo.Echo
	service archive.Service
	source  github.Source
	logger  *zap.Logger
	metrics *Metrics
	config  *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server. The registerer may be nil to use the
// default Prometheus registry.
func NewServer(service archive.Service, source github.Source, logger *zap.Logger, cfg *Config, registerer prometheus.Registerer) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("archive service cannot be nil")
	}
	if source == nil {
		return nil, fmt.Errorf("repository source cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9190,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	metrics := NewMetrics(registerer)

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.New().String() },
	}))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			metrics.Observe(c.Request().Method, c.Path(), c.Response().Status, duration)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:    e,
		service: service,
		source:  source,
		logger:  logger,
		metrics: metrics,
		config:  cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/search", s.handleSearch)
	v1.GET("/usage", s.handleUsage)
	v1.GET("/categories", s.handleCategories)
	v1.GET("/repos", s.handleListRepos)
	v1.POST("/repos", s.handleSave)
	v1.GET("/repos/:owner/:name/exists", s.handleExists)
	v1.GET("/repos/:owner/:name/stats", s.handleStats)
	v1.GET("/repos/:owner/:name/files", s.handleFiles)
	v1.DELETE("/repos/:owner/:name", s.handleRemove)
}

// SaveRequest is the request body for POST /api/v1/repos.
type SaveRequest struct {
	FullName string `json:"full_name"`
	Category string `json:"category"`
	UseClone bool   `json:"use_clone"`
}

// SaveResponse is the response body for POST /api/v1/repos.
type SaveResponse struct {
	Added     bool   `json:"added"`
	LocalPath string `json:"local_path"`
	FileCount int    `json:"file_count"`
	TotalSize int64  `json:"total_size"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ExistsResponse is the response body for the exists check.
type ExistsResponse struct {
	Exists bool `json:"exists"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleSearch proxies a repository search to the remote source.
func (s *Server) handleSearch(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter 'q' is required")
	}

	limit := 30
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = parsed
	}

	repos, err := s.source.Search(c.Request().Context(), query, limit)
	if err != nil {
		s.logger.Warn("search failed", zap.String("query", query), zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "search failed")
	}

	return c.JSON(http.StatusOK, repos)
}

// handleSave archives a repository under a category.
func (s *Server) handleSave(c echo.Context) error {
	var req SaveRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid save request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.FullName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "full_name field is required")
	}

	owner, name, err := archive.ParseFullName(req.FullName)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	repo, err := s.source.GetRepository(c.Request().Context(), owner, name)
	if err != nil {
		s.logger.Warn("repository lookup failed", zap.String("full_name", req.FullName), zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "repository lookup failed")
	}

	result, err := s.service.Save(c.Request().Context(), &archive.SaveRequest{
		Summary: archive.RepositorySummary{
			FullName:    repo.FullName,
			CloneURL:    repo.CloneURL,
			Description: repo.Description,
			Language:    repo.Language,
			Stars:       repo.Stars,
		},
		Category: req.Category,
		UseClone: req.UseClone,
	})
	if err != nil {
		s.logger.Error("save failed", zap.String("full_name", req.FullName), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "save failed")
	}

	status := http.StatusCreated
	if !result.Added {
		// Idempotent save: the pair was already indexed.
		status = http.StatusOK
	}
	return c.JSON(status, SaveResponse{
		Added:     result.Added,
		LocalPath: result.LocalPath,
		FileCount: result.FileCount,
		TotalSize: result.TotalSize,
	})
}

// handleListRepos returns the whole index, or one category when requested.
func (s *Server) handleListRepos(c echo.Context) error {
	if category := c.QueryParam("category"); category != "" {
		entries := s.service.ListByCategory(category)
		if entries == nil {
			entries = []archive.RepositorySummary{}
		}
		return c.JSON(http.StatusOK, entries)
	}
	return c.JSON(http.StatusOK, s.service.List())
}

// handleCategories returns the sorted category names.
func (s *Server) handleCategories(c echo.Context) error {
	return c.JSON(http.StatusOK, s.service.Categories())
}

// handleExists checks archive presence on disk.
func (s *Server) handleExists(c echo.Context) error {
	fullName := c.Param("owner") + "/" + c.Param("name")

	exists, err := s.service.Exists(fullName, c.QueryParam("category"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, ExistsResponse{Exists: exists})
}

// handleStats returns the archive manifest, or 404 when none exists.
func (s *Server) handleStats(c echo.Context) error {
	fullName := c.Param("owner") + "/" + c.Param("name")

	m, err := s.service.Stats(fullName, c.QueryParam("category"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if m == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no archive manifest")
	}
	return c.JSON(http.StatusOK, m)
}

// handleFiles lists the archived files.
func (s *Server) handleFiles(c echo.Context) error {
	fullName := c.Param("owner") + "/" + c.Param("name")

	files, err := s.service.Files(fullName, c.QueryParam("category"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if files == nil {
		files = []string{}
	}
	return c.JSON(http.StatusOK, files)
}

// handleRemove drops the metadata entry and deletes the on-disk archive.
func (s *Server) handleRemove(c echo.Context) error {
	fullName := c.Param("owner") + "/" + c.Param("name")

	if err := s.service.Remove(fullName, c.QueryParam("category")); err != nil {
		s.logger.Error("remove failed", zap.String("full_name", fullName), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "remove failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// handleUsage returns aggregate disk accounting.
func (s *Server) handleUsage(c echo.Context) error {
	stats, err := s.service.Usage(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "usage computation failed")
	}
	return c.JSON(http.StatusOK, stats)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
