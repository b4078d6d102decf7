package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dshills/postboard/internal/comments"
	"github.com/dshills/postboard/internal/feed"
	"github.com/dshills/postboard/internal/metrics"
	"github.com/dshills/postboard/internal/posts"
	"github.com/dshills/postboard/internal/searcher"
	"github.com/dshills/postboard/internal/storage"
)

// DefaultBodyLimit caps request bodies; a sync batch is the largest payload
const DefaultBodyLimit = "10M"

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// SyncToken is the bearer token for POST /api/v1/posts/sync.
	// Empty disables the route.
	SyncToken string
}

// Services are the domain components the handlers delegate to
type Services struct {
	Store    storage.Storage
	Posts    *posts.Service
	Comments *comments.Manager
	Feed     *feed.Paginator
	Searcher *searcher.Searcher
}

func (s Services) validate() error {
	switch {
	case s.Store == nil:
		return errors.New("store cannot be nil")
	case s.Posts == nil:
		return errors.New("post service cannot be nil")
	case s.Comments == nil:
		return errors.New("comment manager cannot be nil")
	case s.Feed == nil:
		return errors.New("feed paginator cannot be nil")
	case s.Searcher == nil:
		return errors.New("searcher cannot be nil")
	}
	return nil
}

// Server exposes the platform over HTTP.
type Server struct {
	echo    *echo.Echo
	svc     Services
	logger  *zap.Logger
	config  *Config
	metrics *metrics.Metrics
}

// NewServer creates the HTTP server and registers every route.
func NewServer(svc Services, logger *zap.Logger, cfg *Config) (*Server, error) {
	if err := svc.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8080,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		svc:     svc,
		logger:  logger,
		config:  cfg,
		metrics: metrics.Get(),
	}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit(DefaultBodyLimit))
	e.Use(s.requestLogger)
	e.Use(s.instrument)

	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")

	v1.GET("/posts/feed", s.handleFeed)
	v1.GET("/posts/cursor", s.handleFeed)
	v1.GET("/posts", s.handleListPosts)
	v1.GET("/posts/:slug", s.handleGetPost)
	v1.POST("/posts", s.handleCreateEditorial, requireIdentity, requireAdmin)
	v1.PATCH("/posts/:slug", s.handleUpdateEditorial, requireIdentity, requireAdmin)
	v1.DELETE("/posts/:slug", s.handleDeleteEditorial, requireIdentity, requireAdmin)

	if s.config.SyncToken != "" {
		v1.POST("/posts/sync", s.handleSync, s.syncAuth())
	}

	community := v1.Group("/community/posts", requireIdentity)
	community.POST("", s.handleCreateCommunity)
	community.PATCH("/:slug", s.handleUpdateCommunity)
	community.DELETE("/:slug", s.handleDeleteCommunity)

	v1.GET("/search", s.handleSearchQuery)
	v1.POST("/search", s.handleSearchBody)

	v1.GET("/comments", s.handleListComments)
	v1.POST("/comments", s.handleCreateComment, requireIdentity)
	v1.PATCH("/comments/:id", s.handleEditComment, requireIdentity)
	v1.DELETE("/comments/:id", s.handleDeleteComment, requireIdentity)
}

// syncAuth checks the bearer token of the ingestion pipeline
func (s *Server) syncAuth() echo.MiddlewareFunc {
	token := []byte(s.config.SyncToken)
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup:  "header:" + echo.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(key string, c echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), token) == 1, nil
		},
		ErrorHandler: func(err error, c echo.Context) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing sync token")
		},
	})
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			// Resolve the status now so the log line matches the response
			c.Error(err)
		}
		duration := time.Since(start)

		s.logger.Info("http request",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", duration),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		)
		return nil
	}
}

func (s *Server) instrument(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		status := c.Response().Status
		if err != nil {
			status = errorStatus(err)
		}
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request().Method
		s.metrics.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		s.metrics.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return err
	}
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status     string `json:"status"`
	Posts      int    `json:"posts"`
	Embeddings int    `json:"embeddings"`
	Schema     string `json:"schema"`
}

func (s *Server) handleHealth(c echo.Context) error {
	status, err := s.svc.Store.GetStatus(c.Request().Context())
	if err != nil || !status.Health.DatabaseAccessible {
		s.logger.Warn("health check failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
	}
	return c.JSON(http.StatusOK, HealthResponse{
		Status:     "ok",
		Posts:      status.PostsCount,
		Embeddings: status.EmbeddingsCount,
		Schema:     status.SchemaVersion,
	})
}

// Handler returns the root handler, mainly for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server",
		zap.String("addr", addr),
		zap.Bool("sync_enabled", s.config.SyncToken != ""))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
