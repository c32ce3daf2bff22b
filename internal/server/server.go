// Package server exposes the orchestration HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	errs "github.com/p-blackswan/repo-intel/internal/errors"
	"github.com/p-blackswan/repo-intel/internal/requestid"
)

// Config holds configuration for the API server.
type Config struct {
	ListenAddr  string
	AuthConfig  AuthConfig
	RateLimit   RateLimitConfig
	CORSOrigins string
}

// Server is the orchestration API Fiber application.
type Server struct {
	app      *fiber.App
	handlers *Handlers
	logger   zerolog.Logger
	config   Config
}

// New creates and configures the API server.
func New(cfg Config, h *Handlers, logger zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ReadBufferSize:        8192,
		WriteBufferSize:       8192,
	})

	s := &Server{
		app:      app,
		handlers: h,
		logger:   logger.With().Str("component", "server").Logger(),
		config:   cfg,
	}

	s.setupMiddleware(cfg, logger)
	s.setupRoutes(h)

	return s
}

func (s *Server) setupMiddleware(cfg Config, logger zerolog.Logger) {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// Request ID middleware. Inbound IDs are reused when present so
	// callers can correlate across systems. The enriched context is set
	// as the user context so the ID travels down the pipeline.
	s.app.Use(func(c *fiber.Ctx) error {
		ctx, reqID := requestid.Ensure(c.UserContext(), c.Get(requestid.Header))
		c.SetUserContext(ctx)
		c.Set(requestid.Header, reqID)
		c.Locals("request_id", reqID)
		return c.Next()
	})

	if cfg.CORSOrigins != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
			AllowMethods: "GET, POST, DELETE, OPTIONS",
		}))
	}

	if cfg.RateLimit.RPS > 0 {
		s.app.Use(NewRateLimitMiddleware(cfg.RateLimit))
	}

	s.app.Use(NewAuthMiddleware(cfg.AuthConfig, logger))

	// Audit middleware (log every request)
	s.app.Use(func(c *fiber.Ctx) error {
		path := c.Path()
		if isProbePath(path) {
			return c.Next()
		}

		reqID, _ := c.Locals("request_id").(string)
		logger.Info().
			Str("method", c.Method()).
			Str("path", path).
			Str("ip", c.IP()).
			Str("request_id", reqID).
			Msg("api request")

		return c.Next()
	})
}

func (s *Server) setupRoutes(h *Handlers) {
	// Probe endpoints (auth middleware lets these through)
	s.app.Get("/healthz", h.Liveness)
	s.app.Get("/readyz", h.Readiness)

	// Full metrics are served by the dedicated metrics listener.
	s.app.Get("/metrics", func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/plain; charset=utf-8")
		return c.SendString("# Metrics are served on the metrics listener\n")
	})

	v1 := s.app.Group("/api/v1")

	v1.Post("/projects/analyze", h.Analyze)
	v1.Delete("/projects/cache", h.InvalidateCache)

	v1.Post("/workflows/execute", h.ExecuteWorkflow)

	v1.Get("/agents", h.ListAgents)
	v1.Get("/health", h.HealthDetail)
}

// Start starts the server. Blocks until stopped.
func (s *Server) Start() error {
	addr := s.config.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	s.logger.Info().Str("addr", addr).Msg("API server starting")
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("API server shutting down")
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

// errorHandler maps domain errors to problem responses: the sentinel
// decides the status and machine-readable code, and rate limit errors get
// a Retry-After hint.
func errorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var status int
		var code string

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
			code = "http_error"
		} else {
			status = errs.HTTPStatus(err)
			code = errs.Code(err)
		}

		var rle *errs.RateLimitError
		if errors.As(err, &rle) {
			if after := rle.RetryAfter(time.Now()); after > 0 {
				c.Set("Retry-After", strconv.Itoa(after))
			}
		}

		reqID, _ := c.Locals("request_id").(string)
		logger.Error().
			Err(err).
			Int("status", status).
			Str("code", code).
			Str("path", c.Path()).
			Str("method", c.Method()).
			Str("request_id", reqID).
			Msg("request failed")

		detail := err.Error()
		if status == fiber.StatusInternalServerError {
			detail = "An internal error occurred"
		}

		return c.Status(status).JSON(ProblemDetail{
			Type:      code,
			Title:     http.StatusText(status),
			Status:    status,
			Detail:    detail,
			Instance:  c.Path(),
			RequestID: reqID,
		})
	}
}
