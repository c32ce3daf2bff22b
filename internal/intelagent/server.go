package intelagent

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// Server exposes the agent over HTTP. The orchestration tier POSTs
// payloads to /invocations; failures still produce a 200 with a failed
// envelope, mirroring how the agent reports its own errors.
type Server struct {
	app    *fiber.App
	agent  *Agent
	logger zerolog.Logger
}

// NewServer wraps the agent in a Fiber app.
func NewServer(agent *Agent, logger zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	s := &Server{
		app:    app,
		agent:  agent,
		logger: logger.With().Str("component", "agent_server").Logger(),
	}

	app.Use(recover.New())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Post("/invocations", s.handleInvocation)

	return s
}

func (s *Server) handleInvocation(c *fiber.Ctx) error {
	var payload Payload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid JSON payload: " + err.Error(),
		})
	}

	sessionID := c.Get("X-Session-ID")
	s.logger.Info().
		Str("session_id", sessionID).
		Str("repository_url", payload.RepositoryURL).
		Msg("invocation received")

	reply := s.agent.Analyze(c.Context(), payload)
	return c.JSON(reply)
}

// Start starts the agent server. Blocks until stopped.
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("agent server starting")
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("agent server shutting down")
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}
