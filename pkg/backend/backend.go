// Package backend provides a development chat backend implementing the
// /api/chat contract the widget talks to.
package backend

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/papercomputeco/chatwidget/pkg/chatclient"
)

// Server answers chat requests with a Responder.
type Server struct {
	logger *slog.Logger
	app    *fiber.App

	mu        sync.RWMutex
	responder Responder
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewServer creates a backend server. The responder may be swapped later
// with SetResponder.
func NewServer(responder Responder, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		logger:    logger,
		app:       app,
		responder: responder,
	}

	app.Use(recover.New())
	app.Use(compress.New())
	app.Use(s.logRequests)

	app.Get("/ping", s.handlePing)
	app.Post(chatclient.ChatPath, s.handleChat)

	return s
}

// SetResponder replaces the responder used for subsequent requests.
func (s *Server) SetResponder(r Responder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responder = r
}

// Responder returns the current responder.
func (s *Server) Responder() Responder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.responder
}

// RunWithListener starts the server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting chat backend",
		"listen", listener.Addr().String(),
		"responder", s.Responder().Name(),
	)
	return s.app.Listener(listener)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start),
	)
	return err
}

func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req chatclient.Request
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}
	if len(req.Messages) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "messages must not be empty"})
	}

	responder := s.Responder()
	reply, err := responder.Respond(c.UserContext(), req.Messages)
	if err != nil {
		s.logger.Warn("responder failed",
			"responder", responder.Name(),
			"error", err,
		)

		status := fiber.StatusBadGateway
		if errors.Is(err, ErrNoUserMessage) {
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(errorResponse{Error: err.Error()})
	}

	return c.JSON(chatclient.Response{Result: reply})
}
