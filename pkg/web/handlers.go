package web

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-lgtv/pkg/hub"
	"github.com/teslashibe/go-lgtv/pkg/intake"
)

// handleStatus returns the supervisor snapshot
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.status.Status())
}

// handleCommand enqueues one command token, exactly as a pipe line would
func (s *Server) handleCommand(c *fiber.Ctx) error {
	// Params aliases the request buffer; the queue outlives the request.
	name := strings.TrimSpace(utils.CopyString(c.Params("name")))
	if name == "" || strings.ContainsAny(name, " \t\r\n") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid command name",
		})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), s.EnqueueTimeout)
	defer cancel()

	if err := s.sink.Send(ctx, name); err != nil {
		msg := "command queue full"
		if errors.Is(err, intake.ErrQueueClosed) {
			msg = "command queue closed"
		}
		s.logger.Warn("command rejected", "cmd", name, "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": msg,
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"queued": name,
	})
}

// handleStatusWS streams status snapshots, starting with the current one
func (s *Server) handleStatusWS(conn *websocket.Conn) {
	greeting, err := json.Marshal(s.status.Status())
	if err != nil {
		greeting = nil
	}
	hub.NewClient(s.statusHub, conn, greeting).Run()
}
