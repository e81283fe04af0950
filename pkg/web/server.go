// Package web serves the daemon's local HTTP surface: a status endpoint, a
// command endpoint feeding the same queue as the pipe, and a websocket
// that pushes status changes.
package web

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-lgtv/pkg/hub"
	"github.com/teslashibe/go-lgtv/pkg/intake"
	"github.com/teslashibe/go-lgtv/pkg/supervisor"
)

// DefaultEnqueueTimeout is how long a command request waits on a full queue.
const DefaultEnqueueTimeout = 2 * time.Second

// StatusSource provides the snapshot served on /api/status.
type StatusSource interface {
	Status() supervisor.Status
}

// Server is the local HTTP server.
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger

	status StatusSource
	sink   intake.Sink

	statusHub *hub.Hub

	// EnqueueTimeout bounds POST /api/command when the queue is full.
	EnqueueTimeout time.Duration
}

// NewServer creates a server for addr (host:port). Commands are sent to
// sink; status is read from src.
func NewServer(addr string, src StatusSource, sink intake.Sink, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		addr:           addr,
		logger:         logger.With("component", "web"),
		status:         src,
		sink:           sink,
		statusHub:      hub.New("status", logger),
		EnqueueTimeout: DefaultEnqueueTimeout,
	}

	app := fiber.New(fiber.Config{
		AppName:               "lgtvd",
		DisableStartupMessage: true,
		UnescapePath:          true,
	})

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/command/:name", s.handleCommand)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// App exposes the fiber app, for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Hub returns the status hub.
func (s *Server) Hub() *hub.Hub {
	return s.statusHub
}

// Publish pushes a status snapshot to every /ws/status client. It is safe
// to use as the supervisor's change callback.
func (s *Server) Publish(st supervisor.Status) {
	if err := s.statusHub.BroadcastJSON(st); err != nil {
		s.logger.Warn("status encode failed", "error", err)
	}
}

// ListenAndServe listens on the configured address and serves until ctx
// is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.statusHub.Run(ctx)

	stop := context.AfterFunc(ctx, func() {
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			s.logger.Warn("shutdown", "error", err)
		}
	})
	defer stop()

	s.logger.Info("http server listening", "addr", ln.Addr().String())
	if err := s.app.Listener(ln); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
