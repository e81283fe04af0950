// Package supervisor owns the TV session lifecycle: it resolves the TV on
// the LAN, keeps at most one session open, drains the command queue in
// order, and turns commands into SSAP calls behind the audio gate.
package supervisor

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-lgtv/pkg/webos"
)

const (
	// DefaultRetryInterval is how long the disconnected state waits for a
	// command before trying to resolve and connect again.
	DefaultRetryInterval = 5 * time.Second

	// DefaultIdleTimeout bounds the connected wait. Expiry just loops.
	DefaultIdleTimeout = time.Hour
)

// Resolver maps the TV hardware id to a current IP address.
type Resolver interface {
	Resolve(ctx context.Context, mac string) (string, bool)
}

// Session is one live, registered connection to the TV.
type Session interface {
	Request(ctx context.Context, cmd webos.Command) (*webos.Response, error)
	Key() string
	Close() error
}

// Connector opens a session to the TV at addr using the cached key.
type Connector interface {
	Connect(ctx context.Context, addr, key string) (Session, error)
}

// Gate reports whether the TV is the host's active audio output.
type Gate interface {
	Active(ctx context.Context) bool
}

// CredentialStore persists the pairing key between runs.
type CredentialStore interface {
	Load() (key string, ok bool, err error)
	Save(key string) error
}

// Config holds supervisor timing and the TV identity.
type Config struct {
	HardwareID    string
	RetryInterval time.Duration
	IdleTimeout   time.Duration
}

func (c Config) withDefaults() Config {
	if c.RetryInterval <= 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	return c
}

// Deps bundles the supervisor's collaborators.
type Deps struct {
	Resolver    Resolver
	Connector   Connector
	Gate        Gate
	Credentials CredentialStore
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = l
	}
}

// WithOnChange registers a callback invoked with a fresh snapshot after
// every state transition and every handled command. It runs on the
// supervisor goroutine and must not block.
func WithOnChange(fn func(Status)) Option {
	return func(s *Supervisor) {
		s.onChange = fn
	}
}

// Supervisor runs the connection state machine. Run must be called from a
// single goroutine; Status is safe from any goroutine.
type Supervisor struct {
	cfg      Config
	deps     Deps
	logger   *slog.Logger
	onChange func(Status)

	// session is non-nil exactly in StateConnected. Only Run touches it.
	session Session

	mu     sync.RWMutex
	status Status
}

// New creates a supervisor. All collaborators in deps are required.
func New(cfg Config, deps Deps, opts ...Option) *Supervisor {
	s := &Supervisor{
		cfg:    cfg.withDefaults(),
		deps:   deps,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "supervisor")
	s.status.State = StateDisconnected
	return s
}

// Run drives the supervisor until cmds is closed (returns nil) or ctx is
// cancelled (returns ctx.Err()). Collaborator failures never end Run.
func (s *Supervisor) Run(ctx context.Context, cmds <-chan string) error {
	defer s.drop("shutdown")

	s.logger.Info("supervisor started", "hardware_id", s.cfg.HardwareID)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if s.session == nil {
			s.connect(ctx)
		}

		wait := s.cfg.RetryInterval
		if s.session != nil {
			wait = s.cfg.IdleTimeout
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()

		case cmd, ok := <-cmds:
			timer.Stop()
			if !ok {
				s.logger.Info("command queue closed, stopping")
				return nil
			}
			s.handle(ctx, cmd)

		case <-timer.C:
		}
	}
}

// connect attempts one Disconnected -> Connected transition.
func (s *Supervisor) connect(ctx context.Context) {
	addr, ok := s.deps.Resolver.Resolve(ctx, s.cfg.HardwareID)
	if !ok {
		s.logger.Debug("tv not found on lan", "hardware_id", s.cfg.HardwareID)
		return
	}

	key, _, err := s.deps.Credentials.Load()
	if err != nil {
		s.logger.Warn("failed to load pairing key", "error", err)
		key = ""
	}

	sess, err := s.deps.Connector.Connect(ctx, addr, key)
	if err != nil {
		s.logger.Warn("connect failed", "addr", addr, "error", err)
		return
	}

	if negotiated := strings.TrimSpace(sess.Key()); negotiated != "" && negotiated != key {
		if err := s.deps.Credentials.Save(negotiated); err != nil {
			s.logger.Warn("failed to persist pairing key", "error", err)
		} else {
			s.logger.Info("pairing key saved")
		}
	}

	s.session = sess
	s.update(func(st *Status) {
		st.State = StateConnected
		st.Address = addr
		st.ConnectedSince = time.Now()
		st.Connects++
	})
	s.logger.Info("connected to tv", "addr", addr)
}

// drop closes and forgets the session, if any.
func (s *Supervisor) drop(reason string) {
	if s.session == nil {
		return
	}
	if err := s.session.Close(); err != nil {
		s.logger.Debug("session close", "error", err)
	}
	s.session = nil
	s.update(func(st *Status) {
		st.State = StateDisconnected
		st.Address = ""
		st.ConnectedSince = time.Time{}
	})
	s.logger.Info("session dropped", "reason", reason)
}
