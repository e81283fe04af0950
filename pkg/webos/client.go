// Package webos is a minimal LG webOS SSAP client: register (pairing) and
// request/response over a single websocket.
package webos

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	DefaultPort             = 3000
	DefaultRequestTimeout   = 5 * time.Second
	DefaultPairTimeout      = 60 * time.Second
	DefaultHandshakeTimeout = 5 * time.Second

	writeWait = 5 * time.Second
)

// URL returns the websocket endpoint of a TV at addr.
func URL(addr string, port int) string {
	return fmt.Sprintf("ws://%s/", net.JoinHostPort(addr, fmt.Sprint(port)))
}

// Options holds client configuration.
// Use functional options (WithXxx) to set these values.
type Options struct {
	RequestTimeout   time.Duration
	PairTimeout      time.Duration
	HandshakeTimeout time.Duration
	Manifest         Manifest
	Logger           *slog.Logger
}

// Option is a functional option for Dial.
type Option func(*Options)

// WithRequestTimeout bounds every Request round trip.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.RequestTimeout = d
	}
}

// WithPairTimeout bounds the register handshake, which includes the time
// the user needs to accept the on-screen prompt.
func WithPairTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.PairTimeout = d
	}
}

// WithHandshakeTimeout bounds the websocket upgrade.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.HandshakeTimeout = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

func defaultOptions() *Options {
	return &Options{
		RequestTimeout:   DefaultRequestTimeout,
		PairTimeout:      DefaultPairTimeout,
		HandshakeTimeout: DefaultHandshakeTimeout,
		Manifest:         DefaultManifest(),
		Logger:           slog.Default(),
	}
}

// Client is an established, registered SSAP session.
// Request is safe for concurrent use.
type Client struct {
	conn    *websocket.Conn
	key     string
	opts    *Options
	logger  *slog.Logger
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan *frame
	err     error

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to url and performs the register handshake with key
// (empty for first-time pairing).
func Dial(ctx context.Context, url, key string, opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: o.HandshakeTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("status %d: %w", resp.StatusCode, err)
		}
		return nil, &DialError{URL: url, Err: err}
	}

	c := &Client{
		conn:    conn,
		opts:    o,
		logger:  o.Logger.With("component", "webos"),
		pending: make(map[string]chan *frame),
		done:    make(chan struct{}),
	}

	newKey, err := c.register(ctx, strings.TrimSpace(key))
	if err != nil {
		conn.Close()
		return nil, &DialError{URL: url, Err: err}
	}
	c.key = newKey

	go c.readLoop()

	c.logger.Debug("registered", "url", url)
	return c, nil
}

// register runs the pairing handshake synchronously, before the read loop
// starts. Intermediate "response" frames (the pairing prompt notice) are
// skipped until "registered" arrives.
func (c *Client) register(ctx context.Context, key string) (string, error) {
	payload := map[string]any{
		"forcePairing": false,
		"pairingType":  "PROMPT",
		"manifest":     c.opts.Manifest,
	}
	if key != "" {
		payload["client-key"] = key
	}

	id := uuid.NewString()
	f, err := newFrame(frameRegister, id, "", payload)
	if err != nil {
		return "", err
	}
	if err := c.write(f); err != nil {
		return "", fmt.Errorf("send register: %w", err)
	}

	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()

	c.conn.SetReadDeadline(time.Now().Add(c.opts.PairTimeout))
	defer c.conn.SetReadDeadline(time.Time{})

	for {
		var in frame
		if err := c.conn.ReadJSON(&in); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("await registration: %w", err)
		}
		if in.ID != id {
			continue
		}

		switch in.Type {
		case frameRegistered:
			var p struct {
				ClientKey string `json:"client-key"`
			}
			if err := json.Unmarshal(in.Payload, &p); err != nil {
				return "", fmt.Errorf("parse registration: %w", err)
			}
			if p.ClientKey == "" {
				return "", ErrNoKey
			}
			return strings.TrimSpace(p.ClientKey), nil
		case frameError:
			return "", fmt.Errorf("%w: %s", ErrPairingRejected, in.Error)
		default:
			c.logger.Info("waiting for pairing confirmation on the TV")
		}
	}
}

// Key returns the client key negotiated during registration.
func (c *Client) Key() string {
	return c.key
}

// Done is closed when the session is no longer usable.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Request sends cmd and waits for the matching response.
func (c *Client) Request(ctx context.Context, cmd Command) (*Response, error) {
	id := uuid.NewString()
	ch := make(chan *frame, 1)

	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	var payload any
	if cmd.Payload != nil {
		payload = cmd.Payload
	}
	f, err := newFrame(frameRequest, id, cmd.URI, payload)
	if err != nil {
		return nil, err
	}
	if err := c.write(f); err != nil {
		c.fail(err)
		return nil, fmt.Errorf("webos: send %s: %w", cmd.URI, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	select {
	case in := <-ch:
		if in.Type == frameError {
			return nil, &APIError{URI: cmd.URI, Message: in.Error}
		}
		resp := &Response{ID: in.ID, Type: in.Type, Payload: in.Payload}
		if ok, text := resp.ReturnValue(); !ok {
			if text == "" {
				text = "returnValue false"
			}
			return nil, &APIError{URI: cmd.URI, Message: text}
		}
		return resp, nil
	case <-c.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, fmt.Errorf("webos: %s: %w", cmd.URI, ctx.Err())
	}
}

// readLoop is the only reader after registration. It routes responses to
// waiting requests by id.
func (c *Client) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("websocket read error", "error", err)
			}
			c.fail(err)
			return
		}

		var in frame
		if err := json.Unmarshal(data, &in); err != nil {
			c.logger.Warn("failed to parse frame", "error", err)
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[in.ID]
		c.mu.Unlock()
		if !ok {
			c.logger.Debug("unsolicited frame", "type", in.Type, "id", in.ID)
			continue
		}
		select {
		case ch <- &in:
		default:
		}
	}
}

func (c *Client) write(f *frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(f)
}

// fail records the first terminal error and releases waiters.
func (c *Client) fail(err error) {
	c.mu.Lock()
	if c.err == nil {
		if err == nil {
			err = ErrClosed
		}
		c.err = err
	}
	c.mu.Unlock()
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// Close terminates the session. Closing an already failed session is a no-op.
func (c *Client) Close() error {
	select {
	case <-c.done:
		return nil
	default:
	}

	c.writeMu.Lock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	if err != nil {
		c.logger.Debug("close frame not sent", "error", err)
	}

	c.fail(ErrClosed)
	return nil
}
