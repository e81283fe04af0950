package webos

import "context"

// Dialer opens sessions to a TV by address, using a fixed port and options.
type Dialer struct {
	Port    int
	Options []Option
}

// NewDialer creates a Dialer for port (DefaultPort when zero).
func NewDialer(port int, opts ...Option) *Dialer {
	if port == 0 {
		port = DefaultPort
	}
	return &Dialer{Port: port, Options: opts}
}

// Connect dials ws://addr:port/ and registers with key.
func (d *Dialer) Connect(ctx context.Context, addr, key string) (*Client, error) {
	return Dial(ctx, URL(addr, d.Port), key, d.Options...)
}
