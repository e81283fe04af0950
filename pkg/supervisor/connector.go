package supervisor

import (
	"context"

	"github.com/teslashibe/go-lgtv/pkg/webos"
)

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context, addr, key string) (Session, error)

func (f ConnectorFunc) Connect(ctx context.Context, addr, key string) (Session, error) {
	return f(ctx, addr, key)
}

// WebOS returns a Connector backed by a webOS dialer.
func WebOS(d *webos.Dialer) Connector {
	return ConnectorFunc(func(ctx context.Context, addr, key string) (Session, error) {
		c, err := d.Connect(ctx, addr, key)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}
