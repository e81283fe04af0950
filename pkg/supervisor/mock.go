package supervisor

import (
	"context"
	"sync"

	"github.com/teslashibe/go-lgtv/pkg/webos"
)

// MockSession implements Session for testing.
// All methods can be customized via function fields.
type MockSession struct {
	// RequestFunc is called when Request is invoked.
	// If nil, returns an empty response.
	RequestFunc func(ctx context.Context, cmd webos.Command) (*webos.Response, error)

	// KeyValue is returned by Key.
	KeyValue string

	mu       sync.Mutex
	requests []webos.Command
	closed   int
}

// Request records cmd and calls RequestFunc.
func (m *MockSession) Request(ctx context.Context, cmd webos.Command) (*webos.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, cmd)
	m.mu.Unlock()

	if m.RequestFunc != nil {
		return m.RequestFunc(ctx, cmd)
	}
	return &webos.Response{Type: "response"}, nil
}

func (m *MockSession) Key() string { return m.KeyValue }

// Close records the call.
func (m *MockSession) Close() error {
	m.mu.Lock()
	m.closed++
	m.mu.Unlock()
	return nil
}

// Requests returns every recorded request in order.
func (m *MockSession) Requests() []webos.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]webos.Command(nil), m.requests...)
}

// Closed returns how many times Close was called.
func (m *MockSession) Closed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// MockResolver implements Resolver with a function field.
type MockResolver struct {
	ResolveFunc func(ctx context.Context, mac string) (string, bool)

	mu    sync.Mutex
	calls int
}

func (m *MockResolver) Resolve(ctx context.Context, mac string) (string, bool) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, mac)
	}
	return "", false
}

// Calls returns how many times Resolve was called.
func (m *MockResolver) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockCredentials is an in-memory CredentialStore.
type MockCredentials struct {
	LoadErr error
	SaveErr error

	mu    sync.Mutex
	key   string
	saves []string
}

// NewMockCredentials creates a store holding key ("" for none).
func NewMockCredentials(key string) *MockCredentials {
	return &MockCredentials{key: key}
}

func (m *MockCredentials) Load() (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return "", false, m.LoadErr
	}
	return m.key, m.key != "", nil
}

func (m *MockCredentials) Save(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves = append(m.saves, key)
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.key = key
	return nil
}

// Saves returns every key passed to Save.
func (m *MockCredentials) Saves() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.saves...)
}

// GateFunc adapts a function to Gate.
type GateFunc func(ctx context.Context) bool

func (f GateFunc) Active(ctx context.Context) bool { return f(ctx) }
