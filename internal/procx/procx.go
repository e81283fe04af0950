// Package procx provides a shared process runner with sensible defaults.
// Use this instead of calling exec directly so every helper invocation is
// bounded by a timeout.
package procx

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// DefaultTimeout bounds a single helper invocation.
const DefaultTimeout = 2 * time.Second

// Runner runs a program and returns its standard output.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Output calls f.
func (f RunnerFunc) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return f(ctx, name, args...)
}

// Exec runs real processes, each bounded by Timeout.
type Exec struct {
	Timeout time.Duration
}

// Default is the shared runner with production defaults.
var Default Runner = &Exec{Timeout: DefaultTimeout}

// Output runs name with args and returns stdout.
func (e *Exec) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return out, fmt.Errorf("run %s: %w", name, err)
	}
	return out, nil
}
