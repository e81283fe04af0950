//go:build unix

package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultRetryDelay is the back-off after a pipe open or read error.
const DefaultRetryDelay = time.Second

// pipeMode is world read/write so any local producer can write commands.
const pipeMode = 0o666

// EnsurePipe creates a named pipe at path unless something already exists
// there. The mode is set explicitly afterwards because mkfifo honours umask.
func EnsurePipe(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("intake: stat %s: %w", path, err)
	}

	if err := unix.Mkfifo(path, pipeMode); err != nil && !errors.Is(err, unix.EEXIST) {
		return fmt.Errorf("intake: mkfifo %s: %w", path, err)
	}
	if err := os.Chmod(path, pipeMode); err != nil {
		return fmt.Errorf("intake: chmod %s: %w", path, err)
	}
	return nil
}

// PipeSource reads commands from a named pipe forever.
//
// The pipe is opened read+write so the daemon itself counts as a writer and
// reads never see end-of-file when producers come and go.
type PipeSource struct {
	Path       string
	RetryDelay time.Duration
	Logger     *slog.Logger
}

// NewPipeSource creates a source for the pipe at path.
func NewPipeSource(path string, logger *slog.Logger) *PipeSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &PipeSource{
		Path:       path,
		RetryDelay: DefaultRetryDelay,
		Logger:     logger.With("component", "intake", "pipe", path),
	}
}

// Run feeds sink until ctx is done. Open and read errors are retried after
// RetryDelay.
func (p *PipeSource) Run(ctx context.Context, sink Sink) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := p.readOnce(ctx, sink)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, ErrQueueClosed) {
			return err
		}
		if err != nil {
			p.Logger.Warn("pipe error, retrying", "error", err, "delay", p.RetryDelay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.RetryDelay):
		}
	}
}

func (p *PipeSource) readOnce(ctx context.Context, sink Sink) error {
	f, err := os.OpenFile(p.Path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	// Closing the file unblocks a pending read on cancellation.
	stop := context.AfterFunc(ctx, func() { f.Close() })
	defer stop()

	p.Logger.Debug("pipe open")
	return ScanLines(ctx, f, sink)
}
