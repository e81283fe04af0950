package intake

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"
)

// ScanLines reads newline-terminated commands from r and sends them to sink
// in order. Surrounding whitespace is trimmed and blank lines are skipped.
// It returns nil at end of input.
func ScanLines(ctx context.Context, r io.Reader, sink Sink) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		cmd := strings.TrimSpace(sc.Text())
		if cmd == "" {
			continue
		}
		if err := sink.Send(ctx, cmd); err != nil {
			return err
		}
	}
	return sc.Err()
}

// Reader is a one-shot source: it scans R to the end and then closes the
// queue, which ends the supervisor. Used for stdin.
type Reader struct {
	R      io.Reader
	Logger *slog.Logger
}

// Run scans until end of input, then closes q.
func (s *Reader) Run(ctx context.Context, q *Queue) error {
	defer q.Close()
	err := ScanLines(ctx, s.R, q)
	if err != nil && s.Logger != nil {
		s.Logger.Warn("command reader stopped", "error", err)
	}
	return err
}
