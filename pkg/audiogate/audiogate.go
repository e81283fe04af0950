// Package audiogate reports whether the TV is the host's active audio
// output, by asking a small helper binary for the current device name.
package audiogate

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/teslashibe/go-lgtv/internal/procx"
)

// Gate answers whether audio commands should reach the TV.
type Gate interface {
	Active(ctx context.Context) bool
}

// Static is a Gate with a fixed answer.
type Static bool

// Active returns the fixed answer.
func (s Static) Active(context.Context) bool {
	return bool(s)
}

// Oracle runs the first existing helper in Candidates and compares its
// trimmed output with Device, ignoring case.
type Oracle struct {
	Device     string
	Candidates []string
	Runner     procx.Runner
	Logger     *slog.Logger

	// stat is swapped in tests.
	stat func(string) (os.FileInfo, error)
}

// NewOracle creates an Oracle for device using the default helper locations
// for binary.
func NewOracle(device, binary string, logger *slog.Logger) *Oracle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Oracle{
		Device:     device,
		Candidates: DefaultCandidates(binary),
		Runner:     procx.Default,
		Logger:     logger.With("component", "audiogate"),
		stat:       os.Stat,
	}
}

// DefaultCandidates lists where the helper is looked for, in order:
// ~/.local/bin, then the working directory.
func DefaultCandidates(binary string) []string {
	var out []string
	if home, err := os.UserHomeDir(); err == nil {
		out = append(out, filepath.Join(home, ".local", "bin", binary))
	}
	if wd, err := os.Getwd(); err == nil {
		out = append(out, filepath.Join(wd, binary))
	}
	return out
}

// Active reports whether the TV is the active output. With no helper
// installed, or when the helper fails, the gate stays closed.
func (o *Oracle) Active(ctx context.Context) bool {
	path, ok := o.locate()
	if !ok {
		o.Logger.Debug("audio helper not found", "candidates", o.Candidates)
		return false
	}

	out, err := o.Runner.Output(ctx, path)
	if err != nil {
		o.Logger.Debug("audio helper failed", "path", path, "error", err)
		return false
	}

	name := strings.TrimSpace(string(out))
	active := strings.EqualFold(name, o.Device)
	o.Logger.Debug("audio output", "device", name, "active", active)
	return active
}

func (o *Oracle) locate() (string, bool) {
	stat := o.stat
	if stat == nil {
		stat = os.Stat
	}
	for _, p := range o.Candidates {
		if info, err := stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}
