// Package arp resolves a device's IP address from its MAC address using the
// host's neighbor table (`arp -an`).
package arp

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/teslashibe/go-lgtv/internal/procx"
)

// entryRe matches BSD/macOS and Linux net-tools output:
//
//	? (192.168.1.20) at 3c:f0:83:9e:6a:2c on en0 ifscope [ethernet]
var entryRe = regexp.MustCompile(`\(([^)]+)\) at ([0-9a-fA-F:]+)`)

// Resolver looks up IP addresses in the neighbor table.
type Resolver struct {
	Command string
	Args    []string
	Runner  procx.Runner
	Logger  *slog.Logger
}

// NewResolver creates a Resolver that runs `arp -an`.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		Command: "arp",
		Args:    []string{"-an"},
		Runner:  procx.Default,
		Logger:  logger.With("component", "arp"),
	}
}

// Resolve returns the IP currently mapped to mac. A failed lookup is
// reported as not found.
func (r *Resolver) Resolve(ctx context.Context, mac string) (string, bool) {
	out, err := r.Runner.Output(ctx, r.Command, r.Args...)
	if err != nil {
		r.Logger.Debug("neighbor table unavailable", "error", err)
		return "", false
	}
	ip, ok := Parse(out, mac)
	if !ok {
		r.Logger.Debug("no neighbor entry", "mac", mac)
	}
	return ip, ok
}

// Parse scans arp output for mac and returns its IP. The first matching
// line wins. MAC comparison is case-insensitive.
func Parse(output []byte, mac string) (string, bool) {
	target := NormalizeMAC(mac)
	if target == "" {
		return "", false
	}

	sc := bufio.NewScanner(bytes.NewReader(output))
	for sc.Scan() {
		m := entryRe.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		if NormalizeMAC(m[2]) == target {
			return m[1], true
		}
	}
	return "", false
}

// NormalizeMAC lowercases mac and strips surrounding whitespace.
func NormalizeMAC(mac string) string {
	return strings.ToLower(strings.TrimSpace(mac))
}
