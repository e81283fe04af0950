package supervisor

import (
	"context"
	"errors"
	"time"

	"github.com/teslashibe/go-lgtv/pkg/webos"
)

// Command tokens accepted on the queue.
const (
	CmdVolumeUp   = "volume_up"
	CmdVolumeDown = "volume_down"
	CmdMute       = "mute"
	CmdUnmute     = "unmute"
)

// IsAudioCommand reports whether cmd is subject to the audio gate.
func IsAudioCommand(cmd string) bool {
	switch cmd {
	case CmdVolumeUp, CmdVolumeDown, CmdMute, CmdUnmute:
		return true
	}
	return false
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (s *Supervisor) handle(ctx context.Context, cmd string) {
	s.update(func(st *Status) {
		st.Received++
		st.LastCommand = cmd
		st.LastCommandAt = time.Now()
	})

	if s.session == nil {
		s.logger.Debug("not connected, command dropped", "cmd", cmd)
		s.update(func(st *Status) { st.DroppedDisconnected++ })
		return
	}

	if IsAudioCommand(cmd) && !s.deps.Gate.Active(ctx) {
		s.logger.Debug("tv is not the audio output, passing through", "cmd", cmd)
		s.update(func(st *Status) { st.Suppressed++ })
		return
	}

	switch cmd {
	case CmdVolumeUp:
		s.stepVolume(ctx, 1)
	case CmdVolumeDown:
		s.stepVolume(ctx, -1)
	case CmdMute:
		s.write(ctx, webos.SetMute(true))
	case CmdUnmute:
		s.write(ctx, webos.SetMute(false))
	default:
		s.logger.Debug("unknown command ignored", "cmd", cmd)
		return
	}
	s.update(func(st *Status) { st.Dispatched++ })
}

// stepVolume reads the current volume and writes it back moved by delta.
// Only a failed read ends the session.
func (s *Supervisor) stepVolume(ctx context.Context, delta int) {
	resp, err := s.session.Request(ctx, webos.GetVolume())
	var apiErr *webos.APIError
	if errors.As(err, &apiErr) {
		// the TV answered, so the session is alive
		s.logger.Debug("getVolume refused", "error", err)
		return
	}
	if err != nil {
		s.logger.Warn("volume read failed", "error", err)
		s.drop("volume read failed")
		return
	}
	if resp == nil {
		return
	}

	current, ok := resp.Volume()
	if !ok {
		s.logger.Debug("getVolume response without volume")
		return
	}

	next := Clamp(current+delta, webos.MinVolume, webos.MaxVolume)
	s.write(ctx, webos.SetVolume(next))
	s.logger.Debug("volume stepped", "from", current, "to", next)
}

// write sends a fire-and-forget call. Failures are counted and logged only.
func (s *Supervisor) write(ctx context.Context, cmd webos.Command) {
	if _, err := s.session.Request(ctx, cmd); err != nil {
		s.logger.Warn("write call failed", "uri", cmd.URI, "error", err)
		s.update(func(st *Status) { st.WriteFailures++ })
	}
}
