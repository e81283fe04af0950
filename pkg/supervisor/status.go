package supervisor

import "time"

// State is the connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a point-in-time snapshot of the supervisor.
type Status struct {
	State          State     `json:"state"`
	Address        string    `json:"address,omitempty"`
	ConnectedSince time.Time `json:"connected_since,omitzero"`

	Connects            uint64 `json:"connects"`
	Received            uint64 `json:"received"`
	Dispatched          uint64 `json:"dispatched"`
	Suppressed          uint64 `json:"suppressed"`
	DroppedDisconnected uint64 `json:"dropped_disconnected"`
	WriteFailures       uint64 `json:"write_failures"`

	LastCommand   string    `json:"last_command,omitempty"`
	LastCommandAt time.Time `json:"last_command_at,omitzero"`
}

// Status returns the current snapshot.
func (s *Supervisor) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// update mutates the status under lock, then notifies outside it.
func (s *Supervisor) update(fn func(*Status)) {
	s.mu.Lock()
	fn(&s.status)
	snap := s.status
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(snap)
	}
}
