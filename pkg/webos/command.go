package webos

import (
	"encoding/json"
	"fmt"
)

// SSAP request URIs used by the daemon.
const (
	URIGetVolume = "ssap://audio/getVolume"
	URISetVolume = "ssap://audio/setVolume"
	URISetMute   = "ssap://audio/setMute"
)

// Volume limits accepted by the TV.
const (
	MinVolume = 0
	MaxVolume = 100
)

// Frame types on the SSAP websocket.
const (
	frameRegister   = "register"
	frameRegistered = "registered"
	frameRequest    = "request"
	frameResponse   = "response"
	frameError      = "error"
)

// Command is a typed SSAP request.
type Command struct {
	URI     string
	Payload map[string]any
}

// String returns the request URI, for logging.
func (c Command) String() string {
	return c.URI
}

// GetVolume queries the current volume. Its failure marks the session dead.
func GetVolume() Command {
	return Command{URI: URIGetVolume}
}

// SetVolume sets the absolute volume, clamped to [0, 100].
func SetVolume(level int) Command {
	if level < MinVolume {
		level = MinVolume
	}
	if level > MaxVolume {
		level = MaxVolume
	}
	return Command{URI: URISetVolume, Payload: map[string]any{"volume": level}}
}

// SetMute mutes or unmutes the TV speakers.
func SetMute(mute bool) Command {
	return Command{URI: URISetMute, Payload: map[string]any{"mute": mute}}
}

// frame is the SSAP wire envelope for every message in both directions.
type frame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	URI     string          `json:"uri,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func newFrame(typ, id, uri string, payload any) (*frame, error) {
	f := &frame{Type: typ, ID: id, URI: uri}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("webos: marshal %s payload: %w", typ, err)
		}
		f.Payload = raw
	}
	return f, nil
}

// Response is the TV's answer to a request.
type Response struct {
	ID      string
	Type    string
	Payload json.RawMessage
}

// ReturnValue reports the payload's returnValue field.
// A payload without the field counts as success.
func (r *Response) ReturnValue() (ok bool, errText string) {
	if len(r.Payload) == 0 {
		return true, ""
	}
	var rv struct {
		ReturnValue *bool  `json:"returnValue"`
		ErrorText   string `json:"errorText"`
	}
	if err := json.Unmarshal(r.Payload, &rv); err != nil {
		return true, ""
	}
	if rv.ReturnValue == nil {
		return true, ""
	}
	return *rv.ReturnValue, rv.ErrorText
}

// Volume extracts the current volume from a getVolume response.
// Newer firmware nests it under volumeStatus; older firmware puts it at
// the top level.
func (r *Response) Volume() (int, bool) {
	if len(r.Payload) == 0 {
		return 0, false
	}
	var p struct {
		VolumeStatus *struct {
			Volume *int `json:"volume"`
		} `json:"volumeStatus"`
		Volume *int `json:"volume"`
	}
	if err := json.Unmarshal(r.Payload, &p); err != nil {
		return 0, false
	}
	if p.VolumeStatus != nil && p.VolumeStatus.Volume != nil {
		return *p.VolumeStatus.Volume, true
	}
	if p.Volume != nil {
		return *p.Volume, true
	}
	return 0, false
}
