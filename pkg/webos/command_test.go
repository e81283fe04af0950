package webos

import (
	"encoding/json"
	"testing"
)

func TestSetVolume_Clamps(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-5, 0},
		{0, 0},
		{51, 51},
		{100, 100},
		{101, 100},
	}

	for _, tt := range tests {
		cmd := SetVolume(tt.in)
		if cmd.URI != URISetVolume {
			t.Errorf("URI = %s", cmd.URI)
		}
		if got := cmd.Payload["volume"]; got != tt.want {
			t.Errorf("SetVolume(%d) payload volume = %v, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSetMute(t *testing.T) {
	if SetMute(true).Payload["mute"] != true {
		t.Error("SetMute(true) should carry mute=true")
	}
	if SetMute(false).Payload["mute"] != false {
		t.Error("SetMute(false) should carry mute=false")
	}
	if GetVolume().Payload != nil {
		t.Error("GetVolume should carry no payload")
	}
}

func TestResponse_Volume(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int
		ok      bool
	}{
		{"nested", `{"returnValue":true,"volumeStatus":{"volume":17,"muteStatus":false}}`, 17, true},
		{"top level", `{"returnValue":true,"volume":9,"muted":false}`, 9, true},
		{"nested wins", `{"volume":1,"volumeStatus":{"volume":2}}`, 2, true},
		{"zero is a value", `{"volumeStatus":{"volume":0}}`, 0, true},
		{"missing", `{"returnValue":true}`, 0, false},
		{"empty", ``, 0, false},
		{"garbage", `not json`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Response{Payload: json.RawMessage(tt.payload)}
			got, ok := r.Volume()
			if got != tt.want || ok != tt.ok {
				t.Errorf("Volume() = %d, %v; want %d, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestResponse_ReturnValue(t *testing.T) {
	tests := []struct {
		payload string
		ok      bool
		text    string
	}{
		{`{"returnValue":true}`, true, ""},
		{`{"returnValue":false,"errorText":"denied"}`, false, "denied"},
		{`{"volume":3}`, true, ""},
		{``, true, ""},
	}

	for _, tt := range tests {
		r := &Response{Payload: json.RawMessage(tt.payload)}
		ok, text := r.ReturnValue()
		if ok != tt.ok || text != tt.text {
			t.Errorf("ReturnValue(%s) = %v, %q; want %v, %q", tt.payload, ok, text, tt.ok, tt.text)
		}
	}
}
