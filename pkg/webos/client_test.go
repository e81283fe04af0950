package webos

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeTV is a minimal SSAP server for exercising the client.
type fakeTV struct {
	key    string // key handed out on registration
	prompt bool   // send a pairing-prompt response before registered
	reject bool   // answer register with an error

	mu       sync.Mutex
	volume   int
	muted    bool
	gotKey   string
	requests []string
	failURI  string
	silent   bool // never answer requests
	conns    []*websocket.Conn
}

func (tv *fakeTV) handler(t *testing.T) http.HandlerFunc {
	up := websocket.Upgrader{}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		tv.mu.Lock()
		tv.conns = append(tv.conns, conn)
		tv.mu.Unlock()
		defer conn.Close()

		for {
			var in frame
			if err := conn.ReadJSON(&in); err != nil {
				return
			}
			switch in.Type {
			case frameRegister:
				tv.handleRegister(conn, in)
			case frameRequest:
				tv.handleRequest(conn, in)
			}
		}
	}
}

func (tv *fakeTV) handleRegister(conn *websocket.Conn, in frame) {
	var p struct {
		ClientKey string `json:"client-key"`
	}
	json.Unmarshal(in.Payload, &p)
	tv.mu.Lock()
	tv.gotKey = p.ClientKey
	tv.mu.Unlock()

	if tv.reject {
		conn.WriteJSON(frame{Type: frameError, ID: in.ID, Error: "403 cancelled"})
		return
	}
	if tv.prompt {
		conn.WriteJSON(frame{Type: frameResponse, ID: in.ID, Payload: json.RawMessage(`{"pairingType":"PROMPT","returnValue":true}`)})
	}
	payload, _ := json.Marshal(map[string]string{"client-key": tv.key})
	conn.WriteJSON(frame{Type: frameRegistered, ID: in.ID, Payload: payload})
}

func (tv *fakeTV) handleRequest(conn *websocket.Conn, in frame) {
	tv.mu.Lock()
	tv.requests = append(tv.requests, in.URI)
	silent := tv.silent
	fail := tv.failURI == in.URI
	tv.mu.Unlock()

	if silent {
		return
	}
	if fail {
		conn.WriteJSON(frame{Type: frameError, ID: in.ID, Error: "500 Application error"})
		return
	}

	var payload any
	switch in.URI {
	case URIGetVolume:
		tv.mu.Lock()
		payload = map[string]any{
			"returnValue":  true,
			"volumeStatus": map[string]any{"volume": tv.volume, "muteStatus": tv.muted},
		}
		tv.mu.Unlock()
	case URISetVolume:
		var p struct {
			Volume int `json:"volume"`
		}
		json.Unmarshal(in.Payload, &p)
		tv.mu.Lock()
		tv.volume = p.Volume
		tv.mu.Unlock()
		payload = map[string]any{"returnValue": true}
	case URISetMute:
		var p struct {
			Mute bool `json:"mute"`
		}
		json.Unmarshal(in.Payload, &p)
		tv.mu.Lock()
		tv.muted = p.Mute
		tv.mu.Unlock()
		payload = map[string]any{"returnValue": true}
	default:
		payload = map[string]any{"returnValue": false, "errorText": "no such service"}
	}
	raw, _ := json.Marshal(payload)
	conn.WriteJSON(frame{Type: frameResponse, ID: in.ID, Payload: raw})
}

func (tv *fakeTV) seenKey() string {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	return tv.gotKey
}

// dropAll closes every server-side connection.
func (tv *fakeTV) dropAll() {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	for _, c := range tv.conns {
		c.Close()
	}
}

func startTV(t *testing.T, tv *fakeTV) string {
	t.Helper()
	srv := httptest.NewServer(tv.handler(t))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
}

func splitHostPort(t *testing.T, rawURL string) (string, int) {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse %s: %v", rawURL, err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("port %s: %v", u.Port(), err)
	}
	return u.Hostname(), port
}

func dialTV(t *testing.T, wsURL, key string, opts ...Option) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, wsURL, key, opts...)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestURL(t *testing.T) {
	if got := URL("192.168.1.20", 3000); got != "ws://192.168.1.20:3000/" {
		t.Errorf("URL = %q", got)
	}
}

func TestDial_FirstPairing(t *testing.T) {
	tv := &fakeTV{key: "new-key"}
	c := dialTV(t, startTV(t, tv), "")

	if c.Key() != "new-key" {
		t.Errorf("Key() = %q, want new-key", c.Key())
	}
	if got := tv.seenKey(); got != "" {
		t.Errorf("server saw key %q, want none", got)
	}
}

func TestDial_SendsCachedKey(t *testing.T) {
	tv := &fakeTV{key: "cached"}
	c := dialTV(t, startTV(t, tv), "  cached\n")

	if got := tv.seenKey(); got != "cached" {
		t.Errorf("server saw key %q, want trimmed cached", got)
	}
	if c.Key() != "cached" {
		t.Errorf("Key() = %q", c.Key())
	}
}

func TestDial_SkipsPairingPrompt(t *testing.T) {
	tv := &fakeTV{key: "k", prompt: true}
	c := dialTV(t, startTV(t, tv), "")

	if c.Key() != "k" {
		t.Errorf("Key() = %q, want k", c.Key())
	}
}

func TestDial_Rejected(t *testing.T) {
	tv := &fakeTV{reject: true}
	_, err := Dial(context.Background(), startTV(t, tv), "")

	if !errors.Is(err, ErrPairingRejected) {
		t.Fatalf("err = %v, want ErrPairingRejected", err)
	}
	var de *DialError
	if !errors.As(err, &de) {
		t.Errorf("err should be a *DialError, got %T", err)
	}
}

func TestDial_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := Dial(ctx, "ws://127.0.0.1:1/", "")
	if err == nil {
		t.Fatal("expected dial error")
	}
}

func TestRequest_VolumeRoundTrip(t *testing.T) {
	tv := &fakeTV{key: "k", volume: 50}
	c := dialTV(t, startTV(t, tv), "k")
	ctx := context.Background()

	resp, err := c.Request(ctx, GetVolume())
	if err != nil {
		t.Fatalf("GetVolume: %v", err)
	}
	vol, ok := resp.Volume()
	if !ok || vol != 50 {
		t.Fatalf("Volume() = %d, %v; want 50, true", vol, ok)
	}

	if _, err := c.Request(ctx, SetVolume(vol+1)); err != nil {
		t.Fatalf("SetVolume: %v", err)
	}
	if _, err := c.Request(ctx, SetMute(true)); err != nil {
		t.Fatalf("SetMute: %v", err)
	}

	tv.mu.Lock()
	defer tv.mu.Unlock()
	if tv.volume != 51 {
		t.Errorf("tv volume = %d, want 51", tv.volume)
	}
	if !tv.muted {
		t.Error("tv should be muted")
	}
	want := []string{URIGetVolume, URISetVolume, URISetMute}
	for i, uri := range want {
		if tv.requests[i] != uri {
			t.Errorf("request %d = %s, want %s", i, tv.requests[i], uri)
		}
	}
}

func TestRequest_ErrorFrame(t *testing.T) {
	tv := &fakeTV{key: "k", failURI: URISetMute}
	c := dialTV(t, startTV(t, tv), "k")

	_, err := c.Request(context.Background(), SetMute(true))

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.URI != URISetMute {
		t.Errorf("APIError.URI = %s", apiErr.URI)
	}
}

func TestRequest_ReturnValueFalse(t *testing.T) {
	tv := &fakeTV{key: "k"}
	c := dialTV(t, startTV(t, tv), "k")

	_, err := c.Request(context.Background(), Command{URI: "ssap://nope"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Message != "no such service" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestRequest_Timeout(t *testing.T) {
	tv := &fakeTV{key: "k", silent: true}
	c := dialTV(t, startTV(t, tv), "k", WithRequestTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := c.Request(context.Background(), GetVolume())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Error("request should time out promptly")
	}
}

func TestRequest_AfterServerDrop(t *testing.T) {
	tv := &fakeTV{key: "k"}
	c := dialTV(t, startTV(t, tv), "k")

	tv.dropAll()

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client did not notice the dropped connection")
	}
	if _, err := c.Request(context.Background(), GetVolume()); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}

func TestClose_Idempotent(t *testing.T) {
	tv := &fakeTV{key: "k"}
	c := dialTV(t, startTV(t, tv), "k")

	if err := c.Close(); err != nil {
		t.Errorf("first Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := c.Request(context.Background(), GetVolume()); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}

func TestDialer_Connect(t *testing.T) {
	tv := &fakeTV{key: "k"}
	srv := httptest.NewServer(tv.handler(t))
	defer srv.Close()

	host, port := splitHostPort(t, srv.URL)
	d := NewDialer(port)
	c, err := d.Connect(context.Background(), host, "")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()
	if c.Key() != "k" {
		t.Errorf("Key() = %q", c.Key())
	}
}
