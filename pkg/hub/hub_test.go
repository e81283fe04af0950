package hub

import (
	"context"
	"testing"
	"time"

	"github.com/teslashibe/go-lgtv/internal/log"
)

// testClient registers a connection-less client with room for buffer frames.
func testClient(t *testing.T, h *Hub, buffer int) *Client {
	t.Helper()
	c := &Client{hub: h, send: make(chan []byte, buffer)}
	select {
	case h.register <- c:
	case <-time.After(time.Second):
		t.Fatal("hub did not accept registration")
	}
	return c
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// drainClosed reads send until it is closed and returns how many frames it held.
func drainClosed(t *testing.T, c *Client) int {
	t.Helper()
	n := 0
	for {
		select {
		case _, ok := <-c.send:
			if !ok {
				return n
			}
			n++
		case <-time.After(2 * time.Second):
			t.Fatalf("send channel not closed after %d frames", n)
		}
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("status", log.Discard())
	go h.Run(ctx)

	slow := testClient(t, h, sendBuffer)
	fast := testClient(t, h, 4*sendBuffer)
	waitFor(t, "two clients", func() bool { return h.ClientCount() == 2 })

	for i := 0; i <= sendBuffer; i++ {
		h.Broadcast([]byte(`{"state":"connected"}`))
	}

	waitFor(t, "slow client dropped", func() bool { return h.ClientCount() == 1 })
	if got := drainClosed(t, slow); got != sendBuffer {
		t.Errorf("slow client held %d frames, want %d", got, sendBuffer)
	}

	waitFor(t, "fast client backlog", func() bool { return len(fast.send) == sendBuffer+1 })
}

func TestHub_BroadcastJSON(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("status", log.Discard())
	go h.Run(ctx)
	c := testClient(t, h, 1)

	if err := h.BroadcastJSON(map[string]string{"state": "disconnected"}); err != nil {
		t.Fatalf("BroadcastJSON: %v", err)
	}
	select {
	case got := <-c.send:
		if string(got) != `{"state":"disconnected"}` {
			t.Errorf("frame = %s", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("frame not delivered")
	}

	if err := h.BroadcastJSON(func() {}); err == nil {
		t.Error("unencodable value should fail")
	}
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	h := New("status", log.Discard())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	a := testClient(t, h, 2)
	b := testClient(t, h, 2)
	waitFor(t, "two clients", func() bool { return h.ClientCount() == 2 })

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	drainClosed(t, a)
	drainClosed(t, b)
	if h.ClientCount() != 0 {
		t.Errorf("clients = %d after shutdown", h.ClientCount())
	}

	// registering after shutdown neither blocks nor leaks
	late := NewClient(h, nil, []byte(`{}`))
	if got := drainClosed(t, late); got != 1 {
		t.Errorf("late client held %d frames, want its greeting", got)
	}
}
