package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/envios/internal/cache"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub) *Client {
	return &Client{
		hub:  hub,
		send: make(chan []byte, sendBufferSize),
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(quietLogger())

	c1 := mockClient(hub)
	c2 := mockClient(hub)
	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)
	// Should not panic
	hub.Unregister(c2)
	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestPublishCacheEvent(t *testing.T) {
	hub := NewHub(quietLogger())
	c1 := mockClient(hub)
	c2 := mockClient(hub)
	hub.Register(c1)
	hub.Register(c2)

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	hub.Publish(cache.Event{Key: "inventory", State: cache.Fresh, Count: 42, UpdatedAt: at})

	for _, c := range []*Client{c1, c2} {
		select {
		case data := <-c.send:
			var got Message
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != "inventory_fresh" {
				t.Errorf("type = %q, want inventory_fresh", got.Type)
			}
			if got.Count != 42 {
				t.Errorf("count = %d, want 42", got.Count)
			}
			if !got.UpdatedAt.Equal(at) {
				t.Errorf("updated_at = %v, want %v", got.UpdatedAt, at)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}
}

func TestFromEventError(t *testing.T) {
	m := FromEvent(cache.Event{Key: "inventory", State: cache.Error, Err: errors.New("timeout")})
	if m.Type != "inventory_error" {
		t.Errorf("type = %q, want inventory_error", m.Type)
	}
	if m.Error != "timeout" {
		t.Errorf("error = %q, want timeout", m.Error)
	}
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(quietLogger())
	c := mockClient(hub)
	hub.Register(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast(Message{Type: "fill", Count: i})
	}
	// This should drop the message, not block
	hub.Broadcast(Message{Type: "dropped"})

	if got := len(c.send); got != sendBufferSize {
		t.Errorf("expected %d buffered messages, got %d", sendBufferSize, got)
	}
	hub.Unregister(c)
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(quietLogger())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub)
			hub.Register(c)
			hub.Broadcast(Message{Type: "concurrent"})
			hub.Unregister(c)
		}()
	}
	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}

func TestHandlerDeliversBroadcast(t *testing.T) {
	hub := NewHub(quietLogger())
	srv := httptest.NewServer(Handler(hub, nil, quietLogger()))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+srv.URL[len("http"):], nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	for hub.ClientCount() == 0 {
		select {
		case <-ctx.Done():
			t.Fatal("client never registered")
		case <-time.After(5 * time.Millisecond):
		}
	}

	hub.Publish(cache.Event{Key: "inventory", State: cache.Stale})

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "inventory_stale" {
		t.Errorf("type = %q, want inventory_stale", got.Type)
	}
}
