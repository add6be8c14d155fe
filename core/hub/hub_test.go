package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// dialHub stands up a websocket endpoint that registers connections with
// the hub, and returns a connected client.
func dialHub(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		h.Register(conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestBroadcastStatusChange(t *testing.T) {
	h := NewHub()
	client := dialHub(t, h)

	for h.Count() == 0 {
		time.Sleep(5 * time.Millisecond)
	}

	h.BroadcastStatusChange("demo1", "submitted", "assistant_liked")

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != MsgTypeDemoStatus || msg.DemoID != "demo1" ||
		msg.From != "submitted" || msg.To != "assistant_liked" {
		t.Errorf("unexpected message: %+v", msg)
	}
	if msg.Timestamp == 0 {
		t.Error("message carries no timestamp")
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	h := NewHub()
	client := dialHub(t, h)

	for h.Count() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	if h.Count() != 1 {
		t.Fatalf("count = %d, want 1", h.Count())
	}

	h.mu.Lock()
	var conn *websocket.Conn
	for c := range h.conns {
		conn = c
	}
	h.mu.Unlock()
	h.Unregister(conn)

	if h.Count() != 0 {
		t.Errorf("count = %d after unregister, want 0", h.Count())
	}

	client.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := client.ReadMessage(); err == nil {
		t.Error("read should fail after the server side closed")
	}
}

func TestBroadcastDropsDeadSessions(t *testing.T) {
	h := NewHub()
	client := dialHub(t, h)

	for h.Count() == 0 {
		time.Sleep(5 * time.Millisecond)
	}

	// Kill the client side, then broadcast until the write failure is
	// noticed and the session is dropped.
	client.Close()
	deadline := time.Now().Add(2 * time.Second)
	for h.Count() > 0 && time.Now().Before(deadline) {
		h.BroadcastStatusChange("demo1", "submitted", "rejected")
		time.Sleep(10 * time.Millisecond)
	}
	if h.Count() != 0 {
		t.Error("dead session was never dropped")
	}
}
