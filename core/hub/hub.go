package hub

import (
	"sync"
	"time"

	"demodesk/logger"

	"github.com/gorilla/websocket"
)

// MessageType names a dashboard update message.
type MessageType string

const (
	MsgTypeDemoStatus MessageType = "demo_status" // a demo moved between folders
	MsgTypePing       MessageType = "ping"
)

// Message is one update pushed to connected dashboard sessions.
type Message struct {
	Type      MessageType `json:"type"`
	DemoID    string      `json:"demoId,omitempty"`
	From      string      `json:"from,omitempty"`
	To        string      `json:"to,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

const writeWait = 10 * time.Second

// Hub fans demo status changes out to connected dashboard websockets so
// the UI refreshes without polling.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]bool)}
}

// Register adds a connection to the broadcast set.
func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = true
	count := len(h.conns)
	h.mu.Unlock()
	logger.Debug("[Hub] session connected", logger.Int("sessions", count))
}

// Unregister removes a connection and closes it.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	count := len(h.conns)
	h.mu.Unlock()
	conn.Close()
	logger.Debug("[Hub] session disconnected", logger.Int("sessions", count))
}

// Count returns the number of connected sessions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// BroadcastStatusChange pushes a demo move to every connected session.
// Sessions whose write fails are dropped.
func (h *Hub) BroadcastStatusChange(demoID, from, to string) {
	h.broadcast(Message{
		Type:      MsgTypeDemoStatus,
		DemoID:    demoID,
		From:      from,
		To:        to,
		Timestamp: time.Now().Unix(),
	})
}

func (h *Hub) broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			logger.Debug("[Hub] dropping session after write failure", logger.ErrorField(err))
			delete(h.conns, conn)
			conn.Close()
		}
	}
}
