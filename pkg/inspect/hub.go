package inspect

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/kinetic/pkg/clock"
)

// MessageType tells stream clients what a message carries.
type MessageType string

const (
	// MessageFrame carries one completed tick.
	MessageFrame MessageType = "frame"

	// MessageHello is the first message on every connection.
	MessageHello MessageType = "hello"
)

// Message is sent to websocket clients as JSON.
type Message struct {
	Type  MessageType  `json:"type"`
	Frame *clock.Frame `json:"frame,omitempty"`
	Error string       `json:"error,omitempty"`
	Seq   uint64       `json:"seq,omitempty"`
}

const writeWait = time.Second

// Hub fans frames out to websocket clients. Slow or broken clients are
// dropped on the first failed write.
type Hub struct {
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	writeMu  sync.Mutex
	upgrader websocket.Upgrader
	logger   *slog.Logger

	// every sends one frame out of every n; 1 sends all.
	every uint64
}

// NewHub creates an empty hub that forwards one frame in every n.
func NewHub(every uint64, logger *slog.Logger) *Hub {
	if every == 0 {
		every = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true // Local debugging tool
			},
		},
		logger: logger,
		every:  every,
	}
}

// ServeHTTP upgrades the request and keeps the connection registered until
// the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := h.upgrader.Upgrade(w, req, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	hello, _ := json.Marshal(Message{Type: MessageHello})
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
		conn.Close()
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	// Reads only detect the close; clients send nothing.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.drop(conn)
}

// Observe implements clock.Observer.
func (h *Hub) Observe(f clock.Frame, err error) {
	if f.Seq%h.every != 0 && err == nil {
		return
	}
	msg := Message{Type: MessageFrame, Frame: &f, Seq: f.Seq}
	if err != nil {
		msg.Error = err.Error()
	}
	h.Broadcast(msg)
}

// Broadcast sends msg to every connected client. It is safe for concurrent
// use; writes are serialized since a connection allows one writer at a time.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	for _, client := range clients {
		client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			h.drop(client)
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}
