// Package ws republishes weighbridge link events to WebSocket clients so
// remote weight displays and diagnostics consoles can follow the live feed.
package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"weighbridge-station/internal/core"
	"weighbridge-station/internal/weighbridge"
)

const (
	// sendBuffer is the per-client queue depth. A client that falls this
	// far behind starts losing events rather than slowing the link.
	sendBuffer = 64

	writeTimeout = 5 * time.Second
)

// Message is the event envelope. Clients switch on Type: "raw", "weight",
// "stability", "zero".
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// client owns a connection and its outbound queue. The write loop is the
// only goroutine that touches conn for writes; gorilla/websocket forbids
// concurrent writes on one Conn.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writeLoop() {
	for b := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			// Closing the conn fails the read loop, which unregisters us.
			_ = c.conn.Close()
			return
		}
	}
}

// Hub is an in-memory broadcast fan-out. A station serves a handful of
// local displays, so nothing fancier is needed. Broadcast never waits on a
// client: each has a bounded queue and overflow drops the event.
type Hub struct {
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		logger:   logger,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		clients:  make(map[*client]struct{}),
	}
}

// LinkEvents returns the handler set to hang on the link manager. Handlers
// run on the link's processing path, so they only enqueue a broadcast.
func (h *Hub) LinkEvents() weighbridge.Events {
	return weighbridge.Events{
		RawLine:   func(line string) { h.Broadcast(Message{Type: "raw", Data: line}) },
		Reading:   func(r core.WeightReading) { h.Broadcast(Message{Type: "weight", Data: r}) },
		Stability: func(stable bool) { h.Broadcast(Message{Type: "stability", Data: stable}) },
		Zero:      func(zero bool) { h.Broadcast(Message{Type: "zero", Data: zero}) },
	}
}

// ServeHTTP upgrades the request and keeps the client registered until its
// read loop fails.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("ws: upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go c.writeLoop()
	go func() {
		defer h.remove(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	// Closing under the write lock keeps the close ordered against
	// Broadcast, which only sends while holding the read lock.
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	_ = c.conn.Close()
}

// Broadcast queues one message for every client, marshalling once. A full
// queue means a stalled client; the event is dropped for that client.
func (h *Hub) Broadcast(msg Message) {
	b, err := json.Marshal(msg)
	if err != nil {
		h.logger.Printf("ws: marshal failed: %v", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
		}
	}
}
