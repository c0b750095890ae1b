package notification

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Hub keeps the live front-desk connections and broadcasts booking events
// to all of them.
type Hub struct {
	clients map[int64]*client
	nextID  int64
	mutex   sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[int64]*client),
	}
}

func (h *Hub) Register(conn *websocket.Conn) int64 {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.nextID++
	h.clients[h.nextID] = &client{conn: conn}
	return h.nextID
}

func (h *Hub) Unregister(id int64) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if c, exists := h.clients[id]; exists {
		_ = c.conn.Close()
		delete(h.clients, id)
	}
}

// Publish sends the event to every connection. Connections that fail the
// write are dropped.
func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.mutex.RLock()
	targets := make(map[int64]*client, len(h.clients))
	for id, c := range h.clients {
		targets[id] = c
	}
	h.mutex.RUnlock()

	for id, c := range targets {
		if err := c.writeJSON(ev); err != nil {
			h.Unregister(id)
		}
	}
	return nil
}

func (h *Hub) ping(id int64) bool {
	h.mutex.RLock()
	c, ok := h.clients[id]
	h.mutex.RUnlock()
	if !ok {
		return false
	}
	if err := c.ping(); err != nil {
		h.Unregister(id)
		return false
	}
	return true
}

func (h *Hub) Count() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.clients)
}

func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for id, c := range h.clients {
		_ = c.conn.Close()
		delete(h.clients, id)
	}
}
