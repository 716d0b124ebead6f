package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Client wraps a websocket connection with serialized writes. Snapshot
// deliveries arrive from bus callbacks on arbitrary goroutines, so every
// write must go through the client's mutex.
type Client struct {
	conn *websocket.Conn
	info ConnInfo

	mu sync.Mutex
}

// NewClient wraps an upgraded connection.
func NewClient(conn *websocket.Conn, info ConnInfo) *Client {
	return &Client{conn: conn, info: info}
}

// Info returns the connection metadata captured at handshake time.
func (c *Client) Info() ConnInfo {
	return c.info
}

// WriteJSON sends one JSON frame, serialized against concurrent writers.
func (c *Client) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// ReadLoop blocks until the peer closes or errors.
func (c *Client) ReadLoop() error {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return err
		}
	}
}

// Close closes the underlying connection.
func (c *Client) Close() {
	_ = c.conn.Close()
}

// Hub tracks active subscription clients per endpoint kind.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*Client]bool)}
}

// Add registers a client under a kind.
func (h *Hub) Add(kind string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[kind]; !ok {
		h.clients[kind] = make(map[*Client]bool)
	}
	h.clients[kind][client] = true
}

// Remove deregisters a client.
func (h *Hub) Remove(kind string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.clients[kind]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, kind)
		}
	}
}

// Count reports how many clients are registered under a kind.
func (h *Hub) Count(kind string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[kind])
}
