// Package broadcast fans room events out to websocket connections. The hub
// never blocks a producer: each connection has a buffered send queue drained
// by its own writer goroutine, and a connection that cannot keep up is closed
// instead of stalling the room.
package broadcast

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/livemeet/livemeet/cmd/server/internal/events"
	"github.com/livemeet/livemeet/cmd/server/internal/metrics"
)

const (
	// sendQueueSize bounds the per-connection backlog before the connection
	// counts as a slow consumer.
	sendQueueSize = 64

	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// Hub tracks live connections and delivers events to them. It implements the
// room manager's Broadcaster contract.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*client
	logger  *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		logger:  logger,
	}
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// close shuts the send queue exactly once; the writer goroutine then closes
// the underlying connection.
func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Register attaches an upgraded connection to the hub and starts its writer.
func (h *Hub) Register(connID string, conn *websocket.Conn) {
	c := &client{
		id:   connID,
		conn: conn,
		send: make(chan []byte, sendQueueSize),
	}

	h.mu.Lock()
	if prev, ok := h.clients[connID]; ok {
		prev.close()
	}
	h.clients[connID] = c
	h.mu.Unlock()

	metrics.ConnectedClients.Inc()
	go h.writePump(c)
}

// Unregister detaches a connection and stops its writer. Idempotent.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	c, ok := h.clients[connID]
	if ok {
		delete(h.clients, connID)
	}
	h.mu.Unlock()

	if ok {
		c.close()
		metrics.ConnectedClients.Dec()
	}
}

// unregisterClient detaches one specific client. A writer tearing itself down
// must not detach a replacement that was registered under the same id.
func (h *Hub) unregisterClient(c *client) {
	h.mu.Lock()
	cur, ok := h.clients[c.id]
	if ok && cur == c {
		delete(h.clients, c.id)
	} else {
		ok = false
	}
	h.mu.Unlock()

	c.close()
	if ok {
		metrics.ConnectedClients.Dec()
	}
}

// Deliver enqueues the event for every listed connection. Events are
// marshalled once; enqueue order per connection matches call order, which the
// room manager ties to sequencer assignment order. A participant that left
// between sequencing and delivery is simply not in the list.
func (h *Hub) Deliver(connIDs []string, ev events.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("event marshal failed", "type", ev.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range connIDs {
		c, ok := h.clients[id]
		if !ok {
			continue
		}
		select {
		case c.send <- payload:
		default:
			// Slow consumer: closing beats reordering or blocking the room.
			h.logger.Warn("dropping slow consumer", "conn_id", id, "queued", len(c.send))
			delete(h.clients, id)
			c.close()
			metrics.ConnectedClients.Dec()
		}
	}
}

// SendTo enqueues a connection-scoped event (ack, error, live-state) for a
// single connection.
func (h *Hub) SendTo(connID string, ev events.Event) {
	h.Deliver([]string{connID}, ev)
}

// Count returns the number of attached connections.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// writePump drains one connection's queue. It owns all writes to the
// connection, including pings, so frames are never interleaved.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.Debug("write failed, detaching connection", "conn_id", c.id, "error", err)
				h.unregisterClient(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregisterClient(c)
				return
			}
		}
	}
}
