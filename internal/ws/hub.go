package ws

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/DevDeskHQ/devdesk_api/internal/models"
)

// Message types exchanged over the activity socket.
const (
	TypeConnected = "connected"
	TypeActivity  = "activity"
	TypePing      = "ping"
	TypePong      = "pong"
)

// Envelope is the JSON frame sent to browser clients.
type Envelope struct {
	Type  string              `json:"type"`
	Entry *models.ActivityLog `json:"entry,omitempty"`
}

// Client is one connected browser tab. Writes are serialized per connection
// because gorilla/websocket allows only one concurrent writer.
type Client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *Client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub is an explicit registry of open activity sockets. It is created in main
// and passed to the HTTP layer; there is no package-level instance, so tests
// can run independent hubs side by side.
//
// The hub makes no delivery promises: no queue, no replay, no ordering across
// concurrent broadcasts. A client that cannot be written to is dropped and
// must catch up via the REST activity listing.
type Hub struct {
	mu           sync.RWMutex
	clients      map[string]*Client
	sendFailures atomic.Int64
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

// Add registers a connection under the given id, sends the connected
// acknowledgement, and returns the client handle.
func (h *Hub) Add(id string, conn *websocket.Conn) *Client {
	c := &Client{id: id, conn: conn}

	h.mu.Lock()
	h.clients[id] = c
	total := len(h.clients)
	h.mu.Unlock()

	if err := c.writeJSON(Envelope{Type: TypeConnected}); err != nil {
		log.Warn().Str("client_id", id).Err(err).Msg("Failed to send connected ack")
	}
	log.Info().Str("client_id", id).Int("total_clients", total).Msg("Activity socket connected")
	return c
}

// Remove unregisters and closes a connection.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		_ = c.conn.Close()
		log.Info().Str("client_id", id).Int("total_clients", total).Msg("Activity socket disconnected")
	}
}

// Broadcast serializes the entry once and writes it to every open socket.
// Sockets whose write fails are dropped; failures are counted, never returned,
// so the database write that triggered the broadcast always succeeds.
func (h *Hub) Broadcast(entry *models.ActivityLog) {
	data, err := json.Marshal(Envelope{Type: TypeActivity, Entry: entry})
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal activity event")
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.write(data); err != nil {
			h.sendFailures.Add(1)
			log.Warn().Str("client_id", c.id).Err(err).Msg("Dropping activity socket after send failure")
			h.Remove(c.id)
		}
	}
}

// ReadLoop consumes inbound frames until the connection closes. The only
// inbound message the server reacts to is the keep-alive ping; everything
// else is ignored.
func (h *Hub) ReadLoop(c *Client) {
	defer h.Remove(c.id)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Envelope
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == TypePing {
			if err := c.writeJSON(Envelope{Type: TypePong}); err != nil {
				return
			}
		}
	}
}

// ClientCount returns the number of connected sockets.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SendFailures returns the number of dropped writes since startup.
func (h *Hub) SendFailures() int64 {
	return h.sendFailures.Load()
}

// Shutdown closes every open socket.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.Close()
	}
}
