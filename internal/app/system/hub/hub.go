// internal/app/system/hub/hub.go

// Package hub fans pickup chat traffic out to connected websocket clients.
// Each pickup request gets its own room; rooms are created on first join
// and reaped when the last client leaves.
package hub

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Conn is the subset of *websocket.Conn the hub writes through. Narrowed
// so room behavior is testable without network connections.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
}

// Gorilla's websocket.TextMessage. Declared locally so importing the hub
// does not drag the websocket package into every test.
const textMessage = 1

// Event is one frame pushed to chat clients.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Sender  string          `json:"sender,omitempty"`
}

// Client is one connected participant in a request's chat.
type Client struct {
	Conn     Conn
	UserID   string
	UserName string
	Role     string

	mu sync.Mutex // serializes writes to Conn
}

// Send writes one text frame to the client. All writes to a client's Conn
// must go through Send; it holds the per-client lock that keeps broadcast
// fan-out and direct replies from writing the connection concurrently.
func (c *Client) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(textMessage, data)
}

// Room holds the clients attached to one pickup request.
type Room struct {
	ID      string
	clients map[Conn]*Client
	mu      sync.RWMutex
}

// Hub manages all rooms.
type Hub struct {
	rooms map[string]*Room
	mu    sync.RWMutex
	log   *zap.Logger
}

func New(logger *zap.Logger) *Hub {
	return &Hub{rooms: make(map[string]*Room), log: logger}
}

// GetOrCreateRoom returns the room for a request, creating it on first use.
func (h *Hub) GetOrCreateRoom(requestID string) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[requestID]; ok {
		return room
	}
	room := &Room{ID: requestID, clients: make(map[Conn]*Client)}
	h.rooms[requestID] = room
	return room
}

// Room returns an existing room or nil.
func (h *Hub) Room(requestID string) *Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[requestID]
}

// RemoveRoomIfEmpty drops a room once its last client has left.
func (h *Hub) RemoveRoomIfEmpty(requestID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[requestID]
	if !ok {
		return
	}
	room.mu.RLock()
	empty := len(room.clients) == 0
	room.mu.RUnlock()

	if empty {
		delete(h.rooms, requestID)
	}
}

// Broadcast marshals an event and sends it to every client in the request's
// room. A missing room is not an error; nobody is listening.
func (h *Hub) Broadcast(requestID string, ev Event) {
	room := h.Room(requestID)
	if room == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("marshal hub event", zap.Error(err))
		return
	}
	room.broadcast(nil, data, h.log)
}

// AddClient attaches a client to the room.
func (r *Room) AddClient(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.Conn] = c
}

// RemoveClient detaches a client from the room.
func (r *Room) RemoveClient(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, conn)
}

// ClientCount returns the number of attached clients.
func (r *Room) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// BroadcastFrom sends raw frame data to every client except the sender.
func (r *Room) BroadcastFrom(sender Conn, data []byte, logger *zap.Logger) {
	r.broadcast(sender, data, logger)
}

func (r *Room) broadcast(sender Conn, data []byte, logger *zap.Logger) {
	r.mu.RLock()
	targets := make([]*Client, 0, len(r.clients))
	for conn, c := range r.clients {
		if conn != sender {
			targets = append(targets, c)
		}
	}
	r.mu.RUnlock()

	for _, c := range targets {
		if err := c.Send(data); err != nil {
			logger.Warn("dropping undeliverable hub frame",
				zap.String("room", r.ID),
				zap.String("user", c.UserID),
				zap.Error(err))
		}
	}
}
