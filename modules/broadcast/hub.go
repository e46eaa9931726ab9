package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/example/chat-relay/modules/chat"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
)

const (
	sendBufferSize    = 64
	deliverBufferSize = 256
	writeWait         = 10 * time.Second
	pingPeriod        = 50 * time.Second
)

// Conn is the write side of a WebSocket connection.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client represents a connected WebSocket client.
type Client struct {
	ID   string
	conn Conn
	send chan []byte
	done chan struct{}
}

// NewClient creates a client for conn. Frames are written only by WritePump.
func NewClient(id string, conn Conn) *Client {
	return &Client{
		ID:   id,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
}

// WritePump drains the send queue to the connection until the hub closes it.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.done)
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				_ = c.conn.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				_ = c.conn.Close()
				c.drain()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.conn.Close()
				c.drain()
				return
			}
		}
	}
}

// drain discards queued frames until the hub closes the queue.
func (c *Client) drain() {
	for range c.send {
	}
}

// Done is closed once WritePump has returned.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Hub owns the live connections and their group memberships. It implements
// chat.Transport: effect batches are applied by a single goroutine in the
// order they were delivered.
type Hub struct {
	clients    map[string]*Client
	groups     map[string]map[string]struct{}
	register   chan *Client
	unregister chan *Client
	deliver    chan []chat.Effect
	done       chan struct{}
	mu         sync.RWMutex
	logger     types.Logger
}

var _ chat.Transport = (*Hub)(nil)

// NewHub creates a new Hub.
func NewHub(logger types.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		groups:     make(map[string]map[string]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan []chat.Effect, deliverBufferSize),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's main loop. It accepts a context for graceful shutdown.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Hub shutting down")
			h.closeAllClients()
			close(h.done)
			return
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case effects := <-h.deliver:
			h.handleDeliver(effects)
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

// Register adds a client to the hub. It returns once the hub has recorded
// the client, so effects delivered afterwards can reach it.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

// Unregister removes a client from the hub and closes its send queue.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Deliver queues a batch of effects. Batches are applied in call order.
func (h *Hub) Deliver(effects []chat.Effect) {
	select {
	case h.deliver <- effects:
	case <-h.done:
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		close(client.send)
		delete(h.clients, id)
	}
	h.groups = make(map[string]map[string]struct{})
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("Client registered", "connID", client.ID, "clients", count)
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(client)
}

// removeLocked drops client and its group memberships. h.mu must be held.
func (h *Hub) removeLocked(client *Client) {
	current, ok := h.clients[client.ID]
	if !ok || current != client {
		return
	}
	delete(h.clients, client.ID)
	for groupID, members := range h.groups {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.groups, groupID)
		}
	}
	close(client.send)
	h.logger.Debug("Client unregistered", "connID", client.ID, "clients", len(h.clients))
}

func (h *Hub) handleDeliver(effects []chat.Effect) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, effect := range effects {
		switch effect.Kind {
		case chat.EffectJoinGroup:
			h.joinGroupLocked(effect.ConnID, effect.GroupID)
		case chat.EffectSend:
			h.sendLocked(effect)
		}
	}
}

func (h *Hub) joinGroupLocked(connID, groupID string) {
	if _, ok := h.clients[connID]; !ok {
		return
	}
	if h.groups[groupID] == nil {
		h.groups[groupID] = make(map[string]struct{})
	}
	h.groups[groupID][connID] = struct{}{}
}

func (h *Hub) sendLocked(effect chat.Effect) {
	data, err := encodeFrame(effect.Event, effect.Payload)
	if err != nil {
		h.logger.Error("Failed to encode outbound event", "event", effect.Event, "error", err)
		return
	}

	var failed []*Client
	switch effect.Scope {
	case chat.ScopeConnection:
		if client, ok := h.clients[effect.ConnID]; ok && !h.enqueue(client, data) {
			failed = append(failed, client)
		}
	case chat.ScopeAll, chat.ScopeAllExcept:
		for id, client := range h.clients {
			if effect.Scope == chat.ScopeAllExcept && id == effect.ConnID {
				continue
			}
			if !h.enqueue(client, data) {
				failed = append(failed, client)
			}
		}
	}

	for _, client := range failed {
		h.logger.Warn("Dropping slow client", "connID", client.ID)
		h.removeLocked(client)
	}
}

// enqueue reports false when the client's queue is full.
func (h *Hub) enqueue(client *Client, data []byte) bool {
	select {
	case client.send <- data:
		return true
	default:
		return false
	}
}

func encodeFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(chat.Frame{Event: event, Data: data})
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GroupCount returns the number of non-empty groups.
func (h *Hub) GroupCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups)
}

// GroupMembers returns the connection ids in a group.
func (h *Hub) GroupMembers(groupID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := make([]string, 0, len(h.groups[groupID]))
	for id := range h.groups[groupID] {
		members = append(members, id)
	}
	return members
}
