// Package ws fans JSON events out to live WebSocket connections per account.
package ws

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

const defaultSendBuffer = 32

// Client represents a single WebSocket connection with account context.
type Client struct {
	AccountID uuid.UUID
	Send      chan []byte
	hub       *Hub
	mu        sync.Mutex
	closed    bool
}

// NewClient builds a client with a bounded send buffer.
func NewClient(accountID uuid.UUID, buffer int) *Client {
	if buffer <= 0 {
		buffer = defaultSendBuffer
	}
	return &Client{AccountID: accountID, Send: make(chan []byte, buffer)}
}

// Close unregisters the client and closes its send channel. Safe to call twice.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	hub := c.hub
	c.mu.Unlock()

	if hub != nil {
		hub.unregister(c)
	}
	c.mu.Lock()
	close(c.Send)
	c.mu.Unlock()
}

// trySend queues data without blocking; full or closed clients miss the message.
func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// Hub maintains the set of active clients, indexed by account.
type Hub struct {
	mu     sync.RWMutex
	byUser map[uuid.UUID]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{byUser: make(map[uuid.UUID]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.mu.Lock()
	c.hub = h
	c.mu.Unlock()
	if h.byUser[c.AccountID] == nil {
		h.byUser[c.AccountID] = make(map[*Client]struct{})
	}
	h.byUser[c.AccountID][c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.byUser[c.AccountID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byUser, c.AccountID)
		}
	}
}

// SendToAccount pushes payload to every connection of the account and
// returns how many accepted it. Slow connections are skipped.
func (h *Hub) SendToAccount(accountID uuid.UUID, payload any) (int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	h.mu.RLock()
	m := h.byUser[accountID]
	clients := make([]*Client, 0, len(m))
	for c := range m {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range clients {
		if c.trySend(data) {
			delivered++
		}
	}
	return delivered, nil
}

// ConnectionCount reports live connections for one account.
func (h *Hub) ConnectionCount(accountID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser[accountID])
}
