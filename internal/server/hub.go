package server

import (
	"context"
	"sync"

	"pipeline-dashboard-go/internal/models"
	"pipeline-dashboard-go/internal/store"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	EventChange  = "change"
	EventMessage = "message"
)

// Event is pushed to every websocket client. A change event tells the client
// which collection to refetch; a message event carries the status message.
type Event struct {
	Type    string          `json:"type"`
	Change  *store.Change   `json:"change,omitempty"`
	Message *models.Message `json:"message,omitempty"`
}

// Client is a connected websocket peer.
type Client struct {
	ID   string
	conn *websocket.Conn
	send chan Event
}

// Hub fans events out to the connected clients.
type Hub struct {
	logger *zap.Logger

	clients map[string]*Client

	register chan *Client

	unregister chan *Client

	broadcast chan Event

	done chan struct{}

	mu sync.RWMutex
}

// NewHub creates a hub. Run must be called for it to accept clients.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:     logger.Named("hub"),
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 64),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		h.mu.Lock()
		for id, client := range h.clients {
			delete(h.clients, id)
			close(client.send)
		}
		h.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.logger.Debug("Client connected", zap.String("client", client.ID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("Client disconnected", zap.String("client", client.ID))

		case event := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				select {
				case client.send <- event:
				default:
					h.logger.Warn("Client buffer full, skipping event", zap.String("client", client.ID))
				}
			}
			h.mu.RUnlock()
		}
	}
}

// RegisterClient adds conn to the hub with initial queued ahead of any
// broadcast. It returns nil once the hub stopped.
func (h *Hub) RegisterClient(conn *websocket.Conn, initial ...Event) *Client {
	client := &Client{ID: uuid.NewString(), conn: conn, send: make(chan Event, 16+len(initial))}
	for _, e := range initial {
		client.send <- e
	}
	select {
	case h.register <- client:
		return client
	case <-h.done:
		return nil
	}
}

// UnregisterClient removes client from the hub.
func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues event for every client without blocking.
func (h *Hub) Broadcast(event Event) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("Broadcast queue full, dropping event", zap.String("type", event.Type))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
