// Package tracker pushes live player presence over WebSocket. Clients
// subscribe to individual player uuids; a poller watches the union of all
// subscribed players and broadcasts presence changes.
package tracker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Message types
const (
	MessageTypeStatusUpdate = "status_update"
	MessageTypeSubscribe    = "subscribe"
	MessageTypeUnsubscribe  = "unsubscribe"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
	MessageTypeError        = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type       string      `json:"type"`
	PlayerUUID string      `json:"player_uuid,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Hub maintains the set of active clients and broadcasts status updates. It
// remembers the last update per tracked player so a late subscriber sees the
// current presence immediately instead of waiting out a poll cycle.
type Hub struct {
	// Registered clients by player uuid
	clients map[string]map[*Client]bool

	// Last broadcast status per tracked player, pre-marshaled. Pruned when
	// the last subscriber leaves.
	lastStatus map[string][]byte

	// All connected clients
	allClients map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Outbound status updates
	broadcast chan *Message

	// Subscription requests
	subscribe chan *subscriptionRequest

	// Unsubscription requests
	unsubscribe chan *subscriptionRequest

	mu sync.RWMutex

	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

type subscriptionRequest struct {
	client     *Client
	playerUUID string
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[string]map[*Client]bool),
		lastStatus:  make(map[string][]byte),
		allClients:  make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *Message, 256),
		subscribe:   make(chan *subscriptionRequest, 64),
		unsubscribe: make(chan *subscriptionRequest, 64),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	h.logger.Info("tracker hub started")
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("tracker hub stopping")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.allClients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", "client_id", client.id)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.allClients[client]; ok {
				delete(h.allClients, client)
				for uuid, clients := range h.clients {
					if _, ok := clients[client]; ok {
						delete(clients, client)
						if len(clients) == 0 {
							delete(h.clients, uuid)
							delete(h.lastStatus, uuid)
						}
					}
				}
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", "client_id", client.id)

		case req := <-h.subscribe:
			h.mu.Lock()
			if _, ok := h.clients[req.playerUUID]; !ok {
				h.clients[req.playerUUID] = make(map[*Client]bool)
			}
			h.clients[req.playerUUID][req.client] = true
			replay := h.lastStatus[req.playerUUID]
			h.mu.Unlock()
			if replay != nil {
				select {
				case req.client.send <- replay:
				default:
				}
			}
			h.logger.Debug("client subscribed", "client_id", req.client.id, "player_uuid", req.playerUUID)

		case req := <-h.unsubscribe:
			h.mu.Lock()
			if clients, ok := h.clients[req.playerUUID]; ok {
				delete(clients, req.client)
				if len(clients) == 0 {
					delete(h.clients, req.playerUUID)
					delete(h.lastStatus, req.playerUUID)
				}
			}
			h.mu.Unlock()
			h.logger.Debug("client unsubscribed", "client_id", req.client.id, "player_uuid", req.playerUUID)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	h.cancel()
}

// broadcastMessage sends a message to every client subscribed to its player
// and records it as the player's last known status for subscriber replay.
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal message", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[message.PlayerUUID]
	if !ok {
		return
	}
	if message.Type == MessageTypeStatusUpdate {
		h.lastStatus[message.PlayerUUID] = data
	}
	for client := range clients {
		select {
		case client.send <- data:
		default:
			// Client's buffer is full, skip
			h.logger.Warn("client buffer full, skipping", "client_id", client.id)
		}
	}
}

// BroadcastStatus queues a presence update for a player's subscribers
func (h *Hub) BroadcastStatus(playerUUID string, status interface{}) {
	message := &Message{
		Type:       MessageTypeStatusUpdate,
		PlayerUUID: playerUUID,
		Data:       status,
		Timestamp:  time.Now(),
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast channel full, dropping message")
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribe adds a client to a player subscription
func (h *Hub) Subscribe(client *Client, playerUUID string) {
	h.subscribe <- &subscriptionRequest{
		client:     client,
		playerUUID: playerUUID,
	}
}

// Unsubscribe removes a client from a player subscription
func (h *Hub) Unsubscribe(client *Client, playerUUID string) {
	h.unsubscribe <- &subscriptionRequest{
		client:     client,
		playerUUID: playerUUID,
	}
}

// TrackedPlayers returns the uuids that currently have at least one subscriber
func (h *Hub) TrackedPlayers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	uuids := make([]string, 0, len(h.clients))
	for uuid := range h.clients {
		uuids = append(uuids, uuid)
	}
	return uuids
}

// GetTotalConnections returns the total number of connected clients
func (h *Hub) GetTotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.allClients)
}
