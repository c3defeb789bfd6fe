package websocket

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub maintains the set of active clients and their room subscriptions
type Hub struct {
	// Guards clients and rooms. Broadcasts from concurrent request
	// goroutines may evict stalled clients, so reads and writes of both
	// maps go through this mutex.
	mu sync.Mutex

	// Registered clients
	clients map[*Client]bool

	// Rooms mapping (roomID -> clients)
	rooms map[uint]map[*Client]bool

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client
}

// NewHub creates a new hub instance
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		rooms:      make(map[uint]map[*Client]bool),
	}
}

// Run starts the hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			h.evictLocked(client)
			h.mu.Unlock()
		}
	}
}

// evictLocked removes a client from the hub and every room and closes its
// send channel. The caller must hold mu. Evicting an already-evicted client
// is a no-op, so the channel is closed exactly once.
func (h *Hub) evictLocked(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)

	for roomID, clients := range h.rooms {
		delete(clients, client)
		// Clean up empty rooms
		if len(clients) == 0 {
			delete(h.rooms, roomID)
		}
	}

	close(client.send)
}

// joinRoom adds a client to a room
func (h *Hub) joinRoom(client *Client, roomID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
}

// leaveRoom removes a client from a room
func (h *Hub) leaveRoom(client *Client, roomID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; ok {
		delete(h.rooms[roomID], client)
		// Clean up empty rooms
		if len(h.rooms[roomID]) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// broadcastToRoom sends a message to all clients subscribed to a room.
// Clients whose send buffer is full are evicted rather than blocked on.
func (h *Hub) broadcastToRoom(roomID uint, message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.rooms[roomID] {
		select {
		case client.send <- message:
		default:
			h.evictLocked(client)
		}
	}
}

// BroadcastToRoom sends a message to all clients subscribed to a room
func BroadcastToRoom(roomID uint, msgType string, payload interface{}) {
	msg := Message{
		Type:    msgType,
		Payload: payload,
	}

	msgBytes, err := json.Marshal(msg)
	if err != nil {
		log.Printf("error marshaling message: %v", err)
		return
	}

	hub.broadcastToRoom(roomID, msgBytes)
}

// Global hub instance
var hub *Hub

// InitHub initializes the global hub
func InitHub() {
	hub = NewHub()
	go hub.Run()
}
