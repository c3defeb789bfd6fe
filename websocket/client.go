package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// How long a single write to the peer may take
	writeWait = 10 * time.Second

	// The connection is dropped if no pong arrives within this window
	pongWait = 60 * time.Second

	// Ping interval; must be shorter than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Upper bound on an inbound frame; a DM body is never near this
	maxMessageSize = 8192
)

// Client is one authenticated websocket connection. Its user id comes from
// the verified token, and rooms tracks the subscriptions this connection has
// been granted.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	userID   uint
	rooms    map[uint]bool
	roomsMux sync.RWMutex
}

// Message is the frame exchanged with clients: a type tag plus a payload
// whose shape depends on the type.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// readPump reads frames off the connection, decodes them once and hands them
// to the message handler. It owns the read side; on any error it unregisters
// the client.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket read error for user %d: %v", c.userID, err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("dropping malformed frame from user %d: %v", c.userID, err)
			sendErrorToClient(c, "Malformed message")
			continue
		}

		HandleIncomingMessage(c, msg)
	}
}

// writePump drains the send channel onto the connection and keeps the peer
// alive with pings. It owns the write side.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub evicted this client
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Flush whatever else is queued into the same frame
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// joinRoom records the granted subscription on both the client and the hub
func (c *Client) joinRoom(roomID uint) {
	c.roomsMux.Lock()
	defer c.roomsMux.Unlock()
	c.rooms[roomID] = true
	c.hub.joinRoom(c, roomID)
}

// leaveRoom drops the subscription on both sides
func (c *Client) leaveRoom(roomID uint) {
	c.roomsMux.Lock()
	defer c.roomsMux.Unlock()
	delete(c.rooms, roomID)
	c.hub.leaveRoom(c, roomID)
}

// inRoom reports whether this connection holds a subscription for the room
func (c *Client) inRoom(roomID uint) bool {
	c.roomsMux.RLock()
	defer c.roomsMux.RUnlock()
	return c.rooms[roomID]
}
