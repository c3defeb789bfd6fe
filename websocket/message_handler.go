package websocket

import (
	"encoding/json"
	"log"
	"strconv"

	"github.com/plazachat/dm_backend/chat"
	"github.com/plazachat/dm_backend/database"
)

// MessagePayload represents the structure of a message payload
type MessagePayload struct {
	RoomID  uint   `json:"room_id"`
	Content string `json:"content"`
}

// roomIDFromPayload coerces a join/leave payload into a room id. Clients
// send the id either as a JSON string or as a number.
func roomIDFromPayload(payload interface{}) (uint, bool) {
	switch v := payload.(type) {
	case string:
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil || id == 0 {
			return 0, false
		}
		return uint(id), true
	case float64:
		if v <= 0 || v != float64(uint(v)) {
			return 0, false
		}
		return uint(v), true
	default:
		return 0, false
	}
}

// HandleIncomingMessage processes one decoded frame from a client
func HandleIncomingMessage(client *Client, msg Message) {
	svc := chat.NewService(database.DB)

	switch msg.Type {
	case "join_room":
		roomID, ok := roomIDFromPayload(msg.Payload)
		if !ok {
			sendErrorToClient(client, "join_room requires a room id")
			return
		}

		// Subscription requires a membership entry; the client's claim
		// alone is not enough.
		member, err := svc.IsMember(roomID, client.userID)
		if err != nil {
			log.Printf("Error checking membership for user %d in room %d: %v",
				client.userID, roomID, err)
			sendErrorToClient(client, "Failed to join room")
			return
		}
		if !member {
			log.Printf("User %d attempted to join room %d without an entry",
				client.userID, roomID)
			sendErrorToClient(client, "You don't have access to this room")
			return
		}

		client.joinRoom(roomID)

		// Opening the room counts as reading it
		if err := svc.MarkRead(roomID, client.userID); err != nil {
			log.Printf("Error updating last read time: %v", err)
		}
	case "leave_room":
		roomID, ok := roomIDFromPayload(msg.Payload)
		if !ok {
			sendErrorToClient(client, "leave_room requires a room id")
			return
		}
		client.leaveRoom(roomID)
	case "message":
		// Re-encode the payload into its concrete shape
		payloadBytes, err := json.Marshal(msg.Payload)
		if err != nil {
			log.Printf("Error marshaling payload: %v", err)
			return
		}

		var payload MessagePayload
		if err := json.Unmarshal(payloadBytes, &payload); err != nil {
			log.Printf("Error unmarshaling message payload: %v", err)
			sendErrorToClient(client, "Malformed message payload")
			return
		}

		// Check if user is in the room
		if !client.inRoom(payload.RoomID) {
			log.Printf("User %d attempted to send message to room %d without joining",
				client.userID, payload.RoomID)
			sendErrorToClient(client, "Join the room before sending messages")
			return
		}

		// The service re-checks membership and persists the message
		savedMessage, err := svc.PostMessage(client.userID, payload.RoomID, payload.Content)
		if err != nil {
			log.Printf("Error saving message: %v", err)
			sendErrorToClient(client, "Failed to send message")
			return
		}

		// Broadcast the saved message to the room
		responseMsg := Message{
			Type:    "message",
			Payload: savedMessage,
		}

		responseBytes, err := json.Marshal(responseMsg)
		if err != nil {
			log.Printf("Error marshaling response message: %v", err)
			return
		}

		client.hub.broadcastToRoom(payload.RoomID, responseBytes)
	default:
		log.Printf("Unknown message type: %s", msg.Type)
	}
}

// sendErrorToClient sends an error message to a specific client
func sendErrorToClient(client *Client, errorMsg string) {
	msg := Message{
		Type:    "error",
		Payload: map[string]string{"message": errorMsg},
	}

	msgBytes, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshaling error message: %v", err)
		return
	}

	select {
	case client.send <- msgBytes:
	default:
		log.Printf("Failed to send error to client %d", client.userID)
	}
}
