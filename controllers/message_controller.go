package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/plazachat/dm_backend/chat"
	"github.com/plazachat/dm_backend/database"
	"github.com/plazachat/dm_backend/websocket"
)

type CreateMessageInput struct {
	Content string `json:"content" binding:"required" example:"Hello!"`
	RoomID  uint   `json:"room_id" binding:"required" example:"1"`
}

// GetMessages godoc
// @Summary Get all messages for a room
// @Description Returns the room's messages in creation order. Only members may read a room.
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param room_id query int true "Room ID"
// @Success 200 {object} map[string]interface{} "List of messages"
// @Failure 400 {object} map[string]string "Invalid room ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/messages [get]
func GetMessages(c *gin.Context) {
	userID := c.MustGet("userID").(uint)
	roomID, err := strconv.ParseUint(c.Query("room_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID"})
		return
	}

	messages, err := chat.NewService(database.DB).Messages(uint(roomID), userID)
	if err != nil {
		chatError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// CreateMessage godoc
// @Summary Send a message to a room
// @Description Appends a message to a direct-message room on behalf of a member and pushes it to connected clients
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param message body CreateMessageInput true "Message Creation"
// @Success 201 {object} map[string]interface{} "Message sent successfully"
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/messages [post]
func CreateMessage(c *gin.Context) {
	userID := c.MustGet("userID").(uint)

	var input CreateMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := chat.NewService(database.DB).PostMessage(userID, input.RoomID, input.Content)
	if err != nil {
		chatError(c, err)
		return
	}

	// Broadcast message to room
	websocket.BroadcastToRoom(input.RoomID, "message", message)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Message sent successfully",
		"data":    message,
	})
}
