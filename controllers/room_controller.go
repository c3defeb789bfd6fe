package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/plazachat/dm_backend/chat"
	"github.com/plazachat/dm_backend/database"
)

type CreateRoomInput struct {
	RoomID uint `json:"room_id" example:"10"`
	UserID uint `json:"user_id" binding:"required" example:"2"`
}

// GetRooms godoc
// @Summary Get all rooms for the authenticated user
// @Description Returns every direct-message room the user belongs to, newest activity first, with counterpart, last message and unread count
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "List of rooms"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/rooms [get]
func GetRooms(c *gin.Context) {
	userID := c.MustGet("userID").(uint)

	rooms, err := chat.NewService(database.DB).ListRooms(userID)
	if err != nil {
		chatError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// CreateRoom godoc
// @Summary Open a direct-message room with another user
// @Description Returns the single room for the user pair, creating it with both membership entries if it does not exist yet. Passing an existing room_id is an idempotent get.
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param room body CreateRoomInput true "Counterpart user and optional existing room id"
// @Success 200 {object} map[string]interface{} "Existing room returned"
// @Success 201 {object} map[string]interface{} "Room created"
// @Failure 400 {object} map[string]string "Invalid counterpart"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/rooms [post]
func CreateRoom(c *gin.Context) {
	userID := c.MustGet("userID").(uint)

	var input CreateRoomInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	roomID, created, err := chat.NewService(database.DB).CreateOrGetRoom(userID, input.RoomID, input.UserID)
	if err != nil {
		chatError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"room_id": roomID})
}

// GetRoom godoc
// @Summary Get a room's thread
// @Description Returns the room, its messages in creation order and the other member. Only members may view a room.
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Room ID"
// @Success 200 {object} map[string]interface{} "Room view"
// @Failure 400 {object} map[string]string "Invalid room ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Room not found"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/rooms/{id} [get]
func GetRoom(c *gin.Context) {
	userID := c.MustGet("userID").(uint)
	roomID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID"})
		return
	}

	view, err := chat.NewService(database.DB).RoomView(uint(roomID), userID)
	if err != nil {
		chatError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room":        view.Room,
		"counterpart": view.Counterpart,
		"messages":    view.Messages,
	})
}
