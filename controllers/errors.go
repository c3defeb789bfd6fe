package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/plazachat/dm_backend/chat"
)

// chatError maps chat service errors onto HTTP responses. Authorization
// failures surface as a plain denial, never as internals.
func chatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrInvalidCounterpart), errors.Is(err, chat.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
	case errors.Is(err, chat.ErrRoomAccess):
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have access to this room"})
	case errors.Is(err, chat.ErrRoomCorrupt):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Room membership is inconsistent"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
