package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/plazachat/dm_backend/database"
	"github.com/plazachat/dm_backend/models"
)

// SearchUsers godoc
// @Summary Find users by nickname
// @Description Returns users whose nickname matches the query, so a client can pick a counterpart to message
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param nickname query string true "Nickname to search for"
// @Success 200 {object} map[string]interface{} "Matching users"
// @Failure 400 {object} map[string]string "Missing nickname"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Server error"
// @Router /api/users [get]
func SearchUsers(c *gin.Context) {
	userID := c.MustGet("userID").(uint)

	nickname := c.Query("nickname")
	if nickname == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nickname is required"})
		return
	}

	var users []models.User
	if err := database.DB.
		Where("nickname LIKE ? AND id <> ?", "%"+nickname+"%", userID).
		Limit(20).
		Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search users"})
		return
	}

	results := make([]gin.H, 0, len(users))
	for _, u := range users {
		results = append(results, gin.H{"id": u.ID, "nickname": u.Nickname})
	}

	c.JSON(http.StatusOK, gin.H{"users": results})
}
