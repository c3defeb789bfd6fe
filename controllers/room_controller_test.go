package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/plazachat/dm_backend/database"
	"github.com/plazachat/dm_backend/middleware"
	"github.com/plazachat/dm_backend/models"
	"github.com/plazachat/dm_backend/utils"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")

	dsn := filepath.Join(t.TempDir(), "api.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Room{}, &models.Entry{}, &models.Message{},
	))
	database.DB = db

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/register", Register)
	r.POST("/api/login", Login)

	api := r.Group("/api")
	api.Use(middleware.JWTAuth())
	api.GET("/rooms", GetRooms)
	api.POST("/rooms", CreateRoom)
	api.GET("/rooms/:id", GetRoom)
	api.GET("/messages", GetMessages)
	api.POST("/messages", CreateMessage)
	api.GET("/users", SearchUsers)
	return r
}

func registerUser(t *testing.T, db *gorm.DB, nickname string) (models.User, string) {
	t.Helper()

	user := models.User{
		Nickname: nickname,
		Email:    nickname + "@example.com",
		Password: "secret1a",
	}
	require.NoError(t, db.Create(&user).Error)

	token, err := utils.GenerateToken(user.ID)
	require.NoError(t, err)
	return user, token
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRegisterAndLogin(t *testing.T) {
	r := setupRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/register", "", gin.H{
		"nickname": "alice",
		"email":    "alice@example.com",
		"password": "secret1a",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotEmpty(t, decodeBody(t, w)["token"])

	w = doJSON(t, r, http.MethodPost, "/api/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "secret1a",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, decodeBody(t, w)["token"])

	w = doJSON(t, r, http.MethodPost, "/api/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateRoom_IdempotentPerPair(t *testing.T) {
	r := setupRouter(t)
	alice, aliceToken := registerUser(t, database.DB, "alice")
	bob, bobToken := registerUser(t, database.DB, "bob")

	w := doJSON(t, r, http.MethodPost, "/api/rooms", aliceToken, gin.H{"user_id": bob.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	roomID := decodeBody(t, w)["room_id"].(float64)
	require.NotZero(t, roomID)

	// Same pair again, this time with the room id supplied
	w = doJSON(t, r, http.MethodPost, "/api/rooms", aliceToken, gin.H{
		"room_id": roomID, "user_id": bob.ID,
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, roomID, decodeBody(t, w)["room_id"])

	// Bob starting a chat with Alice resolves the existing room; without a
	// room_id in the request this is still a get, not a create.
	w = doJSON(t, r, http.MethodPost, "/api/rooms", bobToken, gin.H{"user_id": alice.ID})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, roomID, decodeBody(t, w)["room_id"])

	var entries int64
	require.NoError(t, database.DB.Model(&models.Entry{}).
		Where("room_id = ?", uint(roomID)).Count(&entries).Error)
	require.EqualValues(t, 2, entries)
}

func TestCreateRoom_InvalidCounterpart(t *testing.T) {
	r := setupRouter(t)
	alice, aliceToken := registerUser(t, database.DB, "alice")

	w := doJSON(t, r, http.MethodPost, "/api/rooms", aliceToken, gin.H{"user_id": alice.ID + 100})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/rooms", aliceToken, gin.H{"user_id": alice.ID})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRoom_MembersOnly(t *testing.T) {
	r := setupRouter(t)
	_, aliceToken := registerUser(t, database.DB, "alice")
	bob, bobToken := registerUser(t, database.DB, "bob")
	_, carolToken := registerUser(t, database.DB, "carol")

	w := doJSON(t, r, http.MethodPost, "/api/rooms", aliceToken, gin.H{"user_id": bob.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	roomID := decodeBody(t, w)["room_id"].(float64)

	w = doJSON(t, r, http.MethodPost, "/api/messages", aliceToken, gin.H{
		"room_id": roomID, "content": "hi bob",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	path := fmt.Sprintf("/api/rooms/%d", uint(roomID))
	w = doJSON(t, r, http.MethodGet, path, bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	counterpart := body["counterpart"].(map[string]interface{})
	require.Equal(t, "alice", counterpart["nickname"])
	require.Len(t, body["messages"].([]interface{}), 1)

	// A non-member is denied, with no messages leaked
	w = doJSON(t, r, http.MethodGet, path, carolToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.NotContains(t, w.Body.String(), "hi bob")

	// Unknown room
	w = doJSON(t, r, http.MethodGet, "/api/rooms/999", aliceToken, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	// Unauthenticated
	w = doJSON(t, r, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMessagesEndpoints(t *testing.T) {
	r := setupRouter(t)
	_, aliceToken := registerUser(t, database.DB, "alice")
	bob, bobToken := registerUser(t, database.DB, "bob")
	_, carolToken := registerUser(t, database.DB, "carol")

	w := doJSON(t, r, http.MethodPost, "/api/rooms", aliceToken, gin.H{"user_id": bob.ID})
	roomID := decodeBody(t, w)["room_id"].(float64)

	for _, content := range []string{"one", "two"} {
		w = doJSON(t, r, http.MethodPost, "/api/messages", aliceToken, gin.H{
			"room_id": roomID, "content": content,
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	path := fmt.Sprintf("/api/messages?room_id=%d", uint(roomID))
	w = doJSON(t, r, http.MethodGet, path, bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	messages := decodeBody(t, w)["messages"].([]interface{})
	require.Len(t, messages, 2)
	first := messages[0].(map[string]interface{})
	require.Equal(t, "one", first["content"])

	// Posting into a room you are not a member of is denied
	w = doJSON(t, r, http.MethodPost, "/api/messages", carolToken, gin.H{
		"room_id": roomID, "content": "intruder",
	})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetRooms_ListsCounterpartAndUnread(t *testing.T) {
	r := setupRouter(t)
	_, aliceToken := registerUser(t, database.DB, "alice")
	bob, bobToken := registerUser(t, database.DB, "bob")

	w := doJSON(t, r, http.MethodPost, "/api/rooms", aliceToken, gin.H{"user_id": bob.ID})
	roomID := decodeBody(t, w)["room_id"].(float64)

	w = doJSON(t, r, http.MethodPost, "/api/messages", bobToken, gin.H{
		"room_id": roomID, "content": "are you there?",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/rooms", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rooms := decodeBody(t, w)["rooms"].([]interface{})
	require.Len(t, rooms, 1)

	summary := rooms[0].(map[string]interface{})
	counterpart := summary["counterpart"].(map[string]interface{})
	require.Equal(t, "bob", counterpart["nickname"])
	last := summary["last_message"].(map[string]interface{})
	require.Equal(t, "are you there?", last["content"])
	require.EqualValues(t, 1, summary["unread_count"])
}

func TestSearchUsers(t *testing.T) {
	r := setupRouter(t)
	_, aliceToken := registerUser(t, database.DB, "alice")
	registerUser(t, database.DB, "bob")
	registerUser(t, database.DB, "bobby")

	w := doJSON(t, r, http.MethodGet, "/api/users?nickname=bob", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	users := decodeBody(t, w)["users"].([]interface{})
	require.Len(t, users, 2)

	w = doJSON(t, r, http.MethodGet, "/api/users", aliceToken, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
