package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"casino-engine/engine"
	"casino-engine/internal/auth"
	"casino-engine/internal/currency"
	"casino-engine/internal/db"
	"casino-engine/internal/models"
)

type fixture struct {
	db      *db.DB
	auth    *auth.Service
	rooms   *engine.RoomManager
	lobbies *engine.LobbyRegistry
	router  *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open("file::memory:?mode=memory"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := gdb.AutoMigrate(&models.User{}, &models.Transaction{}); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	f := &fixture{
		db:    &db.DB{DB: gdb},
		auth:  auth.NewService("test-secret", bcrypt.MinCost),
		rooms: engine.NewRoomManager(nil, nil, engine.Options{}, zerolog.Nop()),
	}
	f.lobbies = engine.NewLobbyRegistry(f.rooms, auth.NewAdminAuthorizer(gdb), zerolog.Nop())
	accounts := currency.NewService(gdb, nil, zerolog.Nop())
	t.Cleanup(f.rooms.Shutdown)

	r := gin.New()
	r.POST("/api/auth/register", func(c *gin.Context) { HandleRegister(c, f.db, f.auth, 500) })
	r.POST("/api/auth/login", func(c *gin.Context) { HandleLogin(c, f.db, f.auth) })
	api := r.Group("/api", AuthMiddleware(f.auth))
	api.GET("/user", func(c *gin.Context) { HandleGetCurrentUser(c, f.db) })
	api.GET("/user/history", func(c *gin.Context) { HandleGetHistory(c, accounts) })
	api.GET("/rooms", func(c *gin.Context) { HandleListRooms(c, f.rooms) })
	api.POST("/rooms", func(c *gin.Context) { HandleCreateRoom(c, f.rooms) })
	api.POST("/lobbies", func(c *gin.Context) { HandleCreateLobby(c, f.lobbies) })
	api.GET("/lobbies/:id", func(c *gin.Context) { HandleGetLobby(c, f.lobbies) })
	api.DELETE("/lobbies/:id", func(c *gin.Context) { HandleDestroyLobby(c, f.lobbies) })
	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) register(t *testing.T, username string) models.AuthResponse {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": username,
		"email":    username + "@test.com",
		"password": "Password123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Register %s: expected 201, got %d: %s", username, w.Code, w.Body.String())
	}
	var resp models.AuthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode auth response: %v", err)
	}
	return resp
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)

	reg := f.register(t, "alice")
	if reg.User.Credits != 500 {
		t.Errorf("Expected 500 starting credits, got %d", reg.User.Credits)
	}
	if reg.Token == "" {
		t.Error("Expected a token on register")
	}

	if w := f.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "alice", "email": "other@test.com", "password": "Password123",
	}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected duplicate username to be refused, got %d", w.Code)
	}
	if w := f.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "bob", "email": "bob@test.com", "password": "weak",
	}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected weak password to be refused, got %d", w.Code)
	}

	w := f.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "Password123"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected login 200, got %d", w.Code)
	}
	var login models.AuthResponse
	json.Unmarshal(w.Body.Bytes(), &login)

	if w := f.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "Wrong123"}); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected bad password 401, got %d", w.Code)
	}

	w = f.do(t, http.MethodGet, "/api/user", login.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected /api/user 200, got %d", w.Code)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("password_hash")) {
		t.Error("Password hash must not be serialized")
	}

	if w := f.do(t, http.MethodGet, "/api/user/history", login.Token, nil); w.Code != http.StatusOK {
		t.Errorf("Expected history 200, got %d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	f := newFixture(t)

	if w := f.do(t, http.MethodGet, "/api/rooms", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected missing token 401, got %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/api/rooms", "garbage", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected bad token 401, got %d", w.Code)
	}
}

func TestCreateAndListRooms(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "alice").Token

	if w := f.do(t, http.MethodPost, "/api/rooms", token, gin.H{"game_type": "roulette"}); w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if w := f.do(t, http.MethodPost, "/api/rooms", token, gin.H{"game_type": "craps"}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected unknown game 400, got %d", w.Code)
	}
	if w := f.do(t, http.MethodPost, "/api/rooms", token, gin.H{"game_type": "poker", "max_clients": 40}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected oversized room 400, got %d", w.Code)
	}

	w := f.do(t, http.MethodGet, "/api/rooms", token, nil)
	var resp struct {
		Rooms []struct {
			GameType string `json:"gameType"`
		} `json:"rooms"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Rooms) != 1 || resp.Rooms[0].GameType != "roulette" {
		t.Errorf("Expected one roulette room, got %+v", resp.Rooms)
	}
}

func TestLobbyLifecycle(t *testing.T) {
	f := newFixture(t)
	owner := f.register(t, "owner")
	other := f.register(t, "other")

	w := f.do(t, http.MethodPost, "/api/lobbies", owner.Token, gin.H{
		"rooms": gin.H{"blackjack": 2, "poker": 1.5, "craps": 1, "roulette": 1},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var lobby engine.Lobby
	json.Unmarshal(w.Body.Bytes(), &lobby)
	if len(lobby.RoomIDs) != 3 {
		t.Fatalf("Expected 3 rooms, got %d", len(lobby.RoomIDs))
	}
	if lobby.Owner != owner.User.ID {
		t.Errorf("Expected owner %s, got %s", owner.User.ID, lobby.Owner)
	}

	if w := f.do(t, http.MethodGet, "/api/lobbies/"+lobby.ID, other.Token, nil); w.Code != http.StatusOK {
		t.Errorf("Expected lobby lookup 200, got %d", w.Code)
	}
	w = f.do(t, http.MethodGet, "/api/lobbies/00000000-0000-4000-8000-000000000000", other.Token, nil)
	if w.Code != http.StatusNotFound || !bytes.Contains(w.Body.Bytes(), []byte(engine.ErrLobbyNotFound.Error())) {
		t.Errorf("Expected unknown lobby 404, got %d: %s", w.Code, w.Body.String())
	}
	if w := f.do(t, http.MethodGet, "/api/lobbies/not-a-lobby", other.Token, nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected malformed lobby id 400, got %d", w.Code)
	}

	// the owner is not an admin yet
	if w := f.do(t, http.MethodDelete, "/api/lobbies/"+lobby.ID, owner.Token, nil); w.Code != http.StatusForbidden {
		t.Errorf("Expected non-admin destroy 403, got %d", w.Code)
	}
	f.db.Model(&models.User{}).Where("id = ?", other.User.ID).Update("is_admin", true)
	if w := f.do(t, http.MethodDelete, "/api/lobbies/"+lobby.ID, other.Token, nil); w.Code != http.StatusForbidden {
		t.Errorf("Expected non-owner destroy 403, got %d", w.Code)
	}

	f.db.Model(&models.User{}).Where("id = ?", owner.User.ID).Update("is_admin", true)
	if w := f.do(t, http.MethodDelete, "/api/lobbies/"+lobby.ID, owner.Token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("Expected destroy 204, got %d", w.Code)
	}
	if n := len(f.rooms.List()); n != 0 {
		t.Errorf("Expected lobby rooms gone, %d left", n)
	}

	if w := f.do(t, http.MethodPost, "/api/lobbies", owner.Token, gin.H{"rooms": gin.H{"poker": 500}}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected oversized lobby 400, got %d", w.Code)
	}
}
