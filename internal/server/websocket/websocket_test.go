package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"casino-engine/engine"
	"casino-engine/internal/server/game"
	"casino-engine/models"
)

func TestParseOrigins(t *testing.T) {
	origins := ParseOrigins("http://example.com,https://app.example.com, http://localhost:3000  ,")
	expected := []string{
		"http://example.com",
		"https://app.example.com",
		"http://localhost:3000",
	}

	if len(origins) != len(expected) {
		t.Fatalf("Expected %d origins, got %d", len(expected), len(origins))
	}
	for i, origin := range origins {
		if origin != expected[i] {
			t.Errorf("Expected origin %s, got %s", expected[i], origin)
		}
	}
}

func TestAllowedOriginsFromEnv_Default(t *testing.T) {
	os.Unsetenv("ALLOWED_ORIGINS")

	origins := AllowedOriginsFromEnv()
	if len(origins) != 2 || origins[0] != "http://localhost:3000" || origins[1] != "http://127.0.0.1:3000" {
		t.Errorf("Unexpected default origins: %v", origins)
	}
}

func TestOriginChecker(t *testing.T) {
	check := OriginChecker([]string{"http://localhost:3000", "https://app.example.com"})

	tests := []struct {
		name     string
		origin   string
		expected bool
	}{
		{"Allowed", "http://localhost:3000", true},
		{"Second allowed", "https://app.example.com", true},
		{"Not allowed", "http://evil.com", false},
		{"Missing header", "", false},
		{"Case sensitive", "http://LOCALHOST:3000", false},
		{"Protocol mismatch", "http://app.example.com", false},
		{"Port mismatch", "http://localhost:8080", false},
		{"Subdomain", "https://sub.app.example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := check(req); got != tt.expected {
				t.Errorf("For origin %q: expected %v, got %v", tt.origin, tt.expected, got)
			}
		})
	}

	wildcard := OriginChecker([]string{"*"})
	if !wildcard(httptest.NewRequest("GET", "/ws", nil)) {
		t.Error("Expected wildcard to allow any origin")
	}
}

type staticTokens map[string]string

func (s staticTokens) ValidateToken(token string) (string, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return "", errors.New("bad token")
}

type gatewayFixture struct {
	rooms  *engine.RoomManager
	roomID string
	server *httptest.Server
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rooms := engine.NewRoomManager(nil, nil, engine.Options{}, zerolog.Nop())
	roomID, err := rooms.CreateRoom(models.GameBlackjack, engine.Options{})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	tracker := game.NewActionTracker(time.Minute)
	t.Cleanup(tracker.Stop)

	gw := NewGateway(rooms, staticTokens{"good": "acct-1"}, tracker, nil, []string{"*"}, zerolog.Nop())
	r := gin.New()
	r.GET("/ws", gw.Handle)
	server := httptest.NewServer(r)

	t.Cleanup(func() {
		server.Close()
		rooms.Shutdown()
	})
	return &gatewayFixture{rooms: rooms, roomID: roomID, server: server}
}

func (f *gatewayFixture) url(token, room, name string) string {
	q := url.Values{"token": {token}, "room": {room}, "name": {name}}
	return "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?" + q.Encode()
}

// readUntil returns the first event named name, failing after a second.
func readUntil(t *testing.T, conn *websocket.Conn, name string) models.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Waiting for %s: %v", name, err)
		}
		var ev models.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("Bad event %s: %v", data, err)
		}
		if ev.Event == name {
			return ev
		}
	}
}

func TestGateway_RejectsBadRequests(t *testing.T) {
	f := newGatewayFixture(t)

	tests := []struct {
		name   string
		token  string
		room   string
		status int
	}{
		{"Bad token", "nope", f.roomID, http.StatusUnauthorized},
		{"Unknown room", "good", "missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(f.url(tt.token, tt.room, "Alice"), nil)
			if err == nil {
				t.Fatal("Expected dial to fail")
			}
			if resp == nil || resp.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %v", tt.status, resp)
			}
		})
	}
}

func TestGateway_JoinPlayAndDestroy(t *testing.T) {
	f := newGatewayFixture(t)

	conn, _, err := websocket.DefaultDialer.Dial(f.url("good", f.roomID, "Alice"), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	snapshot := readUntil(t, conn, models.EventStateSnapshot)
	if snapshot.RoomID != f.roomID {
		t.Errorf("Expected snapshot for %s, got %s", f.roomID, snapshot.RoomID)
	}

	conn.WriteJSON(map[string]string{"type": "cheat"})
	rejected := readUntil(t, conn, models.EventActionRejected)
	data, _ := json.Marshal(rejected.Data)
	if !strings.Contains(string(data), "cheat") {
		t.Errorf("Expected rejection for cheat, got %s", data)
	}

	if err := f.rooms.DestroyRoom(f.roomID); err != nil {
		t.Fatalf("DestroyRoom failed: %v", err)
	}
	readUntil(t, conn, models.EventRoomDestroyed)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("Expected going-away close, got %v", err)
	}
}

func TestGateway_LeaveClosesConnection(t *testing.T) {
	f := newGatewayFixture(t)

	conn, _, err := websocket.DefaultDialer.Dial(f.url("good", f.roomID, ""), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	readUntil(t, conn, models.EventStateSnapshot)

	conn.WriteJSON(models.Message{Type: models.MsgLeave, RequestID: "leave-1"})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Errorf("Expected normal close, got %v", err)
			}
			break
		}
	}

	room, err := f.rooms.Get(f.roomID)
	if err != nil {
		t.Fatalf("Room should outlive the leave: %v", err)
	}
	if err := room.Sync(context.Background()); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if n := room.Summary().Players; n != 0 {
		t.Errorf("Expected empty room after leave, got %d players", n)
	}
}
