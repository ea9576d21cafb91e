package websocket

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"casino-engine/engine"
	"casino-engine/internal/middleware"
	"casino-engine/internal/server/game"
	"casino-engine/internal/validation"
	"casino-engine/models"
)

const routeTimeout = 5 * time.Second

// TokenValidator resolves a bearer token to an account id.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// Gateway upgrades HTTP requests to room connections and routes their messages.
type Gateway struct {
	rooms    *engine.RoomManager
	tokens   TokenValidator
	tracker  *game.ActionTracker
	limiter  *middleware.RateLimiter
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewGateway builds a gateway. tracker and limiter may be nil.
func NewGateway(rooms *engine.RoomManager, tokens TokenValidator, tracker *game.ActionTracker, limiter *middleware.RateLimiter, allowedOrigins []string, logger zerolog.Logger) *Gateway {
	return &Gateway{
		rooms:   rooms,
		tokens:  tokens,
		tracker: tracker,
		limiter: limiter,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     OriginChecker(allowedOrigins),
		},
		logger: logger.With().Str("component", "ws").Logger(),
	}
}

// Handle serves GET /ws?token=&room=&name=.
func (g *Gateway) Handle(c *gin.Context) {
	accountID, err := g.tokens.ValidateToken(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	room, err := g.rooms.Get(c.Query("room"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	name, err := validation.DisplayName(c.Query("name"), accountID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := newClient(uuid.New().String(), accountID, room.ID(), conn, g.logger)
	go client.WritePump(room.Done())

	ctx, cancel := context.WithTimeout(c.Request.Context(), routeTimeout)
	err = room.Join(ctx, client, engine.JoinOptions{AccountID: accountID, Name: name})
	cancel()
	if err != nil {
		client.reject("join", err.Error())
		client.Close()
		return
	}

	g.logger.Info().Str("session_id", client.sessionID).Str("account_id", accountID).Str("room_id", room.ID()).Msg("Client connected")
	go client.ReadPump(
		func(msg models.Message) { g.route(client, room, msg) },
		func() { g.disconnect(client, room) },
	)
}

func (g *Gateway) route(c *Client, room *engine.Room, msg models.Message) {
	if err := validation.ValidateMessage(msg); err != nil {
		c.reject(msg.Type, err.Error())
		return
	}
	if g.limiter != nil && !g.limiter.Allow(c.sessionID) {
		c.reject(msg.Type, "rate limit exceeded")
		return
	}
	if g.tracker != nil && !g.tracker.Track(msg.RequestID, c.sessionID, room.ID(), msg.Type) {
		c.logger.Debug().Str("request_id", msg.RequestID).Msg("Duplicate message dropped")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), routeTimeout)
	defer cancel()

	if msg.Type == models.MsgLeave {
		if err := room.Leave(ctx, c.sessionID); err != nil && !errors.Is(err, engine.ErrRoomClosed) {
			c.logger.Warn().Err(err).Msg("Leave failed")
		}
		c.Close()
		return
	}

	if err := room.Send(ctx, c.sessionID, msg); err != nil {
		if errors.Is(err, engine.ErrRoomClosed) {
			c.Close()
			return
		}
		c.logger.Warn().Err(err).Str("message", msg.Type).Msg("Room did not accept message")
	}
}

func (g *Gateway) disconnect(c *Client, room *engine.Room) {
	if g.limiter != nil {
		g.limiter.Forget(c.sessionID)
	}
	ctx, cancel := context.WithTimeout(context.Background(), routeTimeout)
	defer cancel()
	// after an explicit leave the room no longer knows the session, which is harmless
	if err := room.Disconnect(ctx, c.sessionID); err != nil && !errors.Is(err, engine.ErrRoomClosed) {
		c.logger.Warn().Err(err).Msg("Disconnect not delivered")
	}
	c.logger.Info().Msg("Client disconnected")
}

// ParseOrigins splits a comma separated ALLOWED_ORIGINS value.
func ParseOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// AllowedOriginsFromEnv reads ALLOWED_ORIGINS with local dev defaults.
func AllowedOriginsFromEnv() []string {
	if origins := ParseOrigins(os.Getenv("ALLOWED_ORIGINS")); len(origins) > 0 {
		return origins
	}
	return []string{"http://localhost:3000", "http://127.0.0.1:3000"}
}

// OriginChecker accepts exact matches only. A "*" entry allows any origin.
func OriginChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		if set["*"] {
			return true
		}
		origin := r.Header.Get("Origin")
		return origin != "" && set[origin]
	}
}
