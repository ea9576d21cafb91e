package engine

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"casino-engine/models"
)

// Lobby is a batch of rooms provisioned together under one owner.
type Lobby struct {
	ID      string   `json:"id"`
	Owner   string   `json:"owner"`
	RoomIDs []string `json:"rooms"`
}

type LobbyRegistry struct {
	rooms   *RoomManager
	auth    Authorizer
	lobbies map[string]*Lobby
	mu      sync.Mutex
	logger  zerolog.Logger
}

func NewLobbyRegistry(rooms *RoomManager, auth Authorizer, logger zerolog.Logger) *LobbyRegistry {
	return &LobbyRegistry{
		rooms:   rooms,
		auth:    auth,
		lobbies: make(map[string]*Lobby),
		logger:  logger.With().Str("component", "lobby").Logger(),
	}
}

// CreateLobby provisions counts[gameType] rooms per entry. Entries with a non-integer or negative
// count or an unknown game type are skipped.
func (lr *LobbyRegistry) CreateLobby(ownerAccountID string, counts map[string]interface{}, opts Options) *Lobby {
	lobby := &Lobby{ID: uuid.New().String(), Owner: ownerAccountID}

	types := make([]string, 0, len(counts))
	for k := range counts {
		types = append(types, k)
	}
	sort.Strings(types)

	for _, name := range types {
		n, ok := roomCount(counts[name])
		if !ok {
			lr.logger.Debug().Str("game", name).Interface("count", counts[name]).Msg("Skipping invalid room count")
			continue
		}
		gameType, ok := models.ParseGameType(name)
		if !ok {
			lr.logger.Debug().Str("game", name).Msg("Skipping unknown game type")
			continue
		}
		for i := 0; i < n; i++ {
			id, err := lr.rooms.CreateRoom(gameType, opts)
			if err != nil {
				lr.logger.Error().Err(err).Str("game", name).Msg("Failed to provision room")
				break
			}
			lobby.RoomIDs = append(lobby.RoomIDs, id)
		}
	}

	lr.mu.Lock()
	lr.lobbies[lobby.ID] = lobby
	lr.mu.Unlock()

	lr.logger.Info().Str("lobby_id", lobby.ID).Str("owner", ownerAccountID).Int("rooms", len(lobby.RoomIDs)).Msg("Lobby created")
	return lobby
}

func roomCount(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, n >= 0
	case int64:
		return int(n), n >= 0
	case float64:
		if n < 0 || n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil || i < 0 {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

func (lr *LobbyRegistry) Get(lobbyID string) (*Lobby, bool) {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	l, ok := lr.lobbies[lobbyID]
	return l, ok
}

// DestroyLobby tears the lobby and its rooms down when requesterID owns it and is authorized.
// Anything else is ignored and reported as false.
func (lr *LobbyRegistry) DestroyLobby(ctx context.Context, lobbyID, requesterID string) bool {
	lobby, ok := lr.Get(lobbyID)
	if !ok {
		lr.logger.Warn().Str("lobby_id", lobbyID).Msg("Destroy for unknown lobby ignored")
		return false
	}
	if requesterID == "" || requesterID != lobby.Owner {
		lr.logger.Warn().Str("lobby_id", lobbyID).Str("requester", requesterID).Msg("Destroy by non-owner ignored")
		return false
	}
	if lr.auth != nil {
		authorized, err := lr.auth.IsAuthorized(ctx, requesterID)
		if err != nil || !authorized {
			lr.logger.Warn().Err(err).Str("lobby_id", lobbyID).Str("requester", requesterID).Msg("Destroy by unauthorized account ignored")
			return false
		}
	}

	for _, id := range lobby.RoomIDs {
		if err := lr.rooms.DestroyRoom(id); err != nil {
			lr.logger.Debug().Err(err).Str("room_id", id).Msg("Room already gone")
		}
	}

	lr.mu.Lock()
	delete(lr.lobbies, lobbyID)
	lr.mu.Unlock()

	lr.logger.Info().Str("lobby_id", lobbyID).Int("rooms", len(lobby.RoomIDs)).Msg("Lobby destroyed")
	return true
}
