package server

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"casino-engine/engine"
	"casino-engine/models"
)

const commandTimeout = 10 * time.Second

// CreditGranter tops up an account outside of play.
type CreditGranter interface {
	AddCredits(ctx context.Context, accountID string, amount int, description string) error
}

// CommandHandler executes admin commands against the room manager and lobby registry.
type CommandHandler struct {
	rooms   *engine.RoomManager
	lobbies *engine.LobbyRegistry
	credits CreditGranter
}

// NewCommandHandler builds a handler. credits may be nil, which disables account.credit.
func NewCommandHandler(rooms *engine.RoomManager, lobbies *engine.LobbyRegistry, credits CreditGranter) *CommandHandler {
	return &CommandHandler{rooms: rooms, lobbies: lobbies, credits: credits}
}

func (h *CommandHandler) Handle(cmd models.Command) models.Response {
	switch cmd.Command {
	case "room.create":
		return h.handleCreateRoom(cmd.Data)
	case "room.destroy":
		return h.handleDestroyRoom(cmd.Data)
	case "room.get":
		return h.handleGetRoom(cmd.Data)
	case "room.list":
		return h.handleListRooms()
	case "lobby.create":
		return h.handleCreateLobby(cmd.Data)
	case "lobby.destroy":
		return h.handleDestroyLobby(cmd.Data)
	case "account.credit":
		return h.handleCredit(cmd.Data)
	default:
		return models.Response{Success: false, Error: fmt.Sprintf("unknown command: %s", cmd.Command)}
	}
}

func (h *CommandHandler) handleCreateRoom(data map[string]interface{}) models.Response {
	gameType, ok := models.ParseGameType(getString(data, "gameType"))
	if !ok {
		return models.Response{Success: false, Error: fmt.Sprintf("unknown game type: %q", getString(data, "gameType"))}
	}

	id, err := h.rooms.CreateRoom(gameType, optionsFrom(data))
	if err != nil {
		return models.Response{Success: false, Error: err.Error()}
	}
	return models.Response{Success: true, Data: map[string]string{"roomId": id}}
}

// optionsFrom reads the optional room tuning fields. Zero values fall back to the manager defaults.
func optionsFrom(data map[string]interface{}) engine.Options {
	return engine.Options{
		MaxClients:        getInt(data, "maxClients"),
		DefaultCredits:    getInt(data, "defaultCredits"),
		InactivityTimeout: time.Duration(getInt(data, "idleSeconds")) * time.Second,
		SmallBlind:        getInt(data, "smallBlind"),
		BigBlind:          getInt(data, "bigBlind"),
		Horses:            getInt(data, "horses"),
	}
}

func (h *CommandHandler) handleDestroyRoom(data map[string]interface{}) models.Response {
	if err := h.rooms.DestroyRoom(getString(data, "roomId")); err != nil {
		return models.Response{Success: false, Error: err.Error()}
	}
	return models.Response{Success: true}
}

func (h *CommandHandler) handleGetRoom(data map[string]interface{}) models.Response {
	room, err := h.rooms.Get(getString(data, "roomId"))
	if err != nil {
		return models.Response{Success: false, Error: err.Error()}
	}
	return models.Response{Success: true, Data: room.Summary()}
}

func (h *CommandHandler) handleListRooms() models.Response {
	return models.Response{Success: true, Data: map[string]interface{}{"rooms": h.rooms.List()}}
}

func (h *CommandHandler) handleCreateLobby(data map[string]interface{}) models.Response {
	owner := getString(data, "accountId")
	if owner == "" {
		return models.Response{Success: false, Error: "accountId is required"}
	}
	counts, ok := data["rooms"].(map[string]interface{})
	if !ok {
		return models.Response{Success: false, Error: "rooms must be an object of game type to count"}
	}

	lobby := h.lobbies.CreateLobby(owner, counts, optionsFrom(data))
	return models.Response{Success: true, Data: lobby}
}

func (h *CommandHandler) handleDestroyLobby(data map[string]interface{}) models.Response {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	lobbyID := getString(data, "lobbyId")
	if _, ok := h.lobbies.Get(lobbyID); !ok {
		return models.Response{Success: false, Error: engine.ErrLobbyNotFound.Error()}
	}
	if !h.lobbies.DestroyLobby(ctx, lobbyID, getString(data, "accountId")) {
		return models.Response{Success: false, Error: "lobby not destroyed"}
	}
	return models.Response{Success: true}
}

func (h *CommandHandler) handleCredit(data map[string]interface{}) models.Response {
	if h.credits == nil {
		return models.Response{Success: false, Error: "account store not configured"}
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	accountID := getString(data, "accountId")
	amount := getInt(data, "amount")
	if err := h.credits.AddCredits(ctx, accountID, amount, getString(data, "reason")); err != nil {
		return models.Response{Success: false, Error: err.Error()}
	}
	return models.Response{Success: true, Data: map[string]interface{}{"accountId": accountID, "added": amount}}
}

func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func getInt(data map[string]interface{}, key string) int {
	if val, ok := data[key]; ok {
		switch v := val.(type) {
		case float64:
			return int(v)
		case int:
			return v
		case string:
			if i, err := strconv.Atoi(v); err == nil {
				return i
			}
		}
	}
	return 0
}
