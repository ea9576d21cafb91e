package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"casino-engine/engine"
	"casino-engine/internal/models"
	"casino-engine/internal/validation"
)

func HandleListRooms(c *gin.Context, rooms *engine.RoomManager) {
	c.JSON(http.StatusOK, gin.H{"rooms": rooms.List()})
}

func HandleCreateRoom(c *gin.Context, rooms *engine.RoomManager) {
	var req models.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	gameType, err := validation.ValidateGameType(req.GameType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validation.ValidateMaxClients(req.MaxClients); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := rooms.CreateRoom(gameType, engine.Options{MaxClients: req.MaxClients})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "game_type": gameType})
}

// HandleCreateLobby provisions the requested rooms under the caller. Entries with unusable counts
// are skipped by the registry; oversized counts are refused up front.
func HandleCreateLobby(c *gin.Context, lobbies *engine.LobbyRegistry) {
	var req models.CreateLobbyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	for name, v := range req.Rooms {
		if n, ok := v.(float64); ok {
			if err := validation.ValidateRoomCount(int(n)); err != nil && n > 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": name + ": " + err.Error()})
				return
			}
		}
	}

	lobby := lobbies.CreateLobby(c.GetString("user_id"), req.Rooms, engine.Options{})
	c.JSON(http.StatusCreated, lobby)
}

func HandleGetLobby(c *gin.Context, lobbies *engine.LobbyRegistry) {
	id := c.Param("id")
	if err := validation.ValidateUUID(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	lobby, ok := lobbies.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": engine.ErrLobbyNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, lobby)
}

// HandleDestroyLobby answers 204 when the lobby was torn down and 403 otherwise. Unknown lobbies
// and non-owners look the same to the caller.
func HandleDestroyLobby(c *gin.Context, lobbies *engine.LobbyRegistry) {
	if !lobbies.DestroyLobby(c.Request.Context(), c.Param("id"), c.GetString("user_id")) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Lobby not destroyed"})
		return
	}
	c.Status(http.StatusNoContent)
}
