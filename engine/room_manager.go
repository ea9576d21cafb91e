package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"casino-engine/models"
)

// RoomManager is the registry of live rooms. Rooms remove themselves when they close.
type RoomManager struct {
	rooms       map[string]*Room
	mu          sync.RWMutex
	accounts    AccountService
	deckFactory DeckFactory
	defaults    Options
	logger      zerolog.Logger
}

// NewRoomManager builds a manager. accounts and deckFactory may be nil.
func NewRoomManager(accounts AccountService, deckFactory DeckFactory, defaults Options, logger zerolog.Logger) *RoomManager {
	return &RoomManager{
		rooms:       make(map[string]*Room),
		accounts:    accounts,
		deckFactory: deckFactory,
		defaults:    defaults.or(DefaultOptions()),
		logger:      logger.With().Str("component", "rooms").Logger(),
	}
}

func (rm *RoomManager) CreateRoom(gameType models.GameType, opts Options) (string, error) {
	opts = opts.or(rm.defaults)
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	game, err := NewGame(gameType, opts)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	room := newRoom(id, game, opts, rm.deckFactory, rm.accounts, rm.logger, rm.forget)

	rm.mu.Lock()
	rm.rooms[id] = room
	rm.mu.Unlock()

	rm.logger.Info().Str("room_id", id).Str("game", string(gameType)).Msg("Room created")
	return id, nil
}

func (rm *RoomManager) forget(id string) {
	rm.mu.Lock()
	delete(rm.rooms, id)
	rm.mu.Unlock()
}

func (rm *RoomManager) DestroyRoom(roomID string) error {
	room, err := rm.Get(roomID)
	if err != nil {
		return err
	}
	room.Destroy()
	return nil
}

func (rm *RoomManager) Get(roomID string) (*Room, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	room, exists := rm.rooms[roomID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	return room, nil
}

// List returns summaries ordered by game type, then id.
func (rm *RoomManager) List() []models.RoomSummary {
	rm.mu.RLock()
	summaries := make([]models.RoomSummary, 0, len(rm.rooms))
	for _, room := range rm.rooms {
		summaries = append(summaries, room.Summary())
	}
	rm.mu.RUnlock()

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].GameType != summaries[j].GameType {
			return summaries[i].GameType < summaries[j].GameType
		}
		return summaries[i].ID < summaries[j].ID
	})
	return summaries
}

func (rm *RoomManager) Join(ctx context.Context, roomID string, client Client, opts JoinOptions) error {
	room, err := rm.Get(roomID)
	if err != nil {
		return err
	}
	return room.Join(ctx, client, opts)
}

func (rm *RoomManager) Leave(ctx context.Context, roomID, sessionID string) error {
	room, err := rm.Get(roomID)
	if err != nil {
		return err
	}
	return room.Leave(ctx, sessionID)
}

func (rm *RoomManager) Send(ctx context.Context, roomID, sessionID string, msg models.Message) error {
	room, err := rm.Get(roomID)
	if err != nil {
		return err
	}
	return room.Send(ctx, sessionID, msg)
}

func (rm *RoomManager) Disconnect(ctx context.Context, roomID, sessionID string) error {
	room, err := rm.Get(roomID)
	if err != nil {
		return err
	}
	return room.Disconnect(ctx, sessionID)
}

// Shutdown destroys every room and waits for pending balance writes.
func (rm *RoomManager) Shutdown() {
	rm.mu.RLock()
	rooms := make([]*Room, 0, len(rm.rooms))
	for _, room := range rm.rooms {
		rooms = append(rooms, room)
	}
	rm.mu.RUnlock()

	for _, room := range rooms {
		room.Destroy()
		room.WaitSettled()
	}
	rm.logger.Info().Int("rooms", len(rooms)).Msg("Rooms shut down")
}
