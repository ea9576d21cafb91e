package models

import (
	"fmt"
	"time"
)

type GameType string

const (
	GameBlackjack GameType = "blackjack"
	GamePoker     GameType = "poker"
	GameBaccarat  GameType = "baccarat"
	GameRoulette  GameType = "roulette"
	GameHorseRace GameType = "horserace"
)

var GameTypes = []GameType{GameBlackjack, GamePoker, GameBaccarat, GameRoulette, GameHorseRace}

func ParseGameType(s string) (GameType, bool) {
	for _, gt := range GameTypes {
		if string(gt) == s {
			return gt, true
		}
	}
	return "", false
}

// DealerTurn is the turn pointer value once every seat has acted.
const DealerTurn = "dealer"

type PhaseKind string

const (
	PhaseWaiting  PhaseKind = "waiting"
	PhaseDealing  PhaseKind = "dealing"
	PhasePlaying  PhaseKind = "playing"
	PhaseFinished PhaseKind = "finished"
)

// Phase carries the betting round as data. Round is 1-based and only set while playing.
type Phase struct {
	Kind  PhaseKind `json:"kind"`
	Round int       `json:"round,omitempty"`
}

func Waiting() Phase          { return Phase{Kind: PhaseWaiting} }
func Dealing() Phase          { return Phase{Kind: PhaseDealing} }
func Playing(round int) Phase { return Phase{Kind: PhasePlaying, Round: round} }
func Finished() Phase         { return Phase{Kind: PhaseFinished} }

func (p Phase) Is(kind PhaseKind) bool { return p.Kind == kind }

// Active reports whether a hand is underway. New joiners go to the waiting room while true.
func (p Phase) Active() bool { return p.Kind != PhaseWaiting }

func (p Phase) String() string {
	if p.Kind == PhasePlaying && p.Round > 0 {
		return fmt.Sprintf("%s[%d]", p.Kind, p.Round)
	}
	return string(p.Kind)
}

// Seating is an insertion-ordered map of sessions. Order is seat order.
type Seating struct {
	order []string
	byID  map[string]*Player
}

func NewSeating() *Seating {
	return &Seating{byID: make(map[string]*Player)}
}

func (s *Seating) Len() int { return len(s.order) }

func (s *Seating) Get(id string) (*Player, bool) {
	p, ok := s.byID[id]
	return p, ok
}

func (s *Seating) Has(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// Add appends p and returns false if the session is already seated.
func (s *Seating) Add(p *Player) bool {
	if s.Has(p.SessionID) {
		return false
	}
	s.order = append(s.order, p.SessionID)
	s.byID[p.SessionID] = p
	return true
}

// Remove drops the session and returns its former index, or -1.
func (s *Seating) Remove(id string) (*Player, int) {
	p, ok := s.byID[id]
	if !ok {
		return nil, -1
	}
	idx := s.Index(id)
	s.order = append(s.order[:idx], s.order[idx+1:]...)
	delete(s.byID, id)
	return p, idx
}

func (s *Seating) Index(id string) int {
	for i, sid := range s.order {
		if sid == id {
			return i
		}
	}
	return -1
}

func (s *Seating) IDs() []string {
	return append([]string(nil), s.order...)
}

func (s *Seating) At(i int) *Player {
	if i < 0 || i >= len(s.order) {
		return nil
	}
	return s.byID[s.order[i]]
}

func (s *Seating) List() []*Player {
	out := make([]*Player, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

func (s *Seating) First() *Player {
	return s.At(0)
}

// RoomState is the aggregate owned by one room. It is never shared between goroutines.
type RoomState struct {
	ID              string
	GameType        GameType
	Players         *Seating
	WaitingRoom     *Seating
	DealerCards     []Card
	CommunityCards  []Card
	Deck            *Deck
	CurrentTurn     string
	Phase           Phase
	Pot             int
	HighestBet      int
	Owner           string
	DisconnectCheck bool
	HandNumber      int
	MaxClients      int
	CreatedAt       time.Time
}

func NewRoomState(id string, gameType GameType, maxClients int, deck *Deck) *RoomState {
	return &RoomState{
		ID:          id,
		GameType:    gameType,
		Players:     NewSeating(),
		WaitingRoom: NewSeating(),
		Deck:        deck,
		Phase:       Waiting(),
		MaxClients:  maxClients,
		CreatedAt:   time.Now(),
	}
}

// Find returns the session from either seating map.
func (s *RoomState) Find(id string) (*Player, bool) {
	if p, ok := s.Players.Get(id); ok {
		return p, true
	}
	return s.WaitingRoom.Get(id)
}

type RoomSummary struct {
	ID       string   `json:"id"`
	GameType GameType `json:"gameType"`
	Phase    string   `json:"phase"`
	Players  int      `json:"players"`
	Waiting  int      `json:"waiting"`
	Owner    string   `json:"owner"`
	Hand     int      `json:"hand"`
}

type Pot struct {
	Main     int       `json:"main"`
	Eligible []string  `json:"eligible,omitempty"`
	Side     []SidePot `json:"side,omitempty"`
}

type SidePot struct {
	Amount          int      `json:"amount"`
	EligiblePlayers []string `json:"eligiblePlayers"`
}

type Winner struct {
	SessionID string `json:"sessionId"`
	Name      string `json:"name"`
	Amount    int    `json:"amount"`
	HandRank  string `json:"handRank"`
	HandCards []Card `json:"handCards"`
}

type HistoryEventType string

const (
	HistoryBet        HistoryEventType = "bet"
	HistoryPayout     HistoryEventType = "payout"
	HistoryHandResult HistoryEventType = "hand_result"
)

// HistoryEntry accompanies every balance write to the account service.
type HistoryEntry struct {
	ID        string                 `json:"id"`
	EventType HistoryEventType       `json:"event_type"`
	RoomID    string                 `json:"room_id"`
	GameType  GameType               `json:"game_type"`
	Hand      int                    `json:"hand"`
	Delta     int                    `json:"delta"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}
