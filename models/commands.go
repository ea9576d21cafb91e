package models

import "encoding/json"

// Command is one admin request on the TCP control port.
type Command struct {
	Command string                 `json:"command"`
	Data    map[string]interface{} `json:"data"`
}

type Response struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Message is an inbound room message from a client.
type Message struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals the payload into v. An empty payload leaves v untouched.
func (m Message) Decode(v interface{}) error {
	if len(m.Data) == 0 {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

type Event struct {
	Event  string      `json:"event"`
	RoomID string      `json:"roomId"`
	Data   interface{} `json:"data,omitempty"`
}

// Inbound message types.
const (
	MsgReady                 = "ready"
	MsgBet                   = "bet"
	MsgHit                   = "hit"
	MsgStand                 = "stand"
	MsgCheck                 = "check"
	MsgCall                  = "call"
	MsgRaise                 = "raise"
	MsgFold                  = "fold"
	MsgPlayerBusts           = "playerBusts"
	MsgCurrentTurnDisconnect = "currentTurnDisconnect"
	MsgDisconnectionHandled  = "disconnectionHandled"
	MsgDealerTurn            = "dealerTurn"
	MsgDealerTurnHandled     = "dealerTurnHandled"
	MsgNewGame               = "newGame"
	MsgPlaceBet              = "placeBet"
	MsgStartRace             = "startRace"
	MsgLeave                 = "leave"
)

// Outbound event names.
const (
	EventPlayerJoin          = "playerJoin"
	EventPlayerLeft          = "playerLeft"
	EventGameStarted         = "gameStarted"
	EventHitResult           = "hitResult"
	EventNextTurn            = "nextTurn"
	EventDealerResult        = "dealerResult"
	EventWaitForOthers       = "waitForOthers"
	EventHandleDisconnection = "handleDisconnection"
	EventEndGame             = "endGame"
	EventCommunityCards      = "communityCards"
	EventBetPlaced           = "betPlaced"
	EventRaceProgress        = "raceProgress"
	EventRaceResult          = "raceResult"
	EventSpinResult          = "spinResult"
	EventBaccaratResult      = "baccaratResult"
	EventOwnerChanged        = "ownerChanged"
	EventActionRejected      = "actionRejected"
	EventRoomDestroyed       = "roomDestroyed"
	EventStateSnapshot       = "stateSnapshot"
)

type BetPayload struct {
	Value int    `json:"value"`
	On    string `json:"on,omitempty"`
}

type HitPayload struct {
	Index int `json:"index"`
}

type RaisePayload struct {
	Value int `json:"value"`
}

type DisconnectPayload struct {
	NextPlayer string `json:"nextPlayer"`
}

// PlaceBetPayload covers both roulette and racing bets.
type PlaceBetPayload struct {
	Bet        string `json:"bet,omitempty"`
	Number     int    `json:"number,omitempty"`
	HorseIndex int    `json:"horseIndex"`
	Amount     int    `json:"amount"`
	ChipIndex  int    `json:"chipIndex,omitempty"`
}

type PlayerJoinEvent struct {
	SessionID    string    `json:"sessionId"`
	TotalCredits int       `json:"totalCredits"`
	Players      []*Player `json:"players"`
	WaitingRoom  []*Player `json:"waitingRoom"`
}

type PlayerLeftEvent struct {
	SessionID  string    `json:"sessionId"`
	Players    []*Player `json:"players"`
	NextPlayer string    `json:"nextPlayer"`
	Index      int       `json:"index"`
}

type HitResultEvent struct {
	SessionID string `json:"sessionId"`
	Hand      []Card `json:"hand"`
	Index     int    `json:"index"`
}

type NextTurnEvent struct {
	NextPlayer string `json:"nextPlayer"`
	PrevPlayer string `json:"prevPlayer"`
	Busted     bool   `json:"busted"`
	Score      int    `json:"score"`
}

type DealerResultEvent struct {
	DealerHand    []Card         `json:"dealerHand"`
	PlayerResults map[string]int `json:"playerResults"`
	Winnings      map[string]int `json:"winnings"`
}

type EndGameEvent struct {
	Winner   []string          `json:"winner"`
	Winnings map[string]int    `json:"winnings"`
	Result   map[string]string `json:"result"`
}

type BetPlacedEvent struct {
	SessionID  string `json:"sessionId"`
	ChipIndex  int    `json:"chipIndex"`
	HorseIndex int    `json:"horseIndex"`
	Amount     int    `json:"amount"`
}

type RaceResultEvent struct {
	Winners []int          `json:"winners"`
	Payouts map[string]int `json:"payouts"`
}

type ActionRejectedEvent struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}
