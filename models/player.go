package models

type PlayerAction string

const (
	ActionNone  PlayerAction = "none"
	ActionCheck PlayerAction = "check"
	ActionCall  PlayerAction = "call"
	ActionRaise PlayerAction = "raise"
	ActionFold  PlayerAction = "fold"
	ActionHit   PlayerAction = "hit"
	ActionStand PlayerAction = "stand"
)

type Blind string

const (
	BlindNone  Blind = "none"
	BlindSmall Blind = "small"
	BlindBig   Blind = "big"
)

// Player is the per-room, per-connection session of one seat.
type Player struct {
	SessionID      string       `json:"sessionId"`
	AccountID      string       `json:"accountId,omitempty"`
	Name           string       `json:"name"`
	Hand           []Card       `json:"hand"`
	TotalCredits   int          `json:"totalCredits"`
	CurrentBet     int          `json:"currentBet"`
	TotalInvested  int          `json:"totalInvested"`
	IsReady        bool         `json:"isReady"`
	LastAction     PlayerAction `json:"lastAction"`
	Blind          Blind        `json:"blind"`
	Connected      bool         `json:"connected"`
	Busted         bool         `json:"busted,omitempty"`
	HasActed       bool         `json:"-"`
	BalancePending bool         `json:"-"`
	// Wager side bets for baccarat, roulette and racing, keyed by the game.
	Wagers []Wager `json:"wagers,omitempty"`
}

// Wager is a stake placed on an outcome instead of against other players.
type Wager struct {
	Kind     string `json:"kind"`
	Target   int    `json:"target"`
	Amount   int    `json:"amount"`
	ChipSlot int    `json:"chipIndex,omitempty"`
}

func NewPlayer(sessionID, accountID, name string, credits int) *Player {
	return &Player{
		SessionID:    sessionID,
		AccountID:    accountID,
		Name:         name,
		Hand:         make([]Card, 0, 2),
		TotalCredits: credits,
		LastAction:   ActionNone,
		Blind:        BlindNone,
		Connected:    true,
	}
}

// Reset clears per-hand state. Blind roles are left for the rotation.
func (p *Player) Reset() {
	p.Hand = make([]Card, 0, 2)
	p.CurrentBet = 0
	p.TotalInvested = 0
	p.IsReady = false
	p.LastAction = ActionNone
	p.HasActed = false
	p.Busted = false
	p.Wagers = nil
}

func (p *Player) Folded() bool {
	return p.LastAction == ActionFold
}

func (p *Player) AllIn() bool {
	return p.TotalCredits == 0 && p.TotalInvested > 0
}

// PlaceBet moves up to amount credits into the current bet and returns what was actually moved.
func (p *Player) PlaceBet(amount int) int {
	if amount > p.TotalCredits {
		amount = p.TotalCredits
	}
	if amount < 0 {
		amount = 0
	}
	p.TotalCredits -= amount
	p.CurrentBet += amount
	p.TotalInvested += amount
	return amount
}

func (p *Player) AddCredits(amount int) {
	p.TotalCredits += amount
}

func (p *Player) TotalWagered() int {
	total := 0
	for _, w := range p.Wagers {
		total += w.Amount
	}
	return total
}
