package engine

import (
	"fmt"
	"math/rand"
	"time"

	"casino-engine/models"
)

// Game holds the rules of one game type. Implementations are driven by a Table and never
// touch room state from another goroutine.
type Game interface {
	Type() models.GameType
	MinPlayers() int
	// Handle applies one game message from a seated player.
	Handle(t *Table, p *models.Player, msg models.Message) error
	// Forfeit applies the implicit action for a departed turn holder.
	Forfeit(t *Table, p *models.Player) error
	// DealerTurn runs once the turn pointer reaches the dealer.
	DealerTurn(t *Table) error
	// Leaving runs while p is still seated, Left after it has been removed.
	Leaving(t *Table, p *models.Player)
	Left(t *Table)
	// Reset prepares per-hand game state for the next round.
	Reset(t *Table)
}

// Ticker is implemented by games that run a simulation loop while playing.
type Ticker interface {
	TickInterval() time.Duration
	Tick(t *Table) error
}

type Options struct {
	MaxClients        int
	DefaultCredits    int
	InactivityTimeout time.Duration

	SmallBlind int
	BigBlind   int

	Horses       int
	TickInterval time.Duration
	FinishLine   int
	MinStep      int
	MaxStep      int

	// Rand drives wheel spins and race speeds. Seeded from the clock when nil.
	Rand *rand.Rand
}

func DefaultOptions() Options {
	return Options{
		MaxClients:        6,
		DefaultCredits:    1000,
		InactivityTimeout: 30 * time.Second,
		SmallBlind:        10,
		BigBlind:          20,
		Horses:            6,
		TickInterval:      100 * time.Millisecond,
		FinishLine:        100,
		MinStep:           1,
		MaxStep:           5,
	}
}

// or fills zero fields of o from d. Rand is never inherited.
func (o Options) or(d Options) Options {
	if o.MaxClients <= 0 {
		o.MaxClients = d.MaxClients
	}
	if o.DefaultCredits <= 0 {
		o.DefaultCredits = d.DefaultCredits
	}
	if o.InactivityTimeout <= 0 {
		o.InactivityTimeout = d.InactivityTimeout
	}
	if o.SmallBlind <= 0 {
		o.SmallBlind = d.SmallBlind
	}
	if o.BigBlind <= 0 {
		o.BigBlind = d.BigBlind
	}
	if o.Horses <= 1 {
		o.Horses = d.Horses
	}
	if o.TickInterval <= 0 {
		o.TickInterval = d.TickInterval
	}
	if o.FinishLine <= 0 {
		o.FinishLine = d.FinishLine
	}
	if o.MinStep <= 0 {
		o.MinStep = d.MinStep
	}
	if o.MaxStep < o.MinStep {
		o.MaxStep = d.MaxStep
		if o.MaxStep < o.MinStep {
			o.MaxStep = o.MinStep
		}
	}
	return o
}

func (o Options) withDefaults() Options {
	o = o.or(DefaultOptions())
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return o
}

// DeckFactory builds the deck for each new hand.
type DeckFactory func() *models.Deck

func NewGame(gameType models.GameType, opts Options) (Game, error) {
	switch gameType {
	case models.GameBlackjack:
		return &Blackjack{}, nil
	case models.GamePoker:
		return &Poker{smallBlind: opts.SmallBlind, bigBlind: opts.BigBlind}, nil
	case models.GameBaccarat:
		return &Baccarat{}, nil
	case models.GameRoulette:
		return &Roulette{}, nil
	case models.GameHorseRace:
		return newHorseRace(opts), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownGameType, gameType)
}

// noDealer is embedded by games without turn rotation.
type noDealer struct{}

func (noDealer) Forfeit(*Table, *models.Player) error { return nil }
func (noDealer) DealerTurn(*Table) error              { return nil }
func (noDealer) Leaving(*Table, *models.Player)       {}
func (noDealer) Left(*Table)                          {}
