package engine

import (
	"fmt"
	"time"

	"casino-engine/models"
)

const wagerHorse = "horse"

// HorseRace advances every horse by a random step per tick until one crosses the line.
type HorseRace struct {
	noDealer
	horses    int
	finish    int
	minStep   int
	maxStep   int
	interval  time.Duration
	positions []int
}

func newHorseRace(opts Options) *HorseRace {
	opts = opts.withDefaults()
	return &HorseRace{
		horses:    opts.Horses,
		finish:    opts.FinishLine,
		minStep:   opts.MinStep,
		maxStep:   opts.MaxStep,
		interval:  opts.TickInterval,
		positions: make([]int, opts.Horses),
	}
}

func (*HorseRace) Type() models.GameType         { return models.GameHorseRace }
func (*HorseRace) MinPlayers() int               { return 1 }
func (g *HorseRace) TickInterval() time.Duration { return g.interval }
func (g *HorseRace) Positions() []int            { return append([]int(nil), g.positions...) }

func (g *HorseRace) Handle(t *Table, p *models.Player, msg models.Message) error {
	switch msg.Type {
	case models.MsgPlaceBet:
		var payload models.PlaceBetPayload
		if err := msg.Decode(&payload); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		if payload.HorseIndex < 0 || payload.HorseIndex >= g.horses {
			return fmt.Errorf("%w: no horse %d", ErrInvalidMessage, payload.HorseIndex)
		}
		if err := t.requireStake(p, payload.Amount); err != nil {
			return err
		}
		p.TotalCredits -= payload.Amount
		p.Wagers = append(p.Wagers, models.Wager{Kind: wagerHorse, Target: payload.HorseIndex, Amount: payload.Amount, ChipSlot: payload.ChipIndex})
		t.state.Pot += payload.Amount
		t.Broadcast(models.EventBetPlaced, models.BetPlacedEvent{
			SessionID:  p.SessionID,
			ChipIndex:  payload.ChipIndex,
			HorseIndex: payload.HorseIndex,
			Amount:     payload.Amount,
		})
		return nil
	case models.MsgStartRace:
		return g.start(t, p)
	}
	return fmt.Errorf("%w: %q", ErrInvalidMessage, msg.Type)
}

func (g *HorseRace) start(t *Table, p *models.Player) error {
	s := t.state
	if err := t.requirePhase(models.PhaseWaiting); err != nil {
		return err
	}
	if s.Owner != p.SessionID {
		return ErrNotOwner
	}
	if s.Pot == 0 {
		return fmt.Errorf("%w: no bets placed", ErrInvalidMessage)
	}
	t.beginHand()
	g.positions = make([]int, g.horses)
	s.Phase = models.Playing(1)
	t.Broadcast(models.EventGameStarted, map[string]interface{}{"horses": g.horses, "finishLine": g.finish})
	return nil
}

// Tick runs one simulation step. Horses tied for the lead when the line is crossed share the win.
func (g *HorseRace) Tick(t *Table) error {
	s := t.state
	if !s.Phase.Is(models.PhasePlaying) {
		return nil
	}
	rng := t.Rand()
	lead := 0
	for i := range g.positions {
		g.positions[i] += g.minStep + rng.Intn(g.maxStep-g.minStep+1)
		if g.positions[i] > lead {
			lead = g.positions[i]
		}
	}
	t.Broadcast(models.EventRaceProgress, map[string]interface{}{"positions": g.Positions()})

	if lead < g.finish {
		return nil
	}
	winners := make([]int, 0, 1)
	for i, pos := range g.positions {
		if pos == lead {
			winners = append(winners, i)
		}
	}
	g.settle(t, winners)
	return nil
}

func (g *HorseRace) settle(t *Table, winners []int) {
	s := t.state
	payouts := make(map[string]int)
	for _, p := range s.Players.List() {
		paid := 0
		for _, w := range p.Wagers {
			for _, h := range winners {
				if w.Target == h {
					paid += w.Amount * g.horses / len(winners)
				}
			}
		}
		p.AddCredits(paid)
		payouts[p.SessionID] = paid
	}
	s.Pot = 0
	t.Broadcast(models.EventRaceResult, models.RaceResultEvent{Winners: winners, Payouts: payouts})
	t.finish()
}

func (g *HorseRace) Reset(*Table) {
	g.positions = make([]int, g.horses)
}
