package engine

import (
	"fmt"

	"casino-engine/models"
)

// wheelOrder is the European single-zero wheel.
var wheelOrder = [37]int{
	0, 32, 15, 19, 4, 21, 2, 25, 17, 34, 6, 27, 13, 36, 11, 30, 8, 23, 10,
	5, 24, 16, 33, 1, 20, 14, 31, 9, 22, 18, 29, 7, 28, 12, 35, 3, 26,
}

var redNumbers = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true, 14: true, 16: true, 18: true,
	19: true, 21: true, 23: true, 25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

const (
	BetStraight = "straight"
	BetDozen    = "dozen"
	BetColumn   = "column"
	BetRed      = "red"
	BetBlack    = "black"
	BetOdd      = "odd"
	BetEven     = "even"
	BetLow      = "low"
	BetHigh     = "high"
)

func NumberColor(n int) string {
	switch {
	case n == 0:
		return "green"
	case redNumbers[n]:
		return BetRed
	default:
		return BetBlack
	}
}

// RoulettePayout returns stake plus winnings for w when the ball lands on n.
func RoulettePayout(w models.Wager, n int) int {
	if wins(w, n) {
		return w.Amount * rouletteMultiplier(w.Kind)
	}
	return 0
}

func rouletteMultiplier(kind string) int {
	switch kind {
	case BetStraight:
		return 36
	case BetDozen, BetColumn:
		return 3
	default:
		return 2
	}
}

func wins(w models.Wager, n int) bool {
	if w.Kind == BetStraight {
		return w.Target == n
	}
	if n == 0 {
		return false
	}
	switch w.Kind {
	case BetDozen:
		return (n-1)/12+1 == w.Target
	case BetColumn:
		return (n-1)%3+1 == w.Target
	case BetRed:
		return redNumbers[n]
	case BetBlack:
		return !redNumbers[n]
	case BetOdd:
		return n%2 == 1
	case BetEven:
		return n%2 == 0
	case BetLow:
		return n <= 18
	case BetHigh:
		return n >= 19
	}
	return false
}

func validRouletteBet(kind string, target int) bool {
	switch kind {
	case BetStraight:
		return target >= 0 && target <= 36
	case BetDozen, BetColumn:
		return target >= 1 && target <= 3
	case BetRed, BetBlack, BetOdd, BetEven, BetLow, BetHigh:
		return true
	}
	return false
}

type Roulette struct {
	noDealer
	// spin picks a wheel slot; tests pin it.
	spin func(t *Table) int
}

func (*Roulette) Type() models.GameType { return models.GameRoulette }
func (*Roulette) MinPlayers() int       { return 1 }

func (g *Roulette) Handle(t *Table, p *models.Player, msg models.Message) error {
	switch msg.Type {
	case models.MsgPlaceBet:
		var payload models.PlaceBetPayload
		if err := msg.Decode(&payload); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		if !validRouletteBet(payload.Bet, payload.Number) {
			return fmt.Errorf("%w: bet %q on %d", ErrInvalidMessage, payload.Bet, payload.Number)
		}
		if p.IsReady {
			return fmt.Errorf("%w: betting closed for this player", ErrInvalidMessage)
		}
		if err := t.requireStake(p, payload.Amount); err != nil {
			return err
		}
		p.TotalCredits -= payload.Amount
		p.Wagers = append(p.Wagers, models.Wager{Kind: payload.Bet, Target: payload.Number, Amount: payload.Amount, ChipSlot: payload.ChipIndex})
		t.state.Pot += payload.Amount
		t.Broadcast(models.EventBetPlaced, models.BetPlacedEvent{SessionID: p.SessionID, ChipIndex: payload.ChipIndex, Amount: payload.Amount})
		return nil
	case models.MsgReady:
		if err := t.requirePhase(models.PhaseWaiting); err != nil {
			return err
		}
		if p.BalancePending {
			return ErrBalancePending
		}
		if t.markReady(p) {
			return g.spinWheel(t)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidMessage, msg.Type)
}

func (g *Roulette) spinWheel(t *Table) error {
	s := t.state
	t.beginHand()
	s.Phase = models.Playing(1)

	slot := t.Rand().Intn(len(wheelOrder))
	if g.spin != nil {
		slot = g.spin(t)
	}
	number := wheelOrder[slot]

	payouts := make(map[string]int)
	for _, p := range s.Players.List() {
		paid := 0
		for _, w := range p.Wagers {
			paid += RoulettePayout(w, number)
		}
		p.AddCredits(paid)
		payouts[p.SessionID] = paid
	}
	s.Pot = 0

	t.Broadcast(models.EventSpinResult, map[string]interface{}{
		"number":  number,
		"slot":    slot,
		"color":   NumberColor(number),
		"payouts": payouts,
	})
	t.finish()
	return nil
}

func (g *Roulette) Left(t *Table) {
	if t.state.Phase.Is(models.PhaseWaiting) && t.everyoneReady() {
		if err := g.spinWheel(t); err != nil {
			t.logger.Error().Err(err).Msg("Spin after departure failed")
		}
	}
}

func (*Roulette) Reset(*Table) {}
