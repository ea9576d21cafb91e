package engine

import (
	"fmt"

	"casino-engine/models"
)

// Blackjack result codes reported per player in dealerResult.
const (
	ResultPlayerWin  = 0
	ResultDealerWin  = 1
	ResultPush       = 2
	ResultPlayerBust = 3
)

const dealerStandsOn = 17

// HandValue sums blackjack values, dropping aces from 11 to 1 while the hand is over 21.
func HandValue(cards []models.Card) int {
	total, aces := 0, 0
	for _, c := range cards {
		total += c.BlackjackValue()
		if c.Rank == models.Ace {
			aces++
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

type Blackjack struct{}

func (*Blackjack) Type() models.GameType { return models.GameBlackjack }
func (*Blackjack) MinPlayers() int       { return 1 }

// inHand is a player with a bet who has not stood or busted yet.
func (*Blackjack) inHand(p *models.Player) bool {
	return p.IsReady && p.LastAction != models.ActionStand && !p.Busted
}

func (g *Blackjack) Handle(t *Table, p *models.Player, msg models.Message) error {
	switch msg.Type {
	case models.MsgBet:
		var payload models.BetPayload
		if err := msg.Decode(&payload); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return g.bet(t, p, payload.Value)
	case models.MsgReady:
		return fmt.Errorf("%w: place a bet to get ready", ErrInvalidMessage)
	case models.MsgHit:
		return g.hit(t, p)
	case models.MsgStand:
		if err := t.requireTurn(p); err != nil {
			return err
		}
		p.LastAction = models.ActionStand
		return g.advance(t, p, false)
	case models.MsgPlayerBusts:
		// The bust is applied when the card lands; this only acknowledges it.
		if t.state.CurrentTurn == p.SessionID && HandValue(p.Hand) > 21 {
			p.Busted = true
			p.LastAction = models.ActionStand
			return g.advance(t, p, true)
		}
		return nil
	case models.MsgDealerTurn:
		if t.state.Phase.Is(models.PhasePlaying) && t.state.CurrentTurn == models.DealerTurn {
			return g.DealerTurn(t)
		}
		return nil
	case models.MsgDealerTurnHandled:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidMessage, msg.Type)
}

func (g *Blackjack) bet(t *Table, p *models.Player, value int) error {
	if err := t.requireStake(p, value); err != nil {
		return err
	}
	if p.IsReady {
		return fmt.Errorf("%w: bet already placed", ErrInvalidMessage)
	}
	p.PlaceBet(value)
	t.state.Pot += value
	t.Broadcast(models.EventBetPlaced, models.BetPlacedEvent{SessionID: p.SessionID, Amount: value})

	if t.markReady(p) {
		return g.deal(t)
	}
	return nil
}

func (g *Blackjack) deal(t *Table) error {
	t.beginHand()
	players := NewSeats(t.state.Players, isReady).Eligible()
	if err := t.dealRoundRobin(players, 2, true, []bool{true, false}); err != nil {
		return err
	}

	s := t.state
	s.Phase = models.Playing(1)
	s.CurrentTurn = NewSeats(s.Players, g.inHand).First()
	t.Broadcast(models.EventGameStarted, t.Snapshot())
	if s.CurrentTurn == models.DealerTurn {
		return g.DealerTurn(t)
	}
	return nil
}

func (g *Blackjack) hit(t *Table, p *models.Player) error {
	if err := t.requireTurn(p); err != nil {
		return err
	}
	card, err := t.draw(true)
	if err != nil {
		return err
	}
	p.Hand = append(p.Hand, card)
	p.LastAction = models.ActionHit
	t.Broadcast(models.EventHitResult, models.HitResultEvent{SessionID: p.SessionID, Hand: p.Hand, Index: t.state.Players.Index(p.SessionID)})

	if HandValue(p.Hand) > 21 {
		p.Busted = true
		p.LastAction = models.ActionStand
		return g.advance(t, p, true)
	}
	return nil
}

func (g *Blackjack) advance(t *Table, p *models.Player, busted bool) error {
	s := t.state
	s.CurrentTurn = NewSeats(s.Players, g.inHand).After(p.SessionID)
	t.Broadcast(models.EventNextTurn, models.NextTurnEvent{
		NextPlayer: s.CurrentTurn,
		PrevPlayer: p.SessionID,
		Busted:     busted,
		Score:      HandValue(p.Hand),
	})
	if s.CurrentTurn == models.DealerTurn {
		return g.DealerTurn(t)
	}
	return nil
}

func (g *Blackjack) Forfeit(t *Table, p *models.Player) error {
	if t.state.CurrentTurn != p.SessionID || !t.state.Phase.Is(models.PhasePlaying) {
		return nil
	}
	p.LastAction = models.ActionStand
	return g.advance(t, p, false)
}

// DealerTurn reveals the hole card and draws below 17, unless every standing player
// already trails the dealer's current total.
func (g *Blackjack) DealerTurn(t *Table) error {
	s := t.state
	if !s.Phase.Is(models.PhasePlaying) {
		return nil
	}
	for i := range s.DealerCards {
		s.DealerCards[i].FaceUp = true
	}

	standing := make([]*models.Player, 0)
	for _, p := range NewSeats(s.Players, isReady).Eligible() {
		if !p.Busted {
			standing = append(standing, p)
		}
	}

	if !allTrail(standing, HandValue(s.DealerCards)) {
		for HandValue(s.DealerCards) < dealerStandsOn {
			card, err := t.draw(true)
			if err != nil {
				return err
			}
			s.DealerCards = append(s.DealerCards, card)
		}
	}

	dealer := HandValue(s.DealerCards)
	results := make(map[string]int)
	winnings := make(map[string]int)
	for _, p := range NewSeats(s.Players, isReady).Eligible() {
		code := settleBlackjack(p, dealer)
		results[p.SessionID] = code
		winnings[p.SessionID] = 0
		switch code {
		case ResultPlayerWin:
			winnings[p.SessionID] = p.CurrentBet * 2
		case ResultPush:
			winnings[p.SessionID] = p.CurrentBet
		}
		p.AddCredits(winnings[p.SessionID])
	}

	t.Broadcast(models.EventDealerResult, models.DealerResultEvent{
		DealerHand:    s.DealerCards,
		PlayerResults: results,
		Winnings:      winnings,
	})
	t.finish()
	return nil
}

func allTrail(players []*models.Player, dealer int) bool {
	for _, p := range players {
		if HandValue(p.Hand) >= dealer {
			return false
		}
	}
	return true
}

func settleBlackjack(p *models.Player, dealer int) int {
	value := HandValue(p.Hand)
	switch {
	case p.Busted || value > 21:
		return ResultPlayerBust
	case dealer > 21 || value > dealer:
		return ResultPlayerWin
	case value == dealer:
		return ResultPush
	default:
		return ResultDealerWin
	}
}

func (*Blackjack) Leaving(*Table, *models.Player) {}

// Left hands the table to the dealer once nobody is left to act.
func (g *Blackjack) Left(t *Table) {
	s := t.state
	switch {
	case s.Phase.Is(models.PhaseWaiting):
		if s.Players.Len() > 0 && t.everyoneReady() {
			if err := g.deal(t); err != nil {
				t.logger.Error().Err(err).Msg("Deal after departure failed")
			}
		}
	case s.Phase.Is(models.PhasePlaying) && s.CurrentTurn != models.DealerTurn:
		if _, ok := s.Players.Get(s.CurrentTurn); ok {
			return
		}
		if s.CurrentTurn = NewSeats(s.Players, g.inHand).First(); s.CurrentTurn == models.DealerTurn {
			if err := g.DealerTurn(t); err != nil {
				t.logger.Error().Err(err).Msg("Dealer turn after departure failed")
			}
		}
	}
}

func (*Blackjack) Reset(*Table) {}
