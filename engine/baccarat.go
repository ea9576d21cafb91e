package engine

import (
	"fmt"

	"casino-engine/models"
)

const (
	BetPlayer = "player"
	BetBanker = "banker"
	BetTie    = "tie"
)

// Baccarat deals a shared player hand into CommunityCards and the banker hand into DealerCards.
type Baccarat struct {
	noDealer
}

func (*Baccarat) Type() models.GameType { return models.GameBaccarat }
func (*Baccarat) MinPlayers() int       { return 1 }

func BaccaratValue(cards []models.Card) int {
	total := 0
	for _, c := range cards {
		total += c.BaccaratValue()
	}
	return total % 10
}

// PlayerDraws applies the player's rule on the first two cards.
func PlayerDraws(playerTotal int) bool {
	return playerTotal <= 5
}

// BankerDraws applies the banker tableau. thirdCard is nil when the player stood.
func BankerDraws(bankerTotal int, thirdCard *models.Card) bool {
	if thirdCard == nil {
		return bankerTotal <= 5
	}
	switch {
	case bankerTotal <= 2:
		return true
	case bankerTotal <= 6:
		return thirdCard.BaccaratValue() != 8
	default:
		return false
	}
}

func (g *Baccarat) Handle(t *Table, p *models.Player, msg models.Message) error {
	if msg.Type != models.MsgBet {
		return fmt.Errorf("%w: %q", ErrInvalidMessage, msg.Type)
	}
	var payload models.BetPayload
	if err := msg.Decode(&payload); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	switch payload.On {
	case BetPlayer, BetBanker, BetTie:
	default:
		return fmt.Errorf("%w: unknown side %q", ErrInvalidMessage, payload.On)
	}
	if err := t.requireStake(p, payload.Value); err != nil {
		return err
	}
	if p.IsReady {
		return fmt.Errorf("%w: bet already placed", ErrInvalidMessage)
	}

	p.TotalCredits -= payload.Value
	p.Wagers = append(p.Wagers, models.Wager{Kind: payload.On, Amount: payload.Value})
	t.state.Pot += payload.Value
	t.Broadcast(models.EventBetPlaced, models.BetPlacedEvent{SessionID: p.SessionID, Amount: payload.Value})

	if t.markReady(p) {
		return g.deal(t)
	}
	return nil
}

func (g *Baccarat) deal(t *Table) error {
	s := t.state
	t.beginHand()

	for i := 0; i < 2; i++ {
		pc, err := t.draw(true)
		if err != nil {
			return err
		}
		s.CommunityCards = append(s.CommunityCards, pc)
		bc, err := t.draw(true)
		if err != nil {
			return err
		}
		s.DealerCards = append(s.DealerCards, bc)
	}
	s.Phase = models.Playing(1)

	player, banker := BaccaratValue(s.CommunityCards), BaccaratValue(s.DealerCards)
	if player < 8 && banker < 8 {
		var third *models.Card
		if PlayerDraws(player) {
			c, err := t.draw(true)
			if err != nil {
				return err
			}
			s.CommunityCards = append(s.CommunityCards, c)
			third = &c
		}
		if BankerDraws(banker, third) {
			c, err := t.draw(true)
			if err != nil {
				return err
			}
			s.DealerCards = append(s.DealerCards, c)
		}
	}

	g.settle(t)
	return nil
}

func (g *Baccarat) settle(t *Table) {
	s := t.state
	player, banker := BaccaratValue(s.CommunityCards), BaccaratValue(s.DealerCards)
	winner := BetTie
	switch {
	case player > banker:
		winner = BetPlayer
	case banker > player:
		winner = BetBanker
	}

	winnings := make(map[string]int)
	for _, p := range s.Players.List() {
		paid := 0
		for _, w := range p.Wagers {
			paid += baccaratPayout(w, winner)
		}
		p.AddCredits(paid)
		winnings[p.SessionID] = paid
	}
	s.Pot = 0

	t.Broadcast(models.EventBaccaratResult, map[string]interface{}{
		"playerHand": s.CommunityCards,
		"bankerHand": s.DealerCards,
		"winner":     winner,
		"winnings":   winnings,
	})
	t.finish()
}

// baccaratPayout returns stake plus winnings. Banker wins pay a 5% commission.
func baccaratPayout(w models.Wager, winner string) int {
	switch {
	case w.Kind == winner && winner == BetPlayer:
		return w.Amount * 2
	case w.Kind == winner && winner == BetBanker:
		return w.Amount + w.Amount*95/100
	case w.Kind == winner && winner == BetTie:
		return w.Amount * 9
	case winner == BetTie:
		return w.Amount
	}
	return 0
}

func (g *Baccarat) Left(t *Table) {
	if t.state.Phase.Is(models.PhaseWaiting) && t.everyoneReady() {
		if err := g.deal(t); err != nil {
			t.logger.Error().Err(err).Msg("Deal after departure failed")
		}
	}
}

func (*Baccarat) Reset(*Table) {}
