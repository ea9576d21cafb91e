package engine

import (
	"fmt"

	"casino-engine/models"
)

// Betting rounds carried in Phase.Round.
const (
	RoundPreflop = 1
	RoundFlop    = 2
	RoundTurn    = 3
	RoundRiver   = 4
)

// Poker is Texas hold'em with fixed blinds.
type Poker struct {
	smallBlind int
	bigBlind   int
	// departed holds the folded records of players who left mid-hand. Their investment
	// stays in the pots until showdown.
	departed []*models.Player
}

func (*Poker) Type() models.GameType { return models.GamePoker }
func (*Poker) MinPlayers() int       { return 2 }

// needsToAct is a seat that can still bet and owes an action this round.
func needsToAct(highest int) PlayerFilter {
	return func(p *models.Player) bool {
		return canBet(p) && (!p.HasActed || p.CurrentBet < highest)
	}
}

func (g *Poker) Handle(t *Table, p *models.Player, msg models.Message) error {
	switch msg.Type {
	case models.MsgReady:
		if err := t.requirePhase(models.PhaseWaiting); err != nil {
			return err
		}
		if p.BalancePending {
			return ErrBalancePending
		}
		if t.markReady(p) {
			return g.deal(t)
		}
		return nil
	case models.MsgCheck, models.MsgCall, models.MsgFold:
		return g.act(t, p, msg.Type, 0)
	case models.MsgRaise, models.MsgBet:
		var payload models.RaisePayload
		if err := msg.Decode(&payload); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return g.act(t, p, models.MsgRaise, payload.Value)
	}
	return fmt.Errorf("%w: %q", ErrInvalidMessage, msg.Type)
}

func (g *Poker) deal(t *Table) error {
	s := t.state
	t.beginHand()
	g.departed = nil
	g.assignBlinds(t)

	for _, p := range s.Players.List() {
		switch p.Blind {
		case models.BlindSmall:
			s.Pot += p.PlaceBet(g.smallBlind)
		case models.BlindBig:
			s.Pot += p.PlaceBet(g.bigBlind)
		}
		if p.CurrentBet > s.HighestBet {
			s.HighestBet = p.CurrentBet
		}
	}

	players := s.Players.List()
	if err := t.dealRoundRobin(players, 2, false, nil); err != nil {
		return err
	}
	s.Phase = models.Playing(RoundPreflop)

	bigBlind := ""
	for _, p := range players {
		if p.Blind == models.BlindBig {
			bigBlind = p.SessionID
		}
	}
	s.CurrentTurn = NewSeats(s.Players, needsToAct(s.HighestBet)).NextWrapping(bigBlind)
	if s.CurrentTurn == "" {
		s.CurrentTurn = models.DealerTurn
	}

	snapshot := t.Snapshot()
	for _, p := range players {
		private := snapshot
		private.Players = publicPlayers(players)
		for _, view := range private.Players {
			if view.SessionID == p.SessionID {
				view.Hand = revealed(p.Hand)
			}
		}
		t.SendTo(p.SessionID, models.EventGameStarted, private)
	}

	if s.CurrentTurn == models.DealerTurn {
		return g.DealerTurn(t)
	}
	return nil
}

// assignBlinds seats the blinds on the first hand: small on the first seat, big on the second.
// Later hands keep the roles rotated by Reset.
func (g *Poker) assignBlinds(t *Table) {
	s := t.state
	seats := NewSeats(s.Players, hasCredits)
	small, big := "", ""
	for _, p := range s.Players.List() {
		switch p.Blind {
		case models.BlindSmall:
			small = p.SessionID
		case models.BlindBig:
			big = p.SessionID
		}
	}
	if small == "" {
		small = seats.First()
		if small == models.DealerTurn {
			return
		}
	}
	if big == "" || big == small {
		big = seats.NextWrapping(small)
	}
	for _, p := range s.Players.List() {
		switch p.SessionID {
		case small:
			p.Blind = models.BlindSmall
		case big:
			p.Blind = models.BlindBig
		default:
			p.Blind = models.BlindNone
		}
	}
}

func (g *Poker) act(t *Table, p *models.Player, action string, value int) error {
	if err := t.requireTurn(p); err != nil {
		return err
	}
	s := t.state
	bv := NewBettingValidator(s.HighestBet, g.bigBlind)

	switch action {
	case models.MsgCheck:
		if err := bv.validateCheck(p); err != nil {
			return err
		}
		p.LastAction = models.ActionCheck
	case models.MsgCall:
		s.Pot += p.PlaceBet(bv.callAmount(p))
		p.LastAction = models.ActionCall
	case models.MsgRaise:
		cost, err := bv.validateRaise(p, value)
		if err != nil {
			return err
		}
		s.Pot += p.PlaceBet(cost)
		if p.CurrentBet > s.HighestBet {
			s.HighestBet = p.CurrentBet
		}
		p.LastAction = models.ActionRaise
	case models.MsgFold:
		p.LastAction = models.ActionFold
	}
	p.HasActed = true
	return g.afterAction(t, p)
}

// afterAction moves the turn past p, ending the hand or the betting round when due.
func (g *Poker) afterAction(t *Table, p *models.Player) error {
	s := t.state
	if NewSeats(s.Players, isNotFolded).Count() == 1 {
		return g.awardUncontested(t)
	}
	if g.bettingRoundOver(t) {
		s.CurrentTurn = models.DealerTurn
		t.Broadcast(models.EventNextTurn, models.NextTurnEvent{NextPlayer: s.CurrentTurn, PrevPlayer: p.SessionID})
		return g.DealerTurn(t)
	}

	s.CurrentTurn = NewSeats(s.Players, needsToAct(s.HighestBet)).After(p.SessionID)
	t.Broadcast(models.EventNextTurn, models.NextTurnEvent{NextPlayer: s.CurrentTurn, PrevPlayer: p.SessionID})
	if s.CurrentTurn == models.DealerTurn {
		return g.DealerTurn(t)
	}
	return nil
}

// bettingRoundOver holds when every player who can still bet has acted and matched the
// highest bet, with more than one of them left. With one or none able to bet, the round is
// over once nobody owes a call.
func (g *Poker) bettingRoundOver(t *Table) bool {
	s := t.state
	active := NewSeats(s.Players, canBet).Eligible()
	if len(active) > 1 {
		return allBetsEqual(active, s.HighestBet) && allActed(active)
	}
	return len(active) == 0 || active[0].CurrentBet >= s.HighestBet
}

func allBetsEqual(players []*models.Player, highest int) bool {
	for _, p := range players {
		if p.CurrentBet != highest {
			return false
		}
	}
	return true
}

func allActed(players []*models.Player) bool {
	for _, p := range players {
		if !p.HasActed {
			return false
		}
	}
	return true
}

// DealerTurn either starts a new lap for players who still owe an action or closes the
// betting round, revealing the next community cards.
func (g *Poker) DealerTurn(t *Table) error {
	s := t.state
	if !s.Phase.Is(models.PhasePlaying) {
		return nil
	}

	if !g.bettingRoundOver(t) {
		next := NewSeats(s.Players, needsToAct(s.HighestBet)).First()
		if next != models.DealerTurn {
			s.CurrentTurn = next
			t.Broadcast(models.EventNextTurn, models.NextTurnEvent{NextPlayer: next, PrevPlayer: models.DealerTurn})
			return nil
		}
	}

	for {
		if s.Phase.Round >= RoundRiver {
			return g.showdown(t)
		}
		if err := g.revealNext(t); err != nil {
			return err
		}
		if NewSeats(s.Players, canBet).Count() >= 2 {
			break
		}
	}

	s.CurrentTurn = NewSeats(s.Players, needsToAct(s.HighestBet)).First()
	t.Broadcast(models.EventNextTurn, models.NextTurnEvent{NextPlayer: s.CurrentTurn, PrevPlayer: models.DealerTurn})
	return nil
}

// revealNext burns one card and turns the flop, turn or river.
func (g *Poker) revealNext(t *Table) error {
	s := t.state
	count := 1
	if s.Phase.Round == RoundPreflop {
		count = 3
	}

	burn, err := t.draw(false)
	if err != nil {
		return err
	}
	s.Deck.Discard(burn)

	for i := 0; i < count; i++ {
		c, err := t.draw(true)
		if err != nil {
			return err
		}
		s.CommunityCards = append(s.CommunityCards, c)
	}

	for _, p := range s.Players.List() {
		p.CurrentBet = 0
		p.HasActed = false
	}
	s.HighestBet = 0
	s.Phase = models.Playing(s.Phase.Round + 1)
	t.Broadcast(models.EventCommunityCards, map[string]interface{}{
		"communityCards": s.CommunityCards,
		"round":          s.Phase.Round,
	})
	return nil
}

func (g *Poker) awardUncontested(t *Table) error {
	s := t.state
	winner := NewSeats(s.Players, isNotFolded).Eligible()[0]
	amount := s.Pot
	winner.AddCredits(amount)
	s.Pot = 0
	t.Broadcast(models.EventEndGame, models.EndGameEvent{
		Winner:   []string{winner.SessionID},
		Winnings: map[string]int{winner.SessionID: amount},
		Result:   map[string]string{winner.SessionID: "Winner by default"},
	})
	t.finish()
	return nil
}

func (g *Poker) showdown(t *Table) error {
	s := t.state
	players := s.Players.List()
	contributors := append(append([]*models.Player(nil), players...), g.departed...)
	pot := NewPotCalculator().CalculatePots(contributors)
	winners := DistributeWinnings(pot, contributors, s.CommunityCards)

	ev := models.EndGameEvent{
		Winner:   make([]string, 0, len(winners)),
		Winnings: make(map[string]int),
		Result:   make(map[string]string),
	}
	for _, w := range winners {
		if p, ok := s.Players.Get(w.SessionID); ok {
			p.AddCredits(w.Amount)
		}
		ev.Winner = append(ev.Winner, w.SessionID)
		ev.Winnings[w.SessionID] = w.Amount
	}
	for _, p := range NewSeats(s.Players, isNotFolded).Eligible() {
		for i := range p.Hand {
			p.Hand[i].FaceUp = true
		}
		ev.Result[p.SessionID] = DescribeHand(p.Hand, s.CommunityCards)
	}
	s.Pot = 0

	t.Broadcast(models.EventEndGame, ev)
	t.finish()
	return nil
}

// Forfeit folds a departed turn holder.
func (g *Poker) Forfeit(t *Table, p *models.Player) error {
	if t.state.CurrentTurn != p.SessionID || !t.state.Phase.Is(models.PhasePlaying) {
		return nil
	}
	p.LastAction = models.ActionFold
	p.HasActed = true
	return g.afterAction(t, p)
}

// Leaving folds the departing player and hands any blind role to the next seat.
func (g *Poker) Leaving(t *Table, p *models.Player) {
	s := t.state
	if s.Phase.Is(models.PhasePlaying) || s.Phase.Is(models.PhaseDealing) {
		p.LastAction = models.ActionFold
		if p.TotalInvested > 0 {
			g.departed = append(g.departed, p)
		}
	}
	if p.Blind == models.BlindNone {
		return
	}
	seats := NewSeats(s.Players, func(o *models.Player) bool { return o.SessionID != p.SessionID && hasCredits(o) })
	role := p.Blind
	p.Blind = models.BlindNone
	next := seats.NextWrapping(p.SessionID)
	if next == "" {
		return
	}
	heir, _ := s.Players.Get(next)
	if role == models.BlindSmall && heir.Blind == models.BlindBig {
		// The big blind steps down to small and the seat after takes the big blind.
		heir.Blind = models.BlindSmall
		if after := seats.NextWrapping(next); after != "" {
			o, _ := s.Players.Get(after)
			o.Blind = models.BlindBig
		}
		return
	}
	if heir.Blind == models.BlindNone {
		heir.Blind = role
	}
}

// Left settles the hand when the departure leaves a single player, or starts it when the
// remaining players were all waiting on the one who left.
func (g *Poker) Left(t *Table) {
	s := t.state
	var err error
	switch {
	case s.Phase.Is(models.PhasePlaying):
		if NewSeats(s.Players, isNotFolded).Count() == 1 {
			err = g.awardUncontested(t)
		} else if s.CurrentTurn == models.DealerTurn || g.bettingRoundOver(t) {
			s.CurrentTurn = models.DealerTurn
			err = g.DealerTurn(t)
		}
	case s.Phase.Is(models.PhaseWaiting):
		if t.everyoneReady() {
			err = g.deal(t)
		}
	}
	if err != nil {
		t.logger.Error().Err(err).Msg("Poker update after departure failed")
	}
}

// Reset rotates both blinds one eligible seat forward.
func (g *Poker) Reset(t *Table) {
	s := t.state
	g.departed = nil
	small := ""
	for _, p := range s.Players.List() {
		if p.Blind == models.BlindSmall {
			small = p.SessionID
		}
		p.Blind = models.BlindNone
	}
	if small == "" {
		return
	}
	seats := NewSeats(s.Players, hasCredits)
	newSmall := seats.NextWrapping(small)
	if newSmall == "" {
		return
	}
	newBig := seats.NextWrapping(newSmall)
	for _, p := range s.Players.List() {
		switch p.SessionID {
		case newSmall:
			p.Blind = models.BlindSmall
		case newBig:
			p.Blind = models.BlindBig
		}
	}
}

func revealed(cards []models.Card) []models.Card {
	out := make([]models.Card, len(cards))
	for i, c := range cards {
		c.FaceUp = true
		out[i] = c
	}
	return out
}
