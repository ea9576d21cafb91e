package engine

import (
	"errors"
	"testing"

	"casino-engine/models"
)

func TestHandValue(t *testing.T) {
	tests := []struct {
		name  string
		cards []models.Card
		want  int
	}{
		{"blackjack", []models.Card{card(models.Ace, models.Spades), card(models.King, models.Hearts)}, 21},
		{"two aces and nine", []models.Card{card(models.Ace, models.Spades), card(models.Ace, models.Hearts), card(models.Nine, models.Clubs)}, 21},
		{"bust", []models.Card{card(models.King, models.Spades), card(models.Queen, models.Hearts), card(models.Two, models.Clubs)}, 22},
		{"soft seventeen", []models.Card{card(models.Ace, models.Spades), card(models.Six, models.Hearts)}, 17},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HandValue(tt.cards); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestBlackjackRound(t *testing.T) {
	deck := stackedDeck(
		card(models.Ten, models.Hearts),    // a
		card(models.Ten, models.Diamonds),  // b
		card(models.Ten, models.Clubs),     // dealer up
		card(models.Five, models.Hearts),   // a
		card(models.Nine, models.Diamonds), // b
		card(models.Six, models.Clubs),     // dealer hole
		card(models.King, models.Spades),   // a hits
		card(models.Two, models.Spades),    // dealer draws
	)
	table, rec := newTestTable(t, &Blackjack{}, deck)
	seat(t, table, "a", "b")

	send(t, table, "a", models.MsgBet, models.BetPayload{Value: 100})
	if table.State().Phase.Active() {
		t.Fatalf("Expected the table to wait for b")
	}
	if len(rec.named(models.EventWaitForOthers)) != 1 {
		t.Errorf("Expected one waitForOthers event")
	}
	send(t, table, "b", models.MsgBet, models.BetPayload{Value: 50})

	s := table.State()
	if !s.Phase.Is(models.PhasePlaying) || s.CurrentTurn != "a" {
		t.Fatalf("Expected a to act first, got phase %s turn %s", s.Phase, s.CurrentTurn)
	}
	if s.DealerCards[1].FaceUp {
		t.Errorf("Expected the hole card to be dealt face down")
	}

	if err := table.HandleMessage("b", msg(models.MsgHit, nil)); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("Expected ErrNotYourTurn, got %v", err)
	}

	send(t, table, "a", models.MsgHit, models.HitPayload{})
	if !player(t, table, "a").Busted {
		t.Fatalf("Expected a to bust on 25")
	}
	if s.CurrentTurn != "b" {
		t.Fatalf("Expected the turn to pass to b, got %s", s.CurrentTurn)
	}
	send(t, table, "b", models.MsgStand, nil)

	if !s.Phase.Is(models.PhaseFinished) {
		t.Fatalf("Expected finished phase, got %s", s.Phase)
	}
	if got := HandValue(s.DealerCards); got != 18 {
		t.Errorf("Expected dealer 18, got %d", got)
	}
	if got := player(t, table, "a").TotalCredits; got != 900 {
		t.Errorf("Expected a to have 900, got %d", got)
	}
	if got := player(t, table, "b").TotalCredits; got != 1050 {
		t.Errorf("Expected b to have 1050, got %d", got)
	}

	ev, ok := rec.last(models.EventDealerResult)
	if !ok {
		t.Fatalf("Expected a dealerResult event")
	}
	result := ev.Data.(models.DealerResultEvent)
	if result.PlayerResults["a"] != ResultPlayerBust || result.PlayerResults["b"] != ResultPlayerWin {
		t.Errorf("Unexpected results %v", result.PlayerResults)
	}

	if len(rec.settlements) != 2 {
		t.Fatalf("Expected 2 settlements, got %d", len(rec.settlements))
	}
	deltas := map[string]int{}
	for _, st := range rec.settlements {
		deltas[st.SessionID] = st.Entry.Delta
	}
	if deltas["a"] != -100 || deltas["b"] != 50 {
		t.Errorf("Expected deltas -100 and 50, got %v", deltas)
	}
}

func TestBlackjackDealerSkipsDrawWhenPlayersTrail(t *testing.T) {
	deck := stackedDeck(
		card(models.Ten, models.Hearts),
		card(models.Ten, models.Clubs),
		card(models.Three, models.Hearts),
		card(models.Four, models.Clubs),
		card(models.Five, models.Spades),
	)
	table, _ := newTestTable(t, &Blackjack{}, deck)
	seat(t, table, "a")

	send(t, table, "a", models.MsgBet, models.BetPayload{Value: 10})
	send(t, table, "a", models.MsgStand, nil)

	s := table.State()
	if len(s.DealerCards) != 2 {
		t.Errorf("Expected the dealer to stand on 14 against 13, got %d cards", len(s.DealerCards))
	}
	if got := player(t, table, "a").TotalCredits; got != 990 {
		t.Errorf("Expected a to lose the bet, got %d", got)
	}
}

func TestBlackjackRejectsBadBets(t *testing.T) {
	table, _ := newTestTable(t, &Blackjack{}, nil)
	seat(t, table, "a", "b")

	if err := table.HandleMessage("a", msg(models.MsgBet, models.BetPayload{Value: 5000})); !errors.Is(err, ErrInsufficientCredits) {
		t.Errorf("Expected ErrInsufficientCredits, got %v", err)
	}
	if err := table.HandleMessage("a", msg(models.MsgBet, models.BetPayload{Value: 0})); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("Expected ErrInvalidMessage, got %v", err)
	}
	if got := player(t, table, "a").TotalCredits; got != 1000 {
		t.Errorf("Expected credits untouched, got %d", got)
	}
	if err := table.HandleMessage("ghost", msg(models.MsgBet, models.BetPayload{Value: 10})); !errors.Is(err, ErrUnknownPlayer) {
		t.Errorf("Expected ErrUnknownPlayer, got %v", err)
	}
}
