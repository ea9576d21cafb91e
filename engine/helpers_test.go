package engine

import (
	"encoding/json"
	"math/rand"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"casino-engine/models"
)

type sent struct {
	target string
	event  models.Event
}

// recorder captures table output.
type recorder struct {
	events      []sent
	settlements []Settlement
}

func (r *recorder) hooks() TableHooks {
	return TableHooks{
		OnEvent:  func(target string, ev models.Event) { r.events = append(r.events, sent{target, ev}) },
		OnSettle: func(s Settlement) { r.settlements = append(r.settlements, s) },
	}
}

func (r *recorder) named(name string) []models.Event {
	out := make([]models.Event, 0)
	for _, s := range r.events {
		if s.event.Event == name {
			out = append(out, s.event)
		}
	}
	return out
}

func (r *recorder) last(name string) (models.Event, bool) {
	evs := r.named(name)
	if len(evs) == 0 {
		return models.Event{}, false
	}
	return evs[len(evs)-1], true
}

func card(rank models.Rank, suit models.Suit) models.Card {
	return models.NewCard(rank, suit)
}

// stackedDeck deals cards in the order given. Every call builds a fresh deck.
func stackedDeck(cards ...models.Card) DeckFactory {
	return func() *models.Deck {
		reversed := make([]models.Card, len(cards))
		for i, c := range cards {
			reversed[len(cards)-1-i] = c
		}
		return models.NewDeckFromCards(rand.New(rand.NewSource(1)), reversed)
	}
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Rand = rand.New(rand.NewSource(42))
	return opts
}

func newTestTable(t *testing.T, game Game, deck DeckFactory) (*Table, *recorder) {
	t.Helper()
	rec := &recorder{}
	table := NewTable("room-1", game, testOptions(), deck, rec.hooks(), zerolog.Nop())
	return table, rec
}

func seat(t *testing.T, table *Table, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if err := table.Join(models.NewPlayer(id, "acct-"+id, id, 1000)); err != nil {
			t.Fatalf("Failed to seat %s: %v", id, err)
		}
	}
}

func msg(typ string, payload interface{}) models.Message {
	m := models.Message{Type: typ}
	if payload != nil {
		data, _ := json.Marshal(payload)
		m.Data = data
	}
	return m
}

func send(t *testing.T, table *Table, sessionID, typ string, payload interface{}) {
	t.Helper()
	if err := table.HandleMessage(sessionID, msg(typ, payload)); err != nil {
		t.Fatalf("%s from %s failed: %v", typ, sessionID, err)
	}
}

func player(t *testing.T, table *Table, id string) *models.Player {
	t.Helper()
	p, ok := table.State().Find(id)
	if !ok {
		t.Fatalf("Player %s not found", id)
	}
	return p
}

// fakeClient records the events delivered by a Room.
type fakeClient struct {
	id     string
	mu     sync.Mutex
	events []models.Event
}

func (c *fakeClient) SessionID() string { return c.id }

func (c *fakeClient) Send(ev models.Event) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *fakeClient) received(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, ev := range c.events {
		if ev.Event == name {
			n++
		}
	}
	return n
}
