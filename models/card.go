package models

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

type Suit string
type Rank string

const (
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
	Spades   Suit = "spades"
)

const (
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "jack"
	Queen Rank = "queen"
	King  Rank = "king"
	Ace   Rank = "ace"
)

var (
	AllSuits = []Suit{Hearts, Diamonds, Clubs, Spades}
	AllRanks = []Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}
)

// ErrEmptyDeck is returned by Draw when neither the deck nor the discard pile holds a card.
var ErrEmptyDeck = errors.New("deck is empty and there is no discard pile to reshuffle")

type Card struct {
	ID     string `json:"id"`
	Suit   Suit   `json:"suit"`
	Rank   Rank   `json:"rank"`
	FaceUp bool   `json:"faceUp"`
}

func NewCard(rank Rank, suit Suit) Card {
	return Card{ID: fmt.Sprintf("%s-%s", rank, suit), Rank: rank, Suit: suit}
}

func (c Card) String() string {
	return fmt.Sprintf("%s of %s", c.Rank, c.Suit)
}

// Value is the poker value of the card, 2 through 14 with the ace high.
func (c Card) Value() int {
	switch c.Rank {
	case Two:
		return 2
	case Three:
		return 3
	case Four:
		return 4
	case Five:
		return 5
	case Six:
		return 6
	case Seven:
		return 7
	case Eight:
		return 8
	case Nine:
		return 9
	case Ten:
		return 10
	case Jack:
		return 11
	case Queen:
		return 12
	case King:
		return 13
	case Ace:
		return 14
	}
	return 0
}

// BlackjackValue counts face cards as 10 and the ace as 11.
func (c Card) BlackjackValue() int {
	switch v := c.Value(); {
	case v == 14:
		return 11
	case v > 10:
		return 10
	default:
		return v
	}
}

// BaccaratValue counts tens and face cards as 0 and the ace as 1.
func (c Card) BaccaratValue() int {
	switch v := c.Value(); {
	case v == 14:
		return 1
	case v >= 10:
		return 0
	default:
		return v
	}
}

func BuildStandardDeck() []Card {
	cards := make([]Card, 0, len(AllSuits)*len(AllRanks))
	for _, suit := range AllSuits {
		for _, rank := range AllRanks {
			cards = append(cards, NewCard(rank, suit))
		}
	}
	return cards
}

// Deck is drawn from the end. Cards moved to Discard are shuffled back in once the deck runs dry.
type Deck struct {
	cards   []Card
	discard []Card
	rng     *rand.Rand
}

func NewDeck(rng *rand.Rand) *Deck {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	deck := &Deck{rng: rng}
	deck.Reset()
	return deck
}

// NewDeckFromCards builds a deck that draws the given cards in reverse order, without shuffling.
func NewDeckFromCards(rng *rand.Rand, cards []Card) *Deck {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Deck{cards: append([]Card(nil), cards...), rng: rng}
}

func (d *Deck) Reset() {
	d.cards = BuildStandardDeck()
	d.discard = nil
	d.Shuffle()
}

func (d *Deck) Shuffle() {
	shuffleCards(d.cards, d.rng)
}

func shuffleCards(cards []Card, rng *rand.Rand) {
	for i := len(cards) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

func (d *Deck) Draw() (Card, error) {
	if len(d.cards) == 0 {
		if len(d.discard) == 0 {
			return Card{}, ErrEmptyDeck
		}
		d.cards = d.discard
		d.discard = nil
		d.Shuffle()
	}
	last := len(d.cards) - 1
	card := d.cards[last]
	d.cards = d.cards[:last]
	return card, nil
}

func (d *Deck) DrawFaceUp() (Card, error) {
	card, err := d.Draw()
	if err != nil {
		return Card{}, err
	}
	card.FaceUp = true
	return card, nil
}

func (d *Deck) DrawMultiple(n int) ([]Card, error) {
	if len(d.cards)+len(d.discard) < n {
		return nil, fmt.Errorf("not enough cards: requested %d, available %d: %w", n, len(d.cards)+len(d.discard), ErrEmptyDeck)
	}
	cards := make([]Card, n)
	for i := 0; i < n; i++ {
		card, err := d.Draw()
		if err != nil {
			return nil, err
		}
		cards[i] = card
	}
	return cards, nil
}

func (d *Deck) Discard(cards ...Card) {
	for _, c := range cards {
		c.FaceUp = false
		d.discard = append(d.discard, c)
	}
}

// Return puts cards back into the drawable deck.
func (d *Deck) Return(cards ...Card) {
	for _, c := range cards {
		c.FaceUp = false
		d.cards = append(d.cards, c)
	}
}

func (d *Deck) Remaining() int {
	return len(d.cards)
}

func (d *Deck) Discarded() int {
	return len(d.discard)
}
