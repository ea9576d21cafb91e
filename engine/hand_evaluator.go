package engine

import (
	"sort"

	"github.com/paulhankin/poker"

	"casino-engine/models"
)

// HandRank orders poker hands; a lower rank wins.
type HandRank int

const (
	RoyalFlush HandRank = iota + 1
	StraightFlush
	FourOfAKind
	FullHouse
	Flush
	Straight
	ThreeOfAKind
	TwoPair
	OnePair
	HighCard
)

func (hr HandRank) String() string {
	names := []string{"Royal Flush", "Straight Flush", "Four of a Kind", "Full House", "Flush", "Straight", "Three of a Kind", "Two Pair", "One Pair", "High Card"}
	if hr < RoyalFlush || hr > HighCard {
		return "Unknown"
	}
	return names[hr-1]
}

// HandEvaluation is the best five-card hand. Values break ties positionally, highest first.
type HandEvaluation struct {
	Rank   HandRank
	Values []int
	Cards  []models.Card
}

func EvaluateHand(playerCards []models.Card, communityCards []models.Card) HandEvaluation {
	allCards := append([]models.Card{}, playerCards...)
	allCards = append(allCards, communityCards...)

	sort.Slice(allCards, func(i, j int) bool {
		return allCards[i].Value() > allCards[j].Value()
	})

	if len(allCards) < 5 {
		return checkHighCard(allCards)
	}

	checks := []func([]models.Card) (HandEvaluation, bool){
		checkStraightFlush,
		checkFourOfAKind,
		checkFullHouse,
		checkFlush,
		checkStraight,
		checkThreeOfAKind,
		checkTwoPair,
		checkOnePair,
	}
	for _, check := range checks {
		if eval, ok := check(allCards); ok {
			return eval
		}
	}
	return checkHighCard(allCards)
}

// CompareHands returns 1 when a beats b, -1 when b beats a and 0 on a tie.
func CompareHands(a, b HandEvaluation) int {
	if a.Rank != b.Rank {
		if a.Rank < b.Rank {
			return 1
		}
		return -1
	}
	for i := 0; i < len(a.Values) && i < len(b.Values); i++ {
		if a.Values[i] > b.Values[i] {
			return 1
		}
		if a.Values[i] < b.Values[i] {
			return -1
		}
	}
	return 0
}

// groupByRank returns the cards of each value, largest group first, higher value first on equal size.
func groupByRank(cards []models.Card) [][]models.Card {
	byValue := make(map[int][]models.Card)
	for _, c := range cards {
		byValue[c.Value()] = append(byValue[c.Value()], c)
	}
	groups := make([][]models.Card, 0, len(byValue))
	for _, g := range byValue {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if len(groups[i]) != len(groups[j]) {
			return len(groups[i]) > len(groups[j])
		}
		return groups[i][0].Value() > groups[j][0].Value()
	})
	return groups
}

// kickers returns up to n cards whose value is not excluded, highest first.
func kickers(cards []models.Card, n int, exclude ...int) []models.Card {
	out := make([]models.Card, 0, n)
	for _, c := range cards {
		if len(out) == n {
			break
		}
		skip := false
		for _, v := range exclude {
			if c.Value() == v {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, c)
		}
	}
	return out
}

func values(cards []models.Card) []int {
	out := make([]int, len(cards))
	for i, c := range cards {
		out[i] = c.Value()
	}
	return out
}

func flushCards(cards []models.Card) []models.Card {
	suitMap := make(map[models.Suit][]models.Card)
	for _, card := range cards {
		suitMap[card.Suit] = append(suitMap[card.Suit], card)
	}
	for _, suitCards := range suitMap {
		if len(suitCards) >= 5 {
			return suitCards
		}
	}
	return nil
}

func checkStraightFlush(cards []models.Card) (HandEvaluation, bool) {
	suited := flushCards(cards)
	if suited == nil {
		return HandEvaluation{}, false
	}
	straight := findStraight(suited)
	if straight == nil {
		return HandEvaluation{}, false
	}
	high := straightHigh(straight)
	if high == 14 {
		return HandEvaluation{Rank: RoyalFlush, Values: []int{high}, Cards: straight}, true
	}
	return HandEvaluation{Rank: StraightFlush, Values: []int{high}, Cards: straight}, true
}

func checkFourOfAKind(cards []models.Card) (HandEvaluation, bool) {
	groups := groupByRank(cards)
	if len(groups[0]) < 4 {
		return HandEvaluation{}, false
	}
	quad := groups[0][:4]
	kicker := kickers(cards, 1, quad[0].Value())
	return HandEvaluation{
		Rank:   FourOfAKind,
		Values: append([]int{quad[0].Value()}, values(kicker)...),
		Cards:  append(append([]models.Card{}, quad...), kicker...),
	}, true
}

func checkFullHouse(cards []models.Card) (HandEvaluation, bool) {
	groups := groupByRank(cards)
	if len(groups) < 2 || len(groups[0]) < 3 || len(groups[1]) < 2 {
		return HandEvaluation{}, false
	}
	three := groups[0][:3]
	// A second set of trips can serve as the pair, and must if it outranks a real pair.
	pair := groups[1][:2]
	for _, g := range groups[1:] {
		if len(g) >= 2 && g[0].Value() > pair[0].Value() {
			pair = g[:2]
		}
	}
	return HandEvaluation{
		Rank:   FullHouse,
		Values: []int{three[0].Value(), pair[0].Value()},
		Cards:  append(append([]models.Card{}, three...), pair...),
	}, true
}

func checkFlush(cards []models.Card) (HandEvaluation, bool) {
	suited := flushCards(cards)
	if suited == nil {
		return HandEvaluation{}, false
	}
	best := suited[:5]
	return HandEvaluation{Rank: Flush, Values: values(best), Cards: best}, true
}

func checkStraight(cards []models.Card) (HandEvaluation, bool) {
	straight := findStraight(cards)
	if straight == nil {
		return HandEvaluation{}, false
	}
	return HandEvaluation{Rank: Straight, Values: []int{straightHigh(straight)}, Cards: straight}, true
}

// findStraight returns the highest five-card run from cards sorted high to low. The ace
// also plays low in the wheel, which is returned with the ace last.
func findStraight(cards []models.Card) []models.Card {
	uniqueRanks := make(map[int]models.Card)
	for _, card := range cards {
		if _, exists := uniqueRanks[card.Value()]; !exists {
			uniqueRanks[card.Value()] = card
		}
	}

	for high := 14; high >= 6; high-- {
		run := make([]models.Card, 0, 5)
		for v := high; v > high-5; v-- {
			c, ok := uniqueRanks[v]
			if !ok {
				break
			}
			run = append(run, c)
		}
		if len(run) == 5 {
			return run
		}
	}

	if ace, ok := uniqueRanks[14]; ok {
		wheel := make([]models.Card, 0, 5)
		for _, v := range []int{5, 4, 3, 2} {
			c, ok := uniqueRanks[v]
			if !ok {
				return nil
			}
			wheel = append(wheel, c)
		}
		return append(wheel, ace)
	}
	return nil
}

func straightHigh(straight []models.Card) int {
	if straight[0].Value() == 5 && straight[4].Value() == 14 {
		return 5
	}
	return straight[0].Value()
}

func checkThreeOfAKind(cards []models.Card) (HandEvaluation, bool) {
	groups := groupByRank(cards)
	if len(groups[0]) < 3 {
		return HandEvaluation{}, false
	}
	three := groups[0][:3]
	rest := kickers(cards, 2, three[0].Value())
	return HandEvaluation{
		Rank:   ThreeOfAKind,
		Values: append([]int{three[0].Value()}, values(rest)...),
		Cards:  append(append([]models.Card{}, three...), rest...),
	}, true
}

func checkTwoPair(cards []models.Card) (HandEvaluation, bool) {
	groups := groupByRank(cards)
	if len(groups) < 2 || len(groups[0]) < 2 || len(groups[1]) < 2 {
		return HandEvaluation{}, false
	}
	high, low := groups[0][:2], groups[1][:2]
	rest := kickers(cards, 1, high[0].Value(), low[0].Value())
	best := append(append(append([]models.Card{}, high...), low...), rest...)
	return HandEvaluation{
		Rank:   TwoPair,
		Values: append([]int{high[0].Value(), low[0].Value()}, values(rest)...),
		Cards:  best,
	}, true
}

func checkOnePair(cards []models.Card) (HandEvaluation, bool) {
	groups := groupByRank(cards)
	if len(groups[0]) < 2 {
		return HandEvaluation{}, false
	}
	pair := groups[0][:2]
	rest := kickers(cards, 3, pair[0].Value())
	return HandEvaluation{
		Rank:   OnePair,
		Values: append([]int{pair[0].Value()}, values(rest)...),
		Cards:  append(append([]models.Card{}, pair...), rest...),
	}, true
}

func checkHighCard(cards []models.Card) HandEvaluation {
	best := cards
	if len(best) > 5 {
		best = best[:5]
	}
	return HandEvaluation{Rank: HighCard, Values: values(best), Cards: append([]models.Card{}, best...)}
}

// DescribeHand names a seven-card hand, e.g. "ace-high flush". It falls back to the rank name
// for anything shorter than a full board.
func DescribeHand(playerCards, communityCards []models.Card) string {
	all := append(append([]models.Card{}, playerCards...), communityCards...)
	eval := EvaluateHand(playerCards, communityCards)
	if len(all) != 7 {
		return eval.Rank.String()
	}

	converted := make([]poker.Card, 0, 7)
	for _, c := range all {
		pc, err := toPokerCard(c)
		if err != nil {
			return eval.Rank.String()
		}
		converted = append(converted, pc)
	}
	desc, err := poker.Describe(converted)
	if err != nil {
		return eval.Rank.String()
	}
	return desc
}

func toPokerCard(c models.Card) (poker.Card, error) {
	var suit poker.Suit
	switch c.Suit {
	case models.Clubs:
		suit = poker.Club
	case models.Diamonds:
		suit = poker.Diamond
	case models.Hearts:
		suit = poker.Heart
	default:
		suit = poker.Spade
	}
	rank := c.Value()
	if rank == 14 {
		rank = 1
	}
	return poker.MakeCard(suit, poker.Rank(rank))
}
