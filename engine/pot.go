package engine

import (
	"sort"

	"casino-engine/models"
)

type PotCalculator struct{}

func NewPotCalculator() *PotCalculator {
	return &PotCalculator{}
}

// CalculatePots splits the hand's investments into a main pot and side pots. Each level is
// capped by the investment of a player still in the hand; folded chips stay in the pots but
// folded players are never eligible.
func (pc *PotCalculator) CalculatePots(players []*models.Player) models.Pot {
	levels := make([]int, 0, len(players))
	seen := make(map[int]bool)
	for _, p := range players {
		if p == nil || p.Folded() || p.TotalInvested == 0 || seen[p.TotalInvested] {
			continue
		}
		seen[p.TotalInvested] = true
		levels = append(levels, p.TotalInvested)
	}
	sort.Ints(levels)

	pots := make([]models.SidePot, 0, len(levels))
	prev := 0
	for _, level := range levels {
		pot := models.SidePot{EligiblePlayers: []string{}}
		for _, p := range players {
			if p == nil {
				continue
			}
			pot.Amount += clamp(p.TotalInvested, prev, level) - prev
			if !p.Folded() && p.TotalInvested >= level {
				pot.EligiblePlayers = append(pot.EligiblePlayers, p.SessionID)
			}
		}
		pots = append(pots, pot)
		prev = level
	}

	// Folded chips above the top level go to the last pot.
	for _, p := range players {
		if p != nil && p.TotalInvested > prev && len(pots) > 0 {
			pots[len(pots)-1].Amount += p.TotalInvested - prev
		}
	}

	if len(pots) == 0 {
		total := 0
		for _, p := range players {
			if p != nil {
				total += p.TotalInvested
			}
		}
		return models.Pot{Main: total, Side: []models.SidePot{}}
	}
	return models.Pot{Main: pots[0].Amount, Eligible: pots[0].EligiblePlayers, Side: pots[1:]}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DistributeWinnings awards every pot to the best eligible hands. Split pots give the odd
// credits to the earliest seats.
func DistributeWinnings(pot models.Pot, players []*models.Player, communityCards []models.Card) []models.Winner {
	winners := make([]models.Winner, 0)

	activePlayers := []*models.Player{}
	for _, p := range players {
		if p != nil && !p.Folded() {
			activePlayers = append(activePlayers, p)
		}
	}
	if len(activePlayers) == 0 {
		return winners
	}

	total := pot.Main
	for _, sp := range pot.Side {
		total += sp.Amount
	}

	if len(activePlayers) == 1 {
		return append(winners, models.Winner{
			SessionID: activePlayers[0].SessionID,
			Name:      activePlayers[0].Name,
			Amount:    total,
			HandRank:  "Winner by default",
			HandCards: activePlayers[0].Hand,
		})
	}

	evals := make(map[string]HandEvaluation, len(activePlayers))
	for _, p := range activePlayers {
		evals[p.SessionID] = EvaluateHand(p.Hand, communityCards)
	}

	mainEligible := pot.Eligible
	if len(mainEligible) == 0 {
		for _, p := range activePlayers {
			mainEligible = append(mainEligible, p.SessionID)
		}
	}
	all := append([]models.SidePot{{Amount: pot.Main, EligiblePlayers: mainEligible}}, pot.Side...)

	amounts := make(map[string]int)
	for _, sp := range all {
		best := bestHands(sp.EligiblePlayers, evals)
		if len(best) == 0 {
			continue
		}
		share := sp.Amount / len(best)
		rem := sp.Amount % len(best)
		for j, id := range best {
			amounts[id] += share
			if j < rem {
				amounts[id]++
			}
		}
	}

	for _, p := range activePlayers {
		if amounts[p.SessionID] == 0 {
			continue
		}
		winners = append(winners, models.Winner{
			SessionID: p.SessionID,
			Name:      p.Name,
			Amount:    amounts[p.SessionID],
			HandRank:  evals[p.SessionID].Rank.String(),
			HandCards: evals[p.SessionID].Cards,
		})
	}
	return winners
}

// bestHands returns the ids holding the strongest evaluation, in the given seat order.
func bestHands(ids []string, evals map[string]HandEvaluation) []string {
	var best []string
	var top HandEvaluation
	for _, id := range ids {
		eval, ok := evals[id]
		if !ok {
			continue
		}
		switch {
		case best == nil:
			best, top = []string{id}, eval
		case CompareHands(eval, top) > 0:
			best, top = []string{id}, eval
		case CompareHands(eval, top) == 0:
			best = append(best, id)
		}
	}
	return best
}
