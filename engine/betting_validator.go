package engine

import (
	"fmt"

	"casino-engine/models"
)

type BettingValidator struct {
	highestBet int
	minRaise   int
}

func NewBettingValidator(highestBet, minRaise int) *BettingValidator {
	return &BettingValidator{
		highestBet: highestBet,
		minRaise:   minRaise,
	}
}

func (bv *BettingValidator) validateCheck(p *models.Player) error {
	if p.CurrentBet < bv.highestBet {
		return fmt.Errorf("%w: cannot check, %d to call", ErrInvalidMessage, bv.highestBet-p.CurrentBet)
	}
	return nil
}

// validateRaise checks a raise of value on top of the highest bet and returns the credits it costs.
// A short raise is only allowed when it puts the player all-in.
func (bv *BettingValidator) validateRaise(p *models.Player, value int) (int, error) {
	if value <= 0 {
		return 0, fmt.Errorf("%w: raise must be positive", ErrInvalidMessage)
	}

	cost := bv.highestBet + value - p.CurrentBet
	if cost > p.TotalCredits {
		return 0, fmt.Errorf("%w: raise costs %d, credits %d", ErrInsufficientCredits, cost, p.TotalCredits)
	}
	if value < bv.minRaise && cost != p.TotalCredits {
		return 0, fmt.Errorf("%w: raise must be at least %d", ErrInvalidMessage, bv.minRaise)
	}
	return cost, nil
}

// callAmount is what a call costs, capped by the player's credits.
func (bv *BettingValidator) callAmount(p *models.Player) int {
	owed := bv.highestBet - p.CurrentBet
	if owed > p.TotalCredits {
		return p.TotalCredits
	}
	if owed < 0 {
		return 0
	}
	return owed
}
