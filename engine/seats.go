package engine

import "casino-engine/models"

type PlayerFilter func(*models.Player) bool

func isNotFolded(p *models.Player) bool {
	return p != nil && !p.Folded()
}

func hasCredits(p *models.Player) bool {
	return p != nil && p.TotalCredits > 0
}

// canBet is a poker seat that is still in the hand and not all-in.
func canBet(p *models.Player) bool {
	return isNotFolded(p) && hasCredits(p)
}

func isReady(p *models.Player) bool {
	return p != nil && p.IsReady
}

func allOf(filters ...PlayerFilter) PlayerFilter {
	return func(p *models.Player) bool {
		for _, f := range filters {
			if !f(p) {
				return false
			}
		}
		return true
	}
}

// Seats walks the seating order, skipping players the filter rejects.
type Seats struct {
	seating *models.Seating
	filter  PlayerFilter
}

func NewSeats(seating *models.Seating, filter PlayerFilter) Seats {
	if filter == nil {
		filter = func(p *models.Player) bool { return p != nil }
	}
	return Seats{seating: seating, filter: filter}
}

func (s Seats) Eligible() []*models.Player {
	out := make([]*models.Player, 0, s.seating.Len())
	for _, p := range s.seating.List() {
		if s.filter(p) {
			out = append(out, p)
		}
	}
	return out
}

func (s Seats) Count() int {
	return len(s.Eligible())
}

// First returns the first eligible seat, or models.DealerTurn when there is none.
func (s Seats) First() string {
	for _, p := range s.seating.List() {
		if s.filter(p) {
			return p.SessionID
		}
	}
	return models.DealerTurn
}

// After returns the next eligible seat behind id, or models.DealerTurn past the last seat.
// An id that is not seated starts from the top.
func (s Seats) After(id string) string {
	start := s.seating.Index(id) + 1
	for i := start; i < s.seating.Len(); i++ {
		if p := s.seating.At(i); s.filter(p) {
			return p.SessionID
		}
	}
	return models.DealerTurn
}

// NextWrapping returns the next eligible seat behind id, wrapping around the table.
// It returns "" when no other seat qualifies.
func (s Seats) NextWrapping(id string) string {
	n := s.seating.Len()
	if n == 0 {
		return ""
	}
	idx := s.seating.Index(id)
	for checked := 1; checked <= n; checked++ {
		p := s.seating.At((idx + checked + n) % n)
		if p.SessionID != id && s.filter(p) {
			return p.SessionID
		}
	}
	return ""
}
