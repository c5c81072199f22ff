package engine

import "github.com/DoyleJ11/scratch-race-backend/internal/deck"

// payout settles a finished race in place. Players holding none of the
// winning horse's cards pay one chip per card left in hand. The pot is then
// split per winning card, each winner receiving floor(pot * cards / total);
// the remainder is dropped and the pot is left as is.
func payout(s *State, winner int) []Event {
	var events []Event
	counts := make(map[string]int, len(s.Order))
	total := 0

	for _, id := range s.Order {
		p := s.Players[id]
		n := deck.Count(p.Cards, winner)
		if n > 0 {
			counts[id] = n
			total += n
			continue
		}
		if owed := int64(len(p.Cards)); owed > 0 {
			p.Chips -= owed
			s.Pot += owed
			s.Players[id] = p
			events = append(events, Event{Type: EvtForfeit, PlayerID: id, Count: len(p.Cards), Amount: owed})
		}
	}

	if total == 0 {
		return events
	}

	for _, id := range s.Order {
		n, ok := counts[id]
		if !ok {
			continue
		}
		won := s.Pot * int64(n) / int64(total)
		p := s.Players[id]
		p.Chips += won
		s.Players[id] = p
		events = append(events, Event{Type: EvtPayout, PlayerID: id, Horse: winner, Count: n, Amount: won})
	}
	return events
}
