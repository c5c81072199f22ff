package engine

import (
	"slices"
	"sort"
)

// Turn order is join order. Removing a player closes the gap, so the pointer
// has to be moved to keep naming the same player, or the next one if the
// removed player held the turn.

func (s *State) advanceTurn() {
	if len(s.Order) == 0 {
		s.Turn = 0
		return
	}
	s.Turn = (s.Turn + 1) % len(s.Order)
}

func (s *State) removeFromOrder(playerID string) bool {
	idx := slices.Index(s.Order, playerID)
	if idx < 0 {
		return false
	}
	s.Order = slices.Delete(s.Order, idx, idx+1)
	if idx < s.Turn {
		s.Turn--
	}
	if s.Turn >= len(s.Order) {
		s.Turn = 0
	}
	return true
}

// rebuildOrder repairs Order against Players: unknown ids are dropped and
// seated players missing from it are appended by join time, then id.
func (s *State) rebuildOrder() {
	order := make([]string, 0, len(s.Players))
	seen := make(map[string]bool, len(s.Players))
	for _, id := range s.Order {
		if _, ok := s.Players[id]; ok && !seen[id] {
			order = append(order, id)
			seen[id] = true
		}
	}
	var missing []Player
	for id, p := range s.Players {
		if !seen[id] {
			if p.ID == "" {
				p.ID = id
			}
			missing = append(missing, p)
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		if !missing[i].JoinedAt.Equal(missing[j].JoinedAt) {
			return missing[i].JoinedAt.Before(missing[j].JoinedAt)
		}
		return missing[i].ID < missing[j].ID
	})
	for _, p := range missing {
		order = append(order, p.ID)
	}
	s.Order = order
	if s.Turn < 0 || s.Turn >= len(s.Order) {
		s.Turn = 0
	}
}
