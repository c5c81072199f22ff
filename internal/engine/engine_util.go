package engine

import (
	"cmp"
	"maps"
	"slices"
	"time"

	"github.com/DoyleJ11/scratch-race-backend/internal/track"
)

// now is swapped out by tests that need stable timestamps.
var now = func() time.Time { return time.Now().UTC() }

// NewSession returns a waiting game with the creator already seated.
func NewSession(id, creatorID, creatorName string, maxPlayers int, startingChips int64) State {
	s := NewEmptyState()
	s.ID = id
	s.CreatorID = creatorID
	s.MaxPlayers = maxPlayers
	s.StartingChips = startingChips
	s.CreatedAt = now()
	s.Players[creatorID] = Player{
		ID:       creatorID,
		Name:     creatorName,
		Cards:    []int{},
		Chips:    startingChips,
		JoinedAt: s.CreatedAt,
	}
	s.Order = []string{creatorID}
	return s
}

func NewEmptyState() State {
	s := State{
		MaxPlayers:    DefaultMaxPlayers,
		StartingChips: DefaultStartingChips,
		Phase:         PhaseWaiting,
		Order:         []string{},
		Players:       map[string]Player{},
		Kicked:        map[string]Player{},
		Horses:        map[int]int{},
		Scratched:     []Scratch{},
		Entered:       map[int]EnteredHorse{},
	}
	for _, h := range track.Horses() {
		s.Horses[h] = 0
	}
	return s
}

// Clone deep-copies s so a transition can mutate the copy freely.
func (s State) Clone() State {
	c := s
	c.Order = slices.Clone(s.Order)
	c.Players = clonePlayers(s.Players)
	c.Kicked = clonePlayers(s.Kicked)
	c.Horses = maps.Clone(s.Horses)
	c.Scratched = slices.Clone(s.Scratched)
	c.Entered = maps.Clone(s.Entered)
	if s.Winner != nil {
		w := *s.Winner
		c.Winner = &w
	}
	if s.LastRoll != nil {
		r := *s.LastRoll
		c.LastRoll = &r
	}
	if c.Order == nil {
		c.Order = []string{}
	}
	if c.Horses == nil {
		c.Horses = map[int]int{}
	}
	if c.Scratched == nil {
		c.Scratched = []Scratch{}
	}
	if c.Entered == nil {
		c.Entered = map[int]EnteredHorse{}
	}
	return c
}

// Normalize fills the defaults for anything an older or partial record left
// out, so a loaded snapshot can be played.
func (s *State) Normalize() {
	if s.Phase == "" {
		s.Phase = PhaseWaiting
	}
	if s.MaxPlayers == 0 {
		s.MaxPlayers = DefaultMaxPlayers
	}
	if s.Players == nil {
		s.Players = map[string]Player{}
	}
	if s.Kicked == nil {
		s.Kicked = map[string]Player{}
	}
	for id, p := range s.Players {
		if p.ID == "" {
			p.ID = id
		}
		if p.Cards == nil {
			p.Cards = []int{}
		}
		s.Players[id] = p
	}
	if s.Horses == nil {
		s.Horses = map[int]int{}
	}
	for _, h := range track.Horses() {
		if _, ok := s.Horses[h]; !ok {
			s.Horses[h] = 0
		}
	}
	if s.Scratched == nil {
		s.Scratched = []Scratch{}
	}
	if s.ScratchPhase < len(s.Scratched) {
		s.ScratchPhase = len(s.Scratched)
	}
	if s.Entered == nil {
		s.Entered = map[int]EnteredHorse{}
	}
	s.rebuildOrder()
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// FinishOrder ranks the horses still running: the winner first, then by how
// much of their lane they have covered, ties to the lower number.
func FinishOrder(s State) []int {
	var order []int
	for _, h := range track.Horses() {
		if !s.IsScratched(h) {
			order = append(order, h)
		}
	}
	winner := 0
	if s.Winner != nil {
		winner = *s.Winner
	}
	slices.SortStableFunc(order, func(a, b int) int {
		if a == winner {
			return -1
		}
		if b == winner {
			return 1
		}
		if c := cmp.Compare(track.Progress(b, s.Horses[b]), track.Progress(a, s.Horses[a])); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return order
}
