package engine

import (
	"slices"
	"time"
)

type Phase string

const (
	PhaseWaiting    Phase = "waiting"
	PhaseScratching Phase = "scratching"
	PhaseRacing     Phase = "racing"
	PhaseFinished   Phase = "finished"
)

const (
	ScratchRounds        = 4
	MinPlayers           = 2
	MaxPlayersLimit      = 8
	DefaultMaxPlayers    = 4
	DefaultStartingChips = 50
	EnteredHorseBonus    = 2
)

type Player struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Cards    []int     `json:"cards"`
	Chips    int64     `json:"chips"`
	Ready    bool      `json:"is_ready"`
	JoinedAt time.Time `json:"joined_at"`
}

// Scratch records a horse taken out of the race and the slot it was
// scratched in. Slot doubles as the per-card penalty.
type Scratch struct {
	Horse int `json:"horse"`
	Slot  int `json:"slot"`
}

type Roll struct {
	Die1 int `json:"die1"`
	Die2 int `json:"die2"`
	Sum  int `json:"sum"`
}

// EnteredHorse is a player's own horse running under a board number.
type EnteredHorse struct {
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`
}

type State struct {
	ID            string               `json:"game_id"`
	CreatorID     string               `json:"creator_id"`
	MaxPlayers    int                  `json:"max_players"`
	StartingChips int64                `json:"starting_chips"`
	Phase         Phase                `json:"status"`
	Order         []string             `json:"player_order"`
	Players       map[string]Player    `json:"players"`
	Kicked        map[string]Player    `json:"kicked_players"`
	Turn          int                  `json:"current_player_index"`
	ScratchPhase  int                  `json:"scratch_phase"`
	Horses        map[int]int          `json:"horses"`
	Scratched     []Scratch            `json:"scratched_horses"`
	Pot           int64                `json:"pot"`
	Winner        *int                 `json:"winner,omitempty"`
	LastRoll      *Roll                `json:"last_roll,omitempty"`
	Entered       map[int]EnteredHorse `json:"entered_horses"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"last_updated"`
}

func (s State) IsParticipant(playerID string) bool {
	_, ok := s.Players[playerID]
	return ok
}

// CurrentPlayer is the id whose turn it is, or "" if nobody is seated.
func (s State) CurrentPlayer() string {
	if s.Turn < 0 || s.Turn >= len(s.Order) {
		return ""
	}
	return s.Order[s.Turn]
}

// SlotOf returns the scratch slot of horse, or 0 if it is still running.
func (s State) SlotOf(horse int) int {
	for _, sc := range s.Scratched {
		if sc.Horse == horse {
			return sc.Slot
		}
	}
	return 0
}

func (s State) IsScratched(horse int) bool {
	return s.SlotOf(horse) > 0
}

// OwnerOf reports the player who entered horse, if any.
func (s State) OwnerOf(horse int) (string, bool) {
	e, ok := s.Entered[horse]
	if !ok {
		return "", false
	}
	return e.OwnerID, true
}

// TotalChips sums every seated player's balance.
func (s State) TotalChips() int64 {
	var total int64
	for _, p := range s.Players {
		total += p.Chips
	}
	return total
}

func clonePlayers(in map[string]Player) map[string]Player {
	out := make(map[string]Player, len(in))
	for id, p := range in {
		p.Cards = slices.Clone(p.Cards)
		if p.Cards == nil {
			p.Cards = []int{}
		}
		out[id] = p
	}
	return out
}
