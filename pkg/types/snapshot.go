package types

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DoyleJ11/scratch-race-backend/internal/betting"
	"github.com/DoyleJ11/scratch-race-backend/internal/engine"
	"github.com/DoyleJ11/scratch-race-backend/internal/parimutuel"
	"github.com/DoyleJ11/scratch-race-backend/internal/track"
)

// Snapshot is the client view of a session at one version.
type Snapshot struct {
	Version       int64        `json:"version"`
	ID            string       `json:"game_id"`
	CreatorID     string       `json:"creator_id"`
	Phase         engine.Phase `json:"status"`
	MaxPlayers    int          `json:"max_players"`
	StartingChips int64        `json:"starting_chips"`
	CurrentPlayer string       `json:"current_player,omitempty"`
	ScratchPhase  int          `json:"scratch_phase"`
	Pot           int64        `json:"pot"`
	Winner        *int         `json:"winner,omitempty"`
	LastRoll      *engine.Roll `json:"last_roll,omitempty"`
	Players       []Player     `json:"players"`
	Horses        []Horse      `json:"horses"`
	Pools         Pools        `json:"pools"`
	Tickets       []Ticket     `json:"tickets"`
	Bonus         string       `json:"partnership_bonus"`
	Commentary    string       `json:"commentary,omitempty"`
	UpdatedAt     time.Time    `json:"last_updated"`
}

type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Cards []int  `json:"cards"`
	Chips int64  `json:"chips"`
	Ready bool   `json:"is_ready"`
}

type Horse struct {
	Number    int     `json:"number"`
	Position  int     `json:"position"`
	Length    int     `json:"length"`
	Progress  float64 `json:"progress"`
	Scratched bool    `json:"scratched"`
	Slot      int     `json:"slot,omitempty"`
	OwnerID   string  `json:"owner_id,omitempty"`
	Name      string  `json:"name,omitempty"`
}

// Pools maps horse number to the effective stake in each pool.
type Pools struct {
	Win   map[int]string `json:"win"`
	Place map[int]string `json:"place"`
	Show  map[int]string `json:"show"`
}

type Ticket struct {
	ID       string              `json:"id"`
	PlayerID string              `json:"player_id"`
	Horse    int                 `json:"horse"`
	Pool     parimutuel.PoolType `json:"pool"`
	Amount   string              `json:"amount"`
	OwnHorse bool                `json:"own_horse,omitempty"`
}

// NewSnapshot flattens a stored session for clients. Players come in turn
// order and horses by number.
func NewSnapshot(version int64, s engine.State, book betting.Book, commentary string) *Snapshot {
	snap := &Snapshot{
		Version:       version,
		ID:            s.ID,
		CreatorID:     s.CreatorID,
		Phase:         s.Phase,
		MaxPlayers:    s.MaxPlayers,
		StartingChips: s.StartingChips,
		CurrentPlayer: s.CurrentPlayer(),
		ScratchPhase:  s.ScratchPhase,
		Pot:           s.Pot,
		Winner:        s.Winner,
		LastRoll:      s.LastRoll,
		Players:       make([]Player, 0, len(s.Order)),
		Horses:        make([]Horse, 0, len(s.Horses)),
		Pools: Pools{
			Win:   amounts(book.Pools.Win),
			Place: amounts(book.Pools.Place),
			Show:  amounts(book.Pools.Show),
		},
		Tickets:    make([]Ticket, 0, len(book.Tickets)),
		Bonus:      book.PartnershipBonus.String(),
		Commentary: commentary,
		UpdatedAt:  s.UpdatedAt,
	}

	for _, id := range s.Order {
		p := s.Players[id]
		cards := append([]int(nil), p.Cards...)
		sort.Ints(cards)
		snap.Players = append(snap.Players, Player{ID: p.ID, Name: p.Name, Cards: cards, Chips: p.Chips, Ready: p.Ready})
	}

	for _, n := range track.Horses() {
		pos := s.Horses[n]
		h := Horse{
			Number:    n,
			Position:  pos,
			Length:    track.Length(n),
			Progress:  track.Progress(n, pos),
			Scratched: s.IsScratched(n),
			Slot:      s.SlotOf(n),
		}
		if e, ok := s.Entered[n]; ok {
			h.OwnerID, h.Name = e.OwnerID, e.Name
		}
		snap.Horses = append(snap.Horses, h)
	}

	for _, t := range book.Tickets {
		snap.Tickets = append(snap.Tickets, Ticket{
			ID:       t.ID,
			PlayerID: t.PlayerID,
			Horse:    t.Horse,
			Pool:     t.Pool,
			Amount:   t.Amount.StringFixed(2),
			OwnHorse: t.OwnHorse,
		})
	}
	return snap
}

func amounts(p parimutuel.Pool[int]) map[int]string {
	out := make(map[int]string, len(p))
	for h, v := range p {
		out[h] = v.StringFixed(2)
	}
	return out
}

// Odds is the odds board for one session.
type Odds struct {
	Win   map[int]decimal.Decimal `json:"win"`
	Place map[int]decimal.Decimal `json:"place"`
	Show  map[int]decimal.Decimal `json:"show"`
	Board []BoardLine             `json:"board"`
}

// BoardLine is the fixed, probability based line for a horse still running.
type BoardLine struct {
	Horse         int     `json:"horse"`
	Ways          int     `json:"ways"`
	ExpectedRolls float64 `json:"expected_rolls"`
	Odds          int     `json:"odds"`
}
