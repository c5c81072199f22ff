package engine

// Charge is chips a player paid into the pot.
type Charge struct {
	PlayerID string `json:"player_id"`
	Cards    int    `json:"cards,omitempty"`
	Amount   int64  `json:"amount"`
}

type Payout struct {
	PlayerID     string `json:"player_id"`
	WinningCards int    `json:"winning_cards"`
	Amount       int64  `json:"amount"`
}

type ScratchResult struct {
	Die1           int      `json:"die1"`
	Die2           int      `json:"die2"`
	Sum            int      `json:"sum"`
	ScratchedHorse *int     `json:"scratched_horse,omitempty"`
	Slot           int      `json:"slot,omitempty"`
	Charged        []Charge `json:"charged_players"`
	Phase          Phase    `json:"phase"`
	TurnAdvances   bool     `json:"turn_advances"`
	NextPlayer     string   `json:"next_player"`
}

type RaceResult struct {
	Die1         int      `json:"die1"`
	Die2         int      `json:"die2"`
	Sum          int      `json:"sum"`
	MovedHorse   *int     `json:"moved_horse,omitempty"`
	Position     int      `json:"position,omitempty"`
	Penalty      *Charge  `json:"penalty,omitempty"`
	Winner       *int     `json:"winner,omitempty"`
	Payouts      []Payout `json:"payouts,omitempty"`
	Forfeits     []Charge `json:"forfeits,omitempty"`
	Phase        Phase    `json:"phase"`
	TurnAdvances bool     `json:"turn_advances"`
	NextPlayer   string   `json:"next_player"`
}

// SummarizeScratch folds the events of one scratch roll into its result.
func SummarizeScratch(events []Event, s State) ScratchResult {
	r := ScratchResult{Charged: []Charge{}, Phase: s.Phase, NextPlayer: s.CurrentPlayer()}
	for _, e := range events {
		switch e.Type {
		case EvtDiceRolled:
			r.Die1, r.Die2, r.Sum = e.Die1, e.Die2, e.Horse
		case EvtHorseScratched:
			h := e.Horse
			r.ScratchedHorse = &h
			r.Slot = e.Slot
		case EvtChipsCharged:
			r.Charged = append(r.Charged, Charge{PlayerID: e.PlayerID, Cards: e.Count, Amount: e.Amount})
		case EvtTurnAdvanced:
			r.TurnAdvances = true
		}
	}
	return r
}

// SummarizeRace folds the events of one race roll into its result.
func SummarizeRace(events []Event, s State) RaceResult {
	r := RaceResult{Phase: s.Phase, NextPlayer: s.CurrentPlayer()}
	for _, e := range events {
		switch e.Type {
		case EvtDiceRolled:
			r.Die1, r.Die2, r.Sum = e.Die1, e.Die2, e.Horse
		case EvtPenaltyPaid:
			r.Penalty = &Charge{PlayerID: e.PlayerID, Amount: e.Amount}
		case EvtHorseMoved:
			h := e.Horse
			r.MovedHorse = &h
			r.Position = e.Position
		case EvtRaceWon:
			w := e.Horse
			r.Winner = &w
		case EvtForfeit:
			r.Forfeits = append(r.Forfeits, Charge{PlayerID: e.PlayerID, Cards: e.Count, Amount: e.Amount})
		case EvtPayout:
			r.Payouts = append(r.Payouts, Payout{PlayerID: e.PlayerID, WinningCards: e.Count, Amount: e.Amount})
		case EvtTurnAdvanced:
			r.TurnAdvances = true
		}
	}
	return r
}
