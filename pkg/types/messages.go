package types

// Client -> Server (over /ws?session=<id>&player=<id>)
// Join:
//   name: string
//
// Ready: {}
//
// RollScratch: {}
//
// RollRace: {}
//
// EnterHorse:
//   horse: number (2-12)
//   horse_name: string
//
// PlaceBet:
//   horse: number
//   pool: "win" | "place" | "show"
//   amount: string (decimal)
//
// CancelBet:
//   ticket_id: string
//
// Server -> Client
// StateSnapshot: Snapshot
// ScratchResult: engine.ScratchResult
// RaceResult: engine.RaceResult plus bet_payouts
// BetPlaced: Ticket
// Error:
//   code: string
//   error: string
const (
	MsgJoin        = "Join"
	MsgReady       = "Ready"
	MsgRollScratch = "RollScratch"
	MsgRollRace    = "RollRace"
	MsgEnterHorse  = "EnterHorse"
	MsgPlaceBet    = "PlaceBet"
	MsgCancelBet   = "CancelBet"

	MsgStateSnapshot = "StateSnapshot"
	MsgScratchResult = "ScratchResult"
	MsgRaceResult    = "RaceResult"
	MsgBetPlaced     = "BetPlaced"
	MsgError         = "Error"
)
