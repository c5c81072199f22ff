package engine

import (
	"errors"
	"fmt"

	"github.com/DoyleJ11/scratch-race-backend/internal/deck"
	"github.com/DoyleJ11/scratch-race-backend/internal/track"
)

var ErrNotAParticipant = errors.New("player is not in this game")
var ErrNotYourTurn = errors.New("not your turn")
var ErrInvalidPhase = errors.New("action not allowed in current phase")
var ErrGameFull = errors.New("game is full")
var ErrAlreadyStarted = errors.New("game already started")
var ErrNotAuthorized = errors.New("only the creator can do that")
var ErrUnsupportedCommand = errors.New("unsupported command")
var ErrInvalidHorse = errors.New("invalid horse")

type CommandType string

const (
	CmdJoin         CommandType = "Join"
	CmdReady        CommandType = "Ready"
	CmdRollScratch  CommandType = "RollScratch"
	CmdRollRace     CommandType = "RollRace"
	CmdRemovePlayer CommandType = "RemovePlayer"
	CmdEnterHorse   CommandType = "EnterHorse"
)

/*
	CmdJoin         -> EvtPlayerJoined | EvtPlayerRejoined
	CmdReady        -> EvtPlayerReady [-> EvtPhaseChanged -> EvtCardsDealt...]
	CmdRollScratch  -> EvtDiceRolled -> EvtScratchCollision
	                -> EvtDiceRolled -> EvtHorseScratched -> EvtChipsCharged... [-> EvtPhaseChanged] -> EvtTurnAdvanced
	CmdRollRace     -> EvtDiceRolled -> EvtPenaltyPaid -> EvtTurnAdvanced
	                -> EvtDiceRolled -> EvtHorseMoved [-> EvtRaceWon -> EvtPhaseChanged -> EvtForfeit... -> EvtPayout...] -> EvtTurnAdvanced
	CmdRemovePlayer -> EvtPlayerRemoved
	CmdEnterHorse   -> EvtHorseEntered
*/

type Command struct {
	Type      CommandType
	PlayerID  string
	Name      string
	TargetID  string
	Horse     int
	HorseName string
}

type EventType string

const (
	EvtPlayerJoined     EventType = "PlayerJoined"
	EvtPlayerRejoined   EventType = "PlayerRejoined"
	EvtPlayerReady      EventType = "PlayerReady"
	EvtPlayerRemoved    EventType = "PlayerRemoved"
	EvtHorseEntered     EventType = "HorseEntered"
	EvtCardsDealt       EventType = "CardsDealt"
	EvtPhaseChanged     EventType = "PhaseChanged"
	EvtDiceRolled       EventType = "DiceRolled"
	EvtScratchCollision EventType = "ScratchCollision"
	EvtHorseScratched   EventType = "HorseScratched"
	EvtChipsCharged     EventType = "ChipsCharged"
	EvtPenaltyPaid      EventType = "PenaltyPaid"
	EvtHorseMoved       EventType = "HorseMoved"
	EvtRaceWon          EventType = "RaceWon"
	EvtForfeit          EventType = "Forfeit"
	EvtPayout           EventType = "Payout"
	EvtTurnAdvanced     EventType = "TurnAdvanced"
)

type Event struct {
	Type     EventType `json:"type"`
	PlayerID string    `json:"player_id,omitempty"`
	Horse    int       `json:"horse,omitempty"`
	Slot     int       `json:"slot,omitempty"`
	Position int       `json:"position,omitempty"`
	Count    int       `json:"count,omitempty"`
	Amount   int64     `json:"amount,omitempty"`
	Die1     int       `json:"die1,omitempty"`
	Die2     int       `json:"die2,omitempty"`
	Phase    Phase     `json:"phase,omitempty"`
}

// Apply runs one command against s. It never touches s: on success it returns
// the events and a new state, on failure the original state and the error.
func Apply(s State, cmd Command, dice Dice) ([]Event, State, error) {
	switch cmd.Type {
	case CmdJoin:
		return join(s, cmd)
	case CmdReady:
		return ready(s, cmd, dice)
	case CmdRollScratch:
		return rollScratch(s, cmd, dice)
	case CmdRollRace:
		return rollRace(s, cmd, dice)
	case CmdRemovePlayer:
		return removePlayer(s, cmd)
	case CmdEnterHorse:
		return enterHorse(s, cmd)
	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func join(s State, cmd Command) ([]Event, State, error) {
	if s.IsParticipant(cmd.PlayerID) {
		return []Event{{Type: EvtPlayerRejoined, PlayerID: cmd.PlayerID}}, s, nil
	}
	if len(s.Order) >= s.MaxPlayers {
		return nil, s, ErrGameFull
	}
	if s.Phase != PhaseWaiting {
		return nil, s, ErrAlreadyStarted
	}

	ns := s.Clone()
	ns.Players[cmd.PlayerID] = Player{
		ID:       cmd.PlayerID,
		Name:     cmd.Name,
		Cards:    []int{},
		Chips:    ns.StartingChips,
		JoinedAt: now(),
	}
	ns.Order = append(ns.Order, cmd.PlayerID)
	delete(ns.Kicked, cmd.PlayerID)
	return []Event{{Type: EvtPlayerJoined, PlayerID: cmd.PlayerID}}, ns, nil
}

func ready(s State, cmd Command, dice Dice) ([]Event, State, error) {
	if s.Phase != PhaseWaiting {
		return nil, s, ErrInvalidPhase
	}
	if !s.IsParticipant(cmd.PlayerID) {
		return nil, s, ErrNotAParticipant
	}

	ns := s.Clone()
	p := ns.Players[cmd.PlayerID]
	p.Ready = true
	ns.Players[cmd.PlayerID] = p
	events := []Event{{Type: EvtPlayerReady, PlayerID: cmd.PlayerID}}

	if !allReady(ns) {
		return events, ns, nil
	}

	evt, err := ns.setPhase(evtDeal)
	if err != nil {
		return nil, s, err
	}
	events = append(events, evt)
	events = append(events, deal(&ns, dice)...)
	return events, ns, nil
}

func allReady(s State) bool {
	if len(s.Order) < MinPlayers {
		return false
	}
	for _, id := range s.Order {
		if !s.Players[id].Ready {
			return false
		}
	}
	return true
}

// deal shuffles a fresh pack and hands it out in join order, then gives the
// owner of every entered horse two extra cards of that number.
func deal(s *State, dice Dice) []Event {
	pack := deck.NewPack()
	dice.Shuffle(pack)
	hands := deck.Deal(pack, len(s.Order))

	events := make([]Event, 0, len(s.Order))
	for i, id := range s.Order {
		p := s.Players[id]
		p.Cards = hands[i]
		s.Players[id] = p
	}
	for horse, e := range s.Entered {
		p, ok := s.Players[e.OwnerID]
		if !ok {
			continue
		}
		for range EnteredHorseBonus {
			p.Cards = append(p.Cards, horse)
		}
		s.Players[e.OwnerID] = p
	}
	for _, id := range s.Order {
		events = append(events, Event{Type: EvtCardsDealt, PlayerID: id, Count: len(s.Players[id].Cards)})
	}
	s.Turn = 0
	return events
}

// checkTurn validates phase, participation and turn ownership, in that order.
func checkTurn(s State, phase Phase, playerID string) error {
	if s.Phase != phase {
		return fmt.Errorf("%w: %s", ErrInvalidPhase, s.Phase)
	}
	if !s.IsParticipant(playerID) {
		return ErrNotAParticipant
	}
	if s.CurrentPlayer() != playerID {
		return ErrNotYourTurn
	}
	return nil
}

func roll(s *State, playerID string, dice Dice) (int, Event) {
	d1, d2 := dice.Roll()
	sum := d1 + d2
	s.LastRoll = &Roll{Die1: d1, Die2: d2, Sum: sum}
	return sum, Event{Type: EvtDiceRolled, PlayerID: playerID, Die1: d1, Die2: d2, Horse: sum}
}

func rollScratch(s State, cmd Command, dice Dice) ([]Event, State, error) {
	if err := checkTurn(s, PhaseScratching, cmd.PlayerID); err != nil {
		return nil, s, err
	}

	ns := s.Clone()
	sum, rolled := roll(&ns, cmd.PlayerID, dice)
	events := []Event{rolled}

	// Already scratched: same player rolls again.
	if ns.IsScratched(sum) {
		events = append(events, Event{Type: EvtScratchCollision, PlayerID: cmd.PlayerID, Horse: sum, Slot: ns.SlotOf(sum)})
		return events, ns, nil
	}

	slot := ns.ScratchPhase + 1
	ns.Scratched = append(ns.Scratched, Scratch{Horse: sum, Slot: slot})
	events = append(events, Event{Type: EvtHorseScratched, PlayerID: cmd.PlayerID, Horse: sum, Slot: slot})

	for _, id := range ns.Order {
		p := ns.Players[id]
		kept, n := deck.Remove(p.Cards, sum)
		p.Cards = kept
		if n > 0 {
			charge := int64(n * slot)
			p.Chips -= charge
			ns.Pot += charge
			events = append(events, Event{Type: EvtChipsCharged, PlayerID: id, Horse: sum, Slot: slot, Count: n, Amount: charge})
		}
		ns.Players[id] = p
	}

	ns.ScratchPhase++
	if ns.ScratchPhase == ScratchRounds {
		evt, err := ns.setPhase(evtRace)
		if err != nil {
			return nil, s, err
		}
		events = append(events, evt)
		ns.Turn = 0
	} else {
		ns.advanceTurn()
	}
	events = append(events, Event{Type: EvtTurnAdvanced, PlayerID: ns.CurrentPlayer()})
	return events, ns, nil
}

func rollRace(s State, cmd Command, dice Dice) ([]Event, State, error) {
	if err := checkTurn(s, PhaseRacing, cmd.PlayerID); err != nil {
		return nil, s, err
	}

	ns := s.Clone()
	sum, rolled := roll(&ns, cmd.PlayerID, dice)
	events := []Event{rolled}

	if slot := ns.SlotOf(sum); slot > 0 {
		p := ns.Players[cmd.PlayerID]
		p.Chips -= int64(slot)
		ns.Players[cmd.PlayerID] = p
		ns.Pot += int64(slot)
		events = append(events, Event{Type: EvtPenaltyPaid, PlayerID: cmd.PlayerID, Horse: sum, Slot: slot, Amount: int64(slot)})
	} else {
		ns.Horses[sum]++
		pos := ns.Horses[sum]
		events = append(events, Event{Type: EvtHorseMoved, PlayerID: cmd.PlayerID, Horse: sum, Position: pos})

		if pos >= track.Length(sum) {
			evt, err := ns.setPhase(evtFinish)
			if err != nil {
				return nil, s, err
			}
			winner := sum
			ns.Winner = &winner
			events = append(events, Event{Type: EvtRaceWon, Horse: sum, Position: pos}, evt)
			events = append(events, payout(&ns, sum)...)
		}
	}

	// The turn passes even on the finishing roll.
	ns.advanceTurn()
	events = append(events, Event{Type: EvtTurnAdvanced, PlayerID: ns.CurrentPlayer()})
	return events, ns, nil
}

func removePlayer(s State, cmd Command) ([]Event, State, error) {
	if s.Phase == PhaseFinished {
		return nil, s, ErrInvalidPhase
	}
	if cmd.PlayerID != s.CreatorID || cmd.TargetID == s.CreatorID {
		return nil, s, ErrNotAuthorized
	}
	if !s.IsParticipant(cmd.TargetID) {
		return nil, s, ErrNotAParticipant
	}

	ns := s.Clone()
	ns.Kicked[cmd.TargetID] = ns.Players[cmd.TargetID]
	delete(ns.Players, cmd.TargetID)
	ns.removeFromOrder(cmd.TargetID)
	return []Event{{Type: EvtPlayerRemoved, PlayerID: cmd.TargetID}}, ns, nil
}

// enterHorse lets a seated player run their own horse under a board number
// before the deal. A player has at most one entry; entering again moves it.
func enterHorse(s State, cmd Command) ([]Event, State, error) {
	if s.Phase != PhaseWaiting {
		return nil, s, ErrInvalidPhase
	}
	if !s.IsParticipant(cmd.PlayerID) {
		return nil, s, ErrNotAParticipant
	}
	if !track.Valid(cmd.Horse) {
		return nil, s, fmt.Errorf("%w: %d", ErrInvalidHorse, cmd.Horse)
	}
	if owner, ok := s.OwnerOf(cmd.Horse); ok && owner != cmd.PlayerID {
		return nil, s, fmt.Errorf("%w: %d already entered", ErrInvalidHorse, cmd.Horse)
	}

	ns := s.Clone()
	for h, e := range ns.Entered {
		if e.OwnerID == cmd.PlayerID {
			delete(ns.Entered, h)
		}
	}
	ns.Entered[cmd.Horse] = EnteredHorse{OwnerID: cmd.PlayerID, Name: cmd.HorseName}
	return []Event{{Type: EvtHorseEntered, PlayerID: cmd.PlayerID, Horse: cmd.Horse}}, ns, nil
}
