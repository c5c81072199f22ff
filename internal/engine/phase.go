package engine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
)

const (
	evtDeal   = "deal"
	evtRace   = "race"
	evtFinish = "finish"
)

var phaseEvents = fsm.Events{
	{Name: evtDeal, Src: []string{string(PhaseWaiting)}, Dst: string(PhaseScratching)},
	{Name: evtRace, Src: []string{string(PhaseScratching)}, Dst: string(PhaseRacing)},
	{Name: evtFinish, Src: []string{string(PhaseRacing)}, Dst: string(PhaseFinished)},
}

// transition moves a session phase forward along
// waiting -> scratching -> racing -> finished. Anything else is refused.
func transition(current Phase, event string) (Phase, error) {
	m := fsm.NewFSM(string(current), phaseEvents, fsm.Callbacks{})
	if err := m.Event(context.Background(), event); err != nil {
		return current, fmt.Errorf("%w: %s from %s", ErrInvalidPhase, event, current)
	}
	return Phase(m.Current()), nil
}

func (s *State) setPhase(event string) (Event, error) {
	next, err := transition(s.Phase, event)
	if err != nil {
		return Event{}, err
	}
	s.Phase = next
	return Event{Type: EvtPhaseChanged, Phase: next}, nil
}
