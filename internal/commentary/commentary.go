// Package commentary produces race-call color text. Nothing in the game
// depends on it; callers drop errors and empty lines.
package commentary

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/DoyleJ11/scratch-race-backend/internal/engine"
)

type Commentator interface {
	Comment(ctx context.Context, state engine.State, events []engine.Event) (string, error)
}

// Nop says nothing.
type Nop struct{}

func (Nop) Comment(context.Context, engine.State, []engine.Event) (string, error) {
	return "", nil
}

var (
	scratchLines = []string{
		"Number %d is scratched! Slot %d, and that one stings.",
		"Off the card goes %d. Slot %d penalties are due.",
		"%d won't be running today. Scratch number %d is in.",
	}
	collisionLines = []string{
		"%d is already out. Roll again!",
		"We've seen %d scratched before. Dice back in the cup.",
	}
	moveLines = []string{
		"%d edges forward to %d.",
		"A step for %d, now at %d.",
		"%d picks up the pace, sitting at %d.",
	}
	penaltyLines = []string{
		"That's scratched horse %d. Pay up, %d chips to the pot.",
		"Ouch, %d again. %d into the pot.",
	}
	winLines = []string{
		"And it's %d by a nose! What a finish!",
		"%d crosses the line first!",
	}
)

// Canned picks stock phrases for the most notable event in a roll.
type Canned struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewCanned(seed int64) *Canned {
	return &Canned{rng: rand.New(rand.NewSource(seed))}
}

func (c *Canned) pick(lines []string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lines[c.rng.Intn(len(lines))]
}

func (c *Canned) Comment(ctx context.Context, _ engine.State, events []engine.Event) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for _, e := range events {
		if e.Type == engine.EvtRaceWon {
			return fmt.Sprintf(c.pick(winLines), e.Horse), nil
		}
	}
	for _, e := range events {
		switch e.Type {
		case engine.EvtHorseScratched:
			return fmt.Sprintf(c.pick(scratchLines), e.Horse, e.Slot), nil
		case engine.EvtScratchCollision:
			return fmt.Sprintf(c.pick(collisionLines), e.Horse), nil
		case engine.EvtPenaltyPaid:
			return fmt.Sprintf(c.pick(penaltyLines), e.Horse, e.Amount), nil
		case engine.EvtHorseMoved:
			return fmt.Sprintf(c.pick(moveLines), e.Horse, e.Position), nil
		}
	}
	return "", nil
}
