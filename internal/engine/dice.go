package engine

import (
	"math/rand"
	"sync"

	"github.com/DoyleJ11/scratch-race-backend/internal/deck"
)

// Dice is the engine's only source of chance.
type Dice interface {
	Roll() (int, int)
	Shuffle(cards []int)
}

type RandDice struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandDice(seed int64) *RandDice {
	return &RandDice{rng: rand.New(rand.NewSource(seed))}
}

func (d *RandDice) Roll() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.Intn(6) + 1, d.rng.Intn(6) + 1
}

func (d *RandDice) Shuffle(cards []int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	deck.Shuffle(cards, d.rng)
}

// ScriptedDice replays fixed rolls in order and never shuffles. Once the
// script runs out it keeps returning the last roll.
type ScriptedDice struct {
	mu    sync.Mutex
	rolls [][2]int
	next  int
}

func NewScriptedDice(rolls ...[2]int) *ScriptedDice {
	return &ScriptedDice{rolls: rolls}
}

// Push appends more rolls to the script.
func (d *ScriptedDice) Push(rolls ...[2]int) {
	d.mu.Lock()
	d.rolls = append(d.rolls, rolls...)
	d.mu.Unlock()
}

func (d *ScriptedDice) Roll() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.rolls) == 0 {
		return 1, 1
	}
	i := min(d.next, len(d.rolls)-1)
	d.next++
	return d.rolls[i][0], d.rolls[i][1]
}

func (d *ScriptedDice) Shuffle([]int) {}
