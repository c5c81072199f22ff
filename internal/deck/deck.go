package deck

import (
	"math/rand"

	"github.com/DoyleJ11/scratch-race-backend/internal/track"
)

const (
	Suits = 4

	// Size of a full pack: four suits of 2..12.
	Size = Suits * (track.MaxHorse - track.MinHorse + 1)
)

// NewPack returns an unshuffled pack, suit by suit.
func NewPack() []int {
	pack := make([]int, 0, Size)
	for s := 0; s < Suits; s++ {
		pack = append(pack, track.Horses()...)
	}
	return pack
}

// Shuffle permutes the pack in place.
func Shuffle(pack []int, rng *rand.Rand) {
	rng.Shuffle(len(pack), func(i, j int) {
		pack[i], pack[j] = pack[j], pack[i]
	})
}

// Deal splits pack into n hands. Every hand gets len(pack)/n cards and the
// first len(pack)%n hands get one more.
func Deal(pack []int, n int) [][]int {
	if n <= 0 {
		return nil
	}
	base, extra := len(pack)/n, len(pack)%n
	hands := make([][]int, n)
	start := 0
	for i := range hands {
		size := base
		if i < extra {
			size++
		}
		hands[i] = append([]int(nil), pack[start:start+size]...)
		start += size
	}
	return hands
}

// Count returns how many cards in hand equal value.
func Count(hand []int, value int) int {
	n := 0
	for _, c := range hand {
		if c == value {
			n++
		}
	}
	return n
}

// Remove drops every card equal to value and reports how many were removed.
func Remove(hand []int, value int) ([]int, int) {
	kept := hand[:0:0]
	removed := 0
	for _, c := range hand {
		if c == value {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	return kept, removed
}
