package track

import "errors"

var ErrInvalidHorse = errors.New("horse must be between 2 and 12")

const (
	MinHorse = 2
	MaxHorse = 12

	// Number of two-dice outcomes.
	Outcomes = 36
)

// Lane length per horse. Each length is twice the number of ways the horse's
// sum can be rolled, so every horse needs the same number of rolls on average.
var lengths = map[int]int{
	2: 2, 3: 4, 4: 6, 5: 8, 6: 10, 7: 12,
	8: 10, 9: 8, 10: 6, 11: 4, 12: 2,
}

func Valid(horse int) bool {
	return horse >= MinHorse && horse <= MaxHorse
}

// Horses returns 2..12 in ascending order.
func Horses() []int {
	hs := make([]int, 0, MaxHorse-MinHorse+1)
	for h := MinHorse; h <= MaxHorse; h++ {
		hs = append(hs, h)
	}
	return hs
}

// Length of the horse's lane, or 0 for an unknown horse.
func Length(horse int) int {
	return lengths[horse]
}

// Ways counts the ordered two-dice outcomes that sum to horse.
func Ways(horse int) int {
	if !Valid(horse) {
		return 0
	}
	if horse <= 7 {
		return horse - 1
	}
	return 13 - horse
}

// ExpectedRolls is the mean number of rolls for the horse to cover its lane.
func ExpectedRolls(horse int) float64 {
	w := Ways(horse)
	if w == 0 {
		return 0
	}
	return float64(Length(horse)*Outcomes) / float64(w)
}

// Progress is the fraction of the lane covered, capped at 1.
func Progress(horse, position int) float64 {
	l := Length(horse)
	if l == 0 {
		return 0
	}
	if position >= l {
		return 1
	}
	return float64(position) / float64(l)
}

// BoardOdds is the fixed "N to 1" figure printed on the board for a horse.
// It is informational only and plays no part in payouts.
func BoardOdds(horse int) (int, error) {
	if !Valid(horse) {
		return 0, ErrInvalidHorse
	}
	odds := 9 + Length(horse)/2
	return min(max(odds, 7), 15), nil
}
