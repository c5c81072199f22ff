package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaysSumToOutcomes(t *testing.T) {
	total := 0
	for _, h := range Horses() {
		total += Ways(h)
	}
	assert.Equal(t, Outcomes, total)
}

func TestEveryHorseHasSameExpectedRolls(t *testing.T) {
	want := ExpectedRolls(7)
	for _, h := range Horses() {
		assert.InDelta(t, want, ExpectedRolls(h), 1e-9, "horse %d", h)
	}
	assert.InDelta(t, 72.0, want, 1e-9)
}

func TestLengthAndWaysOutOfRange(t *testing.T) {
	cases := []struct {
		name  string
		horse int
	}{
		{name: "below range", horse: 1},
		{name: "above range", horse: 13},
		{name: "zero", horse: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.False(t, Valid(tc.horse))
			assert.Zero(t, Length(tc.horse))
			assert.Zero(t, Ways(tc.horse))
			assert.Zero(t, ExpectedRolls(tc.horse))
			_, err := BoardOdds(tc.horse)
			assert.ErrorIs(t, err, ErrInvalidHorse)
		})
	}
}

func TestBoardOddsClamped(t *testing.T) {
	for _, h := range Horses() {
		odds, err := BoardOdds(h)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, odds, 7)
		assert.LessOrEqual(t, odds, 15)
	}
	odds, _ := BoardOdds(7)
	assert.Equal(t, 15, odds)
	odds, _ = BoardOdds(2)
	assert.Equal(t, 10, odds)
}

func TestProgress(t *testing.T) {
	assert.InDelta(t, 0.5, Progress(7, 6), 1e-9)
	assert.InDelta(t, 1.0, Progress(2, 5), 1e-9)
	assert.Zero(t, Progress(1, 3))
}
