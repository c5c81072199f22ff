package deck

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPackHasFourOfEachValue(t *testing.T) {
	pack := NewPack()
	require.Len(t, pack, 44)
	for v := 2; v <= 12; v++ {
		assert.Equal(t, 4, Count(pack, v), "value %d", v)
	}
}

func TestDealIsAPartitionOfThePack(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for n := 2; n <= 8; n++ {
		pack := NewPack()
		Shuffle(pack, rng)
		hands := Deal(pack, n)
		require.Len(t, hands, n)

		var all []int
		for i, h := range hands {
			want := 44 / n
			if i < 44%n {
				want++
			}
			assert.Len(t, h, want, "players=%d hand=%d", n, i)
			all = append(all, h...)
		}

		sorted := NewPack()
		slices.Sort(sorted)
		slices.Sort(all)
		assert.Equal(t, sorted, all, "players=%d", n)
	}
}

func TestDealNoPlayers(t *testing.T) {
	assert.Nil(t, Deal(NewPack(), 0))
}

func TestRemove(t *testing.T) {
	hand := []int{7, 2, 7, 9, 7}
	kept, n := Remove(hand, 7)
	assert.Equal(t, 3, n)
	assert.Equal(t, []int{2, 9}, kept)
	assert.Equal(t, []int{7, 2, 7, 9, 7}, hand, "input hand is left alone")

	kept, n = Remove(kept, 11)
	assert.Zero(t, n)
	assert.Equal(t, []int{2, 9}, kept)
}
