// Package parimutuel computes odds and win/place/show multipliers from pools
// of stakes. Horses are any comparable key so the same code serves numbered
// board horses and named ones.
package parimutuel

import "github.com/shopspring/decimal"

// DefaultOdds is quoted for a horse that has no money on it.
var DefaultOdds = decimal.NewFromInt(10)

type Pool[K comparable] map[K]decimal.Decimal

type PoolType string

const (
	Win   PoolType = "win"
	Place PoolType = "place"
	Show  PoolType = "show"
)

func (p PoolType) Valid() bool {
	switch p {
	case Win, Place, Show:
		return true
	}
	return false
}

// Places is how many finishers a pool pays out on.
func (p PoolType) Places() int {
	switch p {
	case Win:
		return 1
	case Place:
		return 2
	case Show:
		return 3
	}
	return 0
}

var PoolTypes = []PoolType{Win, Place, Show}

// Pools holds the three independent pools of a race.
type Pools[K comparable] struct {
	Win   Pool[K] `json:"win"`
	Place Pool[K] `json:"place"`
	Show  Pool[K] `json:"show"`
}

func NewPools[K comparable]() Pools[K] {
	return Pools[K]{Win: Pool[K]{}, Place: Pool[K]{}, Show: Pool[K]{}}
}

func (p Pools[K]) Get(t PoolType) Pool[K] {
	switch t {
	case Win:
		return p.Win
	case Place:
		return p.Place
	case Show:
		return p.Show
	}
	return nil
}

// Payouts maps pool type to per-horse multiplier. Horses absent from a pool's
// map did not pay in that pool.
type Payouts[K comparable] map[PoolType]map[K]decimal.Decimal

func (p Pool[K]) Total() decimal.Decimal {
	total := decimal.Zero
	for _, amt := range p {
		total = total.Add(amt)
	}
	return total
}

// Odds quotes total/amount for every horse in the pool, rounded half-to-even
// to two places. Horses with no money get DefaultOdds.
func Odds[K comparable](pool Pool[K]) map[K]decimal.Decimal {
	total := pool.Total()
	odds := make(map[K]decimal.Decimal, len(pool))
	for horse, amt := range pool {
		if amt.IsZero() {
			odds[horse] = DefaultOdds
			continue
		}
		odds[horse] = total.Div(amt).RoundBank(2)
	}
	return odds
}

// OddsFor quotes a single horse, including one the pool has never seen.
func OddsFor[K comparable](pool Pool[K], horse K) decimal.Decimal {
	amt, ok := pool[horse]
	if !ok || amt.IsZero() {
		return DefaultOdds
	}
	return pool.Total().Div(amt).RoundBank(2)
}

// WinPlaceShowPayouts settles each pool against the finishing order. A pool
// pays on its first one, two or three distinct finishers; every winning horse
// that appears in the pool gets the same multiplier, total / money on
// winners. A pool where nobody backed a winner pays nothing.
func WinPlaceShowPayouts[K comparable](finishOrder []K, pools Pools[K]) Payouts[K] {
	out := Payouts[K]{}
	for _, t := range PoolTypes {
		out[t] = settle(pools.Get(t), topDistinct(finishOrder, t.Places()))
	}
	return out
}

func settle[K comparable](pool Pool[K], winners []K) map[K]decimal.Decimal {
	res := map[K]decimal.Decimal{}
	if len(pool) == 0 || len(winners) == 0 {
		return res
	}
	backed := decimal.Zero
	for _, w := range winners {
		if amt, ok := pool[w]; ok {
			backed = backed.Add(amt)
		}
	}
	if !backed.IsPositive() {
		return res
	}
	multiplier := pool.Total().Div(backed)
	for _, w := range winners {
		if _, ok := pool[w]; ok {
			res[w] = multiplier
		}
	}
	return res
}

func topDistinct[K comparable](order []K, n int) []K {
	seen := make(map[K]bool, n)
	out := make([]K, 0, n)
	for _, k := range order {
		if len(out) == n {
			break
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

var ownHorseBoost = decimal.NewFromFloat(1.5)

// EffectiveStake is what a bet contributes to its pool: the amount, boosted
// by half again when the bettor owns the horse, times the partnership bonus.
func EffectiveStake(amount decimal.Decimal, ownHorse bool, partnershipBonus decimal.Decimal) decimal.Decimal {
	stake := amount
	if ownHorse {
		stake = stake.Mul(ownHorseBoost)
	}
	return stake.Mul(partnershipBonus)
}
