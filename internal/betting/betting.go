// Package betting keeps the per-session bet slip and win/place/show pools
// that sit on top of a board game race.
package betting

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/shopspring/decimal"

	"github.com/DoyleJ11/scratch-race-backend/internal/parimutuel"
)

var ErrBetTooSmall = errors.New("bet below minimum")
var ErrInvalidPool = errors.New("unknown pool type")
var ErrTicketNotFound = errors.New("ticket not found")
var ErrHorseUnavailable = errors.New("horse is not running")
var ErrBettingClosed = errors.New("betting is closed")
var ErrInsufficientFunds = errors.New("insufficient funds")
var ErrInvalidBonus = errors.New("partnership bonus must be 1.0, 1.25 or 1.5")

var DefaultMinBet = decimal.NewFromInt(25)

// Allowed partnership bonus tiers.
var BonusTiers = []decimal.Decimal{
	decimal.NewFromInt(1),
	decimal.RequireFromString("1.25"),
	decimal.RequireFromString("1.5"),
}

// Wallet holds bettors' money outside any single session.
type Wallet interface {
	Balance(ctx context.Context, playerID string) (decimal.Decimal, error)
	Debit(ctx context.Context, playerID string, amount decimal.Decimal) (decimal.Decimal, error)
	Credit(ctx context.Context, playerID string, amount decimal.Decimal) (decimal.Decimal, error)
}

type Ticket struct {
	ID        string              `json:"id"`
	PlayerID  string              `json:"player_id"`
	Horse     int                 `json:"horse"`
	Pool      parimutuel.PoolType `json:"bet_type"`
	Amount    decimal.Decimal     `json:"amount"`
	Effective decimal.Decimal     `json:"effective_amount"`
	OwnHorse  bool                `json:"own_horse"`
	PlacedAt  time.Time           `json:"placed_at"`
}

// Winning is one settled ticket.
type Winning struct {
	Ticket     Ticket          `json:"ticket"`
	Multiplier decimal.Decimal `json:"multiplier"`
	Payout     decimal.Decimal `json:"payout"`
}

type Book struct {
	Pools            parimutuel.Pools[int] `json:"pools"`
	Tickets          []Ticket              `json:"tickets"`
	PartnershipBonus decimal.Decimal       `json:"partnership_bonus"`
}

type BetRequest struct {
	PlayerID string
	Horse    int
	Pool     parimutuel.PoolType
	Amount   decimal.Decimal
	OwnHorse bool
}

func NewBook() Book {
	return Book{
		Pools:            parimutuel.NewPools[int](),
		Tickets:          []Ticket{},
		PartnershipBonus: decimal.NewFromInt(1),
	}
}

// Normalize fills in anything a partially written record left out.
func (b *Book) Normalize() {
	if b.Pools.Win == nil {
		b.Pools.Win = parimutuel.Pool[int]{}
	}
	if b.Pools.Place == nil {
		b.Pools.Place = parimutuel.Pool[int]{}
	}
	if b.Pools.Show == nil {
		b.Pools.Show = parimutuel.Pool[int]{}
	}
	if b.Tickets == nil {
		b.Tickets = []Ticket{}
	}
	if b.PartnershipBonus.IsZero() {
		b.PartnershipBonus = decimal.NewFromInt(1)
	}
}

func (b Book) Clone() Book {
	c := Book{
		Pools:            parimutuel.NewPools[int](),
		Tickets:          slices.Clone(b.Tickets),
		PartnershipBonus: b.PartnershipBonus,
	}
	for _, t := range parimutuel.PoolTypes {
		dst := c.Pools.Get(t)
		for h, amt := range b.Pools.Get(t) {
			dst[h] = amt
		}
	}
	if c.Tickets == nil {
		c.Tickets = []Ticket{}
	}
	return c
}

// MinimumFor is the smallest stake accepted; owners bet at half the minimum.
func MinimumFor(minBet decimal.Decimal, ownHorse bool) decimal.Decimal {
	if ownHorse {
		return minBet.Div(decimal.NewFromInt(2))
	}
	return minBet
}

// Place records a ticket and adds its effective stake to the pool. The caller
// is responsible for taking the money and for checking the horse is running.
func (b *Book) Place(req BetRequest, minBet decimal.Decimal, now time.Time) (Ticket, error) {
	if !req.Pool.Valid() {
		return Ticket{}, fmt.Errorf("%w: %q", ErrInvalidPool, req.Pool)
	}
	if minimum := MinimumFor(minBet, req.OwnHorse); req.Amount.LessThan(minimum) {
		return Ticket{}, fmt.Errorf("%w: minimum is %s", ErrBetTooSmall, minimum)
	}

	t := Ticket{
		ID:        ksuid.New().String(),
		PlayerID:  req.PlayerID,
		Horse:     req.Horse,
		Pool:      req.Pool,
		Amount:    req.Amount,
		Effective: parimutuel.EffectiveStake(req.Amount, req.OwnHorse, b.PartnershipBonus),
		OwnHorse:  req.OwnHorse,
		PlacedAt:  now,
	}
	pool := b.Pools.Get(req.Pool)
	pool[req.Horse] = pool[req.Horse].Add(t.Effective)
	b.Tickets = append(b.Tickets, t)
	return t, nil
}

// Cancel removes a player's ticket and takes its effective stake back out of
// the pool. The refund owed is the ticket's Amount.
func (b *Book) Cancel(ticketID, playerID string) (Ticket, error) {
	idx := slices.IndexFunc(b.Tickets, func(t Ticket) bool {
		return t.ID == ticketID && t.PlayerID == playerID
	})
	if idx < 0 {
		return Ticket{}, ErrTicketNotFound
	}
	t := b.Tickets[idx]
	b.Tickets = slices.Delete(b.Tickets, idx, idx+1)

	pool := b.Pools.Get(t.Pool)
	left := pool[t.Horse].Sub(t.Effective)
	if left.IsPositive() {
		pool[t.Horse] = left
	} else {
		delete(pool, t.Horse)
	}
	return t, nil
}

// TicketsFor lists a player's open tickets in placement order.
func (b Book) TicketsFor(playerID string) []Ticket {
	var out []Ticket
	for _, t := range b.Tickets {
		if t.PlayerID == playerID {
			out = append(out, t)
		}
	}
	return out
}

func (b *Book) SetPartnershipBonus(bonus decimal.Decimal) error {
	for _, tier := range BonusTiers {
		if tier.Equal(bonus) {
			b.PartnershipBonus = tier
			return nil
		}
	}
	return ErrInvalidBonus
}

// Odds quotes every horse in one pool.
func (b Book) Odds(t parimutuel.PoolType) map[int]decimal.Decimal {
	return parimutuel.Odds(b.Pools.Get(t))
}

// Settle pays every ticket whose horse finished in the money for its pool,
// then clears the slip and the pools.
func (b *Book) Settle(finishOrder []int) []Winning {
	payouts := parimutuel.WinPlaceShowPayouts(finishOrder, b.Pools)
	var wins []Winning
	for _, t := range b.Tickets {
		m, ok := payouts[t.Pool][t.Horse]
		if !ok {
			continue
		}
		wins = append(wins, Winning{
			Ticket:     t,
			Multiplier: m,
			Payout:     t.Amount.Mul(m).Round(2),
		})
	}
	b.Pools = parimutuel.NewPools[int]()
	b.Tickets = []Ticket{}
	return wins
}
