package betting

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/scratch-race-backend/internal/parimutuel"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func place(t *testing.T, b *Book, player string, horse int, pool parimutuel.PoolType, amount string, own bool) Ticket {
	t.Helper()
	tk, err := b.Place(BetRequest{PlayerID: player, Horse: horse, Pool: pool, Amount: d(amount), OwnHorse: own}, DefaultMinBet, time.Now())
	require.NoError(t, err)
	return tk
}

func TestPlaceRejectsSmallBets(t *testing.T) {
	cases := []struct {
		name    string
		amount  string
		own     bool
		wantErr error
	}{
		{name: "below minimum", amount: "24.99", wantErr: ErrBetTooSmall},
		{name: "at minimum", amount: "25"},
		{name: "owner may bet half", amount: "12.5", own: true},
		{name: "owner below half", amount: "12", own: true, wantErr: ErrBetTooSmall},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBook()
			_, err := b.Place(BetRequest{PlayerID: "p1", Horse: 7, Pool: parimutuel.Win, Amount: d(tc.amount), OwnHorse: tc.own}, DefaultMinBet, time.Now())
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Empty(t, b.Tickets)
				assert.Empty(t, b.Pools.Win)
				return
			}
			assert.NoError(t, err)
			assert.Len(t, b.Tickets, 1)
		})
	}
}

func TestPlaceRejectsUnknownPool(t *testing.T) {
	b := NewBook()
	_, err := b.Place(BetRequest{PlayerID: "p1", Horse: 7, Pool: "exacta", Amount: d("50")}, DefaultMinBet, time.Now())
	assert.ErrorIs(t, err, ErrInvalidPool)
}

func TestWinBetDoesNotTouchOtherPools(t *testing.T) {
	b := NewBook()
	place(t, &b, "p1", 9, parimutuel.Win, "100", false)
	assert.True(t, b.Pools.Win.Total().Equal(d("100")))
	assert.True(t, b.Pools.Place.Total().IsZero())
	assert.True(t, b.Pools.Show.Total().IsZero())
	assert.True(t, parimutuel.OddsFor(b.Pools.Place, 9).Equal(parimutuel.DefaultOdds))
}

func TestOwnerAndPartnershipBoostEffectiveStake(t *testing.T) {
	b := NewBook()
	require.NoError(t, b.SetPartnershipBonus(d("1.25")))
	tk := place(t, &b, "p1", 6, parimutuel.Show, "40", true)
	assert.True(t, tk.Effective.Equal(d("75")), "got %s", tk.Effective)
	assert.True(t, b.Pools.Show[6].Equal(d("75")))

	assert.ErrorIs(t, b.SetPartnershipBonus(d("2")), ErrInvalidBonus)
	assert.True(t, b.PartnershipBonus.Equal(d("1.25")))
}

func TestCancelRemovesEffectiveStake(t *testing.T) {
	b := NewBook()
	first := place(t, &b, "p1", 5, parimutuel.Win, "30", false)
	place(t, &b, "p2", 5, parimutuel.Win, "50", false)

	got, err := b.Cancel(first.ID, "p1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.True(t, b.Pools.Win[5].Equal(d("50")))
	assert.Len(t, b.Tickets, 1)

	_, err = b.Cancel(first.ID, "p1")
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestCancelDropsEmptyPoolEntry(t *testing.T) {
	b := NewBook()
	tk := place(t, &b, "p1", 11, parimutuel.Place, "25", false)
	_, err := b.Cancel(tk.ID, "p1")
	require.NoError(t, err)
	_, ok := b.Pools.Place[11]
	assert.False(t, ok)
}

func TestCancelOtherPlayersTicket(t *testing.T) {
	b := NewBook()
	tk := place(t, &b, "p1", 11, parimutuel.Place, "25", false)
	_, err := b.Cancel(tk.ID, "p2")
	assert.ErrorIs(t, err, ErrTicketNotFound)
	assert.Len(t, b.Tickets, 1)
}

func TestSettlePaysWinningTicketsAndClears(t *testing.T) {
	b := NewBook()
	place(t, &b, "p1", 7, parimutuel.Win, "50", false)
	place(t, &b, "p2", 8, parimutuel.Win, "150", false)
	place(t, &b, "p2", 8, parimutuel.Place, "100", false)
	place(t, &b, "p3", 4, parimutuel.Place, "100", false)

	wins := b.Settle([]int{7, 8, 4})
	require.Len(t, wins, 2)

	assert.Equal(t, "p1", wins[0].Ticket.PlayerID)
	assert.True(t, wins[0].Multiplier.Equal(d("4")))
	assert.True(t, wins[0].Payout.Equal(d("200")))

	assert.Equal(t, "p2", wins[1].Ticket.PlayerID)
	assert.Equal(t, parimutuel.Place, wins[1].Ticket.Pool)
	assert.True(t, wins[1].Payout.Equal(d("200")))

	assert.Empty(t, b.Tickets)
	assert.Empty(t, b.Pools.Win)
	assert.Empty(t, b.Pools.Place)
}

func TestCloneIsIndependent(t *testing.T) {
	b := NewBook()
	place(t, &b, "p1", 7, parimutuel.Win, "50", false)
	c := b.Clone()
	place(t, &c, "p1", 7, parimutuel.Win, "50", false)
	assert.Len(t, b.Tickets, 1)
	assert.True(t, b.Pools.Win[7].Equal(d("50")))
}

func TestNormalizeFillsMissingFields(t *testing.T) {
	var b Book
	b.Normalize()
	assert.NotNil(t, b.Pools.Win)
	assert.NotNil(t, b.Tickets)
	assert.True(t, b.PartnershipBonus.Equal(d("1")))
}
