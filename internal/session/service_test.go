package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/scratch-race-backend/internal/betting"
	"github.com/DoyleJ11/scratch-race-backend/internal/engine"
	"github.com/DoyleJ11/scratch-race-backend/internal/hub"
	"github.com/DoyleJ11/scratch-race-backend/internal/lobby"
	"github.com/DoyleJ11/scratch-race-backend/internal/parimutuel"
	"github.com/DoyleJ11/scratch-race-backend/internal/store"
)

type testEnv struct {
	svc    *Service
	dice   *engine.ScriptedDice
	wallet *store.Wallets
}

func newTestService(t *testing.T) testEnv {
	t.Helper()
	kv := store.NewMemory()
	sessions := store.NewSessions(kv)
	wallets := store.NewWallets(kv, decimal.NewFromInt(1000))
	dice := engine.NewScriptedDice()

	h := hub.NewHub(context.Background(), hub.DepsFactory(lobby.Deps{
		Repo:   sessions,
		Wallet: wallets,
		Dice:   dice,
	}))
	svc := NewService(h, sessions, wallets, nil, Options{})
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })
	return testEnv{svc: svc, dice: dice, wallet: wallets}
}

func TestCreateSession_Validation(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name       string
		creator    string
		maxPlayers int
		chips      int64
	}{
		{name: "empty creator", creator: "", maxPlayers: 4, chips: 50},
		{name: "whitespace in id", creator: "bad id", maxPlayers: 4, chips: 50},
		{name: "id too long", creator: strings.Repeat("x", 65), maxPlayers: 4, chips: 50},
		{name: "one player", creator: "a", maxPlayers: 1, chips: 50},
		{name: "nine players", creator: "a", maxPlayers: 9, chips: 50},
		{name: "negative chips", creator: "a", maxPlayers: 4, chips: -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.CreateSession(ctx, tc.creator, "", tc.maxPlayers, tc.chips)
			assert.ErrorIs(t, err, ErrInvalidArgument)
			assert.Equal(t, CodeInvalidArgument, Code(err))
		})
	}
}

func TestCreateJoinReady_Deals(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()

	id, err := env.svc.CreateSession(ctx, "alice", "Alice", 2, 50)
	require.NoError(t, err)
	assert.Len(t, id, 8)
	assert.Equal(t, strings.ToUpper(id), id)

	status, err := env.svc.JoinSession(ctx, id, "bob", "Bob")
	require.NoError(t, err)
	assert.Equal(t, JoinStatusJoined, status)

	status, err = env.svc.JoinSession(ctx, id, "bob", "Bob")
	require.NoError(t, err)
	assert.Equal(t, JoinStatusAlreadyJoined, status)

	_, err = env.svc.JoinSession(ctx, id, "carol", "Carol")
	assert.ErrorIs(t, err, engine.ErrGameFull)

	snap, err := env.svc.SetReady(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, engine.PhaseWaiting, snap.Phase)

	snap, err = env.svc.SetReady(ctx, id, "bob")
	require.NoError(t, err)
	assert.Equal(t, engine.PhaseScratching, snap.Phase)
	require.Len(t, snap.Players, 2)
	assert.Len(t, snap.Players[0].Cards, 22)
	assert.Len(t, snap.Players[1].Cards, 22)
	assert.Equal(t, "alice", snap.CurrentPlayer)

	got, err := env.svc.GetSessionState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, snap.Version, got.Version)
}

func TestUnknownSession(t *testing.T) {
	env := newTestService(t)
	_, err := env.svc.GetSessionState(context.Background(), "NOPE1234")
	assert.ErrorIs(t, err, lobby.ErrSessionNotFound)
	assert.Equal(t, CodeNotFound, Code(err))

	_, err = env.svc.RollForScratch(context.Background(), "NOPE1234", "alice")
	assert.ErrorIs(t, err, lobby.ErrSessionNotFound)
}

func TestRollForScratch_WrongTurnAndCollision(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()
	id, err := env.svc.StartLocal(ctx, []string{"Ann", "Ben"}, 50)
	require.NoError(t, err)

	_, err = env.svc.RollForScratch(ctx, id, "player-2")
	assert.ErrorIs(t, err, engine.ErrNotYourTurn)
	assert.Equal(t, CodeNotYourTurn, Code(err))

	env.dice.Push([2]int{1, 1})
	res, err := env.svc.RollForScratch(ctx, id, "player-1")
	require.NoError(t, err)
	require.NotNil(t, res.ScratchedHorse)
	assert.Equal(t, 2, *res.ScratchedHorse)
	assert.Equal(t, 1, res.Slot)
	assert.True(t, res.TurnAdvances)
	assert.Equal(t, "player-2", res.NextPlayer)

	before, err := env.svc.GetSessionState(ctx, id)
	require.NoError(t, err)

	env.dice.Push([2]int{1, 1})
	res, err = env.svc.RollForScratch(ctx, id, "player-2")
	require.NoError(t, err)
	assert.Nil(t, res.ScratchedHorse)
	assert.False(t, res.TurnAdvances)
	assert.Empty(t, res.Charged)

	after, err := env.svc.GetSessionState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before.ScratchPhase, after.ScratchPhase)
	assert.Equal(t, before.Pot, after.Pot)
	assert.Equal(t, before.Players, after.Players)
	assert.Equal(t, "player-2", after.CurrentPlayer)
}

func TestFullLocalRace(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()
	id, err := env.svc.StartLocal(ctx, []string{"Ann", "Ben"}, 50)
	require.NoError(t, err)

	env.dice.Push([2]int{1, 1}, [2]int{1, 2}, [2]int{5, 6}, [2]int{6, 6})
	for i := 0; i < engine.ScratchRounds; i++ {
		snap, err := env.svc.GetSessionState(ctx, id)
		require.NoError(t, err)
		_, err = env.svc.RollForScratch(ctx, id, snap.CurrentPlayer)
		require.NoError(t, err)
	}

	snap, err := env.svc.GetSessionState(ctx, id)
	require.NoError(t, err)
	require.Equal(t, engine.PhaseRacing, snap.Phase)

	odds, err := env.svc.Odds(ctx, id)
	require.NoError(t, err)
	assert.Len(t, odds.Board, 7)

	ticket, err := env.svc.PlaceBet(ctx, id, betting.BetRequest{PlayerID: "fan", Horse: 7, Pool: parimutuel.Win, Amount: decimal.NewFromInt(50)})
	require.NoError(t, err)
	assert.NotEmpty(t, ticket.ID)
	_, err = env.svc.PlaceBet(ctx, id, betting.BetRequest{PlayerID: "rival", Horse: 6, Pool: parimutuel.Win, Amount: decimal.NewFromInt(50)})
	require.NoError(t, err)

	_, err = env.svc.PlaceBet(ctx, id, betting.BetRequest{PlayerID: "fan", Horse: 2, Pool: parimutuel.Win, Amount: decimal.NewFromInt(50)})
	assert.ErrorIs(t, err, betting.ErrHorseUnavailable)

	open, err := env.svc.Tickets(ctx, id, "fan")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, ticket.ID, open[0].ID)
	_, err = env.svc.Tickets(ctx, id, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	odds, err = env.svc.Odds(ctx, id)
	require.NoError(t, err)
	assert.True(t, odds.Win[7].Equal(decimal.NewFromInt(2)), "got %s", odds.Win[7])

	env.dice.Push([2]int{3, 4})
	var last RaceOutcome
	for rolls := 0; last.Winner == nil; rolls++ {
		require.Less(t, rolls, 20, "race never finished")
		snap, err := env.svc.GetSessionState(ctx, id)
		require.NoError(t, err)
		last, err = env.svc.RollForRace(ctx, id, snap.CurrentPlayer)
		require.NoError(t, err)
		assert.True(t, last.TurnAdvances)
	}
	assert.Equal(t, 7, *last.Winner)
	assert.Equal(t, engine.PhaseFinished, last.Phase)
	require.Len(t, last.BetPayouts, 1)
	assert.Equal(t, "fan", last.BetPayouts[0].Ticket.PlayerID)

	bal, err := env.svc.Balance(ctx, "fan")
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(1050)), "got %s", bal)

	open, err = env.svc.Tickets(ctx, id, "fan")
	require.NoError(t, err)
	assert.Empty(t, open)

	_, err = env.svc.RollForRace(ctx, id, last.NextPlayer)
	assert.ErrorIs(t, err, engine.ErrInvalidPhase)

	history, err := env.svc.RaceHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, id, history[0].SessionID)
	assert.Equal(t, 7, history[0].Winner)

	_, err = env.svc.RaceHistory(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestStartLocal_PlayerCount(t *testing.T) {
	env := newTestService(t)
	_, err := env.svc.StartLocal(context.Background(), []string{"solo"}, 50)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	id, err := env.svc.StartLocal(context.Background(), []string{"a", "", "c"}, 20)
	require.NoError(t, err)
	snap, err := env.svc.GetSessionState(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, snap.Players, 3)
	assert.Equal(t, "Player 2", snap.Players[1].Name)
	assert.Equal(t, int64(20), snap.Players[2].Chips)
	assert.Equal(t, engine.PhaseScratching, snap.Phase)
}

func TestRemovePlayer(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()
	id, err := env.svc.CreateSession(ctx, "host", "Host", 4, 50)
	require.NoError(t, err)
	_, err = env.svc.JoinSession(ctx, id, "guest", "")
	require.NoError(t, err)

	err = env.svc.RemovePlayer(ctx, id, "guest", "host")
	assert.ErrorIs(t, err, engine.ErrNotAuthorized)
	assert.Equal(t, CodeNotAuthorized, Code(err))

	require.NoError(t, env.svc.RemovePlayer(ctx, id, "host", "guest"))
	snap, err := env.svc.GetSessionState(ctx, id)
	require.NoError(t, err)
	assert.Len(t, snap.Players, 1)
}

func TestSetPartnershipBonus(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()
	id, err := env.svc.StartLocal(ctx, []string{"a", "b"}, 50)
	require.NoError(t, err)

	_, err = env.svc.SetPartnershipBonus(ctx, id, "player-1", decimal.RequireFromString("2"))
	assert.ErrorIs(t, err, betting.ErrInvalidBonus)

	snap, err := env.svc.SetPartnershipBonus(ctx, id, "player-1", decimal.RequireFromString("1.25"))
	require.NoError(t, err)
	assert.Equal(t, "1.25", snap.Bonus)
}

func TestCode(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{err: engine.ErrInvalidPhase, want: CodeInvalidPhase},
		{err: betting.ErrBettingClosed, want: CodeInvalidPhase},
		{err: lobby.ErrConcurrentModification, want: CodeConflict},
		{err: &lobby.PersistenceError{Op: "save", Err: errors.New("down")}, want: CodeUnavailable},
		{err: context.DeadlineExceeded, want: CodeTimeout},
		{err: betting.ErrBetTooSmall, want: CodeBetRejected},
		{err: errors.New("mystery"), want: CodeInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Code(tc.err), "%v", tc.err)
	}
}
