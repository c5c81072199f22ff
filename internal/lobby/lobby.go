package lobby

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/DoyleJ11/scratch-race-backend/internal/betting"
	"github.com/DoyleJ11/scratch-race-backend/internal/commentary"
	"github.com/DoyleJ11/scratch-race-backend/internal/engine"
	"github.com/DoyleJ11/scratch-race-backend/internal/store"
)

var ErrSessionNotFound = errors.New("session not found")
var ErrConcurrentModification = errors.New("session was modified concurrently")

// PersistenceError wraps a store failure. The session is left as it was
// before the call.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

const (
	storeTimeout      = 5 * time.Second
	commentaryTimeout = 250 * time.Millisecond
	commitAttempts    = 2
)

// Repository is what a lobby needs from the session store.
type Repository interface {
	Load(ctx context.Context, id string) (store.SessionRecord, error)
	Save(ctx context.Context, rec store.SessionRecord) (int64, error)
	PushRace(ctx context.Context, rec store.RaceRecord) error
}

type Deps struct {
	Repo        Repository
	Wallet      betting.Wallet
	Dice        engine.Dice
	Commentator commentary.Commentator
	MinBet      decimal.Decimal
	Logger      *zap.Logger
}

type Msg interface{ isLobbyMsg() }

// FromClient runs a game command.
type FromClient struct {
	Cmd   engine.Command
	Reply chan Result
}

func (FromClient) isLobbyMsg() {}

type PlaceBet struct {
	Req   betting.BetRequest
	Reply chan BetResult
}

func (PlaceBet) isLobbyMsg() {}

type CancelBet struct {
	TicketID string
	PlayerID string
	Reply    chan BetResult
}

func (CancelBet) isLobbyMsg() {}

type SetBonus struct {
	PlayerID string
	Bonus    decimal.Decimal
	Reply    chan Result
}

func (SetBonus) isLobbyMsg() {}

// Subscribe registers an outbox for snapshots; the current one is sent
// straight away.
type Subscribe struct {
	ClientID string
	Outbox   chan Snapshot
}

func (Subscribe) isLobbyMsg() {}

type Unsubscribe struct{ ClientID string }

func (Unsubscribe) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type Snapshot struct {
	Version    int64
	State      engine.State
	Book       betting.Book
	Commentary string
}

type View struct {
	Snapshot
	NumClients int
	Err        error
}

type Result struct {
	Events   []engine.Event
	Snapshot Snapshot
	Winnings []betting.Winning
	Err      error
}

type BetResult struct {
	Ticket   betting.Ticket
	Snapshot Snapshot
	Err      error
}

type Lobby struct {
	id      string
	inbox   chan Msg
	deps    Deps
	log     *zap.Logger
	clients map[string]chan Snapshot
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewLobby(parent context.Context, id string, deps Deps) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Commentator == nil {
		deps.Commentator = commentary.Nop{}
	}
	if deps.MinBet.IsZero() {
		deps.MinBet = betting.DefaultMinBet
	}

	l := &Lobby{
		id:      id,
		inbox:   make(chan Msg, 64),
		deps:    deps,
		log:     deps.Logger.With(zap.String("session", id)),
		clients: make(map[string]chan Snapshot),
		ctx:     ctx,
		cancel:  cancel,
	}

	go l.loop()
	return l
}

func (l *Lobby) ID() string { return l.id }

// Expose the inbox so the service and WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the lobby has stopped.
func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Subscribe:
				l.clients[msg.ClientID] = msg.Outbox
				snap, err := l.current()
				if err != nil {
					l.log.Warn("snapshot for new subscriber", zap.Error(err))
					break
				}
				l.send(msg.ClientID, snap)

			case Unsubscribe:
				delete(l.clients, msg.ClientID)

			case FromClient:
				msg.Reply <- l.handleCommand(msg.Cmd)

			case PlaceBet:
				msg.Reply <- l.placeBet(msg.Req)

			case CancelBet:
				msg.Reply <- l.cancelBet(msg.TicketID, msg.PlayerID)

			case SetBonus:
				msg.Reply <- l.setBonus(msg.PlayerID, msg.Bonus)

			case GetState:
				snap, err := l.current()
				msg.Reply <- View{Snapshot: snap, NumClients: len(l.clients), Err: err}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) shutdown() {
	for id, ch := range l.clients {
		close(ch) // Tell client no more snapshots
		delete(l.clients, id)
	}
	l.cancel()
}

func (l *Lobby) send(id string, snap Snapshot) {
	ch := l.clients[id]
	select {
	case ch <- snap:
	default:
		// Client is slow/full - drop them.
		close(ch)
		delete(l.clients, id)
	}
}

func (l *Lobby) broadcast(snap Snapshot) {
	for id := range l.clients {
		l.send(id, snap)
	}
}

func (l *Lobby) storeCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(l.ctx, storeTimeout)
}

func (l *Lobby) load() (store.SessionRecord, error) {
	ctx, cancel := l.storeCtx()
	defer cancel()
	rec, err := l.deps.Repo.Load(ctx, l.id)
	if errors.Is(err, store.ErrNotFound) {
		return rec, ErrSessionNotFound
	}
	if err != nil {
		return rec, &PersistenceError{Op: "load", Err: err}
	}
	return rec, nil
}

func (l *Lobby) current() (Snapshot, error) {
	rec, err := l.load()
	if err != nil {
		return Snapshot{}, err
	}
	return snapshotOf(rec), nil
}

func snapshotOf(rec store.SessionRecord) Snapshot {
	return Snapshot{Version: rec.Version, State: rec.Game, Book: rec.Book}
}

// mutation edits a freshly loaded copy of the session. Returning noWrite
// skips the save.
type mutation func(rec *store.SessionRecord) (noWrite bool, err error)

// commit loads the session, applies fn to a copy and writes it back with a
// version check. A lost race is retried once from a fresh load.
func (l *Lobby) commit(fn mutation) (store.SessionRecord, error) {
	for attempt := 1; attempt <= commitAttempts; attempt++ {
		loaded, err := l.load()
		if err != nil {
			return store.SessionRecord{}, err
		}
		rec := store.SessionRecord{Version: loaded.Version, Game: loaded.Game.Clone(), Book: loaded.Book.Clone()}
		noWrite, err := fn(&rec)
		if err != nil {
			return loaded, err
		}
		if noWrite {
			return rec, nil
		}

		ctx, cancel := l.storeCtx()
		v, err := l.deps.Repo.Save(ctx, rec)
		cancel()
		switch {
		case err == nil:
			rec.Version = v
			return rec, nil
		case errors.Is(err, store.ErrConcurrentModification):
			l.log.Warn("version conflict, retrying", zap.Int("attempt", attempt), zap.Int64("version", rec.Version))
			continue
		case errors.Is(err, store.ErrNotFound):
			return loaded, ErrSessionNotFound
		default:
			l.log.Error("save session", zap.Error(err))
			return loaded, &PersistenceError{Op: "save", Err: err}
		}
	}
	return store.SessionRecord{}, ErrConcurrentModification
}

func (l *Lobby) handleCommand(cmd engine.Command) Result {
	var (
		events []engine.Event
		wins   []betting.Winning
	)
	rec, err := l.commit(func(rec *store.SessionRecord) (bool, error) {
		evs, ns, err := engine.Apply(rec.Game, cmd, l.deps.Dice)
		if err != nil {
			return false, err
		}
		events, wins = evs, nil
		if len(evs) == 1 && evs[0].Type == engine.EvtPlayerRejoined {
			return true, nil
		}
		if ns.Phase == engine.PhaseFinished && rec.Game.Phase != engine.PhaseFinished {
			wins = rec.Book.Settle(engine.FinishOrder(ns))
		}
		rec.Game = ns
		return false, nil
	})
	if err != nil {
		return Result{Err: err}
	}

	l.log.Debug("command applied",
		zap.String("cmd", string(cmd.Type)),
		zap.String("player", cmd.PlayerID),
		zap.Int64("version", rec.Version))

	snap := snapshotOf(rec)
	if engine.ContainsEvent(events, engine.EvtPhaseChanged) {
		l.log.Info("phase changed", zap.String("phase", string(rec.Game.Phase)))
	}
	if engine.ContainsEvent(events, engine.EvtRaceWon) {
		l.finishRace(rec, events, wins)
	}
	if cmd.Type == engine.CmdRollScratch || cmd.Type == engine.CmdRollRace {
		snap.Commentary = l.comment(rec.Game, events)
	}
	l.broadcast(snap)
	return Result{Events: events, Snapshot: snap, Winnings: wins}
}

// finishRace runs the side effects of a committed finish: bet winnings go to
// wallets and the race goes into history. Failures here are logged only.
func (l *Lobby) finishRace(rec store.SessionRecord, events []engine.Event, wins []betting.Winning) {
	ctx, cancel := l.storeCtx()
	defer cancel()

	g := rec.Game
	l.log.Info("race finished", zap.Int("winner", *g.Winner), zap.Int64("pot", g.Pot), zap.Int("bet_winners", len(wins)))

	for _, w := range wins {
		if l.deps.Wallet == nil {
			break
		}
		if _, err := l.deps.Wallet.Credit(ctx, w.Ticket.PlayerID, w.Payout); err != nil {
			l.log.Error("credit bet winnings", zap.String("ticket", w.Ticket.ID), zap.Error(err))
		}
	}

	race := store.RaceRecord{
		ID:         fmt.Sprintf("race_%s_%s", time.Now().UTC().Format("20060102_150405"), uuid.NewString()[:8]),
		SessionID:  g.ID,
		Winner:     *g.Winner,
		Positions:  g.Horses,
		Scratched:  g.Scratched,
		Payouts:    engine.SummarizeRace(events, g).Payouts,
		Pot:        g.Pot,
		BetPayouts: wins,
		FinishedAt: time.Now().UTC(),
	}
	if err := l.deps.Repo.PushRace(ctx, race); err != nil {
		l.log.Error("push race record", zap.Error(err))
	}
}

func (l *Lobby) comment(state engine.State, events []engine.Event) string {
	ctx, cancel := context.WithTimeout(l.ctx, commentaryTimeout)
	defer cancel()
	line, err := l.deps.Commentator.Comment(ctx, state, events)
	if err != nil {
		l.log.Warn("commentary unavailable", zap.Error(err))
		return ""
	}
	return line
}

func (l *Lobby) placeBet(req betting.BetRequest) BetResult {
	if l.deps.Wallet == nil {
		return BetResult{Err: betting.ErrBettingClosed}
	}
	if !req.Amount.IsPositive() {
		return BetResult{Err: fmt.Errorf("%w: amount must be positive", betting.ErrBetTooSmall)}
	}
	ctx, cancel := l.storeCtx()
	defer cancel()

	if _, err := l.deps.Wallet.Debit(ctx, req.PlayerID, req.Amount); err != nil {
		if errors.Is(err, betting.ErrInsufficientFunds) {
			return BetResult{Err: err}
		}
		return BetResult{Err: &PersistenceError{Op: "debit", Err: err}}
	}

	var ticket betting.Ticket
	rec, err := l.commit(func(rec *store.SessionRecord) (bool, error) {
		g := rec.Game
		if g.Phase != engine.PhaseScratching && g.Phase != engine.PhaseRacing {
			return false, betting.ErrBettingClosed
		}
		if _, ok := g.Horses[req.Horse]; !ok || g.IsScratched(req.Horse) {
			return false, fmt.Errorf("%w: %d", betting.ErrHorseUnavailable, req.Horse)
		}
		r := req
		owner, ok := g.OwnerOf(req.Horse)
		r.OwnHorse = ok && owner == req.PlayerID
		t, err := rec.Book.Place(r, l.deps.MinBet, time.Now().UTC())
		if err != nil {
			return false, err
		}
		ticket = t
		return false, nil
	})
	if err != nil {
		if _, rerr := l.deps.Wallet.Credit(ctx, req.PlayerID, req.Amount); rerr != nil {
			l.log.Error("refund failed bet", zap.String("player", req.PlayerID), zap.Error(rerr))
		}
		return BetResult{Err: err}
	}

	l.log.Debug("bet placed", zap.String("ticket", ticket.ID), zap.Int("horse", ticket.Horse), zap.String("pool", string(ticket.Pool)))
	snap := snapshotOf(rec)
	l.broadcast(snap)
	return BetResult{Ticket: ticket, Snapshot: snap}
}

func (l *Lobby) cancelBet(ticketID, playerID string) BetResult {
	if l.deps.Wallet == nil {
		return BetResult{Err: betting.ErrBettingClosed}
	}
	loaded, err := l.load()
	if err != nil {
		return BetResult{Err: err}
	}
	if p := loaded.Game.Phase; p != engine.PhaseScratching && p != engine.PhaseRacing {
		return BetResult{Err: betting.ErrBettingClosed}
	}
	scratch := loaded.Book.Clone()
	ticket, err := scratch.Cancel(ticketID, playerID)
	if err != nil {
		return BetResult{Err: err}
	}

	// Refund before the ticket leaves the book; a failed commit takes it back.
	ctx, cancel := l.storeCtx()
	defer cancel()
	if _, err := l.deps.Wallet.Credit(ctx, playerID, ticket.Amount); err != nil {
		return BetResult{Err: &PersistenceError{Op: "refund", Err: err}}
	}

	rec, err := l.commit(func(rec *store.SessionRecord) (bool, error) {
		if p := rec.Game.Phase; p != engine.PhaseScratching && p != engine.PhaseRacing {
			return false, betting.ErrBettingClosed
		}
		_, err := rec.Book.Cancel(ticketID, playerID)
		return false, err
	})
	if err != nil {
		if _, derr := l.deps.Wallet.Debit(ctx, playerID, ticket.Amount); derr != nil {
			l.log.Error("take back refund", zap.String("ticket", ticketID), zap.Error(derr))
		}
		return BetResult{Err: err}
	}

	snap := snapshotOf(rec)
	l.broadcast(snap)
	return BetResult{Ticket: ticket, Snapshot: snap}
}

func (l *Lobby) setBonus(playerID string, bonus decimal.Decimal) Result {
	rec, err := l.commit(func(rec *store.SessionRecord) (bool, error) {
		if rec.Game.CreatorID != playerID {
			return false, engine.ErrNotAuthorized
		}
		if rec.Game.Phase == engine.PhaseFinished {
			return false, engine.ErrInvalidPhase
		}
		return false, rec.Book.SetPartnershipBonus(bonus)
	})
	if err != nil {
		return Result{Err: err}
	}
	snap := snapshotOf(rec)
	l.broadcast(snap)
	return Result{Snapshot: snap}
}
