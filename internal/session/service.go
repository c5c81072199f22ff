package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/DoyleJ11/scratch-race-backend/internal/betting"
	"github.com/DoyleJ11/scratch-race-backend/internal/engine"
	"github.com/DoyleJ11/scratch-race-backend/internal/hub"
	"github.com/DoyleJ11/scratch-race-backend/internal/lobby"
	"github.com/DoyleJ11/scratch-race-backend/internal/parimutuel"
	"github.com/DoyleJ11/scratch-race-backend/internal/store"
	"github.com/DoyleJ11/scratch-race-backend/internal/track"
	"github.com/DoyleJ11/scratch-race-backend/pkg/types"
)

var ErrInvalidArgument = errors.New("invalid argument")

const (
	maxIDLength   = 64
	idAttempts    = 5
	maxHistory    = 100
	localIDPrefix = "player-"
)

type JoinStatus string

const (
	JoinStatusJoined        JoinStatus = "joined"
	JoinStatusAlreadyJoined JoinStatus = "already_joined"
)

// Repository creates sessions and reads race history. Everything else goes
// through the lobby that owns the session.
type Repository interface {
	Create(ctx context.Context, rec store.SessionRecord) (int64, error)
	RecentRaces(ctx context.Context, n int) ([]store.RaceRecord, error)
}

type Options struct {
	DefaultMaxPlayers    int
	DefaultStartingChips int64
}

type Service struct {
	hub    *hub.Hub
	repo   Repository
	wallet betting.Wallet
	log    *zap.Logger
	opts   Options
}

func NewService(h *hub.Hub, repo Repository, wallet betting.Wallet, log *zap.Logger, opts Options) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.DefaultMaxPlayers == 0 {
		opts.DefaultMaxPlayers = engine.DefaultMaxPlayers
	}
	if opts.DefaultStartingChips == 0 {
		opts.DefaultStartingChips = engine.DefaultStartingChips
	}
	return &Service{hub: h, repo: repo, wallet: wallet, log: log, opts: opts}
}

func (s *Service) Defaults() Options { return s.opts }

// RaceOutcome is a race roll plus any bet tickets it paid.
type RaceOutcome struct {
	engine.RaceResult
	BetPayouts []betting.Winning `json:"bet_payouts,omitempty"`
	Commentary string            `json:"commentary,omitempty"`
}

func (s *Service) CreateSession(ctx context.Context, creatorID, creatorName string, maxPlayers int, startingChips int64) (string, error) {
	if err := validID("creator id", creatorID); err != nil {
		return "", err
	}
	if maxPlayers < engine.MinPlayers || maxPlayers > engine.MaxPlayersLimit {
		return "", fmt.Errorf("%w: max players must be %d-%d, got %d", ErrInvalidArgument, engine.MinPlayers, engine.MaxPlayersLimit, maxPlayers)
	}
	if startingChips < 0 {
		return "", fmt.Errorf("%w: starting chips must not be negative", ErrInvalidArgument)
	}
	if creatorName == "" {
		creatorName = creatorID
	}

	for range idAttempts {
		id := newSessionID()
		rec := store.SessionRecord{
			Game: engine.NewSession(id, creatorID, creatorName, maxPlayers, startingChips),
			Book: betting.NewBook(),
		}
		_, err := s.repo.Create(ctx, rec)
		if errors.Is(err, store.ErrExists) {
			s.log.Warn("collision on session id, regenerating", zap.String("session", id))
			continue
		}
		if err != nil {
			return "", &lobby.PersistenceError{Op: "create", Err: err}
		}
		s.log.Info("session created",
			zap.String("session", id),
			zap.String("creator", creatorID),
			zap.Int("max_players", maxPlayers))
		return id, nil
	}
	return "", &lobby.PersistenceError{Op: "create", Err: store.ErrExists}
}

func newSessionID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s *Service) JoinSession(ctx context.Context, id, playerID, playerName string) (JoinStatus, error) {
	if err := validID("player id", playerID); err != nil {
		return "", err
	}
	if playerName == "" {
		playerName = playerID
	}
	res, err := s.command(ctx, id, engine.Command{Type: engine.CmdJoin, PlayerID: playerID, Name: playerName})
	if err != nil {
		return "", err
	}
	if engine.ContainsEvent(res.Events, engine.EvtPlayerRejoined) {
		return JoinStatusAlreadyJoined, nil
	}
	return JoinStatusJoined, nil
}

func (s *Service) SetReady(ctx context.Context, id, playerID string) (*types.Snapshot, error) {
	if err := validID("player id", playerID); err != nil {
		return nil, err
	}
	res, err := s.command(ctx, id, engine.Command{Type: engine.CmdReady, PlayerID: playerID})
	if err != nil {
		return nil, err
	}
	return toSnapshot(res.Snapshot), nil
}

func (s *Service) RollForScratch(ctx context.Context, id, playerID string) (engine.ScratchResult, error) {
	if err := validID("player id", playerID); err != nil {
		return engine.ScratchResult{}, err
	}
	res, err := s.command(ctx, id, engine.Command{Type: engine.CmdRollScratch, PlayerID: playerID})
	if err != nil {
		return engine.ScratchResult{}, err
	}
	return engine.SummarizeScratch(res.Events, res.Snapshot.State), nil
}

func (s *Service) RollForRace(ctx context.Context, id, playerID string) (RaceOutcome, error) {
	if err := validID("player id", playerID); err != nil {
		return RaceOutcome{}, err
	}
	res, err := s.command(ctx, id, engine.Command{Type: engine.CmdRollRace, PlayerID: playerID})
	if err != nil {
		return RaceOutcome{}, err
	}
	return RaceOutcome{
		RaceResult: engine.SummarizeRace(res.Events, res.Snapshot.State),
		BetPayouts: res.Winnings,
		Commentary: res.Snapshot.Commentary,
	}, nil
}

func (s *Service) GetSessionState(ctx context.Context, id string) (*types.Snapshot, error) {
	v, err := s.view(ctx, id)
	if err != nil {
		return nil, err
	}
	return toSnapshot(v.Snapshot), nil
}

func (s *Service) RemovePlayer(ctx context.Context, id, requesterID, targetID string) error {
	if err := validID("requester id", requesterID); err != nil {
		return err
	}
	if err := validID("target id", targetID); err != nil {
		return err
	}
	_, err := s.command(ctx, id, engine.Command{Type: engine.CmdRemovePlayer, PlayerID: requesterID, TargetID: targetID})
	if err == nil {
		s.log.Info("player removed", zap.String("session", id), zap.String("player", targetID), zap.String("by", requesterID))
	}
	return err
}

func (s *Service) EnterHorse(ctx context.Context, id, playerID string, horse int, name string) (*types.Snapshot, error) {
	if err := validID("player id", playerID); err != nil {
		return nil, err
	}
	res, err := s.command(ctx, id, engine.Command{Type: engine.CmdEnterHorse, PlayerID: playerID, Horse: horse, HorseName: name})
	if err != nil {
		return nil, err
	}
	return toSnapshot(res.Snapshot), nil
}

// StartLocal sets up a hot-seat game: players player-1..N share one device,
// player-1 creates the session and everyone is joined and readied, so the
// cards are dealt before this returns.
func (s *Service) StartLocal(ctx context.Context, names []string, startingChips int64) (string, error) {
	if len(names) < engine.MinPlayers || len(names) > engine.MaxPlayersLimit {
		return "", fmt.Errorf("%w: a local game needs %d-%d players, got %d", ErrInvalidArgument, engine.MinPlayers, engine.MaxPlayersLimit, len(names))
	}
	names = append([]string(nil), names...)
	ids := make([]string, len(names))
	for i, name := range names {
		ids[i] = fmt.Sprintf("%s%d", localIDPrefix, i+1)
		if strings.TrimSpace(name) == "" {
			names[i] = fmt.Sprintf("Player %d", i+1)
		}
	}

	id, err := s.CreateSession(ctx, ids[0], names[0], len(names), startingChips)
	if err != nil {
		return "", err
	}
	for i := 1; i < len(ids); i++ {
		if _, err := s.JoinSession(ctx, id, ids[i], names[i]); err != nil {
			return "", fmt.Errorf("join %s: %w", ids[i], err)
		}
	}
	for _, pid := range ids {
		if _, err := s.SetReady(ctx, id, pid); err != nil {
			return "", fmt.Errorf("ready %s: %w", pid, err)
		}
	}
	s.log.Info("local game started", zap.String("session", id), zap.Int("players", len(ids)))
	return id, nil
}

func (s *Service) PlaceBet(ctx context.Context, id string, req betting.BetRequest) (betting.Ticket, error) {
	if err := validID("player id", req.PlayerID); err != nil {
		return betting.Ticket{}, err
	}
	if !req.Pool.Valid() {
		return betting.Ticket{}, fmt.Errorf("%w: %q", betting.ErrInvalidPool, req.Pool)
	}
	lb, err := s.lobby(ctx, id)
	if err != nil {
		return betting.Ticket{}, err
	}
	res, err := ask(ctx, lb, func(reply chan lobby.BetResult) lobby.Msg {
		return lobby.PlaceBet{Req: req, Reply: reply}
	})
	if err != nil {
		return betting.Ticket{}, err
	}
	return res.Ticket, s.checkGone(ctx, id, res.Err)
}

func (s *Service) CancelBet(ctx context.Context, id, playerID, ticketID string) (betting.Ticket, error) {
	if err := validID("player id", playerID); err != nil {
		return betting.Ticket{}, err
	}
	lb, err := s.lobby(ctx, id)
	if err != nil {
		return betting.Ticket{}, err
	}
	res, err := ask(ctx, lb, func(reply chan lobby.BetResult) lobby.Msg {
		return lobby.CancelBet{TicketID: ticketID, PlayerID: playerID, Reply: reply}
	})
	if err != nil {
		return betting.Ticket{}, err
	}
	return res.Ticket, s.checkGone(ctx, id, res.Err)
}

func (s *Service) SetPartnershipBonus(ctx context.Context, id, playerID string, bonus decimal.Decimal) (*types.Snapshot, error) {
	if err := validID("player id", playerID); err != nil {
		return nil, err
	}
	lb, err := s.lobby(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := ask(ctx, lb, func(reply chan lobby.Result) lobby.Msg {
		return lobby.SetBonus{PlayerID: playerID, Bonus: bonus, Reply: reply}
	})
	if err != nil {
		return nil, err
	}
	if err := s.checkGone(ctx, id, res.Err); err != nil {
		return nil, err
	}
	return toSnapshot(res.Snapshot), nil
}

// Odds reports the live pool odds and the fixed board line of every horse
// still running.
func (s *Service) Odds(ctx context.Context, id string) (types.Odds, error) {
	v, err := s.view(ctx, id)
	if err != nil {
		return types.Odds{}, err
	}
	book := v.Book
	out := types.Odds{
		Win:   book.Odds(parimutuel.Win),
		Place: book.Odds(parimutuel.Place),
		Show:  book.Odds(parimutuel.Show),
		Board: []types.BoardLine{},
	}
	for _, h := range track.Horses() {
		if v.State.IsScratched(h) {
			continue
		}
		odds, err := track.BoardOdds(h)
		if err != nil {
			return types.Odds{}, err
		}
		out.Board = append(out.Board, types.BoardLine{
			Horse:         h,
			Ways:          track.Ways(h),
			ExpectedRolls: track.ExpectedRolls(h),
			Odds:          odds,
		})
	}
	return out, nil
}

func (s *Service) RaceHistory(ctx context.Context, n int) ([]store.RaceRecord, error) {
	if n <= 0 || n > maxHistory {
		return nil, fmt.Errorf("%w: limit must be 1-%d", ErrInvalidArgument, maxHistory)
	}
	recs, err := s.repo.RecentRaces(ctx, n)
	if err != nil {
		return nil, &lobby.PersistenceError{Op: "race history", Err: err}
	}
	return recs, nil
}

// Tickets lists a player's open bets on a session.
func (s *Service) Tickets(ctx context.Context, id, playerID string) ([]betting.Ticket, error) {
	if err := validID("player id", playerID); err != nil {
		return nil, err
	}
	v, err := s.view(ctx, id)
	if err != nil {
		return nil, err
	}
	tickets := v.Book.TicketsFor(playerID)
	if tickets == nil {
		tickets = []betting.Ticket{}
	}
	return tickets, nil
}

func (s *Service) Balance(ctx context.Context, playerID string) (decimal.Decimal, error) {
	if err := validID("player id", playerID); err != nil {
		return decimal.Zero, err
	}
	if s.wallet == nil {
		return decimal.Zero, betting.ErrBettingClosed
	}
	bal, err := s.wallet.Balance(ctx, playerID)
	if err != nil {
		return decimal.Zero, &lobby.PersistenceError{Op: "balance", Err: err}
	}
	return bal, nil
}

// Watch returns the lobby of an existing session, for streaming snapshots.
func (s *Service) Watch(ctx context.Context, id string) (*lobby.Lobby, error) {
	if _, err := s.view(ctx, id); err != nil {
		return nil, err
	}
	return s.lobby(ctx, id)
}

// Shutdown stops every lobby.
func (s *Service) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case s.hub.Inbox() <- hub.ShutdownHub{Done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) lobby(ctx context.Context, id string) (*lobby.Lobby, error) {
	if err := validID("session id", id); err != nil {
		return nil, err
	}
	return s.hub.Ensure(ctx, id)
}

func (s *Service) command(ctx context.Context, id string, cmd engine.Command) (lobby.Result, error) {
	lb, err := s.lobby(ctx, id)
	if err != nil {
		return lobby.Result{}, err
	}
	res, err := ask(ctx, lb, func(reply chan lobby.Result) lobby.Msg {
		return lobby.FromClient{Cmd: cmd, Reply: reply}
	})
	if err != nil {
		return lobby.Result{}, err
	}
	return res, s.checkGone(ctx, id, res.Err)
}

func (s *Service) view(ctx context.Context, id string) (lobby.View, error) {
	lb, err := s.lobby(ctx, id)
	if err != nil {
		return lobby.View{}, err
	}
	v, err := ask(ctx, lb, func(reply chan lobby.View) lobby.Msg {
		return lobby.GetState{Reply: reply}
	})
	if err != nil {
		return lobby.View{}, err
	}
	return v, s.checkGone(ctx, id, v.Err)
}

// checkGone retires the lobby started for a session that does not exist.
func (s *Service) checkGone(ctx context.Context, id string, err error) error {
	if errors.Is(err, lobby.ErrSessionNotFound) {
		s.hub.Remove(ctx, id)
	}
	return err
}

// ask sends one request to a lobby and waits for the reply.
func ask[T any](ctx context.Context, lb *lobby.Lobby, msg func(chan T) lobby.Msg) (T, error) {
	var zero T
	reply := make(chan T, 1)
	select {
	case lb.Inbox() <- msg(reply):
	case <-lb.Done():
		return zero, lobby.ErrSessionNotFound
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case r := <-reply:
		return r, nil
	case <-lb.Done():
		return zero, lobby.ErrSessionNotFound
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func toSnapshot(snap lobby.Snapshot) *types.Snapshot {
	return types.NewSnapshot(snap.Version, snap.State, snap.Book, snap.Commentary)
}

func validID(what, id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: %s is required", ErrInvalidArgument, what)
	case len(id) > maxIDLength:
		return fmt.Errorf("%w: %s longer than %d characters", ErrInvalidArgument, what, maxIDLength)
	case strings.IndexFunc(id, unicode.IsSpace) >= 0:
		return fmt.Errorf("%w: %s contains whitespace", ErrInvalidArgument, what)
	}
	return nil
}
