package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/DoyleJ11/scratch-race-backend/internal/betting"
	"github.com/DoyleJ11/scratch-race-backend/internal/lobby"
	"github.com/DoyleJ11/scratch-race-backend/internal/parimutuel"
	"github.com/DoyleJ11/scratch-race-backend/internal/session"
	"github.com/DoyleJ11/scratch-race-backend/internal/types"
	pub "github.com/DoyleJ11/scratch-race-backend/pkg/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var errUnknownType = errors.New("unknown type")

const (
	idleTimeout  = 2 * time.Minute
	writeTimeout = 3 * time.Second
	callTimeout  = 10 * time.Second
)

// Handler streams snapshots of one session and accepts game commands from
// the player named in the query (?session=<id>&player=<id>). Without a
// player the connection is read-only.
func Handler(svc *session.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("session")
		if id == "" {
			http.Error(w, "missing session", http.StatusBadRequest)
			return
		}
		player := r.URL.Query().Get("player")

		lb, err := svc.Watch(r.Context(), id)
		if err != nil {
			if errors.Is(err, lobby.ErrSessionNotFound) {
				http.Error(w, "session not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		clog := log.With(zap.String("session", id), zap.String("client", clientID), zap.String("player", player))

		out := make(chan lobby.Snapshot, 8)
		replies := make(chan types.ServerMessage, 8)
		lb.Inbox() <- lobby.Subscribe{ClientID: clientID, Outbox: out}
		defer func() {
			select {
			case lb.Inbox() <- lobby.Unsubscribe{ClientID: clientID}:
			case <-lb.Done():
			}
		}()
		clog.Debug("client connected")

		// Writer goroutine: the only place that writes to conn.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			defer writeCancel()
			for {
				var msg types.ServerMessage
				select {
				case snap, ok := <-out:
					if !ok {
						// Lobby dropped us or shut down.
						conn.Close(websocket.StatusGoingAway, "session closed")
						return
					}
					msg = types.ServerMessage{
						Type:    pub.MsgStateSnapshot,
						Version: snap.Version,
						State:   pub.NewSnapshot(snap.Version, snap.State, snap.Book, snap.Commentary),
					}
				case msg = <-replies:
				case <-writeCtx.Done():
					return
				}
				if err := write(writeCtx, conn, msg); err != nil {
					clog.Debug("write failed", zap.Error(err))
					return
				}
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(writeCtx, idleTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					clog.Debug("client left")
				default:
					clog.Debug("read failed", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				queue(writeCtx, replies, types.Error(session.CodeInvalidArgument, errors.New("bad json")))
				continue
			}
			if player == "" {
				queue(writeCtx, replies, types.Error(session.CodeNotAParticipant, errors.New("read-only connection")))
				continue
			}

			callCtx, callCancel := context.WithTimeout(writeCtx, callTimeout)
			reply, err := dispatch(callCtx, svc, id, player, cm)
			callCancel()
			if err != nil {
				reply = types.Error(session.Code(err), err)
			}
			if reply.Type != "" {
				queue(writeCtx, replies, reply)
			}
		}
	}
}

// dispatch runs one client message. State changes reach the client through
// the snapshot stream; the reply carries only what a snapshot does not.
func dispatch(ctx context.Context, svc *session.Service, id, player string, m types.ClientMessage) (types.ServerMessage, error) {
	switch m.Type {
	case pub.MsgJoin:
		_, err := svc.JoinSession(ctx, id, player, m.Name)
		return types.ServerMessage{}, err
	case pub.MsgReady:
		_, err := svc.SetReady(ctx, id, player)
		return types.ServerMessage{}, err
	case pub.MsgRollScratch:
		res, err := svc.RollForScratch(ctx, id, player)
		if err != nil {
			return types.ServerMessage{}, err
		}
		return types.Result(pub.MsgScratchResult, res)
	case pub.MsgRollRace:
		res, err := svc.RollForRace(ctx, id, player)
		if err != nil {
			return types.ServerMessage{}, err
		}
		return types.Result(pub.MsgRaceResult, res)
	case pub.MsgEnterHorse:
		_, err := svc.EnterHorse(ctx, id, player, m.Horse, m.HorseName)
		return types.ServerMessage{}, err
	case pub.MsgPlaceBet:
		amount, err := decimal.NewFromString(m.Amount)
		if err != nil {
			return types.ServerMessage{}, errors.Join(session.ErrInvalidArgument, err)
		}
		ticket, err := svc.PlaceBet(ctx, id, betting.BetRequest{
			PlayerID: player,
			Horse:    m.Horse,
			Pool:     parimutuel.PoolType(m.Pool),
			Amount:   amount,
		})
		if err != nil {
			return types.ServerMessage{}, err
		}
		return types.Result(pub.MsgBetPlaced, ticket)
	case pub.MsgCancelBet:
		_, err := svc.CancelBet(ctx, id, player, m.TicketID)
		return types.ServerMessage{}, err
	default:
		return types.ServerMessage{}, errors.Join(session.ErrInvalidArgument, errUnknownType)
	}
}

func queue(ctx context.Context, replies chan<- types.ServerMessage, msg types.ServerMessage) {
	select {
	case replies <- msg:
	case <-ctx.Done():
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
