package hub

import (
	"context"

	"github.com/DoyleJ11/scratch-race-backend/internal/lobby"
)

// Factory starts the actor for one session.
type Factory func(ctx context.Context, id string) *lobby.Lobby

// DepsFactory builds lobbies that share one set of dependencies.
func DepsFactory(deps lobby.Deps) Factory {
	return func(ctx context.Context, id string) *lobby.Lobby {
		return lobby.NewLobby(ctx, id, deps)
	}
}

type HubMsg interface{ isHubMsg() }

type GetLobby struct {
	ID    string
	Reply chan *lobby.Lobby
}

// EnsureLobby returns the running lobby for ID, starting one if needed.
// The lobby reads its state from the store, so nothing is passed here.
type EnsureLobby struct {
	ID    string
	Reply chan *lobby.Lobby
}

type RemoveLobby struct {
	ID string
}

type CountLobbies struct {
	Reply chan int
}

type ShutdownHub struct {
	Done chan struct{} // optional, closed once every lobby was told to stop
}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	factory Factory
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func (GetLobby) isHubMsg()     {}
func (EnsureLobby) isHubMsg()  {}
func (RemoveLobby) isHubMsg()  {}
func (CountLobbies) isHubMsg() {}
func (ShutdownHub) isHubMsg()  {}

func NewHub(parent context.Context, factory Factory) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		factory: factory,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the hub has stopped.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Remove asks the hub to stop and forget a lobby. It gives up if the hub is
// gone or ctx ends first.
func (h *Hub) Remove(ctx context.Context, id string) {
	select {
	case h.inbox <- RemoveLobby{ID: id}:
	case <-h.done:
	case <-ctx.Done():
	}
}

// Ensure is the blocking form of EnsureLobby.
func (h *Hub) Ensure(ctx context.Context, id string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	select {
	case h.inbox <- EnsureLobby{ID: id, Reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case lb := <-reply:
		return lb, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case GetLobby:
				msg.Reply <- h.running(msg.ID) // May be nil

			case EnsureLobby:
				if lb := h.running(msg.ID); lb != nil {
					msg.Reply <- lb
					break
				}
				lb := h.factory(h.ctx, msg.ID)
				h.lobbies[msg.ID] = lb
				msg.Reply <- lb

			case RemoveLobby:
				if lb := h.lobbies[msg.ID]; lb != nil {
					select {
					case lb.Inbox() <- lobby.Shutdown{}:
					case <-lb.Done():
					}
				}
				delete(h.lobbies, msg.ID)

			case CountLobbies:
				msg.Reply <- len(h.lobbies)

			case ShutdownHub:
				h.shutdown()
				if msg.Done != nil {
					close(msg.Done)
				}
				return
			}
		}
	}
}

// running drops lobbies that stopped on their own.
func (h *Hub) running(id string) *lobby.Lobby {
	lb := h.lobbies[id]
	if lb == nil {
		return nil
	}
	select {
	case <-lb.Done():
		delete(h.lobbies, id)
		return nil
	default:
		return lb
	}
}

func (h *Hub) shutdown() {
	for id, lb := range h.lobbies {
		select {
		case lb.Inbox() <- lobby.Shutdown{}:
		case <-lb.Done():
		}
		delete(h.lobbies, id)
	}
	h.cancel()
}
