package hub

import (
	"context"
	"testing"
	"time"

	"github.com/DoyleJ11/scratch-race-backend/internal/engine"
	"github.com/DoyleJ11/scratch-race-backend/internal/lobby"
	"github.com/DoyleJ11/scratch-race-backend/internal/store"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	deps := lobby.Deps{
		Repo: store.NewSessions(store.NewMemory()),
		Dice: engine.NewScriptedDice(),
	}
	h := NewHub(context.Background(), DepsFactory(deps))
	t.Cleanup(func() { h.Inbox() <- ShutdownHub{} })
	return h
}

func TestHub_Ensure_Get_SamePointer(t *testing.T) {
	h := newTestHub(t)
	reply := make(chan *lobby.Lobby, 1)

	h.Inbox() <- EnsureLobby{ID: "ZED123", Reply: reply}
	lb1 := <-reply

	h.Inbox() <- GetLobby{ID: "ZED123", Reply: reply}
	lb2 := <-reply

	if lb1 == nil || lb2 == nil || lb1 != lb2 {
		t.Fatalf("expected same lobby pointer")
	}

	lb3, err := h.Ensure(context.Background(), "ZED123")
	if err != nil || lb3 != lb1 {
		t.Fatalf("Ensure returned %p, %v; want %p", lb3, err, lb1)
	}
}

func TestHub_GetUnknownIsNil(t *testing.T) {
	h := newTestHub(t)
	reply := make(chan *lobby.Lobby, 1)
	h.Inbox() <- GetLobby{ID: "NOPE", Reply: reply}
	if lb := <-reply; lb != nil {
		t.Fatalf("expected nil lobby, got %v", lb.ID())
	}
}

func TestHub_RemoveStopsLobby(t *testing.T) {
	h := newTestHub(t)
	lb, err := h.Ensure(context.Background(), "GONE")
	if err != nil {
		t.Fatal(err)
	}
	h.Inbox() <- RemoveLobby{ID: "GONE"}

	select {
	case <-lb.Done():
	case <-time.After(time.Second):
		t.Fatalf("removed lobby still running")
	}

	count := make(chan int, 1)
	h.Inbox() <- CountLobbies{Reply: count}
	if n := <-count; n != 0 {
		t.Fatalf("expected 0 lobbies, got %d", n)
	}

	again, err := h.Ensure(context.Background(), "GONE")
	if err != nil || again == lb {
		t.Fatalf("expected a fresh lobby after removal")
	}
}

func TestHub_ShutdownStopsEveryLobby(t *testing.T) {
	deps := lobby.Deps{Repo: store.NewSessions(store.NewMemory()), Dice: engine.NewScriptedDice()}
	h := NewHub(context.Background(), DepsFactory(deps))
	a, _ := h.Ensure(context.Background(), "A")
	b, _ := h.Ensure(context.Background(), "B")

	done := make(chan struct{})
	h.Inbox() <- ShutdownHub{Done: done}
	<-done

	for _, lb := range []*lobby.Lobby{a, b} {
		select {
		case <-lb.Done():
		case <-time.After(time.Second):
			t.Fatalf("lobby %s still running", lb.ID())
		}
	}
}

func TestHub_RemoveStoppedLobbyWithFullInbox(t *testing.T) {
	h := newTestHub(t)
	lb, err := h.Ensure(context.Background(), "FULL")
	if err != nil {
		t.Fatal(err)
	}
	lb.Inbox() <- lobby.Shutdown{}
	<-lb.Done()
	for filled := false; !filled; {
		select {
		case lb.Inbox() <- lobby.Subscribe{ClientID: "x"}:
		default:
			filled = true
		}
	}

	h.Remove(context.Background(), "FULL")
	count := make(chan int, 1)
	h.Inbox() <- CountLobbies{Reply: count}
	select {
	case n := <-count:
		if n != 0 {
			t.Fatalf("expected 0 lobbies, got %d", n)
		}
	case <-time.After(time.Second):
		t.Fatalf("hub stuck removing a stopped lobby")
	}
}

func TestHub_RemoveAfterShutdownReturns(t *testing.T) {
	deps := lobby.Deps{Repo: store.NewSessions(store.NewMemory()), Dice: engine.NewScriptedDice()}
	h := NewHub(context.Background(), DepsFactory(deps))
	done := make(chan struct{})
	h.Inbox() <- ShutdownHub{Done: done}
	<-done
	<-h.Done()

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for i := 0; i < 200; i++ {
			h.Remove(context.Background(), "GONE")
		}
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatalf("Remove blocked on a stopped hub")
	}
}
