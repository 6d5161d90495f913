package rooms

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/roomcast-live/roomcast/internal/domain"
)

func TestEnsureRoomConcurrent(t *testing.T) {
	reg := NewRegistry()

	const workers = 32
	results := make([]*Room, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = reg.EnsureRoom("lab")
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if results[i] != results[0] {
			t.Fatalf("worker %d got a different room object", i)
		}
	}
	if got := len(reg.Rooms()); got != 1 {
		t.Fatalf("expected 1 room, got %d", got)
	}
}

func TestEnsureRoomDistinctIDs(t *testing.T) {
	reg := NewRegistry()
	for i := 0; i < 5; i++ {
		reg.EnsureRoom(fmt.Sprintf("room-%d", i))
	}
	if got := len(reg.Rooms()); got != 5 {
		t.Fatalf("expected 5 rooms, got %d", got)
	}
}

func TestGetPeerErrors(t *testing.T) {
	reg := NewRegistry()

	if _, err := reg.GetPeer("nope", "p1"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}

	room := reg.EnsureRoom("lab")
	if _, err := reg.GetPeer("lab", "p1"); !errors.Is(err, domain.ErrPeerNotFound) {
		t.Fatalf("expected ErrPeerNotFound, got %v", err)
	}

	room.AddPeer(NewPeer("p1", "lab", domain.RoleViewer, ""))
	peer, err := reg.GetPeer("lab", "p1")
	if err != nil {
		t.Fatalf("GetPeer: %v", err)
	}
	if peer.ID != "p1" || peer.RoomID != "lab" {
		t.Fatalf("unexpected peer %+v", peer)
	}
}

func TestRemovePeer(t *testing.T) {
	reg := NewRegistry()
	reg.EnsureRoom("lab").AddPeer(NewPeer("p1", "lab", domain.RoleViewer, ""))

	peer, ok := reg.RemovePeer("lab", "p1")
	if !ok || peer == nil {
		t.Fatal("expected peer to be removed")
	}
	if _, ok := reg.RemovePeer("lab", "p1"); ok {
		t.Fatal("second removal should report absence")
	}
	if _, ok := reg.RemovePeer("nope", "p1"); ok {
		t.Fatal("removal from unknown room should report absence")
	}
}
