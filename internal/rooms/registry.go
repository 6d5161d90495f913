package rooms

import (
	"sync"

	"github.com/roomcast-live/roomcast/internal/domain"
	"github.com/roomcast-live/roomcast/internal/metrics"
)

// Registry is the process-wide room table. Rooms are created lazily on first
// reference and never garbage-collected; see the eviction note in DESIGN.md.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
	}
}

// EnsureRoom returns the room for id, creating it if this is the first
// reference. Safe under concurrent invocation for the same unseen id: exactly
// one Room object is ever created per id.
func (r *Registry) EnsureRoom(id string) *Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.rooms[id]; ok {
		return room
	}

	room := newRoom(id)
	r.rooms[id] = room
	metrics.ActiveRooms.Set(float64(len(r.rooms)))
	return room
}

// GetRoom returns the room for id without creating it.
func (r *Registry) GetRoom(id string) (*Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	return room, ok
}

// GetPeer looks up a peer inside a room, reporting which of the two was
// missing.
func (r *Registry) GetPeer(roomID, peerID string) (*Peer, error) {
	room, ok := r.GetRoom(roomID)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	peer, ok := room.Peer(peerID)
	if !ok {
		return nil, domain.ErrPeerNotFound
	}
	return peer, nil
}

// RemovePeer detaches a peer from its room, returning it so the caller can
// tear down its media state.
func (r *Registry) RemovePeer(roomID, peerID string) (*Peer, bool) {
	room, ok := r.GetRoom(roomID)
	if !ok {
		return nil, false
	}
	return room.RemovePeer(peerID)
}

// Rooms returns a snapshot of all rooms.
func (r *Registry) Rooms() []*Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room)
	}
	return out
}
