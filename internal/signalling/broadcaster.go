package signalling

import (
	"log/slog"
	"sync"

	"github.com/roomcast-live/roomcast/internal/api"
	"github.com/roomcast-live/roomcast/internal/domain"
	"github.com/roomcast-live/roomcast/internal/metrics"
	"github.com/roomcast-live/roomcast/internal/sockets"
)

// Broadcaster fans room events out to joined sockets. Delivery is
// fire-and-forget: each recipient gets its own goroutine, so one slow or dead
// connection never delays the others.
type Broadcaster struct {
	mu    sync.Mutex
	rooms map[string]map[string]*member
}

type member struct {
	socket sockets.Socket
	role   domain.Role

	// joining members buffer producer events until Activate reconciles the
	// backlog against the join snapshot.
	joining bool
	backlog []api.ServerMessage
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		rooms: make(map[string]map[string]*member),
	}
}

// Subscribe adds a peer's socket to its room's broadcast group in a joining
// state: producer events are buffered rather than sent. The caller subscribes
// before taking the join snapshot and calls Activate after, so every producer
// event lands either in the snapshot or in the backlog, never in the gap
// between the two.
func (b *Broadcaster) Subscribe(roomID, peerID string, role domain.Role, socket sockets.Socket) {
	b.mu.Lock()
	defer b.mu.Unlock()
	group, ok := b.rooms[roomID]
	if !ok {
		group = make(map[string]*member)
		b.rooms[roomID] = group
	}
	group[peerID] = &member{socket: socket, role: role, joining: true}
}

// Activate flushes a joining peer's backlog against its join snapshot and
// switches it to live delivery. A new-producer event for a producer already
// in the snapshot is dropped, so the peer never observes a producer twice; a
// producer-closed event is kept only for producers the peer knows about.
func (b *Broadcaster) Activate(roomID, peerID string, snapshotIDs []string) {
	known := make(map[string]bool, len(snapshotIDs))
	for _, id := range snapshotIDs {
		known[id] = true
	}

	b.mu.Lock()
	m := b.rooms[roomID][peerID]
	if m == nil || !m.joining {
		b.mu.Unlock()
		return
	}
	m.joining = false
	backlog := m.backlog
	m.backlog = nil
	socket := m.socket
	b.mu.Unlock()

	var flush []api.ServerMessage
	for _, msg := range backlog {
		switch msg.Event {
		case api.ServerEventNewProducer:
			if known[msg.NewProducer.ID] {
				continue
			}
			known[msg.NewProducer.ID] = true
		case api.ServerEventProducerClosed:
			if !known[msg.ProducerClosed.ProducerID] {
				continue
			}
		}
		flush = append(flush, msg)
	}
	if len(flush) == 0 {
		return
	}

	// One goroutine for the whole backlog keeps the events in order.
	go func() {
		for _, msg := range flush {
			b.write(socket, msg)
		}
	}()
	metrics.BroadcastRecipientsTotal.Add(float64(len(flush)))
}

func (b *Broadcaster) Unsubscribe(roomID, peerID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if group, ok := b.rooms[roomID]; ok {
		delete(group, peerID)
		if len(group) == 0 {
			delete(b.rooms, roomID)
		}
	}
}

// ProducerAvailable announces a new producer to everyone in the room except
// the producing peer.
func (b *Broadcaster) ProducerAvailable(roomID, exceptPeerID string, info domain.ProducerInfo) {
	wire := api.ToProducerInfo(info)
	msg := api.ServerMessage{
		Event:       api.ServerEventNewProducer,
		NewProducer: &wire,
	}
	b.send(roomID, exceptPeerID, msg)
}

// ProducerClosed announces a closed producer to everyone in the room.
func (b *Broadcaster) ProducerClosed(roomID, producerID string) {
	msg := api.ServerMessage{
		Event:          api.ServerEventProducerClosed,
		ProducerClosed: &api.ProducerClosedMessage{ProducerID: producerID},
	}
	b.send(roomID, "", msg)
}

// CameraControl relays a start-camera or stop-camera request to every
// connected publisher bot, across all rooms.
func (b *Broadcaster) CameraControl(event api.ServerEvent, msg api.CameraControlMessage) {
	out := api.ServerMessage{Event: event, Camera: &msg}

	b.mu.Lock()
	var targets []sockets.Socket
	for _, group := range b.rooms {
		for _, m := range group {
			if m.role == domain.RolePublisherBot {
				targets = append(targets, m.socket)
			}
		}
	}
	b.mu.Unlock()

	if len(targets) == 0 {
		slog.Warn("camera control with no connected publisher bots", "event", event, "cameraID", msg.ID)
	}
	for _, socket := range targets {
		go b.write(socket, out)
	}
	metrics.BroadcastRecipientsTotal.Add(float64(len(targets)))
}

func (b *Broadcaster) send(roomID, exceptPeerID string, msg api.ServerMessage) {
	b.mu.Lock()
	var targets []sockets.Socket
	for peerID, m := range b.rooms[roomID] {
		if peerID == exceptPeerID {
			continue
		}
		if m.joining {
			m.backlog = append(m.backlog, msg)
			continue
		}
		targets = append(targets, m.socket)
	}
	b.mu.Unlock()

	for _, socket := range targets {
		go b.write(socket, msg)
	}
	metrics.BroadcastRecipientsTotal.Add(float64(len(targets)))
}

func (b *Broadcaster) write(socket sockets.Socket, msg api.ServerMessage) {
	if err := socket.WriteJSON(msg); err != nil {
		slog.Debug("broadcast write failed", "socketID", socket.ID(), "event", msg.Event, "error", err)
	}
}
