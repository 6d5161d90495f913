package service

import "github.com/roomcast-live/roomcast/internal/domain"

// Notifier delivers room lifecycle events to connected peers. Delivery is
// fire-and-forget: implementations must never block on a slow recipient and
// must never fail the calling operation.
type Notifier interface {
	// ProducerAvailable announces a new producer to every peer in the room
	// except the producing peer itself (exceptPeerID may be empty for
	// ingest-created producers, which are announced to everyone).
	ProducerAvailable(roomID, exceptPeerID string, info domain.ProducerInfo)

	// ProducerClosed announces that a producer is gone to every peer in the
	// room.
	ProducerClosed(roomID, producerID string)
}
