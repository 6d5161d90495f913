package service

import (
	"fmt"
	"log/slog"

	"github.com/roomcast-live/roomcast/internal/domain"
	"github.com/roomcast-live/roomcast/internal/metrics"
	"github.com/roomcast-live/roomcast/internal/rooms"
)

// ConsumeRequest asks for a subscription to one producer over one of the
// peer's transports.
type ConsumeRequest struct {
	RoomID          string
	PeerID          string
	TransportID     string
	ProducerID      string
	RTPCapabilities []domain.Codec
}

// ConsumeResult describes the consumer handed back to the client. The
// consumer starts paused; media flows only after Resume.
type ConsumeResult struct {
	ConsumerID string
	ProducerID string
	Kind       domain.MediaKind
	Consumer   domain.MediaConsumer
}

type ConsumerService struct {
	registry *rooms.Registry
	router   domain.Router
}

func NewConsumerService(registry *rooms.Registry, router domain.Router) *ConsumerService {
	return &ConsumerService{
		registry: registry,
		router:   router,
	}
}

// Consume subscribes a peer to a producer. Compatibility is checked before
// anything is allocated, so a rejected consume leaves no state behind. The
// router call runs outside room state; afterwards both the peer and the
// producer are re-checked, and a consumer built for a session or source that
// vanished in the meantime is closed instead of registered.
func (s *ConsumerService) Consume(req ConsumeRequest) (ConsumeResult, error) {
	peer, err := s.registry.GetPeer(req.RoomID, req.PeerID)
	if err != nil {
		return ConsumeResult{}, err
	}
	transport, ok := peer.Transport(req.TransportID)
	if !ok {
		return ConsumeResult{}, domain.ErrTransportNotFound
	}
	room, _ := s.registry.GetRoom(req.RoomID)
	if _, ok := room.Producer(req.ProducerID); !ok {
		return ConsumeResult{}, domain.ErrProducerNotFound
	}

	if !s.router.CanConsume(req.ProducerID, req.RTPCapabilities) {
		metrics.ConsumeRejectionsTotal.Inc()
		return ConsumeResult{}, domain.ErrCannotConsume
	}

	consumer, err := transport.Consume(req.ProducerID, req.RTPCapabilities)
	if err != nil {
		return ConsumeResult{}, fmt.Errorf("consuming producer %s: %w", req.ProducerID, err)
	}

	if _, err := s.registry.GetPeer(req.RoomID, req.PeerID); err != nil {
		consumer.Close()
		return ConsumeResult{}, err
	}
	if _, ok := room.Producer(req.ProducerID); !ok {
		consumer.Close()
		return ConsumeResult{}, domain.ErrProducerNotFound
	}

	peer.AddConsumer(&rooms.ConsumerRef{Consumer: consumer, TransportID: req.TransportID})
	metrics.ActiveConsumers.Inc()
	consumerID := consumer.ID()
	consumer.OnClose(func() {
		peer.RemoveConsumer(consumerID)
		metrics.ActiveConsumers.Dec()
	})

	slog.Info("consumer created",
		"roomID", req.RoomID, "peerID", req.PeerID, "consumerID", consumerID, "producerID", req.ProducerID)

	return ConsumeResult{
		ConsumerID: consumerID,
		ProducerID: consumer.ProducerID(),
		Kind:       consumer.Kind(),
		Consumer:   consumer,
	}, nil
}

// Resume unpauses a consumer so media starts flowing. Resuming a consumer
// that is already running or no longer exists does nothing.
func (s *ConsumerService) Resume(roomID, peerID, consumerID string) {
	peer, err := s.registry.GetPeer(roomID, peerID)
	if err != nil {
		return
	}
	ref, ok := peer.Consumer(consumerID)
	if !ok {
		return
	}
	if !ref.Consumer.Paused() {
		return
	}
	if err := ref.Consumer.Resume(); err != nil {
		slog.Error("failed to resume consumer", "roomID", roomID, "consumerID", consumerID, "error", err)
		return
	}
	slog.Debug("consumer resumed", "roomID", roomID, "peerID", peerID, "consumerID", consumerID)
}
