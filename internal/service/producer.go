package service

import (
	"fmt"
	"log/slog"

	"github.com/pion/webrtc/v4"

	"github.com/roomcast-live/roomcast/internal/domain"
	"github.com/roomcast-live/roomcast/internal/metrics"
	"github.com/roomcast-live/roomcast/internal/rooms"
)

// ProduceRequest carries everything needed to publish a track into a room.
type ProduceRequest struct {
	RoomID      string
	PeerID      string
	TransportID string
	Kind        domain.MediaKind
	Params      webrtc.RTPCodecParameters
	Label       string
	Path        string
}

type ProducerService struct {
	registry *rooms.Registry
	notifier Notifier
}

func NewProducerService(registry *rooms.Registry, notifier Notifier) *ProducerService {
	return &ProducerService{
		registry: registry,
		notifier: notifier,
	}
}

// Produce publishes a new track on one of the peer's send transports and
// announces it to the rest of the room. If the peer disconnects while the
// router is setting the producer up, the half-built producer is closed and
// discarded rather than registered against a dead session.
func (s *ProducerService) Produce(req ProduceRequest) (domain.ProducerInfo, error) {
	peer, err := s.registry.GetPeer(req.RoomID, req.PeerID)
	if err != nil {
		return domain.ProducerInfo{}, err
	}
	transport, ok := peer.Transport(req.TransportID)
	if !ok {
		return domain.ProducerInfo{}, domain.ErrTransportNotFound
	}
	if transport.Direction() != domain.DirectionSend {
		return domain.ProducerInfo{}, domain.ErrInvalidDirection
	}

	producer, err := transport.Produce(req.Kind, req.Params)
	if err != nil {
		return domain.ProducerInfo{}, fmt.Errorf("producing %s track: %w", req.Kind, err)
	}

	room, ok := s.registry.GetRoom(req.RoomID)
	if !ok {
		producer.Close()
		return domain.ProducerInfo{}, domain.ErrRoomNotFound
	}
	if _, ok := room.Peer(req.PeerID); !ok {
		producer.Close()
		return domain.ProducerInfo{}, domain.ErrPeerNotFound
	}

	info := domain.ProducerInfo{
		ID:    producer.ID(),
		Kind:  req.Kind,
		Label: req.Label,
		Path:  req.Path,
	}
	rec := rooms.NewProducerRecord(info, req.PeerID, producer)
	room.AddProducer(rec)
	peer.AddProducer(info.ID)

	closeFn := func() { s.closeProducer(room, rec) }
	producer.OnClose(closeFn)
	transport.OnClose(closeFn)

	metrics.ProducersCreatedTotal.WithLabelValues(string(req.Kind), "peer").Inc()
	slog.Info("producer created",
		"roomID", req.RoomID, "peerID", req.PeerID, "producerID", info.ID, "kind", req.Kind, "label", req.Label)

	s.notifier.ProducerAvailable(req.RoomID, req.PeerID, info)
	return info, nil
}

// Register attaches an externally created producer (ingest) to a room and
// announces it to every peer. The owner is empty: the producer outlives any
// one peer and is torn down only when its media path closes.
func (s *ProducerService) Register(roomID string, rec *rooms.ProducerRecord, transport domain.Transport) {
	room := s.registry.EnsureRoom(roomID)
	room.AddProducer(rec)

	closeFn := func() { s.closeProducer(room, rec) }
	rec.Handle.OnClose(closeFn)
	if transport != nil {
		transport.OnClose(closeFn)
	}

	metrics.ProducersCreatedTotal.WithLabelValues(string(rec.Info.Kind), "ingest").Inc()
	s.notifier.ProducerAvailable(roomID, rec.OwnerID, rec.Info)
}

// ListProducers returns the room's producers in creation order. An unknown
// room yields an empty list, matching what a peer would see joining it.
func (s *ProducerService) ListProducers(roomID string) []domain.ProducerInfo {
	room, ok := s.registry.GetRoom(roomID)
	if !ok {
		return nil
	}
	return room.ProducerInfos()
}

// GetProducerInfo returns the descriptive record of one producer.
func (s *ProducerService) GetProducerInfo(roomID, producerID string) (domain.ProducerInfo, error) {
	room, ok := s.registry.GetRoom(roomID)
	if !ok {
		return domain.ProducerInfo{}, domain.ErrRoomNotFound
	}
	rec, ok := room.Producer(producerID)
	if !ok {
		return domain.ProducerInfo{}, domain.ErrProducerNotFound
	}
	return rec.Info, nil
}

// CloseProducer closes a producer by id. Closing one that is already gone is
// a no-op.
func (s *ProducerService) CloseProducer(roomID, producerID string) {
	room, ok := s.registry.GetRoom(roomID)
	if !ok {
		return
	}
	rec, ok := room.Producer(producerID)
	if !ok {
		return
	}
	s.closeProducer(room, rec)
}

// closeProducer is the single funnel for every producer close path: explicit
// close, owning transport close, peer disconnect, and ingest teardown all end
// up here, and the once-guard on the record makes the removal and the
// producer-closed broadcast happen exactly once.
func (s *ProducerService) closeProducer(room *rooms.Room, rec *rooms.ProducerRecord) {
	rec.CloseOnce(func() {
		producerID := rec.Info.ID
		room.RemoveProducer(producerID)
		if rec.OwnerID != "" {
			if peer, ok := room.Peer(rec.OwnerID); ok {
				peer.RemoveProducer(producerID)
			}
		}
		rec.Handle.Close()

		metrics.ProducerClosedBroadcastsTotal.Inc()
		slog.Info("producer closed", "roomID", room.ID, "producerID", producerID)
		s.notifier.ProducerClosed(room.ID, producerID)
	})
}
