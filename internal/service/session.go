package service

import (
	"fmt"
	"log/slog"

	"github.com/roomcast-live/roomcast/internal/domain"
	"github.com/roomcast-live/roomcast/internal/metrics"
	"github.com/roomcast-live/roomcast/internal/rooms"
)

// JoinResult is everything a freshly joined peer needs to start negotiating.
type JoinResult struct {
	RTPCapabilities []domain.Codec
	Producers       []domain.ProducerInfo
}

type SessionService struct {
	registry  *rooms.Registry
	router    domain.Router
	producers *ProducerService
	presence  *PresenceService
}

func NewSessionService(registry *rooms.Registry, router domain.Router, producers *ProducerService, presence *PresenceService) *SessionService {
	return &SessionService{
		registry:  registry,
		router:    router,
		producers: producers,
		presence:  presence,
	}
}

// Join places a peer into a room, creating the room on first reference. The
// returned snapshot lists producers in creation order so late joiners can
// consume everything already live.
func (s *SessionService) Join(roomID, peerID string, role domain.Role, publisherID string) (JoinResult, error) {
	room := s.registry.EnsureRoom(roomID)

	peer := rooms.NewPeer(peerID, roomID, role, publisherID)
	room.AddPeer(peer)

	if role.IsPublisher() && publisherID != "" {
		s.presence.Touch(roomID, publisherID)
	}

	slog.Info("peer joined", "roomID", roomID, "peerID", peerID, "role", role)
	metrics.PeersJoinedTotal.WithLabelValues(string(role)).Inc()
	metrics.ActivePeers.WithLabelValues(string(role)).Inc()

	return JoinResult{
		RTPCapabilities: s.router.RTPCapabilities(),
		Producers:       room.ProducerInfos(),
	}, nil
}

// CreateTransport allocates a transport on the media router and attaches it to
// the peer. The router call happens outside any room state, so the peer is
// re-checked afterwards: if it disconnected in the meantime the transport is
// closed and discarded instead of being leaked into a dead session.
func (s *SessionService) CreateTransport(roomID, peerID string, direction domain.TransportDirection) (domain.Transport, error) {
	if !direction.Valid() {
		return nil, domain.ErrInvalidDirection
	}
	peer, err := s.registry.GetPeer(roomID, peerID)
	if err != nil {
		return nil, err
	}

	transport, err := s.router.CreateTransport(direction)
	if err != nil {
		return nil, fmt.Errorf("creating %s transport: %w", direction, err)
	}

	if _, err := s.registry.GetPeer(roomID, peerID); err != nil {
		transport.Close()
		return nil, err
	}

	peer.AddTransport(transport)
	metrics.ActiveTransports.WithLabelValues(string(direction)).Inc()
	transportID := transport.ID()
	transport.OnClose(func() {
		peer.RemoveTransport(transportID)
		metrics.ActiveTransports.WithLabelValues(string(direction)).Dec()
	})

	slog.Debug("transport created", "roomID", roomID, "peerID", peerID, "transportID", transportID, "direction", direction)
	return transport, nil
}

// ConnectTransport finishes transport negotiation with the client's remote
// parameters and returns the engine's reply, if any.
func (s *SessionService) ConnectTransport(roomID, peerID, transportID string, params domain.ConnectParams) (domain.ConnectParams, error) {
	peer, err := s.registry.GetPeer(roomID, peerID)
	if err != nil {
		return nil, err
	}
	transport, ok := peer.Transport(transportID)
	if !ok {
		return nil, domain.ErrTransportNotFound
	}
	reply, err := transport.Connect(params)
	if err != nil {
		return nil, fmt.Errorf("connecting transport %s: %w", transportID, err)
	}
	slog.Debug("transport connected", "roomID", roomID, "peerID", peerID, "transportID", transportID)
	return reply, nil
}

// Disconnect tears a peer down: the peer leaves the room first so no new
// operations can target it, then its consumers, producers, and transports are
// closed. Producer closes funnel through the usual close path, so each one
// broadcasts producer-closed exactly once.
func (s *SessionService) Disconnect(roomID, peerID string) {
	peer, ok := s.registry.RemovePeer(roomID, peerID)
	if !ok {
		return
	}

	for _, ref := range peer.Consumers() {
		ref.Consumer.Close()
	}
	for _, producerID := range peer.Producers() {
		s.producers.CloseProducer(roomID, producerID)
	}
	for _, transport := range peer.Transports() {
		transport.Close()
	}

	metrics.ActivePeers.WithLabelValues(string(peer.Role)).Dec()
	slog.Info("peer disconnected", "roomID", roomID, "peerID", peerID)
}
