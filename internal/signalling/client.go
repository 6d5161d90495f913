package signalling

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/roomcast-live/roomcast/internal/api"
	"github.com/roomcast-live/roomcast/internal/domain"
	"github.com/roomcast-live/roomcast/internal/metrics"
	"github.com/roomcast-live/roomcast/internal/service"
	"github.com/roomcast-live/roomcast/internal/sockets"
)

// clientSession is the per-connection signalling state. The peer id is the
// socket id; room and role are fixed at join time.
type clientSession struct {
	server *Server
	socket sockets.Socket
	peerID string

	roomID      string
	role        domain.Role
	publisherID string
	joined      bool
}

// listenClientSocket runs the connection's read loop until the peer
// disconnects, then tears the session down.
func (s *Server) listenClientSocket(c *websocket.Conn) {
	socket := s.clientSockets.AddSocket(c)
	session := &clientSession{
		server: s,
		socket: socket,
		peerID: string(socket.ID()),
	}
	slog.Info("client connected", "socketID", socket.ID())
	metrics.ActiveWebSocketConnections.Inc()
	metrics.WebSocketConnectionsTotal.Inc()

	pingQuit := make(chan struct{})
	go pingLoop(socket, time.Duration(s.cfgManager.Get().Server.PingInterval)*time.Millisecond, pingQuit)

	defer func() {
		close(pingQuit)
		session.disconnect()
		s.clientSockets.CloseSocket(socket.ID())
		metrics.ActiveWebSocketConnections.Dec()
		metrics.WebSocketDisconnectionsTotal.Inc()
	}()

	var message api.ClientMessage
	for {
		if err := socket.ReadJSON(&message); err != nil {
			slog.Debug("client disconnected", "socketID", socket.ID(), "error", err)
			return
		}
		session.dispatch(message)
		message = api.ClientMessage{}
	}
}

// pingLoop sends periodic pings until the connection goes away or quit is
// closed.
func pingLoop(socket sockets.Socket, interval time.Duration, quit <-chan struct{}) {
	pinger := time.NewTicker(interval)
	defer pinger.Stop()
	for {
		select {
		case <-pinger.C:
			msg := api.ServerMessage{
				Event: api.ServerEventPing,
				Ping:  &api.PingMessage{Timestamp: time.Now().Unix()},
			}
			if err := socket.WriteJSON(msg); err != nil {
				return
			}
		case <-quit:
			return
		}
	}
}

// dispatch handles one signalling request. A handler failure is returned to
// this caller as an error acknowledgment and never affects other peers.
func (cs *clientSession) dispatch(msg api.ClientMessage) {
	metrics.SignallingMessagesTotal.WithLabelValues(string(msg.Event), "in").Inc()

	var err error
	switch msg.Event {
	case api.ClientEventJoin:
		err = cs.handleJoin(msg)
	case api.ClientEventCreateTransport:
		err = cs.handleCreateTransport(msg)
	case api.ClientEventConnectTransport:
		err = cs.handleConnectTransport(msg)
	case api.ClientEventProduce:
		err = cs.handleProduce(msg)
	case api.ClientEventListProducers:
		err = cs.handleListProducers(msg)
	case api.ClientEventGetProducerInfo:
		err = cs.handleGetProducerInfo(msg)
	case api.ClientEventConsume:
		err = cs.handleConsume(msg)
	case api.ClientEventResume:
		err = cs.handleResume(msg)
	case api.ClientEventListPublishers:
		err = cs.handleListPublishers(msg)
	case api.ClientEventStartCamera:
		err = cs.handleCameraControl(api.ServerEventStartCamera, msg)
	case api.ClientEventStopCamera:
		err = cs.handleCameraControl(api.ServerEventStopCamera, msg)
	case api.ClientEventPublisherKeepalive:
		err = cs.handleKeepalive(msg)
	case api.ClientEventPong:
		// liveness only
	default:
		err = fmt.Errorf("unknown event %q", msg.Event)
	}

	if err != nil {
		slog.Warn("signalling request failed",
			"socketID", cs.socket.ID(), "event", msg.Event, "error", err)
		metrics.SignallingErrorsTotal.WithLabelValues(string(msg.Event)).Inc()
		cs.reply(api.ServerMessage{
			Event: api.ServerEventError,
			Txn:   msg.Txn,
			Error: &api.ErrorMessage{Code: api.ErrorCode(err), Message: err.Error()},
		})
	}
}

func (cs *clientSession) reply(msg api.ServerMessage) {
	metrics.SignallingMessagesTotal.WithLabelValues(string(msg.Event), "out").Inc()
	if err := cs.socket.WriteJSON(msg); err != nil {
		slog.Debug("failed to send reply", "socketID", cs.socket.ID(), "event", msg.Event, "error", err)
	}
}

func (cs *clientSession) handleJoin(msg api.ClientMessage) error {
	if msg.Join == nil {
		return fmt.Errorf("join payload missing")
	}
	if cs.joined {
		return fmt.Errorf("already joined room %q", cs.roomID)
	}
	role := domain.Role(msg.Join.Role)
	if role == "" {
		role = domain.RoleViewer
	}

	// Subscribe before taking the producer snapshot so a producer appearing
	// in between is buffered by the broadcaster instead of lost; Activate
	// reconciles the buffer against the snapshot after the joined reply.
	cs.server.broadcaster.Subscribe(msg.Join.RoomID, cs.peerID, role, cs.socket)

	result, err := cs.server.sessions.Join(msg.Join.RoomID, cs.peerID, role, msg.Join.PublisherID)
	if err != nil {
		cs.server.broadcaster.Unsubscribe(msg.Join.RoomID, cs.peerID)
		return err
	}

	cs.roomID = msg.Join.RoomID
	cs.role = role
	cs.publisherID = msg.Join.PublisherID
	cs.joined = true

	cs.reply(api.ServerMessage{
		Event: api.ServerEventJoined,
		Txn:   msg.Txn,
		Joined: &api.JoinedMessage{
			PeerID:          cs.peerID,
			RoomID:          cs.roomID,
			RTPCapabilities: result.RTPCapabilities,
			Producers:       api.ToProducerInfos(result.Producers),
		},
	})

	snapshot := make([]string, len(result.Producers))
	for i, p := range result.Producers {
		snapshot[i] = p.ID
	}
	cs.server.broadcaster.Activate(cs.roomID, cs.peerID, snapshot)
	return nil
}

func (cs *clientSession) handleCreateTransport(msg api.ClientMessage) error {
	if !cs.joined {
		return domain.ErrPeerNotFound
	}
	if msg.CreateTransport == nil {
		return fmt.Errorf("createTransport payload missing")
	}
	direction := domain.TransportDirection(msg.CreateTransport.Direction)

	transport, err := cs.server.sessions.CreateTransport(cs.roomID, cs.peerID, direction)
	if err != nil {
		return err
	}

	cs.reply(api.ServerMessage{
		Event: api.ServerEventTransportCreated,
		Txn:   msg.Txn,
		TransportCreated: &api.TransportCreatedMessage{
			TransportID: transport.ID(),
			Direction:   string(transport.Direction()),
		},
	})
	return nil
}

func (cs *clientSession) handleConnectTransport(msg api.ClientMessage) error {
	if !cs.joined {
		return domain.ErrPeerNotFound
	}
	if msg.ConnectTransport == nil {
		return fmt.Errorf("connectTransport payload missing")
	}

	reply, err := cs.server.sessions.ConnectTransport(cs.roomID, cs.peerID, msg.ConnectTransport.TransportID, msg.ConnectTransport.Params)
	if err != nil {
		return err
	}

	cs.reply(api.ServerMessage{
		Event: api.ServerEventTransportConnected,
		Txn:   msg.Txn,
		TransportConnected: &api.TransportIDMessage{
			TransportID: msg.ConnectTransport.TransportID,
			Params:      reply,
		},
	})
	return nil
}

func (cs *clientSession) handleProduce(msg api.ClientMessage) error {
	if !cs.joined {
		return domain.ErrPeerNotFound
	}
	if msg.Produce == nil {
		return fmt.Errorf("produce payload missing")
	}

	info, err := cs.server.producers.Produce(service.ProduceRequest{
		RoomID:      cs.roomID,
		PeerID:      cs.peerID,
		TransportID: msg.Produce.TransportID,
		Kind:        domain.MediaKind(msg.Produce.Kind),
		Params:      msg.Produce.Params,
		Label:       msg.Produce.Label,
		Path:        msg.Produce.Path,
	})
	if err != nil {
		return err
	}

	cs.reply(api.ServerMessage{
		Event:    api.ServerEventProduced,
		Txn:      msg.Txn,
		Produced: &api.ProducedMessage{ProducerID: info.ID},
	})
	return nil
}

func (cs *clientSession) handleListProducers(msg api.ClientMessage) error {
	if !cs.joined {
		return domain.ErrPeerNotFound
	}
	cs.reply(api.ServerMessage{
		Event:     api.ServerEventProducers,
		Txn:       msg.Txn,
		Producers: api.ToProducerInfos(cs.server.producers.ListProducers(cs.roomID)),
	})
	return nil
}

func (cs *clientSession) handleGetProducerInfo(msg api.ClientMessage) error {
	if !cs.joined {
		return domain.ErrPeerNotFound
	}
	if msg.GetProducerInfo == nil {
		return fmt.Errorf("getProducerInfo payload missing")
	}

	info, err := cs.server.producers.GetProducerInfo(cs.roomID, msg.GetProducerInfo.ProducerID)
	if err != nil {
		return err
	}

	wire := api.ToProducerInfo(info)
	cs.reply(api.ServerMessage{
		Event:        api.ServerEventProducerInfo,
		Txn:          msg.Txn,
		ProducerInfo: &wire,
	})
	return nil
}

func (cs *clientSession) handleConsume(msg api.ClientMessage) error {
	if !cs.joined {
		return domain.ErrPeerNotFound
	}
	if msg.Consume == nil {
		return fmt.Errorf("consume payload missing")
	}

	result, err := cs.server.consumers.Consume(service.ConsumeRequest{
		RoomID:          cs.roomID,
		PeerID:          cs.peerID,
		TransportID:     msg.Consume.TransportID,
		ProducerID:      msg.Consume.ProducerID,
		RTPCapabilities: msg.Consume.RTPCapabilities,
	})
	if err != nil {
		return err
	}

	cs.reply(api.ServerMessage{
		Event: api.ServerEventConsumed,
		Txn:   msg.Txn,
		Consumed: &api.ConsumedMessage{
			ConsumerID: result.ConsumerID,
			ProducerID: result.ProducerID,
			Kind:       string(result.Kind),
			Params:     result.Consumer.Params(),
		},
	})
	return nil
}

func (cs *clientSession) handleResume(msg api.ClientMessage) error {
	if !cs.joined {
		return domain.ErrPeerNotFound
	}
	if msg.Resume == nil {
		return fmt.Errorf("resume payload missing")
	}

	cs.server.consumers.Resume(cs.roomID, cs.peerID, msg.Resume.ConsumerID)
	cs.reply(api.ServerMessage{
		Event:   api.ServerEventResumed,
		Txn:     msg.Txn,
		Resumed: &api.ConsumerIDMessage{ConsumerID: msg.Resume.ConsumerID},
	})
	return nil
}

func (cs *clientSession) handleListPublishers(msg api.ClientMessage) error {
	if !cs.joined {
		return domain.ErrPeerNotFound
	}
	cs.reply(api.ServerMessage{
		Event:      api.ServerEventPublishers,
		Txn:        msg.Txn,
		Publishers: api.ToPresenceEntries(cs.server.presence.ListPublishers(cs.roomID)),
	})
	return nil
}

func (cs *clientSession) handleCameraControl(event api.ServerEvent, msg api.ClientMessage) error {
	if !cs.joined {
		return domain.ErrPeerNotFound
	}
	if msg.Camera == nil {
		return fmt.Errorf("camera payload missing")
	}
	camera := *msg.Camera
	if camera.RoomID == "" {
		camera.RoomID = cs.roomID
	}
	camera.RTSPURL = normalizeSource(camera.RTSPURL, cs.server.cfgManager.Get().Gateway)

	cs.server.broadcaster.CameraControl(event, camera)
	return nil
}

func (cs *clientSession) handleKeepalive(msg api.ClientMessage) error {
	if msg.Keepalive == nil {
		return fmt.Errorf("keepalive payload missing")
	}
	roomID := msg.Keepalive.RoomID
	if roomID == "" {
		roomID = cs.roomID
	}
	if roomID == "" || msg.Keepalive.ID == "" {
		return fmt.Errorf("keepalive missing room or publisher id")
	}
	cs.server.presence.Touch(roomID, msg.Keepalive.ID)
	return nil
}

func (cs *clientSession) disconnect() {
	if !cs.joined {
		return
	}
	cs.server.broadcaster.Unsubscribe(cs.roomID, cs.peerID)
	cs.server.sessions.Disconnect(cs.roomID, cs.peerID)
	cs.joined = false
}
