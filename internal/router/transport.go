package router

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"

	"github.com/roomcast-live/roomcast/internal/domain"
)

// Transport wraps one peer connection. Send transports receive remote tracks
// from the publishing client and feed them into producers; recv transports
// carry per-consumer local tracks out to the subscribing client.
type Transport struct {
	id        string
	direction domain.TransportDirection
	pc        *webrtc.PeerConnection
	router    *Router

	mu       sync.Mutex
	pending  []*Producer
	closeFns []func()
	closed   bool
}

func newTransport(id string, direction domain.TransportDirection, pc *webrtc.PeerConnection, r *Router) *Transport {
	t := &Transport{
		id:        id,
		direction: direction,
		pc:        pc,
		router:    r,
	}

	if direction == domain.DirectionSend {
		pc.OnTrack(func(remote *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
			producer := t.claimPending(remote.Kind())
			if producer == nil {
				slog.Warn("remote track without matching producer", "transportID", id, "kind", remote.Kind())
				return
			}
			producer.attachRemote(remote)
		})
	}

	return t
}

func (t *Transport) ID() string                           { return t.id }
func (t *Transport) Direction() domain.TransportDirection { return t.direction }

// Connect applies the client's session description. When the client sent an
// offer, the engine's answer is returned as reply params; applying the
// client's answer to a server-side offer yields no reply.
func (t *Transport) Connect(params domain.ConnectParams) (domain.ConnectParams, error) {
	sdp, _ := params["sdp"].(string)
	kind, _ := params["type"].(string)
	if sdp == "" || kind == "" {
		return nil, fmt.Errorf("connect params missing sdp or type")
	}

	desc := webrtc.SessionDescription{
		Type: webrtc.NewSDPType(kind),
		SDP:  sdp,
	}
	if err := t.pc.SetRemoteDescription(desc); err != nil {
		return nil, fmt.Errorf("setting remote description: %w", err)
	}

	if desc.Type != webrtc.SDPTypeOffer {
		return nil, nil
	}

	answer, err := t.pc.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("creating answer: %w", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(t.pc)
	if err := t.pc.SetLocalDescription(answer); err != nil {
		return nil, fmt.Errorf("setting local description: %w", err)
	}
	<-gatherComplete

	local := t.pc.LocalDescription()
	return domain.ConnectParams{
		"type": local.Type.String(),
		"sdp":  local.SDP,
	}, nil
}

// Produce allocates a producer for a track the client is about to send. The
// producer goes live when the matching remote track arrives on this
// transport.
func (t *Transport) Produce(kind domain.MediaKind, params webrtc.RTPCodecParameters) (domain.MediaProducer, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, fmt.Errorf("transport %s is closed", t.id)
	}
	producer := newProducer(uuid.NewString(), kind, params, t.router)
	t.pending = append(t.pending, producer)
	t.mu.Unlock()

	t.router.registerProducer(producer)
	return producer, nil
}

// Consume attaches a local track carrying the producer's RTP to this
// transport. The consumer starts paused; packets flow after Resume.
func (t *Transport) Consume(producerID string, caps []domain.Codec) (domain.MediaConsumer, error) {
	producer, ok := t.router.producer(producerID)
	if !ok {
		return nil, domain.ErrProducerNotFound
	}
	if !t.router.CanConsume(producerID, caps) {
		return nil, domain.ErrCannotConsume
	}

	consumer, err := newConsumer(uuid.NewString(), producer, t)
	if err != nil {
		return nil, fmt.Errorf("attaching consumer track: %w", err)
	}
	return consumer, nil
}

func (t *Transport) OnClose(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		go fn()
		return
	}
	t.closeFns = append(t.closeFns, fn)
}

func (t *Transport) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	fns := t.closeFns
	t.closeFns = nil
	t.pending = nil
	t.mu.Unlock()

	_ = t.pc.Close()
	t.router.unregisterTransport(t.id)
	for _, fn := range fns {
		fn()
	}
}

// claimPending pops the oldest producer of the given kind that has not been
// bound to a remote track yet.
func (t *Transport) claimPending(kind webrtc.RTPCodecType) *Producer {
	want := domain.MediaKindVideo
	if kind == webrtc.RTPCodecTypeAudio {
		want = domain.MediaKindAudio
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for i, p := range t.pending {
		if p.kind == want {
			t.pending = append(t.pending[:i], t.pending[i+1:]...)
			return p
		}
	}
	return nil
}
