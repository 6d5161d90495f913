package service

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/roomcast-live/roomcast/internal/domain"
	"github.com/roomcast-live/roomcast/internal/rooms"
)

func videoCaps() []domain.Codec {
	return []domain.Codec{{
		Params: webrtc.RTPCodecParameters{
			RTPCodecCapability: webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
			PayloadType:        96,
		},
		Type: webrtc.RTPCodecTypeVideo,
	}}
}

func audioCaps() []domain.Codec {
	return []domain.Codec{{
		Params: webrtc.RTPCodecParameters{
			RTPCodecCapability: webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
			PayloadType:        111,
		},
		Type: webrtc.RTPCodecTypeAudio,
	}}
}

type fakeRouter struct {
	mu         sync.Mutex
	caps       []domain.Codec
	canConsume bool
	createErr  error
	// onCreateTransport runs while the "engine" is allocating, before the
	// transport is returned. Tests use it to disconnect the peer mid-call.
	onCreateTransport func()
	created           []*fakeTransport
}

func newFakeRouter() *fakeRouter {
	return &fakeRouter{caps: videoCaps(), canConsume: true}
}

func (r *fakeRouter) RTPCapabilities() []domain.Codec { return r.caps }

func (r *fakeRouter) CreateTransport(direction domain.TransportDirection) (domain.Transport, error) {
	if r.onCreateTransport != nil {
		r.onCreateTransport()
	}
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t := &fakeTransport{id: fmt.Sprintf("trans-%d", len(r.created)), direction: direction}
	r.created = append(r.created, t)
	return t, nil
}

func (r *fakeRouter) CanConsume(producerID string, caps []domain.Codec) bool { return r.canConsume }

func (r *fakeRouter) Close() {}

type fakeTransport struct {
	id        string
	direction domain.TransportDirection

	// onProduce and onConsume run while the "engine" is allocating.
	onProduce func()
	onConsume func()

	connectReply domain.ConnectParams
	connectErr   error

	mu        sync.Mutex
	connected domain.ConnectParams
	produced  []*fakeProducer
	consumed  []*fakeConsumer
	closeFns  []func()
	closed    bool
}

func (t *fakeTransport) ID() string                           { return t.id }
func (t *fakeTransport) Direction() domain.TransportDirection { return t.direction }

func (t *fakeTransport) Connect(params domain.ConnectParams) (domain.ConnectParams, error) {
	if t.connectErr != nil {
		return nil, t.connectErr
	}
	t.mu.Lock()
	t.connected = params
	t.mu.Unlock()
	return t.connectReply, nil
}

func (t *fakeTransport) Produce(kind domain.MediaKind, params webrtc.RTPCodecParameters) (domain.MediaProducer, error) {
	if t.onProduce != nil {
		t.onProduce()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	p := &fakeProducer{id: fmt.Sprintf("%s-prod-%d", t.id, len(t.produced)), kind: kind, params: params}
	t.produced = append(t.produced, p)
	return p, nil
}

func (t *fakeTransport) Consume(producerID string, caps []domain.Codec) (domain.MediaConsumer, error) {
	if t.onConsume != nil {
		t.onConsume()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	c := &fakeConsumer{id: fmt.Sprintf("%s-cons-%d", t.id, len(t.consumed)), producerID: producerID, kind: domain.MediaKindVideo}
	c.paused = true
	t.consumed = append(t.consumed, c)
	return c, nil
}

func (t *fakeTransport) OnClose(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeFns = append(t.closeFns, fn)
}

func (t *fakeTransport) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	fns := t.closeFns
	t.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (t *fakeTransport) consumeCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.consumed)
}

type fakeProducer struct {
	id     string
	kind   domain.MediaKind
	params webrtc.RTPCodecParameters

	mu       sync.Mutex
	written  [][]byte
	closeFns []func()
	closed   bool
}

func (p *fakeProducer) ID() string                        { return p.id }
func (p *fakeProducer) Kind() domain.MediaKind            { return p.kind }
func (p *fakeProducer) Params() webrtc.RTPCodecParameters { return p.params }

func (p *fakeProducer) Write(payload []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, errors.New("producer closed")
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	p.written = append(p.written, buf)
	return len(payload), nil
}

func (p *fakeProducer) OnClose(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeFns = append(p.closeFns, fn)
}

func (p *fakeProducer) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	fns := p.closeFns
	p.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (p *fakeProducer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type fakeConsumer struct {
	id         string
	producerID string
	kind       domain.MediaKind
	resumeErr  error

	mu          sync.Mutex
	paused      bool
	resumeCalls int
	closeFns    []func()
	closed      bool
}

func (c *fakeConsumer) ID() string                        { return c.id }
func (c *fakeConsumer) ProducerID() string                { return c.producerID }
func (c *fakeConsumer) Kind() domain.MediaKind            { return c.kind }
func (c *fakeConsumer) Params() webrtc.RTPCodecParameters { return webrtc.RTPCodecParameters{} }

func (c *fakeConsumer) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *fakeConsumer) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resumeCalls++
	if c.resumeErr != nil {
		return c.resumeErr
	}
	c.paused = false
	return nil
}

func (c *fakeConsumer) OnClose(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeFns = append(c.closeFns, fn)
}

func (c *fakeConsumer) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	fns := c.closeFns
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (c *fakeConsumer) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type announceEvent struct {
	roomID string
	except string
	info   domain.ProducerInfo
}

type closeEvent struct {
	roomID     string
	producerID string
}

type fakeNotifier struct {
	mu        sync.Mutex
	available []announceEvent
	closed    []closeEvent
}

func (n *fakeNotifier) ProducerAvailable(roomID, exceptPeerID string, info domain.ProducerInfo) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.available = append(n.available, announceEvent{roomID: roomID, except: exceptPeerID, info: info})
}

func (n *fakeNotifier) ProducerClosed(roomID, producerID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = append(n.closed, closeEvent{roomID: roomID, producerID: producerID})
}

func (n *fakeNotifier) availableEvents() []announceEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]announceEvent(nil), n.available...)
}

func (n *fakeNotifier) closedEvents() []closeEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]closeEvent(nil), n.closed...)
}

// testStack wires the services over fakes the way main wires them over the
// real router and broadcaster.
type testStack struct {
	registry  *rooms.Registry
	router    *fakeRouter
	notifier  *fakeNotifier
	presence  *PresenceService
	producers *ProducerService
	consumers *ConsumerService
	sessions  *SessionService
}

func newTestStack() *testStack {
	registry := rooms.NewRegistry()
	router := newFakeRouter()
	notifier := &fakeNotifier{}
	presence := NewPresenceService(registry, 30*time.Second, 10*time.Second)
	producers := NewProducerService(registry, notifier)
	consumers := NewConsumerService(registry, router)
	sessions := NewSessionService(registry, router, producers, presence)
	return &testStack{
		registry:  registry,
		router:    router,
		notifier:  notifier,
		presence:  presence,
		producers: producers,
		consumers: consumers,
		sessions:  sessions,
	}
}

// joinAndTransport joins a peer and gives it one transport of the requested
// direction, the common preamble of most signalling flows.
func (s *testStack) joinAndTransport(t *testing.T, roomID, peerID string, role domain.Role, direction domain.TransportDirection) domain.Transport {
	t.Helper()
	if _, err := s.sessions.Join(roomID, peerID, role, ""); err != nil {
		t.Fatalf("join %s: %v", peerID, err)
	}
	transport, err := s.sessions.CreateTransport(roomID, peerID, direction)
	if err != nil {
		t.Fatalf("create transport for %s: %v", peerID, err)
	}
	return transport
}
