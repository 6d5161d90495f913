package domain

import "github.com/pion/webrtc/v4"

// Codec is one entry of the router's advertised capability set.
type Codec struct {
	Params webrtc.RTPCodecParameters `json:"params"`
	Type   webrtc.RTPCodecType       `json:"type"`
}

func (c Codec) Kind() MediaKind {
	if c.Type == webrtc.RTPCodecTypeAudio {
		return MediaKindAudio
	}
	return MediaKindVideo
}

// ConnectParams carries the remote endpoint parameters supplied by a peer
// when connecting a transport. The orchestration layer treats them as opaque.
type ConnectParams map[string]any

// Router is the external media-routing capability. One router is shared by
// every room in the process; the orchestration layer only ever talks to it
// through this interface.
type Router interface {
	// RTPCapabilities returns the advertised codec set, sent to peers on join.
	RTPCapabilities() []Codec

	// CreateTransport allocates a transport for one peer in the given direction.
	CreateTransport(direction TransportDirection) (Transport, error)

	// CanConsume reports whether a consumer with the given capabilities could
	// be attached to the producer. It must have no side effects.
	CanConsume(producerID string, caps []Codec) bool

	Close()
}

// Transport is one peer-scoped media transport allocated by the Router.
type Transport interface {
	ID() string
	Direction() TransportDirection

	// Connect applies the remote endpoint parameters supplied by the peer and
	// returns the engine's reply parameters, if the engine produces any (nil
	// otherwise).
	Connect(params ConnectParams) (ConnectParams, error)

	// Produce registers a new media source on a send transport.
	Produce(kind MediaKind, params webrtc.RTPCodecParameters) (MediaProducer, error)

	// Consume attaches a subscription to an existing producer on a recv
	// transport. The consumer starts paused.
	Consume(producerID string, caps []Codec) (MediaConsumer, error)

	// OnClose registers an observer invoked exactly once when the transport
	// closes, whether locally or from the engine side.
	OnClose(func())

	Close()
}

// MediaProducer is the router-side handle of a published media source.
type MediaProducer interface {
	ID() string
	Kind() MediaKind
	Params() webrtc.RTPCodecParameters

	// Write feeds one serialized RTP packet into the producer. Used by the
	// ingest bridge; browser-published media flows inside the engine.
	Write(payload []byte) (int, error)

	OnClose(func())
	Close()
}

// MediaConsumer is the router-side handle of one peer's subscription to a
// producer. Consumers are created paused and never auto-resume.
type MediaConsumer interface {
	ID() string
	ProducerID() string
	Kind() MediaKind
	Params() webrtc.RTPCodecParameters

	Paused() bool
	Resume() error

	OnClose(func())
	Close()
}
