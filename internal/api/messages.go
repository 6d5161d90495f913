package api

import (
	"github.com/pion/webrtc/v4"

	"github.com/roomcast-live/roomcast/internal/domain"
)

type ClientEvent string
type ServerEvent string

const (
	ClientEventJoin               = ClientEvent("join")
	ClientEventCreateTransport    = ClientEvent("create-transport")
	ClientEventConnectTransport   = ClientEvent("connect-transport")
	ClientEventProduce            = ClientEvent("produce")
	ClientEventListProducers      = ClientEvent("list-producers")
	ClientEventGetProducerInfo    = ClientEvent("get-producer-info")
	ClientEventConsume            = ClientEvent("consume")
	ClientEventResume             = ClientEvent("resume")
	ClientEventListPublishers     = ClientEvent("list-publishers")
	ClientEventStartCamera        = ClientEvent("start-camera")
	ClientEventStopCamera         = ClientEvent("stop-camera")
	ClientEventPublisherKeepalive = ClientEvent("publisher-keepalive")
	ClientEventPong               = ClientEvent("pong")
)

const (
	ServerEventJoined             = ServerEvent("joined")
	ServerEventTransportCreated   = ServerEvent("transport-created")
	ServerEventTransportConnected = ServerEvent("transport-connected")
	ServerEventProduced           = ServerEvent("produced")
	ServerEventProducers          = ServerEvent("producers")
	ServerEventProducerInfo       = ServerEvent("producer-info")
	ServerEventConsumed           = ServerEvent("consumed")
	ServerEventResumed            = ServerEvent("resumed")
	ServerEventPublishers         = ServerEvent("publishers")
	ServerEventNewProducer        = ServerEvent("new-producer")
	ServerEventProducerClosed     = ServerEvent("producer-closed")
	ServerEventStartCamera        = ServerEvent("start-camera")
	ServerEventStopCamera         = ServerEvent("stop-camera")
	ServerEventPing               = ServerEvent("ping")
	ServerEventError              = ServerEvent("error")
)

// ClientMessage is one signalling request from a peer. Txn, when set, is
// echoed on the reply or error so the caller can correlate acknowledgments.
type ClientMessage struct {
	Event ClientEvent `json:"event"`
	Txn   string      `json:"txn,omitempty"`

	Join             *JoinRequest             `json:"join,omitempty"`
	CreateTransport  *CreateTransportRequest  `json:"createTransport,omitempty"`
	ConnectTransport *ConnectTransportRequest `json:"connectTransport,omitempty"`
	Produce          *ProduceRequest          `json:"produce,omitempty"`
	GetProducerInfo  *GetProducerInfoRequest  `json:"getProducerInfo,omitempty"`
	Consume          *ConsumeRequest          `json:"consume,omitempty"`
	Resume           *ResumeRequest           `json:"resume,omitempty"`
	Camera           *CameraControlMessage    `json:"camera,omitempty"`
	Keepalive        *KeepaliveMessage        `json:"keepalive,omitempty"`
}

// ServerMessage is one signalling event or acknowledgment sent to a peer.
type ServerMessage struct {
	Event ServerEvent `json:"event"`
	Txn   string      `json:"txn,omitempty"`

	Joined             *JoinedMessage           `json:"joined,omitempty"`
	TransportCreated   *TransportCreatedMessage `json:"transportCreated,omitempty"`
	TransportConnected *TransportIDMessage      `json:"transportConnected,omitempty"`
	Produced           *ProducedMessage         `json:"produced,omitempty"`
	Producers          []ProducerInfo           `json:"producers,omitempty"`
	ProducerInfo       *ProducerInfo            `json:"producerInfo,omitempty"`
	Consumed           *ConsumedMessage         `json:"consumed,omitempty"`
	Resumed            *ConsumerIDMessage       `json:"resumed,omitempty"`
	Publishers         []PresenceEntry          `json:"publishers,omitempty"`
	NewProducer        *ProducerInfo            `json:"newProducer,omitempty"`
	ProducerClosed     *ProducerClosedMessage   `json:"producerClosed,omitempty"`
	Camera             *CameraControlMessage    `json:"camera,omitempty"`
	Ping               *PingMessage             `json:"ping,omitempty"`
	Error              *ErrorMessage            `json:"error,omitempty"`
}

type JoinRequest struct {
	RoomID      string `json:"roomId"`
	Role        string `json:"role"`
	PublisherID string `json:"id,omitempty"`
}

// JoinedMessage carries the router's codec capabilities together with a
// point-in-time producer snapshot, so a caller never needs a separate listing
// call to catch producers created before it joined.
type JoinedMessage struct {
	PeerID          string         `json:"peerId"`
	RoomID          string         `json:"roomId"`
	RTPCapabilities []domain.Codec `json:"rtpCapabilities"`
	Producers       []ProducerInfo `json:"producers"`
}

type CreateTransportRequest struct {
	Direction string `json:"direction"`
}

type TransportCreatedMessage struct {
	TransportID string `json:"transportId"`
	Direction   string `json:"direction"`
}

type TransportIDMessage struct {
	TransportID string               `json:"transportId"`
	Params      domain.ConnectParams `json:"params,omitempty"`
}

type ConnectTransportRequest struct {
	TransportID string               `json:"transportId"`
	Params      domain.ConnectParams `json:"params"`
}

type ProduceRequest struct {
	TransportID string                    `json:"transportId"`
	Kind        string                    `json:"kind"`
	Params      webrtc.RTPCodecParameters `json:"rtpParameters"`
	Label       string                    `json:"label"`
	Path        string                    `json:"path"`
}

type ProducedMessage struct {
	ProducerID string `json:"producerId"`
}

type GetProducerInfoRequest struct {
	ProducerID string `json:"producerId"`
}

type ConsumeRequest struct {
	TransportID     string         `json:"transportId"`
	ProducerID      string         `json:"producerId"`
	RTPCapabilities []domain.Codec `json:"rtpCapabilities"`
}

type ConsumedMessage struct {
	ConsumerID string                    `json:"consumerId"`
	ProducerID string                    `json:"producerId"`
	Kind       string                    `json:"kind"`
	Params     webrtc.RTPCodecParameters `json:"rtpParameters"`
}

type ResumeRequest struct {
	ConsumerID string `json:"consumerId"`
}

type ConsumerIDMessage struct {
	ConsumerID string `json:"consumerId"`
}

type ProducerInfo struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Label string `json:"label"`
	Path  string `json:"path"`
}

type ProducerClosedMessage struct {
	ProducerID string `json:"producerId"`
}

type PresenceEntry struct {
	ID       string `json:"id"`
	LastSeen int64  `json:"lastSeen"`
}

// CameraControlMessage is relayed verbatim to every connected publisher bot.
// RTSPURL may also carry an HTTP MJPEG source; bots decide how to pull it.
type CameraControlMessage struct {
	RoomID  string `json:"roomId"`
	ID      string `json:"id"`
	Label   string `json:"label,omitempty"`
	Path    string `json:"path,omitempty"`
	RTSPURL string `json:"rtspUrl,omitempty"`
}

type KeepaliveMessage struct {
	RoomID string `json:"roomId"`
	ID     string `json:"id"`
}

type PingMessage struct {
	Timestamp int64 `json:"timestamp"`
}

type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
