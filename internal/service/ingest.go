package service

import (
	"fmt"
	"log/slog"

	"github.com/roomcast-live/roomcast/internal/domain"
	"github.com/roomcast-live/roomcast/internal/metrics"
	"github.com/roomcast-live/roomcast/internal/rooms"
)

// IngestEndpoint is a pair of bound UDP sockets a media pusher (ffmpeg)
// targets with plain RTP/RTCP. Run relays incoming RTP carrying the given
// payload type into the producer until either side closes.
type IngestEndpoint interface {
	RTPPort() int
	RTCPPort() int
	Run(dst domain.MediaProducer, payloadType uint8)
	Close() error
}

// EndpointOpener allocates ingest endpoints. The production implementation
// binds UDP ports from the configured range.
type EndpointOpener interface {
	Open() (IngestEndpoint, error)
}

// IngestInfo tells the pusher where to send its stream.
type IngestInfo struct {
	ProducerID  string
	IP          string
	RTPPort     int
	RTCPPort    int
	PayloadType uint8
}

type IngestService struct {
	router     domain.Router
	producers  *ProducerService
	opener     EndpointOpener
	announceIP string
}

func NewIngestService(router domain.Router, producers *ProducerService, opener EndpointOpener, announceIP string) *IngestService {
	return &IngestService{
		router:     router,
		producers:  producers,
		opener:     opener,
		announceIP: announceIP,
	}
}

// Create provisions a server-side video producer fed by plain RTP. The codec
// is taken from the router's advertised capability set; if the router offers
// no video codec the request fails before anything is allocated. The producer
// id is returned immediately, while address learning and media relay run in
// the background.
func (s *IngestService) Create(roomID, label, path string) (IngestInfo, error) {
	codec, ok := s.videoCodec()
	if !ok {
		return IngestInfo{}, domain.ErrUnsupportedCodec
	}

	endpoint, err := s.opener.Open()
	if err != nil {
		return IngestInfo{}, fmt.Errorf("opening ingest endpoint: %w", err)
	}

	transport, err := s.router.CreateTransport(domain.DirectionSend)
	if err != nil {
		endpoint.Close()
		return IngestInfo{}, fmt.Errorf("creating ingest transport: %w", err)
	}
	producer, err := transport.Produce(domain.MediaKindVideo, codec.Params)
	if err != nil {
		transport.Close()
		endpoint.Close()
		return IngestInfo{}, fmt.Errorf("creating ingest producer: %w", err)
	}

	info := domain.ProducerInfo{
		ID:    producer.ID(),
		Kind:  domain.MediaKindVideo,
		Label: label,
		Path:  path,
	}
	rec := rooms.NewProducerRecord(info, "", producer)
	s.producers.Register(roomID, rec, transport)

	producer.OnClose(func() {
		endpoint.Close()
		transport.Close()
		metrics.ActiveIngestSessions.Dec()
	})

	metrics.ActiveIngestSessions.Inc()
	slog.Info("ingest session created",
		"roomID", roomID, "producerID", info.ID, "label", label,
		"rtpPort", endpoint.RTPPort(), "rtcpPort", endpoint.RTCPPort())

	go endpoint.Run(producer, uint8(codec.Params.PayloadType))

	return IngestInfo{
		ProducerID:  info.ID,
		IP:          s.announceIP,
		RTPPort:     endpoint.RTPPort(),
		RTCPPort:    endpoint.RTCPPort(),
		PayloadType: uint8(codec.Params.PayloadType),
	}, nil
}

// videoCodec picks the first video codec the router advertises.
func (s *IngestService) videoCodec() (domain.Codec, bool) {
	for _, codec := range s.router.RTPCapabilities() {
		if codec.Kind() == domain.MediaKindVideo {
			return codec, true
		}
	}
	return domain.Codec{}, false
}
