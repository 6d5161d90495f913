// Package router implements the media-routing capability on top of pion
// WebRTC: transports are peer connections, producers fan RTP out to
// per-consumer local tracks, and the ingest bridge feeds producers directly
// with serialized RTP.
package router

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/intervalpli"
	"github.com/pion/webrtc/v4"

	"github.com/roomcast-live/roomcast/internal/config"
	"github.com/roomcast-live/roomcast/internal/domain"
	"github.com/roomcast-live/roomcast/internal/utils"
)

type Router struct {
	api *webrtc.API
	cfg config.WebRTCConfig

	producers  *utils.SyncMapWrapper[string, *Producer]
	transports *utils.SyncMapWrapper[string, *Transport]
}

// NewRouter builds the shared WebRTC API from the configured codec set. The
// interval PLI interceptor keeps browser publishers emitting keyframes, so
// late consumers do not need explicit keyframe requests.
func NewRouter(cfg config.WebRTCConfig, publicIP string) (*Router, error) {
	mediaEngine := &webrtc.MediaEngine{}
	for _, codec := range cfg.Codecs {
		if err := mediaEngine.RegisterCodec(codec.Params, codec.Type); err != nil {
			return nil, fmt.Errorf("failed to register codec: %w", err)
		}
	}

	interceptorRegistry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, interceptorRegistry); err != nil {
		return nil, fmt.Errorf("failed to register default interceptors: %w", err)
	}

	pliFactory, err := intervalpli.NewReceiverInterceptor()
	if err != nil {
		return nil, fmt.Errorf("failed to create PLI factory: %w", err)
	}
	interceptorRegistry.Add(pliFactory)

	se := webrtc.SettingEngine{}
	if len(cfg.PeerConnectionConfig.IceServers) == 0 && len(publicIP) > 0 {
		se.SetNAT1To1IPs([]string{publicIP}, webrtc.ICECandidateTypeHost)
	}
	if cfg.PortMin > 0 && cfg.PortMax > 0 {
		if err := se.SetEphemeralUDPPortRange(cfg.PortMin, cfg.PortMax); err != nil {
			return nil, fmt.Errorf("failed to set WebRTC port range: %w", err)
		}
	}

	return &Router{
		api: webrtc.NewAPI(
			webrtc.WithMediaEngine(mediaEngine),
			webrtc.WithInterceptorRegistry(interceptorRegistry),
			webrtc.WithSettingEngine(se),
		),
		cfg:        cfg,
		producers:  utils.NewSyncMapWrapper[string, *Producer](),
		transports: utils.NewSyncMapWrapper[string, *Transport](),
	}, nil
}

func (r *Router) RTPCapabilities() []domain.Codec {
	out := make([]domain.Codec, 0, len(r.cfg.Codecs))
	for _, codec := range r.cfg.Codecs {
		if r.cfg.DisableAudio && codec.Type == webrtc.RTPCodecTypeAudio {
			continue
		}
		out = append(out, codec)
	}
	return out
}

func (r *Router) CreateTransport(direction domain.TransportDirection) (domain.Transport, error) {
	pc, err := r.api.NewPeerConnection(r.cfg.PeerConnectionConfig.WebrtcConfiguration())
	if err != nil {
		return nil, fmt.Errorf("creating peer connection: %w", err)
	}

	t := newTransport(uuid.NewString(), direction, pc, r)
	r.transports.Store(t.id, t)

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		if state == webrtc.PeerConnectionStateFailed || state == webrtc.PeerConnectionStateClosed {
			t.Close()
		}
	})

	return t, nil
}

// CanConsume reports whether any of the offered capabilities matches the
// producer's codec. Pure check, no allocation.
func (r *Router) CanConsume(producerID string, caps []domain.Codec) bool {
	producer, ok := r.producers.Load(producerID)
	if !ok {
		return false
	}
	params := producer.Params()
	for _, c := range caps {
		if strings.EqualFold(c.Params.MimeType, params.MimeType) && c.Params.ClockRate == params.ClockRate {
			return true
		}
	}
	return false
}

func (r *Router) Close() {
	r.transports.Range(func(_ string, t *Transport) bool {
		t.Close()
		return true
	})
	r.transports.Clear()
	r.producers.Clear()
}

func (r *Router) producer(id string) (*Producer, bool) {
	return r.producers.Load(id)
}

func (r *Router) registerProducer(p *Producer) {
	r.producers.Store(p.id, p)
}

func (r *Router) unregisterProducer(id string) {
	r.producers.Delete(id)
}

func (r *Router) unregisterTransport(id string) {
	r.transports.Delete(id)
}
