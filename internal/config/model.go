package config

import (
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/roomcast-live/roomcast/internal/api"
	"github.com/roomcast-live/roomcast/internal/domain"
)

type AppConfig struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	WebRTC   WebRTCConfig   `json:"webrtc" yaml:"webrtc"`
	Ingest   IngestConfig   `json:"ingest" yaml:"ingest"`
	Presence PresenceConfig `json:"presence" yaml:"presence"`
	Gateway  GatewayConfig  `json:"gateway" yaml:"gateway"`
}

type ServerConfig struct {
	Port         int    `json:"port" yaml:"port"`
	PublicIP     string `json:"publicIp" yaml:"publicIp"`
	PingInterval int    `json:"pingInterval" yaml:"pingInterval"`
}

type WebRTCConfig struct {
	PortMin              uint16                   `json:"portMin" yaml:"portMin"`
	PortMax              uint16                   `json:"portMax" yaml:"portMax"`
	PeerConnectionConfig api.PeerConnectionConfig `json:"peerConnectionConfig" yaml:"peerConnectionConfig"`
	Codecs               []domain.Codec           `json:"codecs" yaml:"codecs"`
	DisableAudio         bool                     `json:"disableAudio" yaml:"disableAudio"`
}

// IngestConfig covers the plain-RTP entry point used by RTSP bridge bots.
// AnnouncedIP is the address handed back to pushers; leave it empty to let
// them target whatever host they reached the HTTP API on.
type IngestConfig struct {
	ListenIP    string `json:"listenIp" yaml:"listenIp"`
	AnnouncedIP string `json:"announcedIp" yaml:"announcedIp"`
	PortMin     int    `json:"portMin" yaml:"portMin"`
	PortMax     int    `json:"portMax" yaml:"portMax"`
}

type PresenceConfig struct {
	TTLSeconds           int `json:"ttlSeconds" yaml:"ttlSeconds"`
	SweepIntervalSeconds int `json:"sweepIntervalSeconds" yaml:"sweepIntervalSeconds"`
}

func (c PresenceConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

func (c PresenceConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// GatewayConfig points at the RTSP restreaming gateway (a MediaMTX-style
// server): RTSPHost/RTSPPort are where ingest bots pull their sources from,
// APIAddress is the gateway's control API.
type GatewayConfig struct {
	RTSPHost   string `json:"rtspHost" yaml:"rtspHost"`
	RTSPPort   int    `json:"rtspPort" yaml:"rtspPort"`
	APIAddress string `json:"apiAddress" yaml:"apiAddress"`
}

func DefaultAppConfig() AppConfig {
	return AppConfig{
		Server: ServerConfig{
			Port:         13478,
			PublicIP:     "",
			PingInterval: 3000,
		},
		WebRTC: WebRTCConfig{
			PortMin:              10000,
			PortMax:              20000,
			PeerConnectionConfig: api.DefaultPeerConnectionConfig(),
			Codecs:               DefaultCodecs(),
			DisableAudio:         false,
		},
		Ingest: IngestConfig{
			ListenIP:    "0.0.0.0",
			AnnouncedIP: "",
			PortMin:     20000,
			PortMax:     20100,
		},
		Presence: PresenceConfig{
			TTLSeconds:           30,
			SweepIntervalSeconds: 10,
		},
		Gateway: GatewayConfig{
			RTSPHost:   "",
			RTSPPort:   8554,
			APIAddress: "",
		},
	}
}

func DefaultCodecs() []domain.Codec {
	return []domain.Codec{
		{
			Params: webrtc.RTPCodecParameters{
				RTPCodecCapability: webrtc.RTPCodecCapability{
					MimeType:  "video/VP8",
					ClockRate: 90000,
					Channels:  0,
					RTCPFeedback: []webrtc.RTCPFeedback{
						{Type: "nack"},
						{Type: "nack", Parameter: "pli"},
						{Type: "ccm", Parameter: "fir"},
						{Type: "goog-remb"},
					},
				},
				PayloadType: 96,
			},
			Type: webrtc.RTPCodecTypeVideo,
		},
		{
			Params: webrtc.RTPCodecParameters{
				RTPCodecCapability: webrtc.RTPCodecCapability{
					MimeType:  "audio/opus",
					ClockRate: 48000,
					Channels:  2,
				},
				PayloadType: 111,
			},
			Type: webrtc.RTPCodecTypeAudio,
		},
	}
}
