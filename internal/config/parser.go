package config

import (
	"strings"

	"github.com/pion/webrtc/v4"

	"github.com/roomcast-live/roomcast/internal/api"
	"github.com/roomcast-live/roomcast/internal/domain"
)

type RawServerConfig struct {
	Port         *int    `yaml:"port" json:"port"`
	PublicIP     *string `yaml:"publicIp" json:"publicIp"`
	PingInterval *int    `yaml:"pingInterval" json:"pingInterval"`
}

func (r RawServerConfig) ToDomain() ServerConfig {
	var cfg ServerConfig
	if r.Port != nil {
		cfg.Port = *r.Port
	}
	if r.PublicIP != nil {
		cfg.PublicIP = *r.PublicIP
	}
	if r.PingInterval != nil {
		cfg.PingInterval = *r.PingInterval
	}
	return cfg
}

type RawWebRTCConfig struct {
	PortMin              *uint16                   `yaml:"portMin" json:"portMin"`
	PortMax              *uint16                   `yaml:"portMax" json:"portMax"`
	PeerConnectionConfig *api.PeerConnectionConfig `yaml:"peerConnectionConfig" json:"peerConnectionConfig"`
	Codecs               *[]RawCodec               `yaml:"codecs" json:"codecs"`
	DisableAudio         *bool                     `yaml:"disableAudio" json:"disableAudio"`
}

type RawCodec struct {
	Params struct {
		MimeType    string `json:"mimeType" yaml:"mimeType"`
		ClockRate   uint32 `json:"clockRate" yaml:"clockRate"`
		PayloadType uint8  `json:"payloadType" yaml:"payloadType"`
		Channels    uint16 `json:"channels" yaml:"channels"`
	} `json:"params" yaml:"params"`
	Type string `json:"type" yaml:"type"`
}

func (r RawWebRTCConfig) ToDomain() WebRTCConfig {
	var cfg WebRTCConfig
	if r.PortMin != nil {
		cfg.PortMin = *r.PortMin
	}
	if r.PortMax != nil {
		cfg.PortMax = *r.PortMax
	}
	if r.PeerConnectionConfig != nil {
		cfg.PeerConnectionConfig = *r.PeerConnectionConfig
	}
	if r.Codecs != nil {
		cfg.Codecs = parseCodecs(*r.Codecs)
	}
	if r.DisableAudio != nil {
		cfg.DisableAudio = *r.DisableAudio
	}
	return cfg
}

type RawIngestConfig struct {
	ListenIP    *string `yaml:"listenIp" json:"listenIp"`
	AnnouncedIP *string `yaml:"announcedIp" json:"announcedIp"`
	PortMin     *int    `yaml:"portMin" json:"portMin"`
	PortMax     *int    `yaml:"portMax" json:"portMax"`
}

func (r RawIngestConfig) ToDomain() IngestConfig {
	var cfg IngestConfig
	if r.ListenIP != nil {
		cfg.ListenIP = *r.ListenIP
	}
	if r.AnnouncedIP != nil {
		cfg.AnnouncedIP = *r.AnnouncedIP
	}
	if r.PortMin != nil {
		cfg.PortMin = *r.PortMin
	}
	if r.PortMax != nil {
		cfg.PortMax = *r.PortMax
	}
	return cfg
}

type RawPresenceConfig struct {
	TTLSeconds           *int `yaml:"ttlSeconds" json:"ttlSeconds"`
	SweepIntervalSeconds *int `yaml:"sweepIntervalSeconds" json:"sweepIntervalSeconds"`
}

func (r RawPresenceConfig) ToDomain() PresenceConfig {
	var cfg PresenceConfig
	if r.TTLSeconds != nil {
		cfg.TTLSeconds = *r.TTLSeconds
	}
	if r.SweepIntervalSeconds != nil {
		cfg.SweepIntervalSeconds = *r.SweepIntervalSeconds
	}
	return cfg
}

type RawGatewayConfig struct {
	RTSPHost   *string `yaml:"rtspHost" json:"rtspHost"`
	RTSPPort   *int    `yaml:"rtspPort" json:"rtspPort"`
	APIAddress *string `yaml:"apiAddress" json:"apiAddress"`
}

func (r RawGatewayConfig) ToDomain() GatewayConfig {
	var cfg GatewayConfig
	if r.RTSPHost != nil {
		cfg.RTSPHost = *r.RTSPHost
	}
	if r.RTSPPort != nil {
		cfg.RTSPPort = *r.RTSPPort
	}
	if r.APIAddress != nil {
		cfg.APIAddress = *r.APIAddress
	}
	return cfg
}

func parseCodecs(rawCodecs []RawCodec) []domain.Codec {
	result := make([]domain.Codec, 0, len(rawCodecs))

	for _, rawCodec := range rawCodecs {
		capability := webrtc.RTPCodecCapability{
			MimeType:  rawCodec.Params.MimeType,
			ClockRate: rawCodec.Params.ClockRate,
			Channels:  rawCodec.Params.Channels,
		}

		if strings.HasPrefix(strings.ToLower(rawCodec.Params.MimeType), "video/") {
			capability.RTCPFeedback = []webrtc.RTCPFeedback{
				{Type: "nack"},
				{Type: "nack", Parameter: "pli"},
				{Type: "ccm", Parameter: "fir"},
				{Type: "goog-remb"},
			}
		}

		params := webrtc.RTPCodecParameters{
			RTPCodecCapability: capability,
			PayloadType:        webrtc.PayloadType(rawCodec.Params.PayloadType),
		}

		result = append(result, domain.Codec{Params: params, Type: webrtc.NewRTPCodecType(rawCodec.Type)})
	}

	return result
}
