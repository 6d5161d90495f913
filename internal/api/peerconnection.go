package api

import "github.com/pion/webrtc/v4"

// IceServer mirrors the browser RTCIceServer dictionary so the same JSON can
// be handed to clients verbatim.
type IceServer struct {
	URLs       []string `json:"urls" yaml:"urls"`
	Username   string   `json:"username,omitempty" yaml:"username,omitempty"`
	Credential string   `json:"credential,omitempty" yaml:"credential,omitempty"`
}

type PeerConnectionConfig struct {
	IceServers []IceServer `json:"iceServers" yaml:"iceServers"`
}

func DefaultPeerConnectionConfig() PeerConnectionConfig {
	return PeerConnectionConfig{
		IceServers: []IceServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
	}
}

// WebrtcConfiguration converts the wire-level config into the pion form used
// when building peer connections server-side.
func (c PeerConnectionConfig) WebrtcConfiguration() webrtc.Configuration {
	servers := make([]webrtc.ICEServer, 0, len(c.IceServers))
	for _, s := range c.IceServers {
		servers = append(servers, webrtc.ICEServer{
			URLs:       s.URLs,
			Username:   s.Username,
			Credential: s.Credential,
		})
	}
	return webrtc.Configuration{ICEServers: servers}
}
