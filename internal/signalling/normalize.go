package signalling

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/roomcast-live/roomcast/internal/config"
)

// normalizeSource cleans a camera source URL before it is relayed to
// publisher bots. RTSP URLs pointing at localhost are rewritten to the
// configured gateway host, preserving credentials; HTTP MJPEG sources pass
// through untouched.
func normalizeSource(raw string, gw config.GatewayConfig) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimRight(s, ".; ")
	if s == "" {
		return s
	}

	u, err := url.Parse(s)
	if err != nil || !strings.EqualFold(u.Scheme, "rtsp") {
		return s
	}
	if gw.RTSPHost == "" {
		return s
	}

	switch strings.ToLower(u.Hostname()) {
	case "localhost", "127.0.0.1", "::1":
		u.Host = fmt.Sprintf("%s:%d", gw.RTSPHost, gw.RTSPPort)
		return u.String()
	}
	return s
}
