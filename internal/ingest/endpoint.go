// Package ingest provides the plain-RTP entry point that RTSP bridge bots
// push camera streams into. Endpoints learn the pusher's source address from
// the first packet on each socket, comedia style, so bots behind NAT need no
// port configuration of their own.
package ingest

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"

	"github.com/roomcast-live/roomcast/internal/config"
	"github.com/roomcast-live/roomcast/internal/domain"
	"github.com/roomcast-live/roomcast/internal/metrics"
	"github.com/roomcast-live/roomcast/internal/service"
)

const readBufferSize = 1500

// Opener binds endpoint socket pairs from the configured port range.
type Opener struct {
	cfg config.IngestConfig

	mu       sync.Mutex
	nextPort int
}

func NewOpener(cfg config.IngestConfig) *Opener {
	return &Opener{cfg: cfg, nextPort: evenPort(cfg.PortMin)}
}

// Open binds an adjacent RTP/RTCP UDP port pair, scanning the configured
// range from where the last allocation left off.
func (o *Opener) Open() (service.IngestEndpoint, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	listenIP := net.ParseIP(o.cfg.ListenIP)
	if listenIP == nil {
		return nil, fmt.Errorf("invalid ingest listen IP %q", o.cfg.ListenIP)
	}

	start := o.nextPort
	for port := start; port+1 <= o.cfg.PortMax; port += 2 {
		rtpConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: listenIP, Port: port})
		if err != nil {
			continue
		}
		rtcpConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: listenIP, Port: port + 1})
		if err != nil {
			rtpConn.Close()
			continue
		}

		o.nextPort = port + 2
		if o.nextPort+1 > o.cfg.PortMax {
			o.nextPort = evenPort(o.cfg.PortMin)
		}
		return newEndpoint(rtpConn, rtcpConn), nil
	}

	o.nextPort = evenPort(o.cfg.PortMin)
	return nil, fmt.Errorf("no free ingest port pair in range %d-%d", o.cfg.PortMin, o.cfg.PortMax)
}

func evenPort(p int) int {
	if p%2 != 0 {
		return p + 1
	}
	return p
}

// Endpoint is one bound RTP/RTCP socket pair feeding a single producer.
type Endpoint struct {
	rtpConn  *net.UDPConn
	rtcpConn *net.UDPConn

	closeOnce sync.Once
}

func newEndpoint(rtpConn, rtcpConn *net.UDPConn) *Endpoint {
	return &Endpoint{rtpConn: rtpConn, rtcpConn: rtcpConn}
}

func (e *Endpoint) RTPPort() int {
	return e.rtpConn.LocalAddr().(*net.UDPAddr).Port
}

func (e *Endpoint) RTCPPort() int {
	return e.rtcpConn.LocalAddr().(*net.UDPAddr).Port
}

// Run relays RTP into the producer until the pusher stops or the endpoint is
// closed, then closes the producer so its room sees a producer-closed
// notification. Only packets carrying the session's negotiated payload type
// are relayed. RTCP is parsed for validity and dropped; the interceptors on
// the consuming side generate their own feedback.
func (e *Endpoint) Run(dst domain.MediaProducer, payloadType uint8) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		e.rtpLoop(dst, payloadType)
		e.Close()
	}()
	go func() {
		defer wg.Done()
		e.rtcpLoop()
	}()

	wg.Wait()
	dst.Close()
}

func (e *Endpoint) rtpLoop(dst domain.MediaProducer, payloadType uint8) {
	var source *net.UDPAddr
	buf := make([]byte, readBufferSize)
	pkt := &rtp.Packet{}

	for {
		n, addr, err := e.rtpConn.ReadFromUDP(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				slog.Error("ingest RTP read failed", "producerID", dst.ID(), "error", err)
			}
			return
		}

		if source == nil {
			source = addr
			slog.Info("ingest RTP source learned", "producerID", dst.ID(), "source", addr.String())
		} else if !addr.IP.Equal(source.IP) || addr.Port != source.Port {
			continue
		}

		if err := pkt.Unmarshal(buf[:n]); err != nil {
			slog.Warn("dropping malformed RTP packet", "producerID", dst.ID(), "error", err)
			continue
		}
		if pkt.PayloadType != payloadType {
			slog.Debug("dropping RTP packet with unexpected payload type",
				"producerID", dst.ID(), "got", pkt.PayloadType, "want", payloadType)
			continue
		}

		metrics.IngestPacketsTotal.WithLabelValues("rtp").Inc()
		metrics.IngestBytesTotal.Add(float64(n))

		if _, err := dst.Write(buf[:n]); err != nil {
			slog.Debug("ingest producer gone, stopping relay", "producerID", dst.ID())
			return
		}
	}
}

func (e *Endpoint) rtcpLoop() {
	var source *net.UDPAddr
	buf := make([]byte, readBufferSize)

	for {
		n, addr, err := e.rtcpConn.ReadFromUDP(buf)
		if err != nil {
			return
		}

		if source == nil {
			source = addr
			slog.Debug("ingest RTCP source learned", "source", addr.String())
		} else if !addr.IP.Equal(source.IP) || addr.Port != source.Port {
			continue
		}

		if _, err := rtcp.Unmarshal(buf[:n]); err != nil {
			continue
		}
		metrics.IngestPacketsTotal.WithLabelValues("rtcp").Inc()
	}
}

func (e *Endpoint) Close() error {
	e.closeOnce.Do(func() {
		e.rtpConn.Close()
		e.rtcpConn.Close()
	})
	return nil
}
