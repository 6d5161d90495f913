package ingest

import (
	"errors"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"

	"github.com/roomcast-live/roomcast/internal/config"
	"github.com/roomcast-live/roomcast/internal/domain"
)

type recordingProducer struct {
	mu      sync.Mutex
	packets [][]byte
	closed  bool
	gotOne  chan struct{}
	once    sync.Once
}

func newRecordingProducer() *recordingProducer {
	return &recordingProducer{gotOne: make(chan struct{})}
}

func (p *recordingProducer) ID() string                        { return "test-producer" }
func (p *recordingProducer) Kind() domain.MediaKind            { return domain.MediaKindVideo }
func (p *recordingProducer) Params() webrtc.RTPCodecParameters { return webrtc.RTPCodecParameters{} }
func (p *recordingProducer) OnClose(func())                    {}

func (p *recordingProducer) Write(payload []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, errors.New("closed")
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	p.packets = append(p.packets, buf)
	p.once.Do(func() { close(p.gotOne) })
	return len(payload), nil
}

func (p *recordingProducer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *recordingProducer) packetCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.packets)
}

func (p *recordingProducer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func testConfig() config.IngestConfig {
	return config.IngestConfig{ListenIP: "127.0.0.1", PortMin: 21000, PortMax: 21100}
}

func TestOpenerBindsAdjacentPair(t *testing.T) {
	opener := NewOpener(testConfig())

	first, err := opener.Open()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer first.Close()

	if first.RTPPort()%2 != 0 {
		t.Fatalf("RTP port must be even, got %d", first.RTPPort())
	}
	if first.RTCPPort() != first.RTPPort()+1 {
		t.Fatalf("RTCP port must be adjacent, got %d and %d", first.RTPPort(), first.RTCPPort())
	}

	second, err := opener.Open()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer second.Close()

	if second.RTPPort() == first.RTPPort() {
		t.Fatal("second endpoint reused the first pair")
	}
}

func TestEndpointRelaysRTP(t *testing.T) {
	opener := NewOpener(testConfig())
	endpoint, err := opener.Open()
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	producer := newRecordingProducer()
	done := make(chan struct{})
	go func() {
		endpoint.Run(producer, 96)
		close(done)
	}()

	conn, err := net.Dial("udp", net.JoinHostPort("127.0.0.1", strconv.Itoa(endpoint.RTPPort())))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	pkt := &rtp.Packet{Header: rtp.Header{Version: 2, PayloadType: 96, SequenceNumber: 1, SSRC: 42}, Payload: []byte{1, 2, 3}}
	raw, err := pkt.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := conn.Write(raw); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-producer.gotOne:
	case <-time.After(2 * time.Second):
		t.Fatal("packet never reached the producer")
	}

	// Malformed datagrams are dropped without killing the relay.
	if _, err := conn.Write([]byte{0xde, 0xad}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := conn.Write(raw); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for producer.packetCount() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected 2 relayed packets, got %d", producer.packetCount())
		case <-time.After(10 * time.Millisecond):
		}
	}

	// Packets on a payload type other than the negotiated one are dropped.
	wrongPT := &rtp.Packet{Header: rtp.Header{Version: 2, PayloadType: 100, SequenceNumber: 3, SSRC: 42}, Payload: []byte{4}}
	rawWrong, err := wrongPT.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := conn.Write(rawWrong); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if got := producer.packetCount(); got != 2 {
		t.Fatalf("expected packet with foreign payload type to be dropped, got %d relayed", got)
	}

	// Closing the endpoint stops the relay and closes the producer.
	endpoint.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop after close")
	}
	if !producer.isClosed() {
		t.Fatal("producer must be closed when the relay stops")
	}
}

func TestEndpointIgnoresSecondSource(t *testing.T) {
	opener := NewOpener(testConfig())
	endpoint, err := opener.Open()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer endpoint.Close()

	producer := newRecordingProducer()
	go endpoint.Run(producer, 96)

	dst := net.JoinHostPort("127.0.0.1", strconv.Itoa(endpoint.RTPPort()))
	first, err := net.Dial("udp", dst)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer first.Close()
	second, err := net.Dial("udp", dst)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer second.Close()

	pkt := &rtp.Packet{Header: rtp.Header{Version: 2, PayloadType: 96, SSRC: 42}}
	raw, _ := pkt.Marshal()

	if _, err := first.Write(raw); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case <-producer.gotOne:
	case <-time.After(2 * time.Second):
		t.Fatal("packet never reached the producer")
	}

	// A different source hitting the latched socket is filtered out.
	for i := 0; i < 5; i++ {
		if _, err := second.Write(raw); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	time.Sleep(100 * time.Millisecond)
	if got := producer.packetCount(); got != 1 {
		t.Fatalf("expected packets from the second source to be dropped, got %d relayed", got)
	}
}

