package router

import (
	"sync"
	"sync/atomic"

	"github.com/pion/webrtc/v4"

	"github.com/roomcast-live/roomcast/internal/domain"
)

// Consumer carries one producer's RTP to one subscriber over a dedicated
// local track. It is created paused: the fan-out loop skips it until Resume.
type Consumer struct {
	id         string
	producer   *Producer
	localTrack *webrtc.TrackLocalStaticRTP
	sender     *webrtc.RTPSender

	paused atomic.Bool

	mu       sync.Mutex
	closeFns []func()
	closed   bool
}

func newConsumer(id string, producer *Producer, t *Transport) (*Consumer, error) {
	localTrack, err := webrtc.NewTrackLocalStaticRTP(
		producer.params.RTPCodecCapability,
		"track-"+id,
		"roomcast-"+producer.id,
	)
	if err != nil {
		return nil, err
	}

	sender, err := t.pc.AddTrack(localTrack)
	if err != nil {
		return nil, err
	}

	c := &Consumer{
		id:         id,
		producer:   producer,
		localTrack: localTrack,
		sender:     sender,
	}
	c.paused.Store(true)

	// The sender's RTCP stream must be drained for the interceptors to run.
	go func() {
		rtcpBuf := make([]byte, rtpBufferSize)
		for {
			if _, _, err := sender.Read(rtcpBuf); err != nil {
				return
			}
		}
	}()

	producer.addConsumer(c)
	t.OnClose(c.Close)
	return c, nil
}

func (c *Consumer) ID() string                        { return c.id }
func (c *Consumer) ProducerID() string                { return c.producer.id }
func (c *Consumer) Kind() domain.MediaKind            { return c.producer.kind }
func (c *Consumer) Params() webrtc.RTPCodecParameters { return c.producer.params }

func (c *Consumer) Paused() bool { return c.paused.Load() }

func (c *Consumer) Resume() error {
	c.paused.Store(false)
	return nil
}

func (c *Consumer) OnClose(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		go fn()
		return
	}
	c.closeFns = append(c.closeFns, fn)
}

func (c *Consumer) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	fns := c.closeFns
	c.closeFns = nil
	c.mu.Unlock()

	c.paused.Store(true)
	c.producer.removeConsumer(c.id)
	for _, fn := range fns {
		fn()
	}
}
