package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/roomcast-live/roomcast/internal/domain"
)

const (
	rtpBufferSize   = 1500
	packetQueueSize = 100
)

var bufferPool = sync.Pool{
	New: func() any {
		return make([]byte, rtpBufferSize)
	},
}

// Producer is the router-side handle of one published media source. RTP
// reaches it either from a remote track on a send transport (browser
// publishers) or through Write (the ingest bridge), and is fanned out to the
// local tracks of every attached, unpaused consumer.
type Producer struct {
	id     string
	kind   domain.MediaKind
	params webrtc.RTPCodecParameters
	router *Router

	packetChan chan []byte

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	consumers map[string]*Consumer
	closeFns  []func()
	closed    bool
}

func newProducer(id string, kind domain.MediaKind, params webrtc.RTPCodecParameters, r *Router) *Producer {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Producer{
		id:         id,
		kind:       kind,
		params:     params,
		router:     r,
		packetChan: make(chan []byte, packetQueueSize),
		ctx:        ctx,
		cancel:     cancel,
		consumers:  make(map[string]*Consumer),
	}
	go p.fanOutLoop()
	return p
}

func (p *Producer) ID() string                        { return p.id }
func (p *Producer) Kind() domain.MediaKind            { return p.kind }
func (p *Producer) Params() webrtc.RTPCodecParameters { return p.params }

// Write feeds one serialized RTP packet into the fan-out queue. A full queue
// drops the packet rather than blocking the caller.
func (p *Producer) Write(payload []byte) (int, error) {
	select {
	case <-p.ctx.Done():
		return 0, io.ErrClosedPipe
	default:
	}

	buf := bufferPool.Get().([]byte)
	buf = buf[:cap(buf)]
	n := copy(buf, payload)

	select {
	case p.packetChan <- buf[:n]:
	default:
		bufferPool.Put(buf)
	}
	return len(payload), nil
}

// attachRemote starts pumping a browser-published remote track into the
// fan-out queue. The producer closes itself when the track ends.
func (p *Producer) attachRemote(remote *webrtc.TrackRemote) {
	go func() {
		defer p.Close()

		for {
			select {
			case <-p.ctx.Done():
				return
			default:
			}

			buf := bufferPool.Get().([]byte)
			buf = buf[:cap(buf)]

			n, _, err := remote.Read(buf)
			if err != nil {
				if errors.Is(err, io.EOF) {
					slog.Debug("publisher closed track", "producerID", p.id)
				} else {
					slog.Error("error reading from publisher track", "producerID", p.id, "error", err)
				}
				bufferPool.Put(buf)
				return
			}

			select {
			case p.packetChan <- buf[:n]:
			default:
				bufferPool.Put(buf)
			}
		}
	}()
}

func (p *Producer) fanOutLoop() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case pkt := <-p.packetChan:
			p.mu.Lock()
			for _, c := range p.consumers {
				if c.Paused() {
					continue
				}
				if _, err := c.localTrack.Write(pkt); err != nil && !errors.Is(err, io.ErrClosedPipe) {
					slog.Error("error writing to consumer track", "consumerID", c.id, "error", err)
				}
			}
			p.mu.Unlock()

			bufferPool.Put(pkt[:cap(pkt)])
		}
	}
}

func (p *Producer) addConsumer(c *Consumer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.consumers[c.id] = c
}

func (p *Producer) removeConsumer(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.consumers, id)
}

func (p *Producer) OnClose(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		go fn()
		return
	}
	p.closeFns = append(p.closeFns, fn)
}

// Close tears the producer down and cascades to every attached consumer.
func (p *Producer) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	fns := p.closeFns
	p.closeFns = nil
	consumers := make([]*Consumer, 0, len(p.consumers))
	for _, c := range p.consumers {
		consumers = append(consumers, c)
	}
	p.mu.Unlock()

	p.cancel()
	p.router.unregisterProducer(p.id)
	for _, c := range consumers {
		c.Close()
	}
	for _, fn := range fns {
		fn()
	}
}
