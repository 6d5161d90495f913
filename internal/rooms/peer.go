package rooms

import (
	"sync"

	"github.com/roomcast-live/roomcast/internal/domain"
)

// Peer is one connected endpoint's session state: its role and everything it
// owns. Ownership lists are ordered by creation. Consumers live only here;
// there is no room-wide consumer table.
type Peer struct {
	ID          string
	RoomID      string
	Role        domain.Role
	PublisherID string

	mu         sync.Mutex
	transports []domain.Transport
	producers  []string
	consumers  []*ConsumerRef
}

// ConsumerRef tracks one owned consumer together with the transport it rides
// on, so transport teardown can find it.
type ConsumerRef struct {
	Consumer    domain.MediaConsumer
	TransportID string
}

func NewPeer(id, roomID string, role domain.Role, publisherID string) *Peer {
	return &Peer{
		ID:          id,
		RoomID:      roomID,
		Role:        role,
		PublisherID: publisherID,
	}
}

func (p *Peer) AddTransport(t domain.Transport) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transports = append(p.transports, t)
}

func (p *Peer) RemoveTransport(transportID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, t := range p.transports {
		if t.ID() == transportID {
			p.transports = append(p.transports[:i], p.transports[i+1:]...)
			return
		}
	}
}

func (p *Peer) Transport(transportID string) (domain.Transport, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.transports {
		if t.ID() == transportID {
			return t, true
		}
	}
	return nil, false
}

func (p *Peer) Transports() []domain.Transport {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Transport, len(p.transports))
	copy(out, p.transports)
	return out
}

func (p *Peer) AddProducer(producerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.producers = append(p.producers, producerID)
}

func (p *Peer) RemoveProducer(producerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, id := range p.producers {
		if id == producerID {
			p.producers = append(p.producers[:i], p.producers[i+1:]...)
			return
		}
	}
}

func (p *Peer) Producers() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.producers))
	copy(out, p.producers)
	return out
}

func (p *Peer) AddConsumer(ref *ConsumerRef) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.consumers = append(p.consumers, ref)
}

func (p *Peer) RemoveConsumer(consumerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, ref := range p.consumers {
		if ref.Consumer.ID() == consumerID {
			p.consumers = append(p.consumers[:i], p.consumers[i+1:]...)
			return
		}
	}
}

func (p *Peer) Consumer(consumerID string) (*ConsumerRef, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ref := range p.consumers {
		if ref.Consumer.ID() == consumerID {
			return ref, true
		}
	}
	return nil, false
}

func (p *Peer) Consumers() []*ConsumerRef {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*ConsumerRef, len(p.consumers))
	copy(out, p.consumers)
	return out
}
