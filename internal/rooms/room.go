package rooms

import (
	"sync"
	"time"

	"github.com/roomcast-live/roomcast/internal/domain"
	"github.com/roomcast-live/roomcast/internal/metrics"
)

// Room groups the peers, producers and publisher presence of one viewing
// session. All tables are guarded by a single mutex; external router calls
// must never be made while holding it.
type Room struct {
	ID string

	mu        sync.Mutex
	peers     map[string]*Peer
	producers map[string]*ProducerRecord
	// producerOrder preserves creation order for deterministic listings.
	producerOrder []string
	presence      map[string]time.Time
}

func newRoom(id string) *Room {
	return &Room{
		ID:        id,
		peers:     make(map[string]*Peer),
		producers: make(map[string]*ProducerRecord),
		presence:  make(map[string]time.Time),
	}
}

func (r *Room) AddPeer(p *Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[p.ID] = p
}

// RemovePeer drops the peer from the table. Returns the peer so the caller
// can tear down what it owned.
func (r *Room) RemovePeer(peerID string) (*Peer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.peers[peerID]
	if ok {
		delete(r.peers, peerID)
	}
	return p, ok
}

func (r *Room) Peer(peerID string) (*Peer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.peers[peerID]
	return p, ok
}

func (r *Room) Peers() []*Peer {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Peer, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}
	return out
}

func (r *Room) AddProducer(rec *ProducerRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.producers[rec.Info.ID] = rec
	r.producerOrder = append(r.producerOrder, rec.Info.ID)
	metrics.ActiveProducers.WithLabelValues(string(rec.Info.Kind)).Inc()
}

// RemoveProducer drops the record from the table. Returns false when the
// producer was already removed, which makes removal idempotent for the two
// competing close paths.
func (r *Room) RemoveProducer(producerID string) (*ProducerRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.producers[producerID]
	if !ok {
		return nil, false
	}
	delete(r.producers, producerID)
	for i, id := range r.producerOrder {
		if id == producerID {
			r.producerOrder = append(r.producerOrder[:i], r.producerOrder[i+1:]...)
			break
		}
	}
	metrics.ActiveProducers.WithLabelValues(string(rec.Info.Kind)).Dec()
	return rec, true
}

func (r *Room) Producer(producerID string) (*ProducerRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.producers[producerID]
	return rec, ok
}

// Producers returns the producer records in creation order.
func (r *Room) Producers() []*ProducerRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*ProducerRecord, 0, len(r.producerOrder))
	for _, id := range r.producerOrder {
		if rec, ok := r.producers[id]; ok {
			out = append(out, rec)
		}
	}
	return out
}

// ProducerInfos returns a point-in-time descriptive snapshot in creation
// order, suitable for the join response and listings.
func (r *Room) ProducerInfos() []domain.ProducerInfo {
	records := r.Producers()
	out := make([]domain.ProducerInfo, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Info)
	}
	return out
}

// TouchPresence upserts the last-seen timestamp of an autonomous publisher.
func (r *Room) TouchPresence(publisherID string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presence[publisherID] = now
}

// LivePublishers returns presence entries younger than ttl. Filtering happens
// at read time so expired entries disappear even between sweeps.
func (r *Room) LivePublishers(now time.Time, ttl time.Duration) []domain.PresenceEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.PresenceEntry, 0, len(r.presence))
	for id, seen := range r.presence {
		if now.Sub(seen) <= ttl {
			out = append(out, domain.PresenceEntry{ID: id, LastSeen: seen})
		}
	}
	return out
}

// SweepPresence removes entries older than ttl and returns how many were
// dropped.
func (r *Room) SweepPresence(now time.Time, ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, seen := range r.presence {
		if now.Sub(seen) > ttl {
			delete(r.presence, id)
			removed++
		}
	}
	return removed
}

func (r *Room) PresenceCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.presence)
}
