package service

import (
	"log/slog"
	"time"

	"github.com/roomcast-live/roomcast/internal/domain"
	"github.com/roomcast-live/roomcast/internal/metrics"
	"github.com/roomcast-live/roomcast/internal/rooms"
	"github.com/roomcast-live/roomcast/internal/utils"
)

// PresenceService tracks which publishers are live per room. Entries are kept
// alive by keepalives and expire after the TTL; expiry is enforced both at
// read time and by a periodic sweep, so a crashed publisher disappears from
// listings immediately after its TTL even if the sweeper has not run yet.
type PresenceService struct {
	registry *rooms.Registry
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time

	sweeper utils.IntervalTimer
}

func NewPresenceService(registry *rooms.Registry, ttl, sweepInterval time.Duration) *PresenceService {
	return &PresenceService{
		registry: registry,
		ttl:      ttl,
		interval: sweepInterval,
		now:      time.Now,
	}
}

// Touch refreshes (or creates) the presence entry for a publisher.
func (s *PresenceService) Touch(roomID, publisherID string) {
	room := s.registry.EnsureRoom(roomID)
	room.TouchPresence(publisherID, s.now())
	s.updateGauge()
}

// ListPublishers returns the publishers of a room whose entries are within
// the TTL at the time of the call.
func (s *PresenceService) ListPublishers(roomID string) []domain.PresenceEntry {
	room, ok := s.registry.GetRoom(roomID)
	if !ok {
		return nil
	}
	return room.LivePublishers(s.now(), s.ttl)
}

// Start launches the background sweeper. Call Stop to shut it down.
func (s *PresenceService) Start() {
	s.sweeper = utils.SetIntervalTimer(s.interval, s.Sweep)
}

func (s *PresenceService) Stop() {
	if s.sweeper != nil {
		s.sweeper.Stop()
	}
}

// Sweep drops every presence entry older than the TTL across all rooms.
func (s *PresenceService) Sweep() {
	now := s.now()
	removed := 0
	for _, room := range s.registry.Rooms() {
		removed += room.SweepPresence(now, s.ttl)
	}
	metrics.PresenceSweepsTotal.Inc()
	s.updateGauge()
	if removed > 0 {
		slog.Debug("swept stale publishers", "removed", removed)
	}
}

func (s *PresenceService) updateGauge() {
	total := 0
	for _, room := range s.registry.Rooms() {
		total += room.PresenceCount()
	}
	metrics.PresenceEntries.Set(float64(total))
}
