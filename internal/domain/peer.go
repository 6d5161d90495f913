package domain

import "time"

// Role classifies a signalling-connected endpoint.
type Role string

const (
	RoleViewer       Role = "viewer"
	RolePublisher    Role = "publisher"
	RolePublisherBot Role = "publisher-bot"
)

func (r Role) IsPublisher() bool {
	return r == RolePublisher || r == RolePublisherBot
}

// MediaKind is the media type of a producer or consumer.
type MediaKind string

const (
	MediaKindAudio MediaKind = "audio"
	MediaKindVideo MediaKind = "video"
)

// TransportDirection is the client-side direction of a transport:
// a send transport carries media from the peer into the router,
// a recv transport carries media from the router to the peer.
type TransportDirection string

const (
	DirectionSend TransportDirection = "send"
	DirectionRecv TransportDirection = "recv"
)

func (d TransportDirection) Valid() bool {
	return d == DirectionSend || d == DirectionRecv
}

// ProducerInfo is the descriptive record of a published media source,
// as exposed to viewers in listings and broadcasts.
type ProducerInfo struct {
	ID    string    `json:"id"`
	Kind  MediaKind `json:"kind"`
	Label string    `json:"label"`
	Path  string    `json:"path"`
}

// PresenceEntry is one autonomous publisher's liveness record.
type PresenceEntry struct {
	ID       string    `json:"id"`
	LastSeen time.Time `json:"lastSeen"`
}
