package api

import (
	"errors"

	"github.com/roomcast-live/roomcast/internal/domain"
)

func ToProducerInfo(p domain.ProducerInfo) ProducerInfo {
	return ProducerInfo{
		ID:    p.ID,
		Kind:  string(p.Kind),
		Label: p.Label,
		Path:  p.Path,
	}
}

func ToProducerInfos(producers []domain.ProducerInfo) []ProducerInfo {
	out := make([]ProducerInfo, len(producers))
	for i, p := range producers {
		out[i] = ToProducerInfo(p)
	}
	return out
}

func ToPresenceEntries(entries []domain.PresenceEntry) []PresenceEntry {
	out := make([]PresenceEntry, len(entries))
	for i, e := range entries {
		out[i] = PresenceEntry{ID: e.ID, LastSeen: e.LastSeen.Unix()}
	}
	return out
}

// ErrorCode maps the domain error taxonomy to the wire code reported to the
// caller. Unknown errors collapse to "internal".
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return "room-not-found"
	case errors.Is(err, domain.ErrPeerNotFound):
		return "peer-not-found"
	case errors.Is(err, domain.ErrTransportNotFound):
		return "transport-not-found"
	case errors.Is(err, domain.ErrProducerNotFound):
		return "producer-not-found"
	case errors.Is(err, domain.ErrInvalidDirection):
		return "invalid-direction"
	case errors.Is(err, domain.ErrCannotConsume):
		return "cannot-consume"
	case errors.Is(err, domain.ErrUnsupportedCodec):
		return "unsupported-codec"
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return "gateway-unavailable"
	default:
		return "internal"
	}
}
