package rooms

import (
	"sync"

	"github.com/roomcast-live/roomcast/internal/domain"
)

// ProducerRecord pairs the descriptive record of a published source with its
// router-side handle. OwnerID is empty for ingest-created producers.
type ProducerRecord struct {
	Info    domain.ProducerInfo
	OwnerID string
	Handle  domain.MediaProducer

	closeOnce sync.Once
}

func NewProducerRecord(info domain.ProducerInfo, ownerID string, handle domain.MediaProducer) *ProducerRecord {
	return &ProducerRecord{
		Info:    info,
		OwnerID: ownerID,
		Handle:  handle,
	}
}

// CloseOnce runs fn at most once across every close path. Both the
// producer-close and the owning-transport-close observers funnel through
// here, which is what guarantees the single producer-closed broadcast.
func (rec *ProducerRecord) CloseOnce(fn func()) {
	rec.closeOnce.Do(fn)
}
