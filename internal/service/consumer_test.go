package service

import (
	"errors"
	"testing"

	"github.com/roomcast-live/roomcast/internal/domain"
)

// publishOne sets up a publisher with one live video producer and returns its
// info, the usual fixture for consume tests.
func publishOne(t *testing.T, stack *testStack) domain.ProducerInfo {
	t.Helper()
	transport := stack.joinAndTransport(t, "lab", "pub-1", domain.RolePublisher, domain.DirectionSend)
	info, err := stack.producers.Produce(ProduceRequest{
		RoomID: "lab", PeerID: "pub-1", TransportID: transport.ID(),
		Kind: domain.MediaKindVideo, Params: videoCaps()[0].Params, Label: "cam",
	})
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	return info
}

func TestConsumeStartsPaused(t *testing.T) {
	stack := newTestStack()
	info := publishOne(t, stack)
	transport := stack.joinAndTransport(t, "lab", "viewer-1", domain.RoleViewer, domain.DirectionRecv)

	res, err := stack.consumers.Consume(ConsumeRequest{
		RoomID: "lab", PeerID: "viewer-1", TransportID: transport.ID(),
		ProducerID: info.ID, RTPCapabilities: videoCaps(),
	})
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if res.ProducerID != info.ID {
		t.Fatalf("consumer bound to %s, want %s", res.ProducerID, info.ID)
	}
	if !res.Consumer.Paused() {
		t.Fatal("consumers must start paused")
	}

	peer, err := stack.registry.GetPeer("lab", "viewer-1")
	if err != nil {
		t.Fatalf("GetPeer: %v", err)
	}
	if _, ok := peer.Consumer(res.ConsumerID); !ok {
		t.Fatal("consumer not attached to its peer")
	}
}

func TestConsumeIncompatibleLeavesNoState(t *testing.T) {
	stack := newTestStack()
	info := publishOne(t, stack)
	transport := stack.joinAndTransport(t, "lab", "viewer-1", domain.RoleViewer, domain.DirectionRecv)

	stack.router.canConsume = false
	_, err := stack.consumers.Consume(ConsumeRequest{
		RoomID: "lab", PeerID: "viewer-1", TransportID: transport.ID(),
		ProducerID: info.ID, RTPCapabilities: audioCaps(),
	})
	if !errors.Is(err, domain.ErrCannotConsume) {
		t.Fatalf("expected ErrCannotConsume, got %v", err)
	}
	if transport.(*fakeTransport).consumeCalls() != 0 {
		t.Fatal("compatibility is checked before allocation; the engine must not be called")
	}

	peer, err := stack.registry.GetPeer("lab", "viewer-1")
	if err != nil {
		t.Fatalf("GetPeer: %v", err)
	}
	if got := peer.Consumers(); len(got) != 0 {
		t.Fatalf("rejected consume left state behind: %+v", got)
	}
}

func TestConsumeMissingProducer(t *testing.T) {
	stack := newTestStack()
	publishOne(t, stack)
	transport := stack.joinAndTransport(t, "lab", "viewer-1", domain.RoleViewer, domain.DirectionRecv)

	_, err := stack.consumers.Consume(ConsumeRequest{
		RoomID: "lab", PeerID: "viewer-1", TransportID: transport.ID(),
		ProducerID: "ghost", RTPCapabilities: videoCaps(),
	})
	if !errors.Is(err, domain.ErrProducerNotFound) {
		t.Fatalf("expected ErrProducerNotFound, got %v", err)
	}
}

func TestConsumeDiscardedWhenProducerCloses(t *testing.T) {
	stack := newTestStack()
	info := publishOne(t, stack)
	transport := stack.joinAndTransport(t, "lab", "viewer-1", domain.RoleViewer, domain.DirectionRecv)

	// The producer goes away while the engine is building the consumer.
	transport.(*fakeTransport).onConsume = func() {
		stack.producers.CloseProducer("lab", info.ID)
	}

	_, err := stack.consumers.Consume(ConsumeRequest{
		RoomID: "lab", PeerID: "viewer-1", TransportID: transport.ID(),
		ProducerID: info.ID, RTPCapabilities: videoCaps(),
	})
	if !errors.Is(err, domain.ErrProducerNotFound) {
		t.Fatalf("expected ErrProducerNotFound, got %v", err)
	}
	if !transport.(*fakeTransport).consumed[0].isClosed() {
		t.Fatal("half-built consumer must be closed, not leaked")
	}
}

func TestResume(t *testing.T) {
	stack := newTestStack()
	info := publishOne(t, stack)
	transport := stack.joinAndTransport(t, "lab", "viewer-1", domain.RoleViewer, domain.DirectionRecv)

	res, err := stack.consumers.Consume(ConsumeRequest{
		RoomID: "lab", PeerID: "viewer-1", TransportID: transport.ID(),
		ProducerID: info.ID, RTPCapabilities: videoCaps(),
	})
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	consumer := res.Consumer.(*fakeConsumer)

	stack.consumers.Resume("lab", "viewer-1", res.ConsumerID)
	if consumer.Paused() {
		t.Fatal("consumer still paused after resume")
	}

	// Resuming again, or resuming something unknown, does nothing.
	stack.consumers.Resume("lab", "viewer-1", res.ConsumerID)
	if consumer.resumeCalls != 1 {
		t.Fatalf("resume on a running consumer reached the engine %d times", consumer.resumeCalls)
	}
	stack.consumers.Resume("lab", "viewer-1", "ghost")
	stack.consumers.Resume("lab", "ghost", res.ConsumerID)
	stack.consumers.Resume("nope", "viewer-1", res.ConsumerID)
}
