package signalling

import (
	"errors"
	"testing"
	"time"

	"github.com/roomcast-live/roomcast/internal/api"
	"github.com/roomcast-live/roomcast/internal/domain"
)

// The ping goroutine must exit when the connection's read loop ends, even if
// no tick ever fires. A leak here accumulates one goroutine and one ticker
// per short-lived connection.
func TestPingLoopStopsOnQuit(t *testing.T) {
	socket := newFakeSocket("client")
	quit := make(chan struct{})
	done := make(chan struct{})

	go func() {
		pingLoop(socket, time.Hour, quit)
		close(done)
	}()

	close(quit)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ping loop did not stop after quit")
	}
}

func TestPingLoopStopsOnWriteError(t *testing.T) {
	socket := newFakeSocket("client")
	socket.writeErr = errors.New("connection reset")
	quit := make(chan struct{})
	defer close(quit)
	done := make(chan struct{})

	go func() {
		pingLoop(socket, 5*time.Millisecond, quit)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ping loop did not stop after a failed write")
	}
}

// Camera control is only relayed for peers that joined a room, like every
// other signalling request.
func TestCameraControlRequiresJoin(t *testing.T) {
	b := NewBroadcaster()
	bot := newFakeSocket("bot")
	b.Subscribe("lab", "bot", domain.RolePublisherBot, bot)
	b.Activate("lab", "bot", nil)

	cs := &clientSession{
		server: &Server{broadcaster: b},
		socket: newFakeSocket("stranger"),
		peerID: "stranger",
	}

	err := cs.handleCameraControl(api.ServerEventStartCamera, api.ClientMessage{
		Camera: &api.CameraControlMessage{ID: "cam-1", RTSPURL: "rtsp://10.0.0.5/cam"},
	})
	if !errors.Is(err, domain.ErrPeerNotFound) {
		t.Fatalf("expected ErrPeerNotFound, got %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if got := bot.received(); len(got) != 0 {
		t.Fatalf("camera request from a never-joined socket must not be relayed, got %+v", got)
	}
}
