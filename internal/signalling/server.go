// Package signalling is the websocket and HTTP surface of the room server:
// it accepts peer connections, dispatches their signalling events into the
// service layer, and fans room notifications back out.
package signalling

import (
	"log/slog"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/roomcast-live/roomcast/internal/config"
	"github.com/roomcast-live/roomcast/internal/domain"
	"github.com/roomcast-live/roomcast/internal/service"
	"github.com/roomcast-live/roomcast/internal/sockets"
)

type Server struct {
	app        *fiber.App
	cfgManager *config.Manager

	clientSockets *sockets.SocketPool
	broadcaster   *Broadcaster

	sessions  *service.SessionService
	producers *service.ProducerService
	consumers *service.ConsumerService
	presence  *service.PresenceService
	ingest    *service.IngestService
	gateway   domain.Gateway

	router domain.Router
}

type Deps struct {
	Sessions  *service.SessionService
	Producers *service.ProducerService
	Consumers *service.ConsumerService
	Presence  *service.PresenceService
	Ingest    *service.IngestService
	Gateway   domain.Gateway
	Router    domain.Router
}

func NewServer(cfgManager *config.Manager, app *fiber.App, broadcaster *Broadcaster, deps Deps) *Server {
	return &Server{
		app:           app,
		cfgManager:    cfgManager,
		clientSockets: sockets.NewSocketPool(),
		broadcaster:   broadcaster,
		sessions:      deps.Sessions,
		producers:     deps.Producers,
		consumers:     deps.Consumers,
		presence:      deps.Presence,
		ingest:        deps.Ingest,
		gateway:       deps.Gateway,
		router:        deps.Router,
	}
}

// SetupRoutes mounts the websocket endpoint, the ingest HTTP API, and the
// metrics endpoint on the fiber app.
func (s *Server) SetupRoutes() {
	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	s.app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("panic in /ws handler", "error", err)
			}
		}()
		s.listenClientSocket(c)
	}))

	s.setupIngestAPI()
	s.setupMetrics()
}

// Close shuts the signalling surface down: every client socket is closed,
// which drives the per-connection teardown paths, then the router closes the
// remaining media state.
func (s *Server) Close() {
	s.presence.Stop()
	s.clientSockets.Close()
	s.router.Close()
}
