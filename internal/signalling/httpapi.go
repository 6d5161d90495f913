package signalling

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ingestCreateRequest struct {
	RoomID string `json:"roomId"`
	Label  string `json:"label"`
	Path   string `json:"path"`
}

type ingestCreateResponse struct {
	ProducerID  string `json:"producerId"`
	IP          string `json:"ip"`
	RTPPort     int    `json:"rtpPort"`
	RTCPPort    int    `json:"rtcpPort"`
	PayloadType uint8  `json:"payloadType"`
}

type addCameraRequest struct {
	Name     string `json:"name"`
	RTSPURL  string `json:"rtspUrl"`
	OnDemand bool   `json:"onDemand"`
	ForceTCP bool   `json:"forceTcp"`
}

// setupIngestAPI mounts the HTTP endpoints ingest bots and admin tooling use:
// plain-RTP session allocation, plus a thin proxy over the gateway's camera
// path configuration.
func (s *Server) setupIngestAPI() {
	s.app.Post("/ingest/create", func(c *fiber.Ctx) error {
		var req ingestCreateRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("Bad Request")
		}
		if req.RoomID == "" {
			return c.Status(fiber.StatusBadRequest).SendString("roomId is required")
		}

		info, err := s.ingest.Create(req.RoomID, req.Label, req.Path)
		if err != nil {
			slog.Error("ingest session allocation failed", "roomID", req.RoomID, "error", err)
			return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
		}

		return c.JSON(ingestCreateResponse{
			ProducerID:  info.ProducerID,
			IP:          info.IP,
			RTPPort:     info.RTPPort,
			RTCPPort:    info.RTCPPort,
			PayloadType: info.PayloadType,
		})
	})

	s.app.Get("/ingest/cameras", func(c *fiber.Ctx) error {
		paths, err := s.gateway.ListPaths()
		if err != nil {
			slog.Error("gateway camera listing failed", "error", err)
			return c.Status(fiber.StatusBadGateway).SendString(err.Error())
		}
		return c.JSON(paths)
	})

	s.app.Post("/ingest/cameras", func(c *fiber.Ctx) error {
		var req addCameraRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("Bad Request")
		}
		if req.Name == "" || req.RTSPURL == "" {
			return c.Status(fiber.StatusBadRequest).SendString("name and rtspUrl are required")
		}

		source := normalizeSource(req.RTSPURL, s.cfgManager.Get().Gateway)
		if err := s.gateway.AddPath(req.Name, source, req.OnDemand, req.ForceTCP); err != nil {
			slog.Error("gateway path registration failed", "name", req.Name, "error", err)
			return c.Status(fiber.StatusBadGateway).SendString(err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func (s *Server) setupMetrics() {
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
