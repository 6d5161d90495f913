package main

import (
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lmittmann/tint"

	"github.com/roomcast-live/roomcast/internal/config"
	"github.com/roomcast-live/roomcast/internal/gateway"
	"github.com/roomcast-live/roomcast/internal/ingest"
	"github.com/roomcast-live/roomcast/internal/metrics"
	"github.com/roomcast-live/roomcast/internal/rooms"
	"github.com/roomcast-live/roomcast/internal/router"
	"github.com/roomcast-live/roomcast/internal/service"
	"github.com/roomcast-live/roomcast/internal/signalling"
)

func main() {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.TimeOnly,
	})))

	configDir := os.Getenv("ROOMCAST_CONFIG_DIR")
	if configDir == "" {
		configDir = "conf"
	}

	cfgManager, err := config.NewManager(configDir)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	cfgManager.SetUpdateCallback(func(updated *config.AppConfig) {
		slog.Info("configuration updated",
			"gatewayAPI", updated.Gateway.APIAddress, "codecs", len(updated.WebRTC.Codecs))
	})
	cfg := cfgManager.Get()

	mediaRouter, err := router.NewRouter(cfg.WebRTC, cfg.Server.PublicIP)
	if err != nil {
		slog.Error("failed to initialize media router", "error", err)
		os.Exit(1)
	}

	registry := rooms.NewRegistry()
	broadcaster := signalling.NewBroadcaster()

	presence := service.NewPresenceService(registry, cfg.Presence.TTL(), cfg.Presence.SweepInterval())
	producers := service.NewProducerService(registry, broadcaster)
	consumers := service.NewConsumerService(registry, mediaRouter)
	sessions := service.NewSessionService(registry, mediaRouter, producers, presence)

	announceIP := cfg.Ingest.AnnouncedIP
	if announceIP == "" {
		announceIP = cfg.Server.PublicIP
	}
	ingestSvc := service.NewIngestService(mediaRouter, producers, ingest.NewOpener(cfg.Ingest), announceIP)

	gatewayClient := gateway.NewClient(cfg.Gateway.APIAddress)

	app := fiber.New(fiber.Config{
		BodyLimit: 5 * 1024 * 1024,
	})

	server := signalling.NewServer(cfgManager, app, broadcaster, signalling.Deps{
		Sessions:  sessions,
		Producers: producers,
		Consumers: consumers,
		Presence:  presence,
		Ingest:    ingestSvc,
		Gateway:   gatewayClient,
		Router:    mediaRouter,
	})
	server.SetupRoutes()

	presence.Start()
	metrics.StartTime.Set(float64(time.Now().Unix()))

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("shutting down")
		server.Close()
		_ = app.Shutdown()
	}()

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	slog.Info("listening", "addr", addr)
	if err := app.Listen(addr); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
