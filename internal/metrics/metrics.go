package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roomcast_active_rooms",
		Help: "Number of rooms in the registry",
	})

	ActivePeers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "roomcast_active_peers",
		Help: "Number of connected peers",
	}, []string{"role"}) // "viewer" | "publisher" | "publisher-bot"

	PeersJoinedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roomcast_peers_joined_total",
		Help: "Total number of peers that joined a room",
	}, []string{"role"})

	ActiveWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roomcast_active_websocket_connections",
		Help: "Number of active signalling WebSocket connections",
	})

	WebSocketConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roomcast_websocket_connections_total",
		Help: "Total number of signalling WebSocket connections",
	})

	WebSocketDisconnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roomcast_websocket_disconnections_total",
		Help: "Total number of signalling WebSocket disconnections",
	})

	ActiveTransports = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "roomcast_active_transports",
		Help: "Number of active media transports",
	}, []string{"direction"}) // "send" | "recv"

	ActiveProducers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "roomcast_active_producers",
		Help: "Number of live producers across all rooms",
	}, []string{"kind"}) // "audio" | "video"

	ProducersCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roomcast_producers_created_total",
		Help: "Total number of producers created",
	}, []string{"kind", "origin"}) // origin: "peer" | "ingest"

	ProducerClosedBroadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roomcast_producer_closed_broadcasts_total",
		Help: "Total producer-closed broadcasts sent to rooms",
	})

	ActiveConsumers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roomcast_active_consumers",
		Help: "Number of live consumers across all peers",
	})

	ConsumeRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roomcast_consume_rejections_total",
		Help: "Total consume requests rejected for codec incompatibility",
	})

	SignallingMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roomcast_signalling_messages_total",
		Help: "Total signalling messages",
	}, []string{"event", "direction"}) // direction: "in" | "out"

	SignallingErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roomcast_signalling_errors_total",
		Help: "Total error acknowledgments returned to callers",
	}, []string{"event"})

	BroadcastRecipientsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roomcast_broadcast_recipients_total",
		Help: "Total per-recipient room broadcast deliveries attempted",
	})

	PresenceEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roomcast_presence_entries",
		Help: "Number of live publisher presence entries",
	})

	PresenceSweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roomcast_presence_sweeps_total",
		Help: "Total presence sweep runs",
	})

	ActiveIngestSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roomcast_active_ingest_sessions",
		Help: "Number of active RTP ingest sessions",
	})

	IngestPacketsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roomcast_ingest_packets_total",
		Help: "Total packets received on ingest endpoints",
	}, []string{"channel"}) // "rtp" | "rtcp"

	IngestBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roomcast_ingest_bytes_total",
		Help: "Total RTP bytes received on ingest endpoints",
	})

	GatewayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roomcast_gateway_requests_total",
		Help: "Total media gateway control API requests",
	}, []string{"op", "outcome"}) // outcome: "ok" | "error"

	ConfigReloads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roomcast_config_reloads_total",
		Help: "Number of configuration reloads",
	})

	StartTime = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roomcast_start_time_seconds",
		Help: "Server start time in Unix seconds",
	})
)
