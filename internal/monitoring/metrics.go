package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DiscordEvents counts gateway events by type.
	DiscordEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fty_bot_discord_events_total",
			Help: "Total number of Discord gateway events handled",
		},
		[]string{"event"},
	)

	// HTTPRequests counts control-plane requests.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fty_bot_http_requests_total",
			Help: "Total number of control-plane HTTP requests",
		},
		[]string{"path", "method", "status_code"},
	)

	// Detections counts protection triggers by detector.
	Detections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fty_bot_detections_total",
			Help: "Total number of protection triggers",
		},
		[]string{"detector"},
	)

	// TicketOperations counts ticket lifecycle transitions.
	TicketOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fty_bot_ticket_operations_total",
			Help: "Total number of ticket lifecycle operations",
		},
		[]string{"operation"},
	)

	// ModerationActions counts applied sanctions.
	ModerationActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fty_bot_moderation_actions_total",
			Help: "Total number of moderation actions applied",
		},
		[]string{"action"},
	)
)
