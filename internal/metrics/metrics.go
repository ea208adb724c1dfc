// Package metrics holds the Prometheus collectors of the quiz service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Gauge for registered game sessions
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quiz_active_sessions_current",
			Help: "Current number of registered game sessions",
		},
	)

	// Gauge for open websocket connections
	Connections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quiz_ws_connections_current",
			Help: "Current number of open websocket connections",
		},
	)

	GamesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_games_created_total",
			Help: "Total number of games created",
		},
	)

	// Counter for games by outcome
	GamesEnded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_games_ended_total",
			Help: "Total number of games that ended",
		},
		[]string{"outcome"}, // outcome: finished/cancelled
	)

	AnswersSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_answers_submitted_total",
			Help: "Total number of accepted answer submissions",
		},
		[]string{"type", "correct"},
	)

	ResultSinkFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_result_sink_failures_total",
			Help: "Total number of failed attempts to persist game results",
		},
	)

	// Counter for outbound events dropped on slow connections
	DroppedMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_ws_dropped_messages_total",
			Help: "Total number of outbound messages dropped because a client buffer was full",
		},
	)
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
