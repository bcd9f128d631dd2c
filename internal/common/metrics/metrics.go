package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_completed_total",
			Help: "Total number of dialogue turns completed",
		},
		[]string{"intent"},
	)

	TurnsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_failed_total",
			Help: "Total number of dialogue turns that ended in an error outcome",
		},
		[]string{"error_code"},
	)

	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "chat_turn_duration_seconds",
			Help: "Duration of dialogue turn processing in seconds",
		},
		[]string{"intent"},
	)

	PosRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_requests_total",
			Help: "Total number of POS provider requests",
		},
		[]string{"operation", "status"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_sessions_active",
			Help: "Number of live conversation sessions",
		},
	)
)
