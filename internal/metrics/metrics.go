package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StreakCredits counts credit attempts by outcome: admitted, already_credited, error.
	StreakCredits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutrilog_streak_credits_total",
			Help: "Streak credit attempts by outcome",
		},
		[]string{"outcome"},
	)

	EntriesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutrilog_entries_written_total",
			Help: "Meal and water entries committed",
		},
		[]string{"kind"}, // meal, water
	)

	DiaryBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nutrilog_diary_build_duration_seconds",
			Help:    "Time to assemble a diary summary",
			Buckets: prometheus.DefBuckets,
		},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nutrilog_api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nutrilog_rate_limited_total",
			Help: "Requests rejected with 429",
		},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nutrilog_websocket_connections",
			Help: "Open realtime event sockets",
		},
	)
)

func RecordCredit(outcome string) {
	StreakCredits.WithLabelValues(outcome).Inc()
}

func RecordEntry(kind string) {
	EntriesWritten.WithLabelValues(kind).Inc()
}

func RecordRequest(method, route string, status int, d time.Duration) {
	APIRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
