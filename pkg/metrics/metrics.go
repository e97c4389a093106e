package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Ingestion metrics
	TelemetrySamplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speaker_energy_telemetry_samples_total",
			Help: "Telemetry samples by ingestion policy and outcome",
		},
		[]string{"policy", "result"},
	)

	BatteryDiscrepanciesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "speaker_energy_battery_discrepancies_total",
			Help: "Session starts where the device battery disagreed with the persisted value",
		},
	)

	// Session metrics
	SessionsStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "speaker_energy_sessions_started_total",
			Help: "Total usage sessions started",
		},
	)

	SessionsEndedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speaker_energy_sessions_ended_total",
			Help: "Total usage sessions ended, by final status",
		},
		[]string{"status"},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "speaker_energy_active_sessions",
			Help: "Number of ACTIVE usage sessions",
		},
	)

	// Cache metrics
	RealtimeCacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "speaker_energy_realtime_cache_entries",
			Help: "Number of sessions held in the realtime cache",
		},
	)

	CacheSweepRemovedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "speaker_energy_cache_sweep_removed_total",
			Help: "Cache entries removed by the inactive-session sweep",
		},
	)

	// History metrics
	HistoryBackfilledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "speaker_energy_history_backfilled_total",
			Help: "History rows written by reconciliation",
		},
	)

	// Transport metrics
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "speaker_energy_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"transport", "route", "code"},
	)

	RateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speaker_energy_rate_limited_total",
			Help: "Requests rejected by the per-speaker limiter",
		},
		[]string{"transport"},
	)

	WebsocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "speaker_energy_websocket_clients",
			Help: "Connected dashboard WebSocket clients",
		},
	)

	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speaker_energy_events_published_total",
			Help: "Lifecycle events published, by sink and outcome",
		},
		[]string{"sink", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		TelemetrySamplesTotal,
		BatteryDiscrepanciesTotal,
		SessionsStartedTotal,
		SessionsEndedTotal,
		ActiveSessions,
		RealtimeCacheEntries,
		CacheSweepRemovedTotal,
		HistoryBackfilledTotal,
		RequestDuration,
		RateLimitedTotal,
		WebsocketClients,
		EventsPublishedTotal,
	)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
