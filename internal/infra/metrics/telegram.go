package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		telegramCommandsReceivedTotal,
		telegramCallbacksReceivedTotal,
		telegramRateLimitTriggeredTotal,
		telegramUpdatesTotal,
		telegramAPIRequestsTotal,
		telegramAPILatency,
	)
}

var (
	telegramCommandsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_commands_received_total",
			Help: "Incoming bot commands by name.",
		},
		[]string{"command"},
	)

	telegramCallbacksReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_callbacks_received_total",
			Help: "Inline-button callbacks by action.",
		},
		[]string{"action"},
	)

	telegramRateLimitTriggeredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_rate_limit_triggered_total",
			Help: "Requests rejected by a rate limiter.",
		},
		[]string{"scope"}, // command | callback | generate_code
	)

	telegramUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_updates_total",
			Help: "Updates ingested by source and outcome.",
		},
		[]string{"source", "result"}, // source: poll | webhook; result: dispatched | failed | dropped | rejected
	)

	telegramAPIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_api_requests_total",
			Help: "Outbound Bot API calls by method and result.",
		},
		[]string{"method", "result"}, // result: ok | http_error | network_error
	)

	telegramAPILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "telegram_api_latency_ms",
			Help:    "Outbound Bot API latency in milliseconds.",
			Buckets: []float64{25, 50, 100, 200, 400, 800, 1600, 3200, 10000},
		},
		[]string{"method"},
	)
)

func IncTelegramCommand(command string) {
	telegramCommandsReceivedTotal.WithLabelValues(norm(command)).Inc()
}

func IncTelegramCallback(action string) {
	telegramCallbacksReceivedTotal.WithLabelValues(norm(action)).Inc()
}

func IncRateLimitTriggered(scope string) {
	telegramRateLimitTriggeredTotal.WithLabelValues(norm(scope)).Inc()
}

func IncUpdate(source, outcome string) {
	telegramUpdatesTotal.WithLabelValues(norm(source), norm(outcome)).Inc()
}

func ObserveTelegramAPI(method, outcome string, latencyMs int64) {
	telegramAPIRequestsTotal.WithLabelValues(method, norm(outcome)).Inc()
	telegramAPILatency.WithLabelValues(method).Observe(float64(latencyMs))
}
