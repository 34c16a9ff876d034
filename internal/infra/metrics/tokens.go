package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		tokensIssuedTotal,
		tokensRevokedTotal,
		tokensPurgedTotal,
		tokenAuthFailuresTotal,
		linkEventsTotal,
	)
}

var (
	tokensIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_tokens_issued_total",
			Help: "Bot API credentials issued, by canonical scope set.",
		},
		[]string{"scope"},
	)

	tokensRevokedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_tokens_revoked_total",
			Help: "Bot API credentials revoked (first revocation only).",
		},
	)

	tokensPurgedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_tokens_purged_total",
			Help: "Expired credentials deleted by the purge job.",
		},
	)

	tokenAuthFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_token_auth_failures_total",
			Help: "Rejected bearer authentications by reason.",
		},
		[]string{"reason"}, // missing | not_found | expired | revoked | scope
	)

	linkEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_link_events_total",
			Help: "Link registry events.",
		},
		[]string{"event"}, // code_generated | bound | collision | invalid_code | unbound
	)
)

func IncTokenIssued(scope string) { tokensIssuedTotal.WithLabelValues(norm(scope)).Inc() }

func IncTokenRevoked() { tokensRevokedTotal.Inc() }

func AddTokensPurged(n int64) { tokensPurgedTotal.Add(float64(n)) }

func IncTokenAuthFailure(reason string) {
	tokenAuthFailuresTotal.WithLabelValues(norm(reason)).Inc()
}

func IncLinkEvent(event string) { linkEventsTotal.WithLabelValues(norm(event)).Inc() }
