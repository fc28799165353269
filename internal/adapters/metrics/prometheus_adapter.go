package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_token_requests_total",
			Help: "Token requests by terminal outcome reason (granted or a BLOCKED reason code).",
		},
		[]string{"outcome"},
	)

	sessionCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_session_cache_hits_total",
			Help: "Session cache lookups served without an auth-server exchange.",
		},
	)

	sessionCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_session_cache_misses_total",
			Help: "Session cache lookups that required an auth-server exchange.",
		},
	)

	authServerExchanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_auth_server_exchanges_total",
			Help: "Exchanges with the auth server by result (ok, rejected, error).",
		},
		[]string{"result"},
	)

	authServerExchangeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_auth_server_exchange_duration_seconds",
			Help:    "Wall time of one encrypted exchange with the auth server.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// IncrementRequests records one terminal outcome. outcome is "GRANTED" or
// the rejection reason code.
func IncrementRequests(outcome string) {
	requestsTotal.WithLabelValues(outcome).Inc()
}

// IncrementSessionCacheHit records a session cache hit.
func IncrementSessionCacheHit() {
	sessionCacheHits.Inc()
}

// IncrementSessionCacheMiss records a session cache miss.
func IncrementSessionCacheMiss() {
	sessionCacheMisses.Inc()
}

// IncrementAuthServerExchange records one auth-server exchange result.
func IncrementAuthServerExchange(result string) {
	authServerExchanges.WithLabelValues(result).Inc()
}

// ObserveAuthServerExchangeDuration records the duration of one exchange.
func ObserveAuthServerExchangeDuration(seconds float64) {
	authServerExchangeDuration.Observe(seconds)
}
