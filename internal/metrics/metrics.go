// Package metrics exposes the gateway's Prometheus registry and the
// counters/gauges the core components publish to it. Grounded on the
// wider example pack's use of prometheus/client_golang (the teacher has
// no metrics layer of its own).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the gateway's dedicated Prometheus registry (not the
// global default registry, so tests can build isolated instances).
var Registry = prometheus.NewRegistry()

var (
	certRoundOutcomeTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "ic_gateway_cert_round_outcome_total",
		Help: "Certificate aggregator poll round outcomes.",
	}, []string{"outcome"})

	certsLoadedGauge = promauto.With(Registry).NewGauge(prometheus.GaugeOpts{
		Name: "ic_gateway_certs_loaded",
		Help: "Number of certificate records in the currently published snapshot.",
	})

	requestsTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "ic_gateway_requests_total",
		Help: "Total requests handled, by resolved error-cause kind (\"ok\" for success).",
	}, []string{"kind"})

	denylistRefreshTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "ic_gateway_denylist_refresh_total",
		Help: "Denylist refresh attempts by outcome.",
	}, []string{"outcome"})
)

// CertRoundOutcome records one aggregator poll-round outcome:
// "published", "skipped", or "empty".
func CertRoundOutcome(outcome string) {
	certRoundOutcomeTotal.WithLabelValues(outcome).Inc()
}

// CertsLoaded sets the current published-snapshot record count.
func CertsLoaded(n int) {
	certsLoadedGauge.Set(float64(n))
}

// RequestHandled records one completed request's resulting error-cause
// kind ("ok" when no ErrorCause fired).
func RequestHandled(kind string) {
	requestsTotal.WithLabelValues(kind).Inc()
}

// DenylistRefresh records one denylist refresh attempt's outcome
// ("applied" or "failed").
func DenylistRefresh(outcome string) {
	denylistRefreshTotal.WithLabelValues(outcome).Inc()
}

// Handler returns the HTTP handler serving this registry in Prometheus
// exposition format, for the optional --metrics-listen server.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
