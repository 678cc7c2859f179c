package cache

import "github.com/prometheus/client_golang/prometheus"

// promMetrics are optional; they exist only when the client was built
// with WithRegisterer. The atomic counters behind Stats are always on.
type promMetrics struct {
	requests       *prometheus.CounterVec
	hits           prometheus.Counter
	misses         prometheus.Counter
	unavailable    prometheus.Counter
	budgetRefusals prometheus.Counter
}

func newPromMetrics(reg prometheus.Registerer) *promMetrics {
	m := &promMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ephemeral",
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Remote store commands issued, by operation.",
		}, []string{"op"}),
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ephemeral",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Reads that returned a live value.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ephemeral",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Reads that found nothing, including lazily-expired and malformed entries.",
		}),
		unavailable: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ephemeral",
			Subsystem: "cache",
			Name:      "unavailable_total",
			Help:      "Operations degraded by budget exhaustion, an open breaker, or transport failure.",
		}),
		budgetRefusals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ephemeral",
			Subsystem: "cache",
			Name:      "budget_refusals_total",
			Help:      "Commands refused because the daily call budget was exhausted.",
		}),
	}
	reg.MustRegister(m.requests, m.hits, m.misses, m.unavailable, m.budgetRefusals)
	return m
}
