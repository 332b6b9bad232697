package sentry

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the Sentry client.
type Metrics struct {
	RequestsTotal prometheus.Counter // Upstream requests actually issued
	ErrorsTotal   prometheus.Counter // Classified upstream failures
	CacheHits     prometheus.Counter // Fetches served from cache
	CacheMisses   prometheus.Counter // Fetches that went upstream
	EventsFetched prometheus.Counter // Events returned by upstream
}

// NewMetrics creates and registers the Sentry client metrics.
// The registerer parameter allows flexible registration (e.g., private
// registry in production, throwaway registry in tests).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loglens_sentry_requests_total",
			Help: "Total number of requests issued to the Sentry API",
		}),
		ErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loglens_sentry_errors_total",
			Help: "Total number of failed Sentry API requests",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loglens_sentry_cache_hits_total",
			Help: "Total number of event fetches served from the cache",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loglens_sentry_cache_misses_total",
			Help: "Total number of event fetches that went upstream",
		}),
		EventsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loglens_sentry_events_fetched_total",
			Help: "Total number of events returned by the Sentry API",
		}),
	}

	reg.MustRegister(m.RequestsTotal, m.ErrorsTotal, m.CacheHits, m.CacheMisses, m.EventsFetched)
	return m
}
