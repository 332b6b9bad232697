package analyzer

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the analyzer.
type Metrics struct {
	ModelCalls     prometheus.Counter // Generation calls issued, including retries
	Retries        prometheus.Counter // Retried generation calls
	CallFailures   prometheus.Counter // Analyses that failed after all retry attempts
	FormatFailures prometheus.Counter // Analyses rejected for contract violations
}

// NewMetrics creates and registers the analyzer metrics.
// The registerer parameter allows flexible registration (e.g., private
// registry in production, throwaway registry in tests).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ModelCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loglens_analyzer_model_calls_total",
			Help: "Total number of model generation calls issued",
		}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loglens_analyzer_retries_total",
			Help: "Total number of retried model generation calls",
		}),
		CallFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loglens_analyzer_call_failures_total",
			Help: "Total number of analyses that failed after exhausting model call retries",
		}),
		FormatFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loglens_analyzer_format_failures_total",
			Help: "Total number of analyses rejected because the model response violated the contract",
		}),
	}

	reg.MustRegister(m.ModelCalls, m.Retries, m.CallFailures, m.FormatFailures)
	return m
}
