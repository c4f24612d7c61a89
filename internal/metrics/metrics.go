// Package metrics exposes Prometheus collectors for matching runs and
// provider calls. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "womatch"

// Metrics holds every collector, registered on one registry.
type Metrics struct {
	Runs            *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	Matches         *prometheus.CounterVec
	DroppedEntries  prometheus.Counter
	Unresolved      prometheus.Counter
	GatewayCalls    *prometheus.CounterVec
	GatewayRetries  *prometheus.CounterVec
	GatewayDuration prometheus.Histogram
	TokensUsed      *prometheus.CounterVec
	CostUSD         prometheus.Counter
	CircuitState    prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Matching runs by outcome class.",
		}, []string{"outcome"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "End-to-end matching run latency.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		Matches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Reconciled matches by confidence level.",
		}, []string{"level"}),
		DroppedEntries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_entries_total",
			Help:      "Match entries dropped for a structural defect.",
		}),
		Unresolved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unresolved_identifiers_total",
			Help:      "Matches whose work order id did not resolve.",
		}),
		GatewayCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_calls_total",
			Help:      "Provider calls by result.",
		}, []string{"result"}),
		GatewayRetries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_retries_total",
			Help:      "Provider call retries by reason.",
		}, []string{"reason"}),
		GatewayDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_call_duration_seconds",
			Help:      "Provider call latency including retries.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		TokensUsed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Tokens consumed by direction.",
		}, []string{"direction"}),
		CostUSD: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "estimated_cost_usd_total",
			Help:      "Estimated provider spend in USD.",
		}),
		CircuitState: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_state",
			Help:      "Provider circuit breaker state (0 closed, 1 open, 2 half-open).",
		}),
	}
}

// ObserveRun records one finished run.
func (m *Metrics) ObserveRun(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(outcome).Inc()
	m.RunDuration.Observe(elapsed.Seconds())
}

// ObserveMatch records one reconciled match.
func (m *Metrics) ObserveMatch(level string, resolved bool) {
	if m == nil {
		return
	}
	m.Matches.WithLabelValues(level).Inc()
	if !resolved {
		m.Unresolved.Inc()
	}
}

// ObserveDropped records n dropped match entries.
func (m *Metrics) ObserveDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DroppedEntries.Add(float64(n))
}

// ObserveGatewayCall records one logical provider call.
func (m *Metrics) ObserveGatewayCall(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.GatewayCalls.WithLabelValues(result).Inc()
	m.GatewayDuration.Observe(elapsed.Seconds())
}

// ObserveRetry records one retry.
func (m *Metrics) ObserveRetry(reason string) {
	if m == nil {
		return
	}
	m.GatewayRetries.WithLabelValues(reason).Inc()
}

// ObserveUsage records token usage and its estimated cost.
func (m *Metrics) ObserveUsage(input, output int64, costUSD float64) {
	if m == nil {
		return
	}
	m.TokensUsed.WithLabelValues("input").Add(float64(input))
	m.TokensUsed.WithLabelValues("output").Add(float64(output))
	if costUSD > 0 {
		m.CostUSD.Add(costUSD)
	}
}

// SetCircuitState records the breaker state as a number.
func (m *Metrics) SetCircuitState(state int) {
	if m == nil {
		return
	}
	m.CircuitState.Set(float64(state))
}
