package budget

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"mercator-hq/ganymede/pkg/budget/account"
)

// Metrics contains Prometheus metrics for the budget package.
type Metrics struct {
	// Usage recording
	usageRecords *prometheus.CounterVec
	tokensTotal  *prometheus.CounterVec
	costTotal    *prometheus.CounterVec

	// Limit outcomes
	denials  *prometheus.CounterVec
	warnings *prometheus.CounterVec

	// Transfers
	transfers *prometheus.CounterVec

	// Pipeline aggregate
	pipelineTokenUsage prometheus.Gauge
	pipelineCostUsage  prometheus.Gauge
	exceededAgents     prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with Prometheus collectors.
// Call it once per process: collectors register against the default
// registry.
func NewMetrics() *Metrics {
	return &Metrics{
		usageRecords: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ganymede_budget_usage_records_total",
				Help: "Total number of usage records applied",
			},
			[]string{"agent", "result"},
		),

		tokensTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ganymede_budget_tokens_total",
				Help: "Total tokens recorded per agent",
			},
			[]string{"agent"},
		),

		costTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ganymede_budget_cost_usd_total",
				Help: "Total cost in USD recorded per agent",
			},
			[]string{"agent"},
		),

		denials: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ganymede_budget_denials_total",
				Help: "Total number of usage records denied by a hard limit",
			},
			[]string{"agent"},
		),

		warnings: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ganymede_budget_warnings_total",
				Help: "Total number of warning thresholds fired",
			},
			[]string{"agent", "dimension", "severity"},
		),

		transfers: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ganymede_budget_transfers_total",
				Help: "Total number of budget transfer attempts",
			},
			[]string{"result"},
		),

		pipelineTokenUsage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ganymede_pipeline_token_usage_percent",
				Help: "Aggregate token usage against the pipeline limit (0-100)",
			},
		),

		pipelineCostUsage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ganymede_pipeline_cost_usage_percent",
				Help: "Aggregate cost usage against the pipeline limit (0-100)",
			},
		),

		exceededAgents: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ganymede_pipeline_exceeded_agents",
				Help: "Number of agents currently past their hard limit",
			},
		),
	}
}

// RecordUsage counts one applied usage record and its warnings.
func (m *Metrics) RecordUsage(agent string, tokens int64, costUSD float64, result account.UsageResult) {
	outcome := "allowed"
	if !result.Allowed {
		outcome = "denied"
	}
	m.usageRecords.WithLabelValues(agent, outcome).Inc()
	m.tokensTotal.WithLabelValues(agent).Add(float64(tokens))
	m.costTotal.WithLabelValues(agent).Add(costUSD)

	for _, w := range result.Warnings {
		m.warnings.WithLabelValues(agent, string(w.Type), string(w.Severity)).Inc()
	}
}

// RecordDenial counts one denied usage record.
func (m *Metrics) RecordDenial(agent string) {
	m.denials.WithLabelValues(agent).Inc()
}

// RecordTransfer counts one transfer attempt.
func (m *Metrics) RecordTransfer(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.transfers.WithLabelValues(result).Inc()
}

// UpdatePipeline publishes the aggregate gauges from a status snapshot.
func (m *Metrics) UpdatePipeline(status *PipelineStatus) {
	m.pipelineTokenUsage.Set(status.TokenUsagePercent)
	m.pipelineCostUsage.Set(status.CostUsagePercent)
	m.exceededAgents.Set(float64(len(status.ExceededAgents)))
}
