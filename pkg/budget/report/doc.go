// Package report turns pipeline status snapshots into aggregated usage
// reports, trend series, and optimization suggestions.
//
// # Overview
//
// The Aggregator operates on PipelineStatus snapshots passed in by the
// caller; it holds no reference to the registry, which decouples reporting
// cadence from accounting. A snapshot can be summarized per agent, grouped
// into category summaries via a caller-supplied agent-to-category mapping,
// and scanned for suggestions (raise a starved agent's limit, lower an
// idle one's, rebalance away from a dominant consumer, warn on exceeded
// budgets).
//
// The suggestion thresholds are named configuration values rather than
// hidden constants; see Config.
//
// # Trends
//
// RecordTrendPoint appends a timestamped sample of the pipeline totals to
// a bounded FIFO series with running cumulative sums. The Sampler can
// drive this on a cron schedule from a live status source.
package report
