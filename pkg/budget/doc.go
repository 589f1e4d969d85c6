// Package budget implements the resource-governance core for multi-agent
// pipelines: per-agent token and cost accounting, pipeline-wide aggregate
// limits, and atomic budget reallocation between agents.
//
// # Overview
//
// The Registry owns one account per agent name and is the primary entry
// point. The execution layer records usage after every model call:
//
//	reg := budget.NewRegistry(budget.Config{
//	    Pipeline: budget.PipelineLimits{
//	        MaxTokens:        1_500_000,
//	        MaxCostUSD:       50.0,
//	        WarningThreshold: 0.8,
//	    },
//	})
//
//	result := reg.RecordAgentUsage("worker-1", tokensIn, tokensOut, costUSD)
//	if !result.Allowed {
//	    // stop dispatching work to this agent
//	}
//
// Periodically a caller takes a PipelineStatus snapshot and feeds it to the
// report package to produce aggregated reports and suggestions.
//
// # Architecture
//
// The package is organized into sub-packages:
//
//   - account: per-agent accounting primitive (counters, limits, warnings)
//   - persist: snapshot persistence backends (file, SQLite, memory)
//   - report: snapshot-driven summaries, suggestions, and trend series
//   - history: durable transfer-audit archive
//
// # Transfers
//
// Unused limit capacity can be moved between agents while the pipeline is
// running. A transfer validates and mutates both accounts inside a single
// critical section: no observer ever sees the source debited without the
// target credited, and the sum of limits is conserved.
//
// # Thread Safety
//
// All operations are safe for concurrent use. Usage recording on distinct
// agents proceeds in parallel; aggregate reads and transfers coordinate
// through the registry lock so no multi-account view is ever partial.
package budget
