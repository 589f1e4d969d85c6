package config

// Config is the root configuration for the budget governance core.
type Config struct {
	// Pipeline sets the aggregate limits for the whole pipeline.
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Categories maps category names to default per-agent limits,
	// applied when an account is created without explicit limits.
	Categories map[string]CategoryConfig `yaml:"categories"`

	// Persistence selects and configures the snapshot store.
	Persistence PersistenceConfig `yaml:"persistence"`

	// Suggestions tunes the aggregator's suggestion thresholds.
	Suggestions SuggestionsConfig `yaml:"suggestions"`

	// Trends configures the trend series and its scheduled sampling.
	Trends TrendsConfig `yaml:"trends"`

	// Logging configures the process logger.
	Logging LoggingConfig `yaml:"logging"`
}

// PipelineConfig contains the pipeline-wide budget limits.
type PipelineConfig struct {
	// MaxTokens is the aggregate token limit. Default: 1,500,000.
	MaxTokens int64 `yaml:"max_tokens"`

	// MaxCostUSD is the aggregate cost limit in USD. Default: 50.0.
	MaxCostUSD float64 `yaml:"max_cost_usd"`

	// WarningThreshold is the fraction (0.0-1.0) of a pipeline limit at
	// which the aggregate status reports a warning. Default: 0.8.
	WarningThreshold float64 `yaml:"warning_threshold"`
}

// CategoryConfig contains the default limits for one agent category.
type CategoryConfig struct {
	// MaxTokens is the default token limit for agents in this category.
	MaxTokens int64 `yaml:"max_tokens"`

	// MaxCostUSD is the default cost limit. Zero means no cost limit.
	MaxCostUSD float64 `yaml:"max_cost_usd"`
}

// PersistenceConfig selects the snapshot store backend.
type PersistenceConfig struct {
	// Enabled turns snapshot persistence on. Default: false.
	Enabled bool `yaml:"enabled"`

	// Backend is "file", "sqlite", or "memory". Default: "file".
	Backend string `yaml:"backend"`

	// Directory is where the file backend writes per-session snapshots.
	// Default: "data/budgets".
	Directory string `yaml:"directory"`

	// SQLitePath is the database path for the sqlite backend.
	// Default: "data/budgets.db".
	SQLitePath string `yaml:"sqlite_path"`

	// ArchivePath enables the durable transfer archive when non-empty.
	ArchivePath string `yaml:"archive_path"`
}

// SuggestionsConfig exposes the aggregator's suggestion thresholds as
// named, overridable values.
type SuggestionsConfig struct {
	// IncreasePercent triggers increase suggestions. Default: 90.
	IncreasePercent float64 `yaml:"increase_percent"`

	// DecreasePercent triggers decrease suggestions. Default: 15.
	DecreasePercent float64 `yaml:"decrease_percent"`

	// RebalanceSharePercent marks an agent as dominant. Default: 80.
	RebalanceSharePercent float64 `yaml:"rebalance_share_percent"`

	// TopConsumers caps the top-consumer list in reports. Default: 5.
	TopConsumers int `yaml:"top_consumers"`
}

// TrendsConfig configures the trend series.
type TrendsConfig struct {
	// MaxPoints bounds the trend series (FIFO eviction). Default: 100.
	MaxPoints int `yaml:"max_points"`

	// SampleSchedule is a standard cron expression driving scheduled
	// trend sampling. Empty disables the sampler.
	SampleSchedule string `yaml:"sample_schedule"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	// Default: "info".
	Level string `yaml:"level"`

	// Format is the output format ("json", "text"). Default: "text".
	Format string `yaml:"format"`
}
