package config

// Default values applied by ApplyDefaults.
const (
	DefaultPipelineMaxTokens        = 1_500_000
	DefaultPipelineMaxCostUSD       = 50.0
	DefaultPipelineWarningThreshold = 0.8

	DefaultPersistenceBackend   = "file"
	DefaultPersistenceDirectory = "data/budgets"
	DefaultSQLitePath           = "data/budgets.db"

	DefaultIncreasePercent       = 90.0
	DefaultDecreasePercent       = 15.0
	DefaultRebalanceSharePercent = 80.0
	DefaultTopConsumers          = 5

	DefaultMaxTrendPoints = 100

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// DefaultCategories returns the standard category default table.
func DefaultCategories() map[string]CategoryConfig {
	return map[string]CategoryConfig{
		"document":       {MaxTokens: 150_000},
		"execution":      {MaxTokens: 150_000},
		"analysis":       {MaxTokens: 150_000},
		"infrastructure": {MaxTokens: 50_000},
	}
}

// NewDefaultConfig returns a configuration with every default applied.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills unset fields with default values.
// It never overwrites a value the user has set.
func ApplyDefaults(cfg *Config) {
	if cfg.Pipeline.MaxTokens == 0 {
		cfg.Pipeline.MaxTokens = DefaultPipelineMaxTokens
	}
	if cfg.Pipeline.MaxCostUSD == 0 {
		cfg.Pipeline.MaxCostUSD = DefaultPipelineMaxCostUSD
	}
	if cfg.Pipeline.WarningThreshold == 0 {
		cfg.Pipeline.WarningThreshold = DefaultPipelineWarningThreshold
	}

	if cfg.Categories == nil {
		cfg.Categories = DefaultCategories()
	}

	if cfg.Persistence.Backend == "" {
		cfg.Persistence.Backend = DefaultPersistenceBackend
	}
	if cfg.Persistence.Directory == "" {
		cfg.Persistence.Directory = DefaultPersistenceDirectory
	}
	if cfg.Persistence.SQLitePath == "" {
		cfg.Persistence.SQLitePath = DefaultSQLitePath
	}

	if cfg.Suggestions.IncreasePercent == 0 {
		cfg.Suggestions.IncreasePercent = DefaultIncreasePercent
	}
	if cfg.Suggestions.DecreasePercent == 0 {
		cfg.Suggestions.DecreasePercent = DefaultDecreasePercent
	}
	if cfg.Suggestions.RebalanceSharePercent == 0 {
		cfg.Suggestions.RebalanceSharePercent = DefaultRebalanceSharePercent
	}
	if cfg.Suggestions.TopConsumers == 0 {
		cfg.Suggestions.TopConsumers = DefaultTopConsumers
	}

	if cfg.Trends.MaxPoints == 0 {
		cfg.Trends.MaxPoints = DefaultMaxTrendPoints
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
}
