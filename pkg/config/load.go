package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. The configuration is not modified by environment variables; use
// LoadConfigWithEnvOverrides for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Environment variables follow the
// naming convention GANYMEDE_SECTION_FIELD (e.g., GANYMEDE_PIPELINE_MAX_TOKENS)
// and always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables use the format GANYMEDE_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Pipeline overrides
	if val := os.Getenv("GANYMEDE_PIPELINE_MAX_TOKENS"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Pipeline.MaxTokens = i
		}
	}
	if val := os.Getenv("GANYMEDE_PIPELINE_MAX_COST_USD"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Pipeline.MaxCostUSD = f
		}
	}
	if val := os.Getenv("GANYMEDE_PIPELINE_WARNING_THRESHOLD"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Pipeline.WarningThreshold = f
		}
	}

	// Persistence overrides
	if val := os.Getenv("GANYMEDE_PERSISTENCE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Persistence.Enabled = b
		}
	}
	if val := os.Getenv("GANYMEDE_PERSISTENCE_BACKEND"); val != "" {
		cfg.Persistence.Backend = val
	}
	if val := os.Getenv("GANYMEDE_PERSISTENCE_DIRECTORY"); val != "" {
		cfg.Persistence.Directory = val
	}
	if val := os.Getenv("GANYMEDE_PERSISTENCE_SQLITE_PATH"); val != "" {
		cfg.Persistence.SQLitePath = val
	}
	if val := os.Getenv("GANYMEDE_PERSISTENCE_ARCHIVE_PATH"); val != "" {
		cfg.Persistence.ArchivePath = val
	}

	// Suggestion overrides
	if val := os.Getenv("GANYMEDE_SUGGESTIONS_INCREASE_PERCENT"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Suggestions.IncreasePercent = f
		}
	}
	if val := os.Getenv("GANYMEDE_SUGGESTIONS_DECREASE_PERCENT"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Suggestions.DecreasePercent = f
		}
	}
	if val := os.Getenv("GANYMEDE_SUGGESTIONS_REBALANCE_SHARE_PERCENT"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Suggestions.RebalanceSharePercent = f
		}
	}
	if val := os.Getenv("GANYMEDE_SUGGESTIONS_TOP_CONSUMERS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Suggestions.TopConsumers = i
		}
	}

	// Trend overrides
	if val := os.Getenv("GANYMEDE_TRENDS_MAX_POINTS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Trends.MaxPoints = i
		}
	}
	if val := os.Getenv("GANYMEDE_TRENDS_SAMPLE_SCHEDULE"); val != "" {
		cfg.Trends.SampleSchedule = val
	}

	// Logging overrides
	if val := os.Getenv("GANYMEDE_LOGGING_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("GANYMEDE_LOGGING_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
}
