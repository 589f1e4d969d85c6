package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "pipeline.max_tokens").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validatePipeline(&cfg.Pipeline)...)
	errs = append(errs, validateCategories(cfg.Categories)...)
	errs = append(errs, validatePersistence(&cfg.Persistence)...)
	errs = append(errs, validateSuggestions(&cfg.Suggestions)...)
	errs = append(errs, validateTrends(&cfg.Trends)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validatePipeline validates the pipeline-wide limits.
func validatePipeline(cfg *PipelineConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxTokens < 0 {
		errs = append(errs, FieldError{
			Field:   "pipeline.max_tokens",
			Message: "must not be negative",
		})
	}
	if cfg.MaxCostUSD < 0 {
		errs = append(errs, FieldError{
			Field:   "pipeline.max_cost_usd",
			Message: "must not be negative",
		})
	}
	if cfg.WarningThreshold <= 0 || cfg.WarningThreshold > 1 {
		errs = append(errs, FieldError{
			Field:   "pipeline.warning_threshold",
			Message: "must be a fraction in (0, 1]",
		})
	}

	return errs
}

// validateCategories validates the category default table.
func validateCategories(categories map[string]CategoryConfig) []FieldError {
	var errs []FieldError

	for name, cat := range categories {
		if name == "" {
			errs = append(errs, FieldError{
				Field:   "categories",
				Message: "category name must not be empty",
			})
			continue
		}
		if cat.MaxTokens < 0 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("categories.%s.max_tokens", name),
				Message: "must not be negative",
			})
		}
		if cat.MaxCostUSD < 0 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("categories.%s.max_cost_usd", name),
				Message: "must not be negative",
			})
		}
	}

	return errs
}

// validatePersistence validates the persistence configuration.
func validatePersistence(cfg *PersistenceConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "file", "sqlite", "memory":
	default:
		errs = append(errs, FieldError{
			Field:   "persistence.backend",
			Message: fmt.Sprintf("unknown backend %q (must be file, sqlite, or memory)", cfg.Backend),
		})
	}

	if cfg.Enabled && cfg.Backend == "file" && cfg.Directory == "" {
		errs = append(errs, FieldError{
			Field:   "persistence.directory",
			Message: "directory is required for the file backend",
		})
	}
	if cfg.Enabled && cfg.Backend == "sqlite" && cfg.SQLitePath == "" {
		errs = append(errs, FieldError{
			Field:   "persistence.sqlite_path",
			Message: "sqlite_path is required for the sqlite backend",
		})
	}

	return errs
}

// validateSuggestions validates the suggestion thresholds.
func validateSuggestions(cfg *SuggestionsConfig) []FieldError {
	var errs []FieldError

	if cfg.IncreasePercent <= 0 || cfg.IncreasePercent > 100 {
		errs = append(errs, FieldError{
			Field:   "suggestions.increase_percent",
			Message: "must be a percentage in (0, 100]",
		})
	}
	if cfg.DecreasePercent <= 0 || cfg.DecreasePercent > 100 {
		errs = append(errs, FieldError{
			Field:   "suggestions.decrease_percent",
			Message: "must be a percentage in (0, 100]",
		})
	}
	if cfg.RebalanceSharePercent <= 0 || cfg.RebalanceSharePercent > 100 {
		errs = append(errs, FieldError{
			Field:   "suggestions.rebalance_share_percent",
			Message: "must be a percentage in (0, 100]",
		})
	}
	if cfg.DecreasePercent > 0 && cfg.IncreasePercent > 0 && cfg.DecreasePercent >= cfg.IncreasePercent {
		errs = append(errs, FieldError{
			Field:   "suggestions.decrease_percent",
			Message: "must be below increase_percent",
		})
	}
	if cfg.TopConsumers <= 0 {
		errs = append(errs, FieldError{
			Field:   "suggestions.top_consumers",
			Message: "must be positive",
		})
	}

	return errs
}

// validateTrends validates the trend series configuration.
func validateTrends(cfg *TrendsConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxPoints <= 0 {
		errs = append(errs, FieldError{
			Field:   "trends.max_points",
			Message: "must be positive",
		})
	}
	if cfg.SampleSchedule != "" {
		if _, err := cron.ParseStandard(cfg.SampleSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "trends.sample_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

// validateLogging validates the logging configuration.
func validateLogging(cfg *LoggingConfig) []FieldError {
	var errs []FieldError

	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "logging.level",
			Message: fmt.Sprintf("unknown level %q", cfg.Level),
		})
	}

	switch cfg.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "logging.format",
			Message: fmt.Sprintf("unknown format %q", cfg.Format),
		})
	}

	return errs
}
