package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mercator-hq/ganymede/pkg/budget"
	"mercator-hq/ganymede/pkg/budget/history"
	"mercator-hq/ganymede/pkg/budget/report"
	"mercator-hq/ganymede/pkg/config"
)

var runFlags struct {
	session string
	watch   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a governed budget session until interrupted",
	Long: `Start a budget registry from the configuration file and keep it
running until interrupted. Persistence, the transfer archive, and scheduled
trend sampling are enabled per the configuration.

While running, edits to the configuration file are reloaded, re-validated,
and applied to the live registry: pipeline limits take effect immediately
and category defaults apply to agents created afterwards.

Examples:
  # Run with the default config
  ganymede run

  # Resume a persisted session
  ganymede run --session run-42

  # Disable live config reloading
  ganymede run --watch=false`,
	RunE: runSession,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.session, "session", "", "session id for persisted snapshots (generated when empty)")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", true, "apply configuration file changes to the live registry")
}

func runSession(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	registry, err := buildRegistry(cfg, runFlags.session)
	if err != nil {
		return err
	}
	defer registry.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Trends.SampleSchedule != "" {
		aggregator := report.NewAggregator(report.Config{
			IncreasePercent:       cfg.Suggestions.IncreasePercent,
			DecreasePercent:       cfg.Suggestions.DecreasePercent,
			RebalanceSharePercent: cfg.Suggestions.RebalanceSharePercent,
			TopConsumers:          cfg.Suggestions.TopConsumers,
			MaxTrendPoints:        cfg.Trends.MaxPoints,
		})
		sampler := report.NewSampler(aggregator, registry, cfg.Trends.SampleSchedule)
		if err := sampler.Start(ctx); err != nil {
			return fmt.Errorf("failed to start trend sampler: %w", err)
		}
		defer sampler.Stop()
		fmt.Printf("✓ Trend sampler started (%s)\n", cfg.Trends.SampleSchedule)
	}

	if runFlags.watch {
		fw, err := config.NewFileWatcher(cfgFile, slog.Default())
		if err != nil {
			return fmt.Errorf("failed to watch config: %w", err)
		}
		defer fw.Stop()

		go func() {
			err := fw.Watch(ctx, func(next *config.Config) error {
				applyConfig(registry, next)
				slog.Info("configuration applied to registry",
					"max_tokens", next.Pipeline.MaxTokens,
					"max_cost_usd", next.Pipeline.MaxCostUSD,
				)
				return nil
			})
			if err != nil {
				slog.Error("config watcher stopped", "error", err)
			}
		}()
		fmt.Printf("✓ Watching %s for changes\n", cfgFile)
	}

	if id := registry.SessionID(); id != "" {
		fmt.Printf("✓ Session %s started\n", id)
	}
	fmt.Println("Press Ctrl+C to stop")

	<-ctx.Done()

	fmt.Println("\n✓ Session stopped")
	return nil
}

// buildRegistry assembles a registry from the configuration, opening the
// snapshot store and transfer archive when persistence is enabled. The
// registry owns both and closes them with Close.
func buildRegistry(cfg *config.Config, sessionID string) (*budget.Registry, error) {
	rc := budget.Config{
		Pipeline:   pipelineLimitsFromConfig(cfg),
		Categories: categoryLimitsFromConfig(cfg),
		SessionID:  sessionID,
	}

	if cfg.Persistence.Enabled {
		store, err := openStore(cfg)
		if err != nil {
			return nil, err
		}
		rc.Store = store

		if cfg.Persistence.ArchivePath != "" {
			archive, err := history.Open(cfg.Persistence.ArchivePath)
			if err != nil {
				store.Close()
				return nil, fmt.Errorf("failed to open transfer archive: %w", err)
			}
			rc.Archive = archive
		}
	}

	return budget.NewRegistry(rc), nil
}

// applyConfig pushes a loaded configuration into a live registry.
// Pipeline limits take effect immediately; category defaults affect only
// accounts created afterwards.
func applyConfig(r *budget.Registry, cfg *config.Config) {
	r.SetPipelineLimits(pipelineLimitsFromConfig(cfg))
	r.SetCategoryDefaults(categoryLimitsFromConfig(cfg))
}

func pipelineLimitsFromConfig(cfg *config.Config) budget.PipelineLimits {
	return budget.PipelineLimits{
		MaxTokens:        cfg.Pipeline.MaxTokens,
		MaxCostUSD:       cfg.Pipeline.MaxCostUSD,
		WarningThreshold: cfg.Pipeline.WarningThreshold,
	}
}

func categoryLimitsFromConfig(cfg *config.Config) map[string]budget.CategoryLimits {
	if cfg.Categories == nil {
		return nil
	}
	out := make(map[string]budget.CategoryLimits, len(cfg.Categories))
	for name, c := range cfg.Categories {
		out[name] = budget.CategoryLimits{
			MaxTokens:  c.MaxTokens,
			MaxCostUSD: c.MaxCostUSD,
		}
	}
	return out
}
