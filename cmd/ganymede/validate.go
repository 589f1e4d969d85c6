package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/ganymede/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load the configuration file, apply defaults and environment
overrides, and report every validation error found.

Examples:
  # Validate the default config.yaml
  ganymede validate

  # Validate a specific file
  ganymede validate --config /etc/ganymede/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			fmt.Printf("Configuration file %s is invalid:\n", cfgFile)
			for _, fe := range verr.Errors {
				fmt.Printf("  - %s\n", fe.Error())
			}
			return fmt.Errorf("%d validation errors", len(verr.Errors))
		}
		return err
	}

	fmt.Printf("Configuration file %s is valid.\n", cfgFile)
	fmt.Printf("  Pipeline: %d tokens, $%.2f, warning at %.0f%%\n",
		cfg.Pipeline.MaxTokens, cfg.Pipeline.MaxCostUSD, cfg.Pipeline.WarningThreshold*100)
	fmt.Printf("  Categories: %d\n", len(cfg.Categories))
	fmt.Printf("  Persistence: %s (enabled: %t)\n", cfg.Persistence.Backend, cfg.Persistence.Enabled)

	return nil
}
