package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/ganymede/pkg/budget/persist"
)

var reportFlags struct {
	session string
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render a usage report from persisted budget state",
	Long: `Load the persisted budget snapshots and render an aggregated
usage report: totals, per-session consumption sorted by cost, and any
warnings or overrides recorded before the pipeline stopped.

Examples:
  # Report over every persisted session
  ganymede report

  # Restrict to sessions of one pipeline run
  ganymede report --session run-42`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportFlags.session, "session", "", "only include session IDs with this prefix")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := store.Sessions()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	var snaps []*persist.Snapshot
	for _, id := range sessions {
		if reportFlags.session != "" && !strings.HasPrefix(id, reportFlags.session) {
			continue
		}
		snap, err := store.Load(id)
		if err != nil {
			return fmt.Errorf("failed to load session %q: %w", id, err)
		}
		if snap != nil {
			snaps = append(snaps, snap)
		}
	}

	if len(snaps) == 0 {
		fmt.Println("No persisted budget state found.")
		return nil
	}

	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].CurrentCostUSD != snaps[j].CurrentCostUSD {
			return snaps[i].CurrentCostUSD > snaps[j].CurrentCostUSD
		}
		return snaps[i].SessionID < snaps[j].SessionID
	})

	var totalTokens int64
	var totalCost float64
	for _, snap := range snaps {
		totalTokens += snap.CurrentTokens
		totalCost += snap.CurrentCostUSD
	}

	fmt.Println("=== Persisted Budget Report ===")
	fmt.Println()
	fmt.Printf("Sessions: %d\n", len(snaps))
	fmt.Printf("Total: %d tokens, $%.4f\n", totalTokens, totalCost)
	fmt.Println()

	for _, snap := range snaps {
		line := fmt.Sprintf("  %s: %d tokens", snap.SessionID, snap.CurrentTokens)
		if snap.TokenLimit != nil {
			line += fmt.Sprintf(" / %d", *snap.TokenLimit)
		}
		line += fmt.Sprintf(", $%.4f", snap.CurrentCostUSD)
		if snap.CostLimitUSD != nil {
			line += fmt.Sprintf(" / $%.2f", *snap.CostLimitUSD)
		}
		if len(snap.TriggeredWarnings) > 0 {
			line += fmt.Sprintf(" [warnings: %s]", strings.Join(snap.TriggeredWarnings, " "))
		}
		if snap.OverrideActive {
			line += " [override]"
		}
		fmt.Println(line)
	}

	return nil
}
