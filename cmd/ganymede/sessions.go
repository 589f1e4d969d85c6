package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sessionsFlags struct {
	delete string
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List persisted budget sessions",
	Long: `List the budget sessions in the configured snapshot store.

Each pipeline run persists one snapshot per agent under a session
identifier. Old sessions can be removed with --delete.

Examples:
  # List all persisted sessions
  ganymede sessions

  # Delete a session's snapshot
  ganymede sessions --delete run-42-planner`,
	RunE: runSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)

	sessionsCmd.Flags().StringVar(&sessionsFlags.delete, "delete", "", "delete the snapshot for this session ID")
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if sessionsFlags.delete != "" {
		if err := store.Delete(sessionsFlags.delete); err != nil {
			return fmt.Errorf("failed to delete session %q: %w", sessionsFlags.delete, err)
		}
		fmt.Printf("Deleted session %s\n", sessionsFlags.delete)
		return nil
	}

	sessions, err := store.Sessions()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Println("No persisted sessions found.")
		return nil
	}

	fmt.Printf("Persisted sessions (%d):\n", len(sessions))
	for _, id := range sessions {
		snap, err := store.Load(id)
		if err != nil {
			return fmt.Errorf("failed to load session %q: %w", id, err)
		}
		if snap == nil {
			fmt.Printf("  %s (unreadable snapshot)\n", id)
			continue
		}
		fmt.Printf("  %s: %d tokens, $%.4f (saved %s)\n",
			id, snap.CurrentTokens, snap.CurrentCostUSD,
			snap.SavedAt.Format("2006-01-02 15:04:05"))
	}

	return nil
}
