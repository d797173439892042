package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupDays int

var metricsCleanupCmd = &cobra.Command{
	Use:   "metrics-cleanup",
	Short: "Remove old API call metrics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		affected, err := application.Metrics().Cleanup(cmd.Context(), cleanupDays)
		if err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Successfully removed %d old metric records.\n", affected)
		return nil
	},
}

func init() {
	metricsCleanupCmd.Flags().IntVar(&cleanupDays, "days", 30, "Keep records for the last N days")
}
