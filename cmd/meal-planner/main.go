// Command meal-planner plans meals against the recipe API and serves the
// plan over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"meal-planner/internal/app"
	"meal-planner/internal/config"
	"meal-planner/internal/logger"
)

var (
	envFile string
	offline bool
	timeout time.Duration

	log         *zap.Logger
	cfg         *config.Config
	application *app.App
)

var rootCmd = &cobra.Command{
	Use:   "meal-planner",
	Short: "Plan meals and build shopping lists",
	Long: `meal-planner reads recipes and plans from the recipe API, keeps a local
copy for offline use and derives week and month calendars and a shopping list.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(envFile)
		if err != nil {
			return err
		}
		log = logger.New(cfg.Log.Level)

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		application, err = app.NewApp(ctx, cfg, log, nil)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		_ = log.Sync()
		if application == nil {
			return nil
		}
		return application.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "Use the locally saved recipes and plans without contacting the API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Timeout for API calls")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(weekCmd)
	rootCmd.AddCommand(monthCmd)
	rootCmd.AddCommand(shoppingCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(assignCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(dislikeCmd)
	rootCmd.AddCommand(pantryCmd)
	rootCmd.AddCommand(metricsCleanupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// refresh loads fresh data around day unless --offline is set. A failed
// refresh is reported and the saved data is used.
func refresh(cmd *cobra.Command, day time.Time) {
	if offline {
		return
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	if err := application.Session().RefreshAround(ctx, day); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: showing saved data: %v\n", err)
	}
}
