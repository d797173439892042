package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"meal-planner/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session := application.Session()
	if !offline {
		refreshCtx, cancel := context.WithTimeout(ctx, timeout)
		if err := session.RefreshAround(refreshCtx, session.Today()); err != nil {
			log.Warn("Initial refresh failed, serving saved data", zap.Error(err))
		}
		cancel()
	}

	srv := server.New(session, application, application.Health, log)
	return srv.Run(ctx, cfg.Server.Port)
}
