package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"meal-planner/internal/app"
	"meal-planner/internal/config"
	"meal-planner/internal/logger"
	"meal-planner/internal/telegram"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		zap.NewExample().Fatal("Failed to load config", zap.Error(err))
	}

	log := logger.New(cfg.Log.Level)
	defer log.Sync()

	// 2. Initialize storage, API client and session
	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	application, err := app.NewApp(initCtx, cfg, log, nil)
	cancel()
	if err != nil {
		log.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer application.Close()

	session := application.Session()
	refreshCtx, cancel := context.WithTimeout(context.Background(), cfg.API.Timeout)
	if err := session.RefreshAround(refreshCtx, session.Today()); err != nil {
		log.Warn("Initial refresh failed, serving saved data", zap.Error(err))
	}
	cancel()

	// 3. Initialize Telegram Bot
	bot, err := telegram.NewBot(cfg, telegram.Deps{
		Session:  session,
		Importer: application,
		Stats:    application.Metrics(),
		Health:   application.Health,
		Logger:   log,
	})
	if err != nil {
		log.Fatal("Failed to initialize Telegram Bot", zap.Error(err))
	}

	// 4. Start Server with Graceful Shutdown
	mux := http.NewServeMux()
	bot.RegisterHandlers(mux)

	port := strconv.Itoa(cfg.Server.Port)
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	go func() {
		log.Info("Telegram Bot Server listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	bot.Wait()

	log.Info("Server exiting")
}
