// Package server exposes the planning session over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"meal-planner/internal/app"
	"meal-planner/internal/metrics"
	"meal-planner/internal/recipe"
)

const (
	requestTimeout  = 30 * time.Second
	maxBodySize     = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// Importer clips a recipe page into the catalog.
type Importer interface {
	ImportRecipe(ctx context.Context, url string) (*recipe.Recipe, error)
}

// Server serves the session's views and commands.
type Server struct {
	session  *app.Session
	importer Importer
	health   func() metrics.SysHealth
	logger   *zap.Logger
	router   *gin.Engine
}

// New builds the router. importer and health may be nil.
func New(session *app.Session, importer Importer, health func() metrics.SysHealth, logger *zap.Logger) *Server {
	s := &Server{
		session:  session,
		importer: importer,
		health:   health,
		logger:   logger,
	}
	s.router = s.setupRouter()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on port until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(recovery(s.logger))
	router.Use(requestid.New())
	router.Use(requestLogger(s.logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))
	router.Use(bodySizeLimit(maxBodySize))
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	router.GET("/health", s.handleHealth)

	api := router.Group("/api")
	{
		api.GET("/recipes", s.handleSuggestions)
		api.GET("/recipes/:id", s.handleRecipe)
		api.POST("/recipes/import", s.handleImport)
		api.GET("/tags", s.handleTags)

		api.GET("/week", s.handleWeek)
		api.GET("/month", s.handleMonth)
		api.GET("/shopping-list", s.handleShoppingList)

		api.GET("/plans/:date/:slot", s.handleLookup)
		api.POST("/plans", s.handleAssign)
		api.POST("/refresh", s.handleRefresh)

		prefs := api.Group("/preferences")
		prefs.GET("", s.handleGetPreferences)
		prefs.PUT("", s.handlePutPreferences)
		prefs.POST("/dislikes", s.tokenHandler(s.session.AddDislike))
		prefs.DELETE("/dislikes/:token", s.tokenHandler(s.session.RemoveDislike))
		prefs.POST("/pantry", s.tokenHandler(s.session.AddPantry))
		prefs.DELETE("/pantry/:token", s.tokenHandler(s.session.RemovePantry))
	}
	return router
}
