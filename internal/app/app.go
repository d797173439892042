package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"meal-planner/internal/backend"
	"meal-planner/internal/clipper"
	"meal-planner/internal/config"
	"meal-planner/internal/database"
	"meal-planner/internal/llm"
	"meal-planner/internal/metrics"
	"meal-planner/internal/planner"
	"meal-planner/internal/preferences"
	"meal-planner/internal/recipe"
)

// App holds the application's dependencies.
type App struct {
	cfg          *config.Config
	logger       *zap.Logger
	db           *database.DB
	session      *Session
	clipper      *clipper.Clipper
	metricsStore *metrics.Store
	recipeRepo   *recipe.Repository
	closers      []io.Closer
}

// NewApp opens the database, builds every collaborator and seeds the session
// from the last saved snapshot. It does not contact the API.
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, notifier Notifier) (*App, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a := &App{
		cfg:          cfg,
		logger:       logger,
		db:           db,
		metricsStore: metrics.NewStore(db.SQL),
		recipeRepo:   recipe.NewRepository(db.SQL, logger),
	}
	a.closers = append(a.closers, db)

	prefStore, err := preferences.NewStore(ctx, cfg, db.SQL)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create preferences store: %w", err)
	}
	if c, ok := prefStore.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	var textGen llm.TextGenerator
	if cfg.Gemini.APIKey != "" {
		gemini, err := llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		textGen = gemini
		a.closers = append(a.closers, gemini)
	} else {
		logger.Info("GEMINI_API_KEY not set, clipping is limited to pages with recipe metadata")
	}
	a.clipper = clipper.NewClipper(textGen, a.recipeRepo, logger)

	a.session = NewSession(SessionDeps{
		Backend:     backend.NewClient(cfg, a.metricsStore, logger),
		Preferences: prefStore,
		Recipes:     a.recipeRepo,
		Plans:       planner.NewPlanRepository(db.SQL),
		Notifier:    notifier,
		Logger:      logger,
		UserID:      cfg.API.UserID,
		Location:    cfg.Location(),
	})
	if err := a.session.Load(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) Session() *Session {
	return a.session
}

func (a *App) Metrics() *metrics.Store {
	return a.metricsStore
}

func (a *App) Config() *config.Config {
	return a.cfg
}

// ImportRecipe clips a recipe page and adds it to the session's catalog.
func (a *App) ImportRecipe(ctx context.Context, url string) (*recipe.Recipe, error) {
	rec, err := a.clipper.ClipURL(ctx, url)
	if err != nil {
		return nil, err
	}
	a.session.AddImported(*rec)
	a.logger.Info("Imported recipe", zap.String("id", rec.ID), zap.String("name", rec.Name))
	return rec, nil
}

// Health returns runtime statistics for the data directory.
func (a *App) Health() metrics.SysHealth {
	return metrics.GetSysHealth(filepath.Dir(a.cfg.Database.Path))
}

// Close releases resources in reverse order of creation.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}
