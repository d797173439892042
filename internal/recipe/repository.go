package recipe

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"meal-planner/internal/database"
)

// Repository is a database-backed store for the last fetched catalog snapshot
// and for recipes imported through the clipper.
type Repository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewRepository creates a new Repository.
func NewRepository(db *sqlx.DB, logger *zap.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

type recipeRow struct {
	ID   string `db:"id"`
	Data string `db:"data"`
}

// SaveSnapshot replaces the stored catalog with recipes in one transaction.
func (r *Repository) SaveSnapshot(ctx context.Context, recipes []Recipe) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM recipes"); err != nil {
		return fmt.Errorf("failed to clear recipe snapshot: %w", err)
	}

	now := database.FormatTime(time.Now())
	for i, rec := range recipes {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal recipe %s: %w", rec.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO recipes (position, id, data, updated_at) VALUES (?, ?, ?, ?)",
			i, rec.ID, string(data), now,
		); err != nil {
			return fmt.Errorf("failed to insert recipe %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit recipe snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the stored catalog in its original order.
// Rows that no longer decode are skipped with a warning.
func (r *Repository) LoadSnapshot(ctx context.Context) ([]Recipe, error) {
	var rows []recipeRow
	if err := r.db.SelectContext(ctx, &rows, "SELECT id, data FROM recipes ORDER BY position"); err != nil {
		return nil, fmt.Errorf("failed to load recipe snapshot: %w", err)
	}
	return r.decodeRows(rows), nil
}

// SaveImported inserts or replaces an imported recipe.
func (r *Repository) SaveImported(ctx context.Context, rec Recipe) error {
	if rec.ID == "" {
		return errors.New("imported recipe has no id")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal recipe to JSON: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO imported_recipes (id, source_url, data, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET source_url = excluded.source_url, data = excluded.data`,
		rec.ID, rec.SourceURL, string(data), database.FormatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save imported recipe: %w", err)
	}
	return nil
}

// GetImported retrieves an imported recipe by its ID.
func (r *Repository) GetImported(ctx context.Context, id string) (*Recipe, error) {
	var row recipeRow
	err := r.db.GetContext(ctx, &row, "SELECT id, data FROM imported_recipes WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Recipe not found
		}
		return nil, fmt.Errorf("failed to get imported recipe by ID: %w", err)
	}

	rec, err := decodeRecipe(row.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipe JSON: %w", err)
	}
	return &rec, nil
}

// ListImported returns all imported recipes, oldest first.
func (r *Repository) ListImported(ctx context.Context) ([]Recipe, error) {
	var rows []recipeRow
	if err := r.db.SelectContext(ctx, &rows, "SELECT id, data FROM imported_recipes ORDER BY created_at, id"); err != nil {
		return nil, fmt.Errorf("failed to list imported recipes: %w", err)
	}
	return r.decodeRows(rows), nil
}

// Count returns the number of recipes in the stored snapshot.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM recipes"); err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	return count, nil
}

func (r *Repository) decodeRows(rows []recipeRow) []Recipe {
	recipes := make([]Recipe, 0, len(rows))
	for _, row := range rows {
		rec, err := decodeRecipe(row.Data)
		if err != nil {
			r.logger.Warn("skipping undecodable recipe row", zap.String("id", row.ID), zap.Error(err))
			continue
		}
		recipes = append(recipes, rec)
	}
	return recipes
}

// decodeRecipe goes through the normalizer so stored rows written by older
// versions come back in the current shape.
func decodeRecipe(data string) (Recipe, error) {
	var raw RawRecipe
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return Recipe{}, err
	}
	return Normalize(raw), nil
}
