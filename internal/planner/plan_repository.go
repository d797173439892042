package planner

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type planRow struct {
	UserID   string `db:"user_id"`
	Date     string `db:"date"`
	Slot     string `db:"slot"`
	RecipeID string `db:"recipe_id"`
}

// PlanRepository is a database-backed copy of the last fetched plan list,
// used to start with known data when the API is unreachable.
type PlanRepository struct {
	db *sqlx.DB
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(db *sqlx.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// SaveSnapshot replaces the stored plan list. Input order is kept because
// the index resolves conflicts by it.
func (r *PlanRepository) SaveSnapshot(ctx context.Context, plans []Assignment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin plan transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM plans"); err != nil {
		return fmt.Errorf("failed to clear plans: %w", err)
	}
	for i, p := range plans {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO plans (position, user_id, date, slot, recipe_id) VALUES (?, ?, ?, ?, ?)",
			i, p.UserID, p.Date, p.Slot, p.RecipeID,
		); err != nil {
			return fmt.Errorf("failed to insert plan for %s: %w", p.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit plans: %w", err)
	}
	return nil
}

// LoadSnapshot returns the stored plan list in its saved order.
func (r *PlanRepository) LoadSnapshot(ctx context.Context) ([]Assignment, error) {
	var rows []planRow
	if err := r.db.SelectContext(ctx, &rows,
		"SELECT user_id, date, slot, recipe_id FROM plans ORDER BY position",
	); err != nil {
		return nil, fmt.Errorf("failed to load plans: %w", err)
	}

	plans := make([]Assignment, 0, len(rows))
	for _, row := range rows {
		plans = append(plans, Assignment{
			UserID:   row.UserID,
			Date:     row.Date,
			Slot:     row.Slot,
			RecipeID: row.RecipeID,
		})
	}
	return plans, nil
}
