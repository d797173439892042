package preferences

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"meal-planner/internal/database"
)

// SQLiteStore keeps preferences in the single-row preferences table.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(db *sqlx.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Load(ctx context.Context) (Preferences, error) {
	var data string
	err := s.db.GetContext(ctx, &data, "SELECT data FROM preferences WHERE id = 1")
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Default(), nil
		}
		return Preferences{}, fmt.Errorf("failed to load preferences: %w", err)
	}
	return decode([]byte(data))
}

func (s *SQLiteStore) Save(ctx context.Context, p Preferences) error {
	data, err := encode(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO preferences (id, version, data, updated_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET version = excluded.version, data = excluded.data, updated_at = excluded.updated_at`,
		CurrentVersion, string(data), database.FormatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}
