package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"meal-planner/internal/database"
)

// CallMetric records one call to the recipe/plan API.
type CallMetric struct {
	Operation  string
	StatusCode int
	Success    bool
	LatencyMS  int64
	Timestamp  time.Time
}

// Recorder receives call metrics. Store implements it; Nop discards.
type Recorder interface {
	Record(ctx context.Context, m CallMetric) error
}

// Nop is a Recorder that drops everything.
type Nop struct{}

func (Nop) Record(context.Context, CallMetric) error { return nil }

// Store handles persistence of metrics to SQLite.
type Store struct {
	db *sqlx.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m CallMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO call_metrics (operation, status_code, success, latency_ms, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
		m.Operation, m.StatusCode, m.Success, m.LatencyMS, database.FormatTime(ts),
	)
	if err != nil {
		return fmt.Errorf("failed to record call metric: %w", err)
	}
	return nil
}

// DailySummary aggregates calls for one day and operation.
type DailySummary struct {
	Date         string  `db:"day" json:"date"`
	Operation    string  `db:"operation" json:"operation"`
	Calls        int     `db:"calls" json:"calls"`
	Failures     int     `db:"failures" json:"failures"`
	AvgLatencyMS float64 `db:"avg_latency_ms" json:"avgLatencyMs"`
}

// GetDailySummary retrieves per-day totals for the last N days, newest first.
func (s *Store) GetDailySummary(ctx context.Context, days int) ([]DailySummary, error) {
	since := database.FormatTime(time.Now().AddDate(0, 0, -days))

	var results []DailySummary
	err := s.db.SelectContext(ctx, &results, `
		SELECT substr(timestamp, 1, 10) AS day,
		       operation,
		       COUNT(*) AS calls,
		       SUM(CASE WHEN success THEN 0 ELSE 1 END) AS failures,
		       AVG(latency_ms) AS avg_latency_ms
		FROM call_metrics
		WHERE timestamp >= ?
		GROUP BY day, operation
		ORDER BY day DESC, operation`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily summary: %w", err)
	}
	return results, nil
}

// Cleanup removes records older than the specified number of days.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := database.FormatTime(time.Now().AddDate(0, 0, -olderThanDays))
	res, err := s.db.ExecContext(ctx, "DELETE FROM call_metrics WHERE timestamp < ?", threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up call metrics: %w", err)
	}
	return res.RowsAffected()
}

// Since measures a call started at start.
func Since(operation string, start time.Time, statusCode int, err error) CallMetric {
	return CallMetric{
		Operation:  operation,
		StatusCode: statusCode,
		Success:    err == nil && statusCode < 400,
		LatencyMS:  time.Since(start).Milliseconds(),
		Timestamp:  time.Now(),
	}
}
