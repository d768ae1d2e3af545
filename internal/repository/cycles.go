package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Nazarious-ucu/weather-collector/internal/models"
)

// CycleRepository keeps the history of collection cycles.
type CycleRepository struct {
	DB *sql.DB
}

func NewCycleRepository(db *sql.DB) *CycleRepository {
	return &CycleRepository{DB: db}
}

func (r *CycleRepository) SaveCycle(ctx context.Context, report models.CycleReport) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO cycles
    		(started_at, duration_ms, attempted, succeeded, failed, fetch_failures, publish_failures)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		report.StartedAt.UTC().Format(time.RFC3339Nano),
		report.Duration.Milliseconds(),
		report.Attempted,
		report.Succeeded,
		report.Failed,
		report.FetchFailures,
		report.PublishFailures,
	)
	return err
}

// Recent returns up to limit reports, newest first.
func (r *CycleRepository) Recent(ctx context.Context, limit int) ([]models.CycleReport, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT started_at, duration_ms, attempted, succeeded, failed, fetch_failures, publish_failures
		FROM cycles
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.CycleReport
	for rows.Next() {
		var (
			rep        models.CycleReport
			startedAt  string
			durationMs int64
		)
		if err := rows.Scan(
			&startedAt,
			&durationMs,
			&rep.Attempted,
			&rep.Succeeded,
			&rep.Failed,
			&rep.FetchFailures,
			&rep.PublishFailures,
		); err != nil {
			return nil, err
		}
		rep.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, err
		}
		rep.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, rep)
	}
	return out, rows.Err()
}
