package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/gaslink/backend-go/internal/domain"
	"github.com/gaslink/backend-go/internal/repository"
)

// JobRunRepository handles database operations for job run tracking
type JobRunRepository struct {
	db *DB
}

func NewJobRunRepository(db *DB) *JobRunRepository {
	return &JobRunRepository{db: db}
}

var _ repository.JobRunRepository = (*JobRunRepository)(nil)

// CreateJobRun creates a new job run record
func (r *JobRunRepository) CreateJobRun(ctx context.Context, run *domain.JobRun) error {
	query := `
		INSERT INTO inventory_job_runs (
			run_id, job_name, distributor_id, run_date, status, message, started_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(
		ctx, query,
		run.RunID, run.JobName, run.DistributorID, run.RunDate,
		run.Status, run.Message, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job run: %w", err)
	}
	return nil
}

// CompleteJobRun stores the final status of a run
func (r *JobRunRepository) CompleteJobRun(ctx context.Context, runID string, status domain.JobRunStatus, message string, completedAt time.Time) error {
	query := `
		UPDATE inventory_job_runs
		SET status = $1, message = $2, completed_at = $3
		WHERE run_id = $4
	`

	res, err := r.db.ExecContext(ctx, query, status, message, completedAt, runID)
	if err != nil {
		return fmt.Errorf("failed to complete job run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job run %s: %w", runID, domain.ErrNotFound)
	}
	return nil
}

// ListJobRuns returns the latest runs, optionally for one job
func (r *JobRunRepository) ListJobRuns(ctx context.Context, jobName string, limit int) ([]domain.JobRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT run_id, job_name, distributor_id, run_date, status,
		       message, started_at, completed_at
		FROM inventory_job_runs
		WHERE ($1 = '' OR job_name = $1)
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, jobName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list job runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.JobRun
	for rows.Next() {
		var run domain.JobRun
		err := rows.Scan(
			&run.RunID, &run.JobName, &run.DistributorID, &run.RunDate, &run.Status,
			&run.Message, &run.StartedAt, &run.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
