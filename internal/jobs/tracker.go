package jobs

import (
	"context"
	"time"

	"github.com/gaslink/backend-go/internal/domain"
	"github.com/gaslink/backend-go/internal/inventory"
	"github.com/gaslink/backend-go/internal/repository"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Job names recorded in inventory_job_runs.
const (
	JobPopulation = "daily_population"
	JobLowStock   = "low_stock_check"
	JobRecovery   = "gap_recovery"
	JobReconcile  = "continuity_reconcile"
	JobRebuild    = "full_rebuild"
	JobCorpImport = "corp_exchange_import"
)

// Func does the work of one run and returns a short outcome message.
type Func func(ctx context.Context) (string, error)

// Tracker records the lifecycle of job runs.
type Tracker struct {
	repo repository.JobRunRepository
	now  func() time.Time
}

func NewTracker(repo repository.JobRunRepository) *Tracker {
	return &Tracker{repo: repo, now: time.Now}
}

// Start records a running job and returns it.
func (t *Tracker) Start(ctx context.Context, jobName string, distributorID int64, runDate time.Time) (*domain.JobRun, error) {
	run := &domain.JobRun{
		RunID:         uuid.NewString(),
		JobName:       jobName,
		DistributorID: distributorID,
		RunDate:       inventory.DateOnly(runDate),
		Status:        domain.JobRunRunning,
		StartedAt:     t.now(),
	}
	if err := t.repo.CreateJobRun(ctx, run); err != nil {
		return nil, errors.Wrap(err, "create job run")
	}
	return run, nil
}

// Finish stores the outcome of run. A non-nil runErr marks it failed.
func (t *Tracker) Finish(ctx context.Context, run *domain.JobRun, message string, runErr error) error {
	completed := t.now()
	run.Status = domain.JobRunSucceeded
	run.Message = message
	if runErr != nil {
		run.Status = domain.JobRunFailed
		run.Message = runErr.Error()
	}
	run.CompletedAt = &completed

	if err := t.repo.CompleteJobRun(ctx, run.RunID, run.Status, run.Message, completed); err != nil {
		return errors.Wrap(err, "complete job run")
	}
	return nil
}

// Run wraps fn with Start and Finish. Failing to record the run is logged
// and does not prevent fn from running; fn's error is returned unchanged.
func (t *Tracker) Run(ctx context.Context, jobName string, distributorID int64, runDate time.Time, fn Func) (*domain.JobRun, error) {
	logger := log.With().
		Str("job", jobName).
		Int64("distributor_id", distributorID).
		Str("date", inventory.FormatDate(runDate)).
		Logger()

	run, err := t.Start(ctx, jobName, distributorID, runDate)
	if err != nil {
		logger.Error().Err(err).Msg("job tracker: failed to record start")
	}
	if run != nil {
		logger = logger.With().Str("run_id", run.RunID).Logger()
	}

	message, runErr := fn(ctx)
	if runErr != nil {
		logger.Error().Err(runErr).Msg("job failed")
	} else {
		logger.Info().Str("message", message).Msg("job succeeded")
	}

	if run != nil {
		if err := t.Finish(ctx, run, message, runErr); err != nil {
			logger.Error().Err(err).Msg("job tracker: failed to record completion")
		}
	}
	return run, runErr
}

// Recent lists the latest runs, optionally filtered by job name.
func (t *Tracker) Recent(ctx context.Context, jobName string, limit int) ([]domain.JobRun, error) {
	runs, err := t.repo.ListJobRuns(ctx, jobName, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list job runs")
	}
	return runs, nil
}
