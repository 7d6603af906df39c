package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gaslink/backend-go/internal/domain"
	"github.com/gaslink/backend-go/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runDate = time.Date(2024, 6, 2, 0, 1, 0, 0, time.UTC)

func TestRun_RecordsSuccess(t *testing.T) {
	// GIVEN a tracker over the memory store
	store := memory.NewStore()
	tracker := NewTracker(store)

	// WHEN a job succeeds
	run, err := tracker.Run(context.Background(), JobPopulation, 1, runDate, func(ctx context.Context) (string, error) {
		return "populated 2 types", nil
	})
	require.NoError(t, err)

	// THEN the stored run is completed with the job's message
	runs, err := tracker.Recent(context.Background(), JobPopulation, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.RunID, runs[0].RunID)
	assert.Equal(t, domain.JobRunSucceeded, runs[0].Status)
	assert.Equal(t, "populated 2 types", runs[0].Message)
	assert.Equal(t, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), runs[0].RunDate)
	assert.NotNil(t, runs[0].CompletedAt)
}

func TestRun_RecordsFailure(t *testing.T) {
	store := memory.NewStore()
	tracker := NewTracker(store)
	boom := errors.New("database unavailable")

	_, err := tracker.Run(context.Background(), JobLowStock, 1, runDate, func(ctx context.Context) (string, error) {
		return "", boom
	})
	assert.Same(t, boom, err)

	runs, err := tracker.Recent(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.JobRunFailed, runs[0].Status)
	assert.Equal(t, "database unavailable", runs[0].Message)
}

func TestRecent_FiltersByJobName(t *testing.T) {
	tracker := NewTracker(memory.NewStore())
	ok := func(ctx context.Context) (string, error) { return "ok", nil }

	for _, name := range []string{JobPopulation, JobRecovery, JobPopulation} {
		_, err := tracker.Run(context.Background(), name, 1, runDate, ok)
		require.NoError(t, err)
	}

	runs, err := tracker.Recent(context.Background(), JobRecovery, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	runs, err = tracker.Recent(context.Background(), "", 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestFinish_UnknownRun(t *testing.T) {
	tracker := NewTracker(memory.NewStore())

	err := tracker.Finish(context.Background(), &domain.JobRun{RunID: "missing"}, "", nil)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
