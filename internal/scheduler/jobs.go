package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/gaslink/backend-go/internal/config"
	"github.com/gaslink/backend-go/internal/domain"
	"github.com/gaslink/backend-go/internal/jobs"
	"github.com/gaslink/backend-go/internal/service"
	"github.com/pkg/errors"
)

// RegisterInventoryJobs wires the daily population, low-stock and gap
// recovery jobs at the configured times.
func RegisterInventoryJobs(s *Scheduler, engine *service.Engine, cfg config.InventoryConfig) error {
	lookback := cfg.GapLookbackDays
	if lookback <= 0 {
		lookback = 30
	}

	registrations := []struct {
		name  string
		clock string
		fn    JobFunc
	}{
		{jobs.JobPopulation, cfg.PopulationTime, populationJob(engine)},
		{jobs.JobLowStock, cfg.LowStockTime, lowStockJob(engine)},
		{jobs.JobRecovery, cfg.RecoveryTime, recoveryJob(engine, lookback)},
	}

	for _, r := range registrations {
		if err := s.Register(r.name, r.clock, r.fn); err != nil {
			return err
		}
	}
	return nil
}

func populationJob(engine *service.Engine) JobFunc {
	return func(ctx context.Context, d domain.Distributor, date time.Time) (string, error) {
		res, err := engine.Population.Populate(ctx, d.ID, date)
		if err != nil {
			return "", err
		}
		if !res.Success {
			return "", errors.New(res.Message)
		}
		return res.Message, nil
	}
}

func lowStockJob(engine *service.Engine) JobFunc {
	return func(ctx context.Context, d domain.Distributor, date time.Time) (string, error) {
		res, err := engine.LowStock.Check(ctx, d.ID, date)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("created %d requests, skipped %d types", len(res.Created), len(res.Skipped)), nil
	}
}

func recoveryJob(engine *service.Engine, lookback int) JobFunc {
	return func(ctx context.Context, d domain.Distributor, date time.Time) (string, error) {
		res, err := engine.Gaps.Recover(ctx, d.ID, date.AddDate(0, 0, -lookback), date)
		if err != nil {
			return "", err
		}
		if !res.Success {
			return "", errors.Errorf("%s; failed dates %v", res.Message, res.FailedDates)
		}
		return res.Message, nil
	}
}
