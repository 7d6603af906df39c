// Package scheduler runs the daily inventory jobs at fixed wall-clock times
// in the tenant timezone, fanning out over active distributors.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gaslink/backend-go/internal/domain"
	"github.com/gaslink/backend-go/internal/inventory"
	"github.com/gaslink/backend-go/internal/jobs"
	"github.com/gaslink/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// JobFunc runs a job for one distributor on its local calendar date.
type JobFunc func(ctx context.Context, distributor domain.Distributor, date time.Time) (string, error)

// Job is a named daily job firing at Hour:Minute.
type Job struct {
	Name   string
	Hour   int
	Minute int
	Run    JobFunc
}

// RunSummary reports one fan-out of a job over all active distributors.
type RunSummary struct {
	Job       string `json:"job"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

type Scheduler struct {
	distributors repository.CatalogRepository
	tracker      *jobs.Tracker
	location     *time.Location
	concurrency  int
	now          func() time.Time

	jobs []Job

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

func New(distributors repository.CatalogRepository, tracker *jobs.Tracker, location *time.Location, concurrency int) *Scheduler {
	if location == nil {
		location = time.UTC
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Scheduler{
		distributors: distributors,
		tracker:      tracker,
		location:     location,
		concurrency:  concurrency,
		now:          time.Now,
	}
}

// Register adds a job firing daily at clock ("HH:MM").
func (s *Scheduler) Register(name, clock string, fn JobFunc) error {
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.Name == name {
			return fmt.Errorf("job %s already registered", name)
		}
	}
	s.jobs = append(s.jobs, Job{Name: name, Hour: hour, Minute: minute, Run: fn})
	return nil
}

// Jobs returns the registered jobs in registration order.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Job(nil), s.jobs...)
}

// Start launches one timer loop per registered job. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, job)
		log.Info().
			Str("job", job.Name).
			Time("next_run", NextRun(s.now(), job.Hour, job.Minute, s.location)).
			Msg("scheduler: job scheduled")
	}
}

// Stop cancels the timer loops and waits for running jobs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	log.Info().Msg("scheduler: stopped")
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()

	for {
		next := NextRun(s.now(), job.Hour, job.Minute, s.location)
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.execute(ctx, job)
		}
	}
}

// RunNow runs the named job immediately for every active distributor.
func (s *Scheduler) RunNow(ctx context.Context, name string) (*RunSummary, error) {
	for _, job := range s.Jobs() {
		if job.Name == name {
			return s.execute(ctx, job)
		}
	}
	return nil, fmt.Errorf("job %s: %w", name, domain.ErrNotFound)
}

// execute fans the job out over active distributors with bounded concurrency.
// One distributor failing does not affect the others.
func (s *Scheduler) execute(ctx context.Context, job Job) (*RunSummary, error) {
	logger := log.With().Str("job", job.Name).Logger()

	distributors, err := s.distributors.ListActiveDistributors(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("scheduler: failed to list distributors")
		return nil, err
	}

	var succeeded, failed int64
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for _, d := range distributors {
		d := d
		date := inventory.DateOnly(s.now().In(s.locationFor(d)))
		g.Go(func() error {
			_, err := s.tracker.Run(ctx, job.Name, d.ID, date, func(ctx context.Context) (string, error) {
				return job.Run(ctx, d, date)
			})
			if err != nil {
				atomic.AddInt64(&failed, 1)
			} else {
				atomic.AddInt64(&succeeded, 1)
			}
			return nil
		})
	}
	_ = g.Wait()

	summary := &RunSummary{Job: job.Name, Succeeded: int(succeeded), Failed: int(failed)}
	logger.Info().
		Int("distributors", len(distributors)).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Msg("scheduler: job done")

	return summary, nil
}

// locationFor prefers the distributor's own timezone.
func (s *Scheduler) locationFor(d domain.Distributor) *time.Location {
	if d.Timezone != "" {
		if loc, err := time.LoadLocation(d.Timezone); err == nil {
			return loc
		}
	}
	return s.location
}

// ParseClock parses "HH:MM" in 24-hour form.
func ParseClock(clock string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock %q: %w", clock, domain.ErrInvalidInput)
	}
	if hour, err = strconv.Atoi(parts[0]); err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q: %w", clock, domain.ErrInvalidInput)
	}
	if minute, err = strconv.Atoi(parts[1]); err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q: %w", clock, domain.ErrInvalidInput)
	}
	return hour, minute, nil
}

// NextRun returns the first hour:minute in loc strictly after now.
func NextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}
