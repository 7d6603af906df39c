package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gaslink/backend-go/internal/domain"
	"github.com/gaslink/backend-go/internal/drive"
	"github.com/gaslink/backend-go/internal/inventory"
	"github.com/gaslink/backend-go/internal/jobs"
	"github.com/gaslink/backend-go/internal/scheduler"
	"github.com/gaslink/backend-go/internal/service"
	"github.com/urfave/cli/v2"
)

const defaultWindowDays = 30

func dateFlag(name, usage string) *cli.StringFlag {
	return &cli.StringFlag{Name: name, Usage: usage + " (YYYY-MM-DD)"}
}

func windowFlags() []cli.Flag {
	return []cli.Flag{
		newDistributorFlag(),
		dateFlag("from", "First date of the window"),
		dateFlag("to", "Last date of the window, defaults to today"),
	}
}

func (e *env) today() time.Time {
	return inventory.Today(e.cfg.Inventory.Location())
}

func parseDateFlag(c *cli.Context, name string, def time.Time) (time.Time, error) {
	value := c.String(name)
	if value == "" {
		return def, nil
	}
	date, err := inventory.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return date, nil
}

// window reads --from/--to, defaulting to the last 30 days.
func window(c *cli.Context, today time.Time) (time.Time, time.Time, error) {
	to, err := parseDateFlag(c, "to", today)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	from, err := parseDateFlag(c, "from", to.AddDate(0, 0, -defaultWindowDays))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to %s is before --from %s: %w",
			inventory.FormatDate(to), inventory.FormatDate(from), domain.ErrInvalidInput)
	}
	return from, to, nil
}

func printJSON(c *cli.Context, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	_, err = fmt.Fprintln(c.App.Writer, string(out))
	return err
}

// track records the command as a job run and prints its result.
func track(c *cli.Context, jobName string, date time.Time, fn func(ctx context.Context) (interface{}, string, error)) error {
	e := getEnv(c)
	var result interface{}
	_, err := e.tracker.Run(c.Context, jobName, c.Int64("distributor"), date, func(ctx context.Context) (string, error) {
		res, message, err := fn(ctx)
		result = res
		return message, err
	})
	if result != nil {
		if perr := printJSON(c, result); perr != nil {
			return perr
		}
	}
	return err
}

func populateCommand() *cli.Command {
	return &cli.Command{
		Name:  "populate",
		Usage: "Derive summary rows for one date or a range",
		Flags: []cli.Flag{
			newDistributorFlag(),
			dateFlag("date", "Date to populate, defaults to today"),
			dateFlag("from", "First date of a range"),
			dateFlag("to", "Last date of a range"),
			&cli.BoolFlag{Name: "stop-on-failure", Usage: "Stop a range at the first failed date"},
		},
		Before: initEnv,
		After:  closeEnv,
		Action: func(c *cli.Context) error {
			e := getEnv(c)
			id := c.Int64("distributor")

			if c.IsSet("from") || c.IsSet("to") {
				from, to, err := window(c, e.today())
				if err != nil {
					return err
				}
				return track(c, jobs.JobPopulation, to, func(ctx context.Context) (interface{}, string, error) {
					done, failed, err := e.engine.Population.PopulateRange(ctx, id, from, to, c.Bool("stop-on-failure"))
					res := map[string]interface{}{"populated_days": done, "failed_dates": failed}
					if err == nil && len(failed) > 0 {
						err = fmt.Errorf("%d dates failed", len(failed))
					}
					return res, fmt.Sprintf("populated %d days", done), err
				})
			}

			date, err := parseDateFlag(c, "date", e.today())
			if err != nil {
				return err
			}
			return track(c, jobs.JobPopulation, date, func(ctx context.Context) (interface{}, string, error) {
				res, err := e.engine.Population.Populate(ctx, id, date)
				if err != nil {
					return nil, "", err
				}
				if !res.Success {
					return res, "", fmt.Errorf("population incomplete: %s", res.Message)
				}
				return res, res.Message, nil
			})
		},
	}
}

func gapsCommand() *cli.Command {
	return &cli.Command{
		Name:  "gaps",
		Usage: "Report dates without summary rows",
		Flags: append(windowFlags(),
			&cli.IntFlag{Name: "lookback", Usage: "Days to look back from today (ignored with --from/--to)"},
		),
		Before: initEnv,
		After:  closeEnv,
		Action: func(c *cli.Context) error {
			e := getEnv(c)
			id := c.Int64("distributor")

			var (
				report *domain.GapReport
				err    error
			)
			if c.IsSet("from") || c.IsSet("to") {
				var from, to time.Time
				if from, to, err = window(c, e.today()); err != nil {
					return err
				}
				report, err = e.engine.Gaps.DetectInRange(c.Context, id, from, to)
			} else {
				report, err = e.engine.Gaps.Detect(c.Context, id, c.Int("lookback"))
			}
			if err != nil {
				return err
			}
			return printJSON(c, report)
		},
	}
}

func recoverCommand() *cli.Command {
	return &cli.Command{
		Name:  "recover",
		Usage: "Backfill missing dates and reflow the chain after them",
		Flags: append(windowFlags(),
			&cli.IntFlag{Name: "lookback", Usage: "Days to look back from today (ignored with --from/--to)"},
		),
		Before: initEnv,
		After:  closeEnv,
		Action: func(c *cli.Context) error {
			e := getEnv(c)
			id := c.Int64("distributor")

			return track(c, jobs.JobRecovery, e.today(), func(ctx context.Context) (interface{}, string, error) {
				var (
					res *domain.RecoveryResult
					err error
				)
				if c.IsSet("from") || c.IsSet("to") {
					var from, to time.Time
					if from, to, err = window(c, e.today()); err != nil {
						return nil, "", err
					}
					res, err = e.engine.Gaps.Recover(ctx, id, from, to)
				} else {
					res, err = e.engine.Gaps.RecoverLookback(ctx, id, c.Int("lookback"))
				}
				if err != nil {
					return res, "", err
				}
				if !res.Success {
					return res, "", fmt.Errorf("recovery incomplete: %s", res.Message)
				}
				return res, res.Message, nil
			})
		},
	}
}

func rebuildCommand() *cli.Command {
	return &cli.Command{
		Name:  "rebuild",
		Usage: "Delete and rebuild the whole summary history (destructive)",
		Flags: []cli.Flag{
			newDistributorFlag(),
			&cli.BoolFlag{Name: "confirm", Usage: "Required: acknowledge that existing rows are deleted"},
			dateFlag("until", "Last date to rebuild, defaults to today"),
		},
		Before: initEnv,
		After:  closeEnv,
		Action: func(c *cli.Context) error {
			e := getEnv(c)
			opts := service.RebuildOptions{Confirm: c.Bool("confirm")}
			if c.IsSet("until") {
				until, err := parseDateFlag(c, "until", e.today())
				if err != nil {
					return err
				}
				opts.Until = &until
			}

			return track(c, jobs.JobRebuild, e.today(), func(ctx context.Context) (interface{}, string, error) {
				res, err := e.engine.Rebuild.Rebuild(ctx, c.Int64("distributor"), opts)
				if err != nil {
					return res, "", err
				}
				if !res.Success {
					return res, "", fmt.Errorf("rebuild incomplete: %s", res.Message)
				}
				return res, res.Message, nil
			})
		},
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:   "check",
		Usage:  "Verify the carry-forward chain",
		Flags:  windowFlags(),
		Before: initEnv,
		After:  closeEnv,
		Action: func(c *cli.Context) error {
			e := getEnv(c)
			from, to, err := window(c, e.today())
			if err != nil {
				return err
			}

			report, err := e.engine.Continuity.Check(c.Context, c.Int64("distributor"), from, to)
			if err != nil {
				return err
			}
			if err := printJSON(c, report); err != nil {
				return err
			}
			if !report.Consistent() {
				return cli.Exit(fmt.Sprintf("%d continuity issues", len(report.Issues)), 2)
			}
			return nil
		},
	}
}

func reconcileCommand() *cli.Command {
	return &cli.Command{
		Name:   "reconcile",
		Usage:  "Repopulate from the earliest continuity issue",
		Flags:  windowFlags(),
		Before: initEnv,
		After:  closeEnv,
		Action: func(c *cli.Context) error {
			e := getEnv(c)
			from, to, err := window(c, e.today())
			if err != nil {
				return err
			}

			return track(c, jobs.JobReconcile, to, func(ctx context.Context) (interface{}, string, error) {
				res, err := e.engine.Continuity.Reconcile(ctx, c.Int64("distributor"), from, to)
				if err != nil {
					return res, "", err
				}
				if !res.Success {
					return res, "", fmt.Errorf("reconcile incomplete: %s", res.Message)
				}
				return res, res.Message, nil
			})
		},
	}
}

func lowStockCommand() *cli.Command {
	return &cli.Command{
		Name:  "low-stock",
		Usage: "Raise replenishment requests from the previous day's closing",
		Flags: []cli.Flag{
			newDistributorFlag(),
			dateFlag("date", "Date of the check, defaults to today"),
		},
		Before: initEnv,
		After:  closeEnv,
		Action: func(c *cli.Context) error {
			e := getEnv(c)
			date, err := parseDateFlag(c, "date", e.today())
			if err != nil {
				return err
			}

			return track(c, jobs.JobLowStock, date, func(ctx context.Context) (interface{}, string, error) {
				res, err := e.engine.LowStock.Check(ctx, c.Int64("distributor"), date)
				if err != nil {
					return nil, "", err
				}
				return res, fmt.Sprintf("created %d requests", len(res.Created)), nil
			})
		},
	}
}

func importCorpCommand() *cli.Command {
	return &cli.Command{
		Name:  "import-corp",
		Usage: "Import corporation exchange sheets from a local file or a Drive folder",
		Flags: []cli.Flag{
			newDistributorFlag(),
			&cli.StringFlag{Name: "file", Usage: "Local CSV or XLSX file"},
			&cli.StringFlag{Name: "folder-id", Usage: "Google Drive folder id"},
			&cli.StringFlag{Name: "path", Usage: "Google Drive folder path, e.g. GasLink/Challans/2024"},
			&cli.BoolFlag{Name: "repopulate", Usage: "Repopulate from the earliest imported date through today"},
		},
		Before: initEnv,
		After:  closeEnv,
		Action: func(c *cli.Context) error {
			e := getEnv(c)
			id := c.Int64("distributor")

			return track(c, jobs.JobCorpImport, e.today(), func(ctx context.Context) (interface{}, string, error) {
				var (
					result   interface{}
					earliest *time.Time
					message  string
				)

				switch {
				case c.String("file") != "":
					f, err := os.Open(c.String("file"))
					if err != nil {
						return nil, "", fmt.Errorf("failed to open %s: %w", c.String("file"), err)
					}
					defer f.Close()

					res, err := drive.NewIngestService(nil, e.repo).Import(ctx, id, f.Name(), f)
					if err != nil {
						return nil, "", err
					}
					result, earliest = res, res.EarliestAffected
					message = fmt.Sprintf("imported %d rows, skipped %d", res.RowsImported, res.RowsSkipped)

				case c.String("folder-id") != "" || c.String("path") != "":
					svc, err := drive.NewService(ctx, e.cfg.Drive.CredentialsJSON)
					if err != nil {
						return nil, "", err
					}
					folderID := c.String("folder-id")
					if folderID == "" {
						if folderID, err = svc.FindFolderByPath(ctx, c.String("path")); err != nil {
							return nil, "", err
						}
					}
					res, err := drive.NewIngestService(svc, e.repo).IngestFolder(ctx, id, folderID)
					if err != nil {
						return res, "", err
					}
					result, earliest = res, res.EarliestAffected
					message = fmt.Sprintf("imported %d files, %d failed", len(res.Files), len(res.FailedFiles))

				default:
					return nil, "", cli.Exit("one of --file, --folder-id or --path is required", 1)
				}

				if c.Bool("repopulate") && earliest != nil && !earliest.After(e.today()) {
					done, failed, err := e.engine.Population.PopulateRange(ctx, id, *earliest, e.today(), false)
					message = fmt.Sprintf("%s; repopulated %d days", message, done)
					if err == nil && len(failed) > 0 {
						err = fmt.Errorf("repopulation failed for %v", failed)
					}
					if err != nil {
						return result, message, err
					}
				}
				return result, message, nil
			})
		},
	}
}

func runJobCommand() *cli.Command {
	return &cli.Command{
		Name:      "run-job",
		Usage:     "Run a scheduled job now for every active distributor",
		ArgsUsage: fmt.Sprintf("<%s|%s|%s>", jobs.JobPopulation, jobs.JobLowStock, jobs.JobRecovery),
		Before:    initEnv,
		After:     closeEnv,
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("exactly one job name is required", 1)
			}
			e := getEnv(c)

			sched := scheduler.New(e.repo, e.tracker, e.cfg.Inventory.Location(), e.cfg.Inventory.DistributorConcurrency)
			if err := scheduler.RegisterInventoryJobs(sched, e.engine, e.cfg.Inventory); err != nil {
				return err
			}

			summary, err := sched.RunNow(c.Context, c.Args().First())
			if err != nil {
				return err
			}
			if err := printJSON(c, summary); err != nil {
				return err
			}
			if summary.Failed > 0 {
				return cli.Exit(fmt.Sprintf("%d distributors failed", summary.Failed), 2)
			}
			return nil
		},
	}
}

func jobRunsCommand() *cli.Command {
	return &cli.Command{
		Name:  "job-runs",
		Usage: "List recent job runs",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "job", Usage: "Filter by job name"},
			&cli.IntFlag{Name: "limit", Value: 20},
		},
		Before: initEnv,
		After:  closeEnv,
		Action: func(c *cli.Context) error {
			runs, err := getEnv(c).tracker.Recent(c.Context, c.String("job"), c.Int("limit"))
			if err != nil {
				return err
			}
			return printJSON(c, runs)
		},
	}
}
