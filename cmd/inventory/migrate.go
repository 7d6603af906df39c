package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gaslink/backend-go/internal/config"
	"github.com/gaslink/backend-go/pkg/logger"
	"github.com/urfave/cli/v2"
)

// migrationFiles returns the .sql files in dir in lexical order.
func migrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations dir %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".sql") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply the SQL migrations in order",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Usage:   "Directory containing migration files",
				Value:   "./scripts/migrations",
				EnvVars: []string{"MIGRATIONS_DIR"},
			},
		},
		Action: func(c *cli.Context) error {
			logger.SetLevel(c.String("log-level"))

			files, err := migrationFiles(c.String("dir"))
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no migrations found in %s", c.String("dir"))
			}

			db, err := openDB(c, config.Load())
			if err != nil {
				return err
			}
			defer db.Close()

			for _, file := range files {
				stmt, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", file, err)
				}
				if _, err := db.ExecContext(c.Context, string(stmt)); err != nil {
					return fmt.Errorf("failed to apply %s: %w", filepath.Base(file), err)
				}
				logger.Log.Info().Str("file", filepath.Base(file)).Msg("migration applied")
			}
			return nil
		},
	}
}
