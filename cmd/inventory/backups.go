package main

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gaslink/backend-go/internal/storage"
	"github.com/urfave/cli/v2"
)

// backupDownloader fetches rebuild backups from object storage.
type backupDownloader struct {
	client  storage.ObjectStorage
	prefix  string
	destDir string
}

func newBackupDownloader(client storage.ObjectStorage, prefix string, distributorID int64, destDir string) *backupDownloader {
	if destDir == "" {
		destDir = "./data/tmp/backups"
	}
	if distributorID > 0 {
		prefix = path.Join(prefix, fmt.Sprintf("distributor-%d", distributorID))
	}
	return &backupDownloader{client: client, prefix: prefix, destDir: destDir}
}

func (d *backupDownloader) list(ctx context.Context) ([]storage.ObjectInfo, error) {
	objects, err := d.client.ListObjects(ctx, strings.TrimSpace(d.prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to list backups for prefix %s: %w", d.prefix, err)
	}

	backups := make([]storage.ObjectInfo, 0, len(objects))
	for _, obj := range objects {
		if strings.HasSuffix(strings.ToLower(obj.Key), ".csv") {
			backups = append(backups, obj)
		}
	}
	sort.Slice(backups, func(i, j int) bool { return backups[i].Key < backups[j].Key })
	return backups, nil
}

// download fetches the object named by override, or every backup under the
// prefix when override is empty. Local paths keep the key layout.
func (d *backupDownloader) download(ctx context.Context, override string) ([]string, error) {
	var keys []string
	if override != "" {
		keys = []string{resolveObjectKey(d.prefix, override)}
	} else {
		backups, err := d.list(ctx)
		if err != nil {
			return nil, err
		}
		for _, b := range backups {
			keys = append(keys, b.Key)
		}
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("no backups found for prefix %s", d.prefix)
	}

	localPaths := make([]string, 0, len(keys))
	for _, key := range keys {
		localPath := filepath.Join(d.destDir, objectRelativePath(d.prefix, key))
		if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to prepare directory for %s: %w", localPath, err)
		}
		if err := d.client.DownloadObject(ctx, key, localPath); err != nil {
			return nil, err
		}
		localPaths = append(localPaths, localPath)
	}

	sort.Strings(localPaths)
	return localPaths, nil
}

func resolveObjectKey(prefix, override string) string {
	if override == "" {
		return strings.TrimSpace(prefix)
	}
	if prefix == "" {
		return strings.TrimPrefix(override, "/")
	}

	prefixTrimmed := strings.TrimSuffix(strings.TrimSpace(prefix), "/")
	overrideTrimmed := strings.TrimPrefix(strings.TrimSpace(override), "/")

	if strings.HasPrefix(overrideTrimmed, prefixTrimmed) {
		return overrideTrimmed
	}
	return fmt.Sprintf("%s/%s", prefixTrimmed, overrideTrimmed)
}

func objectRelativePath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	prefixTrimmed := strings.TrimSuffix(strings.TrimSpace(prefix), "/")
	rel := strings.TrimPrefix(key, prefixTrimmed+"/")
	if rel == "" || rel == key {
		return filepath.Base(key)
	}
	return rel
}

func backupsCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.Int64Flag{Name: "distributor", Aliases: []string{"d"}, Usage: "Only backups of this distributor"},
		&cli.StringFlag{Name: "prefix", Usage: "Backup key prefix, defaults to STORAGE_BACKUP_PREFIX"},
	}
	downloader := func(c *cli.Context) *backupDownloader {
		e := getEnv(c)
		prefix := c.String("prefix")
		if prefix == "" {
			prefix = e.cfg.Storage.BackupPrefix
		}
		return newBackupDownloader(e.backups, prefix, c.Int64("distributor"), c.String("out"))
	}

	return &cli.Command{
		Name:  "backups",
		Usage: "List or download the CSV backups written before rebuilds",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Flags:  flags,
				Before: initEnv,
				After:  closeEnv,
				Action: func(c *cli.Context) error {
					backups, err := downloader(c).list(c.Context)
					if err != nil {
						return err
					}
					return printJSON(c, backups)
				},
			},
			{
				Name: "download",
				Flags: append(flags,
					&cli.StringFlag{Name: "key", Usage: "Object key, absolute or relative to the prefix; all backups when empty"},
					&cli.StringFlag{Name: "out", Usage: "Download directory", Value: "./data/tmp/backups"},
				),
				Before: initEnv,
				After:  closeEnv,
				Action: func(c *cli.Context) error {
					paths, err := downloader(c).download(c.Context, c.String("key"))
					if err != nil {
						return err
					}
					return printJSON(c, paths)
				},
			},
		},
	}
}
