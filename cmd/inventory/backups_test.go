package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gaslink/backend-go/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveObjectKey(t *testing.T) {
	tests := []struct {
		prefix, override, want string
	}{
		{"inventory-backups", "", "inventory-backups"},
		{"", "/distributor-1/a.csv", "distributor-1/a.csv"},
		{"inventory-backups/", "distributor-1/a.csv", "inventory-backups/distributor-1/a.csv"},
		{"inventory-backups", "inventory-backups/distributor-1/a.csv", "inventory-backups/distributor-1/a.csv"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resolveObjectKey(tt.prefix, tt.override), "%q + %q", tt.prefix, tt.override)
	}
}

func TestObjectRelativePath(t *testing.T) {
	assert.Equal(t, "distributor-1/a.csv", objectRelativePath("inventory-backups", "inventory-backups/distributor-1/a.csv"))
	assert.Equal(t, "a.csv", objectRelativePath("elsewhere", "inventory-backups/a.csv"))
	assert.Equal(t, "x/a.csv", objectRelativePath("", "x/a.csv"))
}

func TestBackupDownloader(t *testing.T) {
	// GIVEN backups for two distributors
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	require.NoError(t, store.UploadObject(ctx, "backups/distributor-1/summaries-20240601T000000Z.csv", []byte("a")))
	require.NoError(t, store.UploadObject(ctx, "backups/distributor-1/summaries-20240602T000000Z.csv", []byte("b")))
	require.NoError(t, store.UploadObject(ctx, "backups/distributor-2/summaries-20240601T000000Z.csv", []byte("c")))
	require.NoError(t, store.UploadObject(ctx, "backups/distributor-1/notes.txt", []byte("skip")))

	dir := t.TempDir()
	d := newBackupDownloader(store, "backups", 1, dir)

	// WHEN listing and downloading distributor 1
	backups, err := d.list(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, "backups/distributor-1/summaries-20240601T000000Z.csv", backups[0].Key)

	paths, err := d.download(ctx, "")
	require.NoError(t, err)

	// THEN only its CSV backups land in the directory
	require.Len(t, paths, 2)
	data, err := os.ReadFile(filepath.Join(dir, "summaries-20240602T000000Z.csv"))
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))

	// AND a single key can be fetched relative to the prefix
	paths, err = d.download(ctx, "summaries-20240601T000000Z.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "summaries-20240601T000000Z.csv")}, paths)
}

func TestBackupDownloader_NoBackups(t *testing.T) {
	d := newBackupDownloader(storage.NewMemoryStorage(), "backups", 7, t.TempDir())
	_, err := d.download(context.Background(), "")
	assert.Error(t, err)
}
