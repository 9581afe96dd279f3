package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shashiranjanraj/kashvi-shop/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalDiskRoundTrip(t *testing.T) {
	root := t.TempDir()
	disk := storage.NewLocalDisk(root, "http://localhost:8080/storage/")
	ctx := context.Background()

	require.NoError(t, disk.Put(ctx, "exports/orders.xlsx", []byte("data")))

	ok, err := disk.Exists(ctx, "exports/orders.xlsx")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := disk.Get(ctx, "exports/orders.xlsx")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), got)
	assert.Equal(t, "http://localhost:8080/storage/exports/orders.xlsx", disk.URL("exports/orders.xlsx"))

	require.NoError(t, disk.Delete(ctx, "exports/orders.xlsx"))
	require.NoError(t, disk.Delete(ctx, "exports/orders.xlsx"), "deleting a missing file is fine")

	_, err = disk.Get(ctx, "exports/orders.xlsx")
	assert.ErrorIs(t, err, storage.ErrNotExist)
}

func TestLocalDiskStaysInsideRoot(t *testing.T) {
	root := t.TempDir()
	disk := storage.NewLocalDisk(filepath.Join(root, "disk"), "")

	require.NoError(t, disk.Put(context.Background(), "../../escape.txt", []byte("x")))

	_, err := os.Stat(filepath.Join(root, "disk", "escape.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "escape.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestManager(t *testing.T) {
	m := storage.NewManager("local")
	_, err := m.Default()
	assert.Error(t, err)

	m.Register("local", storage.NewLocalDisk(t.TempDir(), ""))
	d, err := m.Default()
	require.NoError(t, err)
	assert.NotNil(t, d)
	assert.Equal(t, []string{"local"}, m.Names())
}
