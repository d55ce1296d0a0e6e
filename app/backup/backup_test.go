package backup_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/beanleaf/app/backup"
	"github.com/shashiranjanraj/beanleaf/app/models"
	"github.com/shashiranjanraj/beanleaf/app/repositories"
	"github.com/shashiranjanraj/beanleaf/pkg/lock"
	"github.com/shashiranjanraj/beanleaf/pkg/logger"
	"github.com/shashiranjanraj/beanleaf/pkg/recordstore"
	"github.com/shashiranjanraj/beanleaf/pkg/storage"
	"github.com/shashiranjanraj/beanleaf/pkg/tabular"
)

func TestRun_WritesOneCSVPerCollection(t *testing.T) {
	ctx := context.Background()
	store := recordstore.New(tabular.NewMemoryBackend(), lock.NewMemoryLocker(), logger.Discard())
	repos := repositories.New(store, nil)
	require.NoError(t, repos.Init(ctx))

	for _, name := range []string{"Latte", "Mocha, large"} {
		p := models.Product{Name: name, Price: 4, Stock: 2, IsAvailable: true}
		require.NoError(t, repos.Products.Save(ctx, &p))
	}

	disk, err := storage.NewLocalDisk(t.TempDir())
	require.NoError(t, err)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	res, err := backup.New(store, disk, backup.WithClock(func() time.Time { return at })).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "backups/20260301T090000Z", res.Dir)
	assert.Len(t, res.Files, 4)
	assert.Equal(t, 2, res.Rows)

	files, err := disk.List(ctx, res.Dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"backups/20260301T090000Z/OrderItems.csv",
		"backups/20260301T090000Z/Orders.csv",
		"backups/20260301T090000Z/Products.csv",
		"backups/20260301T090000Z/Users.csv",
	}, files)

	f, err := disk.Get(ctx, "backups/20260301T090000Z/Products.csv")
	require.NoError(t, err)
	defer f.Close()
	raw, err := io.ReadAll(f)
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, models.ProductFields, rows[0])
	assert.Equal(t, "Mocha, large", rows[2][1])
}

func TestRun_BackendDown(t *testing.T) {
	ctx := context.Background()
	mem := tabular.NewMemoryBackend()
	store := recordstore.New(mem, lock.NewMemoryLocker(), logger.Discard())
	require.NoError(t, repositories.New(store, nil).Init(ctx))

	disk, err := storage.NewLocalDisk(t.TempDir())
	require.NoError(t, err)

	mem.SetOffline(true)
	_, err = backup.New(store, disk).Run(ctx)
	assert.ErrorIs(t, err, recordstore.ErrBackendUnavailable)
}

func TestRun_NothingRegistered(t *testing.T) {
	store := recordstore.New(tabular.NewMemoryBackend(), lock.NewMemoryLocker(), logger.Discard())
	disk, err := storage.NewLocalDisk(t.TempDir())
	require.NoError(t, err)

	_, err = backup.New(store, disk).Run(context.Background())
	assert.Error(t, err)
}
