package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anoixa/image-store/config"
	"github.com/anoixa/image-store/internal/services/image"
	"github.com/anoixa/image-store/internal/services/reconcile"
)

var gifPayload = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\x00\x00\x00\xff\xff\xff!\xf9\x04\x01\x00\x00\x00\x00,\x00\x00\x00\x00\x01\x00\x01\x00\x00\x02\x02D\x01\x00;")

func testConfig(t *testing.T, dbType string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		DBType:               dbType,
		DBFilePath:           filepath.Join(dir, "images.db"),
		DBBadgerDir:          filepath.Join(dir, "badger"),
		DBMaxOpenConns:       4,
		StorageType:          "local",
		StorageLocalPath:     filepath.Join(dir, "objects"),
		CacheType:            "memory",
		CacheMaxSizeMB:       8,
		CacheTTL:             time.Minute,
		LedgerType:           "memory",
		ReconcileInterval:    time.Minute,
		ReconcileBatchSize:   10,
		ReconcileConcurrency: 2,
		UploadMaxSizeMB:      1,
		UploadStrictDecode:   true,
	}
}

func TestContainer_EndToEnd(t *testing.T) {
	for _, dbType := range []string{"sqlite", "badger"} {
		t.Run(dbType, func(t *testing.T) {
			ctx := context.Background()
			c := NewContainer(testConfig(t, dbType))
			require.NoError(t, c.Init(ctx))
			t.Cleanup(func() { assert.NoError(t, c.Close()) })
			require.NoError(t, c.Migrate(ctx))
			require.NoError(t, c.Health(ctx))

			svc := c.ImageService()
			record, err := svc.Upload(ctx, image.UploadInput{UserID: "user123", ImageName: "dot.gif", Data: gifPayload})
			require.NoError(t, err)

			got, err := svc.Get(ctx, image.GetInput{UserID: "user123", ImageID: record.ImageID})
			require.NoError(t, err)
			assert.Equal(t, gifPayload, got.Data)
			assert.Equal(t, "image/gif", got.ContentType)

			list, err := svc.List(ctx, image.ListInput{UserID: "user123"})
			require.NoError(t, err)
			require.Len(t, list.Images, 1)

			require.NoError(t, svc.Delete(ctx, "user123", record.ImageID))
			exists, err := c.Storage().Exists(ctx, record.StorageKey)
			require.NoError(t, err)
			assert.False(t, exists)

			report, err := c.Reconciler().RunOnce(ctx)
			require.NoError(t, err)
			assert.Equal(t, reconcile.Report{}, report)
		})
	}
}

func TestContainer_MigrationVersion(t *testing.T) {
	ctx := context.Background()

	c := NewContainer(testConfig(t, "sqlite"))
	require.NoError(t, c.Init(ctx))
	defer c.Close()
	require.NoError(t, c.Migrate(ctx))

	version, err := c.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	b := NewContainer(testConfig(t, "badger"))
	require.NoError(t, b.Init(ctx))
	defer b.Close()
	version, err = b.MigrationVersion()
	require.NoError(t, err)
	assert.Zero(t, version)
}

func TestContainer_InitFailureReleasesResources(t *testing.T) {
	cfg := testConfig(t, "badger")
	cfg.StorageType = "minio"

	c := NewContainer(cfg)
	assert.Error(t, c.Init(context.Background()))
	assert.Nil(t, c.badgerDB)
}
