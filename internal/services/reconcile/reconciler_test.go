package reconcile

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anoixa/image-store/database/models"
	"github.com/anoixa/image-store/database/repo/images"
	"github.com/anoixa/image-store/storage"
)

// flakyStore 删除总是失败的对象存储
type flakyStore struct {
	*storage.MemoryStorage
}

func (f *flakyStore) DeleteWithContext(ctx context.Context, key string) error {
	return errors.New("object store offline")
}

type fixture struct {
	ledger *MemoryLedger
	repo   *images.BadgerRepository
	store  *storage.MemoryStorage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := images.OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &fixture{
		ledger: NewMemoryLedger(0),
		repo:   images.NewBadgerRepository(db),
		store:  storage.NewMemoryStorage(),
	}
}

func (f *fixture) putObject(t *testing.T, key string) {
	t.Helper()
	_, err := f.store.PutWithContext(context.Background(), key, bytes.NewReader([]byte("x")), 1, "image/png")
	require.NoError(t, err)
}

func (f *fixture) putRecord(t *testing.T, id, key string) {
	t.Helper()
	require.NoError(t, f.repo.Create(context.Background(), &models.Image{
		ImageID: id, UserID: "alice", ImageName: "a", ContentType: "image/png",
		SizeBytes: 1, StorageKey: key, CreatedAt: time.Now().UTC(),
	}))
}

func TestReconciler_OrphanObjectDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := "images/alice/img_1/a.png"
	f.putObject(t, key)
	require.NoError(t, f.ledger.Record(ctx, Entry{Kind: KindOrphanObject, ImageID: "img_1", StorageKey: key}))

	report, err := NewReconciler(f.ledger, f.repo, f.store, Config{}).RunOnce(ctx)
	require.NoError(t, err)

	assert.Equal(t, Report{Scanned: 1, Repaired: 1}, report)
	assert.Equal(t, 0, f.store.Len())
	assert.Equal(t, 0, f.ledger.Len())
}

func TestReconciler_StaleOrphanKeepsObject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := "images/alice/img_2/a.png"
	f.putObject(t, key)
	f.putRecord(t, "img_2", key)
	require.NoError(t, f.ledger.Record(ctx, Entry{Kind: KindOrphanObject, ImageID: "img_2", StorageKey: key}))

	report, err := NewReconciler(f.ledger, f.repo, f.store, Config{}).RunOnce(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Resolved)
	assert.Equal(t, 1, f.store.Len(), "referenced object must survive")
	assert.Equal(t, 0, f.ledger.Len())
}

func TestReconciler_DanglingMetadataRemoved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := "images/alice/img_3/a.png"
	f.putRecord(t, "img_3", key)
	require.NoError(t, f.ledger.Record(ctx, Entry{Kind: KindDanglingMetadata, ImageID: "img_3", StorageKey: key}))

	report, err := NewReconciler(f.ledger, f.repo, f.store, Config{}).RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Repaired)

	_, err = f.repo.GetByImageID(ctx, "img_3")
	assert.ErrorIs(t, err, images.ErrImageNotFound)
}

func TestReconciler_DanglingResolvedWhenObjectBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := "images/alice/img_4/a.png"
	f.putRecord(t, "img_4", key)
	f.putObject(t, key)
	require.NoError(t, f.ledger.Record(ctx, Entry{Kind: KindDanglingMetadata, ImageID: "img_4", StorageKey: key}))

	report, err := NewReconciler(f.ledger, f.repo, f.store, Config{}).RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Resolved)

	_, err = f.repo.GetByImageID(ctx, "img_4")
	assert.NoError(t, err)
}

func TestReconciler_FailureBumpsAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := "images/alice/img_5/a.png"
	require.NoError(t, f.ledger.Record(ctx, Entry{Kind: KindOrphanObject, ImageID: "img_5", StorageKey: key}))

	r := NewReconciler(f.ledger, f.repo, &flakyStore{f.store}, Config{Concurrency: 2})
	for i := 0; i < 2; i++ {
		report, err := r.RunOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Failed)
	}

	entries, err := f.ledger.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].Attempts)
	assert.Contains(t, entries[0].Reason, "object store offline")
}

func TestReconciler_StartStop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := "images/alice/img_6/a.png"
	f.putObject(t, key)
	require.NoError(t, f.ledger.Record(ctx, Entry{Kind: KindOrphanObject, ImageID: "img_6", StorageKey: key}))

	r := NewReconciler(f.ledger, f.repo, f.store, Config{Interval: time.Hour})
	r.Start()
	assert.Eventually(t, func() bool { return f.ledger.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	r.Stop()
	r.Stop()
}

func TestReconciler_StopWithoutStart(t *testing.T) {
	f := newFixture(t)
	NewReconciler(f.ledger, f.repo, f.store, Config{}).Stop()
}
